package hybrid

import (
	"context"
	"math"

	"retail-chat-workers/internal/common/metrics"
)

var followUpsByIntent = map[string][]string{
	IntentSales: {
		"How can AI increase my sales?",
		"What results have similar retailers seen?",
		"How long does implementation take?",
		"Schedule a demo",
	},
	IntentInventory: {
		"How does demand forecasting work?",
		"Can it reduce stockouts?",
		"Does it integrate with my POS system?",
		"Schedule a demo",
	},
	IntentCustomerAnalytics: {
		"What customer insights can I get?",
		"How does customer segmentation work?",
		"Can it personalize recommendations?",
		"Schedule a demo",
	},
	IntentPricing: {
		"What's included in each plan?",
		"Is there a free trial?",
		"Can I get a custom quote?",
		"Talk to sales",
	},
	IntentDemoRequest: {
		"Book a 30-minute demo",
		"See a recorded walkthrough",
		"Start a free trial",
		"Talk to sales first",
	},
}

var genericFollowUps = []string{
	"Tell me about your solutions",
	"How does pricing work?",
	"Show me customer success stories",
	"Schedule a demo",
}

// FollowUpsFor returns the suggestion list for a rule-based intent.
func FollowUpsFor(intent string) []string {
	if list, ok := followUpsByIntent[intent]; ok {
		return append([]string(nil), list...)
	}
	return append([]string(nil), genericFollowUps...)
}

// enrich adds the rule responder's view to a winning LLM result. It only adds
// fields; failures leave the result untouched.
func (o *Orchestrator) enrich(ctx context.Context, req *GenerationRequest, result *GenerationResult) {
	rules, ok := o.adapters[BusinessLogicProvider]
	if !ok {
		metrics.EnrichmentFailures.Inc()
		o.logger.Warn("enrichment skipped: business-logic responder not registered", nil)
		return
	}

	rb, err := invokeSafely(ctx, rules, req)
	if err != nil {
		metrics.EnrichmentFailures.Inc()
		o.logger.Warn("enrichment failed", map[string]interface{}{"error": err, "provider": result.Provider})
		return
	}

	result.Metadata.BusinessLogicIntent = rb.Metadata.Intent
	hybrid := math.Round((result.Confidence+rb.Confidence)/2*1000) / 1000
	result.Metadata.HybridConfidence = &hybrid
	if len(result.Metadata.FollowUpSuggestions) == 0 {
		result.Metadata.FollowUpSuggestions = FollowUpsFor(rb.Metadata.Intent)
	}
}
