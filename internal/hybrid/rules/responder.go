// Package rules is the deterministic keyword responder that ends every
// provider chain. It performs no I/O and cannot be unavailable.
package rules

import (
	"context"
	"strings"

	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/hybrid"
)

const Model = "rule-based-v1"

// QualificationOptions are offered in the greeting and double as follow-ups.
var QualificationOptions = []string{
	"Small business (1-10 stores)",
	"Medium business (11-50 stores)",
	"Enterprise (50+ stores)",
	"Just browsing",
}

type cannedResponse struct {
	text       string
	confidence float64
}

var responses = map[string]cannedResponse{
	hybrid.IntentDemoRequest: {
		confidence: 0.9,
		text: `I'd be happy to set up a personalized demo for you.

In about 30 minutes we'll walk through how our platform forecasts demand, optimizes pricing and surfaces customer insights using data that looks like yours.

Pick a time that works for you and tell us a little about your stores, and a retail specialist will tailor the session to your goals.`,
	},
	hybrid.IntentPricing: {
		confidence: 0.85,
		text: `Our pricing scales with the size of your business.

- Starter: for single stores and small chains getting started with AI insights
- Growth: for multi-store retailers that need forecasting and pricing optimization
- Enterprise: custom deployments with dedicated support and integrations

Every plan starts with a free trial. Tell me roughly how many stores you run and I can point you to the right option or prepare a custom quote.`,
	},
	hybrid.IntentSales: {
		confidence: 0.85,
		text: `Growing sales is exactly what our platform is built for.

We analyze your transaction history to find your best-selling products, the right price points and the moments customers are most likely to buy. Retailers using our recommendations typically see higher conversion and larger baskets within the first quarter.

What is your biggest sales challenge right now: traffic, conversion or average order value?`,
	},
	hybrid.IntentInventory: {
		confidence: 0.85,
		text: `Inventory is where AI pays off fastest.

Our demand forecasting predicts what each store will sell, so you can cut stockouts on popular items and avoid tying up cash in excess inventory. Automated replenishment suggestions replace manual spreadsheets.

How do you manage stock levels today?`,
	},
	hybrid.IntentCustomerAnalytics: {
		confidence: 0.85,
		text: `Understanding your customers is the foundation of everything we do.

The platform segments shoppers by behavior, predicts who is likely to return or churn, and shows which promotions actually move each segment. You get clear customer insights without needing a data team.

What would you most like to know about your customers?`,
	},
	hybrid.IntentGreeting: {
		confidence: 0.9,
		text: `Hello and welcome! I'm here to help you discover how AI can grow your retail business.

To point you in the right direction, which best describes your business?

- Small business (1-10 stores)
- Medium business (11-50 stores)
- Enterprise (50+ stores)
- Just browsing`,
	},
	hybrid.IntentGeneral: {
		confidence: 0.7,
		text: `Thanks for your question. Our retail AI platform helps stores increase sales, optimize inventory and understand their customers.

I can tell you more about any of those areas, walk you through pricing, or set up a personalized demo. What would be most helpful?`,
	},
}

// Responder answers from canned text chosen by the ordered intent classifier.
type Responder struct {
	logger logger.Logger
}

func New(log logger.Logger) *Responder {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Responder{logger: log.With(map[string]interface{}{"provider": hybrid.BusinessLogicProvider})}
}

func (r *Responder) Name() string {
	return hybrid.BusinessLogicProvider
}

func (r *Responder) IsAvailable(ctx context.Context) bool {
	return true
}

func (r *Responder) ValidateConfig() bool {
	return true
}

func (r *Responder) GetModelInfo() hybrid.ModelInfo {
	return hybrid.ModelInfo{
		Name:              Model,
		MaxTokens:         0,
		SupportedFeatures: []string{"intent_classification", "canned_responses", "lead_qualification"},
	}
}

// GenerateResponse is deterministic: the same latest user message always
// yields the same text, intent and confidence.
func (r *Responder) GenerateResponse(ctx context.Context, req *hybrid.GenerationRequest) (*hybrid.GenerationResult, error) {
	message := strings.ToLower(req.LatestUserMessage())
	intent := hybrid.ClassifyIntent(message)
	canned := responses[intent]

	result := &hybrid.GenerationResult{
		Response:   canned.text,
		Confidence: canned.confidence,
		Provider:   hybrid.BusinessLogicProvider,
		Model:      Model,
		Metadata: hybrid.ResultMetadata{
			Intent:          intent,
			Sentiment:       hybrid.ClassifySentiment(message),
			BusinessContext: hybrid.ClassifyBusinessContext(message),
		},
	}
	if intent == hybrid.IntentGreeting {
		result.Metadata.FollowUpSuggestions = append([]string(nil), QualificationOptions...)
	}

	r.logger.Debug("rule-based response selected", map[string]interface{}{
		"intent":     intent,
		"confidence": canned.confidence,
	})
	return result, nil
}
