package chat

import (
	"strings"

	"retail-chat-workers/internal/common/validation"
	"retail-chat-workers/internal/hybrid"
)

var DemoOptions = []string{
	"Schedule a demo this week",
	"Schedule a demo next week",
	"Watch a recorded demo first",
	"Talk to a retail specialist",
}

var PricingOptions = []string{
	"Starter plan",
	"Growth plan",
	"Enterprise plan",
	"Request a custom quote",
}

var intentStages = map[string]string{
	hybrid.IntentGreeting:          StageNeedsAssessment,
	hybrid.IntentSales:             StageSolutionMatching,
	hybrid.IntentInventory:         StageSolutionMatching,
	hybrid.IntentCustomerAnalytics: StageSolutionMatching,
	hybrid.IntentPricing:           StageLeadCapture,
	hybrid.IntentContactSharing:    StageLeadCapture,
	hybrid.IntentDemoRequest:       StageDemoScheduling,
}

type keywordTag struct {
	tag      string
	keywords []string
}

// Checked in order; the first match wins.
var businessSizes = []keywordTag{
	{"small", []string{"small", "startup", "start-up"}},
	{"medium", []string{"medium", "mid-size", "midsize", "mid-sized"}},
	{"enterprise", []string{"enterprise", "large"}},
}

var painPoints = []keywordTag{
	{PainDecliningSales, []string{"declining sales", "sales are down", "sales dropping", "sales have dropped", "losing sales", "revenue is down"}},
	{PainStockouts, []string{"stockout", "stock-out", "out of stock", "running out", "run out of"}},
	{PainExcessInventory, []string{"excess inventory", "overstock", "too much inventory", "too much stock", "dead stock", "surplus"}},
	{PainManualProcesses, []string{"manual", "spreadsheet", "by hand", "time-consuming", "time consuming"}},
	{PainCustomerInsightGaps, []string{"don't know my customers", "dont know my customers", "understand my customers", "customer insight", "customer behavior", "who my customers"}},
}

// Convert maps an orchestrator result onto the UI reply shape and the
// session fields the caller should persist. It has no side effects.
func Convert(result *hybrid.GenerationResult, userMessage string, convCtx *hybrid.ConversationContext) (*ChatResponse, *ContextUpdate) {
	intent := EffectiveIntent(result, userMessage)

	resp := &ChatResponse{
		Content:  result.Response,
		Metadata: metadataFrom(result),
	}
	switch {
	case len(result.Metadata.FollowUpSuggestions) > 0:
		resp.Type = TypeOptions
		resp.Options = append([]string(nil), result.Metadata.FollowUpSuggestions...)
	case intent == hybrid.IntentDemoRequest:
		resp.Type = TypeOptions
		resp.Options = append([]string(nil), DemoOptions...)
	case intent == hybrid.IntentPricing:
		resp.Type = TypeOptions
		resp.Options = append([]string(nil), PricingOptions...)
	case intent == hybrid.IntentContactSharing || mentionsContact(result.Response):
		resp.Type = TypeForm
	default:
		resp.Type = TypeText
	}

	return resp, contextUpdate(result, intent, userMessage, convCtx)
}

// EffectiveIntent prefers the rule-based intent from enrichment over the
// provider's own. A user message carrying an e-mail address is contact sharing.
func EffectiveIntent(result *hybrid.GenerationResult, userMessage string) string {
	if ContainsEmail(userMessage) {
		return hybrid.IntentContactSharing
	}
	if result.Metadata.BusinessLogicIntent != "" {
		return result.Metadata.BusinessLogicIntent
	}
	return result.Metadata.Intent
}

// ContainsEmail reports whether any whitespace-separated token is an e-mail address.
func ContainsEmail(text string) bool {
	for _, token := range strings.Fields(text) {
		if validation.ValidateEmail(strings.Trim(token, ".,;:!?()<>\"'")) {
			return true
		}
	}
	return false
}

func mentionsContact(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "contact") || strings.Contains(lower, "email")
}

func metadataFrom(result *hybrid.GenerationResult) *ResponseMetadata {
	return &ResponseMetadata{
		Provider:            result.Provider,
		Model:               result.Model,
		Confidence:          result.Confidence,
		Intent:              result.Metadata.Intent,
		Sentiment:           result.Metadata.Sentiment,
		BusinessContext:     result.Metadata.BusinessContext,
		BusinessLogicIntent: result.Metadata.BusinessLogicIntent,
		HybridConfidence:    result.Metadata.HybridConfidence,
		Usage:               result.Usage,
		FallbackUsed:        result.Provider == hybrid.BusinessLogicProvider,
	}
}

func contextUpdate(result *hybrid.GenerationResult, intent, userMessage string, convCtx *hybrid.ConversationContext) *ContextUpdate {
	var session hybrid.SessionContext
	if convCtx != nil && convCtx.SessionContext != nil {
		session = *convCtx.SessionContext
	}

	update := &ContextUpdate{
		QualificationStage: session.QualificationStage,
		BusinessSize:       session.BusinessSize,
		CurrentTopic:       session.CurrentTopic,
		UserIntent:         intent,
	}
	if stage, ok := intentStages[intent]; ok {
		update.QualificationStage = stage
	}
	if update.QualificationStage == "" {
		update.QualificationStage = StageInitial
	}

	lower := strings.ToLower(userMessage)
	if size := DetectBusinessSize(lower); size != "" {
		update.BusinessSize = size
	}
	update.PainPoints = mergeTags(session.PainPoints, DetectPainPoints(lower))

	if topic := result.Metadata.BusinessContext; topic != "" {
		update.CurrentTopic = topic
	}
	if update.UserIntent == "" {
		update.UserIntent = session.UserIntent
	}
	return update
}

// DetectBusinessSize returns small, medium, enterprise or "".
func DetectBusinessSize(text string) string {
	lower := strings.ToLower(text)
	for _, size := range businessSizes {
		if containsAny(lower, size.keywords) {
			return size.tag
		}
	}
	return ""
}

// DetectPainPoints returns every pain point tag the text triggers.
func DetectPainPoints(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, pp := range painPoints {
		if containsAny(lower, pp.keywords) {
			tags = append(tags, pp.tag)
		}
	}
	return tags
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func mergeTags(existing, found []string) []string {
	seen := make(map[string]bool, len(existing)+len(found))
	var out []string
	for _, tag := range append(append([]string(nil), existing...), found...) {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
