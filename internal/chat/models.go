package chat

import "retail-chat-workers/internal/hybrid"

// ResponseType is the UI shape of a chat reply.
type ResponseType string

const (
	TypeText    ResponseType = "text"
	TypeOptions ResponseType = "options"
	TypeForm    ResponseType = "form"
)

// Qualification stages handed back to the caller.
const (
	StageInitial          = "initial"
	StageNeedsAssessment  = "needs_assessment"
	StageSolutionMatching = "solution_matching"
	StageLeadCapture      = "lead_capture"
	StageDemoScheduling   = "demo_scheduling"
)

// Pain point tags accumulated across a session.
const (
	PainDecliningSales      = "declining_sales"
	PainStockouts           = "stockouts"
	PainExcessInventory     = "excess_inventory"
	PainManualProcesses     = "manual_processes"
	PainCustomerInsightGaps = "customer_insight_gaps"
)

// ChatResponse is what a chat UI renders for one turn.
type ChatResponse struct {
	Content  string            `json:"content"`
	Type     ResponseType      `json:"type"`
	Options  []string          `json:"options,omitempty"`
	Metadata *ResponseMetadata `json:"metadata,omitempty"`
}

type ResponseMetadata struct {
	Provider            string             `json:"provider"`
	Model               string             `json:"model"`
	Confidence          float64            `json:"confidence"`
	Intent              string             `json:"intent,omitempty"`
	Sentiment           string             `json:"sentiment,omitempty"`
	BusinessContext     string             `json:"businessContext,omitempty"`
	BusinessLogicIntent string             `json:"businessLogicIntent,omitempty"`
	HybridConfidence    *float64           `json:"hybridConfidence,omitempty"`
	Usage               *hybrid.TokenUsage `json:"usage,omitempty"`
	FallbackUsed        bool               `json:"fallbackUsed"`
	LatencyMs           int64              `json:"latencyMs,omitempty"`
}

// ContextUpdate carries the session fields the caller should persist.
type ContextUpdate struct {
	QualificationStage string   `json:"qualificationStage"`
	BusinessSize       string   `json:"businessSize,omitempty"`
	PainPoints         []string `json:"painPoints,omitempty"`
	CurrentTopic       string   `json:"currentTopic,omitempty"`
	UserIntent         string   `json:"userIntent,omitempty"`
}
