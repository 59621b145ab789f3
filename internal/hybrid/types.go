// Package hybrid answers chat turns by trying LLM providers in a fallback
// order and finishing with the deterministic rule-based responder.
package hybrid

import (
	"strings"
	"time"
)

// BusinessLogicProvider is the name the rule-based responder registers under.
const BusinessLogicProvider = "business-logic"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Intent labels shared by the rule responder, the response annotator and the chat layer.
const (
	IntentDemoRequest       = "demo_request"
	IntentPricing           = "pricing_inquiry"
	IntentSales             = "sales_inquiry"
	IntentInventory         = "inventory_inquiry"
	IntentCustomerAnalytics = "customer_analytics_inquiry"
	IntentGreeting          = "greeting"
	IntentGeneral           = "general_inquiry"
	IntentContactSharing    = "contact_sharing"
)

type ConversationMessage struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type UserInfo struct {
	BusinessType string   `json:"businessType,omitempty"`
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
	Company      string   `json:"company,omitempty"`
	Interests    []string `json:"interests,omitempty"`
}

type SessionContext struct {
	QualificationStage string   `json:"qualificationStage,omitempty"`
	BusinessSize       string   `json:"businessSize,omitempty"`
	PainPoints         []string `json:"painPoints,omitempty"`
	CurrentTopic       string   `json:"currentTopic,omitempty"`
	UserIntent         string   `json:"userIntent,omitempty"`
}

// ConversationContext is the caller-owned view of a chat session. The
// orchestrator reads it and never mutates it.
type ConversationContext struct {
	SessionID        string                `json:"sessionId,omitempty"`
	PreviousMessages []ConversationMessage `json:"previousMessages"`
	UserInfo         *UserInfo             `json:"userInfo,omitempty"`
	SessionContext   *SessionContext       `json:"sessionContext,omitempty"`
}

// BusinessContext carries optional hints that are appended to the system instruction.
type BusinessContext struct {
	BusinessType string   `json:"businessType,omitempty"`
	BusinessSize string   `json:"businessSize,omitempty"`
	PainPoints   []string `json:"painPoints,omitempty"`
	CurrentStage string   `json:"currentStage,omitempty"`
	Interests    []string `json:"interests,omitempty"`
}

func (b *BusinessContext) empty() bool {
	return b == nil || (b.BusinessType == "" && b.BusinessSize == "" && len(b.PainPoints) == 0 &&
		b.CurrentStage == "" && len(b.Interests) == 0)
}

// GenerationOptions override the adapter defaults when non-zero.
type GenerationOptions struct {
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type GenerationRequest struct {
	Messages        []ConversationMessage `json:"messages"`
	BusinessContext *BusinessContext      `json:"businessContext,omitempty"`
	Options         GenerationOptions     `json:"options"`
}

// LatestUserMessage returns the content of the last user turn, or "".
func (r *GenerationRequest) LatestUserMessage() string {
	if r == nil {
		return ""
	}
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type ResultMetadata struct {
	Intent              string   `json:"intent,omitempty"`
	Sentiment           string   `json:"sentiment,omitempty"`
	BusinessContext     string   `json:"businessContext,omitempty"`
	FollowUpSuggestions []string `json:"followUpSuggestions,omitempty"`
	BusinessLogicIntent string   `json:"businessLogicIntent,omitempty"`
	HybridConfidence    *float64 `json:"hybridConfidence,omitempty"`
}

type GenerationResult struct {
	Response   string         `json:"response"`
	Confidence float64        `json:"confidence"`
	Provider   string         `json:"provider"`
	Model      string         `json:"model"`
	Usage      *TokenUsage    `json:"usage,omitempty"`
	Metadata   ResultMetadata `json:"metadata"`
}

type ModelInfo struct {
	Name              string   `json:"name"`
	MaxTokens         int      `json:"maxTokens"`
	SupportedFeatures []string `json:"supportedFeatures"`
}

type ProviderStatus struct {
	Available bool     `json:"available"`
	Model     string   `json:"model"`
	Features  []string `json:"features"`
	Error     string   `json:"error,omitempty"`
}

type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

type HealthStatus struct {
	Status    HealthState               `json:"status"`
	Providers map[string]ProviderStatus `json:"providers"`
	LastCheck time.Time                 `json:"lastCheck"`
}

// NewRequest builds the provider request for one chat turn: bounded history
// followed by the current user message, with business hints taken from the
// conversation context.
func NewRequest(userMessage string, convCtx *ConversationContext, opts GenerationOptions) *GenerationRequest {
	req := &GenerationRequest{Options: opts}
	if convCtx != nil {
		for _, m := range convCtx.PreviousMessages {
			if strings.TrimSpace(m.Content) == "" {
				continue
			}
			req.Messages = append(req.Messages, m)
		}
		req.BusinessContext = businessContextFrom(convCtx)
	}
	req.Messages = append(req.Messages, ConversationMessage{Role: RoleUser, Content: userMessage})
	return req
}

func businessContextFrom(convCtx *ConversationContext) *BusinessContext {
	bc := &BusinessContext{}
	if u := convCtx.UserInfo; u != nil {
		bc.BusinessType = u.BusinessType
		bc.Interests = u.Interests
	}
	if s := convCtx.SessionContext; s != nil {
		bc.BusinessSize = s.BusinessSize
		bc.PainPoints = s.PainPoints
		bc.CurrentStage = s.QualificationStage
	}
	if bc.empty() {
		return nil
	}
	return bc
}
