package hybrid

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "retail-chat-workers/internal/common/errors"
	"retail-chat-workers/internal/common/logger"
)

// HealthCheckTimeout bounds the live probe behind IsAvailable.
const HealthCheckTimeout = 5 * time.Second

// ProviderAdapter wraps one text-generation backend.
type ProviderAdapter interface {
	Name() string
	// IsAvailable is false when the adapter is disabled or misconfigured;
	// otherwise it issues a small live generation bounded by HealthCheckTimeout.
	IsAvailable(ctx context.Context) bool
	GenerateResponse(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)
	ValidateConfig() bool
	GetModelInfo() ModelInfo
}

// AdapterConfig is the static configuration shared by the vendor adapters.
type AdapterConfig struct {
	Name        string
	Enabled     bool
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

const systemInstruction = `You are the assistant on the website of a retail AI platform that helps retailers grow sales, optimize inventory and understand their customers through AI-driven analytics.
Be friendly, concise and consultative. Ask one qualifying question at a time and steer interested visitors towards a demo.
Formatting rule: reply in plain text only. Do not use markdown emphasis markers such as asterisks, underscores or backticks, and never output HTML. Use short paragraphs and simple hyphen lists when listing options.`

// BaseAdapter holds the behaviour every vendor adapter shares.
type BaseAdapter struct {
	cfg      AdapterConfig
	features []string
	logger   logger.Logger
}

func NewBaseAdapter(cfg AdapterConfig, features []string, log logger.Logger) BaseAdapter {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return BaseAdapter{
		cfg:      cfg,
		features: features,
		logger:   log.With(map[string]interface{}{"provider": cfg.Name, "model": cfg.Model}),
	}
}

func (b *BaseAdapter) Name() string { return b.cfg.Name }
func (b *BaseAdapter) Config() AdapterConfig { return b.cfg }
func (b *BaseAdapter) Logger() logger.Logger { return b.logger }
func (b *BaseAdapter) Enabled() bool { return b.cfg.Enabled }

// ValidateBase checks the vendor-independent part of the configuration.
func (b *BaseAdapter) ValidateBase() error {
	switch {
	case strings.TrimSpace(b.cfg.Name) == "":
		return fmt.Errorf("name is required")
	case strings.TrimSpace(b.cfg.Model) == "" || strings.ContainsAny(b.cfg.Model, " \t\n"):
		return fmt.Errorf("model id %q is malformed", b.cfg.Model)
	case b.cfg.MaxTokens <= 0:
		return fmt.Errorf("max tokens must be positive")
	case b.cfg.Temperature < 0 || b.cfg.Temperature > 2:
		return fmt.Errorf("temperature %.2f out of range", b.cfg.Temperature)
	}
	return nil
}

// ValidateAPIKey checks a vendor key prefix and minimum length.
func (b *BaseAdapter) ValidateAPIKey(prefix string, minLen int) error {
	key := strings.TrimSpace(b.cfg.APIKey)
	if key == "" {
		return fmt.Errorf("api key is missing")
	}
	if !strings.HasPrefix(key, prefix) {
		return fmt.Errorf("api key must start with %q", prefix)
	}
	if len(key) < minLen {
		return fmt.Errorf("api key shorter than %d characters", minLen)
	}
	return nil
}

func (b *BaseAdapter) GetModelInfo() ModelInfo {
	return ModelInfo{
		Name:              b.cfg.Model,
		MaxTokens:         b.cfg.MaxTokens,
		SupportedFeatures: append([]string(nil), b.features...),
	}
}

// SystemPrompt returns the fixed instruction with any business hints appended.
func (b *BaseAdapter) SystemPrompt(bc *BusinessContext) string {
	if bc.empty() {
		return systemInstruction
	}
	var hints []string
	if bc.BusinessType != "" {
		hints = append(hints, "business type: "+bc.BusinessType)
	}
	if bc.BusinessSize != "" {
		hints = append(hints, "business size: "+bc.BusinessSize)
	}
	if len(bc.PainPoints) > 0 {
		hints = append(hints, "pain points: "+strings.Join(bc.PainPoints, ", "))
	}
	if bc.CurrentStage != "" {
		hints = append(hints, "qualification stage: "+bc.CurrentStage)
	}
	if len(bc.Interests) > 0 {
		hints = append(hints, "interests: "+strings.Join(bc.Interests, ", "))
	}
	return systemInstruction + "\n\nWhat we know about this visitor: " + strings.Join(hints, "; ") + "."
}

// BuildMessages returns the system instruction followed by the conversation.
// System turns supplied by the caller are folded into the instruction.
func (b *BaseAdapter) BuildMessages(req *GenerationRequest) []ConversationMessage {
	system := b.SystemPrompt(req.BusinessContext)
	out := make([]ConversationMessage, 0, len(req.Messages)+1)
	out = append(out, ConversationMessage{Role: RoleSystem})
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system += "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	out[0].Content = system
	return out
}

func (b *BaseAdapter) MaxTokensFor(req *GenerationRequest) int {
	if req != nil && req.Options.MaxTokens > 0 {
		return req.Options.MaxTokens
	}
	return b.cfg.MaxTokens
}

func (b *BaseAdapter) TemperatureFor(req *GenerationRequest) float64 {
	if req != nil && req.Options.Temperature != nil {
		return *req.Options.Temperature
	}
	return b.cfg.Temperature
}

// CalculateConfidence scores a response from its length and business vocabulary.
func (b *BaseAdapter) CalculateConfidence(text string) float64 {
	return calculateConfidence(text)
}

func calculateConfidence(text string) float64 {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	confidence := 0.8
	switch {
	case n < 50:
		confidence -= 0.2
	case n > 200:
		confidence += 0.1
		confidence += math.Min(0.02*float64(countBusinessKeywords(text)), 0.1)
	}
	return math.Round(math.Max(0.1, math.Min(1.0, confidence))*1000) / 1000
}

// AnalyzeResponse annotates returned text with intent, sentiment and business context.
func (b *BaseAdapter) AnalyzeResponse(text string) ResultMetadata {
	return ResultMetadata{
		Intent:          ClassifyIntent(text),
		Sentiment:       ClassifySentiment(text),
		BusinessContext: ClassifyBusinessContext(text),
	}
}

// CheckAvailability runs probe under HealthCheckTimeout and reports whether it succeeded.
func (b *BaseAdapter) CheckAvailability(ctx context.Context, probe func(context.Context) error) bool {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- probe(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			b.logger.Warn("availability probe failed", map[string]interface{}{"error": err})
			return false
		}
		return true
	case <-ctx.Done():
		b.logger.Warn("availability probe timed out", map[string]interface{}{"timeoutMs": HealthCheckTimeout.Milliseconds()})
		return false
	}
}

// BuildResult turns vendor text and usage into a scored GenerationResult.
func (b *BaseAdapter) BuildResult(text string, usage *TokenUsage) (*GenerationResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewProviderEmptyResponseError(b.cfg.Name)
	}
	return &GenerationResult{
		Response:   text,
		Confidence: b.CalculateConfidence(text),
		Provider:   b.cfg.Name,
		Model:      b.cfg.Model,
		Usage:      usage,
		Metadata:   b.AnalyzeResponse(text),
	}, nil
}

// ProbeRequest is the trivial generation used by availability checks.
func ProbeRequest() *GenerationRequest {
	return &GenerationRequest{
		Messages: []ConversationMessage{{Role: RoleUser, Content: "ping"}},
		Options:  GenerationOptions{MaxTokens: 5},
	}
}
