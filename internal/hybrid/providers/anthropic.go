package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	apperrors "retail-chat-workers/internal/common/errors"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/hybrid"
)

// AnthropicAdapter generates replies through the Messages API.
type AnthropicAdapter struct {
	hybrid.BaseAdapter
	client anthropic.Client
}

func NewAnthropic(cfg hybrid.AdapterConfig, log logger.Logger) *AnthropicAdapter {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicAdapter{
		BaseAdapter: hybrid.NewBaseAdapter(cfg, []string{"messages", "system_prompt", "token_usage"}, log),
		client:      anthropic.NewClient(opts...),
	}
}

func (a *AnthropicAdapter) ValidateConfig() bool {
	return a.validate() == nil
}

func (a *AnthropicAdapter) validate() error {
	if !a.Enabled() {
		return errors.New("adapter disabled")
	}
	if err := a.ValidateBase(); err != nil {
		return err
	}
	return a.ValidateAPIKey("sk-ant-", 20)
}

func (a *AnthropicAdapter) IsAvailable(ctx context.Context) bool {
	if !a.ValidateConfig() {
		return false
	}
	return a.CheckAvailability(ctx, func(ctx context.Context) error {
		_, _, err := a.complete(ctx, hybrid.ProbeRequest())
		return err
	})
}

func (a *AnthropicAdapter) GenerateResponse(ctx context.Context, req *hybrid.GenerationRequest) (*hybrid.GenerationResult, error) {
	if err := a.validate(); err != nil {
		return nil, apperrors.NewProviderConfigError(a.Name(), err.Error())
	}
	text, usage, err := a.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return a.BuildResult(text, usage)
}

func (a *AnthropicAdapter) complete(ctx context.Context, req *hybrid.GenerationRequest) (string, *hybrid.TokenUsage, error) {
	all := a.BuildMessages(req)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.Config().Model),
		MaxTokens:   int64(a.MaxTokensFor(req)),
		System:      []anthropic.TextBlockParam{{Text: all[0].Content}},
		Temperature: anthropic.Float(a.TemperatureFor(req)),
	}
	for _, m := range all[1:] {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == hybrid.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", nil, transportError(a.Name(), err, anthropicStatus)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	usage := &hybrid.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}
	return text.String(), usage, nil
}

func anthropicStatus(err error) (int, string, bool) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.Error(), true
	}
	return 0, "", false
}
