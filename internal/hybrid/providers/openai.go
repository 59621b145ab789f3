package providers

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	apperrors "retail-chat-workers/internal/common/errors"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/hybrid"
)

// OpenAIAdapter generates replies through the Chat Completions API.
type OpenAIAdapter struct {
	hybrid.BaseAdapter
	client openai.Client
}

func NewOpenAI(cfg hybrid.AdapterConfig, log logger.Logger) *OpenAIAdapter {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIAdapter{
		BaseAdapter: hybrid.NewBaseAdapter(cfg, []string{"chat_completion", "system_prompt", "token_usage"}, log),
		client:      openai.NewClient(opts...),
	}
}

func (a *OpenAIAdapter) ValidateConfig() bool {
	return a.validate() == nil
}

func (a *OpenAIAdapter) validate() error {
	if !a.Enabled() {
		return errors.New("adapter disabled")
	}
	if err := a.ValidateBase(); err != nil {
		return err
	}
	return a.ValidateAPIKey("sk-", 20)
}

func (a *OpenAIAdapter) IsAvailable(ctx context.Context) bool {
	if !a.ValidateConfig() {
		return false
	}
	return a.CheckAvailability(ctx, func(ctx context.Context) error {
		_, _, err := a.complete(ctx, hybrid.ProbeRequest())
		return err
	})
}

func (a *OpenAIAdapter) GenerateResponse(ctx context.Context, req *hybrid.GenerationRequest) (*hybrid.GenerationResult, error) {
	if err := a.validate(); err != nil {
		return nil, apperrors.NewProviderConfigError(a.Name(), err.Error())
	}
	text, usage, err := a.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return a.BuildResult(text, usage)
}

func (a *OpenAIAdapter) complete(ctx context.Context, req *hybrid.GenerationRequest) (string, *hybrid.TokenUsage, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, m := range a.BuildMessages(req) {
		switch m.Role {
		case hybrid.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case hybrid.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(a.Config().Model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(a.MaxTokensFor(req))),
		Temperature:         openai.Float(a.TemperatureFor(req)),
	})
	if err != nil {
		return "", nil, transportError(a.Name(), err, openAIStatus)
	}
	if len(resp.Choices) == 0 {
		return "", nil, apperrors.NewProviderEmptyResponseError(a.Name())
	}

	usage := &hybrid.TokenUsage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	return resp.Choices[0].Message.Content, usage, nil
}

func openAIStatus(err error) (int, string, bool) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.Error(), true
	}
	return 0, "", false
}
