package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	apperrors "retail-chat-workers/internal/common/errors"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/hybrid"
)

const DefaultOllamaBaseURL = "http://localhost:11434"

// OllamaAdapter talks to a self-hosted Ollama server. It needs no API key.
type OllamaAdapter struct {
	hybrid.BaseAdapter
	client *api.Client
	urlErr error
}

func NewOllama(cfg hybrid.AdapterConfig, log logger.Logger) *OllamaAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	a := &OllamaAdapter{
		BaseAdapter: hybrid.NewBaseAdapter(cfg, []string{"local_inference", "chat", "token_usage"}, log),
	}
	parsed, err := parseServerURL(cfg.BaseURL)
	if err != nil {
		a.urlErr = err
		return a
	}
	a.client = api.NewClient(parsed, http.DefaultClient)
	return a
}

func parseServerURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", raw)
	}
	return u, nil
}

func (a *OllamaAdapter) ValidateConfig() bool {
	return a.validate() == nil
}

func (a *OllamaAdapter) validate() error {
	if !a.Enabled() {
		return errors.New("adapter disabled")
	}
	if a.urlErr != nil {
		return a.urlErr
	}
	return a.ValidateBase()
}

func (a *OllamaAdapter) IsAvailable(ctx context.Context) bool {
	if !a.ValidateConfig() {
		return false
	}
	return a.CheckAvailability(ctx, func(ctx context.Context) error {
		_, _, err := a.complete(ctx, hybrid.ProbeRequest())
		return err
	})
}

func (a *OllamaAdapter) GenerateResponse(ctx context.Context, req *hybrid.GenerationRequest) (*hybrid.GenerationResult, error) {
	if err := a.validate(); err != nil {
		return nil, apperrors.NewProviderConfigError(a.Name(), err.Error())
	}
	text, usage, err := a.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return a.BuildResult(text, usage)
}

func (a *OllamaAdapter) complete(ctx context.Context, req *hybrid.GenerationRequest) (string, *hybrid.TokenUsage, error) {
	var messages []api.Message
	for _, m := range a.BuildMessages(req) {
		messages = append(messages, api.Message{Role: string(m.Role), Content: m.Content})
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    a.Config().Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"num_predict": a.MaxTokensFor(req),
			"temperature": a.TemperatureFor(req),
		},
	}

	var final api.ChatResponse
	var text string
	err := a.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		text += resp.Message.Content
		if resp.Done {
			final = resp
		}
		return nil
	})
	if err != nil {
		return "", nil, transportError(a.Name(), err, ollamaStatus)
	}

	usage := &hybrid.TokenUsage{
		PromptTokens:     final.PromptEvalCount,
		CompletionTokens: final.EvalCount,
		TotalTokens:      final.PromptEvalCount + final.EvalCount,
	}
	return text, usage, nil
}

func ollamaStatus(err error) (int, string, bool) {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		body := statusErr.ErrorMessage
		if body == "" {
			body = statusErr.Status
		}
		return statusErr.StatusCode, body, true
	}
	return 0, "", false
}
