package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-resty/resty/v2"

	apperrors "retail-chat-workers/internal/common/errors"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/hybrid"
)

const DefaultGoogleBaseURL = "https://generativelanguage.googleapis.com"

// GoogleAdapter calls the Gemini generateContent REST endpoint.
type GoogleAdapter struct {
	hybrid.BaseAdapter
	http *resty.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		MaxOutputTokens int     `json:"maxOutputTokens"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func NewGoogle(cfg hybrid.AdapterConfig, log logger.Logger) *GoogleAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGoogleBaseURL
	}
	return &GoogleAdapter{
		BaseAdapter: hybrid.NewBaseAdapter(cfg, []string{"generate_content", "system_instruction", "token_usage"}, log),
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetHeader("Content-Type", "application/json"),
	}
}

func (a *GoogleAdapter) ValidateConfig() bool {
	return a.validate() == nil
}

func (a *GoogleAdapter) validate() error {
	if !a.Enabled() {
		return errors.New("adapter disabled")
	}
	if err := a.ValidateBase(); err != nil {
		return err
	}
	return a.ValidateAPIKey("AIza", 20)
}

func (a *GoogleAdapter) IsAvailable(ctx context.Context) bool {
	if !a.ValidateConfig() {
		return false
	}
	return a.CheckAvailability(ctx, func(ctx context.Context) error {
		_, _, err := a.complete(ctx, hybrid.ProbeRequest())
		return err
	})
}

func (a *GoogleAdapter) GenerateResponse(ctx context.Context, req *hybrid.GenerationRequest) (*hybrid.GenerationResult, error) {
	if err := a.validate(); err != nil {
		return nil, apperrors.NewProviderConfigError(a.Name(), err.Error())
	}
	text, usage, err := a.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return a.BuildResult(text, usage)
}

func (a *GoogleAdapter) complete(ctx context.Context, req *hybrid.GenerationRequest) (string, *hybrid.TokenUsage, error) {
	all := a.BuildMessages(req)
	body := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: all[0].Content}}},
	}
	body.GenerationConfig.MaxOutputTokens = a.MaxTokensFor(req)
	body.GenerationConfig.Temperature = a.TemperatureFor(req)
	for _, m := range all[1:] {
		role := "user"
		if m.Role == hybrid.RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	var out geminiResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParam("key", a.Config().APIKey).
		SetPathParam("model", a.Config().Model).
		SetBody(body).
		SetResult(&out).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return "", nil, transportError(a.Name(), err, nil)
	}
	if resp.IsError() {
		return "", nil, apperrors.FromHTTPStatus(a.Name(), resp.StatusCode(), resp.String())
	}
	if len(out.Candidates) == 0 {
		return "", nil, apperrors.NewProviderEmptyResponseError(a.Name())
	}

	var text strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	usage := &hybrid.TokenUsage{
		PromptTokens:     out.UsageMetadata.PromptTokenCount,
		CompletionTokens: out.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      out.UsageMetadata.TotalTokenCount,
	}
	return text.String(), usage, nil
}
