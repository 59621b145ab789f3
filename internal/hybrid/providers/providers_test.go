package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-chat-workers/internal/common/config"
	apperrors "retail-chat-workers/internal/common/errors"
	"retail-chat-workers/internal/hybrid"
)

const longReply = "Our demand forecasting helps retailers cut stockouts and grow sales. " +
	"We analyze inventory, pricing and customer behavior across every store, " +
	"then recommend the replenishment and promotions most likely to lift revenue this quarter."

func adapterConfig(name, key, baseURL string) hybrid.AdapterConfig {
	return hybrid.AdapterConfig{
		Name:        name,
		Enabled:     true,
		APIKey:      key,
		Model:       "test-model",
		BaseURL:     baseURL,
		MaxTokens:   256,
		Temperature: 0.5,
	}
}

func chatRequest() *hybrid.GenerationRequest {
	return hybrid.NewRequest("How can you help my inventory?", &hybrid.ConversationContext{
		PreviousMessages: []hybrid.ConversationMessage{
			{Role: hybrid.RoleUser, Content: "hi"},
			{Role: hybrid.RoleAssistant, Content: "Hello! How can I help?"},
		},
	}, hybrid.GenerationOptions{})
}

func TestOpenAIAdapter_GenerateResponse(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test-0123456789abcdef", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":` + quote(longReply) + `}}],
			"usage":{"prompt_tokens":12,"completion_tokens":40,"total_tokens":52}}`))
	}))
	defer server.Close()

	adapter := NewOpenAI(adapterConfig(config.ProviderOpenAI, "sk-test-0123456789abcdef", server.URL+"/"), nil)
	require.True(t, adapter.ValidateConfig())

	result, err := adapter.GenerateResponse(context.Background(), chatRequest())
	require.NoError(t, err)
	assert.Equal(t, longReply, result.Response)
	assert.Equal(t, config.ProviderOpenAI, result.Provider)
	assert.Equal(t, "test-model", result.Model)
	assert.Equal(t, 52, result.Usage.TotalTokens)
	assert.Greater(t, result.Confidence, 0.8)

	messages := body["messages"].([]interface{})
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "assistant", messages[2].(map[string]interface{})["role"])
	assert.EqualValues(t, 256, body["max_completion_tokens"])
}

func TestOpenAIAdapter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode apperrors.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, apperrors.ErrCodeProviderAuthFailed},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests"}}`, apperrors.ErrCodeProviderQuotaExceeded},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, apperrors.ErrCodeProviderRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := NewOpenAI(adapterConfig(config.ProviderOpenAI, "sk-test-0123456789abcdef", server.URL+"/"), nil)
			_, err := adapter.GenerateResponse(context.Background(), chatRequest())
			require.Error(t, err)
			stdErr, ok := apperrors.As(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, config.ProviderOpenAI, stdErr.Provider)
		})
	}
}

func TestAnthropicAdapter_GenerateResponse(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.Equal(t, "sk-ant-test-0123456789", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"test-model",
			"content":[{"type":"text","text":"Happy to help with your stock levels."}],
			"stop_reason":"end_turn","usage":{"input_tokens":30,"output_tokens":9}}`))
	}))
	defer server.Close()

	adapter := NewAnthropic(adapterConfig(config.ProviderAnthropic, "sk-ant-test-0123456789", server.URL+"/"), nil)
	result, err := adapter.GenerateResponse(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, "Happy to help with your stock levels.", result.Response)
	assert.Equal(t, 39, result.Usage.TotalTokens)
	assert.InDelta(t, 0.6, result.Confidence, 0.001)

	system := body["system"].([]interface{})
	require.Len(t, system, 1)
	assert.Contains(t, system[0].(map[string]interface{})["text"], "retail AI platform")
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 3)
	assert.Equal(t, "user", messages[2].(map[string]interface{})["role"])
}

func TestGoogleAdapter_GenerateResponse(t *testing.T) {
	var body geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "AIzaTest0123456789abcdef", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello "},{"text":"there."}]}}],
			"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":2,"totalTokenCount":7}}`))
	}))
	defer server.Close()

	adapter := NewGoogle(adapterConfig(config.ProviderGoogle, "AIzaTest0123456789abcdef", server.URL), nil)
	result, err := adapter.GenerateResponse(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, "Hello there.", result.Response)
	assert.Equal(t, 7, result.Usage.TotalTokens)
	require.Len(t, body.Contents, 3)
	assert.Equal(t, "model", body.Contents[1].Role)
	assert.Equal(t, 256, body.GenerationConfig.MaxOutputTokens)
	require.NotNil(t, body.SystemInstruction)
}

func TestGoogleAdapter_EmptyAndQuota(t *testing.T) {
	t.Run("no candidates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}))
		defer server.Close()

		_, err := NewGoogle(adapterConfig(config.ProviderGoogle, "AIzaTest0123456789abcdef", server.URL), nil).
			GenerateResponse(context.Background(), chatRequest())
		stdErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeProviderEmptyResponse, stdErr.Code)
	})

	t.Run("resource exhausted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"status":"RESOURCE_EXHAUSTED"}}`))
		}))
		defer server.Close()

		_, err := NewGoogle(adapterConfig(config.ProviderGoogle, "AIzaTest0123456789abcdef", server.URL), nil).
			GenerateResponse(context.Background(), chatRequest())
		assert.Equal(t, apperrors.KindQuota, apperrors.KindOf(err))
	})
}

func TestOllamaAdapter_GenerateResponse(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		// The client reads newline-delimited JSON, so the body stays on one line.
		_, _ = w.Write([]byte(`{"model":"test-model","created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":"Local model reply."},"done":true,"prompt_eval_count":11,"eval_count":4}` + "\n"))
	}))
	defer server.Close()

	adapter := NewOllama(adapterConfig(config.ProviderOllama, "", server.URL), nil)
	require.True(t, adapter.ValidateConfig())

	result, err := adapter.GenerateResponse(context.Background(), chatRequest())
	require.NoError(t, err)
	assert.Equal(t, "Local model reply.", result.Response)
	assert.Equal(t, 15, result.Usage.TotalTokens)
	assert.Equal(t, false, body["stream"])
	assert.EqualValues(t, 256, body["options"].(map[string]interface{})["num_predict"])
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		adapter hybrid.ProviderAdapter
		want    bool
	}{
		{"openai ok", NewOpenAI(adapterConfig(config.ProviderOpenAI, "sk-0123456789abcdefghij", ""), nil), true},
		{"openai wrong prefix", NewOpenAI(adapterConfig(config.ProviderOpenAI, "pk-0123456789abcdefghij", ""), nil), false},
		{"openai short key", NewOpenAI(adapterConfig(config.ProviderOpenAI, "sk-short", ""), nil), false},
		{"anthropic needs sk-ant-", NewAnthropic(adapterConfig(config.ProviderAnthropic, "sk-0123456789abcdefghij", ""), nil), false},
		{"google missing key", NewGoogle(adapterConfig(config.ProviderGoogle, "", ""), nil), false},
		{"ollama bad url", NewOllama(adapterConfig(config.ProviderOllama, "", "localhost:11434"), nil), false},
		{"ollama default url", NewOllama(adapterConfig(config.ProviderOllama, "", ""), nil), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.adapter.ValidateConfig())
		})
	}
}

func TestDisabledAdapter(t *testing.T) {
	cfg := adapterConfig(config.ProviderOpenAI, "sk-0123456789abcdefghij", "http://127.0.0.1:1/")
	cfg.Enabled = false
	adapter := NewOpenAI(cfg, nil)

	assert.False(t, adapter.ValidateConfig())
	assert.False(t, adapter.IsAvailable(context.Background()))

	_, err := adapter.GenerateResponse(context.Background(), chatRequest())
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
}

func TestIsAvailable_Probe(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"pong"}]}}]}`))
	}))
	defer server.Close()

	adapter := NewGoogle(adapterConfig(config.ProviderGoogle, "AIzaTest0123456789abcdef", server.URL), nil)
	assert.True(t, adapter.IsAvailable(context.Background()))
	assert.Equal(t, int32(1), calls.Load())

	server.Close()
	assert.False(t, adapter.IsAvailable(context.Background()))
}

func TestBuild(t *testing.T) {
	ai := config.AIConfig{
		OpenAI: config.ProviderConfig{Enabled: true, APIKey: "sk-0123456789abcdefghij", Model: "gpt-4o-mini", MaxTokens: 100, Temperature: 0.7},
		Ollama: config.ProviderConfig{Enabled: false, Model: "llama3.1", MaxTokens: 100},
	}

	adapters := Build(ai, nil)
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Name()
	}
	assert.Equal(t, []string{"openai", "anthropic", "google", "ollama", "business-logic"}, names)
	assert.True(t, adapters[0].ValidateConfig())
	assert.False(t, adapters[3].ValidateConfig())
	assert.True(t, adapters[4].ValidateConfig())

	_, err := NewAdapter("cohere", config.ProviderConfig{}, nil)
	assert.Error(t, err)
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
