// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-chat-workers/internal/chat"
	"retail-chat-workers/internal/common/config"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/hybrid"
	"retail-chat-workers/internal/hybrid/providers"
	"retail-chat-workers/pkg/registry"

	checkproviderhealth "retail-chat-workers/internal/workers/chat/check-provider-health"
	generatechatresponse "retail-chat-workers/internal/workers/chat/generate-chat-response"
)

// stack is the worker-manager wiring with vendor APIs, Redis and Postgres
// replaced by local fakes.
type stack struct {
	redis        *miniredis.Miniredis
	sql          sqlmock.Sqlmock
	orchestrator *hybrid.Orchestrator
	generate     *generatechatresponse.Handler
	health       *checkproviderhealth.Handler
	openaiCalls  *atomic.Int32
}

func newStack(t *testing.T, openaiStatus, anthropicStatus int) *stack {
	t.Helper()
	log := logger.NewTestLogger(t)

	var openaiCalls atomic.Int32
	openai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		openaiCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(openaiStatus)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
	}))
	t.Cleanup(openai.Close)

	anthropic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if anthropicStatus != http.StatusOK {
			w.WriteHeader(anthropicStatus)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"Our demand forecasting cuts stockouts for retail stores. Would you like a demo of the inventory dashboard?"}],
			"stop_reason":"end_turn","usage":{"input_tokens":40,"output_tokens":22}}`))
	}))
	t.Cleanup(anthropic.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ai := config.AIConfig{
		PrimaryProvider:      config.ProviderOpenAI,
		FallbackProviders:    []string{config.ProviderOpenAI, config.ProviderAnthropic, config.ProviderBusinessLogic},
		UseBusinessLogic:     true,
		ConfidenceThreshold:  0.5,
		ResponseTimeout:      5000,
		AvailabilityCacheTTL: 60000,
		OpenAI: config.ProviderConfig{
			Enabled: true, APIKey: "sk-e2e-0123456789abcdef", Model: "gpt-test",
			BaseURL: openai.URL + "/", MaxTokens: 200, Temperature: 0.7,
		},
		Anthropic: config.ProviderConfig{
			Enabled: true, APIKey: "sk-ant-e2e-0123456789", Model: "claude-test",
			BaseURL: anthropic.URL + "/", MaxTokens: 200, Temperature: 0.7,
		},
	}

	cache := hybrid.NewStatusCache(rdb)
	orch, err := hybrid.NewOrchestrator(hybrid.ConfigFromAI(ai), providers.Build(ai, log), log,
		hybrid.WithAvailabilityCache(cache, time.Minute),
		hybrid.WithHealthCache(cache, time.Minute),
	)
	require.NoError(t, err)

	svc, err := chat.NewService(chat.ServiceOptions{
		Generator: orch,
		Recorder:  chat.NewPostgresUsageRecorder(db),
		Config:    config.ChatConfig{MaxHistoryMessages: 10, RecordUsage: true},
		Logger:    log,
	})
	require.NoError(t, err)

	reg, err := registry.Default()
	require.NoError(t, err)

	appCfg := &config.Config{AI: ai}
	generate, err := generatechatresponse.NewHandler(generatechatresponse.HandlerOptions{
		AppConfig: appCfg, Chat: svc, Registry: reg, Logger: log,
	})
	require.NoError(t, err)
	health, err := checkproviderhealth.NewHandler(checkproviderhealth.HandlerOptions{
		AppConfig: appCfg, Reporter: orch, Registry: reg, Logger: log,
	})
	require.NoError(t, err)

	return &stack{
		redis:        mr,
		sql:          sqlMock,
		orchestrator: orch,
		generate:     generate,
		health:       health,
		openaiCalls:  &openaiCalls,
	}
}

func TestChatTurn_FallsBackToSecondVendor(t *testing.T) {
	s := newStack(t, http.StatusInternalServerError, http.StatusOK)
	s.sql.ExpectExec("INSERT INTO chat_turn_usage").WillReturnResult(sqlmock.NewResult(1, 1))

	out, err := s.generate.Execute(context.Background(), &generatechatresponse.Input{
		SessionID:   "sess-e2e",
		UserMessage: "We keep running out of stock in our stores. Can your platform help?",
		ConversationContext: &hybrid.ConversationContext{
			PreviousMessages: []hybrid.ConversationMessage{
				{Role: hybrid.RoleAssistant, Content: "Hi! What brings you here today?"},
			},
		},
	})
	require.NoError(t, err)

	assert.False(t, out.Fallback)
	assert.Equal(t, config.ProviderAnthropic, out.Response.Metadata.Provider)
	assert.False(t, out.Response.Metadata.FallbackUsed)
	assert.Contains(t, out.Response.Content, "demand forecasting")
	assert.Contains(t, out.ContextUpdate.PainPoints, chat.PainStockouts)
	assert.NoError(t, s.sql.ExpectationsWereMet())

	assert.False(t, s.redis.Exists("chat:provider:available:openai"))
	assert.True(t, s.redis.Exists("chat:provider:available:anthropic"))
}

func TestChatTurn_FailedVendorIsProbedAgain(t *testing.T) {
	s := newStack(t, http.StatusInternalServerError, http.StatusOK)
	s.sql.MatchExpectationsInOrder(false)
	for i := 0; i < 2; i++ {
		s.sql.ExpectExec("INSERT INTO chat_turn_usage").WillReturnResult(sqlmock.NewResult(1, 1))
	}

	input := &generatechatresponse.Input{SessionID: "sess-cache", UserMessage: "How much does the Growth plan cost?"}
	_, err := s.generate.Execute(context.Background(), input)
	require.NoError(t, err)
	callsAfterFirst := s.openaiCalls.Load()

	_, err = s.generate.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Greater(t, s.openaiCalls.Load(), callsAfterFirst, "an unavailable vendor is not cached")
	assert.False(t, s.redis.Exists("chat:provider:available:openai"))
}

func TestChatTurn_RulesAnswerWhenAllVendorsDown(t *testing.T) {
	s := newStack(t, http.StatusUnauthorized, http.StatusUnauthorized)
	s.sql.ExpectExec("INSERT INTO chat_turn_usage").WillReturnResult(sqlmock.NewResult(1, 1))

	out, err := s.generate.Execute(context.Background(), &generatechatresponse.Input{
		SessionID:   "sess-rules",
		UserMessage: "I'd like to schedule a demo",
	})
	require.NoError(t, err)

	assert.Equal(t, hybrid.BusinessLogicProvider, out.Response.Metadata.Provider)
	assert.True(t, out.Response.Metadata.FallbackUsed)
	assert.Equal(t, chat.TypeOptions, out.Response.Type)
	assert.Equal(t, chat.StageDemoScheduling, out.ContextUpdate.QualificationStage)
}

func TestProviderHealth_ReportsFailingVendor(t *testing.T) {
	s := newStack(t, http.StatusInternalServerError, http.StatusOK)

	out, err := s.health.Execute(context.Background(), &checkproviderhealth.Input{Refresh: true})
	require.NoError(t, err)

	assert.Equal(t, hybrid.HealthHealthy, out.Status)
	assert.False(t, out.Providers[config.ProviderOpenAI].Available)
	assert.Contains(t, out.AvailableProviders, config.ProviderAnthropic)
	assert.NotContains(t, out.AvailableProviders, config.ProviderOpenAI)
	assert.True(t, s.redis.Exists("chat:health:status"))
	assert.False(t, s.redis.Exists("chat:provider:available:openai"))

	cached := s.orchestrator.CachedHealthStatus(context.Background())
	assert.Equal(t, out.Status, cached.Status)
}
