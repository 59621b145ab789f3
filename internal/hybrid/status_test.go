package hybrid_test

import (
	"context"
	"testing"
	"time"

	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/hybrid"
	"retail-chat-workers/internal/hybrid/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProviderStatus(t *testing.T) {
	up := newFake("openai", 0.9)
	down := newFake("anthropic", 0.9)
	down.available = false
	misconfigured := newFake("google", 0.9)
	misconfigured.valid = false
	broken := newFake("ollama", 0.9)
	broken.panicMsg = "status exploded"

	o := newOrchestrator(t, baseConfig(), up, down, misconfigured, &panickyStatus{broken}, rules.New(nil))

	statuses := o.GetProviderStatus(context.Background())
	require.Len(t, statuses, 5)

	assert.True(t, statuses["openai"].Available)
	assert.Equal(t, "openai-model", statuses["openai"].Model)
	assert.Equal(t, []string{"chat"}, statuses["openai"].Features)

	assert.False(t, statuses["anthropic"].Available)
	assert.Equal(t, "health check failed", statuses["anthropic"].Error)

	assert.False(t, statuses["google"].Available)
	assert.NotEmpty(t, statuses["google"].Error)
	assert.Equal(t, int32(0), misconfigured.availableCalls.Load())

	assert.False(t, statuses["ollama"].Available)
	assert.Contains(t, statuses["ollama"].Error, "panicked")

	assert.True(t, statuses[hybrid.BusinessLogicProvider].Available)
	assert.Equal(t, rules.Model, statuses[hybrid.BusinessLogicProvider].Model)
}

// panickyStatus panics from IsAvailable to exercise per-adapter isolation.
type panickyStatus struct{ *fakeAdapter }

func (p *panickyStatus) IsAvailable(ctx context.Context) bool { panic(p.panicMsg) }

func TestGetHealthStatus(t *testing.T) {
	tests := []struct {
		name      string
		adapters  func() []hybrid.ProviderAdapter
		wantState hybrid.HealthState
	}{
		{
			name: "healthy with a live LLM",
			adapters: func() []hybrid.ProviderAdapter {
				return []hybrid.ProviderAdapter{newFake("openai", 0.9), rules.New(nil)}
			},
			wantState: hybrid.HealthHealthy,
		},
		{
			name: "degraded when only rules answer",
			adapters: func() []hybrid.ProviderAdapter {
				down := newFake("openai", 0.9)
				down.available = false
				return []hybrid.ProviderAdapter{down, rules.New(nil)}
			},
			wantState: hybrid.HealthDegraded,
		},
		{
			name: "unhealthy when nothing is available",
			adapters: func() []hybrid.ProviderAdapter {
				down := newFake("openai", 0.9)
				down.available = false
				return []hybrid.ProviderAdapter{down}
			},
			wantState: hybrid.HealthUnhealthy,
		},
		{
			name: "healthy without rules",
			adapters: func() []hybrid.ProviderAdapter {
				return []hybrid.ProviderAdapter{newFake("openai", 0.9)}
			},
			wantState: hybrid.HealthHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrchestrator(t, baseConfig(), tt.adapters()...)
			before := time.Now().UTC()

			status := o.GetHealthStatus(context.Background())
			assert.Equal(t, tt.wantState, status.Status)
			assert.NotEmpty(t, status.Providers)
			assert.False(t, status.LastCheck.Before(before.Add(-time.Second)))
		})
	}
}

func TestCachedHealthStatus(t *testing.T) {
	cache := newMemoryCache()
	openai := newFake("openai", 0.9)

	o, err := hybrid.NewOrchestrator(baseConfig(), []hybrid.ProviderAdapter{openai, rules.New(nil)},
		logger.NewTestLogger(t),
		hybrid.WithAvailabilityCache(cache, time.Minute),
		hybrid.WithHealthCache(cache, time.Minute))
	require.NoError(t, err)

	first := o.CachedHealthStatus(context.Background())
	second := o.CachedHealthStatus(context.Background())

	assert.Equal(t, hybrid.HealthHealthy, first.Status)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), openai.availableCalls.Load())
	assert.True(t, cache.values["openai"], "status checks refresh the availability cache")
}
