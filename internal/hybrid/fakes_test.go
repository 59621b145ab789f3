package hybrid_test

import (
	"context"
	"sync/atomic"
	"time"

	"retail-chat-workers/internal/hybrid"
)

type fakeAdapter struct {
	name       string
	available  bool
	valid      bool
	confidence float64
	text       string
	followUps  []string
	delay      time.Duration
	panicMsg   string

	// errs are returned by successive calls before falling back to success.
	errs []error

	calls          atomic.Int32
	availableCalls atomic.Int32
	cancelled      chan struct{}
}

func newFake(name string, confidence float64) *fakeAdapter {
	return &fakeAdapter{
		name:       name,
		available:  true,
		valid:      true,
		confidence: confidence,
		text:       "Our platform forecasts demand for every store and flags the products most likely to sell out.",
		cancelled:  make(chan struct{}, 1),
	}
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) IsAvailable(ctx context.Context) bool {
	f.availableCalls.Add(1)
	return f.available && f.valid
}

func (f *fakeAdapter) ValidateConfig() bool { return f.valid }

func (f *fakeAdapter) GetModelInfo() hybrid.ModelInfo {
	return hybrid.ModelInfo{Name: f.name + "-model", MaxTokens: 1000, SupportedFeatures: []string{"chat"}}
}

func (f *fakeAdapter) GenerateResponse(ctx context.Context, req *hybrid.GenerationRequest) (*hybrid.GenerationResult, error) {
	n := int(f.calls.Add(1))
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			f.cancelled <- struct{}{}
			return nil, ctx.Err()
		}
	}
	if n <= len(f.errs) {
		return nil, f.errs[n-1]
	}
	return &hybrid.GenerationResult{
		Response:   f.text,
		Confidence: f.confidence,
		Provider:   f.name,
		Model:      f.name + "-model",
		Metadata: hybrid.ResultMetadata{
			Intent:              "llm_detected_intent",
			FollowUpSuggestions: f.followUps,
		},
	}, nil
}

type memoryCache struct {
	values map[string]bool
	sets   int
	clears int
	health *hybrid.HealthStatus
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]bool{}}
}

func (m *memoryCache) GetAvailability(ctx context.Context, provider string) (bool, bool, error) {
	v, ok := m.values[provider]
	return v, ok, nil
}

func (m *memoryCache) SetAvailability(ctx context.Context, provider string, available bool, ttl time.Duration) error {
	m.values[provider] = available
	m.sets++
	return nil
}

func (m *memoryCache) ClearAvailability(ctx context.Context, provider string) error {
	delete(m.values, provider)
	m.clears++
	return nil
}

func (m *memoryCache) GetHealth(ctx context.Context) (*hybrid.HealthStatus, bool, error) {
	return m.health, m.health != nil, nil
}

func (m *memoryCache) SetHealth(ctx context.Context, status *hybrid.HealthStatus, ttl time.Duration) error {
	m.health = status
	return nil
}
