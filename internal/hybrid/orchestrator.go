package hybrid

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "retail-chat-workers/internal/common/errors"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/common/metrics"
)

// AvailabilityCache stores IsAvailable answers across orchestrator passes.
// Only positive answers are stored; a negative answer clears the entry so a
// recovered provider is probed again on the next pass.
type AvailabilityCache interface {
	GetAvailability(ctx context.Context, provider string) (available, found bool, err error)
	SetAvailability(ctx context.Context, provider string, available bool, ttl time.Duration) error
	ClearAvailability(ctx context.Context, provider string) error
}

// HealthCache stores the last aggregate health report.
type HealthCache interface {
	GetHealth(ctx context.Context) (*HealthStatus, bool, error)
	SetHealth(ctx context.Context, status *HealthStatus, ttl time.Duration) error
}

type Option func(*Orchestrator)

func WithAvailabilityCache(cache AvailabilityCache, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		if cache != nil && ttl > 0 {
			o.availability = cache
			o.availabilityTTL = ttl
		}
	}
}

func WithHealthCache(cache HealthCache, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		if cache != nil && ttl > 0 {
			o.health = cache
			o.healthTTL = ttl
		}
	}
}

// Orchestrator tries providers in order and returns the first adequate answer.
type Orchestrator struct {
	mu  sync.RWMutex
	cfg Config

	adapters map[string]ProviderAdapter
	names    []string

	availability    AvailabilityCache
	availabilityTTL time.Duration
	health          HealthCache
	healthTTL       time.Duration

	logger logger.Logger
	now    func() time.Time
}

func NewOrchestrator(cfg Config, adapters []ProviderAdapter, log logger.Logger, opts ...Option) (*Orchestrator, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	o := &Orchestrator{
		cfg:      cfg.clone(),
		adapters: make(map[string]ProviderAdapter, len(adapters)),
		logger:   log.With(map[string]interface{}{"component": "hybrid-orchestrator"}),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, a := range adapters {
		if a == nil {
			return nil, fmt.Errorf("nil provider adapter")
		}
		name := a.Name()
		if _, dup := o.adapters[name]; dup {
			return nil, fmt.Errorf("provider %q registered twice", name)
		}
		o.adapters[name] = a
		o.names = append(o.names, name)
	}
	for _, opt := range opts {
		opt(o)
	}

	o.logger.Info("orchestrator initialized", map[string]interface{}{
		"providers":      o.names,
		"effectiveOrder": o.EffectiveOrder(),
	})
	return o, nil
}

// Config returns a snapshot of the current policy.
func (o *Orchestrator) Config() Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg.clone()
}

// UpdateConfig merges the non-nil fields of u into the policy. Calls already
// in flight keep the snapshot they started with.
func (o *Orchestrator) UpdateConfig(u ConfigUpdate) Config {
	o.mu.Lock()
	o.cfg = o.cfg.merge(u)
	cfg := o.cfg.clone()
	o.mu.Unlock()

	o.logger.Info("orchestrator config updated", map[string]interface{}{
		"primaryProvider":     cfg.PrimaryProvider,
		"fallbackProviders":   cfg.FallbackProviders,
		"useBusinessLogic":    cfg.UseBusinessLogic,
		"confidenceThreshold": cfg.ConfidenceThreshold,
		"timeoutMs":           cfg.Timeout.Milliseconds(),
	})
	return cfg
}

// EffectiveOrder is the provider sequence GenerateResponse walks.
func (o *Orchestrator) EffectiveOrder() []string {
	return o.order(o.Config())
}

// ProviderOrder resolves the walk order: the primary provider (when set and
// not already listed) goes first, business-logic is moved to the end exactly
// once, duplicates are dropped and names are kept only when registered.
func ProviderOrder(cfg Config, registered func(string) bool) []string {
	candidates := make([]string, 0, len(cfg.FallbackProviders)+2)
	primary := strings.TrimSpace(cfg.PrimaryProvider)
	if primary != "" && primary != BusinessLogicProvider && !contains(cfg.FallbackProviders, primary) {
		candidates = append(candidates, primary)
	}
	for _, name := range cfg.FallbackProviders {
		name = strings.TrimSpace(name)
		if name == "" || name == BusinessLogicProvider {
			continue
		}
		candidates = append(candidates, name)
	}
	candidates = append(candidates, BusinessLogicProvider)

	seen := make(map[string]bool, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if seen[name] {
			continue
		}
		seen[name] = true
		if registered == nil || registered(name) {
			order = append(order, name)
		}
	}
	return order
}

func (o *Orchestrator) order(cfg Config) []string {
	return ProviderOrder(cfg, func(name string) bool {
		_, ok := o.adapters[name]
		return ok
	})
}

// GenerateResponse walks the provider order and returns the first result that
// succeeds and, for LLM providers, meets the confidence threshold.
func (o *Orchestrator) GenerateResponse(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, apperrors.NewChatInputInvalidError("generation request has no messages")
	}

	cfg := o.Config()
	order := o.order(cfg)
	memo := make(map[string]bool, len(order))
	var lastErr error

	for i, name := range order {
		isLast := i == len(order)-1
		adapter, ok := o.adapters[name]
		if !ok {
			continue
		}
		log := o.logger.With(map[string]interface{}{"provider": name})

		if name != BusinessLogicProvider && !o.available(ctx, adapter, memo) {
			metrics.ProviderAttempts.WithLabelValues(name, "unavailable").Inc()
			log.Info("provider unavailable, skipping", nil)
			continue
		}

		result, err := o.attemptWithRetry(ctx, adapter, req, cfg)
		if err != nil {
			lastErr = err
			if name != BusinessLogicProvider && revokesAvailability(err) {
				o.storeAvailability(ctx, name, false)
			}
			log.Warn("provider attempt failed", map[string]interface{}{
				"error":     err,
				"errorKind": string(apperrors.KindOf(err)),
				"last":      isLast,
			})
			if isLast {
				return nil, err
			}
			continue
		}

		if name != BusinessLogicProvider && result.Confidence < cfg.ConfidenceThreshold {
			metrics.ProviderAttempts.WithLabelValues(name, "low_confidence").Inc()
			log.Info("provider result below confidence threshold", map[string]interface{}{
				"confidence": result.Confidence,
				"threshold":  cfg.ConfidenceThreshold,
			})
			continue
		}

		metrics.ProviderAttempts.WithLabelValues(name, "success").Inc()
		if cfg.UseBusinessLogic && name != BusinessLogicProvider {
			o.enrich(ctx, req, result)
		}

		log.Info("provider answered", map[string]interface{}{
			"model":      result.Model,
			"confidence": result.Confidence,
			"intent":     result.Metadata.Intent,
		})
		return result, nil
	}

	return nil, apperrors.NewNoProviderSucceededError(lastErr)
}

func (o *Orchestrator) available(ctx context.Context, adapter ProviderAdapter, memo map[string]bool) bool {
	name := adapter.Name()
	if v, ok := memo[name]; ok {
		return v
	}

	if o.availability != nil {
		v, found, err := o.availability.GetAvailability(ctx, name)
		if err != nil {
			o.logger.Warn("availability cache read failed", map[string]interface{}{"provider": name, "error": err})
		} else if found {
			memo[name] = v
			return v
		}
	}

	v := adapter.IsAvailable(ctx)
	memo[name] = v
	metrics.ProviderAvailable.WithLabelValues(name).Set(boolGauge(v))
	o.storeAvailability(ctx, name, v)
	return v
}

func (o *Orchestrator) storeAvailability(ctx context.Context, name string, v bool) {
	if o.availability == nil || ctx.Err() != nil {
		return
	}
	var err error
	if v {
		err = o.availability.SetAvailability(ctx, name, true, o.availabilityTTL)
	} else {
		err = o.availability.ClearAvailability(ctx, name)
	}
	if err != nil {
		o.logger.Warn("availability cache write failed", map[string]interface{}{"provider": name, "error": err})
	}
}

// revokesAvailability reports errors that a cached "available" answer would
// keep hiding: bad credentials, bad configuration, exhausted quota.
func revokesAvailability(err error) bool {
	stdErr, ok := apperrors.As(err)
	if !ok {
		return false
	}
	switch stdErr.Code {
	case apperrors.ErrCodeProviderAuthFailed,
		apperrors.ErrCodeProviderConfigInvalid,
		apperrors.ErrCodeProviderQuotaExceeded:
		return true
	}
	return false
}

func (o *Orchestrator) attemptWithRetry(ctx context.Context, adapter ProviderAdapter, req *GenerationRequest, cfg Config) (*GenerationResult, error) {
	if adapter.Name() == BusinessLogicProvider {
		return invokeSafely(ctx, adapter, req)
	}

	for n := 0; ; n++ {
		result, err := o.attempt(ctx, adapter, req, cfg.Timeout)
		if err == nil || n >= cfg.RetryAttempts || !apperrors.IsRetryable(err) || ctx.Err() != nil {
			return result, err
		}

		backoff := cfg.RetryBackoff * time.Duration(1<<n)
		o.logger.Info("retrying provider", map[string]interface{}{
			"provider":  adapter.Name(),
			"attempt":   n + 2,
			"backoffMs": backoff.Milliseconds(),
			"error":     err,
		})
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, err
		}
	}
}

type attemptOutcome struct {
	result *GenerationResult
	err    error
}

// attempt races one provider call against timeout. The call's context is
// cancelled when the timer wins so the vendor request is aborted.
func (o *Orchestrator) attempt(ctx context.Context, adapter ProviderAdapter, req *GenerationRequest, timeout time.Duration) (*GenerationResult, error) {
	name := adapter.Name()
	start := time.Now()
	defer func() {
		metrics.ProviderAttemptDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	var (
		attemptCtx context.Context
		cancel     context.CancelFunc
	)
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		attemptCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan attemptOutcome, 1)
	go func() {
		result, err := invokeSafely(attemptCtx, adapter, req)
		done <- attemptOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if stderrors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil {
				metrics.ProviderAttempts.WithLabelValues(name, "timeout").Inc()
				return nil, apperrors.NewProviderTimeoutError(name, timeout)
			}
			metrics.ProviderAttempts.WithLabelValues(name, "error").Inc()
			return nil, out.err
		}
		return out.result, nil
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			metrics.ProviderAttempts.WithLabelValues(name, "error").Inc()
			return nil, fmt.Errorf("provider %s: %w", name, ctx.Err())
		}
		metrics.ProviderAttempts.WithLabelValues(name, "timeout").Inc()
		return nil, apperrors.NewProviderTimeoutError(name, timeout)
	}
}

// invokeSafely converts adapter panics and nil results into errors.
func invokeSafely(ctx context.Context, adapter ProviderAdapter, req *GenerationRequest) (result *GenerationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			if adapter.Name() == BusinessLogicProvider {
				err = apperrors.NewRuleEngineError(fmt.Sprintf("panic: %v", r))
				return
			}
			err = apperrors.NewProviderRequestError(adapter.Name(), fmt.Errorf("panic: %v", r))
		}
	}()

	result, err = adapter.GenerateResponse(ctx, req)
	if err == nil && result == nil {
		err = apperrors.NewProviderEmptyResponseError(adapter.Name())
	}
	return result, err
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.TrimSpace(v) == s {
			return true
		}
	}
	return false
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
