package hybrid

import (
	"context"
	"fmt"
	"sync"

	"retail-chat-workers/internal/common/metrics"

	"golang.org/x/sync/errgroup"
)

// GetProviderStatus checks every registered adapter concurrently. A failing
// adapter is reported in its entry and never aborts the call.
func (o *Orchestrator) GetProviderStatus(ctx context.Context) map[string]ProviderStatus {
	statuses := make(map[string]ProviderStatus, len(o.names))
	var mu sync.Mutex

	var g errgroup.Group
	for _, name := range o.names {
		adapter := o.adapters[name]
		g.Go(func() error {
			st := o.checkProvider(ctx, adapter)
			mu.Lock()
			statuses[name] = st
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}

func (o *Orchestrator) checkProvider(ctx context.Context, adapter ProviderAdapter) (st ProviderStatus) {
	name := adapter.Name()
	defer func() {
		if r := recover(); r != nil {
			st = ProviderStatus{Available: false, Error: fmt.Sprintf("status check panicked: %v", r)}
		}
		metrics.ProviderAvailable.WithLabelValues(name).Set(boolGauge(st.Available))
	}()

	info := adapter.GetModelInfo()
	st = ProviderStatus{Model: info.Name, Features: info.SupportedFeatures}

	if !adapter.ValidateConfig() {
		st.Error = "configuration invalid or provider disabled"
		return st
	}
	st.Available = adapter.IsAvailable(ctx)
	if !st.Available {
		st.Error = "health check failed"
	}
	o.storeAvailability(ctx, name, st.Available)
	return st
}

// GetHealthStatus aggregates provider status: unhealthy when nothing is
// available, degraded when only business-logic is, healthy otherwise.
func (o *Orchestrator) GetHealthStatus(ctx context.Context) *HealthStatus {
	providers := o.GetProviderStatus(ctx)
	status := &HealthStatus{
		Status:    aggregateHealth(providers),
		Providers: providers,
		LastCheck: o.now(),
	}

	if o.health != nil && ctx.Err() == nil {
		if err := o.health.SetHealth(ctx, status, o.healthTTL); err != nil {
			o.logger.Warn("health cache write failed", map[string]interface{}{"error": err})
		}
	}
	return status
}

// CachedHealthStatus serves the last report while it is fresh.
func (o *Orchestrator) CachedHealthStatus(ctx context.Context) *HealthStatus {
	if o.health != nil {
		cached, found, err := o.health.GetHealth(ctx)
		if err != nil {
			o.logger.Warn("health cache read failed", map[string]interface{}{"error": err})
		} else if found {
			return cached
		}
	}
	return o.GetHealthStatus(ctx)
}

func aggregateHealth(providers map[string]ProviderStatus) HealthState {
	available := 0
	llmAvailable := false
	for name, st := range providers {
		if !st.Available {
			continue
		}
		available++
		if name != BusinessLogicProvider {
			llmAvailable = true
		}
	}
	switch {
	case available == 0:
		return HealthUnhealthy
	case !llmAvailable:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}
