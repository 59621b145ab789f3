package checkproviderhealth

import (
	"context"
	"time"

	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/hybrid"
)

type Input struct {
	// Refresh bypasses the cached report and probes every provider.
	Refresh bool `json:"refresh"`
}

type Output struct {
	Status             hybrid.HealthState               `json:"status"`
	Providers          map[string]hybrid.ProviderStatus `json:"providers"`
	LastCheck          time.Time                        `json:"lastCheck"`
	AvailableProviders []string                         `json:"availableProviders"`
}

// HealthReporter is implemented by hybrid.Orchestrator.
type HealthReporter interface {
	GetHealthStatus(ctx context.Context) *hybrid.HealthStatus
	CachedHealthStatus(ctx context.Context) *hybrid.HealthStatus
}

type ServiceDependencies struct {
	Reporter HealthReporter
	Logger   logger.Logger
}
