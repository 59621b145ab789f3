package checkproviderhealth

import (
	"context"
	"fmt"
	"sort"

	"retail-chat-workers/internal/common/errors"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/hybrid"
)

type Service struct {
	reporter        HealthReporter
	failOnUnhealthy bool
	logger          logger.Logger
}

func NewService(deps ServiceDependencies, cfg *Config) *Service {
	return &Service{
		reporter:        deps.Reporter,
		failOnUnhealthy: cfg.FailOnUnhealthy,
		logger:          deps.Logger,
	}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	var status *hybrid.HealthStatus
	if input.Refresh {
		status = s.reporter.GetHealthStatus(ctx)
	} else {
		status = s.reporter.CachedHealthStatus(ctx)
	}

	output := &Output{
		Status:    status.Status,
		Providers: status.Providers,
		LastCheck: status.LastCheck,
	}
	for name, st := range status.Providers {
		if st.Available {
			output.AvailableProviders = append(output.AvailableProviders, name)
		}
	}
	sort.Strings(output.AvailableProviders)

	s.logger.Info("Provider health checked", map[string]interface{}{
		"status":    status.Status,
		"available": output.AvailableProviders,
		"refresh":   input.Refresh,
	})

	if s.failOnUnhealthy && status.Status == hybrid.HealthUnhealthy {
		return nil, errors.NewExternalServiceError("llm-providers", fmt.Errorf("no response provider is available"))
	}
	return output, nil
}
