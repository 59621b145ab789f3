package hybrid

import (
	"time"

	"retail-chat-workers/internal/common/config"
)

// Config is the orchestrator policy. It is built once at startup and may be
// changed at runtime with Orchestrator.UpdateConfig.
type Config struct {
	PrimaryProvider     string
	FallbackProviders   []string
	UseBusinessLogic    bool
	ConfidenceThreshold float64
	// Timeout bounds a single provider attempt, not the provider as a whole.
	Timeout time.Duration
	// RetryAttempts is the number of extra attempts per provider for retryable
	// errors, timeouts included. A provider that keeps timing out holds a turn
	// for up to (RetryAttempts+1)*Timeout plus the backoff between attempts.
	RetryAttempts int
	RetryBackoff  time.Duration
}

// ConfigUpdate is a partial Config; nil fields are left unchanged.
type ConfigUpdate struct {
	PrimaryProvider     *string
	FallbackProviders   []string
	UseBusinessLogic    *bool
	ConfidenceThreshold *float64
	Timeout             *time.Duration
	RetryAttempts       *int
	RetryBackoff        *time.Duration
}

// ConfigFromAI maps the loaded ai block onto an orchestrator policy.
func ConfigFromAI(ai config.AIConfig) Config {
	return Config{
		PrimaryProvider:     ai.PrimaryProvider,
		FallbackProviders:   append([]string(nil), ai.FallbackProviders...),
		UseBusinessLogic:    ai.UseBusinessLogic,
		ConfidenceThreshold: ai.ConfidenceThreshold,
		Timeout:             config.GetDuration(ai.ResponseTimeout),
		RetryAttempts:       ai.RetryAttempts,
		RetryBackoff:        config.GetDuration(ai.RetryBackoff),
	}
}

func (c Config) merge(u ConfigUpdate) Config {
	if u.PrimaryProvider != nil {
		c.PrimaryProvider = *u.PrimaryProvider
	}
	if u.FallbackProviders != nil {
		c.FallbackProviders = append([]string(nil), u.FallbackProviders...)
	}
	if u.UseBusinessLogic != nil {
		c.UseBusinessLogic = *u.UseBusinessLogic
	}
	if u.ConfidenceThreshold != nil {
		c.ConfidenceThreshold = *u.ConfidenceThreshold
	}
	if u.Timeout != nil {
		c.Timeout = *u.Timeout
	}
	if u.RetryAttempts != nil {
		c.RetryAttempts = *u.RetryAttempts
	}
	if u.RetryBackoff != nil {
		c.RetryBackoff = *u.RetryBackoff
	}
	return c
}

func (c Config) clone() Config {
	c.FallbackProviders = append([]string(nil), c.FallbackProviders...)
	return c
}
