package generatechatresponse

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// CompleteWithFallback completes the job with the generic fallback reply
	// once job retries are exhausted instead of throwing a BPMN error.
	CompleteWithFallback bool `mapstructure:"complete_with_fallback"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:              true,
		MaxJobsActive:        10,
		Timeout:              120 * time.Second,
		CompleteWithFallback: true,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}
