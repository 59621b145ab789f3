// Package providers holds the vendor adapters behind the hybrid orchestrator.
package providers

import (
	"fmt"

	"retail-chat-workers/internal/common/config"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/hybrid"
	"retail-chat-workers/internal/hybrid/rules"
)

// NewAdapter builds the vendor adapter registered under name.
func NewAdapter(name string, cfg config.ProviderConfig, log logger.Logger) (hybrid.ProviderAdapter, error) {
	ac := hybrid.AdapterConfig{
		Name:        name,
		Enabled:     cfg.Enabled,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	switch name {
	case config.ProviderOpenAI:
		return NewOpenAI(ac, log), nil
	case config.ProviderAnthropic:
		return NewAnthropic(ac, log), nil
	case config.ProviderGoogle:
		return NewGoogle(ac, log), nil
	case config.ProviderOllama:
		return NewOllama(ac, log), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// Build returns every vendor adapter plus the rule-based responder. Disabled
// or misconfigured vendors are still registered so status reports list them.
func Build(ai config.AIConfig, log logger.Logger) []hybrid.ProviderAdapter {
	vendors := []struct {
		name string
		cfg  config.ProviderConfig
	}{
		{config.ProviderOpenAI, ai.OpenAI},
		{config.ProviderAnthropic, ai.Anthropic},
		{config.ProviderGoogle, ai.GoogleAI},
		{config.ProviderOllama, ai.Ollama},
	}

	adapters := make([]hybrid.ProviderAdapter, 0, len(vendors)+1)
	for _, v := range vendors {
		adapter, err := NewAdapter(v.name, v.cfg, log)
		if err != nil {
			continue
		}
		if !adapter.ValidateConfig() && v.cfg.Enabled && log != nil {
			log.Warn("provider enabled but misconfigured", map[string]interface{}{"provider": v.name})
		}
		adapters = append(adapters, adapter)
	}
	return append(adapters, rules.New(log))
}

var (
	_ hybrid.ProviderAdapter = (*OpenAIAdapter)(nil)
	_ hybrid.ProviderAdapter = (*AnthropicAdapter)(nil)
	_ hybrid.ProviderAdapter = (*GoogleAdapter)(nil)
	_ hybrid.ProviderAdapter = (*OllamaAdapter)(nil)
)
