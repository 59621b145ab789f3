// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider names understood by the orchestrator.
const (
	ProviderOpenAI        = "openai"
	ProviderAnthropic     = "anthropic"
	ProviderGoogle        = "google"
	ProviderOllama        = "ollama"
	ProviderBusinessLogic = "business-logic"
)

// Recommended bounds for ai.response_timeout, in milliseconds.
const (
	MinRecommendedTimeout = 5000
	MaxRecommendedTimeout = 120000
)

// envBindings maps flat deployment variables onto nested config keys.
var envBindings = map[string]string{
	"camunda.broker_address":          "ZEEBE_ADDRESS",
	"database.postgres.user":          "DB_USER",
	"database.postgres.password":      "DB_PASSWORD",
	"database.redis.address":          "REDIS_ADDRESS",
	"database.redis.password":         "REDIS_PASSWORD",
	"integrations.zoho.oauth_token":   "ZOHO_CRM_OAUTH_TOKEN",
	"ai.primary_provider":             "AI_PRIMARY_PROVIDER",
	"ai.fallback_providers":           "AI_FALLBACK_PROVIDERS",
	"ai.use_business_logic":           "AI_USE_BUSINESS_LOGIC",
	"ai.confidence_threshold":         "AI_CONFIDENCE_THRESHOLD",
	"ai.response_timeout":             "AI_RESPONSE_TIMEOUT",
	"ai.retry_attempts":               "AI_RETRY_ATTEMPTS",
	"integrations.aws.region":         "AWS_REGION",
	"integrations.aws.ses.from_email": "SES_FROM_EMAIL",
}

// vendorEnvPrefixes maps provider config blocks onto their env prefixes.
var vendorEnvPrefixes = map[string]string{
	"ai.openai":    "OPENAI",
	"ai.anthropic": "ANTHROPIC",
	"ai.google_ai": "GOOGLE_AI",
	"ai.ollama":    "OLLAMA",
}

var vendorFields = []string{"enabled", "api_key", "model", "base_url", "max_tokens", "temperature"}

// Load reads configs/config.yaml, overlays configs/config.<APP_ENVIRONMENT>.yaml and
// the process environment, then applies defaults and validation.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finalize(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finalize(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	for block, prefix := range vendorEnvPrefixes {
		for _, field := range vendorFields {
			_ = v.BindEnv(block+"."+field, prefix+"_"+strings.ToUpper(field))
		}
	}

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "retail-chat-workers")
	v.SetDefault("camunda.use_plaintext", true)

	v.SetDefault("ai.primary_provider", ProviderOpenAI)
	v.SetDefault("ai.fallback_providers", []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderBusinessLogic})
	v.SetDefault("ai.use_business_logic", true)
	v.SetDefault("ai.confidence_threshold", 0.6)
	v.SetDefault("ai.response_timeout", 30000)
	v.SetDefault("ai.retry_attempts", 1)
	v.SetDefault("ai.retry_backoff", 100)

	v.SetDefault("ai.openai.enabled", true)
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.anthropic.enabled", true)
	v.SetDefault("ai.anthropic.model", "claude-3-5-haiku-20241022")
	v.SetDefault("ai.google_ai.enabled", true)
	v.SetDefault("ai.google_ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.google_ai.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("ai.ollama.enabled", false)
	v.SetDefault("ai.ollama.model", "llama3.1")
	v.SetDefault("ai.ollama.base_url", "http://localhost:11434")
	for block := range vendorEnvPrefixes {
		v.SetDefault(block+".max_tokens", 1000)
		v.SetDefault(block+".temperature", 0.7)
	}

	v.SetDefault("chat.record_usage", true)
	v.SetDefault("integrations.zoho.base_url", "https://www.zohoapis.com/crm/v3")
	v.SetDefault("integrations.zoho.lead_source", "Website Chat")
}

func finalize(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	cfg.AI.FallbackProviders = normalizeProviderList(cfg.AI.FallbackProviders)
	cfg.AI.PrimaryProvider = strings.ToLower(strings.TrimSpace(cfg.AI.PrimaryProvider))

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env", "../../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders left in YAML string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// normalizeProviderList lower-cases and trims entries; env values arrive comma-split but untrimmed.
func normalizeProviderList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		for _, part := range strings.Split(raw, ",") {
			if name := strings.ToLower(strings.TrimSpace(part)); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// applyDefaults sets default values that viper defaults cannot express.
func applyDefaults(cfg *Config) {
	if cfg.Camunda.ConnectionTimeout == 0 {
		cfg.Camunda.ConnectionTimeout = 10000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}
	if cfg.Camunda.ConnectRetries == 0 {
		cfg.Camunda.ConnectRetries = 10
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Chat.MaxHistoryMessages == 0 {
		cfg.Chat.MaxHistoryMessages = 10
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.HealthCacheTTL == 0 {
		cfg.Server.HealthCacheTTL = 30000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Workers == nil {
		cfg.Workers = map[string]WorkerConfig{}
	}
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig rejects unusable configuration and records soft warnings.
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	ai := cfg.AI
	if ai.ConfidenceThreshold < 0.1 || ai.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("ai.confidence_threshold must be between 0.1 and 1.0, got %v", ai.ConfidenceThreshold)
	}
	if ai.ResponseTimeout <= 0 {
		return fmt.Errorf("ai.response_timeout must be positive, got %d", ai.ResponseTimeout)
	}
	if ai.ResponseTimeout < MinRecommendedTimeout || ai.ResponseTimeout > MaxRecommendedTimeout {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf(
			"ai.response_timeout %dms is outside the recommended %d-%dms range",
			ai.ResponseTimeout, MinRecommendedTimeout, MaxRecommendedTimeout))
	}
	if ai.RetryAttempts < 0 {
		return fmt.Errorf("ai.retry_attempts cannot be negative")
	}

	known := map[string]bool{
		ProviderOpenAI: true, ProviderAnthropic: true, ProviderGoogle: true,
		ProviderOllama: true, ProviderBusinessLogic: true,
	}
	for _, name := range ai.FallbackProviders {
		if !known[name] {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown provider %q in ai.fallback_providers is ignored", name))
		}
	}
	if ai.PrimaryProvider != "" && !known[ai.PrimaryProvider] {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown ai.primary_provider %q is ignored", ai.PrimaryProvider))
	}

	if cfg.Integrations.AWS.SES.Enabled && cfg.Integrations.AWS.SES.FromEmail == "" {
		return fmt.Errorf("integrations.aws.ses.from_email is required when SES is enabled")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
