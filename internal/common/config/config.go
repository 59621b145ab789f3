// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	AI           AIConfig                `mapstructure:"ai"`
	Chat         ChatConfig              `mapstructure:"chat"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Server       ServerConfig            `mapstructure:"server"`
	Registry     RegistryConfig          `mapstructure:"registry"`
	Logging      LoggingConfig           `mapstructure:"logging"`

	// Warnings collects non-fatal findings from validation, logged at startup.
	Warnings []string `mapstructure:"-"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress     string `mapstructure:"broker_address"`
	UsePlaintext      bool   `mapstructure:"use_plaintext"`
	ConnectionTimeout int    `mapstructure:"connection_timeout"` // milliseconds
	RequestTimeout    int    `mapstructure:"request_timeout"`    // milliseconds
	ConnectRetries    int    `mapstructure:"connect_retries"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- AI orchestration ---

// AIConfig is the hybrid orchestrator policy plus one block per LLM vendor.
type AIConfig struct {
	PrimaryProvider      string   `mapstructure:"primary_provider"`
	FallbackProviders    []string `mapstructure:"fallback_providers"`
	UseBusinessLogic     bool     `mapstructure:"use_business_logic"`
	ConfidenceThreshold  float64  `mapstructure:"confidence_threshold"`
	ResponseTimeout      int      `mapstructure:"response_timeout"` // milliseconds
	RetryAttempts        int      `mapstructure:"retry_attempts"`
	RetryBackoff         int      `mapstructure:"retry_backoff"`          // milliseconds
	AvailabilityCacheTTL int      `mapstructure:"availability_cache_ttl"` // milliseconds, 0 disables

	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	GoogleAI  ProviderConfig `mapstructure:"google_ai"`
	Ollama    ProviderConfig `mapstructure:"ollama"`
}

// ProviderConfig is the static configuration of one LLM vendor adapter.
type ProviderConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// ChatConfig shapes what the chat service forwards to the orchestrator.
type ChatConfig struct {
	MaxHistoryMessages int  `mapstructure:"max_history_messages"`
	RecordUsage        bool `mapstructure:"record_usage"`
}

// --- Integrations ---

// IntegrationConfig holds settings for CRM and AWS notification services.
type IntegrationConfig struct {
	Zoho struct {
		BaseURL    string `mapstructure:"base_url"`
		AuthToken  string `mapstructure:"oauth_token"`
		LeadSource string `mapstructure:"lead_source"`
	} `mapstructure:"zoho"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled         bool     `mapstructure:"enabled"`
			FromEmail       string   `mapstructure:"from_email"`
			SalesRecipients []string `mapstructure:"sales_recipients"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled     bool     `mapstructure:"enabled"`
			SenderID    string   `mapstructure:"sender_id"`
			SalesPhones []string `mapstructure:"sales_phones"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// ServerConfig is the health/metrics listener.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	HealthCacheTTL int `mapstructure:"health_cache_ttl"` // milliseconds
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
