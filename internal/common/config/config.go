// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig      `mapstructure:"app"`
	Server    ServerConfig   `mapstructure:"server"`
	Database  DatabaseConfig `mapstructure:"database"`
	Vault     VaultConfig    `mapstructure:"vault"`
	Auth      AuthConfig     `mapstructure:"auth"`
	Providers ProviderConfig `mapstructure:"providers"`
	Dispatch  DispatchConfig `mapstructure:"dispatch"`
	Logging   LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // seconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // seconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // seconds
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

// VaultConfig holds the credential-vault secret. The secret is required;
// startup fails without it.
type VaultConfig struct {
	Secret string `mapstructure:"secret"`
}

// AuthConfig holds the external auth service used for session lookup.
type AuthConfig struct {
	UserInfoURL string `mapstructure:"userinfo_url"`
	Timeout     int    `mapstructure:"timeout"`   // milliseconds
	CacheTTL    int    `mapstructure:"cache_ttl"` // seconds
}

// ProviderConfig holds endpoint settings for the outbound providers. API
// keys live per-user in integration_configs, not here.
type ProviderConfig struct {
	Vapi struct {
		BaseURL string `mapstructure:"base_url"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"vapi"`

	Twilio struct {
		BaseURL string `mapstructure:"base_url"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"twilio"`

	SendGrid struct {
		BaseURL string `mapstructure:"base_url"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"sendgrid"`
}

// DispatchConfig bounds campaign execution.
type DispatchConfig struct {
	MaxConcurrentPerChannel int `mapstructure:"max_concurrent_per_channel"`
	MaxRetries              int `mapstructure:"max_retries"`
	SweepInterval           int `mapstructure:"sweep_interval"`   // seconds, 0 disables
	ConfigCacheTTL          int `mapstructure:"config_cache_ttl"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
