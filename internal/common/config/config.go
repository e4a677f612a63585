// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Wizard        WizardConfig       `mapstructure:"wizard"`
	Scoring       ScoringConfig      `mapstructure:"scoring"`
	Email         EmailConfig        `mapstructure:"email"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Integrations  IntegrationConfig  `mapstructure:"integrations"`
	Redis         RedisConfig        `mapstructure:"redis"`
	Session       SessionConfig      `mapstructure:"session"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // milliseconds
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// --- Wizard & Collaborators ---

// WizardConfig selects the form variant.
type WizardConfig struct {
	RequireWebsite     bool `mapstructure:"require_website"`
	EnableEmailCapture bool `mapstructure:"enable_email_capture"`
}

// ScoringConfig tunes the score generator. A zero CacheTTL disables the
// Redis result cache.
type ScoringConfig struct {
	Seed     uint64 `mapstructure:"seed"`      // 0 draws from runtime entropy
	CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds
}

// EmailConfig selects and tunes the email dispatcher.
type EmailConfig struct {
	Provider       string `mapstructure:"provider"` // simulated | ses
	SimulatedDelay int    `mapstructure:"simulated_delay"` // milliseconds
	FromEmail      string `mapstructure:"from_email"`
	Subject        string `mapstructure:"subject"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds
}

// NotificationConfig holds settings for the notification sinks.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// IntegrationConfig holds settings for external services.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

type SessionConfig struct {
	TTL           int `mapstructure:"ttl"`            // milliseconds
	SweepInterval int `mapstructure:"sweep_interval"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

const (
	EmailProviderSimulated = "simulated"
	EmailProviderSES       = "ses"
)

// SessionTTL returns the idle session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return GetDuration(c.Session.TTL)
}
