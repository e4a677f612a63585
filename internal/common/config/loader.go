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

// Load reads configs/config.yaml (or ./config.yaml), merges
// config.<APP_ENVIRONMENT>.yaml over it and applies env overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	// APP_NAME, EMAIL_PROVIDER, WIZARD_REQUIRE_WEBSITE ...
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	registerDefaults(v)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// registerDefaults covers the booleans, whose zero value is meaningful and so
// cannot be filled in after unmarshalling. Registering them also makes the keys
// visible to AutomaticEnv.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("wizard.require_website", false)
	v.SetDefault("wizard.enable_email_capture", true)
	v.SetDefault("notifications.sns.enabled", false)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("email.provider", EmailProviderSimulated)
	v.SetDefault("integrations.aws.region", "")
	v.SetDefault("email.from_email", "")
	v.SetDefault("notifications.sns.topic_arn", "")
	v.SetDefault("redis.address", "")
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

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
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders left in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "creator-match"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10000
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60000
	}

	if cfg.Email.Provider == "" {
		cfg.Email.Provider = EmailProviderSimulated
	}
	if cfg.Email.SimulatedDelay == 0 {
		cfg.Email.SimulatedDelay = 2000
	}
	if cfg.Email.Subject == "" {
		cfg.Email.Subject = "Your Creator Match Results"
	}
	if cfg.Email.Timeout == 0 {
		cfg.Email.Timeout = 30000
	}

	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "creator-match:wizard:"
	}

	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 30 * 60 * 1000
	}
	if cfg.Session.SweepInterval == 0 {
		cfg.Session.SweepInterval = 60 * 1000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Email.Provider {
	case EmailProviderSimulated:
	case EmailProviderSES:
		if cfg.Email.FromEmail == "" {
			return fmt.Errorf("email.from_email is required for the ses provider")
		}
		if cfg.Integrations.AWS.Region == "" {
			return fmt.Errorf("integrations.aws.region is required for the ses provider")
		}
	default:
		return fmt.Errorf("email.provider must be one of %q, %q (got %q)",
			EmailProviderSimulated, EmailProviderSES, cfg.Email.Provider)
	}

	if cfg.Email.SimulatedDelay < 0 {
		return fmt.Errorf("email.simulated_delay must not be negative")
	}

	if cfg.Notifications.SNS.Enabled {
		if cfg.Notifications.SNS.TopicARN == "" {
			return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
		}
		if cfg.Integrations.AWS.Region == "" {
			return fmt.Errorf("integrations.aws.region is required when sns is enabled")
		}
	}

	if cfg.Scoring.CacheTTL < 0 {
		return fmt.Errorf("scoring.cache_ttl must not be negative")
	}
	if cfg.Scoring.CacheTTL > 0 && !cfg.Redis.Enabled {
		return fmt.Errorf("scoring.cache_ttl requires redis to be enabled")
	}

	if cfg.Redis.Enabled && cfg.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when redis is enabled")
	}

	if cfg.Session.TTL < 0 || cfg.Session.SweepInterval < 0 {
		return fmt.Errorf("session durations must not be negative")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
