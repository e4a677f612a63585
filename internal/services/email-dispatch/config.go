package emaildispatch

import (
	"fmt"
	"time"
)

const (
	ProviderSimulated = "simulated"
	ProviderSES       = "ses"
)

type Config struct {
	Provider       string        `mapstructure:"provider"`
	SimulatedDelay time.Duration `mapstructure:"simulated_delay"`
	FromEmail      string        `mapstructure:"from_email"`
	Subject        string        `mapstructure:"subject"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider:       ProviderSimulated,
		SimulatedDelay: 2 * time.Second,
		Subject:        "Your Creator Match Results",
		Timeout:        30 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.SimulatedDelay < 0 {
		return fmt.Errorf("simulated_delay must not be negative")
	}
	if c.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	switch c.Provider {
	case ProviderSimulated:
	case ProviderSES:
		if c.FromEmail == "" {
			return fmt.Errorf("from_email is required for the ses provider")
		}
	default:
		return fmt.Errorf("unknown provider: %s", c.Provider)
	}
	return nil
}
