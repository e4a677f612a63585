package matchscore

import (
	"fmt"
	"time"
)

type Config struct {
	// Seed fixes the random source. Zero seeds from the runtime's entropy.
	Seed uint64 `mapstructure:"seed"`
	// CacheTTL keeps a pair's result in Redis so repeat analyses agree.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// CachePrefix namespaces cache keys.
	CachePrefix string `mapstructure:"cache_prefix"`
}

func DefaultConfig() *Config {
	return &Config{
		CachePrefix: "creator-match:score:",
	}
}

func (c *Config) Validate() error {
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	if c.CacheTTL > 0 && c.CachePrefix == "" {
		return fmt.Errorf("cache_prefix is required when caching")
	}
	return nil
}
