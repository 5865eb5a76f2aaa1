package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config represents cache configuration
type Config struct {
	Driver     string        `mapstructure:"driver"` // memory, redis
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
	Redis      RedisConfig   `mapstructure:"redis"`
}

// RedisConfig represents the redis driver configuration
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SetDefaults fills unset fields with defaults
func (cfg *Config) SetDefaults() {
	if cfg.Driver == "" {
		cfg.Driver = "memory"
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 2000
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
}

// Validate validates the cache configuration
func (cfg *Config) Validate() error {
	switch cfg.Driver {
	case "memory":
	case "redis":
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required")
		}
	default:
		return fmt.Errorf("unsupported cache driver: %s", cfg.Driver)
	}
	return nil
}

// Cache is a TTL-bounded key/value store used to memoize parsed command
// results. Values are opaque bytes; callers own the encoding. Get on an
// absent or expired key returns types.ErrCacheMiss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	Close() error
}

// New creates a cache instance based on configuration
func New(cfg *Config, logger *zap.Logger) (Cache, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	switch cfg.Driver {
	case "memory":
		return NewMemoryCache(cfg.MaxEntries, logger), nil
	case "redis":
		return NewRedisCache(&cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Driver)
	}
}
