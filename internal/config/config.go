package config

import (
	"fmt"
	"time"

	"nanohub/internal/cache"
	"nanohub/internal/events"
	"nanohub/internal/executor"
	"nanohub/internal/logger"
	"nanohub/internal/mdm"
	"nanohub/internal/storage"
	"nanohub/internal/webhook"

	"github.com/spf13/viper"
)

// Config represents the complete server configuration
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	API      APIConfig       `mapstructure:"api"`
	MDM      mdm.Config      `mapstructure:"mdm"`
	Executor executor.Config `mapstructure:"executor"`
	Webhook  webhook.Config  `mapstructure:"webhook"`
	Cache    cache.Config    `mapstructure:"cache"`
	Storage  storage.Config  `mapstructure:"storage"`
	Events   events.Config   `mapstructure:"events"`
	Log      logger.Config   `mapstructure:"log"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLS          TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents the TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// APIConfig represents the API surface configuration
type APIConfig struct {
	// Authentication
	Auth AuthConfig `mapstructure:"auth"`

	// Rate limiting
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// AuthConfig represents the authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Tokens  []string `mapstructure:"tokens"`
}

// RateLimitConfig represents the rate limiting configuration
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig loads server configuration from file
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set defaults
	setDefaults(&config)

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults(config *Config) {
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}

	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}

	if config.Server.WriteTimeout == 0 {
		// Device queries hold the request open while polling
		config.Server.WriteTimeout = 120 * time.Second
	}

	if config.Server.IdleTimeout == 0 {
		config.Server.IdleTimeout = 60 * time.Second
	}

	if config.API.RateLimit.Window == 0 {
		config.API.RateLimit.Window = time.Minute
	}

	if config.API.RateLimit.Requests == 0 {
		config.API.RateLimit.Requests = 60
	}

	config.MDM.SetDefaults()
	config.Executor.SetDefaults()
	config.Webhook.SetDefaults()
	config.Cache.SetDefaults()
	config.Log.SetDefaults()
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if err := config.MDM.Validate(); err != nil {
		return fmt.Errorf("invalid mdm config: %w", err)
	}

	if err := config.Executor.Validate(); err != nil {
		return fmt.Errorf("invalid executor config: %w", err)
	}

	if err := config.Webhook.Validate(); err != nil {
		return fmt.Errorf("invalid webhook config: %w", err)
	}

	if err := config.Cache.Validate(); err != nil {
		return fmt.Errorf("invalid cache config: %w", err)
	}

	if err := config.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}

	if err := config.Events.Validate(); err != nil {
		return fmt.Errorf("invalid events config: %w", err)
	}

	if err := config.Log.Validate(); err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}

	if config.Server.TLS.Enabled {
		if config.Server.TLS.CertFile == "" || config.Server.TLS.KeyFile == "" {
			return fmt.Errorf("invalid TLS config: cert and key files are required")
		}
	}

	if config.API.Auth.Enabled && len(config.API.Auth.Tokens) == 0 {
		return fmt.Errorf("invalid auth config: at least one token is required")
	}

	return nil
}
