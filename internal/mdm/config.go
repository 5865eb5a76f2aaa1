package mdm

import (
	"fmt"
	"time"
)

// Config represents the MDM server API configuration
type Config struct {
	EnqueueURL  string        `mapstructure:"enqueue_url"`
	PushURL     string        `mapstructure:"push_url"`
	APIUser     string        `mapstructure:"api_user"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PushTimeout time.Duration `mapstructure:"push_timeout"`
}

// SetDefaults fills unset fields with defaults
func (cfg *Config) SetDefaults() {
	if cfg.APIUser == "" {
		cfg.APIUser = "nanohub"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PushTimeout == 0 {
		cfg.PushTimeout = 5 * time.Second
	}
}

// Validate validates the MDM configuration
func (cfg *Config) Validate() error {
	if cfg.EnqueueURL == "" {
		return fmt.Errorf("enqueue_url is required")
	}
	if cfg.PushURL == "" {
		return fmt.Errorf("push_url is required")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	return nil
}
