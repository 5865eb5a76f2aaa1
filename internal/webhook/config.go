package webhook

import (
	"fmt"
	"time"
)

// Config represents webhook log polling configuration. Every knob has a
// process-wide default and is independently overridable per call.
type Config struct {
	LogPath               string        `mapstructure:"log_path"`
	InitialSleep          time.Duration `mapstructure:"initial_sleep"`
	MaxAttempts           int           `mapstructure:"max_attempts"`
	PollInterval          time.Duration `mapstructure:"poll_interval"`
	Window                int           `mapstructure:"window"` // tail lines per scan
	DeferredBackoffFactor int           `mapstructure:"deferred_backoff_factor"`
	QueryMaxRetries       int           `mapstructure:"query_max_retries"`  // outer command re-sends
	QueryMaxAttempts      int           `mapstructure:"query_max_attempts"` // inner poll budget per send
}

// SetDefaults fills unset fields with defaults
func (cfg *Config) SetDefaults() {
	if cfg.LogPath == "" {
		cfg.LogPath = "/var/log/nanohub/webhook.log"
	}
	if cfg.InitialSleep == 0 {
		cfg.InitialSleep = 3 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 20
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Window == 0 {
		cfg.Window = 1000
	}
	if cfg.DeferredBackoffFactor == 0 {
		cfg.DeferredBackoffFactor = 2
	}
	if cfg.QueryMaxRetries == 0 {
		cfg.QueryMaxRetries = 3
	}
	if cfg.QueryMaxAttempts == 0 {
		cfg.QueryMaxAttempts = 15
	}
}

// Validate validates the polling configuration
func (cfg *Config) Validate() error {
	if cfg.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be non-negative")
	}
	if cfg.PollInterval < 0 {
		return fmt.Errorf("poll_interval must be non-negative")
	}
	if cfg.Window < 0 {
		return fmt.Errorf("window must be non-negative")
	}
	if cfg.DeferredBackoffFactor < 1 {
		return fmt.Errorf("deferred_backoff_factor must be at least 1")
	}
	return nil
}
