package storage

import (
	"fmt"
	"time"
)

// Config represents audit storage configuration
type Config struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	SlowQueryTime   time.Duration `mapstructure:"slow_query_time"`

	// Migration settings
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
	MigrationsPath string `mapstructure:"migrations_path"`

	// History retention settings
	EnablePruning    bool          `mapstructure:"enable_pruning"`
	HistoryRetention time.Duration `mapstructure:"history_retention"`
	PruneInterval    time.Duration `mapstructure:"prune_interval"`
}

// Validate validates storage configuration
func (c *Config) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("storage driver is required")
	}
	if c.DSN == "" {
		return fmt.Errorf("storage DSN is required")
	}

	// Set default values
	if c.MaxConnections == 0 {
		c.MaxConnections = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}
	if c.SlowQueryTime == 0 {
		c.SlowQueryTime = time.Second
	}
	if c.PruneInterval == 0 {
		c.PruneInterval = 24 * time.Hour
	}
	if c.HistoryRetention == 0 {
		c.HistoryRetention = 90 * 24 * time.Hour // 90 days
	}

	// Validate driver
	switch c.Driver {
	case "sqlite", "mysql", "postgres":
		// Valid drivers
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Driver)
	}

	return nil
}
