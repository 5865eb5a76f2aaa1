package executor

import (
	"fmt"
	"time"
)

// Config represents command execution configuration
type Config struct {
	CommandsDir    string        `mapstructure:"commands_dir"`
	DDMScriptsDir  string        `mapstructure:"ddm_scripts_dir"`
	ToolsDir       string        `mapstructure:"tools_dir"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	BulkTimeout    time.Duration `mapstructure:"bulk_timeout"`
	MaxWorkers     int           `mapstructure:"max_workers"`
	SubprocessPath string        `mapstructure:"subprocess_path"`
}

// SetDefaults fills unset fields with defaults
func (cfg *Config) SetDefaults() {
	if cfg.CommandsDir == "" {
		cfg.CommandsDir = "/opt/nanohub/tools/api/commands"
	}
	if cfg.DDMScriptsDir == "" {
		cfg.DDMScriptsDir = "/opt/nanohub/ddm/scripts"
	}
	if cfg.ToolsDir == "" {
		cfg.ToolsDir = "/opt/nanohub/tools"
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 60 * time.Second
	}
	if cfg.BulkTimeout == 0 {
		cfg.BulkTimeout = 300 * time.Second
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 10
	}
	if cfg.SubprocessPath == "" {
		cfg.SubprocessPath = "/usr/local/bin:/usr/bin:/bin:/usr/local/sbin:/usr/sbin:/sbin"
	}
}

// Validate validates the execution configuration
func (cfg *Config) Validate() error {
	if cfg.DefaultTimeout < 0 || cfg.BulkTimeout < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}
	if cfg.MaxWorkers < 0 {
		return fmt.Errorf("max_workers must be non-negative")
	}
	return nil
}
