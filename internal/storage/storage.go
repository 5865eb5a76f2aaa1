package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nanohub/internal/types"

	"go.uber.org/zap"
)

// Storage persists the audit trail of dispatched commands
type Storage interface {
	// SaveCommand records a newly dispatched command
	SaveCommand(ctx context.Context, record *types.CommandRecord) error

	// CompleteCommand stamps a dispatched command with its final status
	CompleteCommand(ctx context.Context, commandUUID, status string, success bool, errMsg string) error

	// GetCommand retrieves one command record by UUID
	GetCommand(ctx context.Context, commandUUID string) (*types.CommandRecord, error)

	// GetDeviceHistory retrieves the most recent commands for a device,
	// newest first
	GetDeviceHistory(ctx context.Context, udid string, limit int) ([]*types.CommandRecord, error)

	// Cleanup deletes command records completed before the cutoff
	Cleanup(ctx context.Context, before time.Time) error

	// DB exposes the underlying handle for migration tooling
	DB() *sql.DB

	// Ping pings the database
	Ping(ctx context.Context) error

	// Close closes the database
	Close() error
}

// NewStorage creates a storage instance for the configured driver
func NewStorage(cfg *Config, logger *zap.Logger) (Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteStorage(cfg, logger)
	case "mysql":
		return NewMySQLStorage(cfg, logger)
	case "postgres":
		return NewPostgresStorage(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
