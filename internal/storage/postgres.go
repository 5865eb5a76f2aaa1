package storage

import (
	"fmt"

	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStorage implements Storage interface for PostgreSQL
type PostgresStorage struct {
	*BaseStorage
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(cfg *Config, logger *zap.Logger) (*PostgresStorage, error) {
	base, err := NewBaseStorage("postgres", "pgx", cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &PostgresStorage{
		BaseStorage: base,
	}

	if err := s.initSchema(); err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

// initSchema creates PostgreSQL tables
func (s *PostgresStorage) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS commands (
			id BIGSERIAL PRIMARY KEY,
			command_uuid VARCHAR(64) NOT NULL UNIQUE,
			device VARCHAR(64) NOT NULL,
			request_type VARCHAR(64) NOT NULL DEFAULT '',
			status VARCHAR(32) NOT NULL DEFAULT '',
			success BOOLEAN NOT NULL DEFAULT FALSE,
			error TEXT NOT NULL DEFAULT '',
			dispatched_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_commands_device_time
		ON commands(device, dispatched_at)`,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range queries {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return tx.Commit()
}
