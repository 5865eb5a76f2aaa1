package storage

import (
	"fmt"

	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements Storage interface for SQLite
type SQLiteStorage struct {
	*BaseStorage
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(cfg *Config, logger *zap.Logger) (*SQLiteStorage, error) {
	base, err := NewBaseStorage("sqlite", "sqlite3", cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStorage{
		BaseStorage: base,
	}

	if err := s.initSchema(); err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

// initSchema creates SQLite tables
func (s *SQLiteStorage) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			command_uuid TEXT NOT NULL UNIQUE,
			device TEXT NOT NULL,
			request_type TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			success INTEGER NOT NULL DEFAULT 0,
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
