package storage

import (
	"fmt"

	"go.uber.org/zap"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStorage implements Storage interface for MySQL
type MySQLStorage struct {
	*BaseStorage
}

// NewMySQLStorage creates a new MySQL storage instance
func NewMySQLStorage(cfg *Config, logger *zap.Logger) (*MySQLStorage, error) {
	base, err := NewBaseStorage("mysql", "mysql", cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &MySQLStorage{
		BaseStorage: base,
	}

	if err := s.initSchema(); err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

// initSchema creates MySQL tables
func (s *MySQLStorage) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS commands (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			command_uuid VARCHAR(64) NOT NULL UNIQUE,
			device VARCHAR(64) NOT NULL,
			request_type VARCHAR(64) NOT NULL DEFAULT '',
			status VARCHAR(32) NOT NULL DEFAULT '',
			success TINYINT(1) NOT NULL DEFAULT 0,
			error TEXT NOT NULL,
			dispatched_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP NULL,
			INDEX idx_commands_device_time (device, dispatched_at)
		)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}
