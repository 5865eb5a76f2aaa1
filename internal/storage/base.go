package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"nanohub/internal/types"

	"go.uber.org/zap"
)

// Metrics tracks query counters for a storage backend
type Metrics struct {
	QueryCount     int64
	QueryErrors    int64
	SlowQueryCount int64
}

// BaseStorage is the shared implementation of the Storage interface.
// Queries are written with ? placeholders and rebound per dialect.
type BaseStorage struct {
	db       *sql.DB
	cfg      *Config
	logger   *zap.Logger
	metrics  *Metrics
	rebindFn func(string) string
}

// NewBaseStorage opens and pings a database connection
func NewBaseStorage(driver, sqlDriver string, cfg *Config, logger *zap.Logger) (*BaseStorage, error) {
	db, err := sql.Open(sqlDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("failed to close database", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &BaseStorage{
		db:      db,
		cfg:     cfg,
		logger:  logger,
		metrics: &Metrics{},
	}

	if driver == "postgres" {
		s.rebindFn = rebindPostgres
	}

	return s, nil
}

// DB exposes the underlying handle for migrations
func (s *BaseStorage) DB() *sql.DB {
	return s.db
}

// SaveCommand records a newly dispatched command
func (s *BaseStorage) SaveCommand(ctx context.Context, record *types.CommandRecord) error {
	query := `
        INSERT INTO commands (command_uuid, device, request_type, status, success, error, dispatched_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`

	dispatched := record.DispatchedAt
	if dispatched.IsZero() {
		dispatched = time.Now()
	}

	_, err := s.ExecContext(ctx, query,
		record.CommandUUID,
		record.Device,
		record.RequestType,
		record.Status,
		record.Success,
		record.Error,
		dispatched)

	if err != nil {
		return fmt.Errorf("failed to save command: %w", err)
	}
	return nil
}

// CompleteCommand stamps a dispatched command with its final status
func (s *BaseStorage) CompleteCommand(ctx context.Context, commandUUID, status string, success bool, errMsg string) error {
	query := `
        UPDATE commands
        SET status = ?, success = ?, error = ?, completed_at = ?
        WHERE command_uuid = ?`

	result, err := s.ExecContext(ctx, query, status, success, errMsg, time.Now(), commandUUID)
	if err != nil {
		return fmt.Errorf("failed to complete command: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return types.ErrCommandNotFound
	}
	return nil
}

// GetCommand retrieves one command record by UUID
func (s *BaseStorage) GetCommand(ctx context.Context, commandUUID string) (*types.CommandRecord, error) {
	query := `
        SELECT command_uuid, device, request_type, status, success, error, dispatched_at, completed_at
        FROM commands WHERE command_uuid = ?`

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, s.rebind(query), commandUUID)

	record, err := scanCommand(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrCommandNotFound
	}
	return record, err
}

// GetDeviceHistory retrieves the most recent commands for a device
func (s *BaseStorage) GetDeviceHistory(ctx context.Context, udid string, limit int) ([]*types.CommandRecord, error) {
	query := `
        SELECT command_uuid, device, request_type, status, success, error, dispatched_at, completed_at
        FROM commands
        WHERE device = ?
        ORDER BY dispatched_at DESC
        LIMIT ?`

	rows, err := s.QueryContext(ctx, query, udid, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query device history: %w", err)
	}
	defer rows.Close()

	var records []*types.CommandRecord
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return records, nil
}

// Cleanup deletes command records completed before the cutoff
func (s *BaseStorage) Cleanup(ctx context.Context, before time.Time) error {
	query := "DELETE FROM commands WHERE completed_at IS NOT NULL AND completed_at < ?"

	result, err := s.ExecContext(ctx, query, before)
	if err != nil {
		return fmt.Errorf("failed to cleanup commands: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	s.logger.Info("Cleanup completed",
		zap.Time("before", before),
		zap.Int64("deleted", affected))
	return nil
}

// scanner covers both sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// scanCommand scans one commands row
func scanCommand(row scanner) (*types.CommandRecord, error) {
	record := &types.CommandRecord{}
	var completed sql.NullTime

	err := row.Scan(
		&record.CommandUUID,
		&record.Device,
		&record.RequestType,
		&record.Status,
		&record.Success,
		&record.Error,
		&record.DispatchedAt,
		&completed)
	if err != nil {
		return nil, err
	}

	if completed.Valid {
		record.CompletedAt = completed.Time
	}
	return record, nil
}

// ExecContext executes a query
func (s *BaseStorage) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	// Timeout
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	s.track(query, time.Since(start), err)

	return result, err
}

// QueryContext executes a query
func (s *BaseStorage) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	// Timeout
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	s.track(query, time.Since(start), err)

	return rows, err
}

// track updates query metrics and logs slow queries
func (s *BaseStorage) track(query string, duration time.Duration, err error) {
	atomic.AddInt64(&s.metrics.QueryCount, 1)
	if err != nil {
		atomic.AddInt64(&s.metrics.QueryErrors, 1)
	}

	if duration > s.cfg.SlowQueryTime {
		atomic.AddInt64(&s.metrics.SlowQueryCount, 1)
		s.logger.Warn("slow query detected",
			zap.String("query", query),
			zap.Duration("duration", duration))
	}
}

// rebind converts ? placeholders to the dialect's form
func (s *BaseStorage) rebind(query string) string {
	if s.rebindFn == nil {
		return query
	}
	return s.rebindFn(query)
}

// rebindPostgres rewrites ? placeholders to $1..$N
func rebindPostgres(query string) string {
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Close closes the database
func (s *BaseStorage) Close() error {
	return s.db.Close()
}

// Ping pings the database
func (s *BaseStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
