package service

import (
	"context"
	"time"

	"nanohub/internal/cache"
	"nanohub/internal/config"
	"nanohub/internal/events"
	"nanohub/internal/executor"
	"nanohub/internal/mdm"
	"nanohub/internal/storage"
	"nanohub/internal/types"
	"nanohub/internal/webhook"

	"go.uber.org/zap"
)

// Service wires the command dispatch pipeline: script execution, MDM
// API dispatch, webhook result correlation, the audit trail, the result
// cache and completion events.
type Service struct {
	config  *config.Config
	runner  *executor.Runner
	client  *mdm.Client
	poller  *webhook.Poller
	cache   cache.Cache
	storage storage.Storage
	events  events.Publisher
	logger  *zap.Logger

	startTime time.Time
	cancel    context.CancelFunc
}

// NewService creates new service instance
func NewService(cfg *config.Config, store storage.Storage, c cache.Cache, publisher events.Publisher, logger *zap.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		config:    cfg,
		runner:    executor.NewRunner(&cfg.Executor, logger),
		client:    mdm.NewClient(&cfg.MDM, logger),
		poller:    webhook.NewPoller(&cfg.Webhook, logger),
		cache:     c,
		storage:   store,
		events:    publisher,
		logger:    logger,
		startTime: time.Now(),
		cancel:    cancel,
	}

	if cfg.Storage.EnablePruning {
		go svc.startCleanupTask(ctx)
	}

	return svc
}

// Stop stops background tasks and releases resources
func (s *Service) Stop() error {
	s.cancel()

	if err := s.events.Close(); err != nil {
		s.logger.Error("Failed to close event publisher", zap.Error(err))
	}
	if err := s.cache.Close(); err != nil {
		s.logger.Error("Failed to close cache", zap.Error(err))
	}
	return s.storage.Close()
}

// startCleanupTask prunes completed audit records on an interval
func (s *Service) startCleanupTask(ctx context.Context) {
	ticker := time.NewTicker(s.config.Storage.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.config.Storage.HistoryRetention)
			if err := s.storage.Cleanup(context.Background(), cutoff); err != nil {
				s.logger.Error("Failed to cleanup command history", zap.Error(err))
			}
		}
	}
}

// RunCommand executes a local dispatch script. A script that printed a
// command UUID dispatched an MDM command, so it enters the audit trail.
func (s *Service) RunCommand(ctx context.Context, script string, args []string, timeout time.Duration) types.CommandResult {
	result := s.runner.Run(ctx, script, args, &executor.RunOptions{Timeout: timeout})
	s.auditDispatch(ctx, &result, "")
	return result
}

// RunBulk executes a dispatch script once per device on a bounded
// worker pool. Results arrive in completion order.
func (s *Service) RunBulk(ctx context.Context, script string, devices []string, args []string) []types.CommandResult {
	return s.runner.RunBulk(ctx, script, devices, args, &executor.BulkOptions{
		OnProgress: func(device string, result types.CommandResult) {
			s.auditDispatch(ctx, &result, device)
		},
	})
}

// auditDispatch records a script dispatch that yielded a command UUID
func (s *Service) auditDispatch(ctx context.Context, result *types.CommandResult, device string) {
	if result.CommandUUID == "" {
		return
	}
	if device == "" {
		device = result.Device
	}

	err := s.storage.SaveCommand(ctx, &types.CommandRecord{
		CommandUUID:  result.CommandUUID,
		Device:       device,
		Status:       "Dispatched",
		Success:      result.Success,
		DispatchedAt: time.Now(),
	})
	if err != nil {
		s.logger.Error("Failed to audit dispatched command",
			zap.String("command_uuid", result.CommandUUID),
			zap.Error(err))
	}
}

// GetDeviceHistory returns the most recent audit records for a device
func (s *Service) GetDeviceHistory(ctx context.Context, udid string, limit int) ([]*types.CommandRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.storage.GetDeviceHistory(ctx, udid, limit)
}

// PushDevice sends a bare APNs wakeup to a device
func (s *Service) PushDevice(ctx context.Context, udid string) bool {
	return s.client.SendPush(ctx, udid)
}
