package webhook

import (
	"context"
	"fmt"
	"time"

	"nanohub/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Poller drives the retry loop that correlates a command UUID with its
// asynchronous result in the webhook log. Absence of a result is a
// normal negative outcome, not an error.
type Poller struct {
	config *Config
	logger *zap.Logger
}

// NewPoller creates a new poller
func NewPoller(cfg *Config, logger *zap.Logger) *Poller {
	cfg.SetDefaults()
	return &Poller{
		config: cfg,
		logger: logger,
	}
}

// PollOptions overrides the configured poll budget per call. Zero
// fields fall back to the configured defaults.
type PollOptions struct {
	InitialSleep time.Duration
	MaxAttempts  int
	PollInterval time.Duration
	Window       int
	// Timeout, when set, derives the attempt count as timeout divided
	// by the poll interval, truncating; it replaces MaxAttempts rather
	// than combining with it.
	Timeout time.Duration
}

// Poll scans the webhook log for a block matching commandUUID until one
// is found or the attempt budget is exhausted. Blocks are scanned
// newest-first each attempt, so the most recent event for an identifier
// wins over older duplicates. A deferred match extends the sleep by the
// configured backoff factor and still consumes an attempt; if the
// budget ends with only deferrals seen, the last deferred response is
// returned so callers can distinguish a deferring device from a silent
// one. (nil, nil) means no event referenced the identifier at all.
func (p *Poller) Poll(ctx context.Context, commandUUID string, opts *PollOptions) (*types.PollResponse, error) {
	if commandUUID == "" {
		return nil, nil
	}
	if opts == nil {
		opts = &PollOptions{}
	}

	initialSleep := opts.InitialSleep
	if initialSleep == 0 {
		initialSleep = p.config.InitialSleep
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = p.config.MaxAttempts
	}
	interval := opts.PollInterval
	if interval == 0 {
		interval = p.config.PollInterval
	}
	window := opts.Window
	if window == 0 {
		window = p.config.Window
	}
	if opts.Timeout > 0 && interval > 0 {
		maxAttempts = int(opts.Timeout / interval)
	}

	p.logger.Info("Polling for command result",
		zap.String("command_uuid", commandUUID),
		zap.Int("max_attempts", maxAttempts))

	if err := sleepCtx(ctx, initialSleep); err != nil {
		return nil, err
	}

	var lastDeferred *types.PollResponse

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := p.checkLog(commandUUID, window)
		if err != nil {
			return nil, err
		}

		if resp != nil {
			if resp.Deferred {
				lastDeferred = resp
				p.logger.Info("Device deferred command",
					zap.String("command_uuid", commandUUID),
					zap.Int("attempt", attempt),
					zap.Int("max_attempts", maxAttempts))
				if err := sleepCtx(ctx, interval*time.Duration(p.config.DeferredBackoffFactor)); err != nil {
					return nil, err
				}
				continue
			}
			return resp, nil
		}

		if err := sleepCtx(ctx, interval); err != nil {
			return nil, err
		}
	}

	if lastDeferred != nil {
		return lastDeferred, nil
	}

	p.logger.Warn("Poll budget exhausted without a match",
		zap.String("command_uuid", commandUUID))
	return nil, nil
}

// checkLog scans one tail window newest-first for a matching block
func (p *Poller) checkLog(commandUUID string, window int) (*types.PollResponse, error) {
	blocks, err := ReadBlocks(p.config.LogPath, window)
	if err != nil {
		return nil, err
	}

	for i := len(blocks) - 1; i >= 0; i-- {
		if BlockMatches(blocks[i], commandUUID) {
			return ParseBlock(blocks[i], commandUUID), nil
		}
	}
	return nil, nil
}

// SendFunc dispatches one MDM command carrying the given UUID
type SendFunc func(ctx context.Context, udid string, requestType types.RequestType, commandUUID string) error

// QueryDevice issues a device query and polls for its result, re-sending
// with a fresh command UUID when the device keeps deferring. UUIDs are
// never reused across attempts. Gives up after the configured outer
// retry budget with a device-not-responding response.
func (p *Poller) QueryDevice(ctx context.Context, udid string, query types.QueryType, send SendFunc) (*types.PollResponse, error) {
	requestType, ok := types.RequestTypeFor(query)
	if !ok {
		return &types.PollResponse{
			Success: false,
			Error:   fmt.Sprintf("unknown query type: %s", query),
		}, nil
	}

	for attempt := 0; attempt < p.config.QueryMaxRetries; attempt++ {
		commandUUID := uuid.New().String()

		if err := send(ctx, udid, requestType, commandUUID); err != nil {
			return &types.PollResponse{
				Success:     false,
				CommandUUID: commandUUID,
				UDID:        udid,
				Error:       fmt.Sprintf("failed to send MDM command: %v", err),
			}, nil
		}

		initialSleep := p.config.InitialSleep
		if attempt > 0 {
			initialSleep = p.config.PollInterval
		}

		resp, err := p.Poll(ctx, commandUUID, &PollOptions{
			InitialSleep: initialSleep,
			MaxAttempts:  p.config.QueryMaxAttempts,
		})
		if err != nil {
			return nil, err
		}

		if resp != nil {
			if resp.Deferred && attempt < p.config.QueryMaxRetries-1 {
				p.logger.Info("Device deferred query, re-sending",
					zap.String("udid", udid),
					zap.Int("attempt", attempt+1))
				if err := sleepCtx(ctx, 2*p.config.PollInterval); err != nil {
					return nil, err
				}
				continue
			}
			return resp, nil
		}
	}

	return &types.PollResponse{
		Success: false,
		UDID:    udid,
		Error:   "device not responding; it may be offline or asleep",
	}, nil
}

// sleepCtx sleeps for d unless the context ends first
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
