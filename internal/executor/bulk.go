package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nanohub/internal/types"

	"go.uber.org/zap"
)

// ProgressFunc is invoked once per completed device, in completion
// order
type ProgressFunc func(device string, result types.CommandResult)

// BulkOptions overrides bulk execution behavior
type BulkOptions struct {
	MaxWorkers int           // 0 means the configured default
	Timeout    time.Duration // per-device timeout, 0 means the bulk default
	OnProgress ProgressFunc
}

// RunBulk executes a command on multiple devices in parallel with a
// bounded worker pool. The device UDID is passed as the first script
// argument and stamped on each result. One device's failure never
// aborts the batch; results are in completion order, not input order.
func (r *Runner) RunBulk(ctx context.Context, script string, devices []string, args []string, opts *BulkOptions) []types.CommandResult {
	if opts == nil {
		opts = &BulkOptions{}
	}

	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = r.config.MaxWorkers
	}
	if maxWorkers > len(devices) {
		maxWorkers = len(devices)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = r.config.BulkTimeout
	}

	r.logger.Info("Starting bulk command",
		zap.String("script", script),
		zap.Int("devices", len(devices)),
		zap.Int("workers", maxWorkers))

	jobs := make(chan string)
	completions := make(chan types.CommandResult)

	var wg sync.WaitGroup
	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for device := range jobs {
				completions <- r.runForDevice(ctx, script, device, args, timeout)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, device := range devices {
			select {
			case jobs <- device:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(completions)
	}()

	results := make([]types.CommandResult, 0, len(devices))
	for result := range completions {
		results = append(results, result)
		if opts.OnProgress != nil {
			opts.OnProgress(result.Device, result)
		}
	}

	return results
}

// runForDevice runs one device's dispatch, converting panics into
// failed results so the batch survives
func (r *Runner) runForDevice(ctx context.Context, script, device string, args []string, timeout time.Duration) (result types.CommandResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Bulk dispatch panicked",
				zap.String("device", device),
				zap.Any("panic", rec))
			result = types.CommandResult{
				Success:    false,
				ReturnCode: -1,
				Error:      fmt.Sprintf("dispatch panic: %v", rec),
				Device:     device,
			}
		}
	}()

	argv := append([]string{device}, args...)
	result = r.Run(ctx, script, argv, &RunOptions{Timeout: timeout})
	result.Device = device
	return result
}
