package mdm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nanohub/internal/executor"
	"nanohub/internal/types"

	"go.uber.org/zap"
)

// Client dispatches commands through the MDM server HTTP API instead of
// a local process, with the same result semantics as script execution:
// failures are reported inside the CommandResult, never raised.
type Client struct {
	config *Config
	logger *zap.Logger
	client *http.Client
}

// NewClient creates a new MDM API client
func NewClient(cfg *Config, logger *zap.Logger) *Client {
	cfg.SetDefaults()

	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &Client{
		config: cfg,
		logger: logger,
		client: client,
	}
}

// EnqueueCommand sends a command plist to the MDM server for a device.
// A 2xx response is success with the command UUID extracted from the
// response body; non-2xx preserves the status code as the return code.
func (c *Client) EnqueueCommand(ctx context.Context, udid, plist string) types.CommandResult {
	url := fmt.Sprintf("%s/%s", c.config.EnqueueURL, udid)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, strings.NewReader(plist))
	if err != nil {
		return types.CommandResult{
			Success:    false,
			ReturnCode: -1,
			Error:      err.Error(),
			Device:     udid,
		}
	}
	req.Header.Set("Content-Type", "application/xml")
	req.SetBasicAuth(c.config.APIUser, c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("MDM enqueue failed",
			zap.String("udid", udid),
			zap.Error(err))
		return types.CommandResult{
			Success:    false,
			ReturnCode: -1,
			Error:      err.Error(),
			Device:     udid,
		}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("Failed to close response body", zap.Error(err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.CommandResult{
			Success:    false,
			ReturnCode: resp.StatusCode,
			Error:      fmt.Sprintf("failed to read MDM response: %v", err),
			Device:     udid,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errMsg := fmt.Sprintf("MDM API error: HTTP %d", resp.StatusCode)
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			errMsg += " - device may not be enrolled"
		}
		c.logger.Error("MDM enqueue rejected",
			zap.String("udid", udid),
			zap.Int("status", resp.StatusCode))
		return types.CommandResult{
			Success:    false,
			Output:     string(body),
			ReturnCode: resp.StatusCode,
			Error:      errMsg,
			Device:     udid,
		}
	}

	return types.CommandResult{
		Success:     true,
		Output:      string(body),
		ReturnCode:  0,
		CommandUUID: executor.ExtractCommandUUID(string(body)),
		Device:      udid,
	}
}

// SendPush asks the MDM server to send an APNs wakeup to a device
func (c *Client) SendPush(ctx context.Context, udid string) bool {
	url := fmt.Sprintf("%s/%s", c.config.PushURL, udid)

	pushCtx, cancel := context.WithTimeout(ctx, c.config.PushTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pushCtx, http.MethodPost, url, nil)
	if err != nil {
		return false
	}
	req.SetBasicAuth(c.config.APIUser, c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Push failed",
			zap.String("udid", udid),
			zap.Error(err))
		return false
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Push rejected",
			zap.String("udid", udid),
			zap.Int("status", resp.StatusCode))
		return false
	}

	c.logger.Info("Push sent", zap.String("udid", udid))
	return true
}
