package webhook

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"nanohub/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testPoller(t *testing.T, logPath string) *Poller {
	t.Helper()
	return NewPoller(&Config{
		LogPath:               logPath,
		InitialSleep:          time.Millisecond,
		MaxAttempts:           3,
		PollInterval:          time.Millisecond,
		Window:                1000,
		DeferredBackoffFactor: 2,
		QueryMaxRetries:       2,
		QueryMaxAttempts:      2,
	}, zaptest.NewLogger(t))
}

func ackEvent(commandUUID, udid string) string {
	return fmt.Sprintf("=== MDM Event ===\n[INFO] command_uuid: %s\n[INFO] Status: Acknowledged\n[INFO] UDID: %s\n", commandUUID, udid)
}

func notNowEvent(commandUUID string) string {
	return fmt.Sprintf("=== MDM Event ===\n[INFO] command_uuid: %s\n[INFO] Status: NotNow\n", commandUUID)
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(content)
	require.NoError(t, err)
}

func TestPollFindsResult(t *testing.T) {
	path := writeLog(t, ackEvent(testUUID, "ABC123"))
	p := testPoller(t, path)

	resp, err := p.Poll(context.Background(), testUUID, nil)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.True(t, resp.Success)
	assert.Equal(t, types.StatusAcknowledged, resp.Status)
	assert.Equal(t, "ABC123", resp.UDID)
}

func TestPollNewestMatchWins(t *testing.T) {
	path := writeLog(t, notNowEvent(testUUID)+ackEvent(testUUID, "ABC123"))
	p := testPoller(t, path)

	resp, err := p.Poll(context.Background(), testUUID, nil)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.True(t, resp.Success)
	assert.False(t, resp.Deferred)
}

func TestPollNoMatchExhaustsBudget(t *testing.T) {
	path := writeLog(t, ackEvent("ffffffff-0000-0000-0000-000000000000", "OTHER"))
	p := testPoller(t, path)

	resp, err := p.Poll(context.Background(), testUUID, nil)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestPollDeferredAtExhaustion(t *testing.T) {
	path := writeLog(t, notNowEvent(testUUID))
	p := testPoller(t, path)

	resp, err := p.Poll(context.Background(), testUUID, nil)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.True(t, resp.Deferred)
	assert.False(t, resp.Success)
	assert.Equal(t, types.StatusNotNow, resp.Status)
}

func TestPollTimeoutDerivesAttempts(t *testing.T) {
	path := writeLog(t, ackEvent(testUUID, "ABC123"))
	p := testPoller(t, path)

	// Timeout shorter than one interval truncates to zero attempts, so
	// even a present result is never scanned for.
	resp, err := p.Poll(context.Background(), testUUID, &PollOptions{
		Timeout:      time.Millisecond / 2,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	assert.Nil(t, resp)

	resp, err = p.Poll(context.Background(), testUUID, &PollOptions{
		Timeout:      5 * time.Millisecond,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
}

func TestPollEmptyUUID(t *testing.T) {
	p := testPoller(t, "/nonexistent/webhook.log")

	resp, err := p.Poll(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestPollMissingLogFails(t *testing.T) {
	p := testPoller(t, "/nonexistent/webhook.log")

	resp, err := p.Poll(context.Background(), testUUID, nil)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "failed to open webhook log")
}

func TestPollContextCancellation(t *testing.T) {
	path := writeLog(t, "")
	p := testPoller(t, path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := p.Poll(ctx, testUUID, &PollOptions{
		InitialSleep: time.Minute,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueryDeviceUnknownType(t *testing.T) {
	p := testPoller(t, writeLog(t, ""))

	resp, err := p.QueryDevice(context.Background(), "ABC123", "bogus", func(context.Context, string, types.RequestType, string) error {
		t.Fatal("send should not be called for an unknown query type")
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown query type")
}

func TestQueryDeviceSuccess(t *testing.T) {
	path := writeLog(t, "")
	p := testPoller(t, path)

	var sends int
	resp, err := p.QueryDevice(context.Background(), "ABC123", types.QueryHardware,
		func(_ context.Context, udid string, rt types.RequestType, commandUUID string) error {
			sends++
			assert.Equal(t, "ABC123", udid)
			assert.Equal(t, types.RequestDeviceInformation, rt)
			appendLog(t, path, ackEvent(commandUUID, udid))
			return nil
		})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, 1, sends)
	assert.True(t, resp.Success)
	assert.Equal(t, "ABC123", resp.UDID)
}

func TestQueryDeviceSendFailure(t *testing.T) {
	p := testPoller(t, writeLog(t, ""))

	resp, err := p.QueryDevice(context.Background(), "ABC123", types.QuerySecurity,
		func(context.Context, string, types.RequestType, string) error {
			return fmt.Errorf("enqueue refused")
		})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "failed to send MDM command")
	assert.Contains(t, resp.Error, "enqueue refused")
}

func TestQueryDeviceNotResponding(t *testing.T) {
	p := testPoller(t, writeLog(t, ""))

	var uuids []string
	resp, err := p.QueryDevice(context.Background(), "ABC123", types.QueryProfiles,
		func(_ context.Context, _ string, _ types.RequestType, commandUUID string) error {
			uuids = append(uuids, commandUUID)
			return nil
		})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "device not responding")

	// A fresh command UUID per re-send.
	require.Len(t, uuids, 2)
	assert.NotEqual(t, uuids[0], uuids[1])
}

func TestQueryDeviceDeferredThenAnswered(t *testing.T) {
	path := writeLog(t, "")
	p := testPoller(t, path)

	var sends int
	resp, err := p.QueryDevice(context.Background(), "ABC123", types.QueryApps,
		func(_ context.Context, udid string, _ types.RequestType, commandUUID string) error {
			sends++
			if sends == 1 {
				appendLog(t, path, notNowEvent(commandUUID))
			} else {
				appendLog(t, path, ackEvent(commandUUID, udid))
			}
			return nil
		})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, 2, sends)
	assert.True(t, resp.Success)
	assert.False(t, resp.Deferred)
}
