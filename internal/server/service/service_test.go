package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"nanohub/internal/cache"
	"nanohub/internal/config"
	"nanohub/internal/events"
	"nanohub/internal/mdm"
	"nanohub/internal/storage"
	"nanohub/internal/types"
	"nanohub/internal/webhook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var commandUUIDPattern = regexp.MustCompile(`<key>CommandUUID</key>\s*<string>([^<]+)</string>`)

type testEnv struct {
	svc      *Service
	logPath  string
	enqueues *atomic.Int64
}

// newTestEnv builds a service against an MDM stub. The stub extracts
// the command UUID from each enqueued plist and hands it to respond,
// which plays the role of the device writing to the webhook log.
func newTestEnv(t *testing.T, respond func(commandUUID, udid string)) *testEnv {
	t.Helper()

	logPath := filepath.Join(t.TempDir(), "webhook.log")
	require.NoError(t, os.WriteFile(logPath, nil, 0644))

	var enqueues atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/enqueue/", func(w http.ResponseWriter, r *http.Request) {
		enqueues.Add(1)
		body, _ := io.ReadAll(r.Body)
		m := commandUUIDPattern.FindStringSubmatch(string(body))
		require.NotNil(t, m, "enqueued plist must carry a CommandUUID")
		if respond != nil {
			respond(m[1], filepath.Base(r.URL.Path))
		}
		fmt.Fprintf(w, `{"command_uuid": "%s"}`, m[1])
	})
	mux.HandleFunc("/push/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	logger := zaptest.NewLogger(t)

	cfg := &config.Config{
		MDM: mdmConfig(srv.URL),
		Webhook: webhook.Config{
			LogPath:               logPath,
			InitialSleep:          time.Millisecond,
			MaxAttempts:           3,
			PollInterval:          time.Millisecond,
			Window:                1000,
			DeferredBackoffFactor: 2,
			QueryMaxRetries:       2,
			QueryMaxAttempts:      2,
		},
		Storage: storage.Config{Driver: "sqlite", DSN: ":memory:"},
	}
	cfg.Cache.SetDefaults()

	store, err := storage.NewStorage(&cfg.Storage, logger)
	require.NoError(t, err)

	c, err := cache.New(&cfg.Cache, logger)
	require.NoError(t, err)

	publisher, err := events.NewPublisher(&cfg.Events, logger)
	require.NoError(t, err)

	svc := NewService(cfg, store, c, publisher, logger)
	t.Cleanup(func() {
		require.NoError(t, svc.Stop())
	})

	return &testEnv{svc: svc, logPath: logPath, enqueues: &enqueues}
}

func mdmConfig(baseURL string) mdm.Config {
	return mdm.Config{
		EnqueueURL: baseURL + "/enqueue",
		PushURL:    baseURL + "/push",
		APIKey:     "secret",
	}
}

func (e *testEnv) appendLog(content string) {
	f, err := os.OpenFile(e.logPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
}

func TestQueryDeviceEndToEnd(t *testing.T) {
	var env *testEnv
	env = newTestEnv(t, func(commandUUID, udid string) {
		env.appendLog(fmt.Sprintf(
			"=== MDM Event ===\n[INFO] command_uuid: %s\n[INFO] Status: Acknowledged\n[INFO] UDID: %s\n[INFO] BatteryLevel: 0.95\n",
			commandUUID, udid))
	})

	resp, err := env.svc.QueryDevice(context.Background(), "ABC123", types.QueryHardware)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.True(t, resp.Success)
	assert.Equal(t, "ABC123", resp.UDID)
	assert.Equal(t, 0.95, resp.Data["BatteryLevel"].Interface())
	assert.Equal(t, int64(1), env.enqueues.Load())

	// Audit record was completed.
	records, err := env.svc.GetDeviceHistory(context.Background(), "ABC123", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, types.StatusAcknowledged, records[0].Status)
	assert.True(t, records[0].Success)
}

func TestQueryDeviceServedFromCache(t *testing.T) {
	var env *testEnv
	env = newTestEnv(t, func(commandUUID, udid string) {
		env.appendLog(fmt.Sprintf(
			"=== MDM Event ===\n[INFO] command_uuid: %s\n[INFO] Status: Acknowledged\n[INFO] UDID: %s\n",
			commandUUID, udid))
	})
	ctx := context.Background()

	_, err := env.svc.QueryDevice(ctx, "ABC123", types.QuerySecurity)
	require.NoError(t, err)

	resp, err := env.svc.QueryDevice(ctx, "ABC123", types.QuerySecurity)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.True(t, resp.Success)
	assert.Equal(t, int64(1), env.enqueues.Load(), "second query must not re-dispatch")
}

func TestQueryDeviceNotResponding(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := env.svc.QueryDevice(context.Background(), "ABC123", types.QueryProfiles)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "device not responding")
	assert.Equal(t, int64(2), env.enqueues.Load(), "one dispatch per outer retry")
}

func TestSendCommandDeviceNotEnrolled(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "webhook.log")
	require.NoError(t, os.WriteFile(logPath, nil, 0644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	logger := zaptest.NewLogger(t)
	cfg := &config.Config{
		MDM:     mdmConfig(srv.URL),
		Webhook: webhook.Config{LogPath: logPath, InitialSleep: time.Millisecond, MaxAttempts: 1, PollInterval: time.Millisecond},
		Storage: storage.Config{Driver: "sqlite", DSN: ":memory:"},
	}
	cfg.Cache.SetDefaults()

	store, err := storage.NewStorage(&cfg.Storage, logger)
	require.NoError(t, err)
	c, err := cache.New(&cfg.Cache, logger)
	require.NoError(t, err)
	publisher, err := events.NewPublisher(&cfg.Events, logger)
	require.NoError(t, err)

	svc := NewService(cfg, store, c, publisher, logger)
	t.Cleanup(func() {
		require.NoError(t, svc.Stop())
	})

	outcome, err := svc.SendCommand(context.Background(), "ABC123", types.RequestDeviceLock)
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.False(t, outcome.Result.Success)
	assert.Equal(t, http.StatusNotFound, outcome.Result.ReturnCode)
	assert.Contains(t, outcome.Result.Error, "device may not be enrolled")
	assert.Nil(t, outcome.Response)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, nil)

	status := env.svc.HealthCheck(context.Background())
	assert.True(t, status.Healthy)
	require.Len(t, status.Details, 2)
	for _, d := range status.Details {
		assert.Equal(t, "healthy", d.Status)
	}
}
