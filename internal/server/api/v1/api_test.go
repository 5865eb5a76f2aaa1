package v1_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"nanohub/internal/cache"
	"nanohub/internal/config"
	"nanohub/internal/events"
	"nanohub/internal/mdm"
	"nanohub/internal/server/api"
	"nanohub/internal/server/service"
	"nanohub/internal/storage"
	"nanohub/internal/webhook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testUDID = "00008030-000E4D263C05802E"

var commandUUIDPattern = regexp.MustCompile(`<key>CommandUUID</key>\s*<string>([^<]+)</string>`)

// newTestHandler stands up the full HTTP stack against an MDM stub
// that answers every enqueued command through the webhook log
func newTestHandler(t *testing.T, cfgFn func(*config.Config)) http.Handler {
	t.Helper()

	logPath := filepath.Join(t.TempDir(), "webhook.log")
	require.NoError(t, os.WriteFile(logPath, nil, 0644))

	mux := http.NewServeMux()
	mux.HandleFunc("/enqueue/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		m := commandUUIDPattern.FindStringSubmatch(string(body))
		require.NotNil(t, m)

		event := fmt.Sprintf(
			"=== MDM Event ===\n[INFO] command_uuid: %s\n[INFO] Status: Acknowledged\n[INFO] UDID: %s\n[INFO] BatteryLevel: 0.95\n[0] com.example.wifi (Corporate WiFi) - Installed\n",
			m[1], filepath.Base(r.URL.Path))

		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0644)
		require.NoError(t, err)
		_, err = f.WriteString(event)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		fmt.Fprintf(w, `{"command_uuid": "%s"}`, m[1])
	})
	mux.HandleFunc("/push/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	logger := zaptest.NewLogger(t)

	cfg := &config.Config{
		MDM: mdm.Config{
			EnqueueURL: srv.URL + "/enqueue",
			PushURL:    srv.URL + "/push",
			APIKey:     "secret",
		},
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
	cfg.Log.SetDefaults()
	if cfgFn != nil {
		cfgFn(cfg)
	}

	store, err := storage.NewStorage(&cfg.Storage, logger)
	require.NoError(t, err)
	c, err := cache.New(&cfg.Cache, logger)
	require.NoError(t, err)
	publisher, err := events.NewPublisher(&cfg.Events, logger)
	require.NoError(t, err)

	svc := service.NewService(cfg, store, c, publisher, logger)
	t.Cleanup(func() {
		require.NoError(t, svc.Stop())
	})

	return api.NewRouter(cfg, svc, logger).Handler()
}

func doRequest(handler http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler(t, nil)

	w := doRequest(handler, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, true, data["healthy"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestGetDeviceInfo(t *testing.T) {
	handler := newTestHandler(t, nil)

	w := doRequest(handler, http.MethodGet, "/api/v1/devices/"+testUDID+"/info", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, testUDID, data["udid"])

	info, ok := data["info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0.95, info["BatteryLevel"])
}

func TestGetProfiles(t *testing.T) {
	handler := newTestHandler(t, nil)

	w := doRequest(handler, http.MethodGet, "/api/v1/devices/"+testUDID+"/profiles", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	profiles, ok := data["profiles"].([]any)
	require.True(t, ok)
	require.Len(t, profiles, 1)

	profile := profiles[0].(map[string]any)
	assert.Equal(t, "com.example.wifi", profile["identifier"])
	assert.Equal(t, "Installed", profile["status"])
}

func TestInvalidUDIDRejected(t *testing.T) {
	handler := newTestHandler(t, nil)

	w := doRequest(handler, http.MethodGet, "/api/v1/devices/not-a-udid/info", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPushDevice(t *testing.T) {
	handler := newTestHandler(t, nil)

	w := doRequest(handler, http.MethodPost, "/api/v1/devices/"+testUDID+"/push", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "pushed", data["status"])
}

func TestSendCommand(t *testing.T) {
	handler := newTestHandler(t, nil)

	w := doRequest(handler, http.MethodPost, "/api/v1/devices/"+testUDID+"/commands",
		`{"request_type": "DeviceLock"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	result, ok := data["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, result["success"])
}

func TestSendCommandUnsupportedType(t *testing.T) {
	handler := newTestHandler(t, nil)

	w := doRequest(handler, http.MethodPost, "/api/v1/devices/"+testUDID+"/commands",
		`{"request_type": "EraseDevice"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHistory(t *testing.T) {
	handler := newTestHandler(t, nil)

	// Dispatch something first so history is non-empty.
	w := doRequest(handler, http.MethodGet, "/api/v1/devices/"+testUDID+"/info", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(handler, http.MethodGet, "/api/v1/devices/"+testUDID+"/history", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	commands, ok := data["commands"].([]any)
	require.True(t, ok)
	require.Len(t, commands, 1)

	record := commands[0].(map[string]any)
	assert.Equal(t, "Acknowledged", record["status"])
}

func TestAuthRequired(t *testing.T) {
	handler := newTestHandler(t, func(cfg *config.Config) {
		cfg.API.Auth.Enabled = true
		cfg.API.Auth.Tokens = []string{"test-token"}
	})

	w := doRequest(handler, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(handler, http.MethodGet, "/api/v1/health", "",
		map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(handler, http.MethodGet, "/api/v1/health", "",
		map[string]string{"Authorization": "Bearer test-token"})
	assert.Equal(t, http.StatusOK, w.Code)
}
