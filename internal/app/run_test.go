package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frieda566/plant-watering-system/internal/config"
	"github.com/frieda566/plant-watering-system/internal/ingest"
	"github.com/frieda566/plant-watering-system/internal/telegram"
)

// linePort serves its lines once, then behaves like an idle port with a
// read timeout until closed.
type linePort struct {
	mu     sync.Mutex
	data   []byte
	closed chan struct{}
	once   sync.Once
}

func (p *linePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if len(p.data) > 0 {
		n := copy(b, p.data)
		p.data = p.data[n:]
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()
	select {
	case <-p.closed:
		return 0, io.ErrClosedPipe
	case <-time.After(5 * time.Millisecond):
		return 0, nil
	}
}

func (p *linePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().String()
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		AppEnv:             "dev",
		HTTPAddr:           pickFreeAddr(t),
		SQLiteDriver:       "sqlite3",
		SQLitePath:         filepath.Join(t.TempDir(), "plant_data.db"),
		SQLiteMaxOpenConns: 1,
		SQLiteMaxIdleConns: 1,
		Schema:             telegram.Compact(),
		SnapshotHour:       -1,
	}
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	if v != nil {
		_ = json.NewDecoder(resp.Body).Decode(v)
	}
	return resp.StatusCode
}

func start(t *testing.T, cfg config.Config, open ingest.Opener) (cancel func() error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	done := make(chan error, 1)
	go func() { done <- RunWithOpener(ctx, cfg, logger, open) }()

	require.Eventually(t, func() bool {
		return getJSON(t, "http://"+cfg.HTTPAddr+"/healthz", nil) == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	return func() error {
		stop()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after cancel")
			return nil
		}
	}
}

func TestRun_ServesWithoutSerialDevice(t *testing.T) {
	cfg := testConfig(t)
	stop := start(t, cfg, func(context.Context) (ingest.Port, error) {
		return nil, errors.New("no such file or directory")
	})
	base := "http://" + cfg.HTTPAddr

	var health map[string]string
	require.Equal(t, http.StatusOK, getJSON(t, base+"/healthz", &health))
	assert.Equal(t, "disconnected", health["serial"])

	var latest map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, base+"/api/v1/readings/latest", &latest))
	assert.Contains(t, latest, "reading")
	assert.Nil(t, latest["reading"])

	var conn map[string]string
	require.Equal(t, http.StatusOK, getJSON(t, base+"/api/v1/connection", &conn))
	assert.Contains(t, conn["error"], "serial connection failed")

	assert.ErrorIs(t, stop(), context.Canceled)
}

func TestRun_IngestsIntoStoreAndSlot(t *testing.T) {
	cfg := testConfig(t)
	port := &linePort{data: []byte("M:45,T:22,H:55\nM:40,T:21,H:50\n"), closed: make(chan struct{})}
	stop := start(t, cfg, func(context.Context) (ingest.Port, error) { return port, nil })
	base := "http://" + cfg.HTTPAddr

	var rows []map[string]any
	require.Eventually(t, func() bool {
		rows = nil
		return getJSON(t, base+"/api/v1/readings?order=oldest", &rows) == http.StatusOK && len(rows) == 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.EqualValues(t, 45, rows[0]["moisture"])
	assert.EqualValues(t, 40, rows[1]["moisture"])

	var latest struct {
		Reading map[string]any `json:"reading"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, base+"/api/v1/readings/latest", &latest))
	assert.EqualValues(t, 50, latest.Reading["humidity"])

	var health map[string]string
	getJSON(t, base+"/healthz", &health)
	assert.Equal(t, "connected", health["serial"])

	assert.ErrorIs(t, stop(), context.Canceled)
	select {
	case <-port.closed:
	default:
		t.Error("serial port left open after shutdown")
	}
}
