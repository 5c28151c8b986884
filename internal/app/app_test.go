package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/large-farva/fleetcore/internal/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	return 39000 + (int(time.Now().UnixNano()) % 2000)
}

func TestAppServesStatusAndHealthz(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Heartbeat.RegistryPath = filepath.Join(dir, "registry.json")
	cfg.Heartbeat.Port = freePort(t)
	cfg.Telemetry.Path = "/ws"

	bind := "127.0.0.1:" + strconv.Itoa(freePort(t)+1)

	var logBuf bytes.Buffer
	a := New(Options{Logger: log.New(&logBuf, "", 0), Cfg: cfg, Bind: bind})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	baseURL := "http://" + bind
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get(baseURL + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	statusResp, err := http.Get(baseURL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer statusResp.Body.Close()
	var status map[string]any
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status["name"] != "fleetcore-monitor" {
		t.Fatalf("unexpected status payload: %+v", status)
	}

	devicesResp, err := http.Get(baseURL + "/api/devices")
	if err != nil {
		t.Fatalf("GET /api/devices: %v", err)
	}
	defer devicesResp.Body.Close()
	var devices map[string]any
	if err := json.NewDecoder(devicesResp.Body).Decode(&devices); err != nil {
		t.Fatalf("decode devices: %v", err)
	}
	if _, ok := devices["devices"]; !ok {
		t.Fatalf("expected devices key in response: %+v", devices)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
