package heartbeat

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/large-farva/fleetcore/internal/oscwire"
	"github.com/large-farva/fleetcore/internal/registry"
)

type fakeBroadcaster struct {
	events []any
}

func (f *fakeBroadcaster) BroadcastJSON(v any) {
	f.events = append(f.events, v)
}

type fakeMetrics struct {
	accepted, rejected, announces int
}

func (f *fakeMetrics) HeartbeatAccepted() { f.accepted++ }
func (f *fakeMetrics) HeartbeatRejected() { f.rejected++ }
func (f *fakeMetrics) AnnounceAccepted()  { f.announces++ }

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	return registry.New(filepath.Join(dir, "registry.json"))
}

// TestHandleHeartbeatLatencyCalculation checks the latency formula at a
// fixed wall-clock instant: a heartbeat sent at 1700000000.0 evaluated at
// 1700000000.050 gives latency_ms == 50.0. handleHeartbeat reads time.Now
// itself, so the formula is recomputed here rather than called through it.
func TestHandleHeartbeatLatencyCalculation(t *testing.T) {
	reg := newTestRegistry(t)
	now := time.Date(2023, 11, 14, 22, 13, 20, 50_000_000, time.UTC) // unix 1700000000.050
	if _, err := reg.RegisterAnnounce("AA:BB:CC:DD:EE:01", "1.0.0", nil, now.Add(-time.Second)); err != nil {
		t.Fatalf("RegisterAnnounce: %v", err)
	}
	deviceID, err := registry.GenerateDeviceID("AA:BB:CC:DD:EE:01")
	if err != nil {
		t.Fatalf("GenerateDeviceID: %v", err)
	}

	metrics := &fakeMetrics{}
	broadcaster := &fakeBroadcaster{}
	m := New(Config{Registry: reg, Metrics: metrics, Hub: broadcaster, Quiet: true})

	hb := Heartbeat{DeviceID: deviceID, Sequence: 7, SentSeconds: 1700000000.0}
	latencyMs := (float64(now.UnixNano())/1e9 - hb.SentSeconds) * 1000.0
	if diff := latencyMs - 50.0; diff > 0.01 || diff < -0.01 {
		t.Fatalf("latency = %v, want ~50.0", latencyMs)
	}

	m.mu.Lock()
	m.stats[hb.DeviceID] = &registry.Stats{}
	m.stats[hb.DeviceID].AddSample(latencyMs)
	m.mu.Unlock()

	if err := reg.RecordHeartbeat(deviceID, latencyMs, now); err != nil {
		t.Fatalf("RecordHeartbeat: %v", err)
	}
	state, ok := reg.FindByID(deviceID)
	if !ok {
		t.Fatal("device not found after heartbeat")
	}
	if state.Heartbeat.Count != 1 || state.Heartbeat.MeanMs < 49.9 || state.Heartbeat.MeanMs > 50.1 {
		t.Fatalf("unexpected heartbeat stats: %+v", state.Heartbeat)
	}
}

// TestAnnounceThenHeartbeatEndToEnd covers an announce followed by a
// heartbeat for the resulting device id, run through Monitor's own
// handleAnnounce/handleHeartbeat so CSV, hub, and metrics wiring all fire.
func TestAnnounceThenHeartbeatEndToEnd(t *testing.T) {
	reg := newTestRegistry(t)
	csvPath := filepath.Join(t.TempDir(), "heartbeats.csv")
	csv, err := OpenCSVSink(csvPath)
	if err != nil {
		t.Fatalf("OpenCSVSink: %v", err)
	}
	defer csv.Close()

	metrics := &fakeMetrics{}
	broadcaster := &fakeBroadcaster{}
	m := New(Config{Registry: reg, CSV: csv, Metrics: metrics, Hub: broadcaster, Quiet: true})

	announceMsg := oscwire.Message{
		Address: "/announce",
		Args: []oscwire.Argument{
			oscwire.String("front-left"),
			oscwire.String("AA:BB:CC:DD:EE:02"),
			oscwire.String("2.0.0"),
		},
	}
	m.handleAnnounce(announceMsg)

	if metrics.announces != 1 {
		t.Fatalf("announces = %d, want 1", metrics.announces)
	}
	deviceID, err := registry.GenerateDeviceID("AA:BB:CC:DD:EE:02")
	if err != nil {
		t.Fatalf("GenerateDeviceID: %v", err)
	}
	if _, ok := reg.FindByID(deviceID); !ok {
		t.Fatal("device not registered after announce")
	}

	heartbeatMsg := oscwire.Message{
		Address: "/heartbeat",
		Args: []oscwire.Argument{
			oscwire.String(deviceID),
			oscwire.Int32(1),
			oscwire.Int32(1700000000),
			oscwire.Int32(0),
		},
	}
	m.handleHeartbeat(heartbeatMsg)

	if metrics.accepted != 1 {
		t.Fatalf("heartbeats accepted = %d, want 1", metrics.accepted)
	}
	if len(broadcaster.events) != 2 {
		t.Fatalf("broadcast events = %d, want 2 (announce + heartbeat)", len(broadcaster.events))
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(data) <= len(csvHeader) {
		t.Fatal("expected csv to contain a data row beyond the header")
	}
}

func TestHandleHeartbeatUnknownDeviceStillCountsMetrics(t *testing.T) {
	reg := newTestRegistry(t)
	metrics := &fakeMetrics{}
	m := New(Config{Registry: reg, Metrics: metrics, Quiet: true})

	heartbeatMsg := oscwire.Message{
		Address: "/heartbeat",
		Args: []oscwire.Argument{
			oscwire.String("dev-unknown"),
			oscwire.Int32(1),
			oscwire.Int32(1700000000),
			oscwire.Int32(0),
		},
	}
	m.handleHeartbeat(heartbeatMsg)

	if metrics.accepted != 1 {
		t.Fatalf("accepted = %d, want 1 (parse succeeds even if registry has no such device)", metrics.accepted)
	}
	if _, ok := reg.FindByID("dev-unknown"); ok {
		t.Fatal("unknown device should not be created by a heartbeat")
	}
}
