package registry

import (
	"math"
	"path/filepath"
	"testing"
	"time"
)

func TestWelfordStatsCorrectness(t *testing.T) {
	var s Stats
	for _, v := range []float64{10, 20, 30} {
		s.AddSample(v)
	}
	if s.Count != 3 {
		t.Fatalf("count = %d, want 3", s.Count)
	}
	if math.Abs(s.MeanMs-20) > 1e-9 {
		t.Fatalf("mean = %v, want 20", s.MeanMs)
	}
	if math.Abs(s.Variance()-100) > 1e-9 {
		t.Fatalf("variance = %v, want 100", s.Variance())
	}
}

func TestVarianceZeroBeforeTwoSamples(t *testing.T) {
	var s Stats
	s.AddSample(42)
	if s.Variance() != 0 {
		t.Fatalf("variance with one sample = %v, want 0", s.Variance())
	}
}

func TestRegisterAnnounceDeterministicID(t *testing.T) {
	dir := t.TempDir()
	reg := New(filepath.Join(dir, "registry.json"))

	now := time.Now()
	first, err := reg.RegisterAnnounce("A1:B2:C3:D4:E5:F6", "1.0.0", nil, now)
	if err != nil {
		t.Fatalf("RegisterAnnounce: %v", err)
	}
	if first.ID != "dev-a1b2c3d4e5f6" {
		t.Fatalf("id = %q, want dev-a1b2c3d4e5f6", first.ID)
	}

	second, err := reg.RegisterAnnounce("A1:B2:C3:D4:E5:F6", "1.0.1", nil, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("RegisterAnnounce: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second announce id = %q, want %q", second.ID, first.ID)
	}
	if len(reg.Snapshot()) != 1 {
		t.Fatalf("expected a single entry after re-announcing the same MAC, got %d", len(reg.Snapshot()))
	}
}

func TestAnnounceThenHeartbeatRecordsLatency(t *testing.T) {
	dir := t.TempDir()
	reg := New(filepath.Join(dir, "registry.json"))

	state, err := reg.RegisterAnnounce("AA:BB:CC:DD:EE:FF", "0.1.0", nil, time.Now())
	if err != nil {
		t.Fatalf("RegisterAnnounce: %v", err)
	}
	if state.ID != "dev-aabbccddeeff" {
		t.Fatalf("id = %q, want dev-aabbccddeeff", state.ID)
	}

	if err := reg.RecordHeartbeat(state.ID, 50.0, time.Now()); err != nil {
		t.Fatalf("RecordHeartbeat: %v", err)
	}
	got, ok := reg.FindByID(state.ID)
	if !ok {
		t.Fatal("expected device to be found after heartbeat")
	}
	if got.Heartbeat.Count != 1 || math.Abs(got.Heartbeat.MeanMs-50.0) > 1e-9 {
		t.Fatalf("heartbeat stats = %+v, want count=1 mean=50.0", got.Heartbeat)
	}
}

func TestHeartbeatForUnknownDeviceIsDropped(t *testing.T) {
	dir := t.TempDir()
	reg := New(filepath.Join(dir, "registry.json"))
	if err := reg.RecordHeartbeat("dev-unknown", 10.0, time.Now()); err != nil {
		t.Fatalf("RecordHeartbeat: %v", err)
	}
	if _, ok := reg.FindByID("dev-unknown"); ok {
		t.Fatal("heartbeat for unknown device must not create an entry")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	reg := New(path)

	if _, err := reg.RegisterAnnounce("11:22:33:44:55:66", "2.0.0", nil, time.Now()); err != nil {
		t.Fatalf("RegisterAnnounce: %v", err)
	}

	reloaded := New(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	state, ok := reloaded.FindByMac("11:22:33:44:55:66")
	if !ok {
		t.Fatal("expected reloaded registry to contain the persisted device")
	}
	if state.ID != "dev-112233445566" {
		t.Fatalf("id = %q, want dev-112233445566", state.ID)
	}
}

func TestLoadTreatsMissingFileAsEmpty(t *testing.T) {
	dir := t.TempDir()
	reg := New(filepath.Join(dir, "does-not-exist.json"))
	if err := reg.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reg.Snapshot()) != 0 {
		t.Fatal("expected empty registry for a missing file")
	}
}
