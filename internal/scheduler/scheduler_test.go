package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseBaseTimeUTCWithZ(t *testing.T) {
	got, err := ParseBaseTime("2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("ParseBaseTime: %v", err)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseBaseTimeWithFractionalSeconds(t *testing.T) {
	got, err := ParseBaseTime("2024-01-01T00:00:00.500Z")
	if err != nil {
		t.Fatalf("ParseBaseTime: %v", err)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 500_000_000, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseBaseTimeWithColonOffset(t *testing.T) {
	got, err := ParseBaseTime("2024-01-01T05:00:00+05:00")
	if err != nil {
		t.Fatalf("ParseBaseTime: %v", err)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseBaseTimeWithCompactOffset(t *testing.T) {
	got, err := ParseBaseTime("2024-01-01T00:00:00-0500")
	if err != nil {
		t.Fatalf("ParseBaseTime: %v", err)
	}
	want := time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseBaseTimeEmptyMeansNow(t *testing.T) {
	before := time.Now()
	got, err := ParseBaseTime("")
	after := time.Now()
	if err != nil {
		t.Fatalf("ParseBaseTime: %v", err)
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("ParseBaseTime(\"\") = %v, want between %v and %v", got, before, after)
	}
}

func TestParseBaseTimeRejectsGarbage(t *testing.T) {
	if _, err := ParseBaseTime("not-a-time"); err == nil {
		t.Fatal("expected error for unparseable base time")
	}
}

func TestExecuteDryRunSingleEventScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timeline.json")
	doc := `{"default_lead_time":3.0,"events":[{"offset":0.0,"address":"/acoustics/play","args":["ping"],"targets":[]}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write timeline: %v", err)
	}

	base, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:00Z")
	report, err := Execute(Config{
		TimelinePath:     path,
		Host:             "127.0.0.1",
		Port:             9000,
		LeadTimeOverride: -1,
		DryRun:           true,
		BaseTime:         &base,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(report.Bundles) != 1 {
		t.Fatalf("got %d bundles, want 1", len(report.Bundles))
	}
	want, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:03.000Z")
	if !report.Bundles[0].ExecTime.Equal(want) {
		t.Fatalf("exec time = %v, want %v", report.Bundles[0].ExecTime, want)
	}
	if report.Sent {
		t.Fatal("dry run must not send")
	}
}

func TestExecuteRejectsLowLeadOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timeline.json")
	doc := `{"default_lead_time":3.0,"events":[{"offset":0.0,"address":"/a","targets":[]}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write timeline: %v", err)
	}

	_, err := Execute(Config{
		TimelinePath:     path,
		Host:             "127.0.0.1",
		Port:             9000,
		DryRun:           true,
		LeadTimeOverride: 2.9,
	})
	if err == nil {
		t.Fatal("expected error for lead override below the floor")
	}
}
