package timeline

import (
	"testing"
	"time"

	"github.com/large-farva/fleetcore/internal/oscwire"
	"github.com/large-farva/fleetcore/internal/resolver"
)

func TestParseDocumentAndScheduleSingleEvent(t *testing.T) {
	data := []byte(`{
		"default_lead_time": 3.0,
		"events": [
			{"offset": 0.0, "address": "/acoustics/play", "args": ["ping"], "targets": []}
		]
	}`)
	doc, err := ParseDocument(data)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	base, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:00Z")
	bundles, err := Schedule(doc, base, doc.DefaultLeadTime, resolver.New())
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("got %d bundles, want 1", len(bundles))
	}
	want, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:03.000Z")
	if !bundles[0].ExecTime.Equal(want) {
		t.Fatalf("exec time = %v, want %v", bundles[0].ExecTime, want)
	}
	if len(bundles[0].Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(bundles[0].Messages))
	}
	msg := bundles[0].Messages[0]
	if msg.Message.Address != "/acoustics/play" {
		t.Fatalf("address = %q", msg.Message.Address)
	}
	if len(msg.Message.Args) != 1 || msg.Message.Args[0] != oscwire.String("ping") {
		t.Fatalf("args = %+v", msg.Message.Args)
	}
	if msg.PresetID != "ping" {
		t.Fatalf("preset id = %q, want ping", msg.PresetID)
	}
}

func TestScheduleRejectsBelowLeadFloor(t *testing.T) {
	doc := Document{DefaultLeadTime: 3.0, Events: []Event{{OffsetSeconds: 0, Address: "/a"}}}
	base := time.Now()
	if _, err := Schedule(doc, base, 2.9, resolver.New()); err == nil {
		t.Fatal("expected lead-time floor error")
	}
	if _, err := Schedule(doc, base, 3.0, resolver.New()); err != nil {
		t.Fatalf("lead 3.0 should succeed, got %v", err)
	}
}

func TestValidateRejectsLowDefaultLeadTime(t *testing.T) {
	doc := Document{DefaultLeadTime: 1.0}
	if err := doc.Validate(); err == nil {
		t.Fatal("expected validation error for default_lead_time below floor")
	}
}

func TestScheduleOrdersByExecTimeAndGroupsEqualTimes(t *testing.T) {
	doc := Document{
		DefaultLeadTime: 3.0,
		Events: []Event{
			{OffsetSeconds: 5, Address: "/b"},
			{OffsetSeconds: 0, Address: "/a"},
			{OffsetSeconds: 0, Address: "/a2"},
		},
	}
	base := time.Now()
	bundles, err := Schedule(doc, base, 3.0, resolver.New())
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(bundles) != 2 {
		t.Fatalf("got %d bundles, want 2", len(bundles))
	}
	if len(bundles[0].Messages) != 2 {
		t.Fatalf("first bundle should group the two offset=0 events, got %d", len(bundles[0].Messages))
	}
	if !bundles[0].ExecTime.Before(bundles[1].ExecTime) {
		t.Fatal("bundles must be non-decreasing by exec time")
	}
}

func TestScheduleResolvesTargetsPerEvent(t *testing.T) {
	res := resolver.New()
	res.SetMapping("room_a", []string{"dev-1", "dev-2"})
	doc := Document{
		DefaultLeadTime: 3.0,
		Events:          []Event{{OffsetSeconds: 0, Address: "/a", Targets: []string{"room_a"}}},
	}
	bundles, err := Schedule(doc, time.Now(), 3.0, res)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(bundles) != 1 || len(bundles[0].Messages) != 2 {
		t.Fatalf("expected one bundle with two per-target messages, got %+v", bundles)
	}
	if bundles[0].Messages[0].TargetID != "dev-1" || bundles[0].Messages[1].TargetID != "dev-2" {
		t.Fatalf("unexpected target order: %+v", bundles[0].Messages)
	}
}

func TestParseArgsTagsByJSONType(t *testing.T) {
	data := []byte(`{
		"default_lead_time": 3.0,
		"events": [
			{"offset": 0, "address": "/mix", "args": [1, 1.5, "s", true, false]}
		]
	}`)
	doc, err := ParseDocument(data)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	args := doc.Events[0].Args
	if _, ok := args[0].(oscwire.Int32); !ok {
		t.Fatalf("args[0] = %T, want Int32", args[0])
	}
	if _, ok := args[1].(oscwire.Float32); !ok {
		t.Fatalf("args[1] = %T, want Float32", args[1])
	}
	if _, ok := args[2].(oscwire.String); !ok {
		t.Fatalf("args[2] = %T, want String", args[2])
	}
	if v, ok := args[3].(oscwire.Bool); !ok || !bool(v) {
		t.Fatalf("args[3] = %+v, want Bool(true)", args[3])
	}
}
