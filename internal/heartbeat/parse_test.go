package heartbeat

import (
	"testing"

	"github.com/large-farva/fleetcore/internal/oscwire"
)

func TestParseAnnounceMacFirst(t *testing.T) {
	msg := oscwire.Message{
		Address: "/announce",
		Args: []oscwire.Argument{
			oscwire.String("AA:BB:CC:DD:EE:FF"),
			oscwire.String("0.1.0"),
		},
	}
	ann, err := ParseAnnounce(msg)
	if err != nil {
		t.Fatalf("ParseAnnounce: %v", err)
	}
	if ann.Mac != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("mac = %q", ann.Mac)
	}
	if ann.FwVersion != "0.1.0" {
		t.Fatalf("fw version = %q", ann.FwVersion)
	}
	if ann.LogicalID != nil {
		t.Fatalf("expected no logical id, got %q", *ann.LogicalID)
	}
}

func TestParseAnnounceLogicalIDFirst(t *testing.T) {
	msg := oscwire.Message{
		Address: "/announce",
		Args: []oscwire.Argument{
			oscwire.String("front-left"),
			oscwire.String("AA:BB:CC:DD:EE:FF"),
			oscwire.String("1.2.0"),
			oscwire.String("Front Left Speaker"),
		},
	}
	ann, err := ParseAnnounce(msg)
	if err != nil {
		t.Fatalf("ParseAnnounce: %v", err)
	}
	if ann.LogicalID == nil || *ann.LogicalID != "front-left" {
		t.Fatalf("logical id = %v", ann.LogicalID)
	}
	if ann.Mac != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("mac = %q", ann.Mac)
	}
	if ann.Alias == nil || *ann.Alias != "Front Left Speaker" {
		t.Fatalf("alias = %v", ann.Alias)
	}
}

func TestParseAnnounceAliasDefaultsToLogicalID(t *testing.T) {
	msg := oscwire.Message{
		Address: "/announce",
		Args: []oscwire.Argument{
			oscwire.String("front-left"),
			oscwire.String("AA:BB:CC:DD:EE:FF"),
		},
	}
	ann, err := ParseAnnounce(msg)
	if err != nil {
		t.Fatalf("ParseAnnounce: %v", err)
	}
	if ann.Alias == nil || *ann.Alias != "front-left" {
		t.Fatalf("alias = %v, want front-left", ann.Alias)
	}
}

func TestParseHeartbeatSecUsecPair(t *testing.T) {
	msg := oscwire.Message{
		Address: "/heartbeat",
		Args: []oscwire.Argument{
			oscwire.String("dev-001"),
			oscwire.Int32(7),
			oscwire.Int32(1700000000),
			oscwire.Int32(500000),
		},
	}
	hb, err := ParseHeartbeat(msg)
	if err != nil {
		t.Fatalf("ParseHeartbeat: %v", err)
	}
	if hb.DeviceID != "dev-001" || hb.Sequence != 7 {
		t.Fatalf("unexpected heartbeat: %+v", hb)
	}
	if hb.SentSeconds != 1700000000.5 {
		t.Fatalf("sent seconds = %v, want 1700000000.5", hb.SentSeconds)
	}
}

func TestParseHeartbeatRejectsWrongAddress(t *testing.T) {
	msg := oscwire.Message{Address: "/other", Args: []oscwire.Argument{oscwire.String("x"), oscwire.Int32(1), oscwire.Int32(2)}}
	if _, err := ParseHeartbeat(msg); err == nil {
		t.Fatal("expected error for non-/heartbeat address")
	}
}

func TestParseHeartbeatOptionalQueueAndPlaying(t *testing.T) {
	msg := oscwire.Message{
		Address: "/heartbeat",
		Args: []oscwire.Argument{
			oscwire.String("dev-1"),
			oscwire.Int32(1),
			oscwire.Int32(1700000000),
			oscwire.Int32(0),
			oscwire.Int32(3),
			oscwire.Bool(true),
		},
	}
	hb, err := ParseHeartbeat(msg)
	if err != nil {
		t.Fatalf("ParseHeartbeat: %v", err)
	}
	if hb.QueueDepth == nil || *hb.QueueDepth != 3 {
		t.Fatalf("queue depth = %v, want 3", hb.QueueDepth)
	}
	if hb.IsPlaying == nil || !*hb.IsPlaying {
		t.Fatalf("is playing = %v, want true", hb.IsPlaying)
	}
}
