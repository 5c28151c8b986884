// Package telemetry defines the JSON event envelope broadcast over the
// WebSocket fan-out between the heartbeat monitor and subscribed
// dashboards: one event type per struct, each embedding the shared
// Event envelope.
package telemetry

import "time"

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHello       EventType = "hello"
	EventHeartbeat   EventType = "heartbeat"
	EventAnnounce    EventType = "announce"
	EventDiagnostics EventType = "diagnostics"
	EventLog         EventType = "log"
)

// Event is the base envelope shared by every event type.
type Event struct {
	Type EventType `json:"type"`
	TS   string    `json:"timestamp,omitempty"`
}

// NowTS returns the current UTC time as an RFC 3339 nano string, matching
// the timestamp format used across all events.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Hello is the first frame sent to every newly connected WebSocket
// client, reporting the registry size at connection time.
type Hello struct {
	Event
	DeviceCount int `json:"device_count"`
}

// HeartbeatEvent is emitted for each accepted /heartbeat sample.
type HeartbeatEvent struct {
	Event
	DeviceID   string  `json:"device_id"`
	Sequence   int32   `json:"sequence"`
	LatencyMs  float64 `json:"latency_ms"`
	QueueDepth *int32  `json:"queue_depth,omitempty"`
	IsPlaying  *bool   `json:"is_playing,omitempty"`
}

// AnnounceEvent is emitted whenever a device announces or re-announces.
type AnnounceEvent struct {
	Event
	DeviceID  string `json:"device_id"`
	Mac       string `json:"mac"`
	FwVersion string `json:"fw_version"`
	Alias     string `json:"alias,omitempty"`
}

// Severity classifies a DiagnosticsEvent.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

// DiagnosticsEvent mirrors a persisted diagnostics entry, broadcast live
// as it is created.
type DiagnosticsEvent struct {
	Event
	ID                string   `json:"id"`
	DeviceID          string   `json:"device_id"`
	Severity          Severity `json:"severity"`
	Reason            string   `json:"reason"`
	RelatedEventID    string   `json:"related_event_id,omitempty"`
	RecommendedAction string   `json:"recommended_action,omitempty"`
}

// LogLine carries a human-readable log message at a severity level.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}
