package heartbeat

import (
	"log"
	"net"
	"sync"
	"time"

	"github.com/large-farva/fleetcore/internal/oscwire"
	"github.com/large-farva/fleetcore/internal/registry"
	"github.com/large-farva/fleetcore/internal/telemetry"
	"github.com/large-farva/fleetcore/internal/udptransport"
)

// Broadcaster is satisfied by wsfanout.Hub; kept as a narrow interface
// here so this package does not import the fan-out package directly.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// Metrics is satisfied by the metrics package's counters; kept narrow for
// the same reason as Broadcaster.
type Metrics interface {
	HeartbeatAccepted()
	HeartbeatRejected()
	AnnounceAccepted()
}

// Config describes one monitor run.
type Config struct {
	Host     string
	Port     int
	Registry *registry.Registry
	CSV      *CSVSink // nil disables CSV output
	Quiet    bool
	Count    uint64 // 0 means unlimited
	Hub      Broadcaster
	Metrics  Metrics
	Logger   *log.Logger
}

// Monitor runs the heartbeat/announce UDP listener and tracks per-device
// in-memory stats for the end-of-run summary, independent of the
// registry's own persisted stats.
type Monitor struct {
	cfg Config

	mu        sync.Mutex
	stats     map[string]*registry.Stats
	processed uint64
	listener  *udptransport.Listener
}

// New constructs a Monitor; call Run to start listening.
func New(cfg Config) *Monitor {
	return &Monitor{cfg: cfg, stats: make(map[string]*registry.Stats)}
}

// Run binds the listener and blocks until Stop is called or the socket
// closes. It never exits because of a single malformed or unsupported
// packet.
func (m *Monitor) Run() error {
	addr := &net.UDPAddr{IP: net.ParseIP(m.cfg.Host), Port: m.cfg.Port}
	listener, err := udptransport.NewListener(addr, nil, m.cfg.Logger, m.handlePacket)
	if err != nil {
		return err
	}
	m.listener = listener
	return listener.Run()
}

// Stop closes the listener, unblocking Run.
func (m *Monitor) Stop() error {
	if m.listener == nil {
		return nil
	}
	return m.listener.Close()
}

func (m *Monitor) handlePacket(p oscwire.Packet, remote *net.UDPAddr) {
	for _, msg := range oscwire.FlattenMessages(p) {
		if msg.Address == "/announce" {
			m.handleAnnounce(msg)
			continue
		}
		m.handleHeartbeat(msg)
	}

	m.mu.Lock()
	m.processed++
	count := m.processed
	m.mu.Unlock()

	if m.cfg.Count > 0 && count >= m.cfg.Count {
		_ = m.Stop()
	}
}

func (m *Monitor) handleAnnounce(msg oscwire.Message) {
	ann, err := ParseAnnounce(msg)
	if err != nil {
		if !m.cfg.Quiet && m.cfg.Logger != nil {
			m.cfg.Logger.Printf("announce: %v", err)
		}
		return
	}

	now := time.Now()
	state, err := m.cfg.Registry.RegisterAnnounce(ann.Mac, ann.FwVersion, ann.Alias, now)
	if err != nil {
		if m.cfg.Logger != nil {
			m.cfg.Logger.Printf("announce: register failed: %v", err)
		}
		return
	}

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.AnnounceAccepted()
	}
	if !m.cfg.Quiet && m.cfg.Logger != nil {
		m.cfg.Logger.Printf("ANNOUNCE id=%s mac=%s fw=%s", state.ID, state.Mac, state.FirmwareVersion)
	}
	if m.cfg.Hub != nil {
		event := telemetry.AnnounceEvent{
			Event:     telemetry.Event{Type: telemetry.EventAnnounce, TS: telemetry.NowTS()},
			DeviceID:  state.ID,
			Mac:       state.Mac,
			FwVersion: state.FirmwareVersion,
		}
		if state.Alias != nil {
			event.Alias = *state.Alias
		}
		m.cfg.Hub.BroadcastJSON(event)
	}
}

func (m *Monitor) handleHeartbeat(msg oscwire.Message) {
	hb, err := ParseHeartbeat(msg)
	if err != nil {
		if m.cfg.Metrics != nil {
			m.cfg.Metrics.HeartbeatRejected()
		}
		return
	}

	arrival := time.Now()
	latencyMs := (float64(arrival.UnixNano())/1e9 - hb.SentSeconds) * 1000.0

	m.mu.Lock()
	s, ok := m.stats[hb.DeviceID]
	if !ok {
		s = &registry.Stats{}
		m.stats[hb.DeviceID] = s
	}
	s.AddSample(latencyMs)
	m.mu.Unlock()

	if err := m.cfg.Registry.RecordHeartbeat(hb.DeviceID, latencyMs, arrival); err != nil {
		if m.cfg.Logger != nil {
			m.cfg.Logger.Printf("heartbeat: registry update failed: %v", err)
		}
	}

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.HeartbeatAccepted()
	}
	if !m.cfg.Quiet && m.cfg.Logger != nil {
		m.cfg.Logger.Printf("[%s] seq=%d latency=%.3f ms", hb.DeviceID, hb.Sequence, latencyMs)
	}

	if m.cfg.CSV != nil {
		if err := m.cfg.CSV.Append(hb, latencyMs, arrival); err != nil && m.cfg.Logger != nil {
			m.cfg.Logger.Printf("heartbeat: csv append failed: %v", err)
		}
	}

	if m.cfg.Hub != nil {
		event := telemetry.HeartbeatEvent{
			Event:      telemetry.Event{Type: telemetry.EventHeartbeat, TS: telemetry.NowTS()},
			DeviceID:   hb.DeviceID,
			Sequence:   hb.Sequence,
			LatencyMs:  latencyMs,
			QueueDepth: hb.QueueDepth,
			IsPlaying:  hb.IsPlaying,
		}
		m.cfg.Hub.BroadcastJSON(event)
	}
}

// Summary returns a snapshot of per-device in-memory stats gathered this
// run, for the CLI's end-of-run latency table.
func (m *Monitor) Summary() map[string]registry.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]registry.Stats, len(m.stats))
	for id, s := range m.stats {
		out[id] = *s
	}
	return out
}
