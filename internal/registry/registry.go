// Package registry is the persistent, thread-safe store of device-id to
// last-known state and Welford running heartbeat-latency stats.
package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
)

// Stats holds Welford's running mean/variance moments for heartbeat
// latency, in milliseconds.
type Stats struct {
	Count   uint64
	MeanMs  float64
	M2      float64
}

// AddSample folds one latency sample into the running moments.
func (s *Stats) AddSample(latencyMs float64) {
	s.Count++
	delta := latencyMs - s.MeanMs
	s.MeanMs += delta / float64(s.Count)
	delta2 := latencyMs - s.MeanMs
	s.M2 += delta * delta2
}

// Variance returns the sample variance, 0 until at least two samples have
// been recorded.
func (s Stats) Variance() float64 {
	if s.Count < 2 {
		return 0
	}
	return s.M2 / float64(s.Count-1)
}

// State is one device's last-known identity and heartbeat health.
type State struct {
	ID            string
	Mac           string
	FirmwareVersion string
	Alias         *string
	LastSeen      time.Time
	Heartbeat     Stats
}

// Registry is the thread-safe device store. A single mutex guards both
// the id-keyed map and the mac index, so every mutation and snapshot
// sees a consistent pair.
type Registry struct {
	mu          sync.Mutex
	storagePath string
	byID        map[string]*State
	macToID     map[string]string
}

// New constructs an empty Registry backed by storagePath. Call Load to
// populate it from disk.
func New(storagePath string) *Registry {
	return &Registry{
		storagePath: storagePath,
		byID:        make(map[string]*State),
		macToID:     make(map[string]string),
	}
}

// NormalizeMac lowercases mac and strips ':' and '-' separators.
func NormalizeMac(mac string) string {
	var b strings.Builder
	b.Grow(len(mac))
	for _, c := range mac {
		if c == ':' || c == '-' {
			continue
		}
		b.WriteRune(toLowerRune(c))
	}
	return b.String()
}

func toLowerRune(c rune) rune {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// GenerateDeviceID derives the canonical device id from a MAC address,
// failing if the normalised MAC is empty.
func GenerateDeviceID(mac string) (string, error) {
	normalized := NormalizeMac(mac)
	if normalized == "" {
		return "", fleeterrors.New(fleeterrors.NotFound, "registry.GenerateDeviceID", "MAC address cannot be empty")
	}
	return "dev-" + normalized, nil
}

// RegisterAnnounce creates or updates the device identified by mac,
// stamps LastSeen to now, persists the registry, and returns a copy of
// the resulting state.
func (r *Registry) RegisterAnnounce(mac, fwVersion string, alias *string, now time.Time) (State, error) {
	r.mu.Lock()
	state, err := r.ensureDeviceLocked(mac, fwVersion, alias, now)
	if err != nil {
		r.mu.Unlock()
		return State{}, err
	}
	snapshot := *state
	r.mu.Unlock()

	if err := r.Save(); err != nil {
		return State{}, err
	}
	return snapshot, nil
}

func (r *Registry) ensureDeviceLocked(mac, fwVersion string, alias *string, now time.Time) (*State, error) {
	normalized := NormalizeMac(mac)
	if id, ok := r.macToID[normalized]; ok {
		state := r.byID[id]
		state.FirmwareVersion = fwVersion
		state.Alias = alias
		state.Mac = mac
		state.LastSeen = now
		return state, nil
	}

	id, err := GenerateDeviceID(mac)
	if err != nil {
		return nil, err
	}
	state := &State{
		ID:              id,
		Mac:             mac,
		FirmwareVersion: fwVersion,
		Alias:           alias,
		LastSeen:        now,
	}
	r.byID[id] = state
	r.macToID[normalized] = id
	return state, nil
}

// RecordHeartbeat updates the named device's latency stats and LastSeen.
// A heartbeat for an unknown device id is silently dropped, since by
// protocol an announce always precedes heartbeats for a device.
func (r *Registry) RecordHeartbeat(deviceID string, latencyMs float64, now time.Time) error {
	r.mu.Lock()
	state, ok := r.byID[deviceID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	state.LastSeen = now
	state.Heartbeat.AddSample(latencyMs)
	r.mu.Unlock()

	return r.Save()
}

// FindByID returns a copy of the named device's state.
func (r *Registry) FindByID(deviceID string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.byID[deviceID]
	if !ok {
		return State{}, false
	}
	return *state, true
}

// FindByMac returns a copy of the device state registered under mac.
func (r *Registry) FindByMac(mac string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.macToID[NormalizeMac(mac)]
	if !ok {
		return State{}, false
	}
	state, ok := r.byID[id]
	if !ok {
		return State{}, false
	}
	return *state, true
}

// Snapshot returns every device state sorted by id.
func (r *Registry) Snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, 0, len(r.byID))
	for _, state := range r.byID {
		out = append(out, *state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Size returns the number of registered devices, used as the hello
// frame's device_count.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
