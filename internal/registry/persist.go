package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
)

type jsonHeartbeat struct {
	Count  uint64  `json:"count"`
	MeanMs float64 `json:"mean_ms"`
	M2     float64 `json:"m2"`
}

type jsonState struct {
	ID              string        `json:"id"`
	Mac             string        `json:"mac"`
	FirmwareVersion string        `json:"fw_version"`
	Alias           *string       `json:"alias"`
	LastSeen        string        `json:"last_seen"`
	Heartbeat       jsonHeartbeat `json:"heartbeat"`
}

// Load reads the registry from disk, replacing any in-memory state. A
// missing file is tolerated (the registry starts empty); the file must
// otherwise be a JSON array.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID = make(map[string]*State)
	r.macToID = make(map[string]string)

	data, err := os.ReadFile(r.storagePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fleeterrors.Wrap(fleeterrors.IoError, "registry.Load", err)
	}

	var entries []jsonState
	if err := json.Unmarshal(data, &entries); err != nil {
		return fleeterrors.Wrap(fleeterrors.IoError, "registry.Load", err)
	}

	for _, entry := range entries {
		state := &State{
			ID:              entry.ID,
			Mac:             entry.Mac,
			FirmwareVersion: entry.FirmwareVersion,
			Alias:           entry.Alias,
			Heartbeat: Stats{
				Count:  entry.Heartbeat.Count,
				MeanMs: entry.Heartbeat.MeanMs,
				M2:     entry.Heartbeat.M2,
			},
		}
		if entry.LastSeen != "" {
			t, err := time.Parse("2006-01-02T15:04:05Z", entry.LastSeen)
			if err == nil {
				state.LastSeen = t
			}
		}
		r.byID[state.ID] = state
		r.macToID[NormalizeMac(state.Mac)] = state.ID
	}
	return nil
}

// Save writes the full registry to disk atomically (temp file + rename),
// so a crash mid-write never leaves a truncated registry file behind.
func (r *Registry) Save() error {
	r.mu.Lock()
	entries := make([]jsonState, 0, len(r.byID))
	for _, state := range r.byID {
		entries = append(entries, jsonState{
			ID:              state.ID,
			Mac:             state.Mac,
			FirmwareVersion: state.FirmwareVersion,
			Alias:           state.Alias,
			LastSeen:        state.LastSeen.UTC().Format("2006-01-02T15:04:05Z"),
			Heartbeat: jsonHeartbeat{
				Count:  state.Heartbeat.Count,
				MeanMs: state.Heartbeat.MeanMs,
				M2:     state.Heartbeat.M2,
			},
		})
	}
	r.mu.Unlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fleeterrors.Wrap(fleeterrors.IoError, "registry.Save", err)
	}

	dir := filepath.Dir(r.storagePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fleeterrors.Wrap(fleeterrors.IoError, "registry.Save", err)
		}
	}

	tmp, err := os.CreateTemp(dir, "registry-*.tmp")
	if err != nil {
		return fleeterrors.Wrap(fleeterrors.IoError, "registry.Save", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fleeterrors.Wrap(fleeterrors.IoError, "registry.Save", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fleeterrors.Wrap(fleeterrors.IoError, "registry.Save", err)
	}

	if err := os.Rename(tmp.Name(), r.storagePath); err != nil {
		return fleeterrors.Wrap(fleeterrors.IoError, "registry.Save", err)
	}
	return nil
}
