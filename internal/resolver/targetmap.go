package resolver

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
)

// LoadTargetMap dispatches on file extension: .json loads a JSON object,
// .csv loads a two-column CSV; any other extension tries JSON then falls
// back to CSV, mirroring SchedulerController's loadTargetMap.
func LoadTargetMap(path string) ([]MappingEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fleeterrors.Wrap(fleeterrors.IoError, "resolver.LoadTargetMap", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSONTargetMap(data)
	case ".csv":
		return ParseCSVTargetMap(data)
	default:
		entries, jsonErr := ParseJSONTargetMap(data)
		if jsonErr == nil {
			return entries, nil
		}
		return ParseCSVTargetMap(data)
	}
}

// ParseJSONTargetMap parses a JSON object mapping logical name to either a
// single device id string or an array of device id strings. Key order in
// the source document is preserved via json.Decoder's token stream rather
// than unmarshalling into a map (which Go would otherwise randomize).
func ParseJSONTargetMap(data []byte) ([]MappingEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fleeterrors.Wrap(fleeterrors.TimelineInvalid, "resolver.ParseJSONTargetMap", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fleeterrors.New(fleeterrors.TimelineInvalid, "resolver.ParseJSONTargetMap", "target map must be a JSON object")
	}

	var entries []MappingEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fleeterrors.Wrap(fleeterrors.TimelineInvalid, "resolver.ParseJSONTargetMap", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fleeterrors.New(fleeterrors.TimelineInvalid, "resolver.ParseJSONTargetMap", "target map keys must be strings")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fleeterrors.Wrap(fleeterrors.TimelineInvalid, "resolver.ParseJSONTargetMap", err)
		}

		devices, err := decodeTargetValue(raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, MappingEntry{Logical: key, Devices: dedupPreserveOrder(devices)})
	}
	return entries, nil
}

func decodeTargetValue(raw json.RawMessage) ([]string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	return nil, fleeterrors.New(fleeterrors.TimelineInvalid, "resolver.ParseJSONTargetMap", "target map values must be a string or array of strings")
}

// ParseCSVTargetMap parses a two-column CSV of logical,device rows.
// Comment lines starting with '#' and blank lines are skipped. An
// optional header row is recognised by its lowercased pair matching
// (voice|logical, device|device_id) and is not emitted as data.
func ParseCSVTargetMap(data []byte) ([]MappingEntry, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comment = '#'
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fleeterrors.Wrap(fleeterrors.TimelineInvalid, "resolver.ParseCSVTargetMap", err)
	}

	byLogical := make(map[string]int)
	var entries []MappingEntry

	for i, record := range records {
		if len(record) < 2 {
			continue
		}
		col0 := strings.TrimSpace(record[0])
		col1 := strings.TrimSpace(record[1])

		if i == 0 && isTargetMapHeader(col0, col1) {
			continue
		}

		if idx, ok := byLogical[col0]; ok {
			entries[idx].Devices = append(entries[idx].Devices, col1)
			continue
		}
		byLogical[col0] = len(entries)
		entries = append(entries, MappingEntry{Logical: col0, Devices: []string{col1}})
	}

	for i := range entries {
		entries[i].Devices = dedupPreserveOrder(entries[i].Devices)
	}
	return entries, nil
}

func isTargetMapHeader(col0, col1 string) bool {
	a, b := strings.ToLower(col0), strings.ToLower(col1)
	return (a == "voice" || a == "logical") && (b == "device" || b == "device_id")
}
