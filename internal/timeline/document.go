package timeline

import (
	"encoding/base64"
	"encoding/json"
	"os"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
	"github.com/large-farva/fleetcore/internal/oscwire"
)

type jsonDocument struct {
	Version         string      `json:"version,omitempty"`
	DefaultLeadTime float64     `json:"default_lead_time"`
	Events          []jsonEvent `json:"events"`
}

type jsonEvent struct {
	Offset  float64           `json:"offset"`
	Address string            `json:"address"`
	Args    []json.RawMessage `json:"args,omitempty"`
	Targets []string          `json:"targets,omitempty"`
}

// LoadDocument reads and parses a timeline file at path, then validates it.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fleeterrors.Wrap(fleeterrors.IoError, "timeline.LoadDocument", err)
	}
	return ParseDocument(data)
}

// ParseDocument parses and validates a timeline document from JSON bytes.
// Argument values are tagged by their JSON type: a JSON integer becomes
// i32 (range-checked), any other JSON number becomes f32, a string
// becomes s, a bool becomes T/F, and a base64-encoded string wrapped in
// {"blob": "..."} becomes b.
func ParseDocument(data []byte) (Document, error) {
	var raw jsonDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fleeterrors.Wrap(fleeterrors.TimelineInvalid, "timeline.ParseDocument", err)
	}

	doc := Document{Version: raw.Version, DefaultLeadTime: raw.DefaultLeadTime}
	for _, re := range raw.Events {
		args, err := parseArgs(re.Args)
		if err != nil {
			return Document{}, err
		}
		doc.Events = append(doc.Events, Event{
			OffsetSeconds: re.Offset,
			Address:       re.Address,
			Args:          args,
			Targets:       re.Targets,
		})
	}

	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

type blobArg struct {
	Blob string `json:"blob"`
}

func parseArgs(raw []json.RawMessage) ([]oscwire.Argument, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	args := make([]oscwire.Argument, 0, len(raw))
	for _, r := range raw {
		arg, err := parseArg(r)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func parseArg(raw json.RawMessage) (oscwire.Argument, error) {
	var b blobArg
	if err := json.Unmarshal(raw, &b); err == nil && b.Blob != "" {
		decoded, err := base64.StdEncoding.DecodeString(b.Blob)
		if err != nil {
			return nil, fleeterrors.Wrap(fleeterrors.TimelineInvalid, "timeline.parseArg", err)
		}
		return oscwire.Blob(decoded), nil
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return oscwire.Bool(boolVal), nil
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return oscwire.String(strVal), nil
	}

	var numVal json.Number
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if i, err := numVal.Int64(); err == nil && isInt32Range(i) {
			return oscwire.Int32(int32(i)), nil
		}
		f, err := numVal.Float64()
		if err != nil {
			return nil, fleeterrors.Wrap(fleeterrors.TimelineInvalid, "timeline.parseArg", err)
		}
		return oscwire.Float32(float32(f)), nil
	}

	return nil, fleeterrors.Newf(fleeterrors.TimelineInvalid, "timeline.parseArg", "unsupported argument type in %s", raw)
}

func isInt32Range(v int64) bool {
	return v >= -2147483648 && v <= 2147483647
}
