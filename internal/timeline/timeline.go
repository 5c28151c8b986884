// Package timeline parses declarative event documents and schedules them
// into time-ordered OSC bundles.
package timeline

import (
	"sort"
	"time"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
	"github.com/large-farva/fleetcore/internal/oscwire"
	"github.com/large-farva/fleetcore/internal/resolver"
)

// MinimumLeadTimeSeconds is the floor below which a lead time is rejected
// before any socket I/O happens.
const MinimumLeadTimeSeconds = 3.0

// Event is one row of a Document: an offset from the scheduled base time,
// an OSC address and arguments, and the logical/literal targets it should
// be resolved against.
type Event struct {
	OffsetSeconds float64
	Address       string
	Args          []oscwire.Argument
	Targets       []string
}

// Document is a parsed timeline file: a default lead time and its events.
// Events may be unordered on disk; Schedule always stably sorts by offset.
type Document struct {
	Version         string
	DefaultLeadTime float64
	Events          []Event
}

// ScheduledMessage is one resolved, time-stamped message ready for
// dispatch: the OSC message itself, which device it targets (empty means
// broadcast to all), and an optional preset id retained for logging.
type ScheduledMessage struct {
	Message  oscwire.Message
	TargetID string
	PresetID string
}

// ScheduledBundle groups every ScheduledMessage that shares an exec time.
type ScheduledBundle struct {
	ExecTime time.Time
	Messages []ScheduledMessage
}

// Validate checks the structural invariants LoadDocument enforces:
// default lead time at or above the floor, and every event well-formed.
func (d Document) Validate() error {
	if d.DefaultLeadTime < MinimumLeadTimeSeconds {
		return fleeterrors.Newf(fleeterrors.TimelineInvalid, "timeline.Validate", "default_lead_time %.3f is below the %.1fs floor", d.DefaultLeadTime, MinimumLeadTimeSeconds)
	}
	for i, ev := range d.Events {
		if err := ev.validate(); err != nil {
			return fleeterrors.Wrap(fleeterrors.TimelineInvalid, "timeline.Validate", wrapEventIndex(i, err))
		}
	}
	return nil
}

func wrapEventIndex(i int, err error) error {
	return fleeterrors.Newf(fleeterrors.TimelineInvalid, "timeline.Validate", "event %d: %v", i, err)
}

func (e Event) validate() error {
	if e.OffsetSeconds < 0 {
		return fleeterrors.New(fleeterrors.TimelineInvalid, "timeline.Event", "offset_seconds must be non-negative")
	}
	if e.Address == "" || e.Address[0] != '/' {
		return fleeterrors.Newf(fleeterrors.TimelineInvalid, "timeline.Event", "address %q must start with /", e.Address)
	}
	return nil
}

// extractPresetID returns the first string argument of a /acoustics/play
// message, retained purely for logging; every other address yields "".
func extractPresetID(address string, args []oscwire.Argument) string {
	if address != "/acoustics/play" {
		return ""
	}
	for _, a := range args {
		if s, ok := a.(oscwire.String); ok {
			return string(s)
		}
	}
	return ""
}

// Schedule computes the ordered ScheduledBundles for baseTime with the
// given lead (already validated against the floor by the caller) and
// resolver. Events are stably sorted by offset first, then flattened into
// one ScheduledMessage per resolved target, then regrouped by exec time.
func Schedule(doc Document, baseTime time.Time, lead float64, res *resolver.Resolver) ([]ScheduledBundle, error) {
	if lead < MinimumLeadTimeSeconds {
		return nil, fleeterrors.Newf(fleeterrors.TimelineInvalid, "timeline.Schedule", "lead time %.3f is below the %.1fs floor", lead, MinimumLeadTimeSeconds)
	}

	events := make([]Event, len(doc.Events))
	copy(events, doc.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OffsetSeconds < events[j].OffsetSeconds
	})

	type flatEntry struct {
		execTime time.Time
		msg      ScheduledMessage
	}
	var flat []flatEntry

	for _, ev := range events {
		execTime := baseTime.Add(time.Duration((lead + ev.OffsetSeconds) * float64(time.Second)))
		targets := res.Resolve(ev.Targets)
		preset := extractPresetID(ev.Address, ev.Args)

		if len(targets) == 0 {
			flat = append(flat, flatEntry{
				execTime: execTime,
				msg: ScheduledMessage{
					Message:  oscwire.Message{Address: ev.Address, Args: ev.Args},
					PresetID: preset,
				},
			})
			continue
		}
		for _, target := range targets {
			flat = append(flat, flatEntry{
				execTime: execTime,
				msg: ScheduledMessage{
					Message:  oscwire.Message{Address: ev.Address, Args: ev.Args},
					TargetID: target,
					PresetID: preset,
				},
			})
		}
	}

	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].execTime.Before(flat[j].execTime)
	})

	var bundles []ScheduledBundle
	for _, entry := range flat {
		if len(bundles) > 0 && bundles[len(bundles)-1].ExecTime.Equal(entry.execTime) {
			last := &bundles[len(bundles)-1]
			last.Messages = append(last.Messages, entry.msg)
			continue
		}
		bundles = append(bundles, ScheduledBundle{ExecTime: entry.execTime, Messages: []ScheduledMessage{entry.msg}})
	}
	return bundles, nil
}
