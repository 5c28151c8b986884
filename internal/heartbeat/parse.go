// Package heartbeat ingests decoded /announce and /heartbeat OSC messages,
// updates the device registry, and feeds CSV and telemetry sinks.
package heartbeat

import (
	"strings"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
	"github.com/large-farva/fleetcore/internal/oscwire"
)

// Announce is a decoded /announce message, already disambiguated by
// heuristic: if the first string argument contains ':' it is treated as
// the MAC; otherwise it is a logical id and the second argument must be
// the MAC.
type Announce struct {
	LogicalID *string // nil when the announce led with the MAC itself
	Mac       string
	FwVersion string
	Alias     *string
}

func looksLikeMac(s string) bool {
	return strings.Contains(s, ":")
}

func stringArg(args []oscwire.Argument, i int) (string, bool) {
	if i < 0 || i >= len(args) {
		return "", false
	}
	s, ok := args[i].(oscwire.String)
	return string(s), ok
}

// ParseAnnounce disambiguates the address/id/mac/fw/alias positions of an
// /announce message's arguments.
func ParseAnnounce(msg oscwire.Message) (Announce, error) {
	if len(msg.Args) == 0 {
		return Announce{}, fleeterrors.New(fleeterrors.MalformedPacket, "heartbeat.ParseAnnounce", "announce message missing arguments")
	}

	first, ok := stringArg(msg.Args, 0)
	if !ok {
		return Announce{}, fleeterrors.New(fleeterrors.MalformedPacket, "heartbeat.ParseAnnounce", "announce first argument must be string")
	}

	var logicalID *string
	var mac string
	nextIndex := 1

	if looksLikeMac(first) {
		mac = first
	} else {
		logicalID = &first
		m, ok := stringArg(msg.Args, 1)
		if !ok {
			return Announce{}, fleeterrors.New(fleeterrors.MalformedPacket, "heartbeat.ParseAnnounce", "announce message missing MAC address")
		}
		mac = m
		nextIndex = 2
	}

	if mac == "" {
		return Announce{}, fleeterrors.New(fleeterrors.MalformedPacket, "heartbeat.ParseAnnounce", "announce message missing MAC address")
	}

	var fw string
	if v, ok := stringArg(msg.Args, nextIndex); ok {
		fw = v
		nextIndex++
	}

	var alias *string
	if v, ok := stringArg(msg.Args, nextIndex); ok {
		alias = &v
	}
	if alias == nil && logicalID != nil {
		alias = logicalID
	}

	return Announce{LogicalID: logicalID, Mac: mac, FwVersion: fw, Alias: alias}, nil
}

// Heartbeat is a decoded /heartbeat message.
type Heartbeat struct {
	DeviceID    string
	Sequence    int32
	SentSeconds float64
	QueueDepth  *int32
	IsPlaying   *bool
}

// ParseHeartbeat reads a /heartbeat message's device id, sequence, send
// timestamp, and optional queue depth / playing state. The send timestamp
// is read as a (sent_sec, sent_usec) int pair when both are present,
// falling back to a single numeric (int or float) timestamp argument
// otherwise.
func ParseHeartbeat(msg oscwire.Message) (Heartbeat, error) {
	if msg.Address != "/heartbeat" || len(msg.Args) < 3 {
		return Heartbeat{}, fleeterrors.New(fleeterrors.MalformedPacket, "heartbeat.ParseHeartbeat", "not a heartbeat message")
	}

	id, ok := stringArg(msg.Args, 0)
	if !ok {
		return Heartbeat{}, fleeterrors.New(fleeterrors.MalformedPacket, "heartbeat.ParseHeartbeat", "heartbeat device id must be a string")
	}
	seq, ok := msg.Args[1].(oscwire.Int32)
	if !ok {
		return Heartbeat{}, fleeterrors.New(fleeterrors.MalformedPacket, "heartbeat.ParseHeartbeat", "heartbeat sequence must be int32")
	}

	hb := Heartbeat{DeviceID: id, Sequence: int32(seq)}

	if len(msg.Args) >= 4 {
		secArg, secOK := msg.Args[2].(oscwire.Int32)
		usecArg, usecOK := msg.Args[3].(oscwire.Int32)
		if secOK && usecOK {
			hb.SentSeconds = float64(secArg) + float64(usecArg)/1_000_000.0
		} else {
			seconds, err := argumentToSeconds(msg.Args[2])
			if err != nil {
				return Heartbeat{}, err
			}
			hb.SentSeconds = seconds
		}
	} else {
		seconds, err := argumentToSeconds(msg.Args[2])
		if err != nil {
			return Heartbeat{}, err
		}
		hb.SentSeconds = seconds
	}

	if len(msg.Args) >= 5 {
		if q, ok := msg.Args[4].(oscwire.Int32); ok {
			v := int32(q)
			hb.QueueDepth = &v
		}
	}
	if len(msg.Args) >= 6 {
		if b, ok := playingArg(msg.Args[5]); ok {
			hb.IsPlaying = &b
		}
	}

	return hb, nil
}

func playingArg(a oscwire.Argument) (bool, bool) {
	switch v := a.(type) {
	case oscwire.Bool:
		return bool(v), true
	case oscwire.Int32:
		return v != 0, true
	case oscwire.Float32:
		return v != 0, true
	default:
		return false, false
	}
}

func argumentToSeconds(a oscwire.Argument) (float64, error) {
	switch v := a.(type) {
	case oscwire.Float32:
		return float64(v), nil
	case oscwire.Int32:
		return float64(v), nil
	default:
		return 0, fleeterrors.Newf(fleeterrors.MalformedPacket, "heartbeat.argumentToSeconds", "unsupported timestamp argument type %T", a)
	}
}
