package heartbeat

import (
	"fmt"
	"os"
	"time"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
)

const csvHeader = "arrival_iso,device_id,sequence,latency_ms,sent_iso\n"

// CSVSink appends heartbeat samples to an append-only CSV file, writing
// the header once if the file didn't already exist.
type CSVSink struct {
	f *os.File
}

// OpenCSVSink opens path for append, writing the header row if the file
// is new.
func OpenCSVSink(path string) (*CSVSink, error) {
	_, statErr := os.Stat(path)
	existed := statErr == nil

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fleeterrors.Wrap(fleeterrors.IoError, "heartbeat.OpenCSVSink", err)
	}
	if !existed {
		if _, err := f.WriteString(csvHeader); err != nil {
			f.Close()
			return nil, fleeterrors.Wrap(fleeterrors.IoError, "heartbeat.OpenCSVSink", err)
		}
	}
	return &CSVSink{f: f}, nil
}

// Append writes one flushed row for a heartbeat sample.
func (s *CSVSink) Append(hb Heartbeat, latencyMs float64, arrival time.Time) error {
	sentTime := time.Unix(0, int64(hb.SentSeconds*float64(time.Second))).UTC()
	row := fmt.Sprintf("%s,%s,%d,%.3f,%s\n",
		arrival.UTC().Format("2006-01-02T15:04:05Z"),
		hb.DeviceID,
		hb.Sequence,
		latencyMs,
		sentTime.Format("2006-01-02T15:04:05Z"),
	)
	if _, err := s.f.WriteString(row); err != nil {
		return fleeterrors.Wrap(fleeterrors.IoError, "heartbeat.CSVSink.Append", err)
	}
	return s.f.Sync()
}

// Close closes the underlying file.
func (s *CSVSink) Close() error {
	return s.f.Close()
}
