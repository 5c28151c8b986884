package timeline

import (
	"time"

	"github.com/large-farva/fleetcore/internal/oscwire"
)

// ntpEpochOffset is the number of seconds between the NTP epoch
// (1900-01-01) and the Unix epoch (1970-01-01).
const ntpEpochOffset = 2208988800

// ToTimetag converts a wall-clock instant to an OSC NTP timetag.
func ToTimetag(t time.Time) oscwire.Timetag {
	unix := t.UnixNano()
	seconds := unix / int64(time.Second)
	nanos := unix % int64(time.Second)
	if nanos < 0 {
		nanos += int64(time.Second)
		seconds--
	}
	frac := uint32((float64(nanos) / float64(time.Second)) * (1 << 32))
	return oscwire.Timetag{
		Seconds:  uint32(seconds + ntpEpochOffset),
		Fraction: frac,
	}
}
