package scheduler

import (
	"strconv"
	"strings"
	"time"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
)

// ParseBaseTime accepts "" (meaning now) or
// YYYY-MM-DDTHH:MM:SS[.fff][Z|±HH:MM|±HHMM|±HH]. Go's time.Parse layouts
// can't express the optional-fraction, optional-any-offset-form grammar
// in one shot, so this cuts the fraction and the zone suffix off by hand
// and parses only the remaining date-time core with a fixed layout.
func ParseBaseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}

	mutable := value
	var fractional string
	if dot := strings.IndexByte(mutable, '.'); dot >= 0 {
		end := dot + 1
		for end < len(mutable) && mutable[end] >= '0' && mutable[end] <= '9' {
			end++
		}
		fractional = mutable[dot+1 : end]
		mutable = mutable[:dot] + mutable[end:]
	}

	mutable = strings.TrimSuffix(mutable, "Z")

	offsetMinutes := 0
	if tPos := strings.IndexByte(mutable, 'T'); tPos >= 0 {
		tzPos := -1
		if plus := strings.LastIndexByte(mutable, '+'); plus > tPos {
			tzPos = plus
		} else if minus := strings.LastIndexByte(mutable, '-'); minus > tPos {
			tzPos = minus
		}

		if tzPos >= 0 {
			sign := mutable[tzPos]
			offsetPart := mutable[tzPos+1:]
			mutable = mutable[:tzPos]

			hours, minutes, err := parseOffsetParts(offsetPart)
			if err != nil {
				return time.Time{}, fleeterrors.Wrap(fleeterrors.InvalidBaseTime, "scheduler.ParseBaseTime", err)
			}

			offsetMinutes = hours*60 + minutes
			if sign == '-' {
				offsetMinutes = -offsetMinutes
			}
		}
	}

	tm, err := time.Parse("2006-01-02T15:04:05", mutable)
	if err != nil {
		return time.Time{}, fleeterrors.Newf(fleeterrors.InvalidBaseTime, "scheduler.ParseBaseTime", "expected format YYYY-MM-DDTHH:MM:SS[.fff][Z]: %v", err)
	}

	utc := time.Date(tm.Year(), tm.Month(), tm.Day(), tm.Hour(), tm.Minute(), tm.Second(), 0, time.UTC)
	if offsetMinutes != 0 {
		utc = utc.Add(-time.Duration(offsetMinutes) * time.Minute)
	}

	if fractional != "" {
		frac, err := strconv.ParseFloat("0."+fractional, 64)
		if err != nil {
			return time.Time{}, fleeterrors.Wrap(fleeterrors.InvalidBaseTime, "scheduler.ParseBaseTime", err)
		}
		utc = utc.Add(time.Duration(frac * float64(time.Second)))
	}

	return utc, nil
}

func parseOffsetParts(offsetPart string) (hours, minutes int, err error) {
	switch {
	case len(offsetPart) == 5 && offsetPart[2] == ':':
		hours, err = strconv.Atoi(offsetPart[:2])
		if err != nil {
			return 0, 0, err
		}
		minutes, err = strconv.Atoi(offsetPart[3:5])
		return hours, minutes, err
	case len(offsetPart) == 4:
		hours, err = strconv.Atoi(offsetPart[:2])
		if err != nil {
			return 0, 0, err
		}
		minutes, err = strconv.Atoi(offsetPart[2:4])
		return hours, minutes, err
	case len(offsetPart) == 2:
		hours, err = strconv.Atoi(offsetPart)
		return hours, 0, err
	case offsetPart == "":
		return 0, 0, nil
	default:
		return 0, 0, fleeterrors.New(fleeterrors.InvalidBaseTime, "scheduler.ParseBaseTime", "unsupported timezone offset format")
	}
}
