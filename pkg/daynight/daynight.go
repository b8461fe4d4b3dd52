// Package daynight labels timestamps as day or night.
// The same rule is applied when a sleep interval is opened and when
// summaries are computed, so both views agree on the split.
package daynight

import "time"

// Period is the day/night label stored as a sleep event's subtype.
type Period string

const (
	Day   Period = "day"
	Night Period = "night"
)

// Night runs from NightStartHour (inclusive) to DayStartHour (exclusive) of the next morning.
const (
	DayStartHour   = 7
	NightStartHour = 19
)

// Classify returns Night when the wall-clock hour of t is before 07:00 or
// at/after 19:00, and Day otherwise. t is used in its own location.
func Classify(t time.Time) Period {
	h := t.Hour()
	if h < DayStartHour || h >= NightStartHour {
		return Night
	}
	return Day
}

// Valid reports whether p is one of the known periods.
func (p Period) Valid() bool {
	return p == Day || p == Night
}

func (p Period) String() string { return string(p) }
