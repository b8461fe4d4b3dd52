package tracker

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Number is an optional numeric input as sent by a client. It accepts JSON
// numbers, numeric strings, empty strings and null; the last two mean absent.
type Number struct {
	raw string
	set bool
}

// NumberOf returns a Number holding f.
func NumberOf(f float64) Number {
	return Number{raw: strconv.FormatFloat(f, 'f', -1, 64), set: true}
}

// NumberFromString wraps a raw string, for query parameters and form values.
func NumberFromString(s string) Number {
	return Number{raw: s, set: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = Number{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number{raw: s, set: true}
	default:
		*n = Number{raw: string(data), set: true}
	}
	return nil
}

// Float parses n. Absent and blank values yield nil. NaN and infinities are
// rejected along with anything out of float64 range.
func (n Number) Float(field string) (*float64, error) {
	s := strings.TrimSpace(n.raw)
	if !n.set || s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalid(field, "%q is not a number", n.raw)
	}
	return &f, nil
}

// FeedInput is the payload for AppendFeed. Amount is usually millilitres,
// Duration minutes.
type FeedInput struct {
	Subtype   string     `json:"subtype"`
	Amount    Number     `json:"amount"`
	Duration  Number     `json:"duration"`
	StartTime *time.Time `json:"start_time"`
	Note      string     `json:"note"`
}

// DiaperInput is the payload for AppendDiaper.
type DiaperInput struct {
	Subtype   string     `json:"subtype"`
	StartTime *time.Time `json:"start_time"`
	Note      string     `json:"note"`
}

// GrowthInput is the payload for AppendGrowth. Weight is kilograms, Length centimetres.
type GrowthInput struct {
	Weight    Number     `json:"weight"`
	Length    Number     `json:"length"`
	StartTime *time.Time `json:"start_time"`
	Note      string     `json:"note"`
}

// NoteInput is the payload for AppendNote.
type NoteInput struct {
	Text      string     `json:"text"`
	StartTime *time.Time `json:"start_time"`
}

// Subtype markers for types with a single fixed subtype.
const (
	SubtypeNightWake   = "night_wake"
	SubtypeMeasurement = "measurement"
	SubtypeDiary       = "diary"
)

// Feed and diaper subtypes.
const (
	FeedBottle = "bottle"
	FeedBreast = "breast"
	FeedSolid  = "solid"

	DiaperPee   = "pee"
	DiaperPoop  = "poop"
	DiaperMixed = "mixed"
)

// Per-operation defaults, applied only where the caller left a field blank.
var (
	feedDefaults   = FeedInput{Subtype: FeedBottle}
	diaperDefaults = DiaperInput{Subtype: DiaperPee}
)

func orDefault(v, def string) string {
	if v = strings.ToLower(strings.TrimSpace(v)); v == "" {
		return def
	}
	return v
}

func optionalText(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

// IsSet reports whether the field was present and not null.
func (n Number) IsSet() bool { return n.set }
