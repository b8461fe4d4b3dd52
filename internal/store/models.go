// Package store provides SQLite-backed persistence for the babylog event log.
// Every caregiving event lives in a single events table.
package store

import (
	"context"
	"time"
)

// EventType is the kind of a logged event.
type EventType string

const (
	EventSleep     EventType = "sleep"      // interval
	EventNightWake EventType = "night_wake" // interval, nested inside a night sleep
	EventFeed      EventType = "feed"
	EventDiaper    EventType = "diaper"
	EventGrowth    EventType = "growth"
	EventNote      EventType = "note"
)

// EventTypes lists every known type in display order.
var EventTypes = []EventType{EventSleep, EventNightWake, EventFeed, EventDiaper, EventGrowth, EventNote}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsInterval reports whether events of this type carry an end time.
func (t EventType) IsInterval() bool {
	return t == EventSleep || t == EventNightWake
}

// Event is a single caregiving record.
// Interval events (sleep, night_wake) are open while EndTime is nil.
type Event struct {
	ID             int64      `json:"id"`
	Type           EventType  `json:"type"`
	Subtype        string     `json:"subtype"`
	Value          *float64   `json:"value"`           // feed amount, growth weight
	ValueSecondary *float64   `json:"value_secondary"` // feed duration, growth length
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	Note           *string    `json:"note"`
}

// Open reports whether e is an interval event that has not been closed.
func (e *Event) Open() bool {
	return e.Type.IsInterval() && e.EndTime == nil
}

// Duration returns the elapsed interval length, measuring open intervals up to now.
// Negative spans are reported as zero.
func (e *Event) Duration(now time.Time) time.Duration {
	end := now
	if e.EndTime != nil {
		end = *e.EndTime
	}
	if d := end.Sub(e.StartTime); d > 0 {
		return d
	}
	return 0
}

// ListQuery filters and bounds a listing of events, newest first.
type ListQuery struct {
	Since        time.Time // zero means unbounded
	Limit        int       // zero means unbounded
	ExcludeTypes []EventType
}

// Storer is the persistence surface opened by the babylog commands. The
// tracker and the HTTP layer take narrower views of it. SQLiteStore is the
// sole implementation.
type Storer interface {
	// Transactions
	Update(ctx context.Context, fn func(tx *Tx) error) error
	View(ctx context.Context, fn func(tx *Tx) error) error

	// Single-statement helpers
	Insert(ctx context.Context, e *Event) error
	Get(ctx context.Context, id int64) (*Event, error)
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, q ListQuery) ([]*Event, error)
	Count(ctx context.Context) (int, error)

	// Export/Import (JSON backup and legacy file migration)
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, data []byte) (int, error)

	// Lifecycle
	Close() error
}
