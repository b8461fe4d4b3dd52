package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kittclouds/babylog/internal/store"
)

// Listing bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ListInput selects events for ListEvents. With neither SinceDays nor Limit
// set, the newest DefaultListLimit events are returned.
type ListInput struct {
	SinceDays    int
	Limit        int
	ExcludeTypes []string
}

// ListEvents returns events newest first.
func (s *Service) ListEvents(ctx context.Context, in ListInput) ([]*store.Event, error) {
	if in.SinceDays < 0 {
		return nil, invalid("days", "must not be negative")
	}
	if in.Limit < 0 || in.Limit > MaxListLimit {
		return nil, invalid("limit", "must be between 0 and %d", MaxListLimit)
	}

	q := store.ListQuery{Limit: in.Limit}
	if in.SinceDays > 0 {
		q.Since = s.clock().AddDate(0, 0, -in.SinceDays)
	} else if q.Limit == 0 {
		q.Limit = DefaultListLimit
	}
	for _, raw := range in.ExcludeTypes {
		typ := store.EventType(strings.TrimSpace(raw))
		if typ == "" {
			continue
		}
		if !typ.Valid() {
			return nil, invalid("exclude", "unknown event type %q", raw)
		}
		q.ExcludeTypes = append(q.ExcludeTypes, typ)
	}

	var events []*store.Event
	err := s.store.View(ctx, func(tx *store.Tx) (err error) {
		events, err = tx.List(ctx, q)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*store.Event{}
	}
	return events, nil
}

// GetEvent returns one event or a NotFoundError.
func (s *Service) GetEvent(ctx context.Context, id int64) (*store.Event, error) {
	var e *store.Event
	err := s.store.View(ctx, func(tx *store.Tx) (err error) {
		e, err = tx.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if e == nil {
		return nil, &NotFoundError{ID: id}
	}
	return e, nil
}

// EventPatch corrects fields of an existing event. Nil or absent fields are
// left unchanged. A present but blank Value, ValueSecondary or Note clears it.
type EventPatch struct {
	StartTime      *time.Time `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	Value          Number     `json:"value"`
	ValueSecondary Number     `json:"value_secondary"`
	Note           *string    `json:"note"`
	Subtype        *string    `json:"subtype"`
}

// UpdateEvent applies p to event id. End times can only be set on sleep and
// night-wake events and never cleared, so an update cannot reopen an interval.
func (s *Service) UpdateEvent(ctx context.Context, id int64, p EventPatch) (*store.Event, error) {
	var updated *store.Event
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		e, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return &NotFoundError{ID: id}
		}
		if err := applyPatch(e, p); err != nil {
			return err
		}
		if _, err := tx.Save(ctx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update event %d: %w", id, err)
	}
	return updated, nil
}

func applyPatch(e *store.Event, p EventPatch) error {
	if p.StartTime != nil {
		if p.StartTime.IsZero() {
			return invalid("start_time", "must not be empty")
		}
		e.StartTime = p.StartTime.Truncate(time.Millisecond)
	}
	if p.EndTime != nil {
		if !e.Type.IsInterval() {
			return invalid("end_time", "only sleep and night_wake events have an end time")
		}
		end := p.EndTime.Truncate(time.Millisecond)
		e.EndTime = &end
	}
	if e.EndTime != nil && e.EndTime.Before(e.StartTime) {
		return invalid("end_time", "must not be before start_time")
	}

	if p.Value.IsSet() {
		v, err := p.Value.Float("value")
		if err != nil {
			return err
		}
		e.Value = v
	}
	if p.ValueSecondary.IsSet() {
		v, err := p.ValueSecondary.Float("value_secondary")
		if err != nil {
			return err
		}
		e.ValueSecondary = v
	}
	if e.Type == store.EventGrowth && e.Value == nil && e.ValueSecondary == nil {
		return invalid("value", "growth needs a weight or a length")
	}

	if p.Note != nil {
		e.Note = optionalText(*p.Note)
	}
	if e.Type == store.EventNote && e.Note == nil {
		return invalid("note", "note text is required")
	}

	if p.Subtype != nil {
		if e.Type != store.EventFeed && e.Type != store.EventDiaper {
			return invalid("subtype", "%s subtype cannot be changed", e.Type)
		}
		sub := strings.ToLower(strings.TrimSpace(*p.Subtype))
		if sub == "" {
			return invalid("subtype", "must not be empty")
		}
		e.Subtype = sub
	}
	return nil
}

// DeleteEvent removes event id, or returns a NotFoundError leaving the log untouched.
func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	var found bool
	err := s.store.Update(ctx, func(tx *store.Tx) (err error) {
		found, err = tx.Delete(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	if !found {
		return &NotFoundError{ID: id}
	}
	s.metrics.EventDeleted()
	return nil
}
