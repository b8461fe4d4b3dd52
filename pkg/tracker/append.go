package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kittclouds/babylog/internal/store"
)

// AppendFeed records a feed. Subtype defaults to bottle; amount and duration
// are optional but must be numeric when given.
func (s *Service) AppendFeed(ctx context.Context, in FeedInput) (*store.Event, error) {
	amount, err := in.Amount.Float("amount")
	if err != nil {
		return nil, err
	}
	duration, err := in.Duration.Float("duration")
	if err != nil {
		return nil, err
	}
	return s.append(ctx, &store.Event{
		Type:           store.EventFeed,
		Subtype:        orDefault(in.Subtype, feedDefaults.Subtype),
		Value:          amount,
		ValueSecondary: duration,
		StartTime:      s.startTime(in.StartTime),
		Note:           optionalText(in.Note),
	})
}

// AppendDiaper records a diaper change. Subtype defaults to pee.
func (s *Service) AppendDiaper(ctx context.Context, in DiaperInput) (*store.Event, error) {
	return s.append(ctx, &store.Event{
		Type:      store.EventDiaper,
		Subtype:   orDefault(in.Subtype, diaperDefaults.Subtype),
		StartTime: s.startTime(in.StartTime),
		Note:      optionalText(in.Note),
	})
}

// AppendGrowth records a measurement. At least one of weight or length is required.
func (s *Service) AppendGrowth(ctx context.Context, in GrowthInput) (*store.Event, error) {
	weight, err := in.Weight.Float("weight")
	if err != nil {
		return nil, err
	}
	length, err := in.Length.Float("length")
	if err != nil {
		return nil, err
	}
	if weight == nil && length == nil {
		return nil, invalid("weight", "weight or length is required")
	}
	return s.append(ctx, &store.Event{
		Type:           store.EventGrowth,
		Subtype:        SubtypeMeasurement,
		Value:          weight,
		ValueSecondary: length,
		StartTime:      s.startTime(in.StartTime),
		Note:           optionalText(in.Note),
	})
}

// AppendNote records a free-text diary entry. Text must not be blank.
func (s *Service) AppendNote(ctx context.Context, in NoteInput) (*store.Event, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, invalid("text", "note text is required")
	}
	return s.append(ctx, &store.Event{
		Type:      store.EventNote,
		Subtype:   SubtypeDiary,
		StartTime: s.startTime(in.StartTime),
		Note:      &text,
	})
}

func (s *Service) append(ctx context.Context, e *store.Event) (*store.Event, error) {
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		return tx.Insert(ctx, e)
	})
	if err != nil {
		return nil, fmt.Errorf("append %s: %w", e.Type, err)
	}
	s.metrics.EventAppended(e.Type)
	return e, nil
}

func (s *Service) startTime(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return s.clock()
	}
	return t.Truncate(time.Millisecond)
}
