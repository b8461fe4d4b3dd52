package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kittclouds/babylog/internal/store"
	"github.com/kittclouds/babylog/pkg/daynight"
)

// ToggleStatus tells whether a toggle opened or closed an interval.
type ToggleStatus string

const (
	Started ToggleStatus = "started"
	Stopped ToggleStatus = "stopped"
)

// ToggleResult is the outcome of a toggle and the event it touched.
type ToggleResult struct {
	Status ToggleStatus `json:"status"`
	Event  *store.Event `json:"event"`
}

// ToggleSleep closes the open sleep interval, together with any open
// night-wake, or opens a new sleep labelled day or night by the current hour.
//
// Toggles of one type run one at a time. A nil error means the change was
// committed; any error means nothing was written, even when ctx is cancelled
// while the toggle waits its turn.
func (s *Service) ToggleSleep(ctx context.Context) (*ToggleResult, error) {
	return s.toggle(ctx, store.EventSleep)
}

// ToggleNightWake closes the open night-wake interval or opens a new one.
// It does not require a sleep to be open.
func (s *Service) ToggleNightWake(ctx context.Context) (*ToggleResult, error) {
	return s.toggle(ctx, store.EventNightWake)
}

func (s *Service) toggle(ctx context.Context, typ store.EventType) (*ToggleResult, error) {
	var res *ToggleResult
	err := s.toggles.Do(ctx, typ, func() error {
		return s.store.Update(ctx, func(tx *store.Tx) error {
			now := s.clock()

			latest, err := tx.Latest(ctx, typ)
			if err != nil {
				return err
			}
			if err := s.heal(ctx, tx, typ, latest, now); err != nil {
				return err
			}

			if latest != nil && latest.Open() {
				if err := closeInterval(ctx, tx, latest, now); err != nil {
					return err
				}
				// A night-wake cannot outlive the sleep around it.
				if typ == store.EventSleep {
					if _, err := s.closeAll(ctx, tx, store.EventNightWake, now); err != nil {
						return err
					}
				}
				res = &ToggleResult{Status: Stopped, Event: latest}
				return nil
			}

			e := &store.Event{Type: typ, Subtype: intervalSubtype(typ, now), StartTime: now}
			if err := tx.Insert(ctx, e); err != nil {
				return err
			}
			res = &ToggleResult{Status: Started, Event: e}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("toggle %s: %w", typ, err)
	}

	s.metrics.Toggled(typ, res.Status)
	s.log.Debug("interval toggled",
		slog.String("type", string(typ)),
		slog.String("status", string(res.Status)),
		slog.Int64("id", res.Event.ID))
	return res, nil
}

// heal closes every open interval of typ except latest. More than one open
// interval only appears after manual edits or imports.
func (s *Service) heal(ctx context.Context, tx *store.Tx, typ store.EventType, latest *store.Event, now time.Time) error {
	open, err := tx.OpenIntervals(ctx, typ)
	if err != nil {
		return err
	}
	stale := 0
	for _, e := range open {
		if latest != nil && e.ID == latest.ID {
			continue
		}
		if err := closeInterval(ctx, tx, e, now); err != nil {
			return err
		}
		stale++
	}
	if stale > 0 {
		s.log.Warn("closed stale open intervals",
			slog.Any("violation", &ConsistencyViolation{Type: typ, Open: len(open)}),
			slog.Int("closed", stale))
		s.metrics.IntervalsHealed(typ, stale)
	}
	return nil
}

// closeAll closes every open interval of typ and returns how many it closed.
func (s *Service) closeAll(ctx context.Context, tx *store.Tx, typ store.EventType, now time.Time) (int, error) {
	open, err := tx.OpenIntervals(ctx, typ)
	if err != nil {
		return 0, err
	}
	for _, e := range open {
		if err := closeInterval(ctx, tx, e, now); err != nil {
			return 0, err
		}
	}
	return len(open), nil
}

// CheckIntervals returns a ConsistencyViolation if any interval type has more
// than one open event.
func (s *Service) CheckIntervals(ctx context.Context) error {
	return s.store.View(ctx, func(tx *store.Tx) error {
		for _, typ := range []store.EventType{store.EventSleep, store.EventNightWake} {
			open, err := tx.OpenIntervals(ctx, typ)
			if err != nil {
				return err
			}
			if len(open) > 1 {
				return &ConsistencyViolation{Type: typ, Open: len(open)}
			}
		}
		return nil
	})
}

// RepairIntervals leaves at most one open interval per type, keeping the
// most recent, and returns how many intervals it closed. Run at startup.
func (s *Service) RepairIntervals(ctx context.Context) (int, error) {
	total := 0
	for _, typ := range []store.EventType{store.EventSleep, store.EventNightWake} {
		err := s.toggles.Do(ctx, typ, func() error {
			return s.store.Update(ctx, func(tx *store.Tx) error {
				open, err := tx.OpenIntervals(ctx, typ)
				if err != nil || len(open) < 2 {
					return err
				}
				if err := s.heal(ctx, tx, typ, open[0], s.clock()); err != nil {
					return err
				}
				total += len(open) - 1
				return nil
			})
		})
		if err != nil {
			return total, fmt.Errorf("repair %s: %w", typ, err)
		}
	}
	return total, nil
}

// closeInterval ends e at now, or at its own start if that lies in the future.
func closeInterval(ctx context.Context, tx *store.Tx, e *store.Event, now time.Time) error {
	end := now
	if end.Before(e.StartTime) {
		end = e.StartTime
	}
	e.EndTime = &end
	if _, err := tx.Save(ctx, e); err != nil {
		return err
	}
	return nil
}

func intervalSubtype(typ store.EventType, now time.Time) string {
	if typ == store.EventSleep {
		return string(daynight.Classify(now))
	}
	return SubtypeNightWake
}

// clock returns the current instant at the store's millisecond resolution.
func (s *Service) clock() time.Time {
	return s.now().Truncate(time.Millisecond)
}
