package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/kittclouds/babylog/internal/store"
)

// LastEvent is the slim view of the latest event of one type.
type LastEvent struct {
	Type      store.EventType `json:"type"`
	Subtype   string          `json:"subtype"`
	StartTime time.Time       `json:"start_time"`
}

// Status is the current-state snapshot.
type Status struct {
	IsSleeping   bool       `json:"is_sleeping"`
	SleepStart   *time.Time `json:"sleep_start"`
	IsNightAwake bool       `json:"is_night_awake"`
	AwakeStart   *time.Time `json:"awake_start"`
	LastFeed     *LastEvent `json:"last_feed"`
	LastDiaper   *LastEvent `json:"last_diaper"`
	LastGrowth   *LastEvent `json:"last_growth"`
}

// Status reads the snapshot in one transaction. A stray open night-wake
// outside an open sleep is reported as not awake.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	var st Status
	err := s.store.View(ctx, func(tx *store.Tx) error {
		sleep, err := tx.Latest(ctx, store.EventSleep)
		if err != nil {
			return err
		}
		if sleep != nil && sleep.Open() {
			st.IsSleeping = true
			st.SleepStart = &sleep.StartTime

			wake, err := tx.Latest(ctx, store.EventNightWake)
			if err != nil {
				return err
			}
			if wake != nil && wake.Open() {
				st.IsNightAwake = true
				st.AwakeStart = &wake.StartTime
			}
		}

		for typ, dst := range map[store.EventType]**LastEvent{
			store.EventFeed:   &st.LastFeed,
			store.EventDiaper: &st.LastDiaper,
			store.EventGrowth: &st.LastGrowth,
		} {
			e, err := tx.Latest(ctx, typ)
			if err != nil {
				return err
			}
			if e != nil {
				*dst = &LastEvent{Type: e.Type, Subtype: e.Subtype, StartTime: e.StartTime}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return &st, nil
}
