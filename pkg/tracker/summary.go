package tracker

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kittclouds/babylog/internal/store"
	"github.com/kittclouds/babylog/pkg/daynight"
)

// Window presets in hours.
const (
	DayWindowHours  = 24
	WeekWindowHours = 7 * 24
	MaxWindowHours  = 366 * 24
)

// growthDateLayout renders a growth point as day-month.
const growthDateLayout = "02-01"

// SleepDistribution splits slept hours by the label stored on each sleep.
type SleepDistribution struct {
	DayHours   float64 `json:"day_hours"`
	NightHours float64 `json:"night_hours"`
}

// GrowthPoint is one weight measurement in the growth series.
type GrowthPoint struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
}

// Summary holds windowed statistics.
type Summary struct {
	WindowHours int               `json:"window_hours"`
	Sleep       SleepDistribution `json:"sleep"`
	// FeedDist is [bottle+breast, solid].
	FeedDist [2]int        `json:"feed_dist"`
	Growth   []GrowthPoint `json:"growth"`
}

// Summary aggregates the trailing windowHours up to now. Sleeps and feeds
// count when their start lies in [now-window, now]; open sleeps contribute
// their elapsed time so far. The growth series ignores the window.
func (s *Service) Summary(ctx context.Context, windowHours int) (*Summary, error) {
	if windowHours <= 0 || windowHours > MaxWindowHours {
		return nil, invalid("hours", "window must be between 1 and %d hours", MaxWindowHours)
	}

	now := s.clock()
	from := now.Add(-time.Duration(windowHours) * time.Hour)
	sum := &Summary{WindowHours: windowHours, Growth: []GrowthPoint{}}

	err := s.store.View(ctx, func(tx *store.Tx) error {
		sleeps, err := tx.InRange(ctx, store.EventSleep, from, now)
		if err != nil {
			return err
		}
		sum.Sleep = sleepDistribution(sleeps, now)

		feeds, err := tx.InRange(ctx, store.EventFeed, from, now)
		if err != nil {
			return err
		}
		sum.FeedDist = feedDistribution(feeds)

		growth, err := tx.AllOfType(ctx, store.EventGrowth)
		if err != nil {
			return err
		}
		sum.Growth = append(sum.Growth, growthSeries(growth)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return sum, nil
}

func sleepDistribution(sleeps []*store.Event, now time.Time) SleepDistribution {
	var day, night time.Duration
	for _, e := range sleeps {
		switch daynight.Period(e.Subtype) {
		case daynight.Day:
			day += e.Duration(now)
		case daynight.Night:
			night += e.Duration(now)
		}
	}
	return SleepDistribution{DayHours: roundHours(day), NightHours: roundHours(night)}
}

func feedDistribution(feeds []*store.Event) [2]int {
	var dist [2]int
	for _, e := range feeds {
		switch e.Subtype {
		case FeedBottle, FeedBreast:
			dist[0]++
		case FeedSolid:
			dist[1]++
		}
	}
	return dist
}

func growthSeries(events []*store.Event) []GrowthPoint {
	var points []GrowthPoint
	for _, e := range events {
		if e.Value == nil {
			continue
		}
		points = append(points, GrowthPoint{Date: e.StartTime.Format(growthDateLayout), Weight: *e.Value})
	}
	return points
}

// roundHours converts d to hours with one decimal place.
func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*10) / 10
}
