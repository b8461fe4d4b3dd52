package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/babylog/internal/store"
)

func TestSummaryFeedDistribution(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t, afternoon)

	for i, sub := range []string{FeedBottle, FeedBreast, FeedSolid, "formula?"} {
		require.NoError(t, st.Insert(ctx, &store.Event{Type: store.EventFeed, Subtype: sub, StartTime: afternoon.Add(-time.Duration(i+1) * time.Hour)}))
	}
	// Outside the window.
	require.NoError(t, st.Insert(ctx, &store.Event{Type: store.EventFeed, Subtype: FeedSolid, StartTime: afternoon.Add(-25 * time.Hour)}))

	sum, err := svc.Summary(ctx, DayWindowHours)
	require.NoError(t, err)
	require.Equal(t, [2]int{2, 1}, sum.FeedDist)
	require.Equal(t, DayWindowHours, sum.WindowHours)
}

func TestSummaryOpenSleepCountsElapsedTime(t *testing.T) {
	ctx := context.Background()
	night := time.Date(2024, 5, 12, 23, 0, 0, 0, time.Local)
	svc, st, _ := newTestService(t, night)

	require.NoError(t, st.Insert(ctx, &store.Event{Type: store.EventSleep, Subtype: "night", StartTime: night.Add(-2 * time.Hour)}))

	sum, err := svc.Summary(ctx, DayWindowHours)
	require.NoError(t, err)
	require.InDelta(t, 2.0, sum.Sleep.NightHours, 0.001)
	require.Zero(t, sum.Sleep.DayHours)
}

func TestSummaryUsesStoredSubtype(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t, afternoon)

	// Stored as day although it starts at night by the clock.
	start := time.Date(2024, 5, 12, 3, 0, 0, 0, time.Local)
	end := start.Add(90 * time.Minute)
	require.NoError(t, st.Insert(ctx, &store.Event{Type: store.EventSleep, Subtype: "day", StartTime: start, EndTime: &end}))

	nap := afternoon.Add(-2 * time.Hour)
	napEnd := nap.Add(20 * time.Minute)
	require.NoError(t, st.Insert(ctx, &store.Event{Type: store.EventSleep, Subtype: "night", StartTime: nap, EndTime: &napEnd}))

	sum, err := svc.Summary(ctx, DayWindowHours)
	require.NoError(t, err)
	require.Equal(t, 1.5, sum.Sleep.DayHours)
	require.Equal(t, 0.3, sum.Sleep.NightHours)
}

func TestSummaryWindowBoundaryIsInclusive(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t, afternoon)

	boundary := afternoon.Add(-DayWindowHours * time.Hour)
	require.NoError(t, st.Insert(ctx, &store.Event{Type: store.EventFeed, Subtype: FeedSolid, StartTime: boundary}))
	require.NoError(t, st.Insert(ctx, &store.Event{Type: store.EventFeed, Subtype: FeedSolid, StartTime: boundary.Add(-time.Millisecond)}))

	sum, err := svc.Summary(ctx, DayWindowHours)
	require.NoError(t, err)
	require.Equal(t, [2]int{0, 1}, sum.FeedDist)
}

func TestSummaryWeekWindow(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t, afternoon)

	for d := 0; d < 10; d++ {
		start := afternoon.AddDate(0, 0, -d).Add(-time.Hour)
		end := start.Add(30 * time.Minute)
		require.NoError(t, st.Insert(ctx, &store.Event{Type: store.EventSleep, Subtype: "day", StartTime: start, EndTime: &end}))
	}

	day, err := svc.Summary(ctx, DayWindowHours)
	require.NoError(t, err)
	require.Equal(t, 0.5, day.Sleep.DayHours)

	week, err := svc.Summary(ctx, WeekWindowHours)
	require.NoError(t, err)
	require.Equal(t, 3.5, week.Sleep.DayHours)
}

func TestSummaryGrowthSeries(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t, afternoon)

	march := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	april := time.Date(2024, 4, 2, 10, 0, 0, 0, time.Local)
	may := time.Date(2024, 5, 3, 10, 0, 0, 0, time.Local)
	// Inserted out of order; the oldest is far outside any window.
	require.NoError(t, st.Insert(ctx, &store.Event{Type: store.EventGrowth, Subtype: SubtypeMeasurement, Value: ptr(5.1), StartTime: may}))
	require.NoError(t, st.Insert(ctx, &store.Event{Type: store.EventGrowth, Subtype: SubtypeMeasurement, Value: ptr(3.9), StartTime: march}))
	require.NoError(t, st.Insert(ctx, &store.Event{Type: store.EventGrowth, Subtype: SubtypeMeasurement, ValueSecondary: ptr(55.0), StartTime: april}))

	sum, err := svc.Summary(ctx, DayWindowHours)
	require.NoError(t, err)
	require.Equal(t, []GrowthPoint{
		{Date: "01-03", Weight: 3.9},
		{Date: "03-05", Weight: 5.1},
	}, sum.Growth)
}

func TestSummaryEmpty(t *testing.T) {
	svc, _, _ := newTestService(t, afternoon)

	sum, err := svc.Summary(context.Background(), DayWindowHours)
	require.NoError(t, err)
	require.Equal(t, SleepDistribution{}, sum.Sleep)
	require.Equal(t, [2]int{}, sum.FeedDist)
	require.NotNil(t, sum.Growth)
	require.Empty(t, sum.Growth)
}

func TestSummaryRejectsBadWindow(t *testing.T) {
	svc, _, _ := newTestService(t, afternoon)

	for _, hours := range []int{0, -1, MaxWindowHours + 1} {
		_, err := svc.Summary(context.Background(), hours)
		require.True(t, IsValidation(err), "hours=%d", hours)
	}
}
