package tracker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/babylog/internal/store"
)

func TestAppendFeedDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, afternoon)

	e, err := svc.AppendFeed(ctx, FeedInput{})
	require.NoError(t, err)
	require.Equal(t, store.EventFeed, e.Type)
	require.Equal(t, FeedBottle, e.Subtype)
	require.Nil(t, e.Value)
	require.Nil(t, e.ValueSecondary)
	require.Nil(t, e.EndTime)
	require.True(t, e.StartTime.Equal(afternoon))
}

func TestAppendFeedCoercesNumbers(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, afternoon)

	var in FeedInput
	require.NoError(t, json.Unmarshal([]byte(`{"subtype":"Breast","amount":"120","duration":15}`), &in))

	e, err := svc.AppendFeed(ctx, in)
	require.NoError(t, err)
	require.Equal(t, FeedBreast, e.Subtype)
	require.Equal(t, 120.0, *e.Value)
	require.Equal(t, 15.0, *e.ValueSecondary)
}

func TestAppendFeedRejectsNonNumeric(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t, afternoon)

	var in FeedInput
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"lots"}`), &in))

	_, err := svc.AppendFeed(ctx, in)
	require.Error(t, err)
	require.True(t, IsValidation(err))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "amount", ve.Field)

	n, err := st.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

var nonFinite = []string{"NaN", "Inf", "-Infinity", "1e400"}

func TestAppendRejectsNonFiniteNumbers(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t, afternoon)

	for _, raw := range nonFinite {
		t.Run(raw, func(t *testing.T) {
			_, err := svc.AppendFeed(ctx, FeedInput{Amount: NumberFromString(raw)})
			require.True(t, IsValidation(err), "feed amount: got %v", err)

			_, err = svc.AppendGrowth(ctx, GrowthInput{Weight: NumberFromString(raw)})
			require.True(t, IsValidation(err), "growth weight: got %v", err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, "weight", ve.Field)
		})
	}

	n, err := st.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	data, err := st.Export(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `{"events": []}`, string(data))
}

func TestNumberDecoding(t *testing.T) {
	cases := []struct {
		raw     string
		want    *float64
		wantErr bool
	}{
		{`{"amount": 90}`, ptr(90.0), false},
		{`{"amount": "90.5"}`, ptr(90.5), false},
		{`{"amount": "5,2"}`, ptr(5.2), false},
		{`{"amount": ""}`, nil, false},
		{`{"amount": null}`, nil, false},
		{`{}`, nil, false},
		{`{"amount": true}`, nil, true},
		{`{"amount": "abc"}`, nil, true},
		{`{"amount": "NaN"}`, nil, true},
		{`{"amount": "Inf"}`, nil, true},
		{`{"amount": "-Infinity"}`, nil, true},
		{`{"amount": "1e400"}`, nil, true},
		{`{"amount": 1e400}`, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			var in FeedInput
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &in))
			got, err := in.Amount.Float("amount")
			if tc.wantErr {
				require.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestAppendDiaperDefaultsToPee(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, afternoon)

	e, err := svc.AppendDiaper(ctx, DiaperInput{})
	require.NoError(t, err)
	require.Equal(t, store.EventDiaper, e.Type)
	require.Equal(t, DiaperPee, e.Subtype)

	e, err = svc.AppendDiaper(ctx, DiaperInput{Subtype: DiaperMixed, Note: "  blowout "})
	require.NoError(t, err)
	require.Equal(t, DiaperMixed, e.Subtype)
	require.Equal(t, "blowout", *e.Note)
}

func TestAppendGrowthRequiresMeasurement(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, afternoon)

	_, err := svc.AppendGrowth(ctx, GrowthInput{})
	require.True(t, IsValidation(err))

	e, err := svc.AppendGrowth(ctx, GrowthInput{Weight: NumberOf(5.2)})
	require.NoError(t, err)
	require.Equal(t, SubtypeMeasurement, e.Subtype)
	require.Equal(t, 5.2, *e.Value)
	require.Nil(t, e.ValueSecondary)

	sum, err := svc.Summary(ctx, DayWindowHours)
	require.NoError(t, err)
	require.Equal(t, []GrowthPoint{{Date: "12-05", Weight: 5.2}}, sum.Growth)

	e, err = svc.AppendGrowth(ctx, GrowthInput{Length: NumberFromString("58")})
	require.NoError(t, err)
	require.Nil(t, e.Value)
	require.Equal(t, 58.0, *e.ValueSecondary)
}

func TestAppendNote(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, afternoon)

	_, err := svc.AppendNote(ctx, NoteInput{Text: "   "})
	require.True(t, IsValidation(err))

	e, err := svc.AppendNote(ctx, NoteInput{Text: " first smile "})
	require.NoError(t, err)
	require.Equal(t, store.EventNote, e.Type)
	require.Equal(t, SubtypeDiary, e.Subtype)
	require.Equal(t, "first smile", *e.Note)
}

func TestAppendUsesSuppliedStartTime(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t, afternoon)

	earlier := afternoon.Add(-3 * time.Hour)
	e, err := svc.AppendDiaper(ctx, DiaperInput{StartTime: &earlier})
	require.NoError(t, err)

	got, err := st.Get(ctx, e.ID)
	require.NoError(t, err)
	require.True(t, got.StartTime.Equal(earlier))
}

func TestAppendedEventsAreNotIntervals(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, afternoon)

	_, err := svc.AppendFeed(ctx, FeedInput{})
	require.NoError(t, err)
	_, err = svc.AppendDiaper(ctx, DiaperInput{})
	require.NoError(t, err)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	require.False(t, status.IsSleeping)
	require.NoError(t, svc.CheckIntervals(ctx))
}
