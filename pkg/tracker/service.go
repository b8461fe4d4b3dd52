// Package tracker implements the infant event log rules: opening and closing
// sleep and night-wake intervals, validated appends for the instantaneous
// event types, and the status and summary projections over the log.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/kittclouds/babylog/internal/store"
	"github.com/kittclouds/babylog/pkg/serial"
)

// Store is the transactional event store the tracker runs on.
type Store interface {
	Update(ctx context.Context, fn func(tx *store.Tx) error) error
	View(ctx context.Context, fn func(tx *store.Tx) error) error
}

// Metrics receives tracker activity. Implementations must be safe for concurrent use.
type Metrics interface {
	EventAppended(typ store.EventType)
	Toggled(typ store.EventType, status ToggleStatus)
	IntervalsHealed(typ store.EventType, n int)
	EventDeleted()
}

type nopMetrics struct{}

func (nopMetrics) EventAppended(store.EventType)         {}
func (nopMetrics) Toggled(store.EventType, ToggleStatus) {}
func (nopMetrics) IntervalsHealed(store.EventType, int)  {}
func (nopMetrics) EventDeleted()                         {}

// Options configures a Service. Zero values select defaults.
type Options struct {
	Log     *slog.Logger
	Metrics Metrics
	// Now supplies the current instant; tests pin it.
	Now func() time.Time
}

// Service is the entry point for every event-log operation.
type Service struct {
	store   Store
	log     *slog.Logger
	metrics Metrics
	now     func() time.Time
	// toggles linearizes find-then-write per interval type.
	toggles *serial.Lanes[store.EventType]
}

// New creates a Service over st.
func New(st Store, opts Options) *Service {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:   st,
		log:     opts.Log.With(slog.String("component", "tracker")),
		metrics: opts.Metrics,
		now:     opts.Now,
		toggles: serial.New[store.EventType](),
	}
}

// Close stops the toggle lanes. Calls already queued still complete.
func (s *Service) Close() {
	s.toggles.Close()
}
