// Package metrics exports tracker activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kittclouds/babylog/internal/store"
	"github.com/kittclouds/babylog/pkg/tracker"
)

// Tracker implements tracker.Metrics using Prometheus.
type Tracker struct {
	appended *prometheus.CounterVec
	toggles  *prometheus.CounterVec
	heals    *prometheus.CounterVec
	deleted  prometheus.Counter
}

// NewTracker creates the collectors and registers them with reg.
func NewTracker(reg prometheus.Registerer) *Tracker {
	m := &Tracker{
		appended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "babylog_events_appended_total",
			Help: "Total number of feed, diaper, growth and note events recorded",
		}, []string{"type"}),

		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "babylog_toggles_total",
			Help: "Total number of interval toggles by outcome",
		}, []string{"type", "status"}),

		heals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "babylog_interval_heals_total",
			Help: "Total number of stale open intervals closed automatically",
		}, []string{"type"}),

		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "babylog_events_deleted_total",
			Help: "Total number of deleted events",
		}),
	}

	reg.MustRegister(m.appended, m.toggles, m.heals, m.deleted)
	return m
}

func (m *Tracker) EventAppended(typ store.EventType) {
	m.appended.WithLabelValues(string(typ)).Inc()
}

func (m *Tracker) Toggled(typ store.EventType, status tracker.ToggleStatus) {
	m.toggles.WithLabelValues(string(typ), string(status)).Inc()
}

func (m *Tracker) IntervalsHealed(typ store.EventType, n int) {
	m.heals.WithLabelValues(string(typ)).Add(float64(n))
}

func (m *Tracker) EventDeleted() {
	m.deleted.Inc()
}

var _ tracker.Metrics = (*Tracker)(nil)
