package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/babylog/internal/store"
)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// afternoon is a daytime instant used as the default test start.
var afternoon = time.Date(2024, 5, 12, 14, 0, 0, 0, time.Local)

func newTestService(t *testing.T, start time.Time) (*Service, *store.SQLiteStore, *clock) {
	t.Helper()
	st, err := store.NewSQLiteStore()
	require.NoError(t, err)
	c := &clock{now: start}
	svc := New(st, Options{Now: c.Now})
	t.Cleanup(func() {
		svc.Close()
		_ = st.Close()
	})
	return svc, st, c
}

func ptr[T any](v T) *T { return &v }
