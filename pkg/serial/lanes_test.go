package serial

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameKeyRunsSequentially(t *testing.T) {
	l := New[string]()
	defer l.Close()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(context.Background(), "sleep", func() error {
				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), maxActive)
}

func TestDifferentKeysRunInParallel(t *testing.T) {
	l := New[string]()
	defer l.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = l.Do(context.Background(), "a", func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	done := make(chan error, 1)
	go func() {
		done <- l.Do(context.Background(), "b", func() error { return nil })
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("key b blocked behind key a")
	}
	close(release)
}

func TestDoReturnsFnError(t *testing.T) {
	l := New[int]()
	defer l.Close()

	boom := errors.New("boom")
	require.ErrorIs(t, l.Do(context.Background(), 1, func() error { return boom }), boom)
}

func TestDoAfterClose(t *testing.T) {
	l := New[int]()
	l.Close()
	l.Close()

	err := l.Do(context.Background(), 1, func() error { return nil })
	require.ErrorIs(t, err, ErrClosed)
}

func TestDoCancelledContext(t *testing.T) {
	l := New[int]()
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := l.Do(ctx, 1, func() error { called = true; return nil })
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestDoWaitsForQueuedJob(t *testing.T) {
	l := New[int]()
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- l.Do(ctx, 1, func() error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	cancel()
	close(release)
	require.NoError(t, <-done)
}

func TestPanicIsReturnedAsError(t *testing.T) {
	l := New[int]()
	defer l.Close()

	err := l.Do(context.Background(), 1, func() error { panic("bad input") })
	require.ErrorIs(t, err, ErrPanic)
	require.Contains(t, err.Error(), "bad input")

	// The lane keeps serving after a panic.
	require.NoError(t, l.Do(context.Background(), 1, func() error { return nil }))
}
