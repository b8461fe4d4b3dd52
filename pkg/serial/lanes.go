// Package serial runs work in per-key lanes: calls sharing a key execute one
// at a time in submission order, calls for different keys run in parallel.
package serial

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrClosed is returned when work is submitted after Close.
	ErrClosed = errors.New("serial: lanes closed")
	// ErrPanic wraps a panic recovered from a lane job.
	ErrPanic = errors.New("serial: job panicked")
)

// Option configures Lanes.
type Option func(*options)

type options struct {
	queueSize int
}

// WithQueueSize sets how many pending calls a lane buffers (default 16).
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// Lanes owns one worker goroutine per key, created on first use.
type Lanes[K comparable] struct {
	mu        sync.Mutex
	lanes     map[K]chan *job
	closed    bool
	inflight  sync.WaitGroup
	queueSize int
}

type job struct {
	fn   func() error
	done chan error
}

// New creates an empty set of lanes.
func New[K comparable](opts ...Option) *Lanes[K] {
	o := options{queueSize: 16}
	for _, opt := range opts {
		opt(&o)
	}
	return &Lanes[K]{
		lanes:     make(map[K]chan *job),
		queueSize: o.queueSize,
	}
}

// Do runs fn in the lane for key and returns its error. ctx only bounds the
// wait for a queue slot: once fn is queued, Do waits for it and returns its
// result, so a caller never sees a failure for work that completed. fn should
// observe ctx itself if it must stop early.
func (l *Lanes[K]) Do(ctx context.Context, key K, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.inflight.Add(1)
	queue := l.laneLocked(key)
	l.mu.Unlock()
	defer l.inflight.Done()

	j := &job{fn: fn, done: make(chan error, 1)}
	select {
	case queue <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	return <-j.done
}

// Close rejects new work and stops the lane workers after queued jobs drain.
func (l *Lanes[K]) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.inflight.Wait()

	l.mu.Lock()
	for _, q := range l.lanes {
		close(q)
	}
	l.lanes = nil
	l.mu.Unlock()
}

func (l *Lanes[K]) laneLocked(key K) chan *job {
	if q, ok := l.lanes[key]; ok {
		return q
	}
	q := make(chan *job, l.queueSize)
	l.lanes[key] = q
	go func() {
		for j := range q {
			j.done <- j.run()
		}
	}()
	return q
}

func (j *job) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return j.fn()
}
