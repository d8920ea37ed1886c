package ratelimit

import (
	"context"
	"sync"
	"time"
)

type slot struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window counter per key. Expired windows are removed by
// a sweep goroutine owned by the limiter: Start it once, Stop it on shutdown.
type Limiter struct {
	limit  int
	window time.Duration
	sweep  time.Duration

	mu      sync.Mutex
	entries map[string]*slot

	now    func() time.Time
	cancel context.CancelFunc
	done   chan struct{}
}

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		sweep:   time.Minute,
		entries: make(map[string]*slot),
		now:     time.Now,
	}
}

// Allow counts one hit for key and reports whether it fits in the current
// window, with the hits left in it.
func (l *Limiter) Allow(key string) (bool, int) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		l.entries[key] = &slot{count: 1, resetAt: now.Add(l.window)}
		return true, l.limit - 1
	}
	e.count++
	return e.count <= l.limit, max(0, l.limit-e.count)
}

// Len is the number of live keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)
		ticker := time.NewTicker(l.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}

// Stop ends the sweep goroutine and waits for it. Safe to call without Start.
func (l *Limiter) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}

// Sweep drops every expired window.
func (l *Limiter) Sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, k)
		}
	}
}
