// Package ratelimit throttles chat senders with an exact sliding window:
// at most Max accepted messages in any trailing Window per sender.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var rejected = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "assistant_sender_rate_limited_total",
	Help: "Messages rejected by the per-sender sliding window.",
})

var trackedSenders = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "assistant_sender_windows",
	Help: "Senders currently holding a rate-limit window.",
})

func init() {
	prometheus.MustRegister(rejected, trackedSenders)
}

// SlidingWindow keeps, per sender, the timestamps accepted inside the
// trailing window. Rejected calls are not recorded.
type SlidingWindow struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu      sync.Mutex
	senders map[string][]time.Time
}

// New returns a limiter allowing max messages per window. max < 1 is
// treated as 1.
func New(window time.Duration, max int) *SlidingWindow {
	if max < 1 {
		max = 1
	}
	return &SlidingWindow{
		window:  window,
		max:     max,
		now:     time.Now,
		senders: make(map[string][]time.Time),
	}
}

// WithClock replaces time.Now; intended for tests.
func (l *SlidingWindow) WithClock(now func() time.Time) *SlidingWindow {
	l.now = now
	return l
}

// Allow records a message from sender and reports whether it is within the limit.
func (l *SlidingWindow) Allow(sender string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := prune(l.senders[sender], cutoff)
	if len(ts) >= l.max {
		l.senders[sender] = ts
		rejected.Inc()
		return false
	}
	l.senders[sender] = append(ts, now)
	return true
}

// Remaining reports how many more messages sender may send right now.
func (l *SlidingWindow) Remaining(sender string) int {
	cutoff := l.now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.max - len(prune(l.senders[sender], cutoff))
	if n < 0 {
		return 0
	}
	return n
}

// Sweep drops senders whose newest timestamp fell out of the window and
// returns how many were removed.
func (l *SlidingWindow) Sweep() int {
	cutoff := l.now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, ts := range l.senders {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(l.senders, k)
			removed++
		}
	}
	trackedSenders.Set(float64(len(l.senders)))
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (l *SlidingWindow) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// prune removes timestamps at or before cutoff. ts is sorted ascending.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}
