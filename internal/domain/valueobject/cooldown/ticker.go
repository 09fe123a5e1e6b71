package cooldown

import (
	"context"
	"time"
)

// TickSource starts a periodic tick and returns its channel and a stop func.
type TickSource func(d time.Duration) (<-chan time.Time, func())

func realTicks(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Ticker drives a countdown for one cooldown cycle.
type Ticker struct {
	cooldown Cooldown
	interval time.Duration
	now      func() time.Time
	ticks    TickSource
}

type TickerOption func(*Ticker)

func WithClock(now func() time.Time) TickerOption {
	return func(t *Ticker) { t.now = now }
}

func WithTickSource(src TickSource) TickerOption {
	return func(t *Ticker) { t.ticks = src }
}

func WithInterval(d time.Duration) TickerOption {
	return func(t *Ticker) { t.interval = d }
}

func NewTicker(c Cooldown, opts ...TickerOption) *Ticker {
	t := &Ticker{
		cooldown: c,
		interval: time.Second,
		now:      time.Now,
		ticks:    realTicks,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run reports the current snapshot immediately and then once per interval.
// It returns nil right after reporting the ready snapshot, which therefore is
// reported exactly once, or ctx.Err() when ctx is canceled first.
// The underlying ticker is always stopped before Run returns.
func (t *Ticker) Run(ctx context.Context, onTick func(Snapshot)) error {
	snap := t.cooldown.Snapshot(t.now())
	onTick(snap)
	if snap.State == StateReady {
		return nil
	}

	ticks, stop := t.ticks(t.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			snap = t.cooldown.Snapshot(t.now())
			onTick(snap)
			if snap.State == StateReady {
				return nil
			}
		}
	}
}
