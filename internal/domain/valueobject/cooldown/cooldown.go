// Package cooldown models the resend cooldown of a one-time code.
//
// A cooldown is either counting down or ready. It starts counting when a code is
// issued, becomes ready once its duration has elapsed, and can only be restarted
// from the ready state.
package cooldown

import (
	"time"

	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/i18nx"
)

type State string

const (
	StateCounting State = "counting"
	StateReady    State = "ready"
)

func (s State) String() string {
	return string(s)
}

// ErrActive is returned when a restart is attempted while still counting.
// Errors returned by Restart carry the remaining seconds as retry_after.
var ErrActive = errorx.NewRateLimitExceeded().WithKey(i18nx.KeyWaitUntilResend)

type Cooldown struct {
	duration time.Duration
	readyAt  time.Time
}

// New starts a cooldown of duration d at now.
func New(d time.Duration, now time.Time) Cooldown {
	return Cooldown{
		duration: d,
		readyAt:  now.Add(d),
	}
}

// Rehydrate restores a cooldown that becomes ready at readyAt.
func Rehydrate(d time.Duration, readyAt time.Time) Cooldown {
	return Cooldown{
		duration: d,
		readyAt:  readyAt,
	}
}

func (c Cooldown) Duration() time.Duration {
	return c.duration
}

func (c Cooldown) ReadyAt() time.Time {
	return c.readyAt
}

func (c Cooldown) State(now time.Time) State {
	if c.readyAt.IsZero() || !now.Before(c.readyAt) {
		return StateReady
	}
	return StateCounting
}

func (c Cooldown) IsReady(now time.Time) bool {
	return c.State(now) == StateReady
}

// Remaining is the time left until ready, rounded up to whole seconds so that a
// countdown never shows 0 while still counting.
func (c Cooldown) Remaining(now time.Time) time.Duration {
	if c.IsReady(now) {
		return 0
	}
	left := c.readyAt.Sub(now)
	return (left + time.Second - 1) / time.Second * time.Second
}

func (c Cooldown) RemainingSeconds(now time.Time) int {
	return int(c.Remaining(now) / time.Second)
}

// Restart begins a new counting cycle. It fails with ErrActive while counting.
func (c Cooldown) Restart(now time.Time) (Cooldown, error) {
	if !c.IsReady(now) {
		return c, ErrActive.WithArgs(map[string]any{i18nx.ArgRetryAfter: c.RemainingSeconds(now)})
	}
	return New(c.duration, now), nil
}

// Snapshot is the observable state of a cooldown at one instant.
type Snapshot struct {
	State            State     `json:"state"`
	RemainingSeconds int       `json:"remaining_seconds"`
	ReadyAt          time.Time `json:"ready_at"`
}

func (c Cooldown) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		State:            c.State(now),
		RemainingSeconds: c.RemainingSeconds(now),
		ReadyAt:          c.readyAt,
	}
}
