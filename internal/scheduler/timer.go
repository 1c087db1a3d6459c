package scheduler

import (
	"context"
	"sync"
	"time"
)

// Wake says why a Timer stopped waiting.
type Wake int

const (
	WakeElapsed Wake = iota + 1
	WakeCancelled
)

func (w Wake) String() string {
	switch w {
	case WakeElapsed:
		return "elapsed"
	case WakeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Timer is a sleep that another goroutine can cut short. A zero duration
// sleeps until cancelled.
type Timer struct {
	deadline  time.Time
	cancelled chan struct{}
	once      sync.Once
	t         *time.Timer
}

// StartTimer begins a sleep of d.
func StartTimer(d time.Duration) *Timer {
	t := &Timer{cancelled: make(chan struct{})}
	if d > 0 {
		t.deadline = time.Now().Add(d)
		t.t = time.NewTimer(d)
	}
	return t
}

// Deadline reports when the timer elapses; ok is false for an indefinite
// timer.
func (t *Timer) Deadline() (deadline time.Time, ok bool) {
	return t.deadline, t.t != nil
}

// Cancel wakes the waiter. Safe to call more than once and from any
// goroutine.
func (t *Timer) Cancel() {
	t.once.Do(func() { close(t.cancelled) })
}

// Wait blocks until the timer elapses, is cancelled or ctx ends.
func (t *Timer) Wait(ctx context.Context) (Wake, error) {
	var elapsed <-chan time.Time
	if t.t != nil {
		defer t.t.Stop()
		elapsed = t.t.C
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-t.cancelled:
		return WakeCancelled, nil
	case <-elapsed:
		return WakeElapsed, nil
	}
}

// NextWait returns how long to sleep from now until the next multiple of
// period since the Unix epoch. When that boundary is less than a quarter
// period away the following one is used instead, so a late cycle does not
// run again almost immediately.
func NextWait(now time.Time, period time.Duration) time.Duration {
	if period <= 0 {
		return 0
	}
	offset := time.Duration(now.UnixNano() % int64(period))
	wait := period - offset
	if wait < period/4 {
		wait += period
	}
	return wait
}
