// Package poll provides a bounded sleep-then-check loop.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when the condition did not complete within the timeout.
var ErrTimeout = errors.New("poll: timed out")

// ConditionFunc reports whether polling is done. A non-nil error stops polling.
type ConditionFunc func(ctx context.Context) (bool, error)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Poller calls a condition every Interval until it is done or Timeout has been spent.
type Poller struct {
	Interval time.Duration
	Timeout  time.Duration
	sleep    SleepFunc
}

// New creates a Poller.
func New(interval, timeout time.Duration) *Poller {
	return &Poller{Interval: interval, Timeout: timeout, sleep: Sleep}
}

// NewWithSleep creates a Poller with a custom sleep function (for testing).
func NewWithSleep(interval, timeout time.Duration, sleep SleepFunc) *Poller {
	return &Poller{Interval: interval, Timeout: timeout, sleep: sleep}
}

// Until sleeps one interval before every check. Elapsed time is counted in
// intervals, so the condition runs at most Timeout/Interval times.
func (p *Poller) Until(ctx context.Context, condition ConditionFunc) error {
	if p.Interval <= 0 {
		return errors.New("poll: interval must be positive")
	}

	var waited time.Duration
	for waited < p.Timeout {
		if err := p.sleep(ctx, p.Interval); err != nil {
			return err
		}
		waited += p.Interval

		done, err := condition(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	return ErrTimeout
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
