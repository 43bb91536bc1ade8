// Package poll provides the deadline-bounded polling primitive shared by every
// wait in esximanager.
package poll

import (
	"context"
	"time"
)

// Outcome is the result of a check or of a whole wait.
type Outcome string

// Outcomes. Wait is only ever produced by a check; WaitFor never returns it.
const (
	OK       Outcome = "OK"
	Wait     Outcome = "WAIT"
	TimedOut Outcome = "TIMEDOUT"
)

// CheckFunc reports whether the awaited condition holds (OK) or not yet (Wait).
type CheckFunc func(ctx context.Context) Outcome

// WaitFor calls check until it reports OK or timeout elapses, sleeping interval
// between calls. check is always called at least once. A timeout <= 0 never
// expires. The deadline is checked after every call so a timed out wait does
// not end with a useless sleep. A done context is treated like an elapsed
// deadline.
func WaitFor(ctx context.Context, check CheckFunc, interval, timeout time.Duration) Outcome {
	start := time.Now()
	expired := func() bool {
		return ctx.Err() != nil || (timeout > 0 && time.Since(start) > timeout)
	}

	for {
		if check(ctx) == OK {
			return OK
		}

		if expired() {
			return TimedOut
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return TimedOut
		case <-timer.C:
		}
	}
}
