// Package retry provides the polling loop used to wait for a remote
// port to start accepting connections.
//
// Dispatched commands are never retried; only the connect-and-wait
// dial polls, and only until its own deadline.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError wraps an error to signal that polling again will not
// help.  Return [Permanent](err) from the attempt to stop immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as final.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err has been marked as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ── Exhaustion ───────────────────────────────────────────────────────

// ExhaustedError is returned when the attempt never succeeded before the
// context ended or the attempt budget ran out.
type ExhaustedError struct {
	Attempts int
	Last     error // last attempt failure (nil if no attempt ran)
	Cause    error // ctx.Err(), or nil when the attempt budget ran out
}

func (e *ExhaustedError) Error() string {
	switch {
	case e.Cause != nil && e.Last != nil:
		return fmt.Sprintf("%v after %d attempt(s), last: %v", e.Cause, e.Attempts, e.Last)
	case e.Cause != nil:
		return fmt.Sprintf("%v after %d attempt(s)", e.Cause, e.Attempts)
	default:
		return fmt.Sprintf("gave up after %d attempt(s): %v", e.Attempts, e.Last)
	}
}

func (e *ExhaustedError) Unwrap() []error {
	var out []error
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	if e.Last != nil {
		out = append(out, e.Last)
	}
	return out
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff spaces out attempts with exponential growth and
// optional jitter.
type Backoff struct {
	// InitialDelay is the pause after the first failed attempt (default 50ms).
	InitialDelay time.Duration
	// MaxDelay caps the pause between attempts (default 1s).
	MaxDelay time.Duration
	// Multiplier grows the pause after each failure (default 2.0).
	Multiplier float64
	// MaxAttempts bounds the number of attempts; 0 polls until ctx ends.
	MaxAttempts int
	// Jitter adds ±25% randomisation to each pause.
	Jitter bool
}

// DefaultBackoff returns the attempt schedule used by connect-and-wait.
func DefaultBackoff() *Backoff {
	return &Backoff{
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Poll runs try until it returns nil, returns a permanent error, or
// the budget is spent.  The attempt number passed to try is 1-based.
// Pauses never outlast ctx: when ctx ends mid-pause Poll returns at
// once with an *ExhaustedError wrapping ctx.Err().
func (b *Backoff) Poll(ctx context.Context, try func(ctx context.Context, attempt int) error) error {
	delay := b.InitialDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	multiplier := b.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	maxDelay := b.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Second
	}

	var last error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return &ExhaustedError{Attempts: attempt - 1, Last: last, Cause: err}
		}

		err := try(ctx, attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		last = err

		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return &ExhaustedError{Attempts: attempt, Last: last}
		}

		wait := delay
		if b.Jitter {
			wait = addJitter(delay)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &ExhaustedError{Attempts: attempt, Last: last, Cause: ctx.Err()}
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * multiplier)
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// addJitter adds ±25% randomisation to a duration.
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := (rand.Float64() * 2 * quarter) - quarter
	result := float64(d) + delta
	return time.Duration(math.Max(result, float64(time.Millisecond)))
}
