package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestPoll_SuccessAfterFailures(t *testing.T) {
	b := &Backoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   1.5,
	}
	calls := 0

	err := b.Poll(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return fmt.Errorf("connection refused")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestPoll_ImmediateSuccess(t *testing.T) {
	err := DefaultBackoff().Poll(context.Background(), func(context.Context, int) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPoll_PermanentError(t *testing.T) {
	calls := 0
	err := DefaultBackoff().Poll(context.Background(), func(context.Context, int) error {
		calls++
		return Permanent(fmt.Errorf("fatal"))
	})

	if err == nil || err.Error() != "fatal" {
		t.Fatalf("expected 'fatal', got %v", err)
	}
	if calls != 1 {
		t.Errorf("permanent error should stop after 1 call, got %d", calls)
	}
}

func TestPoll_MaxAttempts(t *testing.T) {
	b := &Backoff{InitialDelay: time.Millisecond, MaxAttempts: 3}
	calls := 0
	tryErr := fmt.Errorf("always fails")

	err := b.Poll(context.Background(), func(context.Context, int) error {
		calls++
		return tryErr
	})

	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("expected *ExhaustedError, got %T: %v", err, err)
	}
	if ex.Attempts != 3 || calls != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3", ex.Attempts, calls)
	}
	if !errors.Is(err, tryErr) {
		t.Error("should unwrap to the last attempt error")
	}
	if ex.Cause != nil {
		t.Errorf("cause = %v, want nil", ex.Cause)
	}
}

func TestPoll_DeadlineCutsPause(t *testing.T) {
	b := &Backoff{InitialDelay: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := b.Poll(ctx, func(context.Context, int) error {
		return fmt.Errorf("fail")
	})
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed > time.Second {
		t.Errorf("poll outlived its deadline: %v", elapsed)
	}
}

func TestPoll_CancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := DefaultBackoff().Poll(ctx, func(context.Context, int) error {
		calls++
		return nil
	})

	var ex *ExhaustedError
	if !errors.As(err, &ex) || ex.Attempts != 0 {
		t.Fatalf("expected exhausted after 0 attempts, got %v", err)
	}
	if calls != 0 {
		t.Errorf("attempt should not run, ran %d times", calls)
	}
}

func TestExhaustedError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ExhaustedError
		want string
	}{
		{"cause and last", ExhaustedError{Attempts: 4, Last: fmt.Errorf("refused"), Cause: context.DeadlineExceeded},
			"context deadline exceeded after 4 attempt(s), last: refused"},
		{"cause only", ExhaustedError{Cause: context.Canceled}, "context canceled after 0 attempt(s)"},
		{"budget", ExhaustedError{Attempts: 2, Last: fmt.Errorf("refused")}, "gave up after 2 attempt(s): refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPermanent_Nil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"permanent", Permanent(fmt.Errorf("x")), true},
		{"not permanent", fmt.Errorf("x"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJitter_Range(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		j := addJitter(d)
		lower := time.Duration(float64(d) * 0.74)
		upper := time.Duration(float64(d) * 1.26)
		if j < lower || j > upper {
			t.Errorf("jitter %v out of expected range [%v, %v]", j, lower, upper)
		}
	}
}
