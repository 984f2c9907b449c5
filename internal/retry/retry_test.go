package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	errLockTimeout = errors.New("lock wait timeout")
	errDuplicate   = errors.New("duplicate key")
	errBusiness    = errors.New("code already used")
)

func lockClassifier(err error) bool { return errors.Is(err, errLockTimeout) }
func dupClassifier(err error) bool  { return errors.Is(err, errDuplicate) }

func TestDo_RetryBound(t *testing.T) {
	t.Parallel()

	attempts := 0
	p := Policy{
		MaxRetries:    3,
		Delay:         10 * time.Millisecond,
		IsLockTimeout: lockClassifier,
	}

	start := time.Now()
	err := Do(context.Background(), p, func(ctx context.Context) error {
		attempts++
		return errLockTimeout
	})
	elapsed := time.Since(start)

	if attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", attempts)
	}
	if !errors.Is(err, errLockTimeout) {
		t.Fatalf("expected the original error to propagate, got %v", err)
	}
	// waits are 10ms + 20ms between the three attempts
	if elapsed < 30*time.Millisecond {
		t.Fatalf("expected backoff of at least 30ms, elapsed %v", elapsed)
	}
	if elapsed > 300*time.Millisecond {
		t.Fatalf("backoff far larger than expected: %v", elapsed)
	}
}

func TestDo_ExponentialDelays(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	p := Policy{
		MaxRetries:    4,
		Delay:         10 * time.Millisecond,
		IsLockTimeout: lockClassifier,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			delays = append(delays, delay)
		},
	}

	_ = Do(context.Background(), p, func(ctx context.Context) error { return errLockTimeout })

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("expected %d scheduled retries, got %d", len(want), len(delays))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("retry %d: delay %v, want %v", i+1, delays[i], want[i])
		}
	}
}

func TestDo_NonRetryableFailsFast(t *testing.T) {
	t.Parallel()

	attempts := 0
	p := Policy{MaxRetries: 5, Delay: time.Millisecond, IsLockTimeout: lockClassifier}

	err := Do(context.Background(), p, func(ctx context.Context) error {
		attempts++
		return errBusiness
	})

	if attempts != 1 {
		t.Fatalf("business errors must not be retried; got %d attempts", attempts)
	}
	if !errors.Is(err, errBusiness) {
		t.Fatalf("expected business error unchanged, got %v", err)
	}
}

func TestDo_DuplicateOptIn(t *testing.T) {
	t.Parallel()

	// off by default
	attempts := 0
	p := Policy{MaxRetries: 3, Delay: time.Millisecond, IsDuplicate: dupClassifier}
	_ = Do(context.Background(), p, func(ctx context.Context) error {
		attempts++
		return errDuplicate
	})
	if attempts != 1 {
		t.Fatalf("duplicates retried without opt-in: %d attempts", attempts)
	}

	// opted in: retried, and a fresh attempt can succeed
	attempts = 0
	p.RetryOnDuplicate = true
	err := Do(context.Background(), p, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errDuplicate
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after duplicate retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_SucceedsAfterTransient(t *testing.T) {
	t.Parallel()

	attempts := 0
	p := Policy{MaxRetries: 3, Delay: time.Millisecond, IsLockTimeout: lockClassifier}
	err := Do(context.Background(), p, func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return errLockTimeout
		}
		return nil
	})
	if err != nil || attempts != 2 {
		t.Fatalf("expected success on attempt 2, got err=%v attempts=%d", err, attempts)
	}
}

func TestDo_ContextCancelAbortsWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxRetries: 3, Delay: time.Hour, IsLockTimeout: lockClassifier}

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, func(ctx context.Context) error { return errLockTimeout })
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, errLockTimeout) {
			t.Fatalf("expected the last error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}
