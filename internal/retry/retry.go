// Package retry converts storage-layer contention into a bounded, observable
// retry loop. It is deliberately storage-agnostic: callers inject error
// classifiers (see postgres.IsLockTimeout / postgres.IsDuplicateKey).
package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Classifier reports whether an error belongs to a retryable class.
type Classifier func(error) bool

// Policy bounds the retry loop. Zero values fall back to the defaults
// (3 attempts, 100ms initial delay, exponential backoff).
type Policy struct {
	// MaxRetries is the total number of attempts, including the first.
	MaxRetries int
	// Delay is the wait before the second attempt; it doubles each retry.
	Delay time.Duration
	// IsLockTimeout classifies transient lock-contention errors.
	IsLockTimeout Classifier
	// IsDuplicate classifies duplicate-key errors. Only consulted when
	// RetryOnDuplicate is set; duplicates are usually a logic error.
	IsDuplicate Classifier
	// RetryOnDuplicate opts duplicate-key errors into the retry loop.
	RetryOnDuplicate bool
	// OnRetry, when set, observes each scheduled retry. Otherwise attempts
	// are logged through Logger.
	OnRetry func(attempt int, delay time.Duration, err error)
	// Logger receives attempt telemetry when OnRetry is nil.
	Logger *zerolog.Logger
}

const (
	defaultMaxRetries = 3
	defaultDelay      = 100 * time.Millisecond
)

func (p Policy) normalized() Policy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = defaultMaxRetries
	}
	if p.Delay <= 0 {
		p.Delay = defaultDelay
	}
	return p
}

func (p Policy) retryable(err error) (bool, string) {
	if p.IsLockTimeout != nil && p.IsLockTimeout(err) {
		return true, "lock_timeout"
	}
	if p.RetryOnDuplicate && p.IsDuplicate != nil && p.IsDuplicate(err) {
		return true, "duplicate_key"
	}
	return false, ""
}

// Do runs op up to MaxRetries times, waiting Delay * 2^(attempt-1) between
// attempts. Only errors matching a configured classifier are retried; any
// other error, or exhaustion of the budget, propagates the original error
// unchanged. Context cancellation aborts the wait and returns the last error.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	p = p.normalized()

	var err error
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}

		ok, class := p.retryable(err)
		if !ok || attempt == p.MaxRetries {
			return err
		}

		delay := p.Delay * (1 << (attempt - 1))
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		} else if p.Logger != nil {
			p.Logger.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Str("class", class).
				Err(err).
				Msg("transient storage error, retrying")
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
	}
	return err
}
