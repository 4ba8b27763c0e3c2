package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Class is the closed set of outcomes a classified call can land in.
// Success returns as-is. Business is a domain rejection: returned as-is,
// never retried, never counted against the breaker. Technical is retried and
// penalizes the breaker.
type Class int

const (
	ClassSuccess Class = iota
	ClassBusiness
	ClassTechnical
)

// Classifier maps a response/error pair onto an outcome class
type Classifier[T any] func(T, error) Class

// Fallback produces a degraded response once retries are exhausted or the
// circuit is open. reason is the last technical error.
type Fallback[T any] func(ctx context.Context, reason error) (T, error)

// RetryConfig bounds the inline retry loop
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BackoffBase doubles per attempt, plus jitter.
	BackoffBase time.Duration
}

// Executor wraps one logical downstream call with a shared circuit breaker
// and a bounded retry policy. The breaker instance is process-wide for the
// operation; the executor itself is cheap and stateless beyond it.
type Executor struct {
	breaker *Breaker
	retry   RetryConfig

	// sleep is replaceable in tests
	sleep func(context.Context, time.Duration) error
}

// NewExecutor creates an executor around a breaker
func NewExecutor(breaker *Breaker, retry RetryConfig) *Executor {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 3
	}
	if retry.BackoffBase <= 0 {
		retry.BackoffBase = 100 * time.Millisecond
	}
	return &Executor{
		breaker: breaker,
		retry:   retry,
		sleep:   sleepCtx,
	}
}

// Breaker exposes the underlying breaker (shared state, one per operation)
func (ex *Executor) Breaker() *Breaker { return ex.breaker }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Execute runs op under the executor's policy. Success and business
// outcomes return immediately. Technical outcomes retry with exponential
// backoff; once attempts are exhausted or the circuit refuses the call, the
// fallback is invoked with the last error, or the error propagates when no
// fallback is registered.
func Execute[T any](ctx context.Context, ex *Executor, op func(context.Context) (T, error), classify Classifier[T], fallback Fallback[T]) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= ex.retry.MaxAttempts; attempt++ {
		if !ex.breaker.Allow() {
			lastErr = fmt.Errorf("%s: %w", ex.breaker.Name(), ErrCircuitOpen)
			break
		}

		res, err := op(ctx)
		switch classify(res, err) {
		case ClassSuccess:
			ex.breaker.RecordSuccess()
			return res, err

		case ClassBusiness:
			// domain rejection: the caller branches on the response
			return res, err

		default:
			ex.breaker.RecordFailure()
			if err != nil {
				lastErr = err
			} else {
				lastErr = fmt.Errorf("%s: technical failure response", ex.breaker.Name())
			}
		}

		if attempt < ex.retry.MaxAttempts {
			backoff := ex.retry.BackoffBase << (attempt - 1)
			jitter := time.Duration(rand.Int63n(int64(ex.retry.BackoffBase)/2 + 1))
			if err := ex.sleep(ctx, backoff+jitter); err != nil {
				lastErr = err
				break
			}
		}
	}

	if fallback != nil {
		return fallback(ctx, lastErr)
	}
	return zero, lastErr
}
