package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"luascan/internal/application/common/slogger"
)

// ErrTransient marks a failure that may succeed when the operation is repeated.
var ErrTransient = errors.New("transient failure")

// Policy is the backoff schedule of an Executor.
type Policy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
}

// DefaultPolicy retries three times, starting at 100ms and capped at 5s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// Classifier decides whether a failed attempt is repeated.
type Classifier interface {
	IsRetryable(err error) bool
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(err error) bool

// IsRetryable calls f.
func (f ClassifierFunc) IsRetryable(err error) bool {
	return f(err)
}

// IsTransient is the default classifier. Errors wrapping ErrTransient and
// errors reporting Timeout() are retried; cancellation never is.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

// Attempt describes a failed attempt that is about to be repeated.
type Attempt struct {
	Operation string
	Number    int // 1-based
	Delay     time.Duration
	Err       error
}

// Executor repeats an operation while its failures are retryable.
type Executor struct {
	policy     Policy
	classifier Classifier
	onRetry    func(ctx context.Context, attempt Attempt)
	random     func() float64
}

// Option configures an Executor.
type Option func(*Executor)

// WithClassifier replaces IsTransient as the retry decision.
func WithClassifier(classifier Classifier) Option {
	return func(e *Executor) {
		if classifier != nil {
			e.classifier = classifier
		}
	}
}

// WithRetryHook calls hook before every repeated attempt.
func WithRetryHook(hook func(ctx context.Context, attempt Attempt)) Option {
	return func(e *Executor) {
		e.onRetry = hook
	}
}

// NewExecutor creates an executor for policy.
func NewExecutor(policy Policy, opts ...Option) *Executor {
	if policy.BackoffFactor < 1 {
		policy.BackoffFactor = 1
	}
	e := &Executor{
		policy:     policy,
		classifier: ClassifierFunc(IsTransient),
		random:     rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs fn until it succeeds, fails permanently, or the retries of the
// policy are used up. operation names fn in logs and retry hooks; scan and
// file identifiers come from ctx.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= e.policy.MaxRetries+1; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				slogger.Info(ctx, "Operation succeeded after retries", slogger.Fields{
					"operation": operation,
					"attempt":   attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !e.classifier.IsRetryable(err) {
			return err
		}
		if attempt > e.policy.MaxRetries {
			break
		}

		delay := e.backoff(attempt)
		slogger.Warn(ctx, "Operation failed, will retry", slogger.Fields{
			"operation":   operation,
			"attempt":     attempt,
			"max_retries": e.policy.MaxRetries,
			"delay_ms":    delay.Milliseconds(),
			"error":       err.Error(),
		})
		if e.onRetry != nil {
			e.onRetry(ctx, Attempt{Operation: operation, Number: attempt, Delay: delay, Err: err})
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", operation, e.policy.MaxRetries, lastErr)
}

// backoff returns the wait after the given failed attempt: InitialDelay
// multiplied by BackoffFactor per earlier failure, capped at MaxDelay, then
// spread by up to 25% either way when jitter is on.
func (e *Executor) backoff(attempt int) time.Duration {
	delay := float64(e.policy.InitialDelay) * math.Pow(e.policy.BackoffFactor, float64(attempt-1))
	if maxDelay := float64(e.policy.MaxDelay); maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	if e.policy.Jitter {
		delay += delay * 0.25 * (2*e.random() - 1)
	}
	return time.Duration(delay)
}
