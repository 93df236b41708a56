package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/meshsim/gateway/internal/backend"
)

// maxJitter bounds the random addition to each backoff delay, spreading out
// retries so concurrent callers do not hammer a recovering service in step.
const maxJitter = 100 * time.Millisecond

// Policy retries an operation with exponential backoff, bounded by attempt
// count. It is immutable after construction and keeps no state between
// calls. It never consults the circuit breaker: every attempt goes straight
// to the backend operation.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	retryable   func(error) bool
	logger      *slog.Logger
}

func NewPolicy(maxAttempts int, baseDelay time.Duration, logger *slog.Logger) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Policy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		retryable:   Retryable,
		logger:      logger,
	}
}

// Retryable reports whether a failure is worth another attempt.
// Request-level errors (not found, unauthorized, forbidden, bad request)
// and context cancellation are terminal; everything else is treated as
// transient.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, backend.ErrNotFound),
		errors.Is(err, backend.ErrUnauthorized),
		errors.Is(err, backend.ErrForbidden),
		errors.Is(err, backend.ErrBadRequest),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// Do invokes op up to maxAttempts times. The first success returns
// immediately. Between failed attempts it sleeps baseDelay * 2^(attempt-1)
// plus jitter; a non-retryable failure or the final attempt's failure is
// returned to the caller as-is.
func (p *Policy) Do(ctx context.Context, service string, op backend.Operation) (any, error) {
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		p.logger.Debug("attempting call",
			slog.String("service", service),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.maxAttempts))

		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				p.logger.Info("call succeeded after retry",
					slog.String("service", service),
					slog.Int("attempt", attempt))
			}
			return result, nil
		}

		lastErr = err
		p.logger.Warn("call attempt failed",
			slog.String("service", service),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		if !p.retryable(err) {
			p.logger.Info("failure is not retryable, giving up",
				slog.String("service", service),
				slog.String("error", err.Error()))
			return nil, err
		}

		if attempt == p.maxAttempts {
			break
		}

		delay := backoff(p.baseDelay, attempt)
		p.logger.Debug("backing off before retry",
			slog.String("service", service),
			slog.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	p.logger.Error("all attempts failed",
		slog.String("service", service),
		slog.Int("attempts", p.maxAttempts))
	return nil, lastErr
}

// backoff is baseDelay doubled per attempt plus jitter drawn uniformly from
// [0, maxJitter).
func backoff(baseDelay time.Duration, attempt int) time.Duration {
	delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
	return delay + time.Duration(rand.Int64N(int64(maxJitter)))
}
