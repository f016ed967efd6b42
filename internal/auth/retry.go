package auth

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

// Strategy defines the retry behavior for cloud requests.
//
// MaxAttempts <= 0 retries without bound: transient Enlighten flakiness is
// waited out rather than surfaced. Callers that need an upper bound cancel
// the context instead.
type Strategy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool
}

// CloudStrategy returns the retry strategy for the Enlighten round-trips:
// randomized exponential backoff, doubling per attempt, capped at 3 seconds.
func CloudStrategy() Strategy {
	return Strategy{
		MaxAttempts: 0,
		BaseDelay:   time.Second,
		MaxDelay:    3 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// calculateDelay computes the delay before the given attempt's retry.
func (s Strategy) calculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(s.BaseDelay) * math.Pow(s.Multiplier, float64(attempt-1))

	if delay > float64(s.MaxDelay) {
		delay = float64(s.MaxDelay)
	}

	// Full jitter: anywhere between zero and the exponential ceiling.
	if s.Jitter {
		delay *= rand.Float64()
	}

	return time.Duration(delay)
}

// do executes fn until it returns a response, retrying transport-level
// failures (connection errors, timeouts, protocol errors). Application-level
// responses with a non-200 status are returned to the caller as-is; deciding
// what to do with them is not a retry concern.
func (s Strategy) do(
	ctx context.Context,
	logger *slog.Logger,
	operation string,
	fn func() (*http.Response, error),
) (*http.Response, error) {
	for attempt := 1; ; attempt++ {
		resp, err := fn()
		if err == nil {
			if attempt > 1 {
				logger.InfoContext(ctx, "Cloud request succeeded after retry",
					"operation", operation,
					"attempt", attempt)
			}
			return resp, nil
		}

		// A cancelled or expired context is the caller giving up, not a
		// transient fault.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
		}

		if s.MaxAttempts > 0 && attempt >= s.MaxAttempts {
			return nil, err
		}

		delay := s.calculateDelay(attempt)
		logger.WarnContext(ctx, "Cloud request failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
		case <-time.After(delay):
		}
	}
}
