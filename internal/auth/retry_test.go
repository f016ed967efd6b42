package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastStrategy(maxAttempts int) Strategy {
	return Strategy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		Multiplier:  2.0,
		Jitter:      false,
	}
}

func okResponse() *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
	}
}

func TestStrategy_CalculateDelay(t *testing.T) {
	s := Strategy{
		BaseDelay:  time.Second,
		MaxDelay:   3 * time.Second,
		Multiplier: 2.0,
		Jitter:     false,
	}

	tests := []struct {
		name     string
		attempt  int
		expected time.Duration
	}{
		{name: "zeroth attempt", attempt: 0, expected: 0},
		{name: "first attempt", attempt: 1, expected: time.Second},
		{name: "second attempt doubles", attempt: 2, expected: 2 * time.Second},
		{name: "third attempt is capped", attempt: 3, expected: 3 * time.Second},
		{name: "later attempts stay capped", attempt: 10, expected: 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.calculateDelay(tt.attempt))
		})
	}
}

func TestStrategy_CalculateDelay_JitterStaysUnderCeiling(t *testing.T) {
	s := CloudStrategy()

	for attempt := 1; attempt <= 20; attempt++ {
		delay := s.calculateDelay(attempt)
		assert.GreaterOrEqual(t, delay, time.Duration(0))
		assert.LessOrEqual(t, delay, s.MaxDelay)
	}
}

func TestStrategy_Do_RetriesTransportErrors(t *testing.T) {
	s := fastStrategy(10)

	calls := 0
	resp, err := s.do(context.Background(), discardLogger(), "test", func() (*http.Response, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return okResponse(), nil
	})

	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, calls)
}

func TestStrategy_Do_DoesNotRetryApplicationResponses(t *testing.T) {
	s := fastStrategy(10)

	calls := 0
	resp, err := s.do(context.Background(), discardLogger(), "test", func() (*http.Response, error) {
		calls++
		r := okResponse()
		r.StatusCode = http.StatusUnauthorized
		return r, nil
	})

	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 1, calls, "non-200 responses are for the caller, not the retry loop")
}

func TestStrategy_Do_ExhaustsBoundedAttempts(t *testing.T) {
	s := fastStrategy(3)

	lastErr := errors.New("dial timeout")
	calls := 0
	_, err := s.do(context.Background(), discardLogger(), "test", func() (*http.Response, error) {
		calls++
		return nil, lastErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, lastErr)
	assert.Equal(t, 3, calls)
}

func TestStrategy_Do_StopsOnContextCancel(t *testing.T) {
	// Unbounded strategy; only the context stops it.
	s := fastStrategy(0)

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := s.do(ctx, discardLogger(), "test", func() (*http.Response, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return nil, errors.New("connection reset")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}
