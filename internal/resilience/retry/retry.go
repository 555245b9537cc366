// Package retry retries transient network failures with exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"

	"feedsync/internal/observability/logging"
)

// Config describes a backoff policy.
type Config struct {
	// MaxAttempts counts every call, the first one included.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the wait before jitter is added.
	MaxDelay time.Duration

	// Multiplier grows the wait after each failed attempt.
	Multiplier float64

	// JitterFraction adds up to this fraction of the wait at random, 0 to 1.
	JitterFraction float64
}

func policy(attempts int, initial, ceiling time.Duration) Config {
	return Config{
		MaxAttempts:    attempts,
		InitialDelay:   initial,
		MaxDelay:       ceiling,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// DefaultConfig is three attempts starting at one second.
func DefaultConfig() Config { return policy(3, time.Second, 30*time.Second) }

// FeedFetchConfig is used for RSS/Atom downloads. Feed hosts are flaky, so
// it retries more than the destination configs.
func FeedFetchConfig() Config { return policy(4, time.Second, 15*time.Second) }

// DestinationReadConfig is used for history and record reads.
func DestinationReadConfig() Config { return policy(3, 500*time.Millisecond, 5*time.Second) }

// PublishConfig is used for record uploads. Records are content-addressed
// by signature, so repeating a PUT cannot create a duplicate post.
func PublishConfig() Config { return policy(3, time.Second, 10*time.Second) }

// WithBackoff calls fn until it succeeds, returns an error IsRetryable
// rejects, or MaxAttempts calls were made. Waiting between attempts stops
// early when ctx is done. Retries are logged with the logger carried by ctx.
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	logger := logging.FromContext(ctx)
	wait := cfg.InitialDelay

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				logger.Info("operation succeeded after retry", slog.Int("attempt", attempt))
			}
			return nil
		}
		if !IsRetryable(err) {
			logger.Debug("non-retryable error, aborting",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			return err
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, err)
		}

		logger.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", wait),
			slog.Any("error", err))
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		wait = cfg.next(wait)
	}
}

func (c Config) next(wait time.Duration) time.Duration {
	wait = time.Duration(float64(wait) * c.Multiplier)
	if wait > c.MaxDelay {
		wait = c.MaxDelay
	}
	return addJitter(wait, c.JitterFraction)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("retry aborted: %w", ctx.Err())
	}
}

var transientErrnos = []syscall.Errno{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ETIMEDOUT,
	syscall.ENETUNREACH,
}

// IsRetryable reports whether err looks transient: network timeouts, a
// refused or reset connection, or an HTTPError whose status is Temporary.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// HTTPError is a non-2xx response from a feed host or the destination.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the status is worth retrying: 5xx, 429 and 408.
func (e *HTTPError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	}
	return e.StatusCode >= 500 && e.StatusCode < 600
}

func addJitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	fraction = min(fraction, 1.0)
	// #nosec G404 -- jitter does not need cryptographic randomness.
	return d + time.Duration(rand.Float64()*float64(d)*fraction)
}
