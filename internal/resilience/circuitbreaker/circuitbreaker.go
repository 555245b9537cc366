// Package circuitbreaker stops calling a remote that keeps failing.
// It uses the github.com/sony/gobreaker library.
package circuitbreaker

import (
	"log/slog"
	"time"

	"feedsync/internal/observability/metrics"

	"github.com/sony/gobreaker"
)

// Config tunes one breaker. The breaker opens once at least MinRequests
// calls were made in the current Interval and the share of failures among
// them reaches FailureThreshold.
type Config struct {
	// Name labels logs and the circuit_breaker_state gauge.
	Name string

	// MaxRequests is how many probes a half-open breaker lets through.
	MaxRequests uint32

	// Interval resets the closed-state counts. Zero never resets.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// FailureThreshold is a ratio, so 0.6 trips at 60% failures.
	FailureThreshold float64

	MinRequests uint32

	// Logger receives state changes. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns moderate settings for an unnamed remote.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          time.Minute,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// FeedFetchConfig is shared by all feeds of a run. A single dead feed host
// cannot trip it on its own because every feed is fetched once per run.
func FeedFetchConfig() Config {
	cfg := DefaultConfig("feed-fetch")
	cfg.MaxRequests = 5
	cfg.Interval = time.Minute
	cfg.Timeout = 2 * time.Minute
	cfg.FailureThreshold = 0.7
	cfg.MinRequests = 10
	return cfg
}

// DestinationConfig guards the destination server. When it is down every
// feed would fail the same way, so five straight failures open it.
func DestinationConfig(name string) Config {
	cfg := DefaultConfig(name)
	cfg.MaxRequests = 2
	cfg.Interval = time.Minute
	cfg.Timeout = 30 * time.Second
	cfg.FailureThreshold = 1.0
	return cfg
}

func (c Config) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureThreshold
}

// CircuitBreaker is a named gobreaker.CircuitBreaker that reports its state.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New builds a breaker. State changes are logged at warn level and
// exported as the circuit_breaker_state gauge.
func New(cfg Config) *CircuitBreaker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics.RecordCircuitState(cfg.Name, int(gobreaker.StateClosed))
	return &CircuitBreaker{
		name: cfg.Name,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: cfg.readyToTrip,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					slog.String("circuit", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
				metrics.RecordCircuitState(name, int(to))
			},
		}),
	}
}

// Execute runs fn unless the breaker is open, in which case it returns
// gobreaker.ErrOpenState without calling fn.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

// Do is Execute with a typed result.
func Do[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	result, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func (cb *CircuitBreaker) State() gobreaker.State { return cb.breaker.State() }

func (cb *CircuitBreaker) Name() string { return cb.name }

// IsOpen reports whether calls are currently being rejected.
func (cb *CircuitBreaker) IsOpen() bool { return cb.State() == gobreaker.StateOpen }
