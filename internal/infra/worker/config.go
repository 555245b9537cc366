// Package worker runs feed syncs on a cron schedule and serves the worker's
// health and metrics endpoints.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feedsync/internal/pkg/config"
)

// Environment variables read by LoadConfigFromEnv.
const (
	EnvCronSchedule = "FEEDSYNC_CRON_SCHEDULE"
	EnvTimezone     = "FEEDSYNC_TIMEZONE"
	EnvSyncTimeout  = "FEEDSYNC_SYNC_TIMEOUT"
	EnvHealthPort   = "FEEDSYNC_HEALTH_PORT"
	EnvHTTPTimeout  = "FEEDSYNC_HTTP_TIMEOUT"
	EnvPublishRate  = "FEEDSYNC_PUBLISH_RATE"
	EnvRunOnStart   = "FEEDSYNC_RUN_ON_START"
)

// WorkerConfig holds process-level settings. Feed and destination settings
// live in the YAML config file instead.
type WorkerConfig struct {
	// CronSchedule is a five field cron expression. Default "*/30 * * * *".
	CronSchedule string

	// Timezone is the IANA zone the schedule is evaluated in. Default "UTC".
	Timezone string

	// SyncTimeout bounds one scheduled run over all feeds. 1m-4h, default 20m.
	SyncTimeout time.Duration

	// HealthPort serves /health, /health/ready, /health/breakers and /metrics.
	// 1024-65535, default 9091.
	HealthPort int

	// HTTPTimeout applies to each feed and destination request. 1s-5m, default 30s.
	HTTPTimeout time.Duration

	// PublishRate caps uploads per second to the destination. 0.1-100, default 5.
	PublishRate float64

	// RunOnStart syncs once before waiting for the first scheduled run.
	RunOnStart bool
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule: "*/30 * * * *",
		Timezone:     "UTC",
		SyncTimeout:  20 * time.Minute,
		HealthPort:   9091,
		HTTPTimeout:  30 * time.Second,
		PublishRate:  5,
	}
}

// Validate checks every field and reports all problems at once.
func (c *WorkerConfig) Validate() error {
	var errs []error
	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.SyncTimeout, time.Minute, 4*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("sync timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateDuration(c.HTTPTimeout, time.Second, 5*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("http timeout: %w", err))
	}
	if err := config.ValidateFloatRange(c.PublishRate, 0.1, 100); err != nil {
		errs = append(errs, fmt.Errorf("publish rate: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the schedule's time zone, or UTC if Timezone does not load.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadConfigFromEnv overlays environment variables on DefaultConfig. It
// never fails: an invalid value keeps its default, is logged as a warning
// and is counted in metrics.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) *WorkerConfig {
	cfg := DefaultConfig()
	fallbackApplied := false

	note := func(field, envKey string, applied bool, warnings []string) {
		if !applied {
			return
		}
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		for _, warning := range warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("env_key", envKey),
				slog.String("warning", warning))
		}
	}

	schedule := config.LoadEnvWithFallback(EnvCronSchedule, cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = schedule.Value
	note("cron_schedule", EnvCronSchedule, schedule.FallbackApplied, schedule.Warnings)

	tz := config.LoadEnvWithFallback(EnvTimezone, cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = tz.Value
	note("timezone", EnvTimezone, tz.FallbackApplied, tz.Warnings)

	syncTimeout := config.LoadEnvDuration(EnvSyncTimeout, cfg.SyncTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Minute, 4*time.Hour)
	})
	cfg.SyncTimeout = syncTimeout.Value
	note("sync_timeout", EnvSyncTimeout, syncTimeout.FallbackApplied, syncTimeout.Warnings)

	port := config.LoadEnvInt(EnvHealthPort, cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = port.Value
	note("health_port", EnvHealthPort, port.FallbackApplied, port.Warnings)

	httpTimeout := config.LoadEnvDuration(EnvHTTPTimeout, cfg.HTTPTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, 5*time.Minute)
	})
	cfg.HTTPTimeout = httpTimeout.Value
	note("http_timeout", EnvHTTPTimeout, httpTimeout.FallbackApplied, httpTimeout.Warnings)

	rate := config.LoadEnvFloat(EnvPublishRate, cfg.PublishRate, func(v float64) error {
		return config.ValidateFloatRange(v, 0.1, 100)
	})
	cfg.PublishRate = rate.Value
	note("publish_rate", EnvPublishRate, rate.FallbackApplied, rate.Warnings)

	runOnStart := config.LoadEnvBool(EnvRunOnStart, cfg.RunOnStart)
	cfg.RunOnStart = runOnStart.Value
	note("run_on_start", EnvRunOnStart, runOnStart.FallbackApplied, runOnStart.Warnings)

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()
	return &cfg
}
