package worker

import (
	"testing"
	"time"

	"feedsync/internal/observability/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "*/30 * * * *", cfg.CronSchedule)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 20*time.Minute, cfg.SyncTimeout)
	assert.Equal(t, 9091, cfg.HealthPort)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5.0, cfg.PublishRate)
	assert.NoError(t, cfg.Validate())
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*WorkerConfig)
		wantErr string
	}{
		{"bad cron", func(c *WorkerConfig) { c.CronSchedule = "every hour" }, "cron schedule"},
		{"empty timezone", func(c *WorkerConfig) { c.Timezone = "" }, "timezone"},
		{"unknown timezone", func(c *WorkerConfig) { c.Timezone = "Mars/Base" }, "timezone"},
		{"sync timeout too short", func(c *WorkerConfig) { c.SyncTimeout = time.Second }, "sync timeout"},
		{"privileged port", func(c *WorkerConfig) { c.HealthPort = 80 }, "health port"},
		{"http timeout too long", func(c *WorkerConfig) { c.HTTPTimeout = time.Hour }, "http timeout"},
		{"zero publish rate", func(c *WorkerConfig) { c.PublishRate = 0 }, "publish rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestWorkerConfig_Validate_ReportsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CronSchedule = "bad"
	cfg.HealthPort = 1
	cfg.PublishRate = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron schedule")
	assert.Contains(t, err.Error(), "health port")
	assert.Contains(t, err.Error(), "publish rate")
}

func TestWorkerConfig_Location(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Europe/Berlin"
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())

	cfg.Timezone = "nowhere"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfigFromEnv_Valid(t *testing.T) {
	t.Setenv(EnvCronSchedule, "0 * * * *")
	t.Setenv(EnvTimezone, "America/New_York")
	t.Setenv(EnvSyncTimeout, "45m")
	t.Setenv(EnvHealthPort, "8081")
	t.Setenv(EnvHTTPTimeout, "10s")
	t.Setenv(EnvPublishRate, "0.5")
	t.Setenv(EnvRunOnStart, "true")
	metrics := NewWorkerMetrics(prometheus.NewRegistry())

	cfg := LoadConfigFromEnv(logging.Discard(), metrics)

	assert.Equal(t, WorkerConfig{
		CronSchedule: "0 * * * *",
		Timezone:     "America/New_York",
		SyncTimeout:  45 * time.Minute,
		HealthPort:   8081,
		HTTPTimeout:  10 * time.Second,
		PublishRate:  0.5,
		RunOnStart:   true,
	}, *cfg)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.FallbackActive))
	assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), 0.0)
}

func TestLoadConfigFromEnv_FallsBackPerField(t *testing.T) {
	t.Setenv(EnvCronSchedule, "0 6 * * *")
	t.Setenv(EnvTimezone, "Invalid/Zone")
	t.Setenv(EnvSyncTimeout, "10h")
	t.Setenv(EnvHealthPort, "not-a-port")
	t.Setenv(EnvPublishRate, "1000")
	t.Setenv(EnvRunOnStart, "sometimes")
	metrics := NewWorkerMetrics(prometheus.NewRegistry())

	cfg := LoadConfigFromEnv(logging.Discard(), metrics)

	defaults := DefaultConfig()
	assert.Equal(t, "0 6 * * *", cfg.CronSchedule)
	assert.Equal(t, defaults.Timezone, cfg.Timezone)
	assert.Equal(t, defaults.SyncTimeout, cfg.SyncTimeout)
	assert.Equal(t, defaults.HealthPort, cfg.HealthPort)
	assert.Equal(t, defaults.HTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, defaults.PublishRate, cfg.PublishRate)
	assert.False(t, cfg.RunOnStart)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbackActive))
	for _, field := range []string{"timezone", "sync_timeout", "health_port", "publish_rate", "run_on_start"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues(field)), field)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues(field, "default")), field)
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("cron_schedule")))
}
