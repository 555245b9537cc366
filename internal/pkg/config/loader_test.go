package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvString(t *testing.T) {
	assert.Equal(t, "default_value", LoadEnvString("FEEDSYNC_TEST_STRING", "default_value"))

	t.Setenv("FEEDSYNC_TEST_STRING", "")
	assert.Equal(t, "default_value", LoadEnvString("FEEDSYNC_TEST_STRING", "default_value"))

	t.Setenv("FEEDSYNC_TEST_STRING", "custom_value")
	assert.Equal(t, "custom_value", LoadEnvString("FEEDSYNC_TEST_STRING", "default_value"))
}

func TestLoadEnvWithFallback(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		validator    func(string) error
		want         string
		wantFallback bool
	}{
		{"unset uses default", "", ValidateCronSchedule, "*/30 * * * *", false},
		{"valid value", "0 6 * * *", ValidateCronSchedule, "0 6 * * *", false},
		{"invalid value falls back", "not a cron", ValidateCronSchedule, "*/30 * * * *", true},
		{"no validator accepts anything", "anything", nil, "anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FEEDSYNC_TEST_CRON", tt.value)

			result := LoadEnvWithFallback("FEEDSYNC_TEST_CRON", "*/30 * * * *", tt.validator)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantFallback {
				assert.Len(t, result.Warnings, 1)
				assert.Contains(t, result.Warnings[0], "Invalid FEEDSYNC_TEST_CRON='not a cron'")
				assert.Contains(t, result.Warnings[0], "falling back to default '*/30 * * * *'")
			} else {
				assert.Empty(t, result.Warnings)
			}
		})
	}
}

func TestLoadEnvDuration(t *testing.T) {
	tenMinutes := func(d time.Duration) error { return ValidateDuration(d, time.Minute, 10*time.Minute) }
	tests := []struct {
		name         string
		value        string
		want         time.Duration
		wantFallback bool
	}{
		{"unset", "", 5 * time.Minute, false},
		{"valid", "2m30s", 150 * time.Second, false},
		{"unparseable", "five minutes", 5 * time.Minute, true},
		{"out of range", "1h", 5 * time.Minute, true},
		{"negative", "-2m", 5 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FEEDSYNC_TEST_DURATION", tt.value)

			result := LoadEnvDuration("FEEDSYNC_TEST_DURATION", 5*time.Minute, tenMinutes)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	port := func(v int) error { return ValidateIntRange(v, 1024, 65535) }
	tests := []struct {
		name         string
		value        string
		want         int
		wantFallback bool
	}{
		{"unset", "", 9091, false},
		{"valid", "8080", 8080, false},
		{"decimal", "8080.5", 9091, true},
		{"spaces", " 8080 ", 9091, true},
		{"letters", "eighty", 9091, true},
		{"below minimum", "80", 9091, true},
		{"above maximum", "70000", 9091, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FEEDSYNC_TEST_PORT", tt.value)

			result := LoadEnvInt("FEEDSYNC_TEST_PORT", 9091, port)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
		})
	}
}

func TestLoadEnvFloat(t *testing.T) {
	positive := func(v float64) error { return ValidateFloatRange(v, 0.1, 100) }

	t.Setenv("FEEDSYNC_TEST_RATE", "2.5")
	result := LoadEnvFloat("FEEDSYNC_TEST_RATE", 5, positive)
	assert.Equal(t, 2.5, result.Value)
	assert.False(t, result.FallbackApplied)

	t.Setenv("FEEDSYNC_TEST_RATE", "0")
	result = LoadEnvFloat("FEEDSYNC_TEST_RATE", 5, positive)
	assert.Equal(t, 5.0, result.Value)
	assert.True(t, result.FallbackApplied)

	t.Setenv("FEEDSYNC_TEST_RATE", "fast")
	result = LoadEnvFloat("FEEDSYNC_TEST_RATE", 5, positive)
	assert.Equal(t, 5.0, result.Value)
	assert.Contains(t, result.Warnings[0], "invalid number format")
}

func TestLoadEnvBool(t *testing.T) {
	for _, v := range []string{"1", "t", "T", "true", "TRUE", "True"} {
		t.Setenv("FEEDSYNC_TEST_BOOL", v)
		result := LoadEnvBool("FEEDSYNC_TEST_BOOL", false)
		assert.True(t, result.Value, v)
		assert.False(t, result.FallbackApplied, v)
	}
	for _, v := range []string{"0", "f", "F", "false", "FALSE", "False"} {
		t.Setenv("FEEDSYNC_TEST_BOOL", v)
		result := LoadEnvBool("FEEDSYNC_TEST_BOOL", true)
		assert.False(t, result.Value, v)
		assert.False(t, result.FallbackApplied, v)
	}

	t.Setenv("FEEDSYNC_TEST_BOOL", "yes")
	result := LoadEnvBool("FEEDSYNC_TEST_BOOL", true)
	assert.True(t, result.Value)
	assert.True(t, result.FallbackApplied)
	assert.Contains(t, result.Warnings[0], "expected 'true' or 'false'")
}
