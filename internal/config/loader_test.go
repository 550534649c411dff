package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Test Group 1: LoadEnvWithFallback
// ============================================================================

func TestLoadEnvWithFallback_WithValidValue(t *testing.T) {
	t.Setenv("TEST_CRON", "0 6 * * *")

	result := LoadEnvWithFallback("TEST_CRON", "*/30 * * * *", ValidateCronSchedule)

	assert.Equal(t, "0 6 * * *", result.Value)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvWithFallback_WithoutValue(t *testing.T) {
	result := LoadEnvWithFallback("TEST_CRON_UNSET", "*/30 * * * *", ValidateCronSchedule)

	assert.Equal(t, "*/30 * * * *", result.Value)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvWithFallback_InvalidValue(t *testing.T) {
	t.Setenv("TEST_CRON", "not a cron")

	result := LoadEnvWithFallback("TEST_CRON", "*/30 * * * *", ValidateCronSchedule)

	assert.Equal(t, "*/30 * * * *", result.Value)
	assert.True(t, result.FallbackApplied)
	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Invalid TEST_CRON='not a cron'")
	assert.Contains(t, result.Warnings[0], "falling back to default '*/30 * * * *'")
}

func TestLoadEnvWithFallback_NoValidator(t *testing.T) {
	t.Setenv("TEST_STRING", "any_value")

	result := LoadEnvWithFallback("TEST_STRING", "default", nil)

	assert.Equal(t, "any_value", result.Value)
	assert.False(t, result.FallbackApplied)
}

// ============================================================================
// Test Group 2: LoadEnvDuration / LoadEnvInt / LoadEnvFloat
// ============================================================================

func TestLoadEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		want         time.Duration
		wantFallback bool
	}{
		{name: "valid", value: "500ms", want: 500 * time.Millisecond},
		{name: "unparseable", value: "soon", want: time.Second, wantFallback: true},
		{name: "fails validation", value: "-1s", want: time.Second, wantFallback: true},
		{name: "unset", value: "", want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)

			result := LoadEnvDuration("TEST_DURATION", time.Second, ValidatePositiveDuration)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		want         int
		wantFallback bool
	}{
		{name: "valid", value: "3", want: 3},
		{name: "not a number", value: "three", want: 5, wantFallback: true},
		{name: "trailing garbage", value: "3x", want: 5, wantFallback: true},
		{name: "out of range", value: "9", want: 5, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.value)

			result := LoadEnvInt("TEST_INT", 5, func(v int) error { return ValidateIntRange(v, 1, 5) })

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
		})
	}
}

func TestLoadEnvFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "2.5")
	assert.Equal(t, 2.5, LoadEnvFloat("TEST_FLOAT", 1, ValidatePositiveFloat).Value)

	t.Setenv("TEST_FLOAT", "0")
	result := LoadEnvFloat("TEST_FLOAT", 1, ValidatePositiveFloat)
	assert.Equal(t, 1.0, result.Value)
	assert.True(t, result.FallbackApplied)
}
