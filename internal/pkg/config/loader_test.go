package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvString(t *testing.T) {
	t.Setenv("TEST_STRING", "value")
	assert.Equal(t, "value", LoadEnvString("TEST_STRING", "default"))

	t.Setenv("TEST_STRING", "")
	assert.Equal(t, "default", LoadEnvString("TEST_STRING", "default"))
}

func TestLoadEnvWithFallback(t *testing.T) {
	reject := func(string) error { return assert.AnError }
	accept := func(string) error { return nil }

	tests := []struct {
		name      string
		env       string
		validator func(string) error
		want      string
		fell      bool
	}{
		{"unset uses default silently", "", reject, "default", false},
		{"valid value", "custom", accept, "custom", false},
		{"invalid value falls back", "custom", reject, "default", true},
		{"nil validator accepts anything", "custom", nil, "custom", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_VALUE", tt.env)

			result := LoadEnvWithFallback("TEST_VALUE", "default", tt.validator)

			assert.Equal(t, tt.want, result.Value.(string))
			assert.Equal(t, tt.fell, result.FallbackApplied)
			if tt.fell {
				assert.NotEmpty(t, result.Warnings)
			}
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	inRange := func(v int) error { return ValidateIntRange(v, 1, 100) }

	tests := []struct {
		name string
		env  string
		want int
		fell bool
	}{
		{"unset", "", 10, false},
		{"valid", "42", 42, false},
		{"not a number", "abc", 10, true},
		{"out of range", "500", 10, true},
		{"negative out of range", "-5", 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.env)

			result := LoadEnvInt("TEST_INT", 10, inRange)

			assert.Equal(t, tt.want, result.Value.(int))
			assert.Equal(t, tt.fell, result.FallbackApplied)
		})
	}
}

func TestLoadEnvDuration(t *testing.T) {
	bounds := func(d time.Duration) error {
		return ValidateDuration(d, time.Second, time.Hour)
	}

	tests := []struct {
		name string
		env  string
		want time.Duration
		fell bool
	}{
		{"unset", "", 90 * time.Second, false},
		{"valid", "5m", 5 * time.Minute, false},
		{"unparseable", "soon", 90 * time.Second, true},
		{"below minimum", "10ms", 90 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.env)

			result := LoadEnvDuration("TEST_DURATION", 90*time.Second, bounds)

			assert.Equal(t, tt.want, result.Value.(time.Duration))
			assert.Equal(t, tt.fell, result.FallbackApplied)
		})
	}
}

func TestLoadEnvBool(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
		fell bool
	}{
		{"unset", "", true, false},
		{"true", "true", true, false},
		{"numeric false", "0", false, false},
		{"garbage", "yes", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.env)

			result := LoadEnvBool("TEST_BOOL", true)

			assert.Equal(t, tt.want, result.Value.(bool))
			assert.Equal(t, tt.fell, result.FallbackApplied)
		})
	}
}
