// Package config provides environment-first configuration loading. Invalid
// values never abort startup: loaders fall back to the given default and
// report the fallback through warnings and metrics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Result is the outcome of loading one configuration value. Value holds the
// effective value, which is the default whenever FallbackApplied is set.
type Result struct {
	Value           any
	Warnings        []string
	FallbackApplied bool
}

func fallback(envKey, raw string, reason error, defaultValue any) Result {
	return Result{
		Value: defaultValue,
		Warnings: []string{fmt.Sprintf("invalid %s='%s': %v, falling back to default '%v'",
			envKey, raw, reason, defaultValue)},
		FallbackApplied: true,
	}
}

// LoadEnvString reads a string variable, returning the default when unset.
// No validation is applied; use LoadEnvWithFallback for validated strings.
func LoadEnvString(envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return defaultValue
}

// LoadEnvWithFallback reads a string variable and validates it. A validation
// failure selects the default with a warning; an unset variable selects the
// default silently. validator may be nil.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) Result {
	value := os.Getenv(envKey)
	if value == "" {
		return Result{Value: defaultValue}
	}

	if validator != nil {
		if err := validator(value); err != nil {
			return fallback(envKey, value, err, defaultValue)
		}
	}

	return Result{Value: value}
}

// LoadEnvInt reads an integer variable, falling back to the default on parse
// or validation failure. validator may be nil.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) Result {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result{Value: defaultValue}
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback(envKey, raw, fmt.Errorf("invalid integer format"), defaultValue)
	}

	if validator != nil {
		if err := validator(value); err != nil {
			return fallback(envKey, raw, err, defaultValue)
		}
	}

	return Result{Value: value}
}

// LoadEnvDuration reads a Go duration string ("90s", "5m"), falling back to
// the default on parse or validation failure. validator may be nil.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) Result {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result{Value: defaultValue}
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback(envKey, raw, err, defaultValue)
	}

	if validator != nil {
		if err := validator(value); err != nil {
			return fallback(envKey, raw, err, defaultValue)
		}
	}

	return Result{Value: value}
}

// LoadEnvBool reads a boolean variable accepting strconv.ParseBool forms,
// falling back to the default on parse failure.
func LoadEnvBool(envKey string, defaultValue bool) Result {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result{Value: defaultValue}
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback(envKey, raw, fmt.Errorf("expected 'true' or 'false'"), defaultValue)
	}

	return Result{Value: value}
}
