package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	Request             time.Duration // Timeout for a single gateway HTTP request
	LedgerLoad          time.Duration // Timeout for reading the full ledger
	RefreshMaxAttempts  int           // Retries when refreshing the agency credential
	RefreshInitialDelay time.Duration // Initial delay between refresh retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - GEOPROV_TIMEOUT_REQUEST (default: 30s)
//   - GEOPROV_TIMEOUT_LEDGER_LOAD (default: 2m)
//   - GEOPROV_REFRESH_MAX_ATTEMPTS (default: 3)
//   - GEOPROV_REFRESH_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Request:             parseDuration("GEOPROV_TIMEOUT_REQUEST", 30*time.Second),
		LedgerLoad:          parseDuration("GEOPROV_TIMEOUT_LEDGER_LOAD", 2*time.Minute),
		RefreshMaxAttempts:  parseInt("GEOPROV_REFRESH_MAX_ATTEMPTS", 3),
		RefreshInitialDelay: parseDuration("GEOPROV_REFRESH_INITIAL_DELAY", 1*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
