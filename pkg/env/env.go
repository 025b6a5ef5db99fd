package env

import (
	"os"
	"strconv"
	"strings"
)

// Get returns the environment variable value, or the fallback when the
// variable is unset or empty.
func Get(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetBool parses the environment variable as a boolean, falling back on
// unset or unparseable values.
func GetBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
