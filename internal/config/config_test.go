package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"oem-seo-api/internal/oemref"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"DB_HOST", "DB_PORT", "API_PORT", "LOG_LEVEL",
		"OEM_MIN_PREFIX_COUNT", "OEM_MIN_PREFIX_RATIO", "OEM_MAX_PREFIXES", "OEM_CACHE_TTL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, oemref.DefaultConfig(), cfg.OEM.Engine())
}

func TestLoad_OEMOverrides(t *testing.T) {
	t.Setenv("OEM_MIN_PREFIX_COUNT", "5")
	t.Setenv("OEM_MIN_PREFIX_RATIO", "0.2")
	t.Setenv("OEM_MAX_PREFIXES", "2")
	t.Setenv("OEM_CACHE_TTL", "30m")

	cfg := Load()

	assert.Equal(t, oemref.Config{
		MinPrefixCount: 5,
		MinPrefixRatio: 0.2,
		MaxPrefixes:    2,
		CacheTTL:       30 * time.Minute,
	}, cfg.OEM.Engine())
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{"unset", "", time.Hour},
		{"go duration", "90s", 90 * time.Second},
		{"milliseconds", "3600000", time.Hour},
		{"garbage", "soon", time.Hour},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tc.value)
			assert.Equal(t, tc.expected, getEnvDuration("TEST_DURATION", time.Hour))
		})
	}
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("TEST_INT", "three")
	assert.Equal(t, 3, getEnvInt("TEST_INT", 3))
}
