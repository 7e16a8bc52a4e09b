package config

import (
	"os"
	"strconv"
	"time"

	"oem-seo-api/internal/oemref"
)

type Config struct {
	Database DatabaseConfig
	OEM      OEMConfig
	APIPort  string
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

// OEMConfig tunes dominant prefix discovery. Defaults match oemref.DefaultConfig;
// zero values, OEM_MIN_PREFIX_RATIO=0 included, fall back to those defaults.
type OEMConfig struct {
	MinPrefixCount int
	MinPrefixRatio float64
	MaxPrefixes    int
	CacheTTL       time.Duration
}

// Engine converts the settings to the oemref configuration
func (c OEMConfig) Engine() oemref.Config {
	return oemref.Config{
		MinPrefixCount: c.MinPrefixCount,
		MinPrefixRatio: c.MinPrefixRatio,
		MaxPrefixes:    c.MaxPrefixes,
		CacheTTL:       c.CacheTTL,
	}
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "catalog"),
			User:     getEnv("DB_USER", "catalog"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		OEM: OEMConfig{
			MinPrefixCount: getEnvInt("OEM_MIN_PREFIX_COUNT", oemref.DefaultMinPrefixCount),
			MinPrefixRatio: getEnvFloat("OEM_MIN_PREFIX_RATIO", oemref.DefaultMinPrefixRatio),
			MaxPrefixes:    getEnvInt("OEM_MAX_PREFIXES", oemref.DefaultMaxPrefixes),
			CacheTTL:       getEnvDuration("OEM_CACHE_TTL", oemref.DefaultCacheTTL),
		},
		APIPort:  getEnv("API_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90m") or plain milliseconds ("3600000")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
