// Package config provides configuration loading from environment variables.
package config

import (
	"os"
	"strconv"

	"github.com/asaidimu/go-hobbies/core/persistence"
)

// Config holds all configuration for the hobbies tools.
type Config struct {
	DatabasePath string // HOBBIES_DB, default "hobbies.db"
	Owner        string // HOBBIES_OWNER, default $USER or "local"

	// Validation
	Policy    string // HOBBIES_POLICY, "reject" or "log", default "reject"
	IndexMode string // HOBBIES_INDEX_BY, "key" or "label", default "key"

	SchemaCacheSize int // HOBBIES_SCHEMA_CACHE_SIZE, default 128
	AuditWorkers    int // HOBBIES_AUDIT_WORKERS, default 4

	MetricsFile string // HOBBIES_METRICS_FILE, default "" (no export)

	// Logging configuration
	LogLevel      string // HOBBIES_LOG_LEVEL, default "info"
	LogFile       string // HOBBIES_LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // HOBBIES_LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // HOBBIES_LOG_MAX_BACKUPS, default 3
	LogMaxAgeDays int    // HOBBIES_LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // HOBBIES_LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		DatabasePath: getEnvString("HOBBIES_DB", "hobbies.db"),
		Owner:        getEnvString("HOBBIES_OWNER", getEnvString("USER", "local")),

		Policy:    getEnvString("HOBBIES_POLICY", "reject"),
		IndexMode: getEnvString("HOBBIES_INDEX_BY", "key"),

		SchemaCacheSize: getEnvInt("HOBBIES_SCHEMA_CACHE_SIZE", persistence.DefaultSchemaCacheSize),
		AuditWorkers:    getEnvInt("HOBBIES_AUDIT_WORKERS", persistence.DefaultAuditWorkers),

		MetricsFile: getEnvString("HOBBIES_METRICS_FILE", ""),

		LogLevel:      getEnvString("HOBBIES_LOG_LEVEL", "info"),
		LogFile:       getEnvString("HOBBIES_LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("HOBBIES_LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("HOBBIES_LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvInt("HOBBIES_LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("HOBBIES_LOG_COMPRESS", true),
	}
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
