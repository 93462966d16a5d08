package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// AMQP (empty URL disables ledger events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets activity export (empty ID disables export)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	ExportConcurrency int
	SnapshotInterval  time.Duration

	// Summary cache
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cardledger.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cardledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Activity"),

		ExportConcurrency: getEnvInt("EXPORT_CONCURRENCY", 4),
		SnapshotInterval:  getEnvDuration("SNAPSHOT_INTERVAL", 24*time.Hour),

		SummaryCacheSize: getEnvInt("SUMMARY_CACHE_SIZE", 256),
		SummaryCacheTTL:  getEnvDuration("SUMMARY_CACHE_TTL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.GoogleSheetName) == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
	}

	if c.ExportConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid export concurrency %d: must be at least 1", c.ExportConcurrency))
	} else if c.ExportConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid export concurrency %d: must be at most 64", c.ExportConcurrency))
	}

	if c.SnapshotInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid snapshot interval %v: must be at least 1 minute", c.SnapshotInterval))
	}

	if c.SummaryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must be at least 1", c.SummaryCacheSize))
	}
	if c.SummaryCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must be positive", c.SummaryCacheTTL))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// EventsEnabled reports whether ledger events are published.
func (c *Config) EventsEnabled() bool { return c.AMQPURL != "" }

// ExportEnabled reports whether activity rows go to Google Sheets.
func (c *Config) ExportEnabled() bool { return c.GoogleSpreadsheetID != "" }

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
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
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
