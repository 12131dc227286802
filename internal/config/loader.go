package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the sync service.
type Config struct {
	HTTPPort           int
	SQLiteDSN          string
	WebhookURL         string
	EncryptionKey      string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	RenewalInterval    time.Duration
	LogLevel           string
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values, accumulating every missing or invalid entry into a single
// error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:syncd.db?_pragma=foreign_keys(1)",
		RenewalInterval: time.Hour,
		LogLevel:        "info",
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SYNCD_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SYNCD_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SYNCD_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if url := strings.TrimSpace(os.Getenv("SYNCD_WEBHOOK_URL")); url == "" {
		missing = append(missing, "SYNCD_WEBHOOK_URL")
	} else {
		cfg.WebhookURL = url
	}

	cfg.EncryptionKey = strings.TrimSpace(os.Getenv("SYNCD_ENCRYPTION_KEY"))

	if id := strings.TrimSpace(os.Getenv("SYNCD_GOOGLE_CLIENT_ID")); id == "" {
		missing = append(missing, "SYNCD_GOOGLE_CLIENT_ID")
	} else {
		cfg.GoogleClientID = id
	}

	if secret := strings.TrimSpace(os.Getenv("SYNCD_GOOGLE_CLIENT_SECRET")); secret == "" {
		missing = append(missing, "SYNCD_GOOGLE_CLIENT_SECRET")
	} else {
		cfg.GoogleClientSecret = secret
	}

	cfg.GoogleRedirectURL = strings.TrimSpace(os.Getenv("SYNCD_GOOGLE_REDIRECT_URL"))

	if intervalValue := strings.TrimSpace(os.Getenv("SYNCD_RENEWAL_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "SYNCD_RENEWAL_INTERVAL")
		} else {
			cfg.RenewalInterval = interval
		}
	}

	if level := strings.TrimSpace(os.Getenv("SYNCD_LOG_LEVEL")); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "SYNCD_LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
