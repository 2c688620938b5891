// Package config contains everything related to configuration
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/j-veylop/garmindl/internal/logger"
)

// TokenStoreEnv selects the directory holding the Garmin OAuth tokens.
const TokenStoreEnv = "GARMINTOKENS"

// Config holds the application configuration.
type Config struct {
	TokenStorePath   string
	DatabasePath     string
	OutputDir        string
	APIBaseURL       string
	OAuthConsumerURL string
	S3Bucket         string
	S3Region         string
	RemoteWriteURL   string
	LogLevel         string
	HTTPTimeout      time.Duration
	Notify           bool
}

// Default values
const (
	defaultAPIBaseURL  = "https://connectapi.garmin.com"
	defaultHTTPTimeout = 30 * time.Second
	defaultS3Region    = "eu-west-1"
	defaultOutputDir   = "."
	defaultLogLevel    = "info"
)

// Load reads configuration from .env files and environment variables. The run
// ledger is optional: when its directory cannot be created DatabasePath is
// cleared and the ledger stays off.
func Load() *Config {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		TokenStorePath:   expandHome(getEnvString(TokenStoreEnv, getDefaultTokenStorePath())),
		DatabasePath:     expandHome(getEnvString("GARMINDL_DATABASE_PATH", getDefaultDatabasePath())),
		OutputDir:        expandHome(getEnvString("GARMINDL_OUTPUT_DIR", defaultOutputDir)),
		APIBaseURL:       strings.TrimRight(getEnvString("GARMINDL_API_URL", defaultAPIBaseURL), "/"),
		OAuthConsumerURL: getEnvString("GARMINDL_OAUTH_CONSUMER_URL", ""),
		S3Bucket:         getEnvString("GARMINDL_S3_BUCKET", ""),
		S3Region:         getEnvString("GARMINDL_S3_REGION", defaultS3Region),
		RemoteWriteURL:   getEnvString("GARMINDL_REMOTE_WRITE_URL", ""),
		LogLevel:         getEnvString("GARMINDL_LOG_LEVEL", defaultLogLevel),
		HTTPTimeout:      getEnvDuration("GARMINDL_HTTP_TIMEOUT", defaultHTTPTimeout),
		Notify:           getEnvBool("GARMINDL_NOTIFY", false),
	}

	if cfg.DatabasePath != "" {
		if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
			logger.Warn("run ledger disabled", "path", cfg.DatabasePath, "error", err)
			cfg.DatabasePath = ""
		}
	}

	return cfg
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "garmindl", ".env"),
			filepath.Join(home, ".garmindl", ".env"),
		)
	}

	return paths
}

// getDefaultTokenStorePath returns the directory garth saves its tokens to.
func getDefaultTokenStorePath() string {
	return "~/.garth"
}

// getDefaultDatabasePath returns the default path for the run ledger.
func getDefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "garmindl.db"
	}
	return filepath.Join(home, ".config", "garmindl", "history.db")
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
