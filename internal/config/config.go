// Package config loads the daemon configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration
type Config struct {
	// Directory the git repositories live under
	BasePath string

	// Server bind address (host:port)
	ServerAddr string

	// Total weight the membership cache may hold
	CacheMaxWeight int

	// How many refresh requests may queue for the background worker
	ReloadQueueDepth int

	// Watch repository refs on local disk and synthesize change events
	WatchRefs bool

	// Quiet period before a burst of filesystem events is flushed
	WatchDebounce time.Duration

	// Enable debug logging
	Debug bool
}

// Load reads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	cfg := &Config{
		BasePath:         getEnv("GIT_BASE_PATH", ""),
		ServerAddr:       getEnv("SERVER_ADDR", "localhost:8080"),
		CacheMaxWeight:   getEnvInt("CACHE_MAX_WEIGHT", 1<<20),
		ReloadQueueDepth: getEnvInt("RELOAD_QUEUE_DEPTH", 64),
		WatchRefs:        getEnvBool("WATCH_REFS", true),
		WatchDebounce:    getEnvDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
		Debug:            getEnvBool("DEBUG", false),
	}

	if cfg.BasePath == "" {
		return nil, fmt.Errorf("GIT_BASE_PATH is required")
	}
	if fi, err := os.Stat(cfg.BasePath); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("GIT_BASE_PATH %q is not a directory", cfg.BasePath)
	}
	if cfg.CacheMaxWeight <= 0 {
		return nil, fmt.Errorf("CACHE_MAX_WEIGHT must be positive")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
