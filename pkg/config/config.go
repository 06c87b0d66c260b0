package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quiverml/quiver/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Pipeline      PipelineConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// PipelineConfig locates and controls the retrieval pipeline definition.
type PipelineConfig struct {
	// File is the path of the pipeline definition (YAML or JSON). Empty
	// means the built-in default pipeline.
	File string

	// WatchFile reloads the pipeline when the file changes.
	WatchFile bool

	// RebuildSchedule is a cron expression for periodic plugin registry
	// rebuilds. Empty disables scheduled rebuilds.
	RebuildSchedule string

	// Concurrency bounds parallel descriptor computation.
	Concurrency int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("QUIVER_HOST", "0.0.0.0"),
			Port:            getEnv("QUIVER_PORT", "8080"),
			ReadTimeout:     getEnvDuration("QUIVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("QUIVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("QUIVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("QUIVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxBodyBytes:    getEnvInt64("QUIVER_MAX_BODY_BYTES", 32<<20),
		},
		Pipeline: PipelineConfig{
			File:            getEnv("QUIVER_PIPELINE_FILE", ""),
			WatchFile:       getEnvBool("QUIVER_PIPELINE_WATCH", false),
			RebuildSchedule: getEnv("QUIVER_REBUILD_SCHEDULE", ""),
			Concurrency:     getEnvInt("QUIVER_CONCURRENCY", 4),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLevel(getEnv("QUIVER_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("QUIVER_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if c.Pipeline.WatchFile && c.Pipeline.File == "" {
		return fmt.Errorf("QUIVER_PIPELINE_WATCH requires QUIVER_PIPELINE_FILE")
	}
	return nil
}

// ListenAddr joins host and port for the HTTP listener.
func (c *ServerConfig) ListenAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// getEnv returns a string environment variable or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
