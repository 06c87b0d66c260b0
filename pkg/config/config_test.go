package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverml/quiver/pkg/observability"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxBodyBytes)

	assert.Empty(t, cfg.Pipeline.File)
	assert.False(t, cfg.Pipeline.WatchFile)
	assert.Empty(t, cfg.Pipeline.RebuildSchedule)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)

	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("QUIVER_HOST", "127.0.0.1")
	t.Setenv("QUIVER_PORT", "9090")
	t.Setenv("QUIVER_READ_TIMEOUT", "5s")
	t.Setenv("QUIVER_MAX_BODY_BYTES", "1048576")
	t.Setenv("QUIVER_PIPELINE_FILE", "/etc/quiver/pipeline.yaml")
	t.Setenv("QUIVER_PIPELINE_WATCH", "true")
	t.Setenv("QUIVER_REBUILD_SCHEDULE", "@every 5m")
	t.Setenv("QUIVER_CONCURRENCY", "16")
	t.Setenv("QUIVER_LOG_LEVEL", "debug")
	t.Setenv("QUIVER_METRICS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(1048576), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "/etc/quiver/pipeline.yaml", cfg.Pipeline.File)
	assert.True(t, cfg.Pipeline.WatchFile)
	assert.Equal(t, "@every 5m", cfg.Pipeline.RebuildSchedule)
	assert.Equal(t, 16, cfg.Pipeline.Concurrency)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("QUIVER_READ_TIMEOUT", "not-a-duration")
	t.Setenv("QUIVER_CONCURRENCY", "lots")
	t.Setenv("QUIVER_MAX_BODY_BYTES", "huge")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxBodyBytes)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{
				Port:            "8080",
				ShutdownTimeout: time.Second,
			},
			Pipeline: PipelineConfig{Concurrency: 1},
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Server.Port = "http"
	assert.ErrorContains(t, cfg.Validate(), "invalid port")

	cfg = valid()
	cfg.Server.ShutdownTimeout = 0
	assert.ErrorContains(t, cfg.Validate(), "shutdown timeout")

	cfg = valid()
	cfg.Pipeline.Concurrency = 0
	assert.ErrorContains(t, cfg.Validate(), "concurrency")

	cfg = valid()
	cfg.Pipeline.WatchFile = true
	assert.ErrorContains(t, cfg.Validate(), "QUIVER_PIPELINE_FILE")
}

func TestServerConfig_ListenAddr(t *testing.T) {
	sc := ServerConfig{Host: "0.0.0.0", Port: "8080"}
	assert.Equal(t, "0.0.0.0:8080", sc.ListenAddr())

	sc = ServerConfig{Host: "::1", Port: "443"}
	assert.Equal(t, "[::1]:443", sc.ListenAddr())
}
