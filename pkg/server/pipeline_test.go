package server

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverml/quiver/pkg/config"
	"github.com/quiverml/quiver/pkg/descriptorset"
	"github.com/quiverml/quiver/pkg/observability"
	"github.com/quiverml/quiver/pkg/plugin"
)

func newFileServer(t *testing.T, initial string, watch bool) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o600))

	cfg := testConfig()
	cfg.Pipeline.File = path
	cfg.Pipeline.WatchFile = watch

	srv, err := NewServer(cfg, observability.NewLogger(observability.ErrorLevel, io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Stop() })
	return srv, path
}

func TestNewServer_PipelineFromFile(t *testing.T) {
	srv, _ := newFileServer(t, "index:\n  type: lsh\n  lsh:\n    seed: 5\n", false)
	assert.Equal(t, "lsh", srv.pipeline.current().indexName)
	// Components the file omits come from the defaults.
	assert.Equal(t, "byte-histogram", srv.pipeline.current().generatorName)
}

func TestReloadPipeline(t *testing.T) {
	srv, path := newFileServer(t, "index:\n  type: linear\n", false)
	require.Equal(t, "linear", srv.pipeline.current().indexName)

	require.NoError(t, os.WriteFile(path, []byte("index:\n  type: lsh\n"), 0o600))
	require.NoError(t, srv.reloadPipeline())
	assert.Equal(t, "lsh", srv.pipeline.current().indexName)
}

func TestReloadPipeline_BadDefinitionKeepsCurrent(t *testing.T) {
	srv, path := newFileServer(t, "index:\n  type: linear\n", false)

	require.NoError(t, os.WriteFile(path, []byte("index:\n  type: no-such-index\n"), 0o600))
	require.Error(t, srv.reloadPipeline())
	assert.Equal(t, "linear", srv.pipeline.current().indexName)
}

func TestApplyPipeline(t *testing.T) {
	srv := newTestServer(t)

	def := config.DefaultPipeline()
	def.Set = plugin.Config{
		plugin.TypeField: "cached",
		"cached": plugin.Config{
			"max_entries": 4,
			"ttl":         "1m0s",
			"backend":     plugin.DefaultSlot(descriptorset.InterfaceName, "memory"),
		},
	}
	require.NoError(t, srv.applyPipeline(def))
	assert.Equal(t, "cached", srv.pipeline.current().setName)
}

func TestStart_BackgroundWorkers(t *testing.T) {
	srv, _ := newFileServer(t, "index:\n  type: linear\n", true)
	require.NoError(t, srv.Start())
	require.NoError(t, srv.Stop())
}

func TestStart_InvalidRebuildSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.RebuildSchedule = "not a cron spec"

	srv, err := NewServer(cfg, observability.NewLogger(observability.ErrorLevel, io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Stop() })

	assert.ErrorContains(t, srv.Start(), "invalid rebuild schedule")
}

func TestNewServer_MissingPipelineFile(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.File = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewServer(cfg, observability.NewLogger(observability.ErrorLevel, io.Discard))
	assert.ErrorContains(t, err, "reading pipeline file")
}
