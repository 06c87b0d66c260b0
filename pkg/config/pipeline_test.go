package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverml/quiver/pkg/descriptorset"
	"github.com/quiverml/quiver/pkg/generator"
	"github.com/quiverml/quiver/pkg/nnindex"
	"github.com/quiverml/quiver/pkg/plugin"
)

func TestDefaultPipeline_Resolves(t *testing.T) {
	reg := plugin.Default()
	p := DefaultPipeline()

	gen, err := plugin.Resolve[generator.Generator](reg, generator.InterfaceName, p.Generator)
	require.NoError(t, err)
	assert.NotNil(t, gen)

	set, err := plugin.Resolve[descriptorset.Set](reg, descriptorset.InterfaceName, p.Set)
	require.NoError(t, err)
	assert.NotNil(t, set)

	idx, err := plugin.Resolve[nnindex.Index](reg, nnindex.InterfaceName, p.Index)
	require.NoError(t, err)
	assert.NotNil(t, idx)
}

func TestParsePipeline_YAML(t *testing.T) {
	src := []byte(`
generator:
  type: byte-histogram
  byte-histogram:
    bins: 64
set:
  type: cached
  cached:
    max_entries: 32
    ttl: 1m0s
    backend:
      type: memory
      memory:
        file_cache: ""
`)
	p, err := ParsePipeline(src)
	require.NoError(t, err)

	assert.Equal(t, "byte-histogram", p.Generator[plugin.TypeField])
	gen, err := plugin.Resolve[generator.Generator](plugin.Default(), generator.InterfaceName, p.Generator)
	require.NoError(t, err)
	// Defaults fill parameters the file omits.
	assert.Equal(t, plugin.Config{"bins": 64, "normalize": true}, gen.Config())

	set, err := plugin.Resolve[*descriptorset.CachedSet](plugin.Default(), descriptorset.InterfaceName, p.Set)
	require.NoError(t, err)
	assert.NotNil(t, set.Backend())

	// Unspecified components keep their defaults.
	assert.Equal(t, DefaultPipeline().Factory, p.Factory)
	assert.Equal(t, DefaultPipeline().Index, p.Index)
}

func TestParsePipeline_JSON(t *testing.T) {
	// yaml.v3 accepts JSON input, so a JSON pipeline file works unchanged.
	src := []byte(`{"index": {"type": "lsh", "lsh": {"hash_size": 16, "num_tables": 2, "seed": 1}}}`)
	p, err := ParsePipeline(src)
	require.NoError(t, err)

	idx, err := plugin.Resolve[nnindex.Index](plugin.Default(), nnindex.InterfaceName, p.Index)
	require.NoError(t, err)
	assert.IsType(t, &nnindex.LSHIndex{}, idx)
}

func TestParsePipeline_Invalid(t *testing.T) {
	_, err := ParsePipeline([]byte("generator: [not, a, mapping"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding pipeline definition")
}

func TestLoadPipeline_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  type: linear\n  linear:\n    metric: cosine\n"), 0o600))

	p, err := LoadPipeline(path)
	require.NoError(t, err)
	assert.Equal(t, "linear", p.Index[plugin.TypeField])

	_, err = LoadPipeline(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading pipeline file")
}
