package descriptorset

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/plugin"
)

func newMemorySet(t *testing.T, fileCache string) Set {
	t.Helper()
	set, err := plugin.Resolve[Set](plugin.Default(), InterfaceName, plugin.Config{
		plugin.TypeField: "memory",
		"memory":         plugin.Config{"file_cache": fileCache},
	})
	require.NoError(t, err)
	return set
}

func elem(uuid string, v ...float64) descriptor.Element {
	return descriptor.NewMemoryElementWithVector(uuid, v)
}

func TestMemorySet_Semantics(t *testing.T) {
	ctx := context.Background()
	set := newMemorySet(t, "")

	require.NoError(t, set.Add(ctx, elem("a", 1, 2), elem("b", 3, 4)))

	count, err := set.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := set.Get(ctx, "a")
	require.NoError(t, err)
	v, ok := got.Vector()
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, v)

	has, err := set.Has(ctx, "b")
	require.NoError(t, err)
	assert.True(t, has)

	uuids, err := set.UUIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, uuids)

	require.NoError(t, set.Remove(ctx, "a"))
	_, err = set.Get(ctx, "a")
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "a", nfe.UUID)

	require.NoError(t, set.Clear(ctx))
	count, err = set.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemorySet_AddOverwritesByUUID(t *testing.T) {
	ctx := context.Background()
	set := newMemorySet(t, "")

	require.NoError(t, set.Add(ctx, elem("a", 1)))
	require.NoError(t, set.Add(ctx, elem("a", 9)))

	got, err := set.Get(ctx, "a")
	require.NoError(t, err)
	v, _ := got.Vector()
	assert.Equal(t, []float64{9}, v)

	count, err := set.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemorySet_RejectsVectorlessElement(t *testing.T) {
	set := newMemorySet(t, "")
	err := set.Add(context.Background(), descriptor.NewMemoryElement("empty"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no vector")
}

func TestMemorySet_RemoveUnknown(t *testing.T) {
	set := newMemorySet(t, "")
	var nfe *NotFoundError
	assert.ErrorAs(t, set.Remove(context.Background(), "ghost"), &nfe)
}

func TestMemorySet_FileCachePersistence(t *testing.T) {
	ctx := context.Background()
	cachePath := filepath.Join(t.TempDir(), "set.json")

	first := newMemorySet(t, cachePath)
	require.NoError(t, first.Add(ctx, elem("a", 1, 2), elem("b", 3)))

	// A new instance configured over the same cache file sees the data.
	second := newMemorySet(t, cachePath)
	got, err := second.Get(ctx, "a")
	require.NoError(t, err)
	v, _ := got.Vector()
	assert.Equal(t, []float64{1, 2}, v)

	uuids, err := second.UUIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, uuids)
}

func TestMemorySet_GetMany(t *testing.T) {
	ctx := context.Background()
	set := newMemorySet(t, "")
	require.NoError(t, set.Add(ctx, elem("a", 1), elem("b", 2)))

	elems, err := set.GetMany(ctx, []string{"b", "a"})
	require.NoError(t, err)
	require.Len(t, elems, 2)
	assert.Equal(t, "b", elems[0].UUID())

	_, err = set.GetMany(ctx, []string{"a", "ghost"})
	assert.Error(t, err)
}

func TestMemorySet_ConfigRoundTrip(t *testing.T) {
	reg := plugin.Default()
	cachePath := filepath.Join(t.TempDir(), "set.json")
	set := newMemorySet(t, cachePath)

	cfg, err := reg.ToConfig(InterfaceName, set)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg[plugin.TypeField])

	params, ok := plugin.AsConfig(cfg["memory"])
	require.True(t, ok)
	assert.Equal(t, cachePath, params["file_cache"])
}
