package plugin

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// container holds a nested pluggable slot of the widget interface.
type container struct {
	capacity  int
	inner     testWidget
	innerName string
}

func (c *container) DefaultConfig() Config {
	return Config{
		"capacity": 10,
		"inner":    Config{TypeField: "gadget"},
	}
}

func (c *container) Configure(reg *Registry, cfg Config) error {
	c.capacity = cfg.IntOr("capacity", 10)
	inner, name, err := ResolveSlot[testWidget](reg, "widget", cfg["inner"])
	if err != nil {
		return err
	}
	c.inner = inner
	c.innerName = name
	return nil
}

func (c *container) Config() Config {
	return Config{
		"capacity": c.capacity,
		"inner":    SlotConfig(c.innerName, c.inner),
	}
}

func (c *container) Frob() string { return "container" }

func newNestedRegistry(t *testing.T) *Registry {
	t.Helper()
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)
	require.NoError(t, r.Register("widget", Provider{
		Name: "container",
		New:  func() Pluggable { return &container{} },
	}))
	return r
}

func TestMerge(t *testing.T) {
	dst := Config{
		"a": 1,
		"b": Config{"x": 1, "y": 2},
		"c": "keep",
	}
	src := Config{
		"a": 5,
		"b": map[string]interface{}{"y": 9, "z": 3},
		"d": "new",
	}

	out := Merge(dst, src)

	assert.Equal(t, 5, out["a"])
	assert.Equal(t, "keep", out["c"])
	assert.Equal(t, "new", out["d"])
	sub, ok := AsConfig(out["b"])
	require.True(t, ok)
	assert.Equal(t, 1, sub["x"])
	assert.Equal(t, 9, sub["y"])
	assert.Equal(t, 3, sub["z"])

	// Inputs are untouched.
	assert.Equal(t, 1, dst["a"])
	origSub, _ := AsConfig(dst["b"])
	assert.Equal(t, 2, origSub["y"])
}

func TestMerge_NilDestination(t *testing.T) {
	out := Merge(nil, Config{"a": 1})
	assert.Equal(t, 1, out["a"])
}

func TestConfig_Clone(t *testing.T) {
	orig := Config{
		"scalar": 1,
		"nested": Config{"k": "v"},
		"list":   []interface{}{1, 2},
	}
	clone := orig.Clone()

	sub, _ := AsConfig(clone["nested"])
	sub["k"] = "changed"
	clone["list"].([]interface{})[0] = 99

	origSub, _ := AsConfig(orig["nested"])
	assert.Equal(t, "v", origSub["k"])
	assert.Equal(t, 1, orig["list"].([]interface{})[0])
}

func TestFromConfig_SuppliedValuesOverrideDefaults(t *testing.T) {
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)

	inst, err := r.FromConfig("widget", Config{
		TypeField: "gadget",
		"gadget":  Config{"speed": 7},
	})
	require.NoError(t, err)

	g, ok := inst.(*gadget)
	require.True(t, ok)
	assert.Equal(t, 7, g.speed)
	assert.Equal(t, "basic", g.label) // default survives the merge
}

func TestFromConfig_UnknownSelector(t *testing.T) {
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)

	_, err := r.FromConfig("widget", Config{TypeField: "DoesNotExist"})

	var uie *UnknownImplementationError
	require.ErrorAs(t, err, &uie)
	assert.Equal(t, "DoesNotExist", uie.Name)
	assert.Equal(t, "widget", uie.Interface)
	assert.Contains(t, err.Error(), "DoesNotExist")
}

func TestFromConfig_EmptyRegistryEntry(t *testing.T) {
	r := newWidgetRegistry(t)

	_, err := r.FromConfig("widget", Config{TypeField: "gadget"})

	var nie *NoImplementationsError
	require.ErrorAs(t, err, &nie)
	assert.Equal(t, "widget", nie.Interface)
}

func TestFromConfig_MissingSelector(t *testing.T) {
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)

	_, err := r.FromConfig("widget", Config{"gadget": Config{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing the "type" selector`)
}

func TestFromConfig_ConfigureErrorIsWrapped(t *testing.T) {
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)

	_, err := r.FromConfig("widget", Config{
		TypeField: "gadget",
		"gadget":  Config{"speed": -1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `configuring widget implementation "gadget"`)
	assert.Contains(t, err.Error(), "speed must be positive")
}

func TestConfigRoundTrip(t *testing.T) {
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)

	inst, err := r.FromConfig("widget", Config{
		TypeField: "gadget",
		"gadget":  Config{"speed": 9, "label": "turbo"},
	})
	require.NoError(t, err)

	cfg, err := r.ToConfig("widget", inst)
	require.NoError(t, err)
	assert.Equal(t, "gadget", cfg[TypeField])

	rebuilt, err := r.FromConfig("widget", cfg)
	require.NoError(t, err)

	cfg2, err := r.ToConfig("widget", rebuilt)
	require.NoError(t, err)
	assert.Equal(t, cfg, cfg2)
}

func TestDefaultConstructRoundTrip(t *testing.T) {
	// Every registered implementation constructs from its own defaults.
	r := newNestedRegistry(t)
	entry, err := r.Get("widget")
	require.NoError(t, err)

	for _, name := range entry.Names() {
		t.Run(name, func(t *testing.T) {
			inst, err := r.FromConfig("widget", Config{TypeField: name})
			require.NoError(t, err)
			require.NotNil(t, inst)

			cfg, err := r.ToConfig("widget", inst)
			require.NoError(t, err)
			assert.Equal(t, name, cfg[TypeField])
		})
	}
}

func TestNestedResolution(t *testing.T) {
	r := newNestedRegistry(t)

	tree := Config{
		TypeField: "container",
		"container": Config{
			"capacity": 3,
			"inner": Config{
				TypeField: "sprocket",
				"sprocket": Config{"teeth": 24},
			},
		},
	}

	inst, err := r.FromConfig("widget", tree)
	require.NoError(t, err)

	c, ok := inst.(*container)
	require.True(t, ok)
	assert.Equal(t, 3, c.capacity)
	require.IsType(t, &sprocket{}, c.inner)
	assert.Equal(t, 24, c.inner.(*sprocket).teeth)

	// The round-tripped configuration reproduces the original tree.
	cfg, err := r.ToConfig("widget", inst)
	require.NoError(t, err)
	assert.Equal(t, tree, cfg)
}

func TestNestedResolution_UnknownInnerSelector(t *testing.T) {
	r := newNestedRegistry(t)

	_, err := r.FromConfig("widget", Config{
		TypeField: "container",
		"container": Config{
			"inner": Config{TypeField: "DoesNotExist"},
		},
	})

	var uie *UnknownImplementationError
	require.ErrorAs(t, err, &uie)
	assert.Equal(t, "DoesNotExist", uie.Name)
}

func TestToConfig_UnregisteredInstance(t *testing.T) {
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)

	_, err := r.ToConfig("widget", &container{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a registered implementation")
}

func TestMakeDefaultConfig(t *testing.T) {
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)

	cfg, err := r.MakeDefaultConfig("widget")
	require.NoError(t, err)

	assert.Nil(t, cfg[TypeField])
	gadgetDefaults, ok := AsConfig(cfg["gadget"])
	require.True(t, ok)
	assert.Equal(t, 3, gadgetDefaults["speed"])
	sprocketDefaults, ok := AsConfig(cfg["sprocket"])
	require.True(t, ok)
	assert.Equal(t, 12, sprocketDefaults["teeth"])
}

func TestResolve_TypeMismatch(t *testing.T) {
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)

	_, err := Resolve[*sprocket](r, "widget", Config{TypeField: "gadget"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not satisfy")
}

func TestResolveSlot_NonObjectValue(t *testing.T) {
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)

	_, _, err := ResolveSlot[testWidget](r, "widget", "gadget")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want an object")
}

// conveyorStage chains default slots so a tree build recurses down to the
// depth bound. Level 3 parks on a channel while its defaults build, letting
// the test overlap a second build from another goroutine.
type conveyorStage struct {
	level int
}

var (
	conveyorParked  = make(chan struct{}, 1)
	conveyorRelease = make(chan struct{})
)

func (c *conveyorStage) DefaultConfig() Config {
	if c.level == 3 {
		select {
		case conveyorParked <- struct{}{}:
		default:
		}
		<-conveyorRelease
	}
	return Config{"next": DefaultSlot("conveyor", fmt.Sprintf("level-%d", c.level+1))}
}

func (c *conveyorStage) Configure(reg *Registry, cfg Config) error { return nil }
func (c *conveyorStage) Config() Config                            { return Config{} }
func (c *conveyorStage) Frob() string                              { return "conveyor" }

func init() {
	MustRegisterInterface(Interface{Name: "conveyor", Type: testWidgetType})
	for i := 0; i <= 4; i++ {
		level := i
		MustRegister("conveyor", Provider{
			Name: fmt.Sprintf("level-%d", level),
			New:  func() Pluggable { return &conveyorStage{level: level} },
		})
	}
	MustRegisterInterface(Interface{Name: "gear", Type: testWidgetType})
	MustRegister("gear", Provider{
		Name: "basic",
		New:  func() Pluggable { return &gadget{} },
	})
}

func TestDefaultSlot_DepthBoundIsPerBuild(t *testing.T) {
	serial := DefaultSlot("gear", "basic")
	params, ok := AsConfig(serial["basic"])
	require.True(t, ok)
	assert.Equal(t, 3, params["speed"])

	deep := make(chan Config, 1)
	go func() {
		deep <- DefaultSlot("conveyor", "level-0")
	}()
	<-conveyorParked

	// The conveyor build is parked four levels down. An unrelated build
	// from this goroutine must still carry its parameter block.
	other := make(chan Config, 1)
	go func() {
		other <- DefaultSlot("gear", "basic")
	}()
	close(conveyorRelease)

	assert.Equal(t, serial, <-other)

	// The deep tree itself truncates to a bare selector at the bound.
	tree := <-deep
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("level-%d", i)
		require.Equal(t, name, tree[TypeField])
		params, ok := AsConfig(tree[name])
		require.True(t, ok)
		tree, ok = AsConfig(params["next"])
		require.True(t, ok)
	}
	assert.Equal(t, Config{TypeField: "level-4"}, tree)
}

func TestConfigAccessors(t *testing.T) {
	cfg := Config{
		"s":    "hello",
		"i":    float64(42), // as decoded from JSON
		"f":    3.5,
		"b":    true,
		"d":    "45s",
		"list": []interface{}{"a", "b"},
	}

	assert.Equal(t, "hello", cfg.StringOr("s", "x"))
	assert.Equal(t, "x", cfg.StringOr("missing", "x"))
	assert.Equal(t, 42, cfg.IntOr("i", 0))
	assert.Equal(t, 3.5, cfg.FloatOr("f", 0))
	assert.True(t, cfg.BoolOr("b", false))
	d, ok := cfg.Duration("d")
	require.True(t, ok)
	assert.Equal(t, "45s", d.String())
	list, ok := cfg.Strings("list")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, list)
}
