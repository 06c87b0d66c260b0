package plugin

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testWidget is the capability interface used throughout the package tests.
type testWidget interface {
	Pluggable
	Frob() string
}

var testWidgetType = InterfaceFor[testWidget]()

// gadget is a minimal implementation with two scalar parameters.
type gadget struct {
	speed int
	label string
}

func (g *gadget) DefaultConfig() Config {
	return Config{"speed": 3, "label": "basic"}
}

func (g *gadget) Configure(reg *Registry, cfg Config) error {
	g.speed = cfg.IntOr("speed", 3)
	g.label = cfg.StringOr("label", "basic")
	if g.speed <= 0 {
		return fmt.Errorf("speed must be positive, got %d", g.speed)
	}
	return nil
}

func (g *gadget) Config() Config {
	return Config{"speed": g.speed, "label": g.label}
}

func (g *gadget) Frob() string { return g.label }

// sprocket is a second implementation so entries have more than one member.
type sprocket struct {
	teeth int
}

func (s *sprocket) DefaultConfig() Config {
	return Config{"teeth": 12}
}

func (s *sprocket) Configure(reg *Registry, cfg Config) error {
	s.teeth = cfg.IntOr("teeth", 12)
	return nil
}

func (s *sprocket) Config() Config {
	return Config{"teeth": s.teeth}
}

func (s *sprocket) Frob() string { return "sprocket" }

// notAWidget satisfies Pluggable but not testWidget; the class filter must
// reject it.
type notAWidget struct{}

func (n *notAWidget) DefaultConfig() Config                     { return Config{} }
func (n *notAWidget) Configure(reg *Registry, cfg Config) error { return nil }
func (n *notAWidget) Config() Config                            { return Config{} }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newWidgetRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	r := NewRegistry(opts...)
	require.NoError(t, r.RegisterInterface(Interface{
		Name:         "widget",
		Type:         testWidgetType,
		PathVar:      "QUIVER_WIDGET_PATH",
		ExportSymbol: "WidgetProviders",
	}))
	return r
}

func registerDefaultWidgets(t *testing.T, r *Registry) {
	t.Helper()
	require.NoError(t, r.Register("widget", Provider{
		Name: "gadget",
		New:  func() Pluggable { return &gadget{} },
	}))
	require.NoError(t, r.Register("widget", Provider{
		Name: "sprocket",
		New:  func() Pluggable { return &sprocket{} },
	}))
}

func TestRegistry_RegisterInterface(t *testing.T) {
	tests := []struct {
		name    string
		iface   Interface
		wantErr string
	}{
		{
			name:  "valid interface",
			iface: Interface{Name: "widget", Type: testWidgetType},
		},
		{
			name:    "empty name",
			iface:   Interface{Type: testWidgetType},
			wantErr: "empty name",
		},
		{
			name:    "nil capability type",
			iface:   Interface{Name: "widget"},
			wantErr: "must be a Go interface",
		},
		{
			name:    "non-interface capability type",
			iface:   Interface{Name: "widget", Type: reflect.TypeOf(gadget{})},
			wantErr: "must be a Go interface",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(WithLogger(quietLogger()))
			err := r.RegisterInterface(tt.iface)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry_RegisterInterface_Duplicate(t *testing.T) {
	r := newWidgetRegistry(t)
	err := r.RegisterInterface(Interface{Name: "widget", Type: testWidgetType})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_Register_UnknownInterface(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	err := r.Register("nope", Provider{Name: "x", New: func() Pluggable { return &gadget{} }})

	var uie *UnknownInterfaceError
	require.ErrorAs(t, err, &uie)
	assert.Equal(t, "nope", uie.Interface)
}

func TestRegistry_Get_Idempotent(t *testing.T) {
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)

	first, err := r.Get("widget")
	require.NoError(t, err)
	second, err := r.Get("widget")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, []string{"gadget", "sprocket"}, first.Names())
	assert.Equal(t, first.Names(), second.Names())
}

func TestRegistry_Get_UnknownInterface(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	_, err := r.Get("widget")

	var uie *UnknownInterfaceError
	require.ErrorAs(t, err, &uie)
	assert.Equal(t, "widget", uie.Interface)
}

func TestRegistry_Get_FiltersNonImplementing(t *testing.T) {
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)
	require.NoError(t, r.Register("widget", Provider{
		Name: "impostor",
		New:  func() Pluggable { return &notAWidget{} },
	}))

	entry, err := r.Get("widget")
	require.NoError(t, err)
	assert.Equal(t, []string{"gadget", "sprocket"}, entry.Names())
}

func TestRegistry_Get_FiltersUnusable(t *testing.T) {
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)
	require.NoError(t, r.Register("widget", Provider{
		Name:   "broken",
		New:    func() Pluggable { return &gadget{} },
		Usable: func() error { return errors.New("libfrob not installed") },
	}))

	entry, err := r.Get("widget")
	require.NoError(t, err)
	assert.NotContains(t, entry.Names(), "broken")
	assert.Equal(t, 2, entry.Len())
}

func TestRegistry_Get_DuplicateNameKeepsFirst(t *testing.T) {
	r := newWidgetRegistry(t)
	require.NoError(t, r.Register("widget", Provider{
		Name: "gadget",
		New:  func() Pluggable { return &gadget{} },
	}))
	require.NoError(t, r.Register("widget", Provider{
		Name: "gadget",
		New:  func() Pluggable { return &sprocket{} },
	}))

	entry, err := r.Get("widget")
	require.NoError(t, err)
	require.Equal(t, []string{"gadget"}, entry.Names())

	inst, err := entry.New("gadget")
	require.NoError(t, err)
	assert.IsType(t, &gadget{}, inst)
}

func TestRegistry_Get_ConcurrentFirstAccess(t *testing.T) {
	scans := 0
	opener := &fakeOpener{
		modules: map[string]*fakeModule{
			"/plugins/extra.so": {symbols: map[string]interface{}{
				"WidgetProviders": []Provider{{
					Name: "extra",
					New:  func() Pluggable { return &gadget{} },
				}},
			}},
		},
		onOpen: func() { scans++ },
	}
	r := newWidgetRegistry(t,
		WithModuleOpener(opener),
		WithEnvLookup(func(key string) string {
			if key == "QUIVER_WIDGET_PATH" {
				return "/plugins/extra.so"
			}
			return ""
		}),
	)
	registerDefaultWidgets(t, r)

	const goroutines = 16
	entries := make([]*Entry, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			entry, err := r.Get("widget")
			assert.NoError(t, err)
			entries[i] = entry
		}(i)
	}
	wg.Wait()

	// All callers converge on one entry, populated by exactly one scan.
	for i := 1; i < goroutines; i++ {
		assert.Same(t, entries[0], entries[i])
	}
	assert.Equal(t, 1, scans)
	assert.Equal(t, []string{"extra", "gadget", "sprocket"}, entries[0].Names())
}

func TestRegistry_Rebuild_PicksUpNewProviders(t *testing.T) {
	r := newWidgetRegistry(t)
	require.NoError(t, r.Register("widget", Provider{
		Name: "gadget",
		New:  func() Pluggable { return &gadget{} },
	}))

	entry, err := r.Get("widget")
	require.NoError(t, err)
	assert.Equal(t, []string{"gadget"}, entry.Names())

	// Registered after population: invisible until rebuild.
	require.NoError(t, r.Register("widget", Provider{
		Name: "sprocket",
		New:  func() Pluggable { return &sprocket{} },
	}))
	entry, err = r.Get("widget")
	require.NoError(t, err)
	assert.Equal(t, []string{"gadget"}, entry.Names())

	rebuilt, err := r.Rebuild("widget")
	require.NoError(t, err)
	assert.Equal(t, []string{"gadget", "sprocket"}, rebuilt.Names())
}

func TestEntry_New_EmptyEntry(t *testing.T) {
	r := newWidgetRegistry(t)

	entry, err := r.Get("widget")
	require.NoError(t, err)
	require.Equal(t, 0, entry.Len())

	_, err = entry.New("gadget")
	var nie *NoImplementationsError
	require.ErrorAs(t, err, &nie)
	assert.Equal(t, "widget", nie.Interface)
}

func TestEntry_New_UnknownName(t *testing.T) {
	r := newWidgetRegistry(t)
	registerDefaultWidgets(t, r)

	entry, err := r.Get("widget")
	require.NoError(t, err)

	_, err = entry.New("DoesNotExist")
	var uie *UnknownImplementationError
	require.ErrorAs(t, err, &uie)
	assert.Equal(t, "widget", uie.Interface)
	assert.Equal(t, "DoesNotExist", uie.Name)
	assert.Contains(t, err.Error(), "DoesNotExist")
}

func TestRegistry_Interfaces(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	require.NoError(t, r.RegisterInterface(Interface{Name: "widget", Type: testWidgetType}))
	require.NoError(t, r.RegisterInterface(Interface{Name: "doohickey", Type: testWidgetType}))

	assert.Equal(t, []string{"doohickey", "widget"}, r.Interfaces())

	iface, ok := r.Interface("widget")
	require.True(t, ok)
	assert.Equal(t, "widget", iface.Name)

	_, ok = r.Interface("nope")
	assert.False(t, ok)
}
