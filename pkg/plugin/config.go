package plugin

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Clone returns a deep copy of a configuration tree. Nested maps and slices
// are copied; leaf values are shared.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Config:
		return t.Clone()
	case map[string]interface{}:
		return Config(t).Clone()
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Merge deep-merges src over dst and returns the result. Values present in
// src win; nested maps merge recursively. Neither argument is modified.
func Merge(dst, src Config) Config {
	out := dst.Clone()
	if out == nil {
		out = make(Config, len(src))
	}
	for k, v := range src {
		sub, ok := AsConfig(v)
		if !ok {
			out[k] = cloneValue(v)
			continue
		}
		existing, ok := AsConfig(out[k])
		if !ok {
			out[k] = sub.Clone()
			continue
		}
		out[k] = Merge(existing, sub)
	}
	return out
}

// AsConfig coerces a decoded configuration value to a Config. JSON and YAML
// unmarshaling both produce map[string]interface{} nodes.
func AsConfig(v interface{}) (Config, bool) {
	switch t := v.(type) {
	case Config:
		return t, true
	case map[string]interface{}:
		return Config(t), true
	default:
		return nil, false
	}
}

// FromConfig constructs an implementation of the named interface from a
// pluggable-slot configuration tree: the "type" field selects the
// implementation, and the sibling field of the same name holds its
// parameters. Supplied parameters are merged over the implementation's
// defaults before Configure runs.
func (r *Registry) FromConfig(ifaceName string, tree Config) (Pluggable, error) {
	entry, err := r.Get(ifaceName)
	if err != nil {
		return nil, err
	}
	if entry.Len() == 0 {
		return nil, &NoImplementationsError{Interface: ifaceName}
	}

	sel, _ := tree[TypeField].(string)
	if sel == "" {
		return nil, fmt.Errorf("interface %q: configuration is missing the %q selector", ifaceName, TypeField)
	}

	inst, err := entry.New(sel)
	if err != nil {
		return nil, err
	}

	params, _ := AsConfig(tree[sel])
	merged := Merge(inst.DefaultConfig(), params)
	if err := inst.Configure(r, merged); err != nil {
		return nil, fmt.Errorf("configuring %s implementation %q: %w", ifaceName, sel, err)
	}
	return inst, nil
}

// ToConfig serializes a configured instance back to the pluggable-slot wire
// shape FromConfig accepts. The implementation name is recovered from the
// interface's registry entry by concrete type.
func (r *Registry) ToConfig(ifaceName string, inst Pluggable) (Config, error) {
	entry, err := r.Get(ifaceName)
	if err != nil {
		return nil, err
	}
	name, ok := entry.nameOf(inst)
	if !ok {
		return nil, fmt.Errorf("interface %q: instance type %T is not a registered implementation", ifaceName, inst)
	}
	return SlotConfig(name, inst), nil
}

// SlotConfig builds the wire shape for a pluggable slot holding a configured
// instance under a known implementation name. Implementations use it from
// Config to emit nested sub-component configuration.
func SlotConfig(name string, inst Pluggable) Config {
	return Config{TypeField: name, name: inst.Config()}
}

// MakeDefaultConfig returns the introspection configuration for an
// interface: a nil selector plus one parameter block per registered
// implementation, each holding that implementation's defaults.
func (r *Registry) MakeDefaultConfig(ifaceName string) (Config, error) {
	entry, err := r.Get(ifaceName)
	if err != nil {
		return nil, err
	}
	cfg := Config{TypeField: nil}
	for _, name := range entry.names {
		p := entry.providers[name]
		if inst := p.New(); inst != nil {
			cfg[name] = inst.DefaultConfig()
		}
	}
	return cfg, nil
}

// maxSlotDepth bounds default-configuration recursion through mutually
// referencing pluggable types.
const maxSlotDepth = 4

// Default-slot trees build one at a time. The recursion through an
// implementation's DefaultConfig stays on the building goroutine, so the
// owner id tells nested calls apart from new top-level builds, which wait
// their turn. slotDepth is owned by the chain holding slotMu.
var (
	slotMu    sync.Mutex
	slotOwner atomic.Uint64
	slotDepth int
)

// DefaultSlot builds the default configuration for a pluggable slot whose
// chosen default implementation is impl: the selector plus the
// implementation's own default parameters, recursively. Recursion is cut off
// at a fixed depth per tree build; FromConfig re-merges defaults per slot
// during resolution, so a truncated tree still constructs correctly.
//
// DefaultSlot consults the process-wide registry, which is where init-time
// registrations land; implementations call it from DefaultConfig, which takes
// no registry argument.
func DefaultSlot(ifaceName, impl string) Config {
	if gid := goroutineID(); slotOwner.Load() != gid {
		slotMu.Lock()
		slotOwner.Store(gid)
		defer func() {
			slotOwner.Store(0)
			slotMu.Unlock()
		}()
	}

	slot := Config{TypeField: impl}
	if slotDepth >= maxSlotDepth {
		return slot
	}
	slotDepth++
	defer func() { slotDepth-- }()

	entry, err := Default().Get(ifaceName)
	if err != nil {
		return slot
	}
	p, ok := entry.Lookup(impl)
	if !ok {
		return slot
	}
	if inst := p.New(); inst != nil {
		slot[impl] = inst.DefaultConfig()
	}
	return slot
}

// goroutineID parses the current goroutine's id from its stack header,
// "goroutine N [running]:". Ids start at 1, so 0 serves as the no-owner
// sentinel.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(string(buf[:n]))
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Resolve constructs an implementation of the named interface from a
// configuration tree and asserts it to T.
func Resolve[T any](r *Registry, ifaceName string, tree Config) (T, error) {
	var zero T
	inst, err := r.FromConfig(ifaceName, tree)
	if err != nil {
		return zero, err
	}
	t, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("interface %q: implementation %T does not satisfy %T", ifaceName, inst, zero)
	}
	return t, nil
}

// ResolveSlot resolves a nested pluggable slot value taken directly from a
// parent configuration tree. It returns the constructed sub-component and
// the selector name that chose it, which the parent records for Config.
func ResolveSlot[T any](r *Registry, ifaceName string, v interface{}) (T, string, error) {
	var zero T
	tree, ok := AsConfig(v)
	if !ok || tree == nil {
		return zero, "", fmt.Errorf("interface %q: pluggable slot value is %T, want an object", ifaceName, v)
	}
	inst, err := Resolve[T](r, ifaceName, tree)
	if err != nil {
		return zero, "", err
	}
	sel, _ := tree[TypeField].(string)
	return inst, sel, nil
}
