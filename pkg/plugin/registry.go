package plugin

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry caches, per interface, the mapping from implementation name to
// provider. Entries are populated lazily on first lookup and remain stable
// until an explicit Rebuild.
//
// Population is guarded by a mutex so that concurrent first lookups for the
// same interface perform discovery exactly once. The Entry returned by Get is
// an immutable snapshot; reading it after population requires no lock.
//
// Rebuild is not safe to run concurrently with in-flight FromConfig or
// ToConfig calls resolving against the same interface; callers must serialize
// rebuilds into quiescent periods.
type Registry struct {
	log    *logrus.Logger
	getenv func(string) string
	opener moduleOpener

	mu         sync.Mutex
	interfaces map[string]Interface
	static     map[string][]Provider
	entries    map[string]*Entry
}

// Option customizes a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for discovery warnings.
func WithLogger(log *logrus.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithEnvLookup overrides environment variable lookup. Used in tests.
func WithEnvLookup(getenv func(string) string) Option {
	return func(r *Registry) { r.getenv = getenv }
}

// WithModuleOpener overrides how external modules are opened. Used in tests.
func WithModuleOpener(opener moduleOpener) Option {
	return func(r *Registry) { r.opener = opener }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		log:        logrus.New(),
		getenv:     os.Getenv,
		opener:     sharedObjectOpener{},
		interfaces: make(map[string]Interface),
		static:     make(map[string][]Provider),
		entries:    make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry. It is initialized lazily on
// first use; interface and provider registrations from package init functions
// are buffered and applied here.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		r := NewRegistry()
		deferredMu.Lock()
		defaultRegistry = r
		applyDeferredLocked(r)
		deferredMu.Unlock()
	})
	return defaultRegistry
}

// RegisterInterface adds an interface descriptor. It fails if the name is
// already taken or the capability type is not a Go interface.
func (r *Registry) RegisterInterface(iface Interface) error {
	if iface.Name == "" {
		return fmt.Errorf("cannot register interface with empty name")
	}
	if iface.Type == nil || iface.Type.Kind() != reflect.Interface {
		return fmt.Errorf("interface %q: capability type must be a Go interface", iface.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.interfaces[iface.Name]; exists {
		return fmt.Errorf("interface already registered: %s", iface.Name)
	}
	r.interfaces[iface.Name] = iface
	return nil
}

// Register adds a provider to the static registration table for the named
// interface. Typically called from an implementation package's init, before
// the interface's entry is first populated. Registering after population has
// no effect until the next Rebuild.
func (r *Registry) Register(ifaceName string, p Provider) error {
	if p.Name == "" {
		return fmt.Errorf("interface %q: cannot register provider with empty name", ifaceName)
	}
	if p.New == nil {
		return fmt.Errorf("interface %q: provider %q has nil factory", ifaceName, p.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.interfaces[ifaceName]; !exists {
		return &UnknownInterfaceError{Interface: ifaceName}
	}
	r.static[ifaceName] = append(r.static[ifaceName], p)
	return nil
}

// Interfaces returns the sorted names of all registered interfaces.
func (r *Registry) Interfaces() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.interfaces))
	for name := range r.interfaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Interface returns the descriptor for the named interface.
func (r *Registry) Interface(name string) (Interface, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	iface, ok := r.interfaces[name]
	return iface, ok
}

// Get returns the registry entry for the named interface, populating it on
// first use. Repeated calls without an intervening Rebuild return the same
// snapshot.
func (r *Registry) Get(ifaceName string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[ifaceName]; ok {
		return entry, nil
	}
	return r.populateLocked(ifaceName)
}

// Rebuild discards the cached entry for the named interface and repopulates
// it, picking up providers registered or made loadable since the last scan.
//
// Hazard: a configuration serialized before a rebuild references
// implementations by name. If the rebuilt entry maps a name to a different
// concrete type, deserializing that configuration silently constructs the new
// type. This is not detected here; it is the caller's responsibility.
func (r *Registry) Rebuild(ifaceName string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, ifaceName)
	return r.populateLocked(ifaceName)
}

// populateLocked runs discovery for one interface: static providers first,
// then external modules. Caller holds r.mu.
func (r *Registry) populateLocked(ifaceName string) (*Entry, error) {
	iface, ok := r.interfaces[ifaceName]
	if !ok {
		return nil, &UnknownInterfaceError{Interface: ifaceName}
	}

	entry := &Entry{
		iface:     iface,
		providers: make(map[string]Provider),
		byType:    make(map[reflect.Type]string),
	}

	for _, p := range r.static[ifaceName] {
		r.admit(entry, p, "static")
	}
	for _, p := range r.scanModules(iface) {
		r.admit(entry, p, "module")
	}

	sort.Strings(entry.names)
	r.entries[ifaceName] = entry
	return entry, nil
}

// admit runs the class filter over one candidate provider and, when it
// passes, adds it to the entry.
func (r *Registry) admit(entry *Entry, p Provider, source string) {
	log := r.log.WithFields(logrus.Fields{
		"interface":      entry.iface.Name,
		"implementation": p.Name,
		"source":         source,
	})

	if p.Name == "" || p.New == nil {
		log.Debug("Skipping incomplete provider")
		return
	}
	inst := p.New()
	if inst == nil {
		log.Debug("Skipping provider with nil product")
		return
	}
	product := reflect.TypeOf(inst)
	if !product.Implements(entry.iface.Type) {
		log.Debugf("Skipping %s: does not satisfy %s", product, entry.iface.Type)
		return
	}
	if p.Usable != nil {
		if err := p.Usable(); err != nil {
			log.WithError(err).Warn("Implementation not usable, filtering out")
			return
		}
	}
	if _, dup := entry.providers[p.Name]; dup {
		log.Warn("Duplicate implementation name, keeping first registration")
		return
	}

	entry.providers[p.Name] = p
	entry.byType[product] = p.Name
	entry.names = append(entry.names, p.Name)
}

// Entry is the per-interface mapping from implementation name to provider.
// It is immutable once returned by Get.
type Entry struct {
	iface     Interface
	names     []string
	providers map[string]Provider
	byType    map[reflect.Type]string
}

// Interface returns the descriptor this entry was populated for.
func (e *Entry) Interface() Interface {
	return e.iface
}

// Names returns the implementation names in sorted order.
func (e *Entry) Names() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// Len returns the number of registered implementations.
func (e *Entry) Len() int {
	return len(e.providers)
}

// Lookup returns the provider for an implementation name.
func (e *Entry) Lookup(name string) (Provider, bool) {
	p, ok := e.providers[name]
	return p, ok
}

// New constructs an unconfigured instance of the named implementation. An
// empty entry and an unknown name fail with distinct error types.
func (e *Entry) New(name string) (Pluggable, error) {
	if len(e.providers) == 0 {
		return nil, &NoImplementationsError{Interface: e.iface.Name}
	}
	p, ok := e.providers[name]
	if !ok {
		return nil, &UnknownImplementationError{Interface: e.iface.Name, Name: name}
	}
	return p.New(), nil
}

// nameOf reports the implementation name whose product type matches inst.
func (e *Entry) nameOf(inst Pluggable) (string, bool) {
	name, ok := e.byType[reflect.TypeOf(inst)]
	return name, ok
}

// Deferred registration support: implementation packages register themselves
// in init, which may run before Default() is first called. Registrations
// against the default registry are buffered until then.

var (
	deferredMu         sync.Mutex
	deferredInterfaces []Interface
	deferredProviders  []deferredProvider
)

type deferredProvider struct {
	iface    string
	provider Provider
}

// applyDeferredLocked flushes buffered registrations. Caller holds deferredMu.
func applyDeferredLocked(r *Registry) {
	for _, iface := range deferredInterfaces {
		if err := r.RegisterInterface(iface); err != nil {
			r.log.WithError(err).WithField("interface", iface.Name).
				Warn("Dropping interface registration")
		}
	}
	for _, dp := range deferredProviders {
		if err := r.Register(dp.iface, dp.provider); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{
				"interface":      dp.iface,
				"implementation": dp.provider.Name,
			}).Warn("Dropping provider registration")
		}
	}
	deferredInterfaces = nil
	deferredProviders = nil
}

// MustRegisterInterface registers an interface descriptor with the default
// registry. Intended for use from the defining package's init; panics on a
// malformed descriptor.
func MustRegisterInterface(iface Interface) {
	if iface.Name == "" || iface.Type == nil || iface.Type.Kind() != reflect.Interface {
		panic(fmt.Sprintf("plugin: invalid interface descriptor %+v", iface))
	}

	deferredMu.Lock()
	buffered := defaultRegistry == nil
	if buffered {
		deferredInterfaces = append(deferredInterfaces, iface)
	}
	deferredMu.Unlock()

	if !buffered {
		if err := defaultRegistry.RegisterInterface(iface); err != nil {
			panic(err)
		}
	}
}

// MustRegister registers a provider with the default registry. Intended for
// use from an implementation package's init; panics on a malformed provider.
func MustRegister(ifaceName string, p Provider) {
	if p.Name == "" || p.New == nil {
		panic(fmt.Sprintf("plugin: invalid provider %+v for interface %q", p, ifaceName))
	}

	deferredMu.Lock()
	buffered := defaultRegistry == nil
	if buffered {
		deferredProviders = append(deferredProviders, deferredProvider{iface: ifaceName, provider: p})
	}
	deferredMu.Unlock()

	if !buffered {
		if err := defaultRegistry.Register(ifaceName, p); err != nil {
			panic(err)
		}
	}
}
