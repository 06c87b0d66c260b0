package plugin

import (
	"fmt"
	"os"
	goplugin "plugin"
	"strings"
)

var pathListSeparator = string(os.PathListSeparator)

// moduleOpener abstracts the loading of external provider modules so tests
// can exercise scanning without building shared objects.
type moduleOpener interface {
	Open(path string) (moduleSymbols, error)
}

// moduleSymbols is the symbol table of one loaded module.
type moduleSymbols interface {
	Lookup(name string) (interface{}, error)
}

// sharedObjectOpener loads Go shared-object modules ("go build
// -buildmode=plugin") through the standard library.
type sharedObjectOpener struct{}

func (sharedObjectOpener) Open(path string) (moduleSymbols, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	return sharedObjectLookup{p}, nil
}

type sharedObjectLookup struct {
	p *goplugin.Plugin
}

func (s sharedObjectLookup) Lookup(name string) (interface{}, error) {
	return s.p.Lookup(name)
}

// modulePathList splits the interface's path variable into individual module
// paths. The list is colon-delimited on Unix (os.PathListSeparator), matching
// PATH-style variables; empty segments are dropped.
func (r *Registry) modulePathList(iface Interface) []string {
	if iface.PathVar == "" {
		return nil
	}
	raw := r.getenv(iface.PathVar)
	if raw == "" {
		return nil
	}
	var paths []string
	for _, p := range strings.Split(raw, pathListSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// scanModules loads each external module named by the interface's path
// variable and collects its exported providers. Every module is handled
// independently: a failure to open or to expose a usable export symbol is a
// warning, and scanning continues with the remaining modules, so a single
// broken optional module never disables discovery of the rest.
func (r *Registry) scanModules(iface Interface) []Provider {
	var out []Provider
	for _, path := range r.modulePathList(iface) {
		log := r.log.WithField("interface", iface.Name).WithField("module", path)

		mod, err := r.opener.Open(path)
		if err != nil {
			log.WithError(err).Warn("Failed to load plugin module, skipping")
			continue
		}

		providers, err := moduleProviders(mod, iface)
		if err != nil {
			log.WithError(err).Warn("Plugin module exports no usable providers, skipping")
			continue
		}
		out = append(out, providers...)
	}
	return out
}

// moduleProviders extracts the provider list from one loaded module. The
// interface-specific export symbol, when present, is authoritative: only the
// providers it lists are considered, even if the module's generic Providers
// symbol would contribute more. Without it, the generic symbol is consulted
// and its contents are filtered by interface satisfaction later.
func moduleProviders(mod moduleSymbols, iface Interface) ([]Provider, error) {
	if iface.ExportSymbol != "" {
		if sym, err := mod.Lookup(iface.ExportSymbol); err == nil {
			return providersFromSymbol(sym, iface.ExportSymbol)
		}
	}
	sym, err := mod.Lookup(GenericExportSymbol)
	if err != nil {
		if iface.ExportSymbol != "" {
			return nil, fmt.Errorf("no %s or %s symbol", iface.ExportSymbol, GenericExportSymbol)
		}
		return nil, fmt.Errorf("no %s symbol", GenericExportSymbol)
	}
	return providersFromSymbol(sym, GenericExportSymbol)
}

// providersFromSymbol accepts the symbol shapes an exporting module may use:
// a provider slice variable or a function returning one.
func providersFromSymbol(sym interface{}, name string) ([]Provider, error) {
	switch v := sym.(type) {
	case *[]Provider:
		return *v, nil
	case []Provider:
		return v, nil
	case func() []Provider:
		return v(), nil
	default:
		return nil, fmt.Errorf("symbol %s has unsupported type %T", name, sym)
	}
}
