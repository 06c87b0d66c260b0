// Package plugin implements discovery and configuration-driven construction
// of interchangeable algorithm and representation implementations.
//
// An abstract capability (a "pluggable interface") is described by an
// Interface value that its defining package registers during init. Concrete
// implementations register a Provider for that interface, also during init,
// forming an ahead-of-time registration table. Additional implementations can
// be contributed at runtime through Go shared-object modules named by the
// interface's path environment variable.
//
// A Registry caches, per interface, the mapping from implementation name to
// provider. Instances are built from JSON-compatible configuration trees in
// which a pluggable slot has the wire shape:
//
//	{"type": "<implementation-name>", "<implementation-name>": {...}}
//
// Nested slots recurse using the same shape, so a full configuration tree
// round-trips through FromConfig and ToConfig.
package plugin
