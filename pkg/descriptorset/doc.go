// Package descriptorset defines the descriptor set abstraction: a keyed
// store of descriptor vectors addressed by UUID. Backends are pluggable;
// this package ships in-memory (with optional JSON file cache), SQLite,
// PostgreSQL, and Redis sets, plus an LRU caching decorator that wraps any
// other backend through a nested pluggable slot.
package descriptorset
