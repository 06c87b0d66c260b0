// Package config provides application configuration management.
//
// Service settings (listen address, log level, timeouts) come from QUIVER_*
// environment variables with sensible defaults. The retrieval pipeline
// (descriptor factory, generator, set, index) is described by a YAML or
// JSON file of pluggable-slot trees and loaded separately.
package config
