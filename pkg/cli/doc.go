// Package cli provides the Quiver command-line interface.
//
// # Overview
//
// This package implements the `quiver-cli` tool for working with a running
// Quiver server and for offline plugin introspection.
//
// # Commands
//
// plugins: List pluggable interfaces and their visible implementations
//
//	quiver-cli plugins \
//		--registry http://localhost:8080 \
//		--interface nn-index
//
// defaults: Print the default configuration tree for an interface (offline)
//
//	quiver-cli defaults \
//		--interface descriptor-set \
//		--type redis
//
// compute: Compute and store a descriptor for a local file
//
//	quiver-cli compute \
//		--file ./image.png \
//		--content-type image/png \
//		--registry http://localhost:8080
//
// query: Find the nearest stored descriptors to a local file
//
//	quiver-cli query \
//		--file ./image.png \
//		--k 5 \
//		--build  # Rebuild the index from the set first
//
// pipeline: Show the server's live pipeline configuration
//
//	quiver-cli pipeline --registry http://localhost:8080
//
// File contents are sent inline as in-memory data elements, so the server
// never needs access to the client's filesystem.
package cli
