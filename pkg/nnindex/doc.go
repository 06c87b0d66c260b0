// Package nnindex defines nearest-neighbor indexes over descriptor vectors.
// Indexes are pluggable; this package ships an exact linear scan backed by a
// nested descriptor set slot and an approximate random-hyperplane LSH index.
package nnindex
