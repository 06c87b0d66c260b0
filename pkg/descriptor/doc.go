// Package descriptor defines descriptor elements: identified feature vectors
// produced by generators and held in descriptor sets. Elements are pluggable
// so the vector payload can live in memory or on disk; the Factory stamps out
// elements of a configured backend type for new descriptors.
package descriptor
