// Package data defines the data element abstraction: a handle to a blob of
// bytes with a content type and a stable identifier. Elements are pluggable;
// implementations cover in-memory bytes, local files, HTTP URLs, and S3
// objects, and external modules can contribute more through the
// QUIVER_DATA_ELEMENT_PATH module list.
package data
