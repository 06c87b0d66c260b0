// Package generator defines descriptor generators: components that compute a
// feature vector from a data element's content. Generators are pluggable;
// this package ships a byte histogram generator for arbitrary content and a
// color moments generator for images.
package generator
