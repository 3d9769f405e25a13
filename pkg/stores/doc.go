// Package stores provides the persistence layer for watch rules and their
// buffered metric samples, with SQLite-backed and in-memory
// implementations.
package stores
