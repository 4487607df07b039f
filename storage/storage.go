// Package storage implements the pluggable persistence backends behind
// the manager described in spec.md §4.5: an abstract Backend interface
// plus in-memory, JSON-file, and SQL reference implementations.
package storage

import (
	"iter"

	"github.com/mvndaai/filemeta/record"
)

// Backend persists records keyed by path. Implementations need not be
// safe for concurrent use by multiple goroutines; the manager serializes
// access to storage the same way it serializes access to the registry.
type Backend interface {
	Save(path string, rec record.Record) error
	Load(path string) (record.Record, bool, error)
	Delete(path string) error

	// LoadAll streams every stored (path, record) pair. It returns a Go
	// 1.23 iterator rather than a slice so a backend with a large dataset
	// (the SQL backend in particular) can stream rows without buffering
	// the whole table, mirroring the Python implementation's generator
	// more closely than a slice-returning method would.
	LoadAll() iter.Seq2[string, record.Record]
}
