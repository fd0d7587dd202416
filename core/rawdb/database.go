// Package rawdb provides the low-level key-value interfaces and accessor
// functions used to persist beacon campaigns, participants and the
// scheduling agent's private bookkeeping.
//
// The schema follows go-ethereum's prefix-based layout where each record
// kind uses a distinct single-byte key prefix to avoid collisions.
package rawdb

import "errors"

var (
	ErrNotFound = errors.New("rawdb: not found")
	ErrClosed   = errors.New("rawdb: database closed")
)

// KeyValueReader wraps the Has and Get methods of a backing data store.
type KeyValueReader interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter wraps the Put and Delete methods of a backing data store.
type KeyValueWriter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// KeyValueStore combines read and write access to a backing data store.
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter
	Close() error
}

// Iterator iterates over a database's key/value pairs in ascending key order.
type Iterator interface {
	Next() bool
	Error() error
	Key() []byte
	Value() []byte
	Release()
}

// Iteratee wraps the NewIterator method of a backing data store.
type Iteratee interface {
	NewIterator(prefix []byte) Iterator
}

// Batch is a write-only database that commits changes atomically.
type Batch interface {
	KeyValueWriter
	ValueSize() int
	Write() error
	Reset()
}

// Batcher wraps the NewBatch method of a backing data store.
type Batcher interface {
	NewBatch() Batch
}

// Database is the full database interface combining all capabilities.
type Database interface {
	KeyValueStore
	Batcher
	Iteratee
}
