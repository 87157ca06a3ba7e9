// Package storage provides the byte-keyspace abstraction the document
// engine is built on: a sorted key-value store partitioned into named
// buckets, with atomic multi-key commits and ordered prefix iteration.
//
// The interfaces here exist so the engine can run against either a real
// bbolt file (Bolt) or an in-memory backend (Mem) used by engine tests
// that don't want to touch disk.
package storage

import "errors"

// ErrBucketNotFound is returned by Tx.DeleteBucket when the bucket doesn't exist.
var ErrBucketNotFound = errors.New("storage: bucket not found")

// Storage is a key-value storage backend (Bolt, in-memory, etc).
type Storage interface {
	// Begin starts a new transaction. Exactly one writable transaction
	// may be open at a time; any number of read-only transactions may
	// run concurrently with it.
	Begin(writable bool) (Tx, error)

	// Close closes the storage.
	Close() error

	// Size returns the on-disk size in bytes (0 if not applicable).
	Size() int64
}

// Tx represents a storage transaction.
type Tx interface {
	// Writable reports whether this is a writable transaction.
	Writable() bool

	// Bucket returns a top-level bucket by name, or nil if it doesn't exist.
	Bucket(name string) Bucket

	// CreateBucketIfNotExists creates a top-level bucket if missing.
	CreateBucketIfNotExists(name string) (Bucket, error)

	// DeleteBucket deletes a top-level bucket and everything in it.
	// Returns ErrBucketNotFound if it doesn't exist.
	DeleteBucket(name string) error

	// Commit commits the transaction. Only valid for writable transactions.
	Commit() error

	// Rollback aborts the transaction. Safe to call multiple times,
	// and safe to call after a successful Commit (no-op).
	Rollback() error
}

// Bucket is a sorted key-value collection.
type Bucket interface {
	// Get retrieves a value by key. Returns nil if not found.
	// The returned slice is only valid for the lifetime of the transaction.
	Get(key []byte) []byte

	// Put stores a key-value pair.
	Put(key, value []byte) error

	// Delete removes a key. No-op if the key doesn't exist.
	Delete(key []byte) error

	// Cursor returns a cursor for ordered iteration over the bucket.
	Cursor() Cursor

	// KeyCount returns the number of keys in the bucket (best effort).
	KeyCount() int
}

// Cursor iterates over a sorted bucket. All methods return nil, nil past
// either end of the bucket.
type Cursor interface {
	// First moves to the first key-value pair.
	First() (key, value []byte)
	// Last moves to the last key-value pair.
	Last() (key, value []byte)
	// Seek moves to the first key >= seek.
	Seek(seek []byte) (key, value []byte)
	// Next moves to the next key-value pair.
	Next() (key, value []byte)
	// Prev moves to the previous key-value pair.
	Prev() (key, value []byte)
}
