package docdb

import (
	"sync"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hollowmap/docdb/internal/storage"
)

// Engine owns the store, the derived indexes, and the notification hub;
// it is the sole entry point spec.md §2 calls for ("the engine
// operations are the only entry points and own all locking"). Grounded
// on the teacher's DB/Open, with the static-schema machinery dropped:
// there is no schema to prepare at open, since documents are arbitrary
// JSON.
type Engine struct {
	store storage.Storage
	hub   *Hub

	writeMu sync.Mutex // single-writer serialization, spec.md §5

	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
}

// Options configures Open.
type Options struct {
	// IsTesting relaxes durability for faster test runs, same knob the
	// teacher's db.go exposes.
	IsTesting bool
}

// Open opens (creating if necessary) the document store at path.
func Open(path string, opt Options) (*Engine, error) {
	bopt := bbolt.Options{Timeout: 10 * time.Second}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
	}
	store, err := storage.OpenBolt(path, bopt)
	if err != nil {
		return nil, errf(KindFatalStorage, err, "open store at %q", path)
	}
	return newEngine(store)
}

// OpenMem opens an in-memory engine, used by engine tests that don't
// want to touch disk.
func OpenMem() (*Engine, error) {
	return newEngine(storage.NewMem())
}

func newEngine(store storage.Storage) (*Engine, error) {
	e := &Engine{store: store, hub: NewHub()}
	tx, err := store.Begin(true)
	if err != nil {
		return nil, errf(KindFatalStorage, err, "begin init tx")
	}
	for _, bucket := range []string{bucketDocs, bucketFidx, bucketGidx} {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			tx.Rollback()
			return nil, errf(KindFatalStorage, err, "create bucket %q", bucket)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errf(KindFatalStorage, err, "commit init tx")
	}
	return e, nil
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Hub exposes the change-notification registry so the HTTP boundary
// can subscribe /events streams without reaching into engine internals.
func (e *Engine) Hub() *Hub { return e.hub }
