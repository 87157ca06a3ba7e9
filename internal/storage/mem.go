package storage

import (
	"slices"
	"sort"
	"sync"
)

// memStorage is a deterministic in-memory backend used by engine unit
// tests so they can exercise the write path, index diffing and range
// scans without touching disk. It offers the same snapshot-isolation
// guarantee as the bbolt backend: a read transaction sees a consistent
// point-in-time view even while a concurrent write transaction is being
// built, because writes only ever mutate a private copy-on-write clone
// that is published atomically on Commit.
//
// Grounded on the teacher's storage_mem.go, rewritten against the
// storage.Storage/Tx/Bucket/Cursor interfaces instead of edb's bucket
// abstraction.
type memStorage struct {
	mu       sync.Mutex // serializes writers, guarded exactly like bbolt's single-writer lock
	snapMu   sync.RWMutex
	snapshot *memSnapshot
}

// NewMem creates a fresh in-memory storage backend.
func NewMem() Storage {
	return &memStorage{snapshot: &memSnapshot{buckets: map[string]*memBucket{}}}
}

type memSnapshot struct {
	buckets map[string]*memBucket
}

func (s *memSnapshot) clone() *memSnapshot {
	nb := make(map[string]*memBucket, len(s.buckets))
	for k, v := range s.buckets {
		nb[k] = v
	}
	return &memSnapshot{buckets: nb}
}

type memEntry struct {
	key   []byte
	value []byte
}

// memBucket is an immutable, sorted-by-key slice of entries. Mutating a
// bucket inside a writable transaction clones it first (copy-on-write),
// so readers holding an older snapshot never observe a partial write.
type memBucket struct {
	entries []memEntry
}

func (b *memBucket) find(key []byte) (int, bool) {
	i, found := sort.Find(len(b.entries), func(i int) int {
		return compareBytes(key, b.entries[i].key)
	})
	return i, found
}

func compareBytes(a, b []byte) int {
	return sliceCompare(a, b)
}

func sliceCompare(a, b []byte) int {
	switch {
	case string(a) < string(b):
		return -1
	case string(a) > string(b):
		return 1
	default:
		return 0
	}
}

func (s *memStorage) Begin(writable bool) (Tx, error) {
	if writable {
		s.mu.Lock()
		s.snapMu.RLock()
		base := s.snapshot
		s.snapMu.RUnlock()
		return &memTx{storage: s, writable: true, snap: base.clone()}, nil
	}
	s.snapMu.RLock()
	base := s.snapshot
	s.snapMu.RUnlock()
	return &memTx{storage: s, writable: false, snap: base}, nil
}

func (s *memStorage) Close() error { return nil }

func (s *memStorage) Size() int64 {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	var n int64
	for _, b := range s.snapshot.buckets {
		for _, e := range b.entries {
			n += int64(len(e.key) + len(e.value))
		}
	}
	return n
}

type memTx struct {
	storage  *memStorage
	writable bool
	snap     *memSnapshot
	done     bool
}

func (tx *memTx) Writable() bool { return tx.writable }

func (tx *memTx) Bucket(name string) Bucket {
	b, ok := tx.snap.buckets[name]
	if !ok {
		return nil
	}
	return &memBucketHandle{tx: tx, name: name, b: b}
}

func (tx *memTx) CreateBucketIfNotExists(name string) (Bucket, error) {
	if !tx.writable {
		panic("storage: CreateBucketIfNotExists on a read-only transaction")
	}
	b, ok := tx.snap.buckets[name]
	if !ok {
		b = &memBucket{}
		tx.snap.buckets[name] = b
	}
	return &memBucketHandle{tx: tx, name: name, b: b}, nil
}

func (tx *memTx) DeleteBucket(name string) error {
	if !tx.writable {
		panic("storage: DeleteBucket on a read-only transaction")
	}
	if _, ok := tx.snap.buckets[name]; !ok {
		return ErrBucketNotFound
	}
	delete(tx.snap.buckets, name)
	return nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.writable {
		defer tx.storage.mu.Unlock()
		tx.storage.snapMu.Lock()
		tx.storage.snapshot = tx.snap
		tx.storage.snapMu.Unlock()
	}
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.writable {
		tx.storage.mu.Unlock()
	}
	return nil
}

// memBucketHandle is the mutable view of a bucket used within a single
// transaction. Every Put or Delete replaces tx.snap.buckets[name] with
// a modified copy (copy-on-write) so a reader holding the old snapshot
// is unaffected.
type memBucketHandle struct {
	tx   *memTx
	name string
	b    *memBucket
}

func (h *memBucketHandle) ensureOwned() *memBucket {
	if !h.tx.writable {
		panic("storage: write on a read-only transaction")
	}
	return h.b
}

func (h *memBucketHandle) Get(key []byte) []byte {
	i, found := h.b.find(key)
	if !found {
		return nil
	}
	return h.b.entries[i].value
}

func (h *memBucketHandle) Put(key, value []byte) error {
	b := h.ensureOwned()
	i, found := b.find(key)
	kCopy := slices.Clone(key)
	vCopy := slices.Clone(value)
	if found {
		entries := slices.Clone(b.entries)
		entries[i] = memEntry{kCopy, vCopy}
		nb := &memBucket{entries: entries}
		h.tx.snap.buckets[h.name] = nb
		h.b = nb
		return nil
	}
	entries := make([]memEntry, 0, len(b.entries)+1)
	entries = append(entries, b.entries[:i]...)
	entries = append(entries, memEntry{kCopy, vCopy})
	entries = append(entries, b.entries[i:]...)
	nb := &memBucket{entries: entries}
	h.tx.snap.buckets[h.name] = nb
	h.b = nb
	return nil
}

func (h *memBucketHandle) Delete(key []byte) error {
	b := h.ensureOwned()
	i, found := b.find(key)
	if !found {
		return nil
	}
	entries := make([]memEntry, 0, len(b.entries)-1)
	entries = append(entries, b.entries[:i]...)
	entries = append(entries, b.entries[i+1:]...)
	nb := &memBucket{entries: entries}
	h.tx.snap.buckets[h.name] = nb
	h.b = nb
	return nil
}

func (h *memBucketHandle) KeyCount() int { return len(h.b.entries) }

func (h *memBucketHandle) Cursor() Cursor {
	return &memCursor{entries: h.b.entries, pos: -1}
}

type memCursor struct {
	entries []memEntry
	pos     int
}

func (c *memCursor) at(i int) ([]byte, []byte) {
	if i < 0 || i >= len(c.entries) {
		c.pos = len(c.entries)
		return nil, nil
	}
	c.pos = i
	return c.entries[i].key, c.entries[i].value
}

func (c *memCursor) First() ([]byte, []byte) { return c.at(0) }
func (c *memCursor) Last() ([]byte, []byte)  { return c.at(len(c.entries) - 1) }

func (c *memCursor) Seek(seek []byte) ([]byte, []byte) {
	i, _ := sort.Find(len(c.entries), func(i int) int {
		return compareBytes(seek, c.entries[i].key)
	})
	return c.at(i)
}

func (c *memCursor) Next() ([]byte, []byte) { return c.at(c.pos + 1) }
func (c *memCursor) Prev() ([]byte, []byte) { return c.at(c.pos - 1) }
