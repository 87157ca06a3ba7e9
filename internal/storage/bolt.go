package storage

import (
	"go.etcd.io/bbolt"
)

// boltStorage adapts go.etcd.io/bbolt to the Storage interface. Grounded
// on the teacher's storage_bolt.go.
type boltStorage struct {
	bdb *bbolt.DB
}

// OpenBolt opens (creating if necessary) a bbolt-backed store at path.
func OpenBolt(path string, opt bbolt.Options) (Storage, error) {
	bdb, err := bbolt.Open(path, 0666, &opt)
	if err != nil {
		return nil, err
	}
	return &boltStorage{bdb: bdb}, nil
}

func (s *boltStorage) Begin(writable bool) (Tx, error) {
	btx, err := s.bdb.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &boltTx{btx: btx}, nil
}

func (s *boltStorage) Close() error {
	return s.bdb.Close()
}

func (s *boltStorage) Size() int64 {
	return s.bdb.Stats().TxStats.PageAlloc
}

type boltTx struct {
	btx *bbolt.Tx
}

func (tx *boltTx) Writable() bool { return tx.btx.Writable() }

func (tx *boltTx) Bucket(name string) Bucket {
	b := tx.btx.Bucket([]byte(name))
	if b == nil {
		return nil
	}
	return boltBucket{b}
}

func (tx *boltTx) CreateBucketIfNotExists(name string) (Bucket, error) {
	b, err := tx.btx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, err
	}
	return boltBucket{b}, nil
}

func (tx *boltTx) DeleteBucket(name string) error {
	err := tx.btx.DeleteBucket([]byte(name))
	if err == bbolt.ErrBucketNotFound {
		return ErrBucketNotFound
	}
	return err
}

func (tx *boltTx) Commit() error {
	return tx.btx.Commit()
}

func (tx *boltTx) Rollback() error {
	err := tx.btx.Rollback()
	if err == bbolt.ErrTxClosed {
		return nil
	}
	return err
}

type boltBucket struct {
	b *bbolt.Bucket
}

func (bb boltBucket) Get(key []byte) []byte { return bb.b.Get(key) }

func (bb boltBucket) Put(key, value []byte) error { return bb.b.Put(key, value) }

func (bb boltBucket) Delete(key []byte) error { return bb.b.Delete(key) }

func (bb boltBucket) KeyCount() int { return bb.b.Stats().KeyN }

func (bb boltBucket) Cursor() Cursor { return boltCursor{bb.b.Cursor()} }

type boltCursor struct {
	c *bbolt.Cursor
}

func (bc boltCursor) First() ([]byte, []byte) { return bc.c.First() }
func (bc boltCursor) Last() ([]byte, []byte)  { return bc.c.Last() }
func (bc boltCursor) Seek(seek []byte) ([]byte, []byte) { return bc.c.Seek(seek) }
func (bc boltCursor) Next() ([]byte, []byte)  { return bc.c.Next() }
func (bc boltCursor) Prev() ([]byte, []byte)  { return bc.c.Prev() }
