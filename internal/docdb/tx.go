package docdb

import (
	"sort"

	"github.com/hollowmap/docdb/internal/storage"
)

// writeBatch is one atomic write: a list of per-key mutations staged
// together and committed as a single storage.Tx, per spec.md §4.5's
// "batch_set and transaction commit all-or-nothing." set/delete are
// sugar over a one-element batch.
//
// The generic storage.Storage interface has no bbolt-Batch-style
// retry/merge machinery, so unlike the teacher's DB.Tx this coordinator
// just serializes writers behind Engine.writeMu and commits directly;
// see DESIGN.md for why that's the right tradeoff here.
type writeBatch struct {
	mutations []Mutation
}

// Mutation is one staged set or delete within a writeBatch.
type Mutation struct {
	key    string
	delete bool
	doc    Value // ignored when delete is true
}

func (e *Engine) Set(key string, doc Value) error {
	return e.applyBatch(writeBatch{mutations: []Mutation{{key: key, doc: doc}}})
}

func (e *Engine) Delete(key string) error {
	return e.applyBatch(writeBatch{mutations: []Mutation{{key: key, delete: true}}})
}

// BatchSet applies every mutation in docs atomically. Mutations are
// staged in key order so the affected-key set applyBatch builds from
// them is deterministic across runs, matching spec.md §4.6's "events
// for one commit are published in key order."
func (e *Engine) BatchSet(docs map[string]Value) error {
	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := writeBatch{mutations: make([]Mutation, 0, len(docs))}
	for _, k := range keys {
		b.mutations = append(b.mutations, Mutation{key: k, doc: docs[k]})
	}
	return e.applyBatch(b)
}

// Transaction applies a mixed list of sets and deletes atomically, in
// the order given, per spec.md §4.5's "transaction" operation.
func (e *Engine) Transaction(muts []Mutation) error {
	return e.applyBatch(writeBatch{mutations: muts})
}

func SetMutation(key string, doc Value) Mutation { return Mutation{key: key, doc: doc} }
func DeleteMutation(key string) Mutation         { return Mutation{key: key, delete: true} }

func (e *Engine) applyBatch(b writeBatch) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	tx, err := e.store.Begin(true)
	if err != nil {
		return errf(KindTransientStorage, err, "begin write tx")
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	docs := tx.Bucket(bucketDocs)
	fieldIdx := tx.Bucket(bucketFidx)
	geoIdx := tx.Bucket(bucketGidx)

	affected := make(map[string]struct{}, len(b.mutations))
	for _, m := range b.mutations {
		prev, err := loadDoc(docs, m.key)
		if err != nil {
			return err
		}
		prevFields, prevGeos := indexEntries(prev)

		if m.delete {
			if prev.Kind != KNull || hasDoc(docs, m.key) {
				if err := docs.Delete(docKey(m.key)); err != nil {
					return errf(KindFatalStorage, err, "delete doc %q", m.key)
				}
			}
			if err := applyIndexDiff(fieldIdx, geoIdx, m.key, prevFields, nil, prevGeos, nil); err != nil {
				return err
			}
			affected[m.key] = struct{}{}
			continue
		}

		encoded, err := EncodeDocument(m.doc)
		if err != nil {
			return errKeyf(KindMalformed, m.key, err, "encode document")
		}
		if err := docs.Put(docKey(m.key), encoded); err != nil {
			return errf(KindFatalStorage, err, "put doc %q", m.key)
		}
		nextFields, nextGeos := indexEntries(m.doc)
		if err := applyIndexDiff(fieldIdx, geoIdx, m.key, prevFields, nextFields, prevGeos, nextGeos); err != nil {
			return err
		}
		affected[m.key] = struct{}{}
	}

	if err := tx.Commit(); err != nil {
		return errf(KindTransientStorage, err, "commit write tx")
	}
	committed = true
	e.WriteCount.Add(uint64(len(b.mutations)))

	// One event per distinct affected key, in key order, per
	// spec.md §4.6 — a commit that mutates the same key twice (e.g.
	// set then delete within one Transaction) still publishes a
	// single event for it.
	keys := make([]string, 0, len(affected))
	for k := range affected {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	events := make([]ChangeEvent, len(keys))
	for i, k := range keys {
		events[i] = ChangeEvent{Key: k}
	}
	e.hub.Publish(events)
	return nil
}

func hasDoc(docs storage.Bucket, key string) bool {
	if docs == nil {
		return false
	}
	return docs.Get(docKey(key)) != nil
}

func loadDoc(docs storage.Bucket, key string) (Value, error) {
	if docs == nil {
		return Null(), nil
	}
	raw := docs.Get(docKey(key))
	if raw == nil {
		return Null(), nil
	}
	v, err := DecodeDocument(raw)
	if err != nil {
		return Null(), errKeyf(KindFatalStorage, key, err, "decode existing document")
	}
	return v, nil
}

func applyIndexDiff(fieldIdx, geoIdx storage.Bucket, key string, prevF, nextF []FieldEntry, prevG, nextG []GeoEntry) error {
	fadd, frem := diffFieldEntries(prevF, nextF)
	for _, e := range frem {
		if err := fieldIdx.Delete(fieldIndexKey(e.Path, TypeOf(e.Leaf), EncodeSortable(e.Leaf), key)); err != nil {
			return errf(KindFatalStorage, err, "remove field index entry")
		}
	}
	for _, e := range fadd {
		if err := fieldIdx.Put(fieldIndexKey(e.Path, TypeOf(e.Leaf), EncodeSortable(e.Leaf), key), []byte{}); err != nil {
			return errf(KindFatalStorage, err, "add field index entry")
		}
	}
	gadd, grem := diffGeoEntries(prevG, nextG)
	for _, e := range grem {
		if err := geoIdx.Delete(geoIndexKey(e.Path, e.Cell, key)); err != nil {
			return errf(KindFatalStorage, err, "remove geo index entry")
		}
	}
	for _, e := range gadd {
		if err := geoIdx.Put(geoIndexKey(e.Path, e.Cell, key), []byte{}); err != nil {
			return errf(KindFatalStorage, err, "add geo index entry")
		}
	}
	return nil
}

// Get returns the document stored at key, or KindNotFound if absent.
func (e *Engine) Get(key string) (Value, error) {
	tx, err := e.store.Begin(false)
	if err != nil {
		return Null(), errf(KindTransientStorage, err, "begin read tx")
	}
	defer tx.Rollback()
	docs := tx.Bucket(bucketDocs)
	raw := docs.Get(docKey(key))
	if raw == nil {
		return Null(), errKeyf(KindNotFound, key, nil, "document not found")
	}
	e.ReadCount.Add(1)
	v, err := DecodeDocument(raw)
	if err != nil {
		return Null(), errKeyf(KindFatalStorage, key, err, "decode document")
	}
	return v, nil
}
