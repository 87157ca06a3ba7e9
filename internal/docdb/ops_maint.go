package docdb

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ClearPrefix atomically deletes every document whose key starts with
// prefix, along with their index entries, and returns the deleted
// count, per spec.md §4.5.
func (e *Engine) ClearPrefix(prefix string) (int, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	tx, err := e.store.Begin(true)
	if err != nil {
		return 0, errf(KindTransientStorage, err, "begin write tx")
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

	var keys []string
	c := docs.Cursor()
	pb := []byte(prefix)
	for k, _ := c.Seek(pb); k != nil && hasBytesPrefix(k, pb); k, _ = c.Next() {
		keys = append(keys, string(k))
	}

	var events []ChangeEvent
	for _, key := range keys {
		prev, err := loadDoc(docs, key)
		if err != nil {
			return 0, err
		}
		prevFields, prevGeos := indexEntries(prev)
		if err := docs.Delete(docKey(key)); err != nil {
			return 0, errf(KindFatalStorage, err, "delete doc %q", key)
		}
		if err := applyIndexDiff(fieldIdx, geoIdx, key, prevFields, nil, prevGeos, nil); err != nil {
			return 0, err
		}
		events = append(events, ChangeEvent{Key: key})
	}

	if err := tx.Commit(); err != nil {
		return 0, errf(KindTransientStorage, err, "commit write tx")
	}
	committed = true
	e.WriteCount.Add(uint64(len(keys)))
	e.hub.Publish(events)
	return len(keys), nil
}

func hasBytesPrefix(k, prefix []byte) bool {
	if len(prefix) == 0 {
		return true
	}
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// DropDatabase atomically clears the entire keyspace and returns the
// prior document count, per DESIGN.md's Open Question decision #2.
func (e *Engine) DropDatabase() (int, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	tx, err := e.store.Begin(true)
	if err != nil {
		return 0, errf(KindTransientStorage, err, "begin write tx")
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	docs := tx.Bucket(bucketDocs)
	count := docs.KeyCount()

	var keys []string
	c := docs.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, string(k))
	}

	for _, name := range []string{bucketDocs, bucketFidx, bucketGidx} {
		if err := tx.DeleteBucket(name); err != nil {
			return 0, errf(KindFatalStorage, err, "drop bucket %q", name)
		}
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return 0, errf(KindFatalStorage, err, "recreate bucket %q", name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errf(KindTransientStorage, err, "commit drop tx")
	}
	committed = true

	var events []ChangeEvent
	for _, k := range keys {
		events = append(events, ChangeEvent{Key: k})
	}
	e.hub.Publish(events)
	return count, nil
}

// ExportItem is one {key,value} pair in an export snapshot.
type ExportItem struct {
	Key   string
	Value Value
}

// Export snapshots the entire mapping in key order, per spec.md §4.5.
func (e *Engine) Export() ([]ExportItem, error) {
	tx, err := e.store.Begin(false)
	if err != nil {
		return nil, errf(KindTransientStorage, err, "begin read tx")
	}
	defer tx.Rollback()

	docs := tx.Bucket(bucketDocs)
	var out []ExportItem
	c := docs.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		doc, err := DecodeDocument(v)
		if err != nil {
			return nil, errKeyf(KindFatalStorage, string(k), err, "decode document")
		}
		out = append(out, ExportItem{Key: string(k), Value: doc})
	}
	return out, nil
}

// Import bulk-upserts already-decoded items atomically, per spec.md
// §4.5.
func (e *Engine) Import(items []ExportItem) error {
	b := writeBatch{mutations: make([]Mutation, 0, len(items))}
	for _, it := range items {
		b.mutations = append(b.mutations, Mutation{key: it.Key, doc: it.Value})
	}
	return e.applyBatch(b)
}

// ImportJSON parses a JSON-encoded snapshot array and bulk-upserts it
// atomically, mirroring original_source's `import_data(db, data: &str)`
// (lib.rs:1000), which always takes the wire string rather than a
// decoded slice — the same {key,value} shape Export/EncodeJSONDocuments
// produces, so a previously exported snapshot round-trips byte-for-byte
// (the SUPPLEMENTED FEATURES section of SPEC_FULL.md).
func (e *Engine) ImportJSON(data string) error {
	items, err := DecodeJSONDocuments([]byte(data))
	if err != nil {
		return err
	}
	return e.Import(items)
}

// DecodeJSONDocuments parses the JSON array EncodeJSONDocuments
// produces back into ExportItems.
func DecodeJSONDocuments(data []byte) ([]ExportItem, error) {
	var raw []struct {
		Key   string `json:"key"`
		Value Value  `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, NewMalformed(fmt.Sprintf("invalid import data: %v", err))
	}
	out := make([]ExportItem, 0, len(raw))
	for i, it := range raw {
		if it.Key == "" {
			return nil, NewMalformed(fmt.Sprintf("items[%d]: key is required", i))
		}
		out = append(out, ExportItem{Key: it.Key, Value: it.Value})
	}
	return out, nil
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys(m map[string]Value) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
