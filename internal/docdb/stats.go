package docdb

// Stats reports document and index sizes, adapted from the teacher's
// monitoring.go TableStats down to this engine's three buckets.
type Stats struct {
	Documents      int
	FieldIndexRows int
	GeoIndexRows   int

	Reads  uint64
	Writes uint64
}

func (e *Engine) Stats() (Stats, error) {
	tx, err := e.store.Begin(false)
	if err != nil {
		return Stats{}, errf(KindTransientStorage, err, "begin read tx")
	}
	defer tx.Rollback()

	return Stats{
		Documents:      tx.Bucket(bucketDocs).KeyCount(),
		FieldIndexRows: tx.Bucket(bucketFidx).KeyCount(),
		GeoIndexRows:   tx.Bucket(bucketGidx).KeyCount(),
		Reads:          e.ReadCount.Load(),
		Writes:         e.WriteCount.Load(),
	}, nil
}
