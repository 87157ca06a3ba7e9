package docdb

import (
	"context"
	"sort"
)

// candidateBatchSize bounds how many candidates run between
// cancellation checks, per spec.md §5: "reads check cancellation
// between candidate batches."
const candidateBatchSize = 256

// QueryRequest bundles one read request: the predicate (q may encode
// an AST node or a geo node), pagination, and a projection list, per
// spec.md §4.3: "planning narrows candidates, verification re-checks
// the full AST, pagination applies to the verified set, and projection
// applies last."
type QueryRequest struct {
	Query      *Query
	Projection []string
	Offset     int
	Limit      int // 0 means unbounded
}

// QueryResult is one page of matching documents, each already projected.
type QueryResult struct {
	Key string
	Doc Value
}

// Query runs q end to end: plan, verify, paginate, project. ctx is
// checked between candidate batches; a cancelled context aborts the
// scan and returns a KindCancelled error with no partial result.
func (e *Engine) Query(ctx context.Context, req QueryRequest) ([]QueryResult, error) {
	tx, err := e.store.Begin(false)
	if err != nil {
		return nil, errf(KindTransientStorage, err, "begin read tx")
	}
	defer tx.Rollback()

	candidates := planKeys(tx, req.Query)
	docs := tx.Bucket(bucketDocs)

	var matched []QueryResult
	if candidates == nil {
		c := docs.Cursor()
		n := 0
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if n%candidateBatchSize == 0 {
				if err := ctx.Err(); err != nil {
					return nil, errf(KindCancelled, err, "query cancelled")
				}
			}
			n++
			doc, err := DecodeDocument(v)
			if err != nil {
				return nil, errKeyf(KindFatalStorage, string(k), err, "decode document")
			}
			if Eval(req.Query, doc) {
				matched = append(matched, QueryResult{Key: string(k), Doc: doc})
			}
		}
	} else {
		sort.Strings(candidates)
		for i, key := range candidates {
			if i%candidateBatchSize == 0 {
				if err := ctx.Err(); err != nil {
					return nil, errf(KindCancelled, err, "query cancelled")
				}
			}
			raw := docs.Get(docKey(key))
			if raw == nil {
				continue
			}
			doc, err := DecodeDocument(raw)
			if err != nil {
				return nil, errKeyf(KindFatalStorage, key, err, "decode document")
			}
			if Eval(req.Query, doc) {
				matched = append(matched, QueryResult{Key: key, Doc: doc})
			}
		}
	}

	page := paginate(matched, req.Offset, req.Limit)
	for i := range page {
		page[i].Doc = Project(page[i].Doc, req.Projection)
	}
	e.ReadCount.Add(1)
	return page, nil
}

// paginate applies offset then limit to the verified, key-sorted result
// set, per spec.md §4.3: "offset and limit are applied after filtering
// and verification but before projection... offset beyond the result
// size yields empty; limit past end yields the remaining."
func paginate(results []QueryResult, offset, limit int) []QueryResult {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return nil
	}
	rest := results[offset:]
	if limit > 0 && len(rest) > limit {
		rest = rest[:limit]
	}
	out := make([]QueryResult, len(rest))
	copy(out, rest)
	return out
}
