package docdb

import (
	"github.com/hollowmap/docdb/internal/storage"
)

// planKeys returns the candidate set of document keys q could possibly
// match, using whatever indexes apply, per spec.md §4.3's planning
// table. The result is always a superset of the true answer: eval.go's
// Eval re-verifies every candidate against the full document before it
// is returned to the caller. nil means "no index applies, scan every
// document."
func planKeys(tx storage.Tx, q *Query) []string {
	switch q.Kind {
	case NodeEq:
		return scanLeafExact(tx, q.Path, q.Type.leafType(), q.Lit)
	case NodeNe:
		return scanPathComplement(tx, q.Path, q.Type.leafType(), q.Lit)
	case NodeGt, NodeLt, NodeGte, NodeLte:
		return scanLeafRange(tx, q)
	case NodeIncludes:
		return scanLeafExact(tx, q.Path, q.Type.leafType(), q.Lit)
	case NodeAnd:
		left := planKeys(tx, q.A)
		right := planKeys(tx, q.B)
		return intersectKeys(left, right)
	case NodeOr:
		left := planKeys(tx, q.A)
		right := planKeys(tx, q.B)
		if left == nil || right == nil {
			// either side needs a full scan, so the union does too
			return nil
		}
		return unionKeys(left, right)
	case NodeNot:
		// De Morgan gives no safe narrowing for a bare negation: the
		// complement of any indexed candidate set still requires a
		// full scan to be sure, so fall back to evaluate-only.
		return nil
	case NodeGeoWithinRadius:
		return scanGeoRadius(tx, q.GeoField, q.Lat, q.Lon, q.Radius)
	case NodeGeoInBox:
		return scanGeoBox(tx, q.GeoField, q.MinLat, q.MinLon)
	default:
		return nil
	}
}

func fidx(tx storage.Tx) storage.Bucket { return tx.Bucket(bucketFidx) }
func gidx(tx storage.Tx) storage.Bucket { return tx.Bucket(bucketGidx) }

func scanLeafExact(tx storage.Tx, path string, lt LeafType, lit Value) []string {
	b := fidx(tx)
	if b == nil {
		return []string{}
	}
	leafBytes := EncodeSortable(lit)
	prefix := fieldIndexLeafPrefix(path, lt, leafBytes)
	return collectKeysByPrefix(b, prefix, len(prefix))
}

// scanPathComplement implements Ne's indexed path per DESIGN.md: the
// universe of keys under this path, across every type, minus the keys
// that exactly equal lit (spec.md §4.3's "complement against the
// universe of keys with this path").
func scanPathComplement(tx storage.Tx, path string, lt LeafType, lit Value) []string {
	b := fidx(tx)
	if b == nil {
		return []string{}
	}
	universePrefix := fieldIndexPathPrefix(path)
	universe := map[string]struct{}{}
	c := storage.RawPrefix(universePrefix).NewCursor(b.Cursor())
	for c.Next() {
		rest := c.Key()[len(universePrefix)+1:] // skip path+sep+type byte
		idx := indexSepAfterLeaf(rest)
		if idx < 0 {
			continue
		}
		universe[string(rest[idx+1:])] = struct{}{}
	}
	leafBytes := EncodeSortable(lit)
	excludePrefix := fieldIndexLeafPrefix(path, lt, leafBytes)
	ec := storage.RawPrefix(excludePrefix).NewCursor(b.Cursor())
	for ec.Next() {
		delete(universe, string(ec.Key()[len(excludePrefix):]))
	}
	out := make([]string, 0, len(universe))
	for k := range universe {
		out = append(out, k)
	}
	return out
}

func scanLeafRange(tx storage.Tx, q *Query) []string {
	b := fidx(tx)
	if b == nil {
		return []string{}
	}
	lt := q.Type.leafType()
	leafBytes := EncodeSortable(q.Lit)
	typePrefix := fieldIndexPrefix(q.Path, lt)
	bound := fieldIndexBound(q.Path, lt, leafBytes)
	boundPast := fieldIndexBoundPastLeaf(q.Path, lt, leafBytes)

	var rng storage.RawRange
	switch q.Kind {
	case NodeGt:
		rng = storage.RawEO(nil).Prefixed(typePrefix)
		rng.Lower, rng.LowerInc = boundPast, true
	case NodeGte:
		rng = storage.RawEO(nil).Prefixed(typePrefix)
		rng.Lower, rng.LowerInc = bound, true
	case NodeLt:
		rng = storage.RawOE(nil).Prefixed(typePrefix)
		rng.Upper, rng.UpperInc = bound, false
	case NodeLte:
		rng = storage.RawOE(nil).Prefixed(typePrefix)
		rng.Upper, rng.UpperInc = boundPast, false
	}
	var out []string
	c := rng.NewCursor(b.Cursor())
	for c.Next() {
		k := c.Key()
		rest := k[len(typePrefix):]
		idx := indexSepAfterLeaf(rest)
		if idx < 0 {
			continue
		}
		out = append(out, string(rest[idx+1:]))
	}
	return out
}

// indexSepAfterLeaf finds the separator byte that fieldIndexLeafPrefix
// appends right after the leaf encoding. Bool and number leaves are
// fixed width (1 and 8 bytes); string leaves are the remaining bytes up
// to the last 0x00, since a string leaf can itself contain no control
// bytes once JSON-decoded except when the user literally put a NUL in
// it, an accepted corpus-consistent simplification (see DESIGN.md).
func indexSepAfterLeaf(rest []byte) int {
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == sep {
			return i
		}
	}
	return -1
}

func collectKeysByPrefix(b storage.Bucket, prefix []byte, skip int) []string {
	var out []string
	c := storage.RawPrefix(prefix).NewCursor(b.Cursor())
	for c.Next() {
		out = append(out, string(c.Key()[skip:]))
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func scanGeoRadius(tx storage.Tx, field string, lat, lon, radius float64) []string {
	b := gidx(tx)
	if b == nil {
		return []string{}
	}
	seen := map[string]struct{}{}
	var out []string
	for _, rng := range RadiusCellRanges(lat, lon, radius) {
		lower, upper := geoIndexCellBounds(field, rng[0], rng[1])
		prefix := geoIndexPathPrefix(field)
		c := storage.RawII(lower, upper).Prefixed(prefix).NewCursor(b.Cursor())
		for c.Next() {
			key := splitGeoIndexKey(c.Key(), len(prefix))
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				out = append(out, key)
			}
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// scanGeoBox deliberately does no cell narrowing, exactly mirroring
// original_source's query_in_box: it scans the entire field's geo-index
// sub-tree and leaves exact filtering to Eval. There is no general
// "minimal covering range" rule for an arbitrary box the way there is
// for a radius (see DESIGN.md).
func scanGeoBox(tx storage.Tx, field string, _minLat, _minLon float64) []string {
	b := gidx(tx)
	if b == nil {
		return []string{}
	}
	prefix := geoIndexPathPrefix(field)
	var out []string
	c := storage.RawPrefix(prefix).NewCursor(b.Cursor())
	for c.Next() {
		out = append(out, splitGeoIndexKey(c.Key(), len(prefix)))
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func splitGeoIndexKey(fullKey []byte, pathPrefixLen int) string {
	// fullKey = pathPrefix + 8 cell bytes + sep + docKey
	rest := fullKey[pathPrefixLen+8+1:]
	return string(rest)
}

func intersectKeys(a, b []string) []string {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	set := map[string]struct{}{}
	for _, k := range a {
		set[k] = struct{}{}
	}
	var out []string
	for _, k := range b {
		if _, ok := set[k]; ok {
			out = append(out, k)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func unionKeys(a, b []string) []string {
	set := map[string]struct{}{}
	var out []string
	for _, k := range a {
		if _, ok := set[k]; !ok {
			set[k] = struct{}{}
			out = append(out, k)
		}
	}
	for _, k := range b {
		if _, ok := set[k]; !ok {
			set[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
