package docdb

import "encoding/binary"

// Bucket names, one per keyspace partition (spec.md §4.1's "d/", "i/"
// and "g/" prefixes become separate storage.Storage buckets instead of
// a shared-namespace prefix, since the storage layer already gives us
// bucket isolation for free).
const (
	bucketDocs = "docs"
	bucketFidx = "fidx"
	bucketGidx = "gidx"
)

const sep = 0x00

// docKey is the identity encoding for the main store: the user key
// itself, verbatim.
func docKey(key string) []byte { return []byte(key) }

// fieldIndexPrefix returns the sub-tree prefix for one (path, type).
func fieldIndexPrefix(path string, typ LeafType) []byte {
	buf := make([]byte, 0, len(path)+2)
	buf = append(buf, path...)
	buf = append(buf, sep, byte(typ))
	return buf
}

// fieldIndexPathPrefix returns the sub-tree prefix for every type
// under one path, used by Ne's "universe of keys under this path" scan.
func fieldIndexPathPrefix(path string) []byte {
	buf := make([]byte, 0, len(path)+1)
	buf = append(buf, path...)
	buf = append(buf, sep)
	return buf
}

// fieldIndexLeafPrefix returns the exact-match scan prefix for one
// (path, type, leaf): every key under it references a document whose
// leaf at path equals that value.
func fieldIndexLeafPrefix(path string, typ LeafType, leafBytes []byte) []byte {
	buf := fieldIndexPrefix(path, typ)
	buf = append(buf, leafBytes...)
	buf = append(buf, sep)
	return buf
}

// fieldIndexKey returns the full field-index key for one document.
func fieldIndexKey(path string, typ LeafType, leafBytes []byte, key string) []byte {
	buf := fieldIndexLeafPrefix(path, typ, leafBytes)
	buf = append(buf, key...)
	return buf
}

// fieldIndexBound returns prefix+leafBytes with no trailing separator,
// used as an exclusive range bound (everything with this exact leaf
// sorts strictly after it, since the real keys all add a separator
// byte after the leaf).
func fieldIndexBound(path string, typ LeafType, leafBytes []byte) []byte {
	buf := fieldIndexPrefix(path, typ)
	buf = append(buf, leafBytes...)
	return buf
}

// fieldIndexBoundPastLeaf returns prefix+leafBytes+0x01, a bound that
// sorts strictly after every key with this exact leaf (their next byte
// is always the 0x00 separator) but before any key with a greater leaf.
func fieldIndexBoundPastLeaf(path string, typ LeafType, leafBytes []byte) []byte {
	buf := fieldIndexBound(path, typ, leafBytes)
	buf = append(buf, 0x01)
	return buf
}

// splitFieldIndexKey extracts the trailing document key from a
// field-index key, given the leaf-prefix byte length that produced it.
func splitFieldIndexKey(fullKey []byte, leafPrefixLen int) string {
	return string(fullKey[leafPrefixLen:])
}

func cellBytes(cell uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, cell)
	return buf
}

// geoIndexPathPrefix returns the sub-tree prefix for every cell under
// one geo-indexed path.
func geoIndexPathPrefix(path string) []byte {
	buf := make([]byte, 0, len(path)+1)
	buf = append(buf, path...)
	buf = append(buf, sep)
	return buf
}

// geoIndexKey returns the full geo-index key for one document.
func geoIndexKey(path string, cell uint64, key string) []byte {
	buf := geoIndexPathPrefix(path)
	buf = append(buf, cellBytes(cell)...)
	buf = append(buf, sep)
	buf = append(buf, key...)
	return buf
}

// geoIndexCellBounds returns the [lower, upper] key bounds that cover
// every document whose cell falls in [lowCell, highCell] for one path.
func geoIndexCellBounds(path string, lowCell, highCell uint64) (lower, upper []byte) {
	prefix := geoIndexPathPrefix(path)
	lower = append(append([]byte{}, prefix...), cellBytes(lowCell)...)
	upper = append(append([]byte{}, prefix...), cellBytes(highCell)...)
	upper = append(upper, 0xFF)
	return lower, upper
}
