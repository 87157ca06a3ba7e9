package docdb

import (
	"encoding/binary"
	"math"
)

// Leaf type tags for the field index's "type" keyspace segment
// (spec.md §4.1: "i/<path>/<type>/<leaf>/<key>"). Grounded on the
// teacher's byte-tag-prefixed encoding style (encflat.go) and on
// original_source's encode_sorted_value/decode_sorted_value, which tag
// every sortable value the same way but don't bother making the bytes
// order-preserving across signed/unsigned/float — we do, since range
// queries (Gt/Lt) need it.
type LeafType uint8

const (
	LeafBool   LeafType = 1
	LeafNumber LeafType = 2
	LeafString LeafType = 3
)

// TypeOf returns the field-index LeafType for a scalar Value, or 0 if v
// isn't indexable (Null, Array, Object).
func TypeOf(v Value) LeafType {
	switch v.Kind {
	case KBool:
		return LeafBool
	case KNumber:
		return LeafNumber
	case KString:
		return LeafString
	default:
		return 0
	}
}

// EncodeSortable returns the order-preserving byte encoding of a scalar
// leaf used as the "leaf" component of a field-index key: for two
// leaves a, b of the same LeafType, bytes.Compare(EncodeSortable(a),
// EncodeSortable(b)) agrees with their natural order.
func EncodeSortable(v Value) []byte {
	switch v.Kind {
	case KBool:
		if v.Bool {
			return []byte{1}
		}
		return []byte{0}
	case KNumber:
		f, _ := v.AsFloat64()
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, orderPreservingFloatBits(f))
		return buf
	case KString:
		return []byte(v.Str)
	default:
		return nil
	}
}

// orderPreservingFloatBits maps a float64's bit pattern onto a uint64
// whose natural (unsigned, big-endian) order matches float order:
// flip the sign bit for non-negatives, flip every bit for negatives.
func orderPreservingFloatBits(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}
