package storage

import "bytes"

// IncBytes increments data in place, treating it as a big-endian byte
// string, and reports whether it overflowed (all bytes were 0xFF, data
// is left unchanged). Callers use this to turn a prefix into a tight
// exclusive upper bound for a range scan.
func IncBytes(data []byte) bool {
	for i := len(data) - 1; i >= 0; i-- {
		if data[i] != 0xFF {
			data[i]++
			for j := i + 1; j < len(data); j++ {
				data[j] = 0
			}
			return true
		}
	}
	return false
}

// seekLast moves the cursor to the last key with the given prefix, or to
// the last key strictly before where that prefix would sort if none have
// it. Grounded on the teacher's boltSeekLast in util.go: seek past the
// last key sharing the prefix, then step back one.
func seekLast(c Cursor, prefix []byte) ([]byte, []byte) {
	k, _ := c.Seek(prefix)
	if k == nil {
		return c.Last()
	}
	for k != nil && bytes.HasPrefix(k, prefix) {
		k, _ = c.Next()
	}
	if k == nil {
		return c.Last()
	}
	return c.Prev()
}
