package storage

import "bytes"

// RawRange defines a range of byte strings within a bucket. The
// constructors use mnemonics: O means open, I means inclusive, E means
// exclusive; the first letter is for the lower bound, the second for
// the upper bound. Grounded on the teacher's scan.go.
type RawRange struct {
	Prefix   []byte
	Lower    []byte
	Upper    []byte
	LowerInc bool
	UpperInc bool
	Reverse  bool
}

func RawOO() RawRange            { return RawRange{} }
func RawIO(l []byte) RawRange    { return RawRange{Lower: l, LowerInc: true} }
func RawEO(l []byte) RawRange    { return RawRange{Lower: l, LowerInc: false} }
func RawOI(u []byte) RawRange    { return RawRange{Upper: u, UpperInc: true} }
func RawOE(u []byte) RawRange    { return RawRange{Upper: u, UpperInc: false} }
func RawII(l, u []byte) RawRange { return RawRange{Lower: l, Upper: u, LowerInc: true, UpperInc: true} }
func RawIE(l, u []byte) RawRange {
	return RawRange{Lower: l, Upper: u, LowerInc: true, UpperInc: false}
}
func RawEI(l, u []byte) RawRange {
	return RawRange{Lower: l, Upper: u, LowerInc: false, UpperInc: true}
}
func RawEE(l, u []byte) RawRange {
	return RawRange{Lower: l, Upper: u, LowerInc: false, UpperInc: false}
}
func RawPrefix(p []byte) RawRange                { return RawRange{Prefix: p} }
func (r RawRange) Prefixed(p []byte) RawRange    { r.Prefix = p; return r }
func (r RawRange) Reversed() RawRange            { r.Reverse = true; return r }

func (r *RawRange) start(c Cursor) ([]byte, []byte) {
	var k, v []byte
	var skipInitial bool
	if r.Reverse {
		upper := r.Upper
		if upper == nil && r.Prefix != nil {
			upper = r.Prefix
		}
		if upper != nil {
			skipInitial = r.Upper != nil && !r.UpperInc
			k, v = seekLast(c, upper)
		} else {
			k, v = c.Last()
		}
	} else {
		lower := r.Lower
		if lower == nil && r.Prefix != nil {
			lower = r.Prefix
		}
		if lower != nil {
			skipInitial = r.Lower != nil && !r.LowerInc
			k, v = c.Seek(lower)
			if skipInitial && !bytes.Equal(k, lower) {
				skipInitial = false
			}
		} else {
			k, v = c.First()
		}
	}
	if k != nil && r.match(k) {
		if skipInitial {
			return r.next(c)
		}
		return k, v
	}
	return nil, nil
}

func (r *RawRange) next(c Cursor) ([]byte, []byte) {
	var k, v []byte
	if r.Reverse {
		k, v = c.Prev()
	} else {
		k, v = c.Next()
	}
	if k != nil && r.match(k) {
		return k, v
	}
	return nil, nil
}

func (r *RawRange) match(k []byte) bool {
	if r.Prefix != nil && !bytes.HasPrefix(k, r.Prefix) {
		return false
	}
	if r.Reverse {
		if lower := r.Lower; lower != nil {
			cmp := bytes.Compare(k, lower)
			if cmp < 0 || (cmp == 0 && !r.LowerInc) {
				return false
			}
		}
	} else {
		if upper := r.Upper; upper != nil {
			cmp := bytes.Compare(k, upper)
			if cmp > 0 || (cmp == 0 && !r.UpperInc) {
				return false
			}
		}
	}
	return true
}

// NewCursor returns a forward- or reverse-iterating cursor over the range.
func (r RawRange) NewCursor(c Cursor) *RawRangeCursor {
	return &RawRangeCursor{rang: r, c: c}
}

// RawRangeCursor walks a RawRange over a storage.Cursor.
type RawRangeCursor struct {
	rang RawRange
	c    Cursor
	k, v []byte
	init bool
}

func (rc *RawRangeCursor) Next() bool {
	if rc.init {
		rc.k, rc.v = rc.rang.next(rc.c)
	} else {
		rc.init = true
		rc.k, rc.v = rc.rang.start(rc.c)
	}
	return rc.k != nil
}

func (rc *RawRangeCursor) Key() []byte   { return rc.k }
func (rc *RawRangeCursor) Value() []byte { return rc.v }
