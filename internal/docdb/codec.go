package docdb

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Document codec: Value <-> msgpack bytes, the on-disk representation
// under the "d/" keyspace partition (spec.md §4.1/§4.2). msgpack is the
// teacher's own wire format (schemastate.go); here it encodes an
// explicit tag byte per Value instead of relying on msgpack's native
// map type, because a native map loses the field order spec.md §3
// requires preserving.
const (
	tagNull   uint8 = 0
	tagBool   uint8 = 1
	tagInt    uint8 = 2
	tagUint   uint8 = 3
	tagFloat  uint8 = 4
	tagString uint8 = 5
	tagArray  uint8 = 6
	tagObject uint8 = 7
)

// EncodeMsgpack implements msgpack.CustomEncoder.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.Kind {
	case KNull:
		return enc.EncodeUint8(tagNull)
	case KBool:
		if err := enc.EncodeUint8(tagBool); err != nil {
			return err
		}
		return enc.EncodeBool(v.Bool)
	case KNumber:
		switch v.NumK {
		case NumInt:
			if err := enc.EncodeUint8(tagInt); err != nil {
				return err
			}
			return enc.EncodeInt64(v.Int)
		case NumUint:
			if err := enc.EncodeUint8(tagUint); err != nil {
				return err
			}
			return enc.EncodeUint64(v.Uint)
		default:
			if err := enc.EncodeUint8(tagFloat); err != nil {
				return err
			}
			return enc.EncodeFloat64(v.Float)
		}
	case KString:
		if err := enc.EncodeUint8(tagString); err != nil {
			return err
		}
		return enc.EncodeString(v.Str)
	case KArray:
		if err := enc.EncodeUint8(tagArray); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(v.Arr)); err != nil {
			return err
		}
		for _, e := range v.Arr {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	case KObject:
		if err := enc.EncodeUint8(tagObject); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(v.Obj)); err != nil {
			return err
		}
		for _, f := range v.Obj {
			if err := enc.EncodeString(f.Key); err != nil {
				return err
			}
			if err := enc.Encode(f.Value); err != nil {
				return err
			}
		}
		return nil
	default:
		return errf(KindFatalStorage, nil, "invalid Value kind %d", v.Kind)
	}
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	tag, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	switch tag {
	case tagNull:
		*v = Null()
		return nil
	case tagBool:
		b, err := dec.DecodeBool()
		if err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case tagInt:
		n, err := dec.DecodeInt64()
		if err != nil {
			return err
		}
		*v = Int(n)
		return nil
	case tagUint:
		n, err := dec.DecodeUint64()
		if err != nil {
			return err
		}
		*v = Uint(n)
		return nil
	case tagFloat:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return err
		}
		*v = Float(f)
		return nil
	case tagString:
		s, err := dec.DecodeString()
		if err != nil {
			return err
		}
		*v = Str(s)
		return nil
	case tagArray:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		arr := make([]Value, 0, max(n, 0))
		for i := 0; i < n; i++ {
			var e Value
			if err := dec.Decode(&e); err != nil {
				return err
			}
			arr = append(arr, e)
		}
		*v = Value{Kind: KArray, Arr: arr}
		return nil
	case tagObject:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		obj := make([]Field, 0, max(n, 0))
		for i := 0; i < n; i++ {
			key, err := dec.DecodeString()
			if err != nil {
				return err
			}
			var val Value
			if err := dec.Decode(&val); err != nil {
				return err
			}
			obj = append(obj, Field{Key: key, Value: val})
		}
		*v = Value{Kind: KObject, Obj: obj}
		return nil
	default:
		return errf(KindFatalStorage, nil, "unknown document tag byte %d", tag)
	}
}

// EncodeDocument serializes a document value for disk storage.
func EncodeDocument(v Value) ([]byte, error) {
	return msgpack.Marshal(v)
}

// DecodeDocument deserializes a document value read from disk.
func DecodeDocument(data []byte) (Value, error) {
	var v Value
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return Value{}, errf(KindFatalStorage, err, "corrupt document")
	}
	return v, nil
}
