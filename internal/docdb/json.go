package docdb

import (
	"bytes"
	"fmt"
	"strconv"
)

// ParseJSON parses a JSON document into a Value, preserving object
// field order. encoding/json's map-based Unmarshal cannot do this
// (map iteration order is random), so this is a small hand-written
// recursive-descent parser grounded on spec.md §9's "dotted-path field
// access -> explicit tree walk" note applied to parsing itself.
func ParseJSON(data []byte) (Value, error) {
	p := &jsonParser{data: data}
	p.skipSpace()
	v, err := p.parseValue()
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos != len(p.data) {
		return Value{}, errf(KindMalformed, nil, "trailing data after JSON value at offset %d", p.pos)
	}
	return v, nil
}

type jsonParser struct {
	data []byte
	pos  int
}

func (p *jsonParser) skipSpace() {
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) errf(format string, args ...any) error {
	return errf(KindMalformed, nil, format+" at offset %d", append(args, p.pos)...)
}

func (p *jsonParser) parseValue() (Value, error) {
	if p.pos >= len(p.data) {
		return Value{}, p.errf("unexpected end of JSON")
	}
	switch c := p.data[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return Value{}, err
		}
		return Str(s), nil
	case c == 't':
		return p.parseLiteral("true", Bool(true))
	case c == 'f':
		return p.parseLiteral("false", Bool(false))
	case c == 'n':
		return p.parseLiteral("null", Null())
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return Value{}, p.errf("unexpected character %q", c)
	}
}

func (p *jsonParser) parseLiteral(lit string, v Value) (Value, error) {
	if p.pos+len(lit) > len(p.data) || string(p.data[p.pos:p.pos+len(lit)]) != lit {
		return Value{}, p.errf("invalid literal, expected %q", lit)
	}
	p.pos += len(lit)
	return v, nil
}

func (p *jsonParser) parseObject() (Value, error) {
	p.pos++ // {
	var fields []Field
	p.skipSpace()
	if p.pos < len(p.data) && p.data[p.pos] == '}' {
		p.pos++
		return Obj(fields...), nil
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.data) || p.data[p.pos] != '"' {
			return Value{}, p.errf("expected object key")
		}
		key, err := p.parseString()
		if err != nil {
			return Value{}, err
		}
		p.skipSpace()
		if p.pos >= len(p.data) || p.data[p.pos] != ':' {
			return Value{}, p.errf("expected ':' after object key")
		}
		p.pos++
		p.skipSpace()
		val, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		fields = append(fields, Field{Key: key, Value: val})
		p.skipSpace()
		if p.pos >= len(p.data) {
			return Value{}, p.errf("unterminated object")
		}
		switch p.data[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return Obj(fields...), nil
		default:
			return Value{}, p.errf("expected ',' or '}' in object")
		}
	}
}

func (p *jsonParser) parseArray() (Value, error) {
	p.pos++ // [
	var items []Value
	p.skipSpace()
	if p.pos < len(p.data) && p.data[p.pos] == ']' {
		p.pos++
		return Arr(items...), nil
	}
	for {
		p.skipSpace()
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
		p.skipSpace()
		if p.pos >= len(p.data) {
			return Value{}, p.errf("unterminated array")
		}
		switch p.data[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return Arr(items...), nil
		default:
			return Value{}, p.errf("expected ',' or ']' in array")
		}
	}
}

func (p *jsonParser) parseString() (string, error) {
	p.pos++ // opening quote
	var buf bytes.Buffer
	for {
		if p.pos >= len(p.data) {
			return "", p.errf("unterminated string")
		}
		c := p.data[p.pos]
		if c == '"' {
			p.pos++
			return buf.String(), nil
		}
		if c == '\\' {
			p.pos++
			if p.pos >= len(p.data) {
				return "", p.errf("unterminated escape")
			}
			switch esc := p.data[p.pos]; esc {
			case '"', '\\', '/':
				buf.WriteByte(esc)
			case 'n':
				buf.WriteByte('\n')
			case 't':
				buf.WriteByte('\t')
			case 'r':
				buf.WriteByte('\r')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case 'u':
				if p.pos+4 >= len(p.data) {
					return "", p.errf("truncated unicode escape")
				}
				code, err := strconv.ParseUint(string(p.data[p.pos+1:p.pos+5]), 16, 32)
				if err != nil {
					return "", p.errf("invalid unicode escape")
				}
				buf.WriteRune(rune(code))
				p.pos += 4
			default:
				return "", p.errf("invalid escape %q", esc)
			}
			p.pos++
			continue
		}
		buf.WriteByte(c)
		p.pos++
	}
}

func (p *jsonParser) parseNumber() (Value, error) {
	start := p.pos
	if p.data[p.pos] == '-' {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
			isFloat = true
			p.pos++
			continue
		}
		break
	}
	lit := string(p.data[start:p.pos])
	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return Value{}, p.errf("invalid number %q", lit)
		}
		return Float(f), nil
	}
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return Int(i), nil
	}
	if u, err := strconv.ParseUint(lit, 10, 64); err == nil {
		return Uint(u), nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, p.errf("invalid number %q", lit)
	}
	return Float(f), nil
}

// AppendJSON appends v's JSON encoding to buf.
func AppendJSON(buf []byte, v Value) []byte {
	switch v.Kind {
	case KNull:
		return append(buf, "null"...)
	case KBool:
		if v.Bool {
			return append(buf, "true"...)
		}
		return append(buf, "false"...)
	case KNumber:
		switch v.NumK {
		case NumInt:
			return strconv.AppendInt(buf, v.Int, 10)
		case NumUint:
			return strconv.AppendUint(buf, v.Uint, 10)
		default:
			return strconv.AppendFloat(buf, v.Float, 'g', -1, 64)
		}
	case KString:
		return appendJSONString(buf, v.Str)
	case KArray:
		buf = append(buf, '[')
		for i, e := range v.Arr {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = AppendJSON(buf, e)
		}
		return append(buf, ']')
	case KObject:
		buf = append(buf, '{')
		for i, f := range v.Obj {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendJSONString(buf, f.Key)
			buf = append(buf, ':')
			buf = AppendJSON(buf, f.Value)
		}
		return append(buf, '}')
	default:
		panic(fmt.Sprintf("docdb: invalid Value kind %d", v.Kind))
	}
}

func appendJSONString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for _, r := range s {
		switch r {
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\t':
			buf = append(buf, '\\', 't')
		case '\r':
			buf = append(buf, '\\', 'r')
		default:
			if r < 0x20 {
				buf = append(buf, '\\', 'u')
				buf = append(buf, fmt.Sprintf("%04x", r)...)
			} else {
				buf = append(buf, string(r)...)
			}
		}
	}
	return append(buf, '"')
}

// MarshalJSON returns v's JSON encoding (Value implements json.Marshaler
// so it nests correctly inside HTTP response structs built with
// encoding/json).
func (v Value) MarshalJSON() ([]byte, error) {
	return AppendJSON(nil, v), nil
}

// UnmarshalJSON implements json.Unmarshaler so Value can be embedded in
// encoding/json request structs while still preserving object order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
