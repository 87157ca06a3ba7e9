package docdb

import "strings"

// Project builds the output document for a list of dotted projection
// paths (spec.md §4.3). An empty list means "full document." A path
// whose parent resolves to an array projects the trailing field out of
// every element instead (supplemented from original_source's
// apply_projection, which falls back exactly this way when the direct
// lookup misses).
func Project(doc Value, paths []string) Value {
	if len(paths) == 0 {
		return doc
	}
	out := Obj()
	for _, path := range paths {
		if v, ok := getByPath(doc, path); ok {
			insertByPath(&out, strings.Split(path, "."), v)
			continue
		}
		segs := strings.Split(path, ".")
		if len(segs) < 2 {
			continue
		}
		parentPath := strings.Join(segs[:len(segs)-1], ".")
		lastSeg := segs[len(segs)-1]
		parentVal, ok := getByPath(doc, parentPath)
		if !ok || parentVal.Kind != KArray {
			continue
		}
		var projected []Value
		for _, elem := range parentVal.Arr {
			if fv, ok := elem.Field(lastSeg); ok {
				projected = append(projected, fv)
			}
		}
		if len(projected) > 0 {
			insertByPath(&out, segs[:len(segs)-1], Arr(projected...))
		}
	}
	return out
}

// getByPath resolves a dotted path via plain object descent only
// (spec.md's "numeric segments do not index arrays" rule applies here
// too): hitting an array before the path is exhausted is a miss, which
// is exactly the signal Project uses to try the array-parent fallback.
func getByPath(v Value, path string) (Value, bool) {
	if path == "" {
		return v, true
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		if cur.Kind != KObject {
			return Value{}, false
		}
		fv, ok := cur.Field(seg)
		if !ok {
			return Value{}, false
		}
		cur = fv
	}
	return cur, true
}

func insertByPath(dst *Value, segs []string, val Value) {
	if len(segs) == 0 {
		return
	}
	if len(segs) == 1 {
		setField(dst, segs[0], val)
		return
	}
	child := getOrCreateObjField(dst, segs[0])
	insertByPath(child, segs[1:], val)
}

func setField(obj *Value, key string, val Value) {
	for i := range obj.Obj {
		if obj.Obj[i].Key == key {
			obj.Obj[i].Value = val
			return
		}
	}
	obj.Obj = append(obj.Obj, Field{Key: key, Value: val})
}

func getOrCreateObjField(obj *Value, key string) *Value {
	for i := range obj.Obj {
		if obj.Obj[i].Key == key {
			return &obj.Obj[i].Value
		}
	}
	obj.Obj = append(obj.Obj, Field{Key: key, Value: Obj()})
	return &obj.Obj[len(obj.Obj)-1].Value
}
