package docdb

import "strings"

// Extract evaluates a dotted field path against a document, returning
// every leaf value reached. Grounded on spec.md §4.2 and §9's "dotted
// path field access -> explicit tree walk": each segment selects an
// object field, or, over an array, maps the remaining (unconsumed)
// path across every element. A missing segment yields no leaves, never
// an error.
func Extract(doc Value, path string) []Value {
	if path == "" {
		return []Value{doc}
	}
	return extractSegments(doc, strings.Split(path, "."))
}

func extractSegments(v Value, segs []string) []Value {
	if len(segs) == 0 {
		return []Value{v}
	}
	switch v.Kind {
	case KObject:
		fv, ok := v.Field(segs[0])
		if !ok {
			return nil
		}
		return extractSegments(fv, segs[1:])
	case KArray:
		var out []Value
		for _, e := range v.Arr {
			out = append(out, extractSegments(e, segs)...)
		}
		return out
	default:
		return nil
	}
}

func isScalarLeaf(v Value) bool {
	return v.Kind == KBool || v.Kind == KNumber || v.Kind == KString
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}
