package docdb

import "strings"

// Eval evaluates q against doc directly, with no help from any index.
// This is both the verification step the planner re-runs against every
// candidate key (spec.md §4.3: "re-evaluated against the full AST ...
// before applying projection") and the sole evaluator for predicates
// the planner can't narrow with an index (Not, or any AST under one).
func Eval(q *Query, doc Value) bool {
	switch q.Kind {
	case NodeEq:
		for _, leaf := range Extract(doc, q.Path) {
			if q.Type.matches(leaf) && leaf.Equal(q.Lit) {
				return true
			}
		}
		return false
	case NodeNe:
		leaves := Extract(doc, q.Path)
		if len(leaves) == 0 {
			return false
		}
		for _, leaf := range leaves {
			if q.Type.matches(leaf) && leaf.Equal(q.Lit) {
				return false
			}
		}
		return true
	case NodeGt, NodeLt, NodeGte, NodeLte:
		for _, leaf := range Extract(doc, q.Path) {
			if !q.Type.matches(leaf) {
				continue
			}
			if compareOrdered(q.Kind, leaf, q.Lit) {
				return true
			}
		}
		return false
	case NodeIncludes:
		for _, leaf := range Extract(doc, q.Path) {
			if leaf.Kind != KArray {
				continue
			}
			for _, elem := range leaf.Arr {
				if q.Type.matches(elem) && elem.Equal(q.Lit) {
					return true
				}
			}
		}
		return false
	case NodeAnd:
		return Eval(q.A, doc) && Eval(q.B, doc)
	case NodeOr:
		return Eval(q.A, doc) || Eval(q.B, doc)
	case NodeNot:
		return !Eval(q.A, doc)
	case NodeGeoWithinRadius:
		for _, leaf := range Extract(doc, q.GeoField) {
			lat, lon, ok := leaf.AsGeoPoint()
			if !ok {
				continue
			}
			if HaversineMeters(lat, lon, q.Lat, q.Lon) <= q.Radius {
				return true
			}
		}
		return false
	case NodeGeoInBox:
		for _, leaf := range Extract(doc, q.GeoField) {
			lat, lon, ok := leaf.AsGeoPoint()
			if !ok {
				continue
			}
			if InBox(lat, lon, q.MinLat, q.MinLon, q.MaxLat, q.MaxLon) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func compareOrdered(kind NodeKind, leaf, lit Value) bool {
	if leaf.Kind == KString && lit.Kind == KString {
		cmp := strings.Compare(leaf.Str, lit.Str)
		return orderPasses(kind, cmp)
	}
	lf, ok1 := leaf.AsFloat64()
	tf, ok2 := lit.AsFloat64()
	if !ok1 || !ok2 {
		return false
	}
	var cmp int
	switch {
	case lf < tf:
		cmp = -1
	case lf > tf:
		cmp = 1
	default:
		cmp = 0
	}
	return orderPasses(kind, cmp)
}

func orderPasses(kind NodeKind, cmp int) bool {
	switch kind {
	case NodeGt:
		return cmp > 0
	case NodeLt:
		return cmp < 0
	case NodeGte:
		return cmp >= 0
	case NodeLte:
		return cmp <= 0
	default:
		return false
	}
}
