package docdb

import "strconv"

// FieldEntry is one (path, typed leaf) pair discovered in a document,
// grounded on original_source's index_value_recursive.
type FieldEntry struct {
	Path string
	Leaf Value
}

// GeoEntry is one (path, cell) pair discovered in a document.
type GeoEntry struct {
	Path string
	Cell uint64
}

// indexEntries walks doc and returns every field-index and geo-index
// entry it contributes. Every scalar leaf reachable from doc is
// indexed against its own path (spec.md §3: "for every (field-path,
// typed-leaf-value) pair observed in any document"); array elements
// also contribute an entry against the array's own path so Includes
// can be served by a direct index probe, matching original_source's
// "index primitive values within the array against the array's path."
func indexEntries(doc Value) ([]FieldEntry, []GeoEntry) {
	var fields []FieldEntry
	var geos []GeoEntry
	walkIndex("", doc, &fields, &geos)
	return fields, geos
}

func walkIndex(path string, v Value, fields *[]FieldEntry, geos *[]GeoEntry) {
	switch v.Kind {
	case KObject:
		if path != "" {
			if lat, lon, ok := v.AsGeoPoint(); ok {
				*geos = append(*geos, GeoEntry{Path: path, Cell: GeoCell(lat, lon)})
			}
		}
		for _, f := range v.Obj {
			walkIndex(joinPath(path, f.Key), f.Value, fields, geos)
		}
	case KArray:
		for i, e := range v.Arr {
			walkIndex(joinPath(path, strconv.Itoa(i)), e, fields, geos)
			if isScalarLeaf(e) {
				*fields = append(*fields, FieldEntry{Path: path, Leaf: e})
			}
		}
	default:
		if isScalarLeaf(v) {
			*fields = append(*fields, FieldEntry{Path: path, Leaf: v})
		}
	}
}

// diffEntries returns the entries present in "next" but not in "prev"
// (adds) and the entries present in "prev" but not in "next" (removes),
// by exact (path, type, encoded leaf) identity.
func diffFieldEntries(prev, next []FieldEntry) (adds, removes []FieldEntry) {
	prevSet := map[string]FieldEntry{}
	for _, e := range prev {
		prevSet[fieldEntryIdentity(e)] = e
	}
	nextSet := map[string]FieldEntry{}
	for _, e := range next {
		id := fieldEntryIdentity(e)
		nextSet[id] = e
		if _, ok := prevSet[id]; !ok {
			adds = append(adds, e)
		}
	}
	for id, e := range prevSet {
		if _, ok := nextSet[id]; !ok {
			removes = append(removes, e)
		}
	}
	return adds, removes
}

func fieldEntryIdentity(e FieldEntry) string {
	return e.Path + "\x00" + string(byte(TypeOf(e.Leaf))) + "\x00" + string(EncodeSortable(e.Leaf))
}

func diffGeoEntries(prev, next []GeoEntry) (adds, removes []GeoEntry) {
	prevSet := map[string]GeoEntry{}
	for _, e := range prev {
		prevSet[geoEntryIdentity(e)] = e
	}
	nextSet := map[string]GeoEntry{}
	for _, e := range next {
		id := geoEntryIdentity(e)
		nextSet[id] = e
		if _, ok := prevSet[id]; !ok {
			adds = append(adds, e)
		}
	}
	for id, e := range prevSet {
		if _, ok := nextSet[id]; !ok {
			removes = append(removes, e)
		}
	}
	return adds, removes
}

func geoEntryIdentity(e GeoEntry) string {
	return e.Path + "\x00" + string(cellBytes(e.Cell))
}
