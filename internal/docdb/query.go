package docdb

// LitType tags a query literal with its comparison type, spec.md §3's
// "Typed literal."
type LitType uint8

const (
	LitString LitType = 1
	LitNumber LitType = 2
	LitBool   LitType = 3
)

func (t LitType) leafType() LeafType {
	switch t {
	case LitString:
		return LeafString
	case LitNumber:
		return LeafNumber
	case LitBool:
		return LeafBool
	default:
		return 0
	}
}

// matches reports whether leaf's runtime type agrees with t (spec.md
// §3: "mismatched types cause the predicate to be false ... never an
// error").
func (t LitType) matches(leaf Value) bool {
	switch t {
	case LitString:
		return leaf.Kind == KString
	case LitNumber:
		return leaf.Kind == KNumber
	case LitBool:
		return leaf.Kind == KBool
	default:
		return false
	}
}

// NodeKind identifies a Query AST variant (spec.md §4.3's table).
type NodeKind uint8

const (
	NodeEq NodeKind = iota + 1
	NodeNe
	NodeGt
	NodeLt
	NodeGte
	NodeLte
	NodeIncludes
	NodeAnd
	NodeOr
	NodeNot
	NodeGeoWithinRadius
	NodeGeoInBox
)

// Query is one node of the boolean/comparison/geo predicate AST.
// Leaf-comparison nodes carry Path/Lit/Type; And/Or carry A and B,
// Not carries only A; geo nodes carry GeoField and the coordinate
// fields.
type Query struct {
	Kind NodeKind

	Path string
	Lit  Value
	Type LitType

	A *Query
	B *Query

	GeoField  string
	Lat       float64
	Lon       float64
	Radius    float64
	MinLat    float64
	MinLon    float64
	MaxLat    float64
	MaxLon    float64
}

func Eq(path string, lit Value, t LitType) *Query       { return &Query{Kind: NodeEq, Path: path, Lit: lit, Type: t} }
func Ne(path string, lit Value, t LitType) *Query       { return &Query{Kind: NodeNe, Path: path, Lit: lit, Type: t} }
func Gt(path string, lit Value, t LitType) *Query       { return &Query{Kind: NodeGt, Path: path, Lit: lit, Type: t} }
func Lt(path string, lit Value, t LitType) *Query       { return &Query{Kind: NodeLt, Path: path, Lit: lit, Type: t} }
func Gte(path string, lit Value, t LitType) *Query      { return &Query{Kind: NodeGte, Path: path, Lit: lit, Type: t} }
func Lte(path string, lit Value, t LitType) *Query      { return &Query{Kind: NodeLte, Path: path, Lit: lit, Type: t} }
func Includes(path string, lit Value, t LitType) *Query { return &Query{Kind: NodeIncludes, Path: path, Lit: lit, Type: t} }
func And(a, b *Query) *Query                             { return &Query{Kind: NodeAnd, A: a, B: b} }
func Or(a, b *Query) *Query                              { return &Query{Kind: NodeOr, A: a, B: b} }
func Not(a *Query) *Query                                { return &Query{Kind: NodeNot, A: a} }

func GeoWithinRadius(field string, lat, lon, radius float64) *Query {
	return &Query{Kind: NodeGeoWithinRadius, GeoField: field, Lat: lat, Lon: lon, Radius: radius}
}

func GeoInBox(field string, minLat, minLon, maxLat, maxLon float64) *Query {
	return &Query{Kind: NodeGeoInBox, GeoField: field, MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
}
