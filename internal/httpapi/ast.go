package httpapi

import (
	"encoding/json"
	"fmt"

	"github.com/hollowmap/docdb/internal/docdb"
)

// astNode is the wire shape of one Query AST node: a single-key object
// whose key names the node kind and whose value carries its arguments,
// matching spec.md §8's worked example
// `{"Eq":["profile.settings...enabled", true, "Bool"]}`. Boolean nodes
// nest further astNode values; geo nodes use a named-field object
// instead of a positional array, since their arguments don't share one
// literal+type shape.
type astNode map[string]json.RawMessage

func decodeAST(raw json.RawMessage) (*docdb.Query, error) {
	var node astNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("invalid ast node: %w", err)
	}
	if len(node) != 1 {
		return nil, fmt.Errorf("ast node must have exactly one key, got %d", len(node))
	}
	for kind, args := range node {
		return decodeASTKind(kind, args)
	}
	return nil, fmt.Errorf("empty ast node")
}

func decodeASTKind(kind string, args json.RawMessage) (*docdb.Query, error) {
	switch kind {
	case "Eq", "Ne", "Gt", "Lt", "Gte", "Lte", "Includes":
		return decodeLeafNode(kind, args)
	case "And", "Or":
		return decodeBinaryBoolNode(kind, args)
	case "Not":
		return decodeNotNode(args)
	case "GeoWithinRadius":
		return decodeGeoRadiusNode(args)
	case "GeoInBox":
		return decodeGeoBoxNode(args)
	default:
		return nil, fmt.Errorf("unknown ast node kind %q", kind)
	}
}

func decodeLeafNode(kind string, args json.RawMessage) (*docdb.Query, error) {
	var tuple [3]json.RawMessage
	if err := json.Unmarshal(args, &tuple); err != nil {
		return nil, fmt.Errorf("%s: expected [path, literal, type]: %w", kind, err)
	}
	var path, typeName string
	if err := json.Unmarshal(tuple[0], &path); err != nil {
		return nil, fmt.Errorf("%s: path: %w", kind, err)
	}
	if err := json.Unmarshal(tuple[2], &typeName); err != nil {
		return nil, fmt.Errorf("%s: type: %w", kind, err)
	}
	litType, err := litTypeFromName(typeName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	lit, err := literalFromRaw(tuple[1], litType)
	if err != nil {
		return nil, fmt.Errorf("%s: literal: %w", kind, err)
	}
	switch kind {
	case "Eq":
		return docdb.Eq(path, lit, litType), nil
	case "Ne":
		return docdb.Ne(path, lit, litType), nil
	case "Gt":
		return docdb.Gt(path, lit, litType), nil
	case "Lt":
		return docdb.Lt(path, lit, litType), nil
	case "Gte":
		return docdb.Gte(path, lit, litType), nil
	case "Lte":
		return docdb.Lte(path, lit, litType), nil
	default: // Includes
		return docdb.Includes(path, lit, litType), nil
	}
}

func decodeBinaryBoolNode(kind string, args json.RawMessage) (*docdb.Query, error) {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(args, &tuple); err != nil {
		return nil, fmt.Errorf("%s: expected [a, b]: %w", kind, err)
	}
	a, err := decodeAST(tuple[0])
	if err != nil {
		return nil, err
	}
	b, err := decodeAST(tuple[1])
	if err != nil {
		return nil, err
	}
	if kind == "And" {
		return docdb.And(a, b), nil
	}
	return docdb.Or(a, b), nil
}

func decodeNotNode(args json.RawMessage) (*docdb.Query, error) {
	var tuple [1]json.RawMessage
	if err := json.Unmarshal(args, &tuple); err != nil {
		return nil, fmt.Errorf("Not: expected [a]: %w", err)
	}
	a, err := decodeAST(tuple[0])
	if err != nil {
		return nil, err
	}
	return docdb.Not(a), nil
}

type geoRadiusArgs struct {
	Field  string  `json:"field"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Radius float64 `json:"radius"`
}

func decodeGeoRadiusNode(args json.RawMessage) (*docdb.Query, error) {
	var g geoRadiusArgs
	if err := json.Unmarshal(args, &g); err != nil {
		return nil, fmt.Errorf("GeoWithinRadius: %w", err)
	}
	return docdb.GeoWithinRadius(g.Field, g.Lat, g.Lon, g.Radius), nil
}

type geoBoxArgs struct {
	Field  string  `json:"field"`
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

func decodeGeoBoxNode(args json.RawMessage) (*docdb.Query, error) {
	var g geoBoxArgs
	if err := json.Unmarshal(args, &g); err != nil {
		return nil, fmt.Errorf("GeoInBox: %w", err)
	}
	return docdb.GeoInBox(g.Field, g.MinLat, g.MinLon, g.MaxLat, g.MaxLon), nil
}

func litTypeFromName(name string) (docdb.LitType, error) {
	switch name {
	case "String":
		return docdb.LitString, nil
	case "Number":
		return docdb.LitNumber, nil
	case "Bool":
		return docdb.LitBool, nil
	default:
		return 0, fmt.Errorf("unknown literal type %q", name)
	}
}

func literalFromRaw(raw json.RawMessage, t docdb.LitType) (docdb.Value, error) {
	switch t {
	case docdb.LitString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return docdb.Value{}, err
		}
		return docdb.Str(s), nil
	case docdb.LitBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return docdb.Value{}, err
		}
		return docdb.Bool(b), nil
	default: // LitNumber
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return docdb.Value{}, err
		}
		return docdb.Float(f), nil
	}
}
