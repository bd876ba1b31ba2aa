package domain

import (
	"encoding/json"
	"fmt"
)

// MetaKind identifies the variant held by a MetaValue.
type MetaKind int

// Metafield value kinds.
const (
	MetaNull MetaKind = iota
	MetaString
	MetaNumber
	MetaBool
	MetaList
	MetaMap
)

// MetaValue is a tagged variant for open-ended metafield values. It round-trips
// through JSON without collapsing everything into interface{} at use sites.
type MetaValue struct {
	kind MetaKind
	str  string
	num  float64
	b    bool
	list []MetaValue
	m    map[string]MetaValue
}

// Metafields is an open-ended attribute bag keyed by metafield name.
type Metafields map[string]MetaValue

// String constructors for each variant.

// MetaStr wraps a string value.
func MetaStr(s string) MetaValue { return MetaValue{kind: MetaString, str: s} }

// MetaNum wraps a numeric value.
func MetaNum(f float64) MetaValue { return MetaValue{kind: MetaNumber, num: f} }

// MetaBoolVal wraps a boolean value.
func MetaBoolVal(b bool) MetaValue { return MetaValue{kind: MetaBool, b: b} }

// Kind reports which variant the value holds.
func (v MetaValue) Kind() MetaKind { return v.kind }

// Str returns the string variant and whether the value holds one.
func (v MetaValue) Str() (string, bool) { return v.str, v.kind == MetaString }

// Num returns the numeric variant and whether the value holds one.
func (v MetaValue) Num() (float64, bool) { return v.num, v.kind == MetaNumber }

// Bool returns the boolean variant and whether the value holds one.
func (v MetaValue) Bool() (bool, bool) { return v.b, v.kind == MetaBool }

// List returns the list variant and whether the value holds one.
func (v MetaValue) List() ([]MetaValue, bool) { return v.list, v.kind == MetaList }

// Map returns the map variant and whether the value holds one.
func (v MetaValue) Map() (map[string]MetaValue, bool) { return v.m, v.kind == MetaMap }

// MarshalJSON encodes the active variant as plain JSON.
func (v MetaValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case MetaString:
		return json.Marshal(v.str)
	case MetaNumber:
		return json.Marshal(v.num)
	case MetaBool:
		return json.Marshal(v.b)
	case MetaList:
		return json.Marshal(v.list)
	case MetaMap:
		return json.Marshal(v.m)
	case MetaNull:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("metafield: unknown kind %d", v.kind)
	}
}

// UnmarshalJSON decodes arbitrary JSON into the matching variant.
func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("metafield: %w", err)
	}

	decoded, err := metaFromAny(raw)
	if err != nil {
		return err
	}

	*v = decoded

	return nil
}

func metaFromAny(raw any) (MetaValue, error) {
	switch t := raw.(type) {
	case nil:
		return MetaValue{kind: MetaNull}, nil
	case string:
		return MetaStr(t), nil
	case float64:
		return MetaNum(t), nil
	case bool:
		return MetaBoolVal(t), nil
	case []any:
		list := make([]MetaValue, 0, len(t))
		for _, item := range t {
			mv, err := metaFromAny(item)
			if err != nil {
				return MetaValue{}, err
			}
			list = append(list, mv)
		}
		return MetaValue{kind: MetaList, list: list}, nil
	case map[string]any:
		m := make(map[string]MetaValue, len(t))
		for k, item := range t {
			mv, err := metaFromAny(item)
			if err != nil {
				return MetaValue{}, err
			}
			m[k] = mv
		}
		return MetaValue{kind: MetaMap, m: m}, nil
	default:
		return MetaValue{}, fmt.Errorf("metafield: unsupported value type %T", raw)
	}
}
