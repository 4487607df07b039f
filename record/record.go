// Package record defines the metadata document attached to a single file
// path: its three sections (system, user, plugin) and the scalar/list/map
// value model that makes index-eligibility a type switch instead of a
// reflection call, per the spec's "Nested mapping storage" advisory.
package record

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind tags the dynamic type a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

// String returns the canonical type name used by the $type operator and by
// error messages. It matches the vocabulary a Go caller would expect
// (string/int/float/bool/null/list/map) rather than Python's type names.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the JSON-compatible value space filemeta
// stores and indexes. Exactly one of the typed fields is meaningful,
// selected by Kind.
type Value struct {
	Kind Kind

	Str  string
	I    int64
	F    float64
	B    bool
	List []Value
	Map  Map
}

// Null is the shared zero-ish representation of a JSON null value.
var Null = Value{Kind: KindNull}

func String(s string) Value  { return Value{Kind: KindString, Str: s} }
func Int(i int64) Value      { return Value{Kind: KindInt, I: i} }
func Float(f float64) Value  { return Value{Kind: KindFloat, F: f} }
func Bool(b bool) Value      { return Value{Kind: KindBool, B: b} }
func List(vs ...Value) Value { return Value{Kind: KindList, List: vs} }
func MapOf(m Map) Value      { return Value{Kind: KindMap, Map: m} }

// Indexable reports whether a value is eligible for the registry's inverted
// index: scalars only (string/int/float/bool/null) per spec.md invariant 4.
func (v Value) Indexable() bool {
	switch v.Kind {
	case KindString, KindInt, KindFloat, KindBool, KindNull:
		return true
	default:
		return false
	}
}

// Comparable is what the registry uses as an inverted-index bucket key: a
// Go value equal to another Comparable iff the underlying Values are
// equal by the spec's equality rules (no type coercion between kinds).
type Comparable struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// AsComparable converts an indexable Value into its bucket key. Calling it
// on a non-indexable Value panics; callers must check Indexable() first.
func (v Value) AsComparable() Comparable {
	if !v.Indexable() {
		panic("record: value is not indexable")
	}
	switch v.Kind {
	case KindString:
		return Comparable{kind: KindString, str: v.Str}
	case KindInt:
		return Comparable{kind: KindInt, num: float64(v.I)}
	case KindFloat:
		return Comparable{kind: KindFloat, num: v.F}
	case KindBool:
		return Comparable{kind: KindBool, b: v.B}
	default: // KindNull
		return Comparable{kind: KindNull}
	}
}

// Equal implements the spec's "no type coercion" equality: values of
// different kinds are never equal, even "3" vs 3.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.Str == other.Str
	case KindInt:
		return v.I == other.I
	case KindFloat:
		return v.F == other.F
	case KindBool:
		return v.B == other.B
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Map) != len(other.Map) {
			return false
		}
		for k, mv := range v.Map {
			ov, ok := other.Map[k]
			if !ok || !mv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// AsFloat64 returns the numeric value of v and whether v is numeric at all
// (int or float). Used by the $gt/$gte/$lt/$lte operators, which must fail
// silently (not raise) against non-numeric fields per spec.md §4.2.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.I), true
	case KindFloat:
		return v.F, true
	default:
		return 0, false
	}
}

// Map is a section's or nested object's field set.
type Map map[string]Value

// Clone returns a deep copy, used whenever the registry or manager must
// hand out a record without exposing internal storage by reference.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v.clone()
	}
	return out
}

func (v Value) clone() Value {
	switch v.Kind {
	case KindList:
		out := make([]Value, len(v.List))
		for i, e := range v.List {
			out[i] = e.clone()
		}
		return Value{Kind: KindList, List: out}
	case KindMap:
		return Value{Kind: KindMap, Map: v.Map.Clone()}
	default:
		return v
	}
}

// sortedKeys returns a Map's keys in sorted order, for deterministic JSON
// encoding independent of Go's randomized map iteration.
func (m Map) sortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON renders a Value as the JSON type it logically represents
// rather than as the {Kind, Str, I, ...} struct, so records serialize as
// plain JSON documents at the §6 wire boundary.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.Str)
	case KindInt:
		return json.Marshal(v.I)
	case KindFloat:
		return json.Marshal(v.F)
	case KindBool:
		return json.Marshal(v.B)
	case KindList:
		return json.Marshal(v.List)
	case KindMap:
		return json.Marshal(v.Map)
	default:
		return nil, fmt.Errorf("record: cannot marshal value of kind %v", v.Kind)
	}
}

// UnmarshalJSON reconstructs a Value, inferring Kind from the decoded
// number's value: a number with a whole value becomes KindInt (so 2.0 and
// 1e3 decode as ints), any other number becomes KindFloat.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// FromAny converts a decoded-JSON/interface{} tree (as produced by
// encoding/json, YAML decoders, or hand-built literals in tests) into a
// Value tree.
func FromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return Float(t)
	case []any:
		vs := make([]Value, len(t))
		for i, e := range t {
			vs[i] = FromAny(e)
		}
		return Value{Kind: KindList, List: vs}
	case map[string]any:
		m := make(Map, len(t))
		for k, e := range t {
			m[k] = FromAny(e)
		}
		return MapOf(m)
	case Value:
		return t
	default:
		return Null
	}
}

// MapFromAny converts a map[string]any (the shape callers naturally build
// query and patch documents in) into a record.Map.
func MapFromAny(raw map[string]any) Map {
	m := make(Map, len(raw))
	for k, v := range raw {
		m[k] = FromAny(v)
	}
	return m
}

func (m Map) MarshalJSON() ([]byte, error) {
	buf := []byte("{")
	for i, k := range m.sortedKeys() {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

func (m *Map) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = MapFromAny(raw)
	return nil
}

// Section names the three top-level record sections the registry indexes.
// Arbitrary extra top-level sections may exist on a Record but are stored
// only, never indexed, per spec.md §4.1.
type Section string

const (
	SectionSystem Section = "system"
	SectionUser   Section = "user"
	SectionPlugin Section = "plugin"
)

// Record is the complete metadata document for one normalized path.
type Record struct {
	System System `json:"system"`
	User   Map    `json:"user"`
	Plugin Map    `json:"plugin,omitempty"`
}

// Clone returns a deep copy of the record, used whenever registry or
// manager code must return a record without exposing its own storage.
func (r Record) Clone() Record {
	return Record{
		System: r.System,
		User:   r.User.Clone(),
		Plugin: r.Plugin.Clone(),
	}
}

// SectionMap returns the Map for a named section, including the System
// section reprojected as a Map so the query engine and registry indexer
// can treat all three sections uniformly. ok is false for unknown
// sections (extra top-level sections are not modeled as Go struct fields
// and are simply absent from a Record today).
func (r Record) SectionMap(s Section) (Map, bool) {
	switch s {
	case SectionSystem:
		return r.System.AsMap(), true
	case SectionUser:
		return r.User, true
	case SectionPlugin:
		return r.Plugin, true
	default:
		return nil, false
	}
}
