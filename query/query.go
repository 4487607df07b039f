// Package query parses and evaluates the metadata search grammar described
// in spec.md §4.2: a map-shaped document of field tests and logical
// combinators, compiled once into a Node tree and then folded against a
// registry.Registry.
package query

import (
	"errors"

	"github.com/mvndaai/filemeta/record"
)

// ErrMalformed is returned when a query document is structurally invalid:
// a non-mapping where a mapping is expected, $and/$or given something
// other than a list of mappings, or an unknown "$" operator name (at the
// top level or inside a field's operator expression). Every other kind
// of bad input (unknown field, wrong operator arity, a non-numeric value
// under $gt, ...)
// degrades to "no match" rather than an error, per spec.md §4.2.
var ErrMalformed = errors.New("query: malformed query")

// Op identifies one of the fourteen comparison operators from spec.md
// §4.2's operator table.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNin
	OpContains
	OpStartsWith
	OpEndsWith
	OpRegex
	OpExists
	OpType
)

// opNames maps the wire-level "$xxx" operator keys to their Op constant.
var opNames = map[string]Op{
	"$eq":         OpEq,
	"$ne":         OpNe,
	"$gt":         OpGt,
	"$gte":        OpGte,
	"$lt":         OpLt,
	"$lte":        OpLte,
	"$in":         OpIn,
	"$nin":        OpNin,
	"$contains":   OpContains,
	"$startswith": OpStartsWith,
	"$endswith":   OpEndsWith,
	"$regex":      OpRegex,
	"$exists":     OpExists,
	"$type":       OpType,
}

// OpClause is one operator test within a field entry. A field entry may
// carry several clauses (a "bag of operators"), which are implicitly
// ANDed together, per spec.md §4.2 item 3.
type OpClause struct {
	Op    Op
	Value record.Value
}

// NodeKind tags the variant a Node holds, following the same sum-type
// shape the record package uses for values -- one enum, one switch in
// eval.go, instead of a parallel interface hierarchy per node type.
type NodeKind int

const (
	NodeAnd NodeKind = iota
	NodeOr
	NodeNot
	NodeField
)

// Node is one compiled query node. Exactly the fields relevant to Kind
// are meaningful:
//   - NodeAnd/NodeOr: Children
//   - NodeNot: Child
//   - NodeField: Section, Field, Ops
type Node struct {
	Kind NodeKind

	Children []Node
	Child    *Node

	Section record.Section
	Field   string
	Ops     []OpClause
}
