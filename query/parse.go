package query

import (
	"fmt"
	"strings"

	"github.com/mvndaai/filemeta/record"
)

// Parse compiles a query document into a Node tree. The top level behaves
// like an implicit $and over its entries, matching the left-to-right
// intersective fold described in spec.md §4.2.
func Parse(q map[string]any) (Node, error) {
	return parseMap(q)
}

func parseMap(m map[string]any) (Node, error) {
	children := make([]Node, 0, len(m))
	for key, val := range m {
		switch key {
		case "$and":
			subs, err := parseClauseList(val)
			if err != nil {
				return Node{}, fmt.Errorf("query: $and: %w", err)
			}
			children = append(children, Node{Kind: NodeAnd, Children: subs})
		case "$or":
			subs, err := parseClauseList(val)
			if err != nil {
				return Node{}, fmt.Errorf("query: $or: %w", err)
			}
			children = append(children, Node{Kind: NodeOr, Children: subs})
		case "$not":
			sub, ok := val.(map[string]any)
			if !ok {
				return Node{}, fmt.Errorf("query: $not requires a mapping: %w", ErrMalformed)
			}
			n, err := parseMap(sub)
			if err != nil {
				return Node{}, err
			}
			children = append(children, Node{Kind: NodeNot, Child: &n})
		default:
			if strings.HasPrefix(key, "$") {
				return Node{}, fmt.Errorf("query: unknown top-level operator %q: %w", key, ErrMalformed)
			}
			node, err := parseFieldEntry(key, val)
			if err != nil {
				return Node{}, err
			}
			children = append(children, node)
		}
	}
	return Node{Kind: NodeAnd, Children: children}, nil
}

// parseClauseList parses the list-of-mappings argument $and/$or require.
func parseClauseList(val any) ([]Node, error) {
	list, ok := val.([]any)
	if !ok {
		return nil, ErrMalformed
	}
	out := make([]Node, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, ErrMalformed
		}
		n, err := parseMap(m)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// parseFieldEntry parses one "<key>": <value> entry into a NodeField,
// splitting the key into (section, field) and deciding whether value is
// an operator expression or a plain equality, per spec.md §4.2.
func parseFieldEntry(key string, val any) (Node, error) {
	section, field := splitKey(key)

	if m, ok := val.(map[string]any); ok && len(m) > 0 && allKeysDollar(m) {
		ops := make([]OpClause, 0, len(m))
		for opKey, opVal := range m {
			op, ok := opNames[opKey]
			if !ok {
				return Node{}, fmt.Errorf("query: unknown operator %q: %w", opKey, ErrMalformed)
			}
			ops = append(ops, OpClause{Op: op, Value: record.FromAny(opVal)})
		}
		return Node{Kind: NodeField, Section: section, Field: field, Ops: ops}, nil
	}

	return Node{
		Kind:    NodeField,
		Section: section,
		Field:   field,
		Ops:     []OpClause{{Op: OpEq, Value: record.FromAny(val)}},
	}, nil
}

// splitKey implements the "<key>" vs "section.field" rule: a bare name is
// user.<name>; a dotted name splits on the first dot.
func splitKey(key string) (record.Section, string) {
	if i := strings.IndexByte(key, '.'); i >= 0 {
		return record.Section(key[:i]), key[i+1:]
	}
	return record.SectionUser, key
}

func allKeysDollar(m map[string]any) bool {
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}
