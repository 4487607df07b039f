package query

import (
	"github.com/mvndaai/filemeta/record"
	"github.com/mvndaai/filemeta/registry"
)

// pathSet is the engine's working-set representation throughout
// evaluation: a plain set of paths, intersected/unioned/subtracted as the
// Node tree is folded, per spec.md §4.2's evaluation algorithm.
type pathSet map[string]struct{}

func newPathSet(paths []string) pathSet {
	s := make(pathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

func (s pathSet) clone() pathSet {
	out := make(pathSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

func intersect(a, b pathSet) pathSet {
	out := make(pathSet)
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	for p := range small {
		if _, ok := big[p]; ok {
			out[p] = struct{}{}
		}
	}
	return out
}

func union(a, b pathSet) pathSet {
	out := make(pathSet, len(a)+len(b))
	for p := range a {
		out[p] = struct{}{}
	}
	for p := range b {
		out[p] = struct{}{}
	}
	return out
}

func subtract(a, b pathSet) pathSet {
	out := make(pathSet, len(a))
	for p := range a {
		if _, ok := b[p]; !ok {
			out[p] = struct{}{}
		}
	}
	return out
}

// Run evaluates a compiled query against reg's current contents and
// returns the matching paths. It starts from reg.AllPaths() as the
// universe, per spec.md §4.2.
func Run(reg *registry.Registry, n Node) map[string]struct{} {
	universe := newPathSet(reg.AllPaths())
	result := evalNode(reg, n, universe)
	return map[string]struct{}(result)
}

func evalNode(reg *registry.Registry, n Node, working pathSet) pathSet {
	switch n.Kind {
	case NodeAnd:
		result := working
		for _, child := range n.Children {
			result = evalNode(reg, child, result)
			if len(result) == 0 {
				break
			}
		}
		return result
	case NodeOr:
		out := make(pathSet)
		for _, child := range n.Children {
			out = union(out, evalNode(reg, child, working))
		}
		return out
	case NodeNot:
		excluded := evalNode(reg, *n.Child, working)
		return subtract(working, excluded)
	case NodeField:
		return evalField(reg, n, working)
	default:
		return working
	}
}

// evalField evaluates one field entry's operator clauses (an implicit AND
// over them) against the working set, taking the index fast path for a
// lone scalar equality clause and falling back to a per-path scan
// otherwise, per spec.md §4.2 items 2-3.
func evalField(reg *registry.Registry, n Node, working pathSet) pathSet {
	if len(n.Ops) == 1 && n.Ops[0].Op == OpEq && n.Ops[0].Value.Indexable() {
		return evalIndexedEquality(reg, n.Section, n.Field, n.Ops[0].Value, working)
	}

	out := make(pathSet)
	for path := range working {
		if matchesAllOps(reg, path, n.Section, n.Field, n.Ops) {
			out[path] = struct{}{}
		}
	}
	return out
}

// evalIndexedEquality resolves Open Question 4 at the evaluation layer: a
// field the registry has indexed at least once is trusted even when its
// current match set is empty (no scan fallback); a field that has never
// been indexed falls back to a full scan of the working set.
func evalIndexedEquality(reg *registry.Registry, section record.Section, field string, value record.Value, working pathSet) pathSet {
	if reg.HasIndexedField(section, field) {
		indexed := reg.FindByField(section, field, value)
		return intersect(working, pathSet(indexed))
	}

	out := make(pathSet)
	for path := range working {
		fv, ok := fieldValue(reg, path, section, field)
		if ok && fv.Equal(value) {
			out[path] = struct{}{}
		}
	}
	return out
}

func matchesAllOps(reg *registry.Registry, path string, section record.Section, field string, ops []OpClause) bool {
	fv, present := fieldValue(reg, path, section, field)
	for _, clause := range ops {
		if !applyOp(clause.Op, present, fv, clause.Value) {
			return false
		}
	}
	return true
}

// fieldValue resolves the current value at path's (section, field),
// returning ok=false when the record, section, or field is absent.
func fieldValue(reg *registry.Registry, path string, section record.Section, field string) (record.Value, bool) {
	rec, ok := reg.Get(path)
	if !ok {
		return record.Null, false
	}
	sm, ok := rec.SectionMap(section)
	if !ok {
		return record.Null, false
	}
	v, ok := sm[field]
	if !ok {
		return record.Null, false
	}
	return v, true
}
