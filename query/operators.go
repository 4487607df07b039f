package query

import (
	"regexp"
	"strings"

	"github.com/mvndaai/filemeta/record"
)

// applyOp evaluates one operator clause against a field's current value.
// present is false when the field is absent from its section entirely; per
// spec.md §4.2 tie-breaks, every operator except $exists:false treats an
// absent field as "no match".
func applyOp(op Op, present bool, fv record.Value, arg record.Value) bool {
	if op == OpExists {
		want := arg.Kind == record.KindBool && arg.B
		return present == want
	}
	if !present {
		return false
	}

	switch op {
	case OpEq:
		return fv.Equal(arg)
	case OpNe:
		return !fv.Equal(arg)
	case OpGt:
		return compareNumeric(fv, arg, func(a, b float64) bool { return a > b })
	case OpGte:
		return compareNumeric(fv, arg, func(a, b float64) bool { return a >= b })
	case OpLt:
		return compareNumeric(fv, arg, func(a, b float64) bool { return a < b })
	case OpLte:
		return compareNumeric(fv, arg, func(a, b float64) bool { return a <= b })
	case OpIn:
		return membership(fv, arg, true)
	case OpNin:
		return membership(fv, arg, false)
	case OpContains:
		return contains(fv, arg)
	case OpStartsWith:
		return fv.Kind == record.KindString && arg.Kind == record.KindString && strings.HasPrefix(fv.Str, arg.Str)
	case OpEndsWith:
		return fv.Kind == record.KindString && arg.Kind == record.KindString && strings.HasSuffix(fv.Str, arg.Str)
	case OpRegex:
		return matchRegex(fv, arg)
	case OpType:
		return arg.Kind == record.KindString && fv.Kind.String() == arg.Str
	default:
		return false
	}
}

func compareNumeric(fv, arg record.Value, cmp func(a, b float64) bool) bool {
	a, ok := fv.AsFloat64()
	if !ok {
		return false
	}
	b, ok := arg.AsFloat64()
	if !ok {
		return false
	}
	return cmp(a, b)
}

// membership implements $in (want=true) and $nin (want=false). A
// malformed argument (not a list) degrades to "no match" for $in and for
// $nin alike, per the blanket "missing/malformed predicate is false" rule.
func membership(fv, arg record.Value, want bool) bool {
	if arg.Kind != record.KindList {
		return false
	}
	found := false
	for _, e := range arg.List {
		if fv.Equal(e) {
			found = true
			break
		}
	}
	return found == want
}

// contains implements $contains: substring for strings, element
// membership for lists, key-or-value membership for maps.
func contains(fv, arg record.Value) bool {
	switch fv.Kind {
	case record.KindString:
		return arg.Kind == record.KindString && strings.Contains(fv.Str, arg.Str)
	case record.KindList:
		for _, e := range fv.List {
			if e.Equal(arg) {
				return true
			}
		}
		return false
	case record.KindMap:
		if arg.Kind == record.KindString {
			if _, ok := fv.Map[arg.Str]; ok {
				return true
			}
		}
		for _, v := range fv.Map {
			if v.Equal(arg) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// matchRegex implements $regex. An invalid pattern or a non-string field
// degrades to "no match"; it never returns an error, per spec.md §4.2.
func matchRegex(fv, arg record.Value) bool {
	if fv.Kind != record.KindString || arg.Kind != record.KindString {
		return false
	}
	re, err := regexp.Compile(arg.Str)
	if err != nil {
		return false
	}
	return re.MatchString(fv.Str)
}
