package query_test

import (
	"testing"
	"time"

	"github.com/mvndaai/filemeta/query"
	"github.com/mvndaai/filemeta/record"
	"github.com/mvndaai/filemeta/registry"
)

func buildRegistry(t *testing.T, docs map[string]map[string]any) *registry.Registry {
	t.Helper()
	reg := registry.New()
	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	for path, user := range docs {
		reg.Add(path, record.Record{
			System: record.NewSystem(path, path, "", 0, now, now, now),
			User:   record.MapFromAny(user),
		})
	}
	return reg
}

func run(t *testing.T, reg *registry.Registry, q map[string]any) map[string]struct{} {
	t.Helper()
	node, err := query.Parse(q)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return query.Run(reg, node)
}

func TestScenarioContainsAndEquality(t *testing.T) {
	reg := buildRegistry(t, map[string]map[string]any{
		"/tmp/a.txt": {"tags": []any{"work", "important"}, "owner": "Alice"},
	})

	got := run(t, reg, map[string]any{"tags": map[string]any{"$contains": "work"}})
	if _, ok := got["/tmp/a.txt"]; !ok || len(got) != 1 {
		t.Fatalf("expected /tmp/a.txt, got %v", got)
	}

	got = run(t, reg, map[string]any{"owner": "Alice"})
	if _, ok := got["/tmp/a.txt"]; !ok || len(got) != 1 {
		t.Fatalf("expected /tmp/a.txt, got %v", got)
	}
}

func TestScenarioNumericGreaterThan(t *testing.T) {
	reg := buildRegistry(t, map[string]map[string]any{
		"/tmp/a.png": {"w": 1920},
		"/tmp/b.png": {"w": 800},
	})

	got := run(t, reg, map[string]any{"w": map[string]any{"$gt": 1000}})
	if len(got) != 1 {
		t.Fatalf("expected exactly one match, got %v", got)
	}
	if _, ok := got["/tmp/a.png"]; !ok {
		t.Fatalf("expected /tmp/a.png, got %v", got)
	}
}

func TestScenarioOrAndNot(t *testing.T) {
	reg := buildRegistry(t, map[string]map[string]any{
		"/tmp/r": {"color": "red"},
		"/tmp/g": {"color": "green"},
		"/tmp/b": {"color": "blue"},
	})

	got := run(t, reg, map[string]any{
		"$or": []any{
			map[string]any{"color": "red"},
			map[string]any{"color": "blue"},
		},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", got)
	}
	for _, want := range []string{"/tmp/r", "/tmp/b"} {
		if _, ok := got[want]; !ok {
			t.Fatalf("expected %s in %v", want, got)
		}
	}

	got = run(t, reg, map[string]any{"$not": map[string]any{"color": "green"}})
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", got)
	}
	if _, ok := got["/tmp/g"]; ok {
		t.Fatalf("did not expect green in %v", got)
	}
}

func TestUpdateInvalidatesStaleIndexedMatch(t *testing.T) {
	reg := buildRegistry(t, map[string]map[string]any{
		"/tmp/x": {"owner": "Alice"},
	})
	reg.Update("/tmp/x", record.Record{User: record.Map{"owner": record.String("Bob")}})

	got := run(t, reg, map[string]any{"owner": "Alice"})
	if len(got) != 0 {
		t.Fatalf("expected no matches for stale value, got %v", got)
	}
	got = run(t, reg, map[string]any{"owner": "Bob"})
	if _, ok := got["/tmp/x"]; !ok || len(got) != 1 {
		t.Fatalf("expected /tmp/x, got %v", got)
	}
}

func TestNoTypeCoercion(t *testing.T) {
	reg := buildRegistry(t, map[string]map[string]any{
		"/tmp/n": {"count": 3},
	})
	got := run(t, reg, map[string]any{"count": "3"})
	if len(got) != 0 {
		t.Fatalf("expected no coercion between string and int, got %v", got)
	}
}

func TestExistsFalseMatchesAbsentField(t *testing.T) {
	reg := buildRegistry(t, map[string]map[string]any{
		"/tmp/has":  {"owner": "Alice"},
		"/tmp/lack": {},
	})
	got := run(t, reg, map[string]any{"owner": map[string]any{"$exists": false}})
	if _, ok := got["/tmp/lack"]; !ok || len(got) != 1 {
		t.Fatalf("expected only /tmp/lack, got %v", got)
	}
}

func TestRegexNeverRaises(t *testing.T) {
	reg := buildRegistry(t, map[string]map[string]any{
		"/tmp/a": {"name": "abc"},
	})
	got := run(t, reg, map[string]any{"name": map[string]any{"$regex": "("}})
	if len(got) != 0 {
		t.Fatalf("expected no match for invalid pattern, got %v", got)
	}
}

func TestMalformedAndRejected(t *testing.T) {
	_, err := query.Parse(map[string]any{"$and": "not-a-list"})
	if err == nil {
		t.Fatal("expected malformed error")
	}
}

func TestBareKeyDefaultsToUserSection(t *testing.T) {
	node, err := query.Parse(map[string]any{"owner": "Alice"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(node.Children) != 1 || node.Children[0].Section != record.SectionUser {
		t.Fatalf("expected bare key to resolve to user section, got %+v", node)
	}
}
