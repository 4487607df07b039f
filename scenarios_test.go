package filemeta_test

import (
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/mvndaai/filemeta"
	"github.com/mvndaai/filemeta/record"
)

// TestScenarioS1TagsAndOwner mirrors spec.md §8 scenario S1.
func TestScenarioS1TagsAndOwner(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/tmp/a.txt", []byte("x"), 0o644)
	m := newTestManager(t, fs)

	err := m.Add("/tmp/a.txt", record.MapFromAny(map[string]any{
		"tags":  []any{"work", "important"},
		"owner": "Alice",
	}))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := m.Search(map[string]any{"tags": map[string]any{"$contains": "work"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, ok := got["/tmp/a.txt"]; !ok || len(got) != 1 {
		t.Fatalf("expected /tmp/a.txt, got %v", got)
	}

	got, err = m.Search(map[string]any{"owner": "Alice"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, ok := got["/tmp/a.txt"]; !ok || len(got) != 1 {
		t.Fatalf("expected /tmp/a.txt, got %v", got)
	}
}

// TestScenarioS2NumericComparison mirrors spec.md §8 scenario S2.
func TestScenarioS2NumericComparison(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/tmp/a.png", []byte("x"), 0o644)
	afero.WriteFile(fs, "/tmp/b.png", []byte("x"), 0o644)
	m := newTestManager(t, fs)

	_ = m.Add("/tmp/a.png", record.MapFromAny(map[string]any{"w": 1920}))
	_ = m.Add("/tmp/b.png", record.MapFromAny(map[string]any{"w": 800}))

	got, err := m.Search(map[string]any{"w": map[string]any{"$gt": 1000}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one match, got %v", got)
	}
	if _, ok := got["/tmp/a.png"]; !ok {
		t.Fatalf("expected /tmp/a.png, got %v", got)
	}
}

// TestScenarioS3OrAndNot mirrors spec.md §8 scenario S3.
func TestScenarioS3OrAndNot(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, p := range []string{"/tmp/red", "/tmp/green", "/tmp/blue"} {
		afero.WriteFile(fs, p, []byte("x"), 0o644)
	}
	m := newTestManager(t, fs)

	_ = m.Add("/tmp/red", record.MapFromAny(map[string]any{"color": "red"}))
	_ = m.Add("/tmp/green", record.MapFromAny(map[string]any{"color": "green"}))
	_ = m.Add("/tmp/blue", record.MapFromAny(map[string]any{"color": "blue"}))

	got, err := m.Search(map[string]any{
		"$or": []any{
			map[string]any{"color": "red"},
			map[string]any{"color": "blue"},
		},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected red+blue, got %v", got)
	}

	got, err = m.Search(map[string]any{"$not": map[string]any{"color": "green"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected red+blue, got %v", got)
	}
	if _, ok := got["/tmp/green"]; ok {
		t.Fatal("did not expect green in result")
	}
}

// TestScenarioS4UpdateInvalidatesOldValue mirrors spec.md §8 scenario S4.
func TestScenarioS4UpdateInvalidatesOldValue(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/tmp/x", []byte("x"), 0o644)
	m := newTestManager(t, fs)

	_ = m.Add("/tmp/x", record.MapFromAny(map[string]any{"owner": "Alice"}))
	if err := m.Update("/tmp/x", record.MapFromAny(map[string]any{"owner": "Bob"})); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := m.Search(map[string]any{"owner": "Alice"})
	if len(got) != 0 {
		t.Fatalf("expected no matches for stale owner, got %v", got)
	}
	got, _ = m.Search(map[string]any{"owner": "Bob"})
	if _, ok := got["/tmp/x"]; !ok || len(got) != 1 {
		t.Fatalf("expected /tmp/x, got %v", got)
	}
}

// TestScenarioS5ExportImportRecoversSearches mirrors spec.md §8 scenario S5.
func TestScenarioS5ExportImportRecoversSearches(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/tmp/a", []byte("x"), 0o644)
	afero.WriteFile(fs, "/tmp/b", []byte("x"), 0o644)
	m := newTestManager(t, fs)

	_ = m.Add("/tmp/a", record.MapFromAny(map[string]any{"owner": "Alice"}))
	_ = m.Add("/tmp/b", record.MapFromAny(map[string]any{"owner": "Bob"}))

	if _, err := m.Export("/tmp/m.json"); err != nil {
		t.Fatalf("Export: %v", err)
	}

	m2 := newTestManager(t, fs)
	if _, err := m2.Import("/tmp/m.json", filemeta.ImportReplace); err != nil {
		t.Fatalf("Import: %v", err)
	}

	got, _ := m2.Search(map[string]any{"owner": "Alice"})
	if _, ok := got["/tmp/a"]; !ok {
		t.Fatalf("expected /tmp/a recovered, got %v", got)
	}
	got, _ = m2.Search(map[string]any{"owner": "Bob"})
	if _, ok := got["/tmp/b"]; !ok {
		t.Fatalf("expected /tmp/b recovered, got %v", got)
	}
}

// TestScenarioS6SyncRemovesDeletedFile mirrors spec.md §8 scenario S6.
func TestScenarioS6SyncRemovesDeletedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/tmp/f", []byte("x"), 0o644)
	m := newTestManager(t, fs)
	_ = m.Add("/tmp/f", nil)

	if err := fs.Remove("/tmp/f"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	result := m.Sync()
	if result.Added != 0 || result.Updated != 0 || result.Removed != 1 {
		t.Fatalf("expected {0,0,1}, got %+v", result)
	}

	_, err := m.GetMetadata("/tmp/f")
	if !errors.Is(err, filemeta.ErrFileAccess) {
		t.Fatalf("expected ErrFileAccess for removed path, got %v", err)
	}
}
