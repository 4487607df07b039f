package storage

import (
	"encoding/json"
	"fmt"
	"iter"
	"sync"

	"github.com/spf13/afero"

	"github.com/mvndaai/filemeta/record"
)

// JSONFileBackend persists every record into a single JSON file, fully
// rewritten on each Save/Delete, loaded once at construction. It is
// afero-backed so production code runs against afero.NewOsFs() while
// tests exercise the identical logic against afero.NewMemMapFs(), the
// same split the teacher's own filesystem code uses throughout.
type JSONFileBackend struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
	data map[string]record.Record
}

// NewJSONFileBackend opens (or initializes) a JSON-file-backed store at
// path on fs. A missing file starts empty; an existing file is parsed
// eagerly so Load/LoadAll never touch the filesystem.
func NewJSONFileBackend(fs afero.Fs, path string) (*JSONFileBackend, error) {
	b := &JSONFileBackend{fs: fs, path: path, data: make(map[string]record.Record)}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	if !exists {
		return b, nil
	}

	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return b, nil
	}
	if err := json.Unmarshal(raw, &b.data); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", path, err)
	}
	return b, nil
}

func (b *JSONFileBackend) Save(path string, rec record.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[path] = rec.Clone()
	return b.flush()
}

func (b *JSONFileBackend) Load(path string) (record.Record, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.data[path]
	if !ok {
		return record.Record{}, false, nil
	}
	return rec.Clone(), true, nil
}

func (b *JSONFileBackend) Delete(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.data[path]; !ok {
		return nil
	}
	delete(b.data, path)
	return b.flush()
}

func (b *JSONFileBackend) LoadAll() iter.Seq2[string, record.Record] {
	b.mu.Lock()
	snapshot := make(map[string]record.Record, len(b.data))
	for p, r := range b.data {
		snapshot[p] = r.Clone()
	}
	b.mu.Unlock()

	return func(yield func(string, record.Record) bool) {
		for p, r := range snapshot {
			if !yield(p, r) {
				return
			}
		}
	}
}

// flush writes the whole dataset back to disk. Caller must hold b.mu.
func (b *JSONFileBackend) flush() error {
	raw, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", b.path, err)
	}
	if err := afero.WriteFile(b.fs, b.path, raw, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", b.path, err)
	}
	return nil
}
