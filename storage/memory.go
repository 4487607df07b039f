package storage

import (
	"iter"
	"sync"

	"github.com/mvndaai/filemeta/record"
)

// MemoryBackend stores records in a map and persists nothing across
// process restarts. It is the default backend filemeta.New uses when no
// WithStorage option is given.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]record.Record
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]record.Record)}
}

func (b *MemoryBackend) Save(path string, rec record.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[path] = rec.Clone()
	return nil
}

func (b *MemoryBackend) Load(path string) (record.Record, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.data[path]
	if !ok {
		return record.Record{}, false, nil
	}
	return rec.Clone(), true, nil
}

func (b *MemoryBackend) Delete(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, path)
	return nil
}

func (b *MemoryBackend) LoadAll() iter.Seq2[string, record.Record] {
	b.mu.RLock()
	snapshot := make(map[string]record.Record, len(b.data))
	for p, r := range b.data {
		snapshot[p] = r.Clone()
	}
	b.mu.RUnlock()

	return func(yield func(string, record.Record) bool) {
		for p, r := range snapshot {
			if !yield(p, r) {
				return
			}
		}
	}
}
