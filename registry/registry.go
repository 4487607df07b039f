// Package registry implements the in-memory metadata registry: a primary
// path->record map plus an inverted index over scalar field values,
// maintained under every mutation per spec.md §4.1.
package registry

import (
	"sync"

	"github.com/mvndaai/filemeta/record"
)

// sections lists the only top-level sections the registry indexes. Extra
// sections on a Record are stored (the caller's map holds them) but never
// walked into the inverted index, per spec.md §4.1 step (1)/(3).
var sections = []record.Section{record.SectionSystem, record.SectionUser, record.SectionPlugin}

// bucket maps an indexed scalar value to the set of paths holding it.
type bucket map[record.Comparable]map[string]struct{}

// fieldIndex maps a field name within one section to its bucket.
type fieldIndex map[string]bucket

// Registry is the in-memory primary-plus-inverted-index structure
// described in spec.md §4.1. The zero value is not usable; use New.
type Registry struct {
	mu       sync.RWMutex
	primary  map[string]record.Record
	inverted map[record.Section]fieldIndex
	// everIndexed is additive-only: once section.field has held at least
	// one indexable value, it stays recorded here even after the bucket
	// structure above prunes its last empty entry (invariant 3, "no empty
	// shells", applies to `inverted`). This is the ledger that resolves
	// Open Question 4 -- it lets HasIndexedField tell "known field, no match
	// for this value" (trust the index, no scan) apart from "field never
	// indexed" (fall back to a scan) without violating invariant 3.
	everIndexed map[record.Section]map[string]bool
}

// New creates an empty Registry.
func New() *Registry {
	r := &Registry{
		primary:     make(map[string]record.Record),
		inverted:    make(map[record.Section]fieldIndex),
		everIndexed: make(map[record.Section]map[string]bool),
	}
	for _, s := range sections {
		r.inverted[s] = make(fieldIndex)
		r.everIndexed[s] = make(map[string]bool)
	}
	return r
}

// Add inserts or overwrites the record at path. If path already exists,
// its prior index entries are removed before the new ones are added, per
// the "overwrites if present" contract in spec.md §4.1.
func (r *Registry) Add(path string, rec record.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(path, rec)
}

// Update is semantically identical to Add at the registry layer -- full
// reindex -- spec.md draws the add/update distinction at the Manager
// layer, not here.
func (r *Registry) Update(path string, rec record.Record) {
	r.Add(path, rec)
}

func (r *Registry) set(path string, rec record.Record) {
	if old, ok := r.primary[path]; ok {
		r.deindex(path, old)
	}
	r.primary[path] = rec
	r.index(path, rec)
}

// Get returns a deep copy of the record at path, and whether it exists.
func (r *Registry) Get(path string) (record.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.primary[path]
	if !ok {
		return record.Record{}, false
	}
	return rec.Clone(), true
}

// Remove deletes path from the primary map and every inverted bucket.
// Idempotent: removing an absent path is a no-op, per spec.md property 3.
func (r *Registry) Remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.primary[path]
	if !ok {
		return
	}
	r.deindex(path, rec)
	delete(r.primary, path)
}

// AllPaths returns a snapshot of every known path, in no particular order.
func (r *Registry) AllPaths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.primary))
	for p := range r.primary {
		paths = append(paths, p)
	}
	return paths
}

// Len returns the number of records currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.primary)
}

// FindByField returns the set of paths whose section.field equals value,
// or an empty set if the section/field/value is unknown. O(1+k) per
// spec.md §4.1.
func (r *Registry) FindByField(section record.Section, field string, value record.Value) map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findByFieldLocked(section, field, value)
}

func (r *Registry) findByFieldLocked(section record.Section, field string, value record.Value) map[string]struct{} {
	if !value.Indexable() {
		return nil
	}
	fi, ok := r.inverted[section]
	if !ok {
		return nil
	}
	b, ok := fi[field]
	if !ok {
		return nil
	}
	paths, ok := b[value.AsComparable()]
	if !ok {
		return map[string]struct{}{}
	}
	out := make(map[string]struct{}, len(paths))
	for p := range paths {
		out[p] = struct{}{}
	}
	return out
}

// HasIndexedField reports whether section.field has ever had an indexable
// value recorded, regardless of whether the inverted bucket for it is
// currently empty. The query engine uses this to decide between "known
// field, no match" (empty result, no scan) and "never indexed" (fall back
// to scan), per spec.md §9 Open Question 4. It reads the everIndexed
// ledger rather than `inverted` itself, since `inverted` is pruned down to
// nothing for a field once its last value is removed (invariant 3).
func (r *Registry) HasIndexedField(section record.Section, field string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ei, ok := r.everIndexed[section]
	if !ok {
		return false
	}
	return ei[field]
}

// index walks the three known sections of rec and inserts path into the
// bucket for each indexable (section, field, value) tuple, creating
// missing levels as needed, and marks the field as seen in everIndexed.
// Step (3) of the spec.md §4.1 algorithm.
func (r *Registry) index(path string, rec record.Record) {
	for _, s := range sections {
		sm, ok := rec.SectionMap(s)
		if !ok {
			continue
		}
		fi := r.inverted[s]
		ei := r.everIndexed[s]
		for field, v := range sm {
			if !v.Indexable() {
				continue
			}
			b, ok := fi[field]
			if !ok {
				b = make(bucket)
				fi[field] = b
			}
			ei[field] = true
			key := v.AsComparable()
			paths, ok := b[key]
			if !ok {
				paths = make(map[string]struct{})
				b[key] = paths
			}
			paths[path] = struct{}{}
		}
	}
}

// deindex walks rec's three known sections and removes path from every
// bucket it occupies, collapsing empty value buckets and then empty field
// entries bottom-up, so inverted[section][field][value] and
// inverted[section][field] are both genuinely absent once empty -- the
// literal "no empty shells" wording of invariant 3. Whether a field has
// ever been indexed survives separately in everIndexed, which deindex
// never touches; see HasIndexedField and Open Question 4.
func (r *Registry) deindex(path string, rec record.Record) {
	for _, s := range sections {
		sm, ok := rec.SectionMap(s)
		if !ok {
			continue
		}
		fi := r.inverted[s]
		for field, v := range sm {
			if !v.Indexable() {
				continue
			}
			b, ok := fi[field]
			if !ok {
				continue
			}
			key := v.AsComparable()
			paths, ok := b[key]
			if !ok {
				continue
			}
			delete(paths, path)
			if len(paths) == 0 {
				delete(b, key)
			}
			if len(b) == 0 {
				delete(fi, field)
			}
		}
	}
}
