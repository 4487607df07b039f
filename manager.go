// Package filemeta attaches structured metadata to filesystem paths,
// indexes it in memory, persists it through a pluggable storage backend,
// and answers MongoDB-style structured queries. Manager is the public
// façade: it composes a registry.Registry, a storage.Backend, and a
// plugin.Registry under a single construction and locking story.
package filemeta

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/mvndaai/filemeta/internal/fsmeta"
	"github.com/mvndaai/filemeta/internal/logging"
	"github.com/mvndaai/filemeta/plugin"
	"github.com/mvndaai/filemeta/query"
	"github.com/mvndaai/filemeta/record"
	"github.com/mvndaai/filemeta/registry"
	"github.com/mvndaai/filemeta/storage"
)

// ImportStrategy selects how Import reconciles incoming records against
// ones the Manager already knows about.
type ImportStrategy int

const (
	ImportSkip ImportStrategy = iota
	ImportReplace
	ImportMerge
)

// SyncResult reports what Sync changed.
type SyncResult struct {
	Added   int
	Updated int
	Removed int
}

// Manager is the public entry point of filemeta. The zero value is not
// usable; build one with New.
type Manager struct {
	fs         afero.Fs
	reg        *registry.Registry
	backend    storage.Backend
	plugins    *plugin.Registry
	log        *logging.Logger
	sem        chan struct{}
	threadSafe bool
	mu         sync.Mutex

	stopAutoSync chan struct{}
	autoSyncDone chan struct{}
}

// New builds a Manager from the given options. Defaults: an OS
// filesystem, unpersisted in-memory storage, no plugins, thread safety
// off, auto-sync off.
func New(opts ...Option) (*Manager, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Manager{
		fs:         cfg.fs,
		reg:        registry.New(),
		backend:    cfg.backend,
		plugins:    plugin.NewRegistry(cfg.plugins...),
		log:        cfg.logger,
		sem:        make(chan struct{}, cfg.pluginWorkers),
		threadSafe: cfg.threadSafe,
	}

	for path, rec := range m.backend.LoadAll() {
		m.reg.Add(path, rec)
	}

	if cfg.autoSync > 0 {
		m.startAutoSync(cfg.autoSync)
	}

	return m, nil
}

func (m *Manager) lock() {
	if m.threadSafe {
		m.mu.Lock()
	}
}

func (m *Manager) unlock() {
	if m.threadSafe {
		m.mu.Unlock()
	}
}

// RegisterPlugin adds an extractor to the manager's plugin registry.
func (m *Manager) RegisterPlugin(p plugin.Plugin) {
	m.plugins.Register(p)
}

// Add verifies path exists, collects its system metadata, runs plugins,
// and registers+persists the assembled record. Plugin failures are
// logged and do not fail the add, per spec.md §4.3.
func (m *Manager) Add(path string, userMeta record.Map) error {
	m.lock()
	defer m.unlock()
	return m.doAdd(path, userMeta)
}

func (m *Manager) doAdd(path string, userMeta record.Map) error {
	path = fsmeta.Normalize(path)

	sys, err := fsmeta.Stat(m.fs, path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFileAccess, path, err)
	}

	pluginMeta := m.extractPlugins(path)

	rec := record.Record{System: sys, User: userMeta.Clone(), Plugin: pluginMeta}
	return m.persist(path, rec)
}

// AddMany adds several paths at once, running plugin extraction for all
// of them concurrently through plugin.Registry.ProcessFileAsync, bounded
// by the same worker pool Sync uses, then persisting each successfully
// stat'd path serially. It returns the number added and one error per
// path that failed to stat or to persist (plugin failures are logged and do not fail
// an individual add, matching Add's own policy).
func (m *Manager) AddMany(paths []string, userMeta map[string]record.Map) (int, []error) {
	m.lock()
	defer m.unlock()

	type probe struct {
		path       string
		sys        record.System
		pluginMeta record.Map
		statErr    error
	}

	probes := make([]probe, len(paths))
	ctx := context.Background()
	var wg sync.WaitGroup

	for i, raw := range paths {
		path := fsmeta.Normalize(raw)
		sys, err := fsmeta.Stat(m.fs, path)
		if err != nil {
			probes[i] = probe{path: path, statErr: fmt.Errorf("%w: %s: %v", ErrFileAccess, path, err)}
			continue
		}
		probes[i] = probe{path: path, sys: sys}

		i, path := i, path
		m.plugins.ProcessFileAsync(ctx, m.fs, path, m.sem, &wg, func(meta record.Map, err error) {
			if err != nil {
				m.log.Warn().Err(fmt.Errorf("%w: %s: %v", ErrPlugin, path, err)).Msg("plugin extraction failed")
				meta = record.Map{}
			}
			probes[i].pluginMeta = meta
		})
	}
	wg.Wait()

	added := 0
	var errs []error
	for i, p := range probes {
		if p.statErr != nil {
			errs = append(errs, p.statErr)
			continue
		}
		rec := record.Record{System: p.sys, User: userMeta[paths[i]].Clone(), Plugin: p.pluginMeta}
		if err := m.persist(p.path, rec); err != nil {
			errs = append(errs, err)
			continue
		}
		added++
	}

	return added, errs
}

// extractPlugins runs plugin dispatch and logs (but never surfaces) a
// failure, per spec.md §7's propagation policy for the Plugin error kind.
func (m *Manager) extractPlugins(path string) record.Map {
	meta, err := m.plugins.ProcessFile(m.fs, path)
	if err != nil {
		m.log.Warn().Err(fmt.Errorf("%w: %s: %v", ErrPlugin, path, err)).Msg("plugin extraction failed")
		return record.Map{}
	}
	return meta
}

func (m *Manager) persist(path string, rec record.Record) error {
	m.reg.Add(path, rec)
	if err := m.backend.Save(path, rec); err != nil {
		return fmt.Errorf("%w: saving %s: %v", ErrStorage, path, err)
	}
	return nil
}

// Get returns the record at path.
func (m *Manager) Get(path string) (record.Record, bool) {
	m.lock()
	defer m.unlock()
	return m.reg.Get(fsmeta.Normalize(path))
}

// GetMetadata returns the record at path, failing with ErrFileAccess if
// the path has no known record -- the error-raising counterpart to Get,
// matching spec.md §8 scenario S6's "get_metadata fails with FileAccess"
// expectation for a path sync has already removed.
func (m *Manager) GetMetadata(path string) (record.Record, error) {
	path = fsmeta.Normalize(path)
	rec, ok := m.Get(path)
	if !ok {
		return record.Record{}, fmt.Errorf("%w: %s", ErrFileAccess, path)
	}
	return rec, nil
}

// Update shallow-merges patch into the record's user section, reindexes,
// and persists. Fails with ErrNotFound if path has no record.
func (m *Manager) Update(path string, patch record.Map) error {
	m.lock()
	defer m.unlock()

	path = fsmeta.Normalize(path)
	rec, ok := m.reg.Get(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	merged := rec.User.Clone()
	if merged == nil {
		merged = record.Map{}
	}
	for k, v := range patch {
		merged[k] = v
	}
	rec.User = merged

	return m.persist(path, rec)
}

// Replace swaps the record's user section wholesale, reindexes, and
// persists. Fails with ErrNotFound if path has no record.
func (m *Manager) Replace(path string, newUser record.Map) error {
	m.lock()
	defer m.unlock()

	path = fsmeta.Normalize(path)
	rec, ok := m.reg.Get(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	rec.User = newUser.Clone()
	return m.persist(path, rec)
}

// Delete removes path from the registry and storage. Idempotent.
func (m *Manager) Delete(path string) error {
	m.lock()
	defer m.unlock()
	return m.doDelete(fsmeta.Normalize(path))
}

func (m *Manager) doDelete(path string) error {
	m.reg.Remove(path)
	if err := m.backend.Delete(path); err != nil {
		return fmt.Errorf("%w: deleting %s: %v", ErrStorage, path, err)
	}
	return nil
}

// Search evaluates a query document against the current registry
// contents, holding the manager's lock for the duration of evaluation
// when thread_safe=on, yielding the serializable semantics spec.md §5
// requires.
func (m *Manager) Search(q map[string]any) (map[string]struct{}, error) {
	node, err := query.Parse(q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryMalformed, err)
	}

	m.lock()
	defer m.unlock()
	return query.Run(m.reg, node), nil
}

// Sync restats every known path: a changed modified-time triggers a
// system/plugin refresh and reindex; a vanished path is removed. Sync
// never discovers new paths, per spec.md §4.3.
func (m *Manager) Sync() SyncResult {
	m.lock()
	defer m.unlock()
	return m.doSync()
}

// syncProbe is the outcome of restating and (if needed) re-extracting a
// single known path, gathered concurrently in doSync's first phase.
type syncProbe struct {
	path       string
	vanished   bool
	changed    bool
	sys        record.System
	pluginMeta record.Map
}

func (m *Manager) doSync() SyncResult {
	paths := m.reg.AllPaths()
	probes := make([]syncProbe, len(paths))

	// Stat and, where needed, plugin extraction are read-only and safe to
	// run concurrently bounded by the configured plugin worker pool; the
	// registry/storage mutations they inform are then applied serially
	// below, so Sync's observable per-path atomicity (spec.md §5) holds.
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			m.sem <- struct{}{}
			defer func() { <-m.sem }()
			probes[i] = m.probeSync(path)
		}(i, path)
	}
	wg.Wait()

	var result SyncResult
	for _, p := range probes {
		if p.vanished {
			if err := m.doDelete(p.path); err != nil {
				m.log.Warn().Err(err).Str("path", p.path).Msg("sync: failed to remove vanished path")
				continue
			}
			result.Removed++
			continue
		}
		if !p.changed {
			continue
		}

		rec, ok := m.reg.Get(p.path)
		if !ok {
			continue
		}
		rec.System = p.sys
		rec.Plugin = p.pluginMeta
		if err := m.persist(p.path, rec); err != nil {
			m.log.Warn().Err(err).Str("path", p.path).Msg("sync: failed to persist refreshed record")
			continue
		}
		result.Updated++
	}

	return result
}

func (m *Manager) probeSync(path string) syncProbe {
	rec, ok := m.reg.Get(path)
	if !ok {
		return syncProbe{path: path}
	}

	sys, err := fsmeta.Stat(m.fs, path)
	if err != nil {
		return syncProbe{path: path, vanished: true}
	}
	if sys.ModifiedEpoch() == rec.System.ModifiedEpoch() {
		return syncProbe{path: path}
	}

	return syncProbe{path: path, changed: true, sys: sys, pluginMeta: m.extractPlugins(path)}
}

// CleanupOrphaned removes every known path whose file no longer exists
// and returns the number removed.
func (m *Manager) CleanupOrphaned() int {
	m.lock()
	defer m.unlock()

	removed := 0
	for _, path := range m.reg.AllPaths() {
		if _, err := m.fs.Stat(path); err != nil {
			if delErr := m.doDelete(path); delErr == nil {
				removed++
			}
		}
	}
	return removed
}

// Export serializes the entire primary map as JSON to outPath and
// returns the number of entries written.
func (m *Manager) Export(outPath string) (int, error) {
	m.lock()
	defer m.unlock()

	snapshot := make(map[string]record.Record)
	for _, path := range m.reg.AllPaths() {
		rec, ok := m.reg.Get(path)
		if !ok {
			continue
		}
		snapshot[path] = rec
	}

	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("%w: encoding export: %v", ErrStorage, err)
	}
	if err := afero.WriteFile(m.fs, outPath, raw, 0o644); err != nil {
		return 0, fmt.Errorf("%w: writing %s: %v", ErrStorage, outPath, err)
	}
	return len(snapshot), nil
}

// Import reads a JSON document written by Export and reconciles it into
// the manager per strategy (skip/replace/merge), per spec.md §4.3.
func (m *Manager) Import(inPath string, strategy ImportStrategy) (int, error) {
	m.lock()
	defer m.unlock()

	raw, err := afero.ReadFile(m.fs, inPath)
	if err != nil {
		return 0, fmt.Errorf("%w: reading %s: %v", ErrFileAccess, inPath, err)
	}

	var incoming map[string]record.Record
	if err := json.Unmarshal(raw, &incoming); err != nil {
		return 0, fmt.Errorf("%w: decoding %s: %v", ErrStorage, inPath, err)
	}

	count := 0
	for path, rec := range incoming {
		if err := m.importOne(path, rec, strategy); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (m *Manager) importOne(path string, incoming record.Record, strategy ImportStrategy) error {
	existing, ok := m.reg.Get(path)

	switch strategy {
	case ImportSkip:
		if ok {
			return nil
		}
		return m.persist(path, incoming)
	case ImportReplace:
		return m.persist(path, incoming)
	case ImportMerge:
		if !ok {
			return m.persist(path, incoming)
		}
		merged := existing
		mergedUser := existing.User.Clone()
		if mergedUser == nil {
			mergedUser = record.Map{}
		}
		for k, v := range incoming.User {
			mergedUser[k] = v
		}
		merged.User = mergedUser

		mergedPlugin := existing.Plugin.Clone()
		if mergedPlugin == nil {
			mergedPlugin = record.Map{}
		}
		for k, v := range incoming.Plugin {
			mergedPlugin[k] = v
		}
		merged.Plugin = mergedPlugin

		return m.persist(path, merged)
	default:
		return fmt.Errorf("filemeta: unknown import strategy %d", strategy)
	}
}

func (m *Manager) startAutoSync(interval time.Duration) {
	m.stopAutoSync = make(chan struct{})
	m.autoSyncDone = make(chan struct{})

	go func() {
		defer close(m.autoSyncDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				func() {
					defer func() {
						if r := recover(); r != nil {
							m.log.Error().Interface("panic", r).Msg("auto-sync: recovered from panic")
						}
					}()
					m.Sync()
				}()
			case <-m.stopAutoSync:
				return
			}
		}
	}()
}

// Close stops the auto-sync goroutine, if one was started. It is safe to
// call Close on a Manager built without WithAutoSync.
func (m *Manager) Close() error {
	if m.stopAutoSync != nil {
		close(m.stopAutoSync)
		<-m.autoSyncDone
	}
	return nil
}
