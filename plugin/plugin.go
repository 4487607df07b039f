// Package plugin implements the file-type extractor contract and dispatch
// described in spec.md §4.4: plugins are values satisfying a small
// capability set, not a class hierarchy, and the registry merges their
// outputs under a priority-ordered collision rule.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/mvndaai/filemeta/record"
)

// Plugin is a file-type metadata extractor. Supports should be cheap
// (usually an extension or glob check); Extract may perform arbitrary
// I/O. Priority orders dispatch: higher runs first, but per spec.md §4.4,
// lower priority wins key collisions in the merged result.
type Plugin interface {
	Supports(path string) bool
	Extract(fs afero.Fs, path string) (record.Map, error)
	Priority() int
}

// ErrAllFailed is returned by ProcessFile when at least one plugin
// supported the path but every supporting plugin's Extract call failed.
var ErrAllFailed = errors.New("plugin: all supporting extractors failed")

// Registry holds the known plugins and dispatches extraction across them.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
}

// NewRegistry builds a Registry from an initial plugin set.
func NewRegistry(plugins ...Plugin) *Registry {
	r := &Registry{}
	r.plugins = append(r.plugins, plugins...)
	r.sortByPriorityDesc()
	return r
}

// Register adds a plugin, keeping the internal list ordered by descending
// priority for dispatch.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, p)
	r.sortByPriorityDesc()
}

func (r *Registry) sortByPriorityDesc() {
	sort.SliceStable(r.plugins, func(i, j int) bool {
		return r.plugins[i].Priority() > r.plugins[j].Priority()
	})
}

// ProcessFile runs every plugin whose Supports(path) is true, in
// descending-priority order, and folds the successful results into one
// map in that same order, so a lower-priority plugin's key overwrites a
// higher-priority plugin's key on collision -- resolving spec.md's Open
// Question 2 ("lower priority wins collisions") while still running
// extraction highest-first, the order real extractors may depend on.
//
// If no plugin supports path, ProcessFile returns an empty map and no
// error. If at least one supporting plugin fails but another succeeds,
// the failure is swallowed (callers that need it can check logs); only a
// 100% failure rate among supporting plugins returns ErrAllFailed.
func (r *Registry) ProcessFile(fs afero.Fs, path string) (record.Map, error) {
	r.mu.RLock()
	supporting := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		if p.Supports(path) {
			supporting = append(supporting, p)
		}
	}
	r.mu.RUnlock()

	if len(supporting) == 0 {
		return record.Map{}, nil
	}

	type outcome struct {
		result record.Map
		err    error
	}
	outcomes := make([]outcome, len(supporting))
	for i, p := range supporting {
		res, err := p.Extract(fs, path)
		outcomes[i] = outcome{result: res, err: err}
	}

	// supporting (and therefore outcomes) is already in descending-priority
	// order. Folding in that order and letting later writes win means the
	// lowest-priority successful result overwrites any higher-priority
	// plugin's key on collision, per spec.md's "lower priority wins".
	merged := record.Map{}
	succeeded := 0
	var lastErr error
	for _, o := range outcomes {
		if o.err != nil {
			lastErr = o.err
			continue
		}
		succeeded++
		for k, v := range o.result {
			merged[k] = v
		}
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
	}
	return merged, nil
}

// ProcessFileAsync runs ProcessFile on a caller-supplied worker-pool
// semaphore, invoking callback exactly once with the result -- once with
// an error-shaped callback if ctx is already done, otherwise once with
// ProcessFile's own result. It exists so callers adding many files at
// once (Manager.AddMany) don't serialize on plugin I/O, mirroring the
// bounded thread pool dispatch in spec.md §5.
func (r *Registry) ProcessFileAsync(ctx context.Context, fs afero.Fs, path string, sem chan struct{}, wg *sync.WaitGroup, callback func(record.Map, error)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ctx.Err(); err != nil {
			callback(nil, err)
			return
		}
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		case <-ctx.Done():
			callback(nil, ctx.Err())
			return
		}
		result, err := r.ProcessFile(fs, path)
		callback(result, err)
	}()
}
