// Package dummy provides a reference extractor that serves as a template
// for real file-type plugins: it supports every
// path and categorizes it by extension, the simplest possible
// spec.md §4.4-shaped Plugin.
package dummy

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/mvndaai/filemeta/record"
)

// Plugin categorizes a file by its extension, recording "category" and
// "no_extension" fields in the extracted plugin map.
type Plugin struct {
	priority int
}

// New creates a dummy plugin with the given dispatch priority.
func New(priority int) *Plugin {
	return &Plugin{priority: priority}
}

// Supports is unconditionally true: the dummy plugin applies to any path.
func (p *Plugin) Supports(path string) bool { return true }

// Priority returns the plugin's configured dispatch priority.
func (p *Plugin) Priority() int { return p.priority }

// Extract categorizes path by its lowercased extension.
func (p *Plugin) Extract(fs afero.Fs, path string) (record.Map, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return record.Map{
			"category":     record.String("no-extension"),
			"no_extension": record.Bool(true),
		}, nil
	}
	return record.Map{
		"category":     record.String(ext[1:]),
		"no_extension": record.Bool(false),
	}, nil
}
