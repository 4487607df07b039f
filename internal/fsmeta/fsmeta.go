// Package fsmeta collects the filesystem-derived "system" section of a
// record (spec.md §3) from an afero.Fs, and normalizes the paths callers
// pass into the manager.
package fsmeta

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/mvndaai/filemeta/record"
)

// Normalize cleans path into the canonical form every manager operation
// keys its records by, so "a/b", "./a/b", and "a//b" all address the same
// record.
func Normalize(path string) string {
	return filepath.Clean(path)
}

// Stat collects the system section for path on fs: size, the three
// timestamps, and the lowercased extension without its leading dot.
// os.IsNotExist-shaped errors bubble up unwrapped so callers can classify
// them against the FileAccess error kind.
func Stat(fs afero.Fs, path string) (record.System, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return record.System{}, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	ext = strings.TrimPrefix(ext, ".")

	modified := info.ModTime()
	// afero/os do not universally expose creation or access time; in the
	// absence of a portable syscall-level stat, filemeta uses modified
	// time for all three timestamps rather than fabricating values that
	// would silently diverge from reality on platforms that do track
	// them separately.
	created := modified
	accessed := modified

	return record.NewSystem(path, filepath.Base(path), ext, info.Size(), created, modified, accessed), nil
}
