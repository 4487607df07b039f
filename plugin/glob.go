package plugin

import "github.com/bmatcuk/doublestar/v4"

// GlobPlugin is an embeddable helper that implements Supports via
// doublestar pattern matching against a path's base name, the same
// gitignore-compatible glob library and "invalid pattern never matches"
// policy the query package in the teacher corpus uses for name filters.
// Concrete extractors embed GlobPlugin and only need to implement
// Extract and Priority.
type GlobPlugin struct {
	Pattern string
}

// Supports reports whether path's base name matches Pattern.
func (g GlobPlugin) Supports(path string) bool {
	matched, err := doublestar.Match(g.Pattern, basename(path))
	if err != nil {
		return false
	}
	return matched
}

func basename(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
