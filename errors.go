package filemeta

import "errors"

// Sentinel error kinds from spec.md §7. Every failure path wraps one of
// these with fmt.Errorf("...: %w", ...) so callers classify failures with
// errors.Is rather than matching on message text, following the teacher's
// own error-wrapping style throughout its facade types.
var (
	// ErrFileAccess is returned when a path does not exist or cannot be
	// stat'd.
	ErrFileAccess = errors.New("filemeta: file access error")

	// ErrStorage is returned when a storage backend call fails.
	ErrStorage = errors.New("filemeta: storage error")

	// ErrPlugin classifies a swallowed extraction failure in log output.
	// It is never returned to a caller: add()/sync() catch and log plugin
	// failures per spec.md §7's propagation policy, so a record with
	// failed plugins still gets its system and user metadata.
	ErrPlugin = errors.New("filemeta: plugin extraction error")

	// ErrQueryMalformed is returned when search() is given a structurally
	// invalid query document.
	ErrQueryMalformed = errors.New("filemeta: malformed query")

	// ErrNotFound is returned by update/replace when the target path has
	// no existing record.
	ErrNotFound = errors.New("filemeta: path not found")
)
