package record

import (
	"encoding/json"
	"time"
)

// isoLocal is the wire-level timestamp format from spec.md §6.
const isoLocal = "2006-01-02 15:04:05"

// System is the filesystem-derived section of a Record. Created/Modified/
// Accessed are exported as the ISO-8601 local-time strings §6 specifies,
// while the unexported *Epoch fields carry the same instants as raw
// epoch seconds for the sync comparator.
//
// This resolves Open Question 1 (spec.md §9): the source of truth is a
// single time.Time captured at stat time; the epoch and the formatted
// string are two projections of it that can never disagree, so "which
// representation is canonical" stops being ambiguous by construction.
type System struct {
	Path      string `json:"path"`
	Filename  string `json:"filename"`
	Extension string `json:"extension"`
	Size      int64  `json:"size"`
	Created   string `json:"created"`
	Modified  string `json:"modified"`
	Accessed  string `json:"accessed"`

	createdEpoch  int64
	modifiedEpoch int64
	accessedEpoch int64
}

// NewSystem builds a System section from a stat result, formatting the
// three timestamps and recording their epoch-second values for later
// comparison by Manager.Sync.
func NewSystem(path, filename, extension string, size int64, created, modified, accessed time.Time) System {
	return System{
		Path:      path,
		Filename:  filename,
		Extension: extension,
		Size:      size,
		Created:   created.Local().Format(isoLocal),
		Modified:  modified.Local().Format(isoLocal),
		Accessed:  accessed.Local().Format(isoLocal),

		createdEpoch:  created.Unix(),
		modifiedEpoch: modified.Unix(),
		accessedEpoch: accessed.Unix(),
	}
}

// ModifiedEpoch returns the raw epoch-seconds modification time used by
// Manager.Sync to detect filesystem changes without reparsing the
// formatted string on every comparison.
func (s System) ModifiedEpoch() int64 { return s.modifiedEpoch }

// systemAlias avoids infinite recursion when System's custom
// (Un)MarshalJSON delegates the exported-field half of the work.
type systemAlias System

// MarshalJSON emits only the exported fields from spec.md §6; the
// epoch fields are an internal implementation detail of Manager.Sync.
func (s System) MarshalJSON() ([]byte, error) {
	return json.Marshal(systemAlias(s))
}

// UnmarshalJSON restores a System from its JSON form (import, or a
// storage backend round-trip) and reconstructs the epoch fields from the
// formatted strings so a freshly imported record compares correctly on
// the next Manager.Sync.
func (s *System) UnmarshalJSON(data []byte) error {
	var alias systemAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*s = System(alias)
	if t, err := time.ParseInLocation(isoLocal, s.Created, time.Local); err == nil {
		s.createdEpoch = t.Unix()
	}
	if t, err := time.ParseInLocation(isoLocal, s.Modified, time.Local); err == nil {
		s.modifiedEpoch = t.Unix()
	}
	if t, err := time.ParseInLocation(isoLocal, s.Accessed, time.Local); err == nil {
		s.accessedEpoch = t.Unix()
	}
	return nil
}

// AsMap reprojects the system fields as a Map so the registry indexer and
// query engine can address "system.size", "system.extension", etc. like
// any other section.
func (s System) AsMap() Map {
	return Map{
		"path":      String(s.Path),
		"filename":  String(s.Filename),
		"extension": String(s.Extension),
		"size":      Int(s.Size),
		"created":   String(s.Created),
		"modified":  String(s.Modified),
		"accessed":  String(s.Accessed),
	}
}
