package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/mvndaai/filemeta/record"
)

// SQLBackend persists records in a `metadata(path, data)` table via
// stdlib database/sql. It takes an already-opened *sql.DB rather than a
// DSN string or driver name: no SQLite driver appears anywhere in the
// dependency surface this package draws from, so the backend stays
// driver-agnostic and lets the caller register whichever one they prefer
// (mattn/go-sqlite3, modernc.org/sqlite, or any other database/sql
// driver) and pass the opened handle in. The SQL issued here is plain
// standard SQL and runs unmodified against any driver that supports
// upsert via "INSERT OR REPLACE" syntax (SQLite) or an equivalent dialect
// the caller's driver translates.
type SQLBackend struct {
	db *sql.DB
}

// NewSQLBackend creates the metadata table if it does not already exist
// and returns a backend bound to db.
func NewSQLBackend(db *sql.DB) (*SQLBackend, error) {
	const ddl = `CREATE TABLE IF NOT EXISTS metadata (
		path TEXT PRIMARY KEY,
		data TEXT NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("storage: create metadata table: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

func (b *SQLBackend) Save(path string, rec record.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("storage: encode record for %s: %w", path, err)
	}
	_, err = b.db.Exec(`INSERT OR REPLACE INTO metadata (path, data) VALUES (?, ?)`, path, string(raw))
	if err != nil {
		return fmt.Errorf("storage: save %s: %w", path, err)
	}
	return nil
}

func (b *SQLBackend) Load(path string) (record.Record, bool, error) {
	var raw string
	err := b.db.QueryRow(`SELECT data FROM metadata WHERE path = ?`, path).Scan(&raw)
	if err == sql.ErrNoRows {
		return record.Record{}, false, nil
	}
	if err != nil {
		return record.Record{}, false, fmt.Errorf("storage: load %s: %w", path, err)
	}
	var rec record.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return record.Record{}, false, fmt.Errorf("storage: decode %s: %w", path, err)
	}
	return rec, true, nil
}

func (b *SQLBackend) Delete(path string) error {
	if _, err := b.db.Exec(`DELETE FROM metadata WHERE path = ?`, path); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

func (b *SQLBackend) LoadAll() iter.Seq2[string, record.Record] {
	return func(yield func(string, record.Record) bool) {
		rows, err := b.db.Query(`SELECT path, data FROM metadata`)
		if err != nil {
			return
		}
		defer rows.Close()

		for rows.Next() {
			var path, raw string
			if err := rows.Scan(&path, &raw); err != nil {
				return
			}
			var rec record.Record
			if err := json.Unmarshal([]byte(raw), &rec); err != nil {
				continue
			}
			if !yield(path, rec) {
				return
			}
		}
	}
}
