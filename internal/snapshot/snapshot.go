// Package snapshot persists and restores runtime heap state to a SQLite
// file, implementing spec.md §6's "Snapshot format": a magic header/
// version, the globals map, the constant pools of loaded chunks, and their
// opcode vectors — all round-tripped here as JSON blobs inside a handful of
// rows rather than a hand-rolled binary layout, the same raw database/sql
// plus mattn/go-sqlite3 access the teacher uses for its own on-disk stores
// rather than an ORM layer.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// FormatVersion is bumped whenever the JSON shape of a snapshot row changes
// in a way that makes older rows unreadable.
const FormatVersion = 1

// Record is one named snapshot's row. Globals and Chunks are opaque JSON
// payloads the caller (internal/vm, internal/repl) is responsible for
// encoding/decoding against its own types — this package only owns the
// row's lifecycle, not the heap's shape.
type Record struct {
	Name      string
	Version   int
	Globals   string // JSON-encoded globals map
	Chunks    string // JSON-encoded constant pools + opcode vectors
	CreatedAt time.Time
}

// Store opens (creating if needed) a SQLite-backed snapshot store at path.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("snapshot: creating directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot: setting journal_mode: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			name TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			globals TEXT NOT NULL,
			chunks TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot: migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save serializes globals and chunks (any JSON-marshalable shape the
// caller chooses) under name, overwriting a prior snapshot of the same
// name.
func (s *Store) Save(name string, globals, chunks any) error {
	globalsJSON, err := json.Marshal(globals)
	if err != nil {
		return fmt.Errorf("snapshot: encoding globals: %w", err)
	}
	chunksJSON, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("snapshot: encoding chunks: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO snapshots (name, version, globals, chunks, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			globals = excluded.globals,
			chunks = excluded.chunks,
			created_at = excluded.created_at
	`, name, FormatVersion, string(globalsJSON), string(chunksJSON), time.Now())
	if err != nil {
		return fmt.Errorf("snapshot: saving %q: %w", name, err)
	}
	return nil
}

// Load reads the named snapshot and decodes its globals/chunks payload
// into the caller-supplied destinations. Loading resumes at the beginning
// of script execution, not mid-function, per spec.md §6 — this package
// hands back the raw heap shape and leaves re-running the top-level
// script to the caller.
func (s *Store) Load(name string, globals, chunks any) error {
	var rec Record
	row := s.db.QueryRow(`SELECT name, version, globals, chunks, created_at FROM snapshots WHERE name = ?`, name)
	if err := row.Scan(&rec.Name, &rec.Version, &rec.Globals, &rec.Chunks, &rec.CreatedAt); err != nil {
		return fmt.Errorf("snapshot: loading %q: %w", name, err)
	}
	if rec.Version != FormatVersion {
		return fmt.Errorf("snapshot: %q was written with format version %d, runtime expects %d", name, rec.Version, FormatVersion)
	}
	if err := json.Unmarshal([]byte(rec.Globals), globals); err != nil {
		return fmt.Errorf("snapshot: decoding globals: %w", err)
	}
	if err := json.Unmarshal([]byte(rec.Chunks), chunks); err != nil {
		return fmt.Errorf("snapshot: decoding chunks: %w", err)
	}
	return nil
}

// List returns the names of every snapshot currently stored.
func (s *Store) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM snapshots ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: listing: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("snapshot: listing: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes the named snapshot, if present.
func (s *Store) Delete(name string) error {
	_, err := s.db.Exec(`DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("snapshot: deleting %q: %w", name, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
