package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// StateKey is the document key the state document is stored under.
const StateKey = "PBM_GM_ASSISTANT_STATE"

// Docs is the durable key/document storage shared by the state store and the
// log store. It is the single local store of the device; there is no
// cross-process coordination.
type Docs interface {
	Get(key string) (value string, ok bool, err error)
	Put(key, value string) error
	Delete(key string) error
	Close() error
}

// SQLiteDocs is the SQLite-backed document storage.
// Thread-safe for concurrent WASM callbacks.
type SQLiteDocs struct {
	mu sync.RWMutex
	db *sql.DB
}

const docsSchema = `
CREATE TABLE IF NOT EXISTS documents (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// OpenDocs opens document storage at the given data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func OpenDocs(dsn string) (*SQLiteDocs, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if _, err := db.Exec(docsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &SQLiteDocs{db: db}, nil
}

// OpenMemoryDocs opens a fresh in-memory document store.
func OpenMemoryDocs() (*SQLiteDocs, error) {
	return OpenDocs(":memory:")
}

// Get returns the document stored under key, if any.
func (d *SQLiteDocs) Get(key string) (string, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var value string
	err := d.db.QueryRow(`SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get %q: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous document.
func (d *SQLiteDocs) Put(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`
		INSERT INTO documents (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: put %q: %w", key, err)
	}
	return nil
}

// Delete removes the document stored under key. Deleting an absent key is not
// an error.
func (d *SQLiteDocs) Delete(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.db.Exec(`DELETE FROM documents WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (d *SQLiteDocs) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Compile-time interface check
var _ Docs = (*SQLiteDocs)(nil)
