package storage

import (
	"database/sql"
	_ "embed"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a sql.DB for the history store.
type DB struct {
	conn *sql.DB

	// Per-unit merge locks: merges for the same unit are read-modify-write
	// and must serialize; different units merge in parallel.
	locks sync.Map // "venue/unit" -> *sync.Mutex

	// Invoked after every merge that changed a unit's rows. Lets summary
	// caches drop stale entries.
	onChange func(venue, unitID string)
}

// Open opens (or creates) the SQLite database at the given path and applies the schema.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// OnChange registers a callback fired after merges that alter stored rows.
func (db *DB) OnChange(fn func(venue, unitID string)) {
	db.onChange = fn
}

func (db *DB) unitLock(venue, unitID string) *sync.Mutex {
	v, _ := db.locks.LoadOrStore(venue+"/"+unitID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (db *DB) notify(venue, unitID string) {
	if db.onChange != nil {
		db.onChange(venue, unitID)
	}
}
