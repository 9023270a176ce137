// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. The time capsule
// data model is two small collections (users, capsules) with one foreign key, which
// SQLite handles comfortably on a single server.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// modernc.org/sqlite is a pure Go translation of the SQLite C code: no C compiler
// needed, cross-compilation just works.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB     : a connection pool (NOT a single connection!)
//   - sql.Row    : a single result row
//   - sql.Rows   : multiple result rows (must be closed!)
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool. It is the process-wide store: opened once
// in server.New and closed on shutdown. Services never see it directly, they get
// the repository interfaces it implements.
type DB struct {
	conn *sql.DB
}

// New opens the database and runs migrations.
//
// dbPath examples:
//   - "data/timecapsule.db" → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database exists per connection. With more than one pooled
	// connection each would see its own empty schema.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// capsules.user_id REFERENCES users(id)
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the identity store view of the database.
//
// WHY TWO TYPES OVER ONE POOL?
// Both repositories want a method called Create/GetByID, and Go has no
// overloading. Splitting them into UserDB and the capsule methods on *DB keeps
// the interface names natural while sharing a single connection pool.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run on
// every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS capsules (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL REFERENCES users(id),
			message            TEXT NOT NULL,
			unlock_date        DATETIME NOT NULL,
			locked_date        DATETIME NOT NULL,
			image_data         BLOB,
			image_content_type TEXT,
			notified           INTEGER NOT NULL DEFAULT 0,
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_capsules_user_unlock ON capsules(user_id, unlock_date);
	`)
	if err != nil {
		return fmt.Errorf("creating capsules table: %w", err)
	}

	return nil
}

// now is the single source of server timestamps. Everything is stored in UTC so
// that SQL comparisons on unlock_date are comparisons between like values.
func now() time.Time {
	return time.Now().UTC()
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
