// Package index provides a SQLite-backed index of thought documents with
// optional FTS5 full-text search over thought content.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path          TEXT PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT '',
	checksum      TEXT NOT NULL DEFAULT '',
	thought_count INTEGER NOT NULL DEFAULT 0,
	updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS thoughts (
	id        TEXT NOT NULL,
	path      TEXT NOT NULL,
	parent_id TEXT NOT NULL DEFAULT '',
	alias_id  TEXT NOT NULL DEFAULT '',
	type      TEXT NOT NULL,
	status    TEXT NOT NULL DEFAULT 'pending',
	depth     INTEGER NOT NULL DEFAULT 0,
	content   TEXT NOT NULL DEFAULT '',
	position  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (path, id)
);

CREATE INDEX IF NOT EXISTS idx_thoughts_id ON thoughts(id, path);
CREATE INDEX IF NOT EXISTS idx_thoughts_alias ON thoughts(alias_id);
`

// schemaVersion is stored in PRAGMA user_version. Older index files are
// dropped and rebuilt from the vault by Sync.
const schemaVersion = 2

// winnerSQL restricts a query over thoughts aliased t to the occurrence of
// each id in the first document by path, the owner the forest registry picks.
const winnerSQL = `t.path = (SELECT min(o.path) FROM thoughts o WHERE o.id = t.id)`

func migrate(conn *sql.DB) error {
	var v int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v >= schemaVersion {
		return nil
	}
	if _, err := conn.Exec(`DROP TABLE IF EXISTS thoughts; DROP TABLE IF EXISTS documents;`); err != nil {
		return fmt.Errorf("drop old tables: %w", err)
	}
	return dropFTS(conn)
}

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: migrate: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	if _, err := conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: set schema version: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
