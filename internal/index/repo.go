package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/thoughtmap/internal/apperr"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path      string
	Title     string
	Checksum  string
	Thoughts  int
	UpdatedAt time.Time
}

// ThoughtRow represents one thought of an indexed document.
type ThoughtRow struct {
	ID       string
	Path     string
	ParentID string
	AliasID  string
	Type     string
	Status   string
	Depth    int
	Content  string
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Type    string `json:"type"`
	Snippet string `json:"snippet"`
}

// UpsertDocument replaces a document and all of its thoughts within a
// transaction. A thought id already indexed under another document is taken
// over by this one.
func (db *DB) UpsertDocument(d DocumentRow, thoughts []ThoughtRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (path, title, checksum, thought_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title         = excluded.title,
			checksum      = excluded.checksum,
			thought_count = excluded.thought_count,
			updated_at    = excluded.updated_at
	`, d.Path, d.Title, d.Checksum, len(thoughts), d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	ftsDelete(tx, d.Path)
	_, _ = tx.Exec(`DELETE FROM thoughts WHERE path = ?`, d.Path)

	if len(thoughts) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO thoughts (id, path, parent_id, alias_id, type, status, depth, content, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare thought insert: %w", err)
		}
		defer stmt.Close()
		for i, t := range thoughts {
			if _, err := stmt.Exec(t.ID, d.Path, t.ParentID, t.AliasID, t.Type, t.Status, t.Depth, t.Content, i); err != nil {
				return fmt.Errorf("index: insert thought %s: %w", t.ID, err)
			}
		}
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d.Path, thoughts); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its thoughts and their FTS entries.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM thoughts WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// GetDocument returns one indexed document.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	var d DocumentRow
	err := db.conn.QueryRow(`
		SELECT path, title, checksum, thought_count, updated_at FROM documents WHERE path = ?
	`, path).Scan(&d.Path, &d.Title, &d.Checksum, &d.Thoughts, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns a page of documents ordered by path and the total count.
func (db *DB) ListDocuments(limit, offset int) ([]DocumentRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}
	rows, err := db.conn.Query(`
		SELECT path, title, checksum, thought_count, updated_at
		FROM documents
		ORDER BY path
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	out := []DocumentRow{}
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.Path, &d.Title, &d.Checksum, &d.Thoughts, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// GetThought returns one indexed thought. When several documents carry the
// id, the first by path owns it.
func (db *DB) GetThought(id string) (*ThoughtRow, error) {
	var t ThoughtRow
	err := db.conn.QueryRow(`
		SELECT id, path, parent_id, alias_id, type, status, depth, content
		FROM thoughts WHERE id = ?
		ORDER BY path
		LIMIT 1
	`, id).Scan(&t.ID, &t.Path, &t.ParentID, &t.AliasID, &t.Type, &t.Status, &t.Depth, &t.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: thought %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get thought: %w", err)
	}
	return &t, nil
}

// Aliases returns the ids of thoughts whose alias points at targetID.
func (db *DB) Aliases(targetID string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT t.id FROM thoughts t
		WHERE t.alias_id = ? AND `+winnerSQL+`
		ORDER BY t.path, t.position
	`, targetID)
	if err != nil {
		return nil, fmt.Errorf("index: aliases: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AllPaths returns every indexed document path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
