//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; full-text search uses LIKE fallback on thoughts.content.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ string, _ []ThoughtRow) error {
	// Content is already stored in the thoughts table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

func dropFTS(_ *sql.DB) error { return nil }

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT t.id, t.path, t.type, substr(t.content, 1, 200)
		FROM thoughts t
		WHERE (t.content LIKE ? OR t.id LIKE ? OR t.type LIKE ?) AND `+winnerSQL+`
		ORDER BY t.path, t.position
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Path, &r.Type, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
