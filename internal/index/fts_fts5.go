//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS thoughts_fts USING fts5(
			id UNINDEXED,
			path UNINDEXED,
			type UNINDEXED,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path string, thoughts []ThoughtRow) error {
	_, _ = tx.Exec(`DELETE FROM thoughts_fts WHERE path = ?`, path)
	for _, t := range thoughts {
		_, err := tx.Exec(`INSERT INTO thoughts_fts (id, path, type, content) VALUES (?, ?, ?, ?)`,
			t.ID, path, t.Type, t.Content)
		if err != nil {
			return fmt.Errorf("index: upsert fts: %w", err)
		}
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM thoughts_fts WHERE path = ?`, path)
}

func dropFTS(conn *sql.DB) error {
	_, err := conn.Exec(`DROP TABLE IF EXISTS thoughts_fts`)
	return err
}

// Search performs an FTS5 full-text search and returns matching thoughts with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id,
		       path,
		       type,
		       snippet(thoughts_fts, 3, '<b>', '</b>', '...', 32)
		FROM thoughts_fts
		WHERE thoughts_fts MATCH ?
		  AND path = (SELECT min(o.path) FROM thoughts o WHERE o.id = thoughts_fts.id)
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
