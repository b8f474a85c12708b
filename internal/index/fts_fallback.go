//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over blocks.text.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) error { return nil }

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT b.document_id, b.id, d.title, b.tool, substr(b.text, 1, 200)
		FROM blocks b JOIN documents d ON d.id = b.document_id
		WHERE b.text LIKE ? OR d.title LIKE ?
		ORDER BY d.updated_at DESC, b.position
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
