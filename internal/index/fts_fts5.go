//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS blocks_fts USING fts5(
			document_id UNINDEXED,
			block_id UNINDEXED,
			title,
			text,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, documentID, blockID, title, text string) error {
	_, err := tx.Exec(`INSERT INTO blocks_fts (document_id, block_id, title, text) VALUES (?, ?, ?, ?)`,
		documentID, blockID, title, text)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, documentID string) error {
	if _, err := tx.Exec(`DELETE FROM blocks_fts WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching blocks with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT f.document_id,
		       f.block_id,
		       f.title,
		       b.tool,
		       snippet(blocks_fts, 3, '<b>', '</b>', '...', 64)
		FROM blocks_fts f
		JOIN blocks b ON b.document_id = f.document_id AND b.id = f.block_id
		WHERE blocks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
