package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/tessera/internal/apperr"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Checksum   string    `json:"checksum"`
	BlockCount int       `json:"block_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BlockRow represents a row in the blocks table.
type BlockRow struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Position   int    `json:"position"`
	Tool       string `json:"tool"`
	ParentID   string `json:"parent_id,omitempty"`
	Depth      int    `json:"depth"`
	Text       string `json:"text"`
}

// SearchResult represents one block-level search hit.
type SearchResult struct {
	DocumentID string `json:"document_id"`
	BlockID    string `json:"block_id"`
	Title      string `json:"title"`
	Tool       string `json:"tool"`
	Snippet    string `json:"snippet"`
}

// scanResults reads search rows selected as (document_id, block_id, title,
// tool, snippet) and closes them.
func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.DocumentID, &r.BlockID, &r.Title, &r.Tool, &r.Snippet); err != nil {
			return nil, fmt.Errorf("index: scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertDocument replaces a document row and all of its blocks within a
// transaction.
func (db *DB) UpsertDocument(d DocumentRow, blocks []BlockRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (id, title, checksum, block_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title       = excluded.title,
			checksum    = excluded.checksum,
			block_count = excluded.block_count,
			updated_at  = excluded.updated_at
	`, d.ID, d.Title, d.Checksum, len(blocks), d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM blocks WHERE document_id = ?`, d.ID); err != nil {
		return fmt.Errorf("index: clear blocks: %w", err)
	}
	if err := ftsDelete(tx, d.ID); err != nil {
		return err
	}
	if len(blocks) > 0 {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO blocks (id, document_id, position, tool, parent_id, depth, text)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare block insert: %w", err)
		}
		defer stmt.Close()
		for _, b := range blocks {
			if _, err := stmt.Exec(b.ID, d.ID, b.Position, b.Tool, b.ParentID, b.Depth, b.Text); err != nil {
				return fmt.Errorf("index: insert block: %w", err)
			}
			if err := ftsUpsert(tx, d.ID, b.ID, d.Title, b.Text); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its blocks, and its FTS entries.
func (db *DB) DeleteDocument(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM blocks WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("index: delete blocks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if
// it is not indexed.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE id = ?`, id).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetDocument returns one document row.
func (db *DB) GetDocument(id string) (*DocumentRow, error) {
	var d DocumentRow
	err := db.conn.QueryRow(`
		SELECT id, title, checksum, block_count, updated_at FROM documents WHERE id = ?
	`, id).Scan(&d.ID, &d.Title, &d.Checksum, &d.BlockCount, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns a page of documents and the total count. sort is
// "title" or "updated" (most recent first, the default).
func (db *DB) ListDocuments(limit, offset int, sort string) ([]DocumentRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	order := "updated_at DESC, id"
	if sort == "title" {
		order = "title COLLATE NOCASE, id"
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, title, checksum, block_count, updated_at
		FROM documents ORDER BY `+order+` LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.ID, &d.Title, &d.Checksum, &d.BlockCount, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// Blocks returns the indexed blocks of a document in position order.
func (db *DB) Blocks(documentID string) ([]BlockRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, document_id, position, tool, parent_id, depth, text
		FROM blocks WHERE document_id = ? ORDER BY position`, documentID)
	if err != nil {
		return nil, fmt.Errorf("index: blocks: %w", err)
	}
	defer rows.Close()

	var out []BlockRow
	for rows.Next() {
		var b BlockRow
		if err := rows.Scan(&b.ID, &b.DocumentID, &b.Position, &b.Tool, &b.ParentID, &b.Depth, &b.Text); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// AllChecksums returns id → checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}
