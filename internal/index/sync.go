package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/tessera/internal/checksum"
	"github.com/starford/tessera/internal/depth"
	"github.com/starford/tessera/internal/models"
	"github.com/starford/tessera/internal/sanitize"
	"github.com/starford/tessera/internal/storage"
)

// Sync walks the document store and brings the index up to date:
//   - new/changed documents are decoded and upserted
//   - documents removed from disk are deleted from the index
func Sync(db DocumentIndex, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.ID] = struct{}{}

		if checksums[m.ID] == m.Checksum {
			continue
		}

		data, err := store.Read(m.ID)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("id", m.ID), slog.String("error", err.Error()))
			continue
		}
		if err := Put(db, m.ID, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("id", m.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("id", m.ID))
		}
	}

	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if err := db.DeleteDocument(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("id", id))
			}
		}
	}

	return nil
}

// Put decodes a stored document and upserts it with its blocks.
func Put(db DocumentIndex, id string, data []byte, updated time.Time) error {
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("index: decode %s: %w", id, err)
	}
	row, blocks := Rows(id, doc, checksum.Sum(data), updated)
	return db.UpsertDocument(row, blocks)
}

// Rows flattens doc into index rows.
func Rows(id string, doc models.Document, cs string, updated time.Time) (DocumentRow, []BlockRow) {
	if updated.IsZero() {
		updated = time.Now()
	}
	parents := make(map[string]string, len(doc.Blocks))
	for _, b := range doc.Blocks {
		parents[b.ID] = b.ParentID
	}
	blocks := make([]BlockRow, 0, len(doc.Blocks))
	for i, b := range doc.Blocks {
		blocks = append(blocks, BlockRow{
			ID:         b.ID,
			DocumentID: id,
			Position:   i,
			Tool:       b.Tool,
			ParentID:   b.ParentID,
			Depth:      depth.Of(parents, b.ID),
			Text:       blockText(b.Data),
		})
	}
	return DocumentRow{
		ID:         id,
		Title:      doc.Title,
		Checksum:   cs,
		BlockCount: len(blocks),
		UpdatedAt:  updated,
	}, blocks
}

// textFields are the data keys whose content is searchable.
var textFields = []string{"text", "caption", "title"}

// blockText joins the plain text of the searchable fields.
func blockText(data map[string]any) string {
	var parts []string
	for _, k := range textFields {
		v, _ := data[k].(string)
		if s := strings.TrimSpace(sanitize.PlainText(v)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
