package index

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/models"
	"github.com/starford/tessera/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "tessera-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func docJSON(t *testing.T, title string, blocks ...models.SavedBlock) []byte {
	t.Helper()
	data, err := json.Marshal(models.Document{Title: title, Output: models.Output{Blocks: blocks, Version: models.Version}})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM blocks`).Scan(&count); err != nil {
		t.Fatalf("blocks table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{ID: "hello", Title: "Hello World", Checksum: "abc123", UpdatedAt: time.Now()}
	blocks := []BlockRow{{ID: "b1", Position: 0, Tool: "paragraph", Text: "hello world"}}
	if err := db.UpsertDocument(row, blocks); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksum("hello")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
	d, err := db.GetDocument("hello")
	if err != nil {
		t.Fatal(err)
	}
	if d.BlockCount != 1 || d.Title != "Hello World" {
		t.Errorf("document = %+v", d)
	}
}

func TestUpsertReplacesBlocks(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{ID: "up", Checksum: "1", UpdatedAt: now},
		[]BlockRow{{ID: "a", Tool: "paragraph", Text: "old"}, {ID: "b", Position: 1, Tool: "paragraph", Text: "old2"}})
	_ = db.UpsertDocument(DocumentRow{ID: "up", Checksum: "2", UpdatedAt: now},
		[]BlockRow{{ID: "c", Tool: "header", Text: "new"}})

	blocks, err := db.Blocks("up")
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 || blocks[0].ID != "c" || blocks[0].DocumentID != "up" {
		t.Errorf("blocks = %+v", blocks)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{ID: "del", Checksum: "x", UpdatedAt: time.Now()}, []BlockRow{{ID: "a", Tool: "paragraph"}})
	if err := db.DeleteDocument("del"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if cs, _ := db.GetChecksum("del"); cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	if blocks, _ := db.Blocks("del"); len(blocks) != 0 {
		t.Errorf("blocks survived delete: %v", blocks)
	}
	if _, err := db.GetDocument("del"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetDocument = %v", err)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestListDocuments(t *testing.T) {
	db := testDB(t)
	base := time.Now()
	_ = db.UpsertDocument(DocumentRow{ID: "1", Title: "beta", UpdatedAt: base}, nil)
	_ = db.UpsertDocument(DocumentRow{ID: "2", Title: "Alpha", UpdatedAt: base.Add(time.Minute)}, nil)
	_ = db.UpsertDocument(DocumentRow{ID: "3", Title: "gamma", UpdatedAt: base.Add(-time.Minute)}, nil)

	rows, total, err := db.ListDocuments(2, 0, "title")
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(rows) != 2 || rows[0].Title != "Alpha" || rows[1].Title != "beta" {
		t.Errorf("by title: total %d rows %+v", total, rows)
	}
	rows, _, _ = db.ListDocuments(10, 0, "")
	if rows[0].ID != "2" || rows[2].ID != "3" {
		t.Errorf("by updated: %+v", rows)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{ID: "s", Title: "Search Me", Checksum: "1", UpdatedAt: time.Now()},
		[]BlockRow{{ID: "x", Tool: "paragraph", Text: "nothing"}, {ID: "y", Position: 1, Tool: "quote", Text: "uniqueword appears here"}})

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].DocumentID != "s" || results[0].BlockID != "y" || results[0].Tool != "quote" {
		t.Errorf("search results = %+v, want 1 hit for block y", results)
	}
}

func TestRowsComputeDepthAndText(t *testing.T) {
	doc := models.Document{Title: "T", Output: models.Output{Blocks: []models.SavedBlock{
		{ID: "a", Tool: "list", Data: map[string]any{"text": "<b>top</b>", "style": "ordered"}},
		{ID: "b", Tool: "list", Data: map[string]any{"text": "child"}, ParentID: "a"},
		{ID: "q", Tool: "quote", Data: map[string]any{"text": "said", "caption": "me", "alignment": "left"}},
	}}}
	row, blocks := Rows("d", doc, "cs", time.Time{})
	if row.BlockCount != 3 || row.UpdatedAt.IsZero() {
		t.Errorf("row = %+v", row)
	}
	if blocks[0].Text != "top" || blocks[1].Depth != 1 || blocks[2].Text != "said me" {
		t.Errorf("blocks = %+v", blocks)
	}
}

func TestSyncAddsAndRemoves(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("one", docJSON(t, "One", models.SavedBlock{ID: "b", Tool: "paragraph", Data: map[string]any{"text": "hi"}}))
	_ = db.UpsertDocument(DocumentRow{ID: "stale", Checksum: "z", UpdatedAt: time.Now()}, nil)

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum("one"); cs == "" {
		t.Error("one not indexed")
	}
	if cs, _ := db.GetChecksum("stale"); cs != "" {
		t.Error("stale entry kept")
	}
}
