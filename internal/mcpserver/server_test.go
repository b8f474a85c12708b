package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/tessera/internal/models"
	"github.com/starford/tessera/internal/testutil"
	"github.com/starford/tessera/internal/workspace"
)

func testServer(t *testing.T) (*Server, *workspace.Workspace) {
	t.Helper()
	ws, _, _ := testutil.TestWorkspace(t)
	return New(ws), ws
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_documents":     srv.listDocuments,
		"read_document":      srv.readDocument,
		"insert_block":       srv.insertBlock,
		"update_block":       srv.updateBlock,
		"move_block":         srv.moveBlock,
		"remove_block":       srv.removeBlock,
		"convert_block":      srv.convertBlock,
		"search_blocks":      srv.searchBlocks,
		"import_markdown":    srv.importMarkdown,
		"get_block_contract": srv.getBlockContract,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func seed(t *testing.T, ws *workspace.Workspace) string {
	t.Helper()
	d, err := ws.Create(context.Background(), "Seed", []models.SavedBlock{
		{ID: "h", Tool: "header", Data: map[string]any{"text": "Intro", "level": 2}},
		{ID: "p", Tool: "paragraph", Data: map[string]any{"text": "first paragraph"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return d.ID
}

func TestReadDocumentFormats(t *testing.T) {
	srv, ws := testServer(t)
	id := seed(t, ws)

	r := callTool(t, srv, "read_document", map[string]any{"id": id})
	var doc workspace.Detail
	if err := json.Unmarshal([]byte(resultText(r)), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Title != "Seed" || len(doc.Blocks) != 2 {
		t.Errorf("doc = %+v", doc)
	}

	r = callTool(t, srv, "read_document", map[string]any{"id": id, "jq": `[.blocks[] | select(.type == "header") | .data.text]`})
	if got := strings.Join(strings.Fields(resultText(r)), ""); got != `["Intro"]` {
		t.Errorf("jq = %s", resultText(r))
	}

	r = callTool(t, srv, "read_document", map[string]any{"id": id, "format": "markdown"})
	if !strings.Contains(resultText(r), "## Intro\n\nfirst paragraph\n") {
		t.Errorf("markdown = %q", resultText(r))
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
	r = callTool(t, srv, "read_document", map[string]any{})
	if !r.IsError {
		t.Error("expected error without id")
	}
}

func TestBlockToolsPersist(t *testing.T) {
	srv, ws := testServer(t)
	id := seed(t, ws)

	r := callTool(t, srv, "insert_block", map[string]any{
		"document_id": id,
		"type":        "quote",
		"data":        map[string]any{"text": "wise words", "caption": "someone"},
		"index":       float64(0),
	})
	if r.IsError {
		t.Fatalf("insert: %s", resultText(r))
	}
	var q workspace.BlockView
	_ = json.Unmarshal([]byte(resultText(r)), &q)
	if q.Index != 0 || q.Tool != "quote" {
		t.Errorf("inserted = %+v", q)
	}

	r = callTool(t, srv, "update_block", map[string]any{"document_id": id, "block_id": "p", "data": map[string]any{"text": "edited"}})
	if r.IsError {
		t.Fatalf("update: %s", resultText(r))
	}
	r = callTool(t, srv, "move_block", map[string]any{"document_id": id, "block_id": "p", "to": float64(0)})
	if r.IsError {
		t.Fatalf("move: %s", resultText(r))
	}
	r = callTool(t, srv, "convert_block", map[string]any{"document_id": id, "block_id": "h", "type": "paragraph"})
	if r.IsError {
		t.Fatalf("convert: %s", resultText(r))
	}
	r = callTool(t, srv, "remove_block", map[string]any{"document_id": id, "block_id": q.ID})
	if r.IsError {
		t.Fatalf("remove: %s", resultText(r))
	}

	d, err := ws.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if d.Dirty {
		t.Error("block tools left unsaved changes")
	}
	var got []string
	for _, b := range d.Blocks {
		got = append(got, b.ID+":"+b.Tool)
	}
	if strings.Join(got, ",") != "p:paragraph,h:paragraph" {
		t.Errorf("blocks = %v", got)
	}
}

func TestBlockToolErrors(t *testing.T) {
	srv, ws := testServer(t)
	id := seed(t, ws)

	cases := []struct {
		tool string
		args map[string]any
	}{
		{"insert_block", map[string]any{"document_id": id, "type": "nope"}},
		{"insert_block", map[string]any{"document_id": id, "data": "not an object"}},
		{"update_block", map[string]any{"document_id": id, "block_id": "p"}},
		{"update_block", map[string]any{"document_id": id, "block_id": "zz", "data": map[string]any{"text": "x"}}},
		{"move_block", map[string]any{"document_id": id, "block_id": "p"}},
		{"convert_block", map[string]any{"document_id": id, "block_id": "p", "type": "delimiter"}},
		{"remove_block", map[string]any{"document_id": id}},
	}
	for _, tc := range cases {
		if r := callTool(t, srv, tc.tool, tc.args); !r.IsError {
			t.Errorf("%s %v: expected error, got %s", tc.tool, tc.args, resultText(r))
		}
	}
}

func TestImportAndList(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "import_markdown", map[string]any{"markdown": "---\ntitle: Imported\n---\n\n1. one\n2. two\n"})
	if r.IsError {
		t.Fatalf("import: %s", resultText(r))
	}
	var d workspace.Detail
	_ = json.Unmarshal([]byte(resultText(r)), &d)
	if d.Title != "Imported" || len(d.Blocks) != 2 || d.Blocks[0].Data["style"] != "ordered" {
		t.Errorf("imported = %+v", d)
	}

	r = callTool(t, srv, "import_markdown", map[string]any{"markdown": "3. three\n", "document_id": d.ID})
	_ = json.Unmarshal([]byte(resultText(r)), &d)
	if len(d.Blocks) != 3 {
		t.Errorf("appended blocks = %d", len(d.Blocks))
	}

	r = callTool(t, srv, "list_documents", map[string]any{})
	if !strings.Contains(resultText(r), `"Imported"`) || !strings.Contains(resultText(r), `"total": 1`) {
		t.Errorf("list = %s", resultText(r))
	}
}

func TestSearchBlocks(t *testing.T) {
	srv, ws := testServer(t)
	seed(t, ws)

	r := callTool(t, srv, "search_blocks", map[string]any{"query": "paragraph"})
	if r.IsError || !strings.Contains(resultText(r), `"p"`) {
		t.Errorf("search = %s", resultText(r))
	}
	if r := callTool(t, srv, "search_blocks", map[string]any{}); !r.IsError {
		t.Error("expected error without query")
	}
}

func TestBlockContract(t *testing.T) {
	srv, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_block_contract", nil))
	for _, want := range []string{"Block Format Contract", "| list | list | yes |", "| delimiter | no | no |"} {
		if !strings.Contains(text, want) {
			t.Errorf("contract missing %q", want)
		}
	}
	if strings.Contains(text, "| stub") {
		t.Error("contract lists the stub tool")
	}

	contents, err := srv.readBlockFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != ContractURI || tc.Text != text {
		t.Errorf("resource = %+v", contents[0])
	}
}
