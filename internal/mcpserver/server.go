// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes tessera document tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tessera/internal/query"
	"github.com/starford/tessera/internal/workspace"
)

// ContractURI addresses the block format resource.
const ContractURI = "tessera://block-format"

// Server wraps the MCP server with tessera tools.
type Server struct {
	mcp *server.MCPServer
	ws  *workspace.Workspace
}

// New creates a new MCP server with all tessera tools registered.
func New(ws *workspace.Workspace) *Server {
	s := &Server{ws: ws}

	s.mcp = server.NewMCPServer(
		"Tessera",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List stored documents with their titles and block counts."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
		mcp.WithString("sort", mcp.Description("Sort field"), mcp.Enum("updated_at", "title")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a document as saved block JSON or Markdown. "+
			"An optional jq filter narrows the JSON, e.g. '.blocks[] | select(.type == \"header\")'."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("jq", mcp.Description("Optional jq filter applied to the document JSON")),
		mcp.WithString("format", mcp.Description("Output format"), mcp.Enum("json", "markdown")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("insert_block",
		mcp.WithDescription("Insert a block. Read the contract first via get_block_contract "+
			"or the tessera://block-format resource."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("type", mcp.Description("Block type (default paragraph)")),
		mcp.WithObject("data", mcp.Description("Block data for the type")),
		mcp.WithNumber("index", mcp.Description("Position to insert at (default: append)")),
		mcp.WithString("parent", mcp.Description("Parent block id for nested list items")),
	), s.insertBlock)

	s.mcp.AddTool(mcp.NewTool("update_block",
		mcp.WithDescription("Patch the data of a block. Fields not given keep their value."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("Block id")),
		mcp.WithObject("data", mcp.Required(), mcp.Description("Fields to change")),
		mcp.WithObject("tunes", mcp.Description("Tune values to change")),
	), s.updateBlock)

	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block, with its nested children, to a new index."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("Block id")),
		mcp.WithNumber("to", mcp.Required(), mcp.Description("Destination index")),
	), s.moveBlock)

	s.mcp.AddTool(mcp.NewTool("remove_block",
		mcp.WithDescription("Remove a block. Removing the last block leaves an empty paragraph."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("Block id")),
	), s.removeBlock)

	s.mcp.AddTool(mcp.NewTool("convert_block",
		mcp.WithDescription("Convert a block to another type, keeping its id and text."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("Block id")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Target block type")),
	), s.convertBlock)

	s.mcp.AddTool(mcp.NewTool("search_blocks",
		mcp.WithDescription("Full-text search through block text and document titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchBlocks)

	s.mcp.AddTool(mcp.NewTool("import_markdown",
		mcp.WithDescription("Create a document from Markdown, or append Markdown to an existing one."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown source")),
		mcp.WithString("document_id", mcp.Description("Existing document id (empty creates a new document)")),
		mcp.WithBoolean("replace", mcp.Description("Replace the existing content instead of appending")),
	), s.importMarkdown)

	s.mcp.AddTool(mcp.NewTool("get_block_contract",
		mcp.WithDescription("Returns the tessera block format contract. "+
			"Call this before inserting or updating blocks to ensure correct structure."),
	), s.getBlockContract)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Block Format Contract",
			mcp.WithResourceDescription("Saved block format that all documents follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readBlockFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func objectArg(req mcp.CallToolRequest, key string) (map[string]any, error) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New(key + " must be an object")
	}
	return m, nil
}

// blockArgs extracts the document and block ids every block tool takes.
func blockArgs(req mcp.CallToolRequest) (docID, blockID string, err error) {
	if docID, err = req.RequireString("document_id"); err != nil {
		return "", "", err
	}
	if blockID, err = req.RequireString("block_id"); err != nil {
		return "", "", err
	}
	return docID, blockID, nil
}

// commit saves the document after a block tool changed it and returns the
// block.
func (s *Server) commit(ctx context.Context, docID string, b *workspace.BlockView) (*mcp.CallToolResult, error) {
	if _, err := s.ws.Save(ctx, docID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if b == nil {
		return mcp.NewToolResultText("ok"), nil
	}
	return jsonResult(b)
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.ws.List(ctx, req.GetInt("limit", 0), req.GetInt("offset", 0), req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"documents": items, "total": total})
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetString("format", "json") == "markdown" {
		md, err := s.ws.ExportMarkdown(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(md)), nil
	}
	doc, err := s.ws.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if src := req.GetString("jq", ""); src != "" {
		out, err := query.Eval(src, doc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(out)
	}
	return jsonResult(doc)
}

func (s *Server) insertBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := objectArg(req, "data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p := workspace.InsertParams{
		Tool:     req.GetString("type", ""),
		Data:     data,
		ParentID: req.GetString("parent", ""),
	}
	if _, ok := req.GetArguments()["index"]; ok {
		i := req.GetInt("index", 0)
		p.Index = &i
	}
	b, err := s.ws.InsertBlock(ctx, docID, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.commit(ctx, docID, b)
}

func (s *Server) updateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, blockID, err := blockArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := objectArg(req, "data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tunes, err := objectArg(req, "tunes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if data == nil && tunes == nil {
		return mcp.NewToolResultError("data or tunes is required"), nil
	}
	b, err := s.ws.UpdateBlock(ctx, docID, blockID, data, tunes)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.commit(ctx, docID, b)
}

func (s *Server) moveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, blockID, err := blockArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireInt("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.ws.MoveBlock(ctx, docID, blockID, to)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.commit(ctx, docID, b)
}

func (s *Server) removeBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, blockID, err := blockArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ws.RemoveBlock(ctx, docID, blockID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.commit(ctx, docID, nil)
}

func (s *Server) convertBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, blockID, err := blockArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tool, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.ws.ConvertBlock(ctx, docID, blockID, tool, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.commit(ctx, docID, b)
}

func (s *Server) searchBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.ws.Search(ctx, q, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) importMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.ws.ImportMarkdown(ctx, req.GetString("document_id", ""), []byte(src), req.GetBool("replace", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc)
}

func (s *Server) contract() string {
	return BlockFormatContract + toolTable(s.ws.Registry())
}

func (s *Server) getBlockContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.contract()), nil
}

func (s *Server) readBlockFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     s.contract(),
		},
	}, nil
}
