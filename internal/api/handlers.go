package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/index"
	"github.com/starford/tessera/internal/query"
)

// Handler holds API route handlers.
type Handler struct {
	svc Service
}

// NewHandler creates a new Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func isMarkdown(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "text/markdown")
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", apperr.ErrInvalidInput)
	}
	return data, nil
}

// setETag exposes the stored checksum for If-Match round trips.
func setETag(w http.ResponseWriter, checksum string) {
	if checksum != "" {
		w.Header().Set("ETag", strconv.Quote(checksum))
	}
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, title)
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.List(r.Context(), limit, offset, q.Get("sort"))
	if err != nil {
		writeError(w, r, "list documents", err)
		return
	}
	if items == nil {
		items = []DocumentListItem{}
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// CreateDocument handles POST /api/documents. A text/markdown body is
// imported as a new document.
//
//	@Summary		Create a new document
//	@Tags			documents
//	@Accept			json,text/markdown
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if isMarkdown(r) {
		data, err := readBody(w, r)
		if err != nil {
			writeError(w, r, "create document", err)
			return
		}
		doc, err := h.svc.ImportMarkdown(r.Context(), "", data, false)
		if err != nil {
			writeError(w, r, "create document", err)
			return
		}
		setETag(w, doc.Checksum)
		writeJSON(w, http.StatusCreated, doc)
		return
	}

	var req CreateDocumentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, "create document", err)
		return
	}
	doc, err := h.svc.Create(r.Context(), req.Title, req.Blocks)
	if err != nil {
		writeError(w, r, "create document", err)
		return
	}
	setETag(w, doc.Checksum)
	writeJSON(w, http.StatusCreated, doc)
}

// GetDocument handles GET /api/documents/{id}. The jq query parameter runs
// a jq filter over the document and returns its result instead.
//
//	@Summary		Get a single document
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Param			jq	query		string	false	"jq filter"
//	@Success		200	{object}	DocumentDetail
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "get document", err)
		return
	}
	setETag(w, doc.Checksum)
	if src := r.URL.Query().Get("jq"); src != "" {
		out, err := query.Eval(src, doc)
		if err != nil {
			writeError(w, r, "get document", err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ReplaceDocument handles PUT /api/documents/{id}.
//
//	@Summary		Replace a document with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string					true	"Document id"
//	@Param			If-Match	header		string					false	"Checksum for optimistic concurrency"
//	@Param			body		body		ReplaceDocumentRequest	true	"New content"
//	@Success		200			{object}	DocumentDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [put]
func (h *Handler) ReplaceDocument(w http.ResponseWriter, r *http.Request) {
	var req ReplaceDocumentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, "replace document", err)
		return
	}
	doc, err := h.svc.Replace(r.Context(), chi.URLParam(r, "id"), req.Title, req.Blocks, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, r, "replace document", err)
		return
	}
	setETag(w, doc.Checksum)
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/{id}.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Param			id	path	string	true	"Document id"
//	@Success		204	"Document deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveDocument handles POST /api/documents/{id}/save.
//
//	@Summary		Persist the open document
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	DocumentDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/save [post]
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Save(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "save document", err)
		return
	}
	setETag(w, doc.Checksum)
	writeJSON(w, http.StatusOK, doc)
}

// ExportMarkdown handles GET /api/documents/{id}/markdown.
//
//	@Summary		Export a document as Markdown
//	@Tags			markdown
//	@Produce		text/markdown
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/markdown [get]
func (h *Handler) ExportMarkdown(w http.ResponseWriter, r *http.Request) {
	md, err := h.svc.ExportMarkdown(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "export markdown", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(md)
}

// ImportMarkdown handles POST /api/documents/{id}/import.
//
//	@Summary		Import Markdown into a document
//	@Tags			markdown
//	@Accept			text/markdown
//	@Produce		json
//	@Param			id		path		string	true	"Document id"
//	@Param			replace	query		bool	false	"Replace the content instead of appending"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/import [post]
func (h *Handler) ImportMarkdown(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, r, "import markdown", err)
		return
	}
	replace, _ := strconv.ParseBool(r.URL.Query().Get("replace"))
	doc, err := h.svc.ImportMarkdown(r.Context(), chi.URLParam(r, "id"), data, replace)
	if err != nil {
		writeError(w, r, "import markdown", err)
		return
	}
	setETag(w, doc.Checksum)
	writeJSON(w, http.StatusOK, doc)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across blocks
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, r, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
