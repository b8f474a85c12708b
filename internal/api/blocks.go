package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tessera/internal/workspace"
)

// InsertBlock handles POST /api/documents/{id}/blocks.
//
//	@Summary		Insert a block
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Document id"
//	@Param			body	body		InsertBlockRequest	true	"Block to insert"
//	@Success		201		{object}	BlockView
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/blocks [post]
func (h *Handler) InsertBlock(w http.ResponseWriter, r *http.Request) {
	var req InsertBlockRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, "insert block", err)
		return
	}
	b, err := h.svc.InsertBlock(r.Context(), chi.URLParam(r, "id"), workspace.InsertParams{
		Tool:     req.Type,
		Data:     req.Data,
		Tunes:    req.Tunes,
		Index:    req.Index,
		ParentID: req.ParentID,
	})
	if err != nil {
		writeError(w, r, "insert block", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// UpdateBlock handles PATCH /api/documents/{id}/blocks/{blockID}.
//
//	@Summary		Patch a block's data and tunes
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Document id"
//	@Param			blockID	path		string				true	"Block id"
//	@Param			body	body		UpdateBlockRequest	true	"Patch"
//	@Success		200		{object}	BlockView
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/blocks/{blockID} [patch]
func (h *Handler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	var req UpdateBlockRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, "update block", err)
		return
	}
	b, err := h.svc.UpdateBlock(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "blockID"), req.Data, req.Tunes)
	if err != nil {
		writeError(w, r, "update block", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// RemoveBlock handles DELETE /api/documents/{id}/blocks/{blockID}.
//
//	@Summary		Remove a block
//	@Tags			blocks
//	@Param			id		path	string	true	"Document id"
//	@Param			blockID	path	string	true	"Block id"
//	@Success		204		"Block removed"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/blocks/{blockID} [delete]
func (h *Handler) RemoveBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveBlock(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "blockID")); err != nil {
		writeError(w, r, "remove block", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveBlock handles POST /api/documents/{id}/blocks/{blockID}/move.
//
//	@Summary		Move a block together with its children
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Document id"
//	@Param			blockID	path		string				true	"Block id"
//	@Param			body	body		MoveBlockRequest	true	"Destination index"
//	@Success		200		{object}	BlockView
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/blocks/{blockID}/move [post]
func (h *Handler) MoveBlock(w http.ResponseWriter, r *http.Request) {
	var req MoveBlockRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, "move block", err)
		return
	}
	b, err := h.svc.MoveBlock(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "blockID"), *req.To)
	if err != nil {
		writeError(w, r, "move block", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ConvertBlock handles POST /api/documents/{id}/blocks/{blockID}/convert.
//
//	@Summary		Convert a block to another type
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Document id"
//	@Param			blockID	path		string				true	"Block id"
//	@Param			body	body		ConvertBlockRequest	true	"Target type"
//	@Success		200		{object}	BlockView
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/blocks/{blockID}/convert [post]
func (h *Handler) ConvertBlock(w http.ResponseWriter, r *http.Request) {
	var req ConvertBlockRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, "convert block", err)
		return
	}
	b, err := h.svc.ConvertBlock(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "blockID"), req.Type, req.Data)
	if err != nil {
		writeError(w, r, "convert block", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// MergeBlock handles POST /api/documents/{id}/blocks/{blockID}/merge.
//
//	@Summary		Merge another block into this one
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Document id"
//	@Param			blockID	path		string				true	"Target block id"
//	@Param			body	body		MergeBlockRequest	true	"Source block"
//	@Success		200		{object}	MergeResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/blocks/{blockID}/merge [post]
func (h *Handler) MergeBlock(w http.ResponseWriter, r *http.Request) {
	var req MergeBlockRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, "merge block", err)
		return
	}
	merged, b, err := h.svc.MergeBlocks(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "blockID"), req.Source)
	if err != nil {
		writeError(w, r, "merge block", err)
		return
	}
	writeJSON(w, http.StatusOK, MergeResponse{Merged: merged, Block: b})
}

// ReparentBlock handles POST /api/documents/{id}/blocks/{blockID}/reparent.
//
//	@Summary		Nest a block under another block
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Document id"
//	@Param			blockID	path		string					true	"Block id"
//	@Param			body	body		ReparentBlockRequest	true	"New parent"
//	@Success		200		{object}	BlockView
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/blocks/{blockID}/reparent [post]
func (h *Handler) ReparentBlock(w http.ResponseWriter, r *http.Request) {
	var req ReparentBlockRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, "reparent block", err)
		return
	}
	b, err := h.svc.ReparentBlock(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "blockID"), req.Parent)
	if err != nil {
		writeError(w, r, "reparent block", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
