package api

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tessera/internal/index"
	"github.com/starford/tessera/internal/models"
	"github.com/starford/tessera/internal/workspace"
)

// DocumentDetail is the full document response (aliased from the workspace).
type DocumentDetail = workspace.Detail

// DocumentListItem is one entry of a listing (aliased from the workspace).
type DocumentListItem = workspace.ListItem

// BlockView is a single block with its position.
type BlockView = workspace.BlockView

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// MergeResponse reports whether a merge applied and the resulting target.
type MergeResponse struct {
	Merged bool       `json:"merged"`
	Block  *BlockView `json:"block"`
}

var errBlankTool = errors.New("block type is required")

func savedBlockRule(v any) error {
	b, ok := v.(models.SavedBlock)
	if !ok || b.Tool == "" {
		return errBlankTool
	}
	return nil
}

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Title  string              `json:"title" example:"Meeting notes"`
	Blocks []models.SavedBlock `json:"blocks"`
}

// Validate implements validation.Validatable.
func (r CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(0, 200)),
		validation.Field(&r.Blocks, validation.Each(validation.By(savedBlockRule))),
	)
}

// ReplaceDocumentRequest is the request body for replacing a document.
type ReplaceDocumentRequest struct {
	Title  string              `json:"title"`
	Blocks []models.SavedBlock `json:"blocks" validate:"required"`
}

// Validate implements validation.Validatable.
func (r ReplaceDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(0, 200)),
		validation.Field(&r.Blocks, validation.NotNil, validation.Each(validation.By(savedBlockRule))),
	)
}

// InsertBlockRequest is the request body for inserting a block. An absent
// index appends.
type InsertBlockRequest struct {
	Type     string         `json:"type" example:"paragraph"`
	Data     map[string]any `json:"data"`
	Tunes    map[string]any `json:"tunes"`
	Index    *int           `json:"index"`
	ParentID string         `json:"parent"`
}

// Validate implements validation.Validatable.
func (r InsertBlockRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Index, validation.Min(0)),
	)
}

// UpdateBlockRequest patches a block's data and tunes.
type UpdateBlockRequest struct {
	Data  map[string]any `json:"data"`
	Tunes map[string]any `json:"tunes"`
}

// Validate implements validation.Validatable.
func (r UpdateBlockRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Data, validation.Required.When(r.Tunes == nil).Error("data or tunes is required")),
	)
}

// MoveBlockRequest moves a block to index To.
type MoveBlockRequest struct {
	To *int `json:"to" example:"0"`
}

// Validate implements validation.Validatable.
func (r MoveBlockRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.To, validation.NotNil, validation.Min(0)),
	)
}

// ConvertBlockRequest converts a block to another tool.
type ConvertBlockRequest struct {
	Type string         `json:"type" example:"header"`
	Data map[string]any `json:"data"`
}

// Validate implements validation.Validatable.
func (r ConvertBlockRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required),
	)
}

// MergeBlockRequest merges the Source block into the addressed block.
type MergeBlockRequest struct {
	Source string `json:"source"`
}

// Validate implements validation.Validatable.
func (r MergeBlockRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Source, validation.Required),
	)
}

// ReparentBlockRequest nests a block under Parent. An empty Parent un-nests.
type ReparentBlockRequest struct {
	Parent string `json:"parent"`
}
