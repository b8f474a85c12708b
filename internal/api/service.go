package api

import (
	"context"

	"github.com/starford/tessera/internal/index"
	"github.com/starford/tessera/internal/models"
	"github.com/starford/tessera/internal/workspace"
)

// Service is the document surface the handlers call.
type Service interface {
	Create(ctx context.Context, title string, blocks []models.SavedBlock) (*workspace.Detail, error)
	Get(ctx context.Context, id string) (*workspace.Detail, error)
	List(ctx context.Context, limit, offset int, sort string) ([]workspace.ListItem, int, error)
	Replace(ctx context.Context, id, title string, blocks []models.SavedBlock, ifMatch string) (*workspace.Detail, error)
	Delete(ctx context.Context, id string) error
	Save(ctx context.Context, id string) (*workspace.Detail, error)
	Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error)

	ImportMarkdown(ctx context.Context, id string, data []byte, replace bool) (*workspace.Detail, error)
	ExportMarkdown(ctx context.Context, id string) ([]byte, error)

	InsertBlock(ctx context.Context, docID string, p workspace.InsertParams) (*workspace.BlockView, error)
	UpdateBlock(ctx context.Context, docID, blockID string, data, tunes map[string]any) (*workspace.BlockView, error)
	RemoveBlock(ctx context.Context, docID, blockID string) error
	MoveBlock(ctx context.Context, docID, blockID string, to int) (*workspace.BlockView, error)
	ConvertBlock(ctx context.Context, docID, blockID, tool string, overrides map[string]any) (*workspace.BlockView, error)
	MergeBlocks(ctx context.Context, docID, targetID, sourceID string) (bool, *workspace.BlockView, error)
	ReparentBlock(ctx context.Context, docID, blockID, parentID string) (*workspace.BlockView, error)
}

var _ Service = (*workspace.Workspace)(nil)
