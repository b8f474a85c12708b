package workspace

import (
	"context"
	"fmt"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/document"
	"github.com/starford/tessera/internal/models"
	"github.com/starford/tessera/internal/sanitize"
)

// BlockView is one block as the outer surfaces report it.
type BlockView struct {
	Index int `json:"index"`
	models.SavedBlock
}

// InsertParams describes a block to insert. A nil Index appends.
type InsertParams struct {
	Tool     string
	Data     map[string]any
	Tunes    map[string]any
	Index    *int
	ParentID string
}

// InsertBlock adds a block built from sanitized data.
func (w *Workspace) InsertBlock(ctx context.Context, docID string, p InsertParams) (*BlockView, error) {
	var out *BlockView
	err := w.Apply(ctx, docID, func(d *document.Document) error {
		spec, err := w.spec(p.Tool)
		if err != nil {
			return err
		}
		at := d.Len()
		if p.Index != nil {
			at = *p.Index
			if at < 0 || at > d.Len() {
				return fmt.Errorf("insert at %d of %d: %w", at, d.Len(), apperr.ErrIndexOutOfRange)
			}
		}
		opts := []document.InsertOption{document.WithIndex(at)}
		if p.Tunes != nil {
			opts = append(opts, document.WithTunes(p.Tunes))
		}
		if p.ParentID != "" {
			if _, err := d.BlockByID(p.ParentID); err != nil {
				return err
			}
			opts = append(opts, document.WithParent(p.ParentID))
		}
		b, err := d.Insert(spec.Name, sanitize.Data(p.Data, spec.Sanitize), opts...)
		if err != nil {
			return err
		}
		out, err = blockView(ctx, d, b)
		return err
	})
	return out, err
}

// UpdateBlock patches a block's data and tunes. The block keeps its id.
func (w *Workspace) UpdateBlock(ctx context.Context, docID, blockID string, data, tunes map[string]any) (*BlockView, error) {
	var out *BlockView
	err := w.Apply(ctx, docID, func(d *document.Document) error {
		b, err := d.BlockByID(blockID)
		if err != nil {
			return err
		}
		if data != nil {
			data = sanitize.Data(data, b.Spec().Sanitize)
		}
		next, err := d.Update(ctx, b, data, tunes)
		if err != nil {
			return err
		}
		out, err = blockView(ctx, d, next)
		return err
	})
	return out, err
}

// RemoveBlock deletes a block. Removing the last block leaves a default one.
func (w *Workspace) RemoveBlock(ctx context.Context, docID, blockID string) error {
	return w.Apply(ctx, docID, func(d *document.Document) error {
		b, err := d.BlockByID(blockID)
		if err != nil {
			return err
		}
		return d.Remove(b, true)
	})
}

// MoveBlock moves a block so it ends at index to. Its descendants move with
// it when it has any.
func (w *Workspace) MoveBlock(ctx context.Context, docID, blockID string, to int) (*BlockView, error) {
	var out *BlockView
	err := w.Apply(ctx, docID, func(d *document.Document) error {
		b, err := d.BlockByID(blockID)
		if err != nil {
			return err
		}
		from := d.IndexOf(b)
		if to < 0 || to >= d.Len() {
			return fmt.Errorf("move to %d of %d: %w", to, d.Len(), apperr.ErrIndexOutOfRange)
		}
		if kids := d.Descendants(from); len(kids) == 0 {
			err = d.Move(to, from, false)
		} else {
			err = moveGroup(d, append([]int{from}, kids...), to)
		}
		if err != nil {
			return err
		}
		out, err = blockView(ctx, d, b)
		return err
	})
	return out, err
}

// moveGroup moves the subtree rooted at sources[0] so the root lands at to,
// keeping the root's depth.
func moveGroup(d *document.Document, sources []int, to int) error {
	root := sources[0]
	depthNow := d.Entries()[root].Depth
	after := to - 1
	if to > root {
		// Indices after the group shift left once it is taken out.
		after = to + len(sources) - 1
	}
	if after >= d.Len() {
		after = d.Len() - 1
	}
	return d.MoveGroup(sources, after, depthNow)
}

// ConvertBlock turns a block into another tool through the conversion
// configs.
func (w *Workspace) ConvertBlock(ctx context.Context, docID, blockID, tool string, overrides map[string]any) (*BlockView, error) {
	var out *BlockView
	err := w.Apply(ctx, docID, func(d *document.Document) error {
		b, err := d.BlockByID(blockID)
		if err != nil {
			return err
		}
		next, err := d.Convert(ctx, b, tool, overrides)
		if err != nil {
			return err
		}
		out, err = blockView(ctx, d, next)
		return err
	})
	return out, err
}

// MergeBlocks merges source into target. merged is false when no merge path
// applies; the document is then unchanged.
func (w *Workspace) MergeBlocks(ctx context.Context, docID, targetID, sourceID string) (bool, *BlockView, error) {
	var (
		out    *BlockView
		merged bool
	)
	err := w.Apply(ctx, docID, func(d *document.Document) error {
		target, err := d.BlockByID(targetID)
		if err != nil {
			return err
		}
		source, err := d.BlockByID(sourceID)
		if err != nil {
			return err
		}
		if merged, err = d.Merge(ctx, target, source); err != nil {
			return err
		}
		out, err = blockView(ctx, d, target)
		return err
	})
	return merged, out, err
}

// ReparentBlock nests a block under parentID, or un-nests it when parentID
// is empty.
func (w *Workspace) ReparentBlock(ctx context.Context, docID, blockID, parentID string) (*BlockView, error) {
	var out *BlockView
	err := w.Apply(ctx, docID, func(d *document.Document) error {
		b, err := d.BlockByID(blockID)
		if err != nil {
			return err
		}
		if err := d.Reparent(b, parentID); err != nil {
			return err
		}
		out, err = blockView(ctx, d, b)
		return err
	})
	return out, err
}

func (w *Workspace) spec(tool string) (*block.ToolSpec, error) {
	if tool == "" {
		return w.reg.Default()
	}
	return w.reg.Tool(tool)
}

func blockView(ctx context.Context, d *document.Document, b *block.Block) (*BlockView, error) {
	saved, err := b.Save(ctx)
	if err != nil {
		return nil, err
	}
	return &BlockView{
		Index: d.IndexOf(b),
		SavedBlock: models.SavedBlock{
			ID:         b.ID(),
			Tool:       b.Name(),
			Data:       saved.Data,
			Tunes:      saved.Tunes,
			ParentID:   b.ParentID(),
			ContentIDs: b.ContentIDs(),
		},
	}, nil
}
