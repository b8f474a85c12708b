package document

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/models"
	"github.com/starford/tessera/internal/tools"
)

// Load replaces the document content with saved blocks. Blocks of unknown
// tools, or whose tool fails to build, become stub blocks that keep their
// data. The hierarchy is rebuilt through reparenting in contentIDs order.
// An empty result gets one default block.
func (d *Document) Load(ctx context.Context, saved []models.SavedBlock) error {
	if err := d.Clear(false); err != nil {
		return err
	}
	blocks := make([]*block.Block, 0, len(saved))
	seen := make(map[string]bool, len(saved))
	for _, s := range saved {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.ID != "" && seen[s.ID] {
			d.logger.Warn("duplicate block id dropped", slog.String("block", s.ID))
			continue
		}
		b, err := d.compose(s.Tool, s.Data, s.ID, s.Tunes)
		if err != nil {
			if !errors.Is(err, apperr.ErrToolNotFound) {
				d.logger.Warn("block build failed, using stub", slog.String("tool", s.Tool), slog.String("error", err.Error()))
			}
			b, err = d.compose(block.StubName, tools.StubData(s.ID, s.Tool, s.Data), s.ID, s.Tunes)
			if err != nil {
				return err
			}
		}
		seen[b.ID()] = true
		blocks = append(blocks, b)
	}
	if err := d.InsertMany(blocks, 0); err != nil {
		return err
	}

	for _, s := range saved {
		parent := d.blocks.ByID(s.ID)
		if parent == nil {
			continue
		}
		for _, cid := range s.ContentIDs {
			d.linkLoaded(cid, parent)
		}
	}
	for _, s := range saved {
		if s.ParentID == "" {
			continue
		}
		if parent := d.blocks.ByID(s.ParentID); parent != nil {
			d.linkLoaded(s.ID, parent)
		}
	}

	d.current = -1
	if d.blocks.Len() == 0 && !d.readOnly {
		if _, err := d.Insert("", nil); err != nil {
			return err
		}
	}
	return nil
}

// linkLoaded nests the block with id under parent unless it already has a
// parent or that would form a cycle.
func (d *Document) linkLoaded(id string, parent *block.Block) {
	child := d.blocks.ByID(id)
	if child == nil || child == parent || child.ParentID() != "" {
		return
	}
	if d.isAncestor(child.ID(), parent) {
		d.logger.Warn("cyclic hierarchy link dropped", slog.String("block", id), slog.String("parent", parent.ID()))
		return
	}
	d.reparent(child, parent)
}
