package document

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/models"
	"github.com/starford/tessera/internal/tools"
)

// Save extracts every block concurrently and returns them in document order.
// Blocks whose validator rejects them are skipped. Stub blocks report the
// original block they stand in for.
func (d *Document) Save(ctx context.Context) (models.Output, error) {
	blocks := d.blocks.Blocks()
	results := make([]*models.SavedBlock, len(blocks))

	g, gctx := errgroup.WithContext(ctx)
	if d.saveConcurrency > 0 {
		g.SetLimit(d.saveConcurrency)
	}
	for i, b := range blocks {
		g.Go(func() error {
			saved, err := b.Save(gctx)
			if err != nil {
				return fmt.Errorf("save block %s: %w", b.ID(), err)
			}
			if b.IsStub() {
				results[i] = stubOutput(b, saved)
				return nil
			}
			if !b.Validate(gctx, saved.Data) {
				d.logger.Warn("block skipped by validation",
					slog.String("block", b.ID()), slog.String("tool", b.Name()))
				return nil
			}
			results[i] = &models.SavedBlock{
				ID:         saved.ID,
				Tool:       saved.Tool,
				Data:       saved.Data,
				Tunes:      nonEmpty(saved.Tunes),
				ParentID:   b.ParentID(),
				ContentIDs: b.ContentIDs(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Output{}, err
	}

	out := models.Output{Time: time.Now().UnixMilli(), Version: models.Version, Blocks: []models.SavedBlock{}}
	for _, r := range results {
		if r != nil {
			out.Blocks = append(out.Blocks, *r)
		}
	}
	return out, nil
}

func stubOutput(b *block.Block, saved block.Saved) *models.SavedBlock {
	tool, data, ok := tools.Unstub(saved.Data)
	if !ok {
		tool, data = saved.Tool, saved.Data
	}
	return &models.SavedBlock{
		ID:         b.ID(),
		Tool:       tool,
		Data:       data,
		Tunes:      nonEmpty(saved.Tunes),
		ParentID:   b.ParentID(),
		ContentIDs: b.ContentIDs(),
	}
}

func nonEmpty(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}
