package document

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/block"
)

// Move relocates the block at from so it ends at index to, focuses it and
// emits moved.
func (d *Document) Move(to, from int, skipSync bool) error {
	n := d.blocks.Len()
	if to < 0 || to >= n || from < 0 || from >= n {
		return fmt.Errorf("move %d to %d of %d: %w", from, to, n, apperr.ErrIndexOutOfRange)
	}
	b, _ := d.blocks.At(from)
	if err := d.blocks.Move(to, from, skipSync); err != nil {
		return err
	}
	d.current = to
	d.emitMoved(b, from, to)
	return nil
}

// MoveCurrent moves the current block to index to.
func (d *Document) MoveCurrent(to int) error {
	return d.Move(to, d.current, false)
}

func (d *Document) checkGroup(from []int, after int) ([]int, error) {
	n := d.blocks.Len()
	sources := sortedUnique(from)
	if len(sources) == 0 {
		return nil, fmt.Errorf("move group: no blocks: %w", apperr.ErrIndexOutOfRange)
	}
	if sources[0] < 0 || sources[len(sources)-1] >= n {
		return nil, fmt.Errorf("move group: sources %v of %d: %w", sources, n, apperr.ErrIndexOutOfRange)
	}
	if after < -1 || after >= n {
		return nil, fmt.Errorf("move group: after %d of %d: %w", after, n, apperr.ErrIndexOutOfRange)
	}
	return sources, nil
}

// anchor returns the nearest block at or before after that is not a source,
// or nil when the group goes first.
func (d *Document) anchor(sources []int, after int) *block.Block {
	in := make(map[int]bool, len(sources))
	for _, s := range sources {
		in[s] = true
	}
	for i := after; i >= 0; i-- {
		if !in[i] {
			b, _ := d.blocks.At(i)
			return b
		}
	}
	return nil
}

// MoveGroup moves the blocks at from, keeping their relative order, so they
// sit right after the block at index after (-1 for the start). Roots of the
// group are re-nested for the requested depth. One moved event is emitted per
// block that actually changes position; the first moved block becomes current.
func (d *Document) MoveGroup(from []int, after, depthWanted int) error {
	sources, err := d.checkGroup(from, after)
	if err != nil {
		return err
	}
	group := make([]*block.Block, len(sources))
	for i, s := range sources {
		group[i], _ = d.blocks.At(s)
	}

	prev := d.anchor(sources, after)
	for _, b := range group {
		ci := d.blocks.IndexOf(b)
		to := 0
		if prev != nil {
			ai := d.blocks.IndexOf(prev)
			to = ai + 1
			if ci < ai {
				to = ai
			}
		}
		if ci != to {
			if err := d.blocks.Move(to, ci, false); err != nil {
				return err
			}
			d.emitMoved(b, ci, to)
		}
		prev = b
	}

	d.nestGroup(group, depthWanted)
	d.current = d.blocks.IndexOf(group[0])
	return nil
}

// nestGroup reparents the blocks of group whose parent is outside the group
// so they land at depthWanted below whatever precedes the group.
func (d *Document) nestGroup(group []*block.Block, depthWanted int) {
	inGroup := make(map[string]bool, len(group))
	for _, b := range group {
		inGroup[b.ID()] = true
	}
	parent := d.parentForDepth(d.blocks.IndexOf(group[0]), depthWanted)
	for _, b := range group {
		if inGroup[b.ParentID()] {
			continue
		}
		pid := ""
		if parent != nil {
			pid = parent.ID()
		}
		if b.ParentID() == pid {
			continue
		}
		if err := d.Reparent(b, pid); err != nil {
			d.logger.Warn("nest moved block failed", slog.String("block", b.ID()), slog.String("error", err.Error()))
		}
	}
}

// parentForDepth picks the parent a block inserted at index needs to sit at
// depth: the nearest preceding block one level up, or the closest shallower
// block when the chain is too short.
func (d *Document) parentForDepth(index, want int) *block.Block {
	if want <= 0 {
		return nil
	}
	for i := index - 1; i >= 0; i-- {
		b, _ := d.blocks.At(i)
		bd := d.Depth(b)
		if bd <= want-1 {
			return b
		}
	}
	return nil
}

// Duplicate copies the blocks at from (with fresh ids) to sit right after the
// block at index after. Hierarchy links inside the set are remapped to the
// copies; roots are nested for depthWanted. The first copy becomes current.
func (d *Document) Duplicate(ctx context.Context, from []int, after, depthWanted int) ([]*block.Block, error) {
	sources, err := d.checkGroup(from, after)
	if err != nil {
		return nil, err
	}
	saved := make([]block.Saved, len(sources))
	originals := make([]*block.Block, len(sources))
	ids := make(map[string]string, len(sources))
	for i, s := range sources {
		b, _ := d.blocks.At(s)
		out, err := b.Save(ctx)
		if err != nil {
			return nil, err
		}
		saved[i], originals[i] = out, b
		ids[b.ID()] = uuid.NewString()
	}

	copies := make([]*block.Block, 0, len(saved))
	for i, s := range saved {
		c, err := d.Insert(s.Tool, s.Data,
			WithIndex(after+1+i),
			WithID(ids[s.ID]),
			WithTunes(maps.Clone(s.Tunes)),
			WithoutFocus(),
		)
		if err != nil {
			return copies, err
		}
		copies = append(copies, c)
	}

	parent := d.parentForDepth(after+1, depthWanted)
	for i, c := range copies {
		pid := ""
		if mapped, ok := ids[originals[i].ParentID()]; ok {
			pid = mapped
		} else if parent != nil {
			pid = parent.ID()
		}
		if pid == "" {
			continue
		}
		if err := d.Reparent(c, pid); err != nil {
			d.logger.Warn("nest duplicated block failed", slog.String("block", c.ID()), slog.String("error", err.Error()))
		}
	}
	d.current = after + 1
	return copies, nil
}
