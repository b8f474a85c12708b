package document

import (
	"errors"
	"fmt"
	"slices"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/depth"
	"github.com/starford/tessera/internal/mutation"
)

// Reparent nests b under parentID ("" for root level) and refreshes the depth
// markers of b and its descendants. It is idempotent and rejects cycles.
func (d *Document) Reparent(b *block.Block, parentID string) error {
	index, live, err := d.resolve(b)
	if err != nil {
		return err
	}
	var parent *block.Block
	if parentID != "" {
		if parentID == live.ID() {
			return fmt.Errorf("reparent %q under itself: %w", live.ID(), apperr.ErrInvalidHierarchy)
		}
		p, err := d.BlockByID(parentID)
		if err != nil {
			return fmt.Errorf("reparent: %w", err)
		}
		if d.isAncestor(live.ID(), p) {
			return fmt.Errorf("reparent %q under its descendant %q: %w", live.ID(), parentID, apperr.ErrInvalidHierarchy)
		}
		parent = p
	}
	if live.ParentID() == parentID {
		// Repair a missing back-reference but stay quiet otherwise.
		if parent != nil {
			block.Reparent(live, parent, parent)
		}
		return nil
	}
	d.reparent(live, parent)
	d.emit(mutation.Changed, live, index)
	return nil
}

// reparent is the hierarchy mutation without validation or events.
func (d *Document) reparent(b, parent *block.Block) {
	old := d.blocks.ByID(b.ParentID())
	block.Reparent(b, old, parent)
	d.syncDepth(b)
}

// isAncestor reports whether id is b or one of b's ancestors.
func (d *Document) isAncestor(id string, b *block.Block) bool {
	seen := map[string]bool{}
	for cur := b; cur != nil && !seen[cur.ID()]; cur = d.blocks.ByID(cur.ParentID()) {
		if cur.ID() == id {
			return true
		}
		seen[cur.ID()] = true
	}
	return false
}

// syncDepth rewrites the depth marker of b and every descendant.
func (d *Document) syncDepth(b *block.Block) {
	parents := d.parents()
	seen := map[string]bool{}
	var walk func(x *block.Block)
	walk = func(x *block.Block) {
		if seen[x.ID()] {
			return
		}
		seen[x.ID()] = true
		d.surface.SetDepth(x.Holder(), depth.Of(parents, x.ID()))
		for _, id := range x.ContentIDs() {
			if c := d.blocks.ByID(id); c != nil {
				walk(c)
			}
		}
	}
	walk(b)
}

func (d *Document) parents() map[string]string {
	blocks := d.blocks.Blocks()
	out := make(map[string]string, len(blocks))
	for _, b := range blocks {
		out[b.ID()] = b.ParentID()
	}
	return out
}

// Depth returns b's hierarchy depth, recomputed from parent links.
func (d *Document) Depth(b *block.Block) int {
	return depth.Of(d.parents(), b.ID())
}

// Entries returns the depth model view of the document.
func (d *Document) Entries() depth.Entries {
	parents := d.parents()
	blocks := d.blocks.Blocks()
	out := make(depth.Entries, len(blocks))
	for i, b := range blocks {
		out[i] = depth.Entry{
			Depth:  depth.Of(parents, b.ID()),
			Family: b.Spec().Family,
			Kind:   b.Kind(),
		}
	}
	return out
}

// Descendants returns the ascending indices of every block below the block
// at index.
func (d *Document) Descendants(index int) []int {
	root, err := d.blocks.At(index)
	if err != nil {
		return nil
	}
	var out []int
	for i, b := range d.blocks.Blocks() {
		if i == index {
			continue
		}
		if p := d.blocks.ByID(b.ParentID()); p != nil && d.isAncestor(root.ID(), p) {
			out = append(out, i)
		}
	}
	return out
}

// CheckHierarchy verifies that every parent link resolves, that links are
// acyclic and that parentID and contentIDs agree in both directions.
func (d *Document) CheckHierarchy() error {
	parents := d.parents()
	var errs []error
	for _, b := range d.blocks.Blocks() {
		if _, err := depth.Strict(parents, b.ID()); err != nil {
			errs = append(errs, err)
		}
		if pid := b.ParentID(); pid != "" {
			if p := d.blocks.ByID(pid); p != nil {
				if n := count(p.ContentIDs(), b.ID()); n != 1 {
					errs = append(errs, fmt.Errorf("block %q listed %d times by parent %q: %w", b.ID(), n, pid, apperr.ErrInvalidHierarchy))
				}
			}
		}
		for _, cid := range b.ContentIDs() {
			c := d.blocks.ByID(cid)
			if c == nil || c.ParentID() != b.ID() {
				errs = append(errs, fmt.Errorf("block %q lists child %q that does not point back: %w", b.ID(), cid, apperr.ErrInvalidHierarchy))
			}
		}
	}
	return errors.Join(errs...)
}

func count(ids []string, id string) int {
	n := 0
	for _, x := range ids {
		if x == id {
			n++
		}
	}
	return n
}

// sortedUnique returns the indices ascending without duplicates.
func sortedUnique(in []int) []int {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
