package document

import (
	"log/slog"

	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/mutation"
)

// Remove deletes b. When the document ends up empty and addDefault is set,
// one default block is inserted so the document is never structurally empty.
func (d *Document) Remove(b *block.Block, addDefault bool) error {
	index, _, err := d.resolve(b)
	if err != nil {
		return err
	}
	return d.RemoveAt(index, addDefault)
}

// RemoveAt deletes the block at index.
func (d *Document) RemoveAt(index int, addDefault bool) error {
	b, err := d.blocks.At(index)
	if err != nil {
		return err
	}

	// Listeners still reach the handler state while the event is delivered.
	d.emit(mutation.Removed, b, index)
	d.detachHierarchy(b)
	if _, err := d.blocks.Remove(index); err != nil {
		return err
	}
	b.Destroy()

	if d.current >= index {
		d.current--
	}
	switch {
	case d.blocks.Len() == 0:
		d.current = -1
		if addDefault {
			if _, err := d.Insert("", nil); err != nil {
				return err
			}
		}
	case index == 0:
		d.current = 0
	}
	return nil
}

// RemoveSelected deletes every selected block, highest index first, and
// returns the lowest removed index.
func (d *Document) RemoveSelected() (int, bool) {
	first, found := -1, false
	for i := d.blocks.Len() - 1; i >= 0; i-- {
		b, _ := d.blocks.At(i)
		if !b.Selected() {
			continue
		}
		if err := d.RemoveAt(i, true); err != nil {
			d.logger.Warn("remove selected block failed", slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		first, found = i, true
	}
	return first, found
}

// Clear removes every block one at a time in document order, so removed
// events arrive in order and no removal sees a half-removed sibling.
func (d *Document) Clear(addDefault bool) error {
	for _, b := range d.blocks.Blocks() {
		if err := d.Remove(b, false); err != nil {
			return err
		}
	}
	d.current = -1
	if addDefault {
		_, err := d.Insert("", nil)
		return err
	}
	return nil
}

// detachHierarchy unlinks b from its parent and promotes its children to
// that parent.
func (d *Document) detachHierarchy(b *block.Block) {
	parent := d.blocks.ByID(b.ParentID())
	for _, id := range b.ContentIDs() {
		child := d.blocks.ByID(id)
		if child == nil {
			continue
		}
		block.Reparent(child, b, parent)
		d.syncDepth(child)
	}
	block.Reparent(b, parent, nil)
}
