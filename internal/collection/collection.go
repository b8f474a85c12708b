// Package collection keeps the ordered block sequence and its visual
// placement in step.
package collection

import (
	"fmt"
	"slices"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/view"
)

// Collection is the ordered, index-addressable block store. It is not safe
// for concurrent mutation.
type Collection struct {
	blocks  []*block.Block
	surface view.Surface
}

// New creates an empty collection placing holders on surface.
func New(surface view.Surface) *Collection {
	if surface == nil {
		surface = view.Nop{}
	}
	return &Collection{surface: surface}
}

func outOfRange(op string, i, n int) error {
	return fmt.Errorf("%s: index %d of %d: %w", op, i, n, apperr.ErrIndexOutOfRange)
}

// Len returns the number of blocks.
func (c *Collection) Len() int { return len(c.blocks) }

// At returns the block at i.
func (c *Collection) At(i int) (*block.Block, error) {
	if i < 0 || i >= len(c.blocks) {
		return nil, outOfRange("get", i, len(c.blocks))
	}
	return c.blocks[i], nil
}

// ByID returns the block with id, or nil.
func (c *Collection) ByID(id string) *block.Block {
	if i := c.IndexByID(id); i >= 0 {
		return c.blocks[i]
	}
	return nil
}

// IndexByID returns the index of the block with id, or -1.
func (c *Collection) IndexByID(id string) int {
	return slices.IndexFunc(c.blocks, func(b *block.Block) bool { return b.ID() == id })
}

// IndexOf returns the index of b, or -1.
func (c *Collection) IndexOf(b *block.Block) int {
	return slices.Index(c.blocks, b)
}

// Blocks returns a snapshot of the sequence.
func (c *Collection) Blocks() []*block.Block {
	return slices.Clone(c.blocks)
}

// Insert places b at index. With replace, the block currently at index is
// detached and destroyed before b takes its slot.
func (c *Collection) Insert(index int, b *block.Block, replace bool) error {
	if index < 0 || index > len(c.blocks) {
		return outOfRange("insert", index, len(c.blocks))
	}
	if replace && index < len(c.blocks) {
		old := c.blocks[index]
		c.surface.Remove(old.Holder())
		old.Destroy()
		c.blocks[index] = b
	} else {
		c.blocks = slices.Insert(c.blocks, index, b)
	}
	c.place(index)
	return nil
}

// Append adds b at the end.
func (c *Collection) Append(b *block.Block) {
	_ = c.Insert(len(c.blocks), b, false)
}

// InsertMany places blocks starting at index, preserving their order.
func (c *Collection) InsertMany(index int, blocks []*block.Block) error {
	if index < 0 || index > len(c.blocks) {
		return outOfRange("insert", index, len(c.blocks))
	}
	c.blocks = slices.Insert(c.blocks, index, blocks...)
	for i := range blocks {
		c.place(index + i)
	}
	return nil
}

// Replace swaps the block at index for b in place and destroys the old one.
func (c *Collection) Replace(index int, b *block.Block) error {
	if index < 0 || index >= len(c.blocks) {
		return outOfRange("replace", index, len(c.blocks))
	}
	old := c.blocks[index]
	c.surface.Replace(old.Holder(), b.Holder())
	c.blocks[index] = b
	old.Destroy()
	return nil
}

// Move removes the block at from and reinserts it so it ends at index to.
// The holder is placed after the block that ends up right before it.
func (c *Collection) Move(to, from int, skipSync bool) error {
	n := len(c.blocks)
	if from < 0 || from >= n {
		return outOfRange("move from", from, n)
	}
	if to < 0 || to >= n {
		return outOfRange("move to", to, n)
	}
	b := c.blocks[from]
	c.blocks = slices.Delete(c.blocks, from, from+1)
	if !skipSync && len(c.blocks) > 0 {
		prev := c.blocks[max(0, to-1)]
		if to > 0 {
			c.surface.InsertAfter(prev.Holder(), b.Holder())
		} else {
			c.surface.InsertBefore(prev.Holder(), b.Holder())
		}
	}
	c.blocks = slices.Insert(c.blocks, to, b)
	return nil
}

// Remove detaches the block at index and returns it. The caller destroys it
// and re-derives any index it tracks.
func (c *Collection) Remove(index int) (*block.Block, error) {
	if index < 0 || index >= len(c.blocks) {
		return nil, outOfRange("remove", index, len(c.blocks))
	}
	b := c.blocks[index]
	c.blocks = slices.Delete(c.blocks, index, index+1)
	c.surface.Remove(b.Holder())
	return b, nil
}

// RemoveAll detaches and destroys every block.
func (c *Collection) RemoveAll() {
	for _, b := range c.blocks {
		c.surface.Remove(b.Holder())
		b.Destroy()
	}
	c.blocks = nil
}

func (c *Collection) place(index int) {
	b := c.blocks[index]
	switch {
	case index > 0:
		c.surface.InsertAfter(c.blocks[index-1].Holder(), b.Holder())
	case len(c.blocks) > 1:
		c.surface.InsertBefore(c.blocks[1].Holder(), b.Holder())
	default:
		c.surface.Append(b.Holder())
	}
}
