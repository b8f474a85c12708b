package document

import (
	"context"
	"fmt"
	"maps"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/mutation"
)

type insertConfig struct {
	index    int
	hasIndex bool
	id       string
	tunes    map[string]any
	parentID string
	focus    bool
	replace  bool
}

// InsertOption configures Insert and Compose.
type InsertOption func(*insertConfig)

// WithIndex places the block at i instead of after the current block.
func WithIndex(i int) InsertOption {
	return func(c *insertConfig) { c.index, c.hasIndex = i, true }
}

// WithID uses id instead of a generated one.
func WithID(id string) InsertOption {
	return func(c *insertConfig) { c.id = id }
}

// WithTunes seeds the block's tune data.
func WithTunes(t map[string]any) InsertOption {
	return func(c *insertConfig) { c.tunes = t }
}

// WithParent nests the new block under parentID.
func WithParent(parentID string) InsertOption {
	return func(c *insertConfig) { c.parentID = parentID }
}

// WithoutFocus leaves the current block unchanged.
func WithoutFocus() InsertOption {
	return func(c *insertConfig) { c.focus = false }
}

// Replacing swaps out the block at the target index. Listeners see a removed
// event for the old block followed by an added event for the new one.
func Replacing() InsertOption {
	return func(c *insertConfig) { c.replace = true }
}

func newInsertConfig(opts []InsertOption) insertConfig {
	c := insertConfig{focus: true}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// Compose instantiates a block without adding it to the document.
func (d *Document) Compose(tool string, data block.Data, opts ...InsertOption) (*block.Block, error) {
	c := newInsertConfig(opts)
	return d.compose(tool, data, c.id, c.tunes)
}

func (d *Document) compose(tool string, data block.Data, id string, tunes map[string]any) (*block.Block, error) {
	spec, err := d.registry.Tool(tool)
	if err != nil {
		return nil, err
	}
	return block.New(spec, d.registry.Tunes(), block.Options{
		ID:       id,
		Data:     data,
		Tunes:    tunes,
		ReadOnly: d.readOnly,
		Logger:   d.logger,
		OnChange: d.dispatchChange,
	})
}

func (d *Document) defaultTool() (string, error) {
	spec, err := d.registry.Default()
	if err != nil {
		return "", err
	}
	return spec.Name, nil
}

// Insert composes a block and adds it. An empty tool means the default tool.
// Without WithIndex the block goes after the current one, or onto it when
// replacing.
func (d *Document) Insert(tool string, data block.Data, opts ...InsertOption) (*block.Block, error) {
	c := newInsertConfig(opts)
	if tool == "" {
		name, err := d.defaultTool()
		if err != nil {
			return nil, err
		}
		tool = name
	}

	index := c.index
	if !c.hasIndex {
		index = d.current + 1
		if c.replace {
			index = d.current
		}
		index = max(index, 0)
	}
	n := d.blocks.Len()
	if index < 0 || index > n {
		return nil, fmt.Errorf("insert: index %d of %d: %w", index, n, apperr.ErrIndexOutOfRange)
	}
	var parent *block.Block
	if c.parentID != "" {
		p, err := d.BlockByID(c.parentID)
		if err != nil {
			return nil, fmt.Errorf("insert parent: %w", err)
		}
		parent = p
	}

	b, err := d.compose(tool, data, c.id, c.tunes)
	if err != nil {
		return nil, err
	}

	replacing := c.replace && index < n
	if replacing {
		old, _ := d.blocks.At(index)
		d.emit(mutation.Removed, old, index)
		d.detachHierarchy(old)
	}
	if err := d.blocks.Insert(index, b, replacing); err != nil {
		b.Destroy()
		return nil, err
	}
	if parent != nil {
		d.reparent(b, parent)
	}
	d.emit(mutation.Added, b, index)

	switch {
	case c.focus:
		d.current = index
	case !replacing && index <= d.current:
		d.current++
	}
	return b, nil
}

// InsertDefaultAt inserts an empty default block at index.
func (d *Document) InsertDefaultAt(index int, focus bool) (*block.Block, error) {
	opts := []InsertOption{WithIndex(index)}
	if !focus {
		opts = append(opts, WithoutFocus())
	}
	return d.Insert("", nil, opts...)
}

// Append inserts at the end and focuses the new block.
func (d *Document) Append(tool string, data block.Data, opts ...InsertOption) (*block.Block, error) {
	return d.Insert(tool, data, append(opts, WithIndex(d.blocks.Len()))...)
}

// InsertMany adds already composed blocks at index without announcing them.
// It is the bulk path used when rendering saved content.
func (d *Document) InsertMany(blocks []*block.Block, index int) error {
	return d.blocks.InsertMany(index, blocks)
}

// Update merges the patches into b's current payload and substitutes a new
// block with the same id. With both patches nil it returns b untouched.
func (d *Document) Update(ctx context.Context, b *block.Block, data block.Data, tunes map[string]any) (*block.Block, error) {
	if data == nil && tunes == nil {
		return b, nil
	}
	index, live, err := d.resolve(b)
	if err != nil {
		return nil, err
	}
	saved, err := live.Save(ctx)
	if err != nil {
		return nil, err
	}
	newData := maps.Clone(saved.Data)
	if newData == nil {
		newData = block.Data{}
	}
	maps.Copy(newData, data)
	newTunes := maps.Clone(saved.Tunes)
	if newTunes == nil {
		newTunes = map[string]any{}
	}
	maps.Copy(newTunes, tunes)

	next, err := d.compose(live.Name(), newData, live.ID(), newTunes)
	if err != nil {
		return nil, err
	}
	return next, d.substitute(index, live, next)
}

// Replace swaps b for a new tool instance that keeps b's id, tunes and place
// in the hierarchy. Listeners see a single changed event.
func (d *Document) Replace(ctx context.Context, b *block.Block, tool string, data block.Data) (*block.Block, error) {
	index, live, err := d.resolve(b)
	if err != nil {
		return nil, err
	}
	saved, err := live.Save(ctx)
	if err != nil {
		return nil, err
	}
	next, err := d.compose(tool, data, live.ID(), saved.Tunes)
	if err != nil {
		return nil, err
	}
	return next, d.substitute(index, live, next)
}

// substitute puts next, a same-id successor of old, into old's slot.
func (d *Document) substitute(index int, old, next *block.Block) error {
	if err := block.Inherit(next, old); err != nil {
		next.Destroy()
		return err
	}
	if err := d.blocks.Replace(index, next); err != nil {
		next.Destroy()
		return err
	}
	d.surface.SetDepth(next.Holder(), d.Depth(next))
	if old.Selected() {
		next.SetSelected(true)
	}
	d.emit(mutation.Changed, next, index)
	return nil
}
