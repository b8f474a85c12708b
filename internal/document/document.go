// Package document is the block manager: every structural change to a
// document goes through it, and every change is announced on its bus.
//
// A Document is not safe for concurrent use. Callers that share one across
// goroutines (the workspace does) serialize access themselves.
package document

import (
	"fmt"
	"log/slog"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/collection"
	"github.com/starford/tessera/internal/mutation"
	"github.com/starford/tessera/internal/view"
)

// Document owns a block collection and the current-block position.
type Document struct {
	registry *block.Registry
	blocks   *collection.Collection
	surface  view.Surface
	bus      *mutation.Bus
	logger   *slog.Logger
	readOnly bool
	current  int

	saveConcurrency int
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// WithSurface sets where block holders are placed.
func WithSurface(s view.Surface) Option {
	return func(d *Document) { d.surface = s }
}

// WithBus publishes mutations on an existing bus.
func WithBus(b *mutation.Bus) Option {
	return func(d *Document) { d.bus = b }
}

// WithReadOnly creates handlers in read-only mode.
func WithReadOnly(ro bool) Option {
	return func(d *Document) { d.readOnly = ro }
}

// WithSaveConcurrency bounds parallel extraction in Save. Zero or less means
// unbounded.
func WithSaveConcurrency(n int) Option {
	return func(d *Document) { d.saveConcurrency = n }
}

// New creates an empty document using the tools in reg.
func New(reg *block.Registry, opts ...Option) *Document {
	d := &Document{
		registry: reg,
		logger:   slog.Default(),
		current:  -1,
	}
	for _, o := range opts {
		o(d)
	}
	if d.surface == nil {
		d.surface = view.Nop{}
	}
	if d.bus == nil {
		d.bus = mutation.NewBus()
	}
	d.blocks = collection.New(d.surface)
	return d
}

// Bus returns the mutation bus.
func (d *Document) Bus() *mutation.Bus { return d.bus }

// Registry returns the tool registry.
func (d *Document) Registry() *block.Registry { return d.registry }

// Len returns the number of blocks.
func (d *Document) Len() int { return d.blocks.Len() }

// Blocks returns the blocks in document order.
func (d *Document) Blocks() []*block.Block { return d.blocks.Blocks() }

// ByIndex returns the block at i.
func (d *Document) ByIndex(i int) (*block.Block, error) { return d.blocks.At(i) }

// BlockByID returns the block with id.
func (d *Document) BlockByID(id string) (*block.Block, error) {
	if b := d.blocks.ByID(id); b != nil {
		return b, nil
	}
	return nil, fmt.Errorf("block %q: %w", id, apperr.ErrNotFound)
}

// IndexOf returns the index of the block with b's id, or -1.
func (d *Document) IndexOf(b *block.Block) int {
	if b == nil {
		return -1
	}
	return d.blocks.IndexByID(b.ID())
}

// CurrentIndex returns the focused position, -1 when none.
func (d *Document) CurrentIndex() int { return d.current }

// SetCurrentIndex focuses i; -1 clears focus.
func (d *Document) SetCurrentIndex(i int) error {
	if i < -1 || i >= d.blocks.Len() {
		return fmt.Errorf("current: index %d of %d: %w", i, d.blocks.Len(), apperr.ErrIndexOutOfRange)
	}
	d.current = i
	return nil
}

// Current returns the focused block, or nil.
func (d *Document) Current() *block.Block {
	b, _ := d.blocks.At(d.current)
	return b
}

// Next returns the block after the current one, or nil.
func (d *Document) Next() *block.Block {
	if d.current < 0 {
		return nil
	}
	b, _ := d.blocks.At(d.current + 1)
	return b
}

// Previous returns the block before the current one, or nil.
func (d *Document) Previous() *block.Block {
	if d.current <= 0 {
		return nil
	}
	b, _ := d.blocks.At(d.current - 1)
	return b
}

// resolve finds the live instance and index for b, which may be a stale
// instance of the same id.
func (d *Document) resolve(b *block.Block) (int, *block.Block, error) {
	if b == nil {
		return -1, nil, fmt.Errorf("block: %w", apperr.ErrNotFound)
	}
	i := d.blocks.IndexByID(b.ID())
	if i < 0 {
		return -1, nil, fmt.Errorf("block %q: %w", b.ID(), apperr.ErrNotFound)
	}
	live, _ := d.blocks.At(i)
	return i, live, nil
}

func (d *Document) emit(kind mutation.Kind, b *block.Block, index int) {
	d.bus.Publish(mutation.New(kind, b, index))
}

func (d *Document) emitMoved(b *block.Block, from, to int) {
	e := mutation.New(mutation.Moved, b, to)
	e.FromIndex, e.ToIndex = from, to
	d.bus.Publish(e)
}

// dispatchChange is wired into every block the document composes.
func (d *Document) dispatchChange(b *block.Block) {
	i := d.blocks.IndexOf(b)
	if i < 0 {
		return
	}
	d.emit(mutation.Changed, b, i)
}
