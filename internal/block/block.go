// Package block implements a single document block: identity, the content
// handler it owns, its tunes and its place in the parent/child hierarchy.
package block

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/view"
)

// Options configures New.
type Options struct {
	ID       string
	Data     Data
	Tunes    map[string]any
	ReadOnly bool
	Logger   *slog.Logger
	// OnChange receives handler-originated change notifications.
	OnChange func(*Block)
}

type tuneInstance struct {
	name string
	tune Tune
	data any
}

// Block is one unit of document content.
type Block struct {
	id     string
	spec   *ToolSpec
	tool   Tool
	holder *view.Node
	api    *API
	logger *slog.Logger

	tunes            []tuneInstance
	unavailableTunes map[string]any
	readOnly         bool
	onChange         func(*Block)

	ready     chan struct{}
	content   view.Element
	renderErr error
	cancel    context.CancelFunc

	mu         sync.RWMutex
	lastSaved  Data
	parentID   string
	contentIDs []string
	selected   bool

	destroyOnce sync.Once
}

// New composes a block for spec. The handler's Render starts immediately on
// its own goroutine.
func New(spec *ToolSpec, tunes []*TuneSpec, opts Options) (*Block, error) {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	data := maps.Clone(opts.Data)
	if data == nil {
		data = Data{}
	}

	b := &Block{
		id:               id,
		spec:             spec,
		holder:           view.NewNode(id),
		logger:           logger.With(slog.String("block", id), slog.String("tool", spec.Name)),
		unavailableTunes: make(map[string]any),
		readOnly:         opts.ReadOnly,
		onChange:         opts.OnChange,
		ready:            make(chan struct{}),
		lastSaved:        data,
	}
	b.api = &API{b: b}

	tool, err := spec.New(ToolContext{
		Data:     maps.Clone(data),
		Config:   spec.Config,
		API:      b.api,
		ReadOnly: opts.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", spec.Name, err)
	}
	b.tool = tool

	known := make(map[string]bool, len(tunes))
	for _, ts := range tunes {
		known[ts.Name] = true
		tdata := opts.Tunes[ts.Name]
		t, err := ts.New(TuneContext{Data: tdata, API: b.api})
		if err != nil {
			b.logger.Warn("tune init failed", slog.String("tune", ts.Name), slog.String("error", err.Error()))
			if tdata != nil {
				b.unavailableTunes[ts.Name] = tdata
			}
			continue
		}
		b.tunes = append(b.tunes, tuneInstance{name: ts.Name, tune: t, data: tdata})
	}
	for name, v := range opts.Tunes {
		if !known[name] {
			b.unavailableTunes[name] = v
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go b.render(ctx)
	return b, nil
}

func (b *Block) render(ctx context.Context) {
	defer close(b.ready)
	el, err := b.tool.Render(ctx)
	if err != nil {
		b.renderErr = err
		b.logger.Warn("render failed", slog.String("error", err.Error()))
		return
	}
	b.content = el
	wrapped := el
	for _, ti := range b.tunes {
		if w, ok := ti.tune.(Wrapper); ok {
			wrapped = w.Wrap(wrapped)
		}
	}
	b.holder.SetContent(wrapped)
}

// Ready blocks until the handler's Render has resolved.
func (b *Block) Ready(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Block) ID() string { return b.id }

// Name returns the tool name.
func (b *Block) Name() string { return b.spec.Name }

func (b *Block) Spec() *ToolSpec { return b.spec }

func (b *Block) Tool() Tool { return b.tool }

func (b *Block) Holder() *view.Node { return b.holder }

func (b *Block) API() *API { return b.api }

func (b *Block) ReadOnly() bool { return b.readOnly }

func (b *Block) IsStub() bool { return b.spec.Name == StubName }

// Mergeable reports whether the handler supports Merge.
func (b *Block) Mergeable() bool {
	_, ok := b.tool.(Merger)
	return ok
}

// RenderErr waits for render and returns its error.
func (b *Block) RenderErr() error {
	<-b.ready
	return b.renderErr
}

// Kind returns the handler's style kind, or "" when it has none.
func (b *Block) Kind() string {
	if k, ok := b.tool.(Kinder); ok {
		return k.Kind()
	}
	return ""
}

// Data returns a copy of the last successfully saved payload.
func (b *Block) Data() Data {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.lastSaved)
}

// ParentID returns the parent block id, or "" at root level.
func (b *Block) ParentID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.parentID
}

// ContentIDs returns the ordered ids of direct children.
func (b *Block) ContentIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.contentIDs)
}

func (b *Block) Selected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.selected
}

func (b *Block) SetSelected(on bool) {
	b.mu.Lock()
	b.selected = on
	b.mu.Unlock()
	if on {
		b.holder.SetAttr("selected", "true")
	} else {
		b.holder.SetAttr("selected", "")
	}
}

// Saved is the result of extracting a block.
type Saved struct {
	ID      string
	Tool    string
	Data    Data
	Tunes   map[string]any
	Elapsed time.Duration
	// Failed marks a fallback to the previous payload.
	Failed bool
}

// Save extracts the handler's data. Handler failures are logged and the
// previous payload is reported instead; only ctx cancellation is returned.
func (b *Block) Save(ctx context.Context) (Saved, error) {
	if err := b.Ready(ctx); err != nil {
		return Saved{}, err
	}
	start := time.Now()
	out := Saved{ID: b.id, Tool: b.spec.Name, Tunes: b.saveTunes()}

	saver, ok := b.tool.(Saver)
	switch {
	case b.renderErr != nil:
		out.Failed = true
	case ok:
		data, err := saver.Save(ctx, b.content)
		if err != nil {
			b.logger.Warn("save failed, keeping last saved data",
				slog.String("error", fmt.Errorf("%w: %v", apperr.ErrExtractionFailure, err).Error()))
			out.Failed = true
			break
		}
		b.mu.Lock()
		b.lastSaved = maps.Clone(data)
		b.mu.Unlock()
	}
	out.Data = b.Data()
	out.Elapsed = time.Since(start)
	return out, nil
}

func (b *Block) saveTunes() map[string]any {
	out := maps.Clone(b.unavailableTunes)
	if out == nil {
		out = make(map[string]any)
	}
	for i, ti := range b.tunes {
		s, ok := ti.tune.(TuneSaver)
		if !ok {
			if ti.data != nil {
				out[ti.name] = ti.data
			}
			continue
		}
		v, err := s.Save()
		if err != nil {
			b.logger.Warn("tune save failed", slog.String("tune", ti.name), slog.String("error", err.Error()))
			v = ti.data
		}
		if v != nil {
			out[ti.name] = v
			b.tunes[i].data = v
		}
	}
	return out
}

// Validate runs the handler's validator. Blocks without one are valid.
func (b *Block) Validate(ctx context.Context, data Data) bool {
	v, ok := b.tool.(Validator)
	if !ok {
		return true
	}
	if err := b.Ready(ctx); err != nil {
		return true
	}
	valid, err := v.Validate(ctx, data)
	if err != nil {
		b.logger.Warn("validate failed", slog.String("error", err.Error()))
		return true
	}
	return valid
}

// Merge appends data into the handler. It fails with ErrUnsupportedOperation
// when the handler cannot merge.
func (b *Block) Merge(ctx context.Context, data Data) error {
	m, ok := b.tool.(Merger)
	if !ok {
		return fmt.Errorf("merge into %s: %w", b.spec.Name, apperr.ErrUnsupportedOperation)
	}
	if err := b.Ready(ctx); err != nil {
		return err
	}
	return m.Merge(ctx, data)
}

// Destroy tears the handler down. It is safe to call more than once.
func (b *Block) Destroy() {
	b.destroyOnce.Do(func() {
		b.cancel()
		b.mu.Lock()
		b.onChange = nil
		b.mu.Unlock()
		if d, ok := b.tool.(Destroyer); ok {
			d.Destroy()
		}
		for _, ti := range b.tunes {
			if d, ok := ti.tune.(Destroyer); ok {
				d.Destroy()
			}
		}
	})
}

func (b *Block) dispatchChange() {
	b.mu.RLock()
	fn := b.onChange
	b.mu.RUnlock()
	if fn != nil {
		fn(b)
	}
}
