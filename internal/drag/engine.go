// Package drag implements pointer-driven block reordering. The engine only
// reads the document while a gesture is in flight and calls it exactly once
// when a drop commits.
package drag

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/starford/tessera/internal/depth"
)

// State is the gesture state.
type State int

const (
	Idle State = iota
	Tracking
	Dragging
	Dropped
)

func (s State) String() string {
	switch s {
	case Tracking:
		return "tracking"
	case Dragging:
		return "dragging"
	case Dropped:
		return "dropped"
	default:
		return "idle"
	}
}

// Outcome reports what a gesture did.
type Outcome int

const (
	None Outcome = iota
	Moved
	Duplicated
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Moved:
		return "moved"
	case Duplicated:
		return "duplicated"
	case Cancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// Engine is the drag state machine for one document.
type Engine struct {
	doc    Document
	host   Host
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	start       Point
	sources     []int
	sourceDepth int
	multi       bool
	prevSelect  []int
	target      *Target
	overSource  bool
	scroll      *autoScroller
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the gesture constants.
func WithConfig(c Config) Option {
	return func(e *Engine) { e.cfg = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine for doc drawing through host.
func New(doc Document, host Host, opts ...Option) *Engine {
	e := &Engine{doc: doc, host: host, cfg: DefaultConfig(), logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	e.cfg = e.cfg.withDefaults()
	return e
}

// State returns the current gesture state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Sources returns the indices being dragged.
func (e *Engine) Sources() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.sources)
}

// Target returns the current drop target, if any.
func (e *Engine) Target() (Target, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.target == nil {
		return Target{}, false
	}
	return *e.target, true
}

// PointerDown captures the drag sources when the pointer goes down on the
// handle of the block at index. It returns false when a gesture is already
// in progress or the index is invalid.
func (e *Engine) PointerDown(index int, p Point) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Idle || index < 0 || index >= e.doc.Len() {
		return false
	}
	selected := e.doc.Selected()
	e.prevSelect = selected
	if len(selected) > 1 && slices.Contains(selected, index) {
		e.sources = selected
		e.multi = true
	} else {
		e.sources = append([]int{index}, e.doc.Descendants(index)...)
		slices.Sort(e.sources)
		e.multi = false
	}
	e.sourceDepth = e.doc.Entries()[e.sources[0]].Depth
	e.start = p
	e.target = nil
	e.overSource = false
	e.state = Tracking
	return true
}

// PointerMove advances the gesture.
func (e *Engine) PointerMove(p Point, mods Modifiers) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Tracking:
		if math.Hypot(p.X-e.start.X, p.Y-e.start.Y) <= e.cfg.Threshold {
			return
		}
		e.beginDrag(p)
		e.track(p, mods)
	case Dragging:
		if e.host.Previewer != nil {
			e.host.Previewer.MovePreview(p)
		}
		e.track(p, mods)
	}
}

func (e *Engine) beginDrag(p Point) {
	e.state = Dragging
	if !e.multi {
		e.doc.ClearSelection()
	}
	if e.host.Announcer != nil {
		e.host.Announcer.Announce(fmt.Sprintf("Dragging %d block(s)", len(e.sources)))
	}
	if e.host.Toolbar != nil {
		e.host.Toolbar.HideToolbar()
	}
	if e.host.Previewer != nil {
		e.host.Previewer.ShowPreview(slices.Clone(e.sources), p)
	}
	e.scroll = startAutoScroll(e.host, e.cfg)
}

// track recomputes the drop target for p.
func (e *Engine) track(p Point, mods Modifiers) {
	if e.host.Previewer != nil {
		e.host.Previewer.SetPreviewHidden(true)
	}
	hit, ok := e.host.HitTester.BlockAt(p)
	if e.host.Previewer != nil {
		e.host.Previewer.SetPreviewHidden(false)
	}
	e.scroll.steer(p)

	if !ok {
		// Keep the last target; the pointer may just be between blocks.
		return
	}
	if slices.Contains(e.sources, hit.Index) {
		e.overSource = true
		e.target = nil
		if e.host.Indicator != nil {
			e.host.Indicator.HideIndicator()
		}
		return
	}
	e.overSource = false

	t := Target{Index: hit.Index, Edge: Bottom, After: hit.Index, Duplicate: mods.Alt}
	if p.Y < (hit.Top+hit.Bottom)/2 {
		t.Edge = Top
		t.After = hit.Index - 1
		if hit.Index > 0 && !slices.Contains(e.sources, hit.Index-1) {
			t.Index, t.Edge = hit.Index-1, Bottom
		}
	}
	t.Depth = e.depthFor(t.After, p)
	e.target = &t
	if e.host.Indicator != nil {
		e.host.Indicator.ShowIndicator(t)
	}
}

// depthFor turns the horizontal offset into a depth valid at the drop slot.
func (e *Engine) depthFor(after int, p Point) int {
	want := e.sourceDepth + int(math.Round((p.X-e.start.X)/e.cfg.IndentWidth))
	proj, first := depth.Project(e.doc.Entries(), e.sources, after)
	return depth.TargetDepth(proj, first, want)
}

// PointerUp ends the gesture, committing a move or duplicate when a drag was
// in progress. Failures are logged; the host always gets an Outcome. The
// document call runs without the engine lock, so mutation subscribers may
// query the engine; it reports Dropped until teardown.
func (e *Engine) PointerUp(ctx context.Context, p Point, mods Modifiers) Outcome {
	e.mu.Lock()
	switch e.state {
	case Tracking:
		e.reset()
		e.mu.Unlock()
		return None
	case Dragging:
	default:
		e.mu.Unlock()
		return None
	}

	e.track(p, mods)
	e.state = Dropped
	t := e.target
	if t == nil && !e.overSource {
		t = e.fallbackTarget(p)
	}
	sources := slices.Clone(e.sources)
	e.mu.Unlock()

	out := e.commit(ctx, t, sources, mods)

	e.mu.Lock()
	e.teardown(false)
	e.mu.Unlock()

	switch out {
	case Moved:
		e.announce("Blocks moved")
	case Duplicated:
		e.announce("Blocks duplicated")
	}
	return out
}

// commit makes the single document call for a drop on t.
func (e *Engine) commit(ctx context.Context, t *Target, sources []int, mods Modifiers) Outcome {
	if t == nil {
		return None
	}
	if mods.Alt {
		if _, err := e.doc.Duplicate(ctx, sources, t.After, t.Depth); err != nil {
			e.logger.Warn("drag: duplicate failed", slog.String("error", err.Error()))
			return None
		}
		return Duplicated
	}
	if err := e.doc.MoveGroup(sources, t.After, t.Depth); err != nil {
		e.logger.Warn("drag: move failed", slog.String("error", err.Error()))
		return None
	}
	return Moved
}

// fallbackTarget drops before the first visible block when no target was
// ever established.
func (e *Engine) fallbackTarget(p Point) *Target {
	idx, ok := e.host.Viewport.FirstVisible()
	if !ok || slices.Contains(e.sources, idx) {
		return nil
	}
	t := Target{Index: idx, Edge: Top, After: idx - 1}
	t.Depth = e.depthFor(t.After, p)
	return &t
}

// Escape cancels the gesture without touching the document and restores the
// pre-drag selection and toolbar.
func (e *Engine) Escape() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Tracking:
		e.reset()
		return Cancelled
	case Dragging:
		e.teardown(true)
		return Cancelled
	}
	return None
}

func (e *Engine) announce(msg string) {
	if e.host.Announcer != nil {
		e.host.Announcer.Announce(msg)
	}
}

// teardown removes every drag visual and stops auto-scroll.
func (e *Engine) teardown(restoreSelection bool) {
	e.scroll.stop()
	if e.host.Previewer != nil {
		e.host.Previewer.RemovePreview()
	}
	if e.host.Indicator != nil {
		e.host.Indicator.HideIndicator()
	}
	if e.host.Toolbar != nil {
		e.host.Toolbar.RestoreToolbar()
	}
	if restoreSelection && !e.multi {
		for _, i := range e.prevSelect {
			_ = e.doc.Select(i, true)
		}
	}
	e.reset()
}

func (e *Engine) reset() {
	e.state = Idle
	e.sources = nil
	e.prevSelect = nil
	e.target = nil
	e.overSource = false
	e.multi = false
	e.scroll = nil
}
