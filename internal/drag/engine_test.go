package drag

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/document"
	"github.com/starford/tessera/internal/mutation"
	"github.com/starford/tessera/internal/tools"
)

const rowHeight = 20

// fakeHost lays blocks out as fixed-height rows starting at y=0.
type fakeHost struct {
	n            func() int
	firstVisible int
	scrolled     atomic.Int32

	mu            sync.Mutex
	previewShown  bool
	previewHidden bool
	hitWhileShown bool
	indicators    []Target
	toolbarHidden bool
	announcements []string
}

func (h *fakeHost) BlockAt(p Point) (Hit, bool) {
	h.mu.Lock()
	if h.previewShown && !h.previewHidden {
		h.hitWhileShown = true
	}
	h.mu.Unlock()
	i := int(p.Y) / rowHeight
	if p.Y < 0 || i >= h.n() {
		return Hit{}, false
	}
	return Hit{Index: i, Top: float64(i * rowHeight), Bottom: float64((i + 1) * rowHeight)}, true
}

func (h *fakeHost) FirstVisible() (int, bool)    { return h.firstVisible, true }
func (h *fakeHost) Bounds() (float64, float64)   { return 0, 1000 }
func (h *fakeHost) ScrollBy(float64)             { h.scrolled.Add(1) }
func (h *fakeHost) ShowPreview([]int, Point)     { h.set(func() { h.previewShown = true }) }
func (h *fakeHost) MovePreview(Point)            {}
func (h *fakeHost) SetPreviewHidden(hidden bool) { h.set(func() { h.previewHidden = hidden }) }
func (h *fakeHost) RemovePreview()               { h.set(func() { h.previewShown = false }) }
func (h *fakeHost) ShowIndicator(t Target)       { h.set(func() { h.indicators = append(h.indicators, t) }) }
func (h *fakeHost) HideIndicator()               {}
func (h *fakeHost) Announce(msg string)          { h.set(func() { h.announcements = append(h.announcements, msg) }) }
func (h *fakeHost) HideToolbar()                 { h.set(func() { h.toolbarHidden = true }) }
func (h *fakeHost) RestoreToolbar()              { h.set(func() { h.toolbarHidden = false }) }

func (h *fakeHost) set(fn func()) {
	h.mu.Lock()
	fn()
	h.mu.Unlock()
}

func (h *fakeHost) host() Host {
	return Host{HitTester: h, Viewport: h, Previewer: h, Indicator: h, Announcer: h, Toolbar: h}
}

// countingDoc records terminal calls.
type countingDoc struct {
	*document.Document
	moves, dups int
}

func (c *countingDoc) MoveGroup(from []int, after, depth int) error {
	c.moves++
	return c.Document.MoveGroup(from, after, depth)
}

func (c *countingDoc) Duplicate(ctx context.Context, from []int, after, depth int) ([]*block.Block, error) {
	c.dups++
	return c.Document.Duplicate(ctx, from, after, depth)
}

func setup(t *testing.T, tool string, names ...string) (*countingDoc, *fakeHost, *Engine, *[]mutation.Event) {
	t.Helper()
	reg, err := tools.NewRegistry(tools.Options{})
	if err != nil {
		t.Fatal(err)
	}
	d := document.New(reg)
	for _, n := range names {
		if _, err := d.Append(tool, block.Data{"text": n}, document.WithID(n)); err != nil {
			t.Fatal(err)
		}
	}
	var events []mutation.Event
	d.Bus().Subscribe(func(e mutation.Event) { events = append(events, e) })
	doc := &countingDoc{Document: d}
	h := &fakeHost{n: d.Len}
	e := New(doc, h.host(), WithConfig(Config{Interval: time.Millisecond}))
	return doc, h, e, &events
}

func order(d *countingDoc) []string {
	var out []string
	for _, b := range d.Blocks() {
		out = append(out, b.ID())
	}
	return out
}

func rowY(i int, edge Edge) float64 {
	if edge == Top {
		return float64(i*rowHeight) + 2
	}
	return float64(i*rowHeight) + rowHeight - 2
}

func drag(t *testing.T, e *Engine, from int, to Point, mods Modifiers) Outcome {
	t.Helper()
	start := Point{X: 10, Y: rowY(from, Top) + 5}
	if !e.PointerDown(from, start) {
		t.Fatal("PointerDown rejected")
	}
	e.PointerMove(Point{X: start.X, Y: start.Y + 8}, mods)
	e.PointerMove(to, mods)
	return e.PointerUp(context.Background(), to, mods)
}

func TestDropOnTopHalfScenario(t *testing.T) {
	doc, h, e, events := setup(t, tools.Paragraph, "b0", "b1", "b2", "b3", "b4")
	*events = nil

	out := drag(t, e, 4, Point{X: 10, Y: rowY(2, Top)}, Modifiers{})
	if out != Moved {
		t.Fatalf("outcome = %v", out)
	}
	if got := order(doc); !reflect.DeepEqual(got, []string{"b0", "b1", "b4", "b2", "b3"}) {
		t.Fatalf("order = %v", got)
	}
	if len(*events) != 1 || (*events)[0].FromIndex != 4 || (*events)[0].ToIndex != 2 {
		t.Errorf("events = %+v", *events)
	}
	if doc.moves != 1 {
		t.Errorf("moves = %d", doc.moves)
	}
	last := h.indicators[len(h.indicators)-1]
	if last.Index != 1 || last.Edge != Bottom {
		t.Errorf("indicator = %+v, want bottom of 1", last)
	}
	if h.hitWhileShown {
		t.Error("hit test ran with the preview visible")
	}
	if e.State() != Idle || h.previewShown || h.toolbarHidden {
		t.Errorf("not torn down: state %v preview %v toolbar hidden %v", e.State(), h.previewShown, h.toolbarHidden)
	}
}

func TestDropNormalization(t *testing.T) {
	docA, _, eA, _ := setup(t, tools.Paragraph, "b0", "b1", "b2", "b3", "b4")
	docB, _, eB, _ := setup(t, tools.Paragraph, "b0", "b1", "b2", "b3", "b4")

	drag(t, eA, 0, Point{X: 10, Y: rowY(3, Top)}, Modifiers{})
	drag(t, eB, 0, Point{X: 10, Y: rowY(2, Bottom)}, Modifiers{})
	if a, b := order(docA), order(docB); !reflect.DeepEqual(a, b) {
		t.Errorf("top of 3 = %v, bottom of 2 = %v", a, b)
	}
}

func TestBelowThresholdDoesNothing(t *testing.T) {
	doc, _, e, _ := setup(t, tools.Paragraph, "a", "b")
	e.PointerDown(0, Point{X: 0, Y: 5})
	e.PointerMove(Point{X: 3, Y: 8}, Modifiers{})
	if e.State() != Tracking {
		t.Fatalf("state = %v", e.State())
	}
	if out := e.PointerUp(context.Background(), Point{X: 3, Y: 8}, Modifiers{}); out != None {
		t.Errorf("outcome = %v", out)
	}
	if doc.moves != 0 || e.State() != Idle {
		t.Errorf("moves = %d state = %v", doc.moves, e.State())
	}
}

func TestEscapeCancelsWithoutDocumentCall(t *testing.T) {
	doc, h, e, _ := setup(t, tools.Paragraph, "a", "b", "c")
	_ = doc.Select(2, true)
	e.PointerDown(0, Point{X: 10, Y: 5})
	e.PointerMove(Point{X: 10, Y: 50}, Modifiers{})
	if e.State() != Dragging || !h.toolbarHidden {
		t.Fatalf("state = %v toolbar hidden = %v", e.State(), h.toolbarHidden)
	}
	if len(doc.Selected()) != 0 {
		t.Fatal("single-block drag should clear selection")
	}
	if out := e.Escape(); out != Cancelled {
		t.Fatalf("Escape = %v", out)
	}
	if doc.moves+doc.dups != 0 {
		t.Error("escape called the document")
	}
	if h.toolbarHidden || h.previewShown {
		t.Error("visuals not restored")
	}
	if got := doc.Selected(); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("selection = %v, want [2]", got)
	}
	if out := e.PointerUp(context.Background(), Point{}, Modifiers{}); out != None {
		t.Errorf("PointerUp after escape = %v", out)
	}
}

func TestFallbackToFirstVisible(t *testing.T) {
	doc, h, e, _ := setup(t, tools.Paragraph, "b0", "b1", "b2", "b3")
	h.firstVisible = 2
	e.PointerDown(0, Point{X: 10, Y: 5})
	out := e.PointerUp(context.Background(), Point{}, Modifiers{})
	if out != None {
		t.Fatalf("tracking release = %v", out)
	}

	e.PointerDown(0, Point{X: 10, Y: 5})
	e.PointerMove(Point{X: 10, Y: -300}, Modifiers{})
	if out := e.PointerUp(context.Background(), Point{X: 10, Y: -300}, Modifiers{}); out != Moved {
		t.Fatalf("outcome = %v", out)
	}
	if got := order(doc); !reflect.DeepEqual(got, []string{"b1", "b0", "b2", "b3"}) {
		t.Errorf("order = %v", got)
	}
}

func TestReleaseOverSourceIsNoop(t *testing.T) {
	doc, _, e, _ := setup(t, tools.Paragraph, "a", "b", "c")
	e.PointerDown(1, Point{X: 10, Y: rowY(1, Top)})
	e.PointerMove(Point{X: 10, Y: rowY(1, Bottom)}, Modifiers{})
	if out := e.PointerUp(context.Background(), Point{X: 10, Y: rowY(1, Bottom)}, Modifiers{}); out != None {
		t.Errorf("outcome = %v", out)
	}
	if doc.moves != 0 {
		t.Errorf("moves = %d", doc.moves)
	}
}

func TestAltDuplicates(t *testing.T) {
	doc, _, e, _ := setup(t, tools.Paragraph, "a", "b", "c")
	out := drag(t, e, 0, Point{X: 10, Y: rowY(2, Bottom)}, Modifiers{Alt: true})
	if out != Duplicated || doc.dups != 1 || doc.moves != 0 {
		t.Fatalf("outcome = %v dups = %d moves = %d", out, doc.dups, doc.moves)
	}
	if doc.Len() != 4 {
		t.Errorf("len = %d", doc.Len())
	}
	if got := order(doc)[:3]; !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("originals moved: %v", got)
	}
}

func TestDragCarriesDescendantsAndIndents(t *testing.T) {
	doc, _, e, _ := setup(t, tools.List, "a", "b", "x", "y")
	if err := doc.Reparent(mustBlock(t, doc, "y"), "x"); err != nil {
		t.Fatal(err)
	}
	e.PointerDown(2, Point{X: 10, Y: rowY(2, Top)})
	if got := e.Sources(); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Fatalf("sources = %v", got)
	}
	// Drop on the bottom of a, shifted one indent to the right.
	to := Point{X: 10 + 24, Y: rowY(0, Bottom)}
	e.PointerMove(to, Modifiers{})
	tgt, ok := e.Target()
	if !ok || tgt.After != 0 || tgt.Depth != 1 {
		t.Fatalf("target = %+v, %v", tgt, ok)
	}
	if out := e.PointerUp(context.Background(), to, Modifiers{}); out != Moved {
		t.Fatalf("outcome = %v", out)
	}
	if got := order(doc); !reflect.DeepEqual(got, []string{"a", "x", "y", "b"}) {
		t.Errorf("order = %v", got)
	}
	if p := mustBlock(t, doc, "x").ParentID(); p != "a" {
		t.Errorf("x parent = %q", p)
	}
}

func TestDepthClampedAtTop(t *testing.T) {
	_, _, e, _ := setup(t, tools.List, "a", "b", "c")
	e.PointerDown(2, Point{X: 10, Y: rowY(2, Top)})
	e.PointerMove(Point{X: 200, Y: rowY(0, Top)}, Modifiers{})
	tgt, ok := e.Target()
	if !ok || tgt.After != -1 || tgt.Depth != 0 {
		t.Errorf("target = %+v, %v", tgt, ok)
	}
	e.Escape()
}

func TestAutoScrollStopsOnDrop(t *testing.T) {
	_, h, e, _ := setup(t, tools.Paragraph, "a", "b")
	e.PointerDown(0, Point{X: 10, Y: 5})
	e.PointerMove(Point{X: 10, Y: 990}, Modifiers{})

	deadline := time.Now().Add(2 * time.Second)
	for h.scrolled.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("viewport never scrolled")
		}
		time.Sleep(2 * time.Millisecond)
	}
	e.PointerUp(context.Background(), Point{X: 10, Y: 990}, Modifiers{})
	n := h.scrolled.Load()
	time.Sleep(20 * time.Millisecond)
	if h.scrolled.Load() != n {
		t.Error("auto-scroll kept running after drop")
	}
}

func TestSubscriberMayQueryEngineDuringCommit(t *testing.T) {
	doc, _, e, _ := setup(t, tools.Paragraph, "a", "b", "c")
	var states []State
	doc.Bus().Subscribe(func(mutation.Event) {
		states = append(states, e.State())
		_, _ = e.Target()
	})

	to := Point{X: 10, Y: rowY(2, Bottom)}
	if !e.PointerDown(0, Point{X: 10, Y: rowY(0, Top) + 5}) {
		t.Fatal("PointerDown rejected")
	}
	e.PointerMove(to, Modifiers{})
	done := make(chan Outcome, 1)
	go func() { done <- e.PointerUp(context.Background(), to, Modifiers{}) }()
	select {
	case out := <-done:
		if out != Moved {
			t.Fatalf("outcome = %v", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("PointerUp deadlocked with a subscriber reading the engine")
	}
	if len(states) == 0 || states[0] != Dropped {
		t.Errorf("states seen by subscriber = %v", states)
	}
	if e.State() != Idle {
		t.Errorf("state after drop = %v", e.State())
	}
}

// queueScheduler collects scheduled ticks for the test to run.
type queueScheduler struct {
	mu  sync.Mutex
	fns []func()
}

func (q *queueScheduler) Schedule(fn func()) {
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
}

func (q *queueScheduler) drain() int {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

func TestAutoScrollRunsOnScheduler(t *testing.T) {
	doc, h, _, _ := setup(t, tools.Paragraph, "a", "b")
	sched := &queueScheduler{}
	hst := h.host()
	hst.Scheduler = sched
	e := New(doc, hst, WithConfig(Config{Interval: time.Millisecond}))

	e.PointerDown(0, Point{X: 10, Y: 5})
	e.PointerMove(Point{X: 10, Y: 990}, Modifiers{})

	deadline := time.Now().Add(2 * time.Second)
	for {
		sched.mu.Lock()
		n := len(sched.fns)
		sched.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no tick scheduled")
		}
		time.Sleep(2 * time.Millisecond)
	}
	if h.scrolled.Load() != 0 {
		t.Fatal("viewport scrolled off the scheduler")
	}
	sched.drain()
	if h.scrolled.Load() == 0 {
		t.Fatal("scheduled tick did not scroll")
	}

	e.Escape()
	before := h.scrolled.Load()
	sched.drain()
	if h.scrolled.Load() != before {
		t.Error("tick queued before cancel scrolled after it")
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{None: "none", Moved: "moved", Duplicated: "duplicated", Cancelled: "cancelled", Outcome(42): "none"} {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d) = %q, want %q", int(o), got, want)
		}
	}
}

func mustBlock(t *testing.T, d *countingDoc, id string) *block.Block {
	t.Helper()
	b, err := d.BlockByID(id)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
