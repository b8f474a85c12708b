package block

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/view"
)

type fakeTool struct {
	data     Data
	gate     chan struct{}
	saveErr  error
	destroys *atomic.Int32
}

func (f *fakeTool) Render(ctx context.Context) (view.Element, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f, nil
}

func (f *fakeTool) Save(_ context.Context, _ view.Element) (Data, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return Data{"text": f.data["text"]}, nil
}

func (f *fakeTool) Destroy() {
	if f.destroys != nil {
		f.destroys.Add(1)
	}
}

type mergeTool struct{ fakeTool }

func (m *mergeTool) Merge(_ context.Context, data Data) error {
	m.data["text"] = m.data["text"].(string) + data["text"].(string)
	return nil
}

func fakeSpec(f func(tc ToolContext) *fakeTool) *ToolSpec {
	return &ToolSpec{Name: "fake", New: func(tc ToolContext) (Tool, error) { return f(tc), nil }}
}

type savingTune struct{ v any }

func (s *savingTune) Render() view.Element { return nil }

func (s *savingTune) Save() (any, error) { return s.v, nil }

func TestSaveReturnsHandlerData(t *testing.T) {
	spec := fakeSpec(func(tc ToolContext) *fakeTool { return &fakeTool{data: tc.Data} })
	b, err := New(spec, nil, Options{Data: Data{"text": "hello"}})
	if err != nil {
		t.Fatal(err)
	}
	if b.ID() == "" {
		t.Fatal("expected generated id")
	}
	saved, err := b.Save(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if saved.Data["text"] != "hello" || saved.Failed {
		t.Errorf("saved = %+v", saved)
	}
}

func TestSaveFallsBackOnHandlerError(t *testing.T) {
	spec := fakeSpec(func(tc ToolContext) *fakeTool {
		return &fakeTool{data: tc.Data, saveErr: errors.New("boom")}
	})
	b, _ := New(spec, nil, Options{Data: Data{"text": "kept"}})
	saved, err := b.Save(context.Background())
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if !saved.Failed {
		t.Error("expected Failed")
	}
	if saved.Data["text"] != "kept" {
		t.Errorf("fallback text = %v, want kept", saved.Data["text"])
	}
}

func TestSaveWaitsForRender(t *testing.T) {
	gate := make(chan struct{})
	spec := fakeSpec(func(tc ToolContext) *fakeTool { return &fakeTool{data: tc.Data, gate: gate} })
	b, _ := New(spec, nil, Options{Data: Data{"text": "x"}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := b.Save(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Save before render = %v, want deadline", err)
	}

	close(gate)
	if err := b.Ready(context.Background()); err != nil {
		t.Fatal(err)
	}
	if b.Holder().Content() == nil {
		t.Error("holder content not attached after render")
	}
}

func TestUnavailableTunesRoundTrip(t *testing.T) {
	spec := fakeSpec(func(tc ToolContext) *fakeTool { return &fakeTool{data: tc.Data} })
	tunes := []*TuneSpec{{
		Name: "known",
		New:  func(tc TuneContext) (Tune, error) { return &savingTune{v: "k2"}, nil },
	}}
	orphan := map[string]any{"color": "red"}
	b, _ := New(spec, tunes, Options{Tunes: map[string]any{"known": "k1", "orphan": orphan}})

	saved, _ := b.Save(context.Background())
	if saved.Tunes["known"] != "k2" {
		t.Errorf("known tune = %v, want k2", saved.Tunes["known"])
	}
	got, ok := saved.Tunes["orphan"].(map[string]any)
	if !ok || got["color"] != "red" {
		t.Errorf("orphan tune = %v, want %v", saved.Tunes["orphan"], orphan)
	}
}

func TestMergeUnsupported(t *testing.T) {
	spec := fakeSpec(func(tc ToolContext) *fakeTool { return &fakeTool{data: tc.Data} })
	b, _ := New(spec, nil, Options{})
	if b.Mergeable() {
		t.Fatal("fake tool should not be mergeable")
	}
	if err := b.Merge(context.Background(), Data{}); !errors.Is(err, apperr.ErrUnsupportedOperation) {
		t.Fatalf("Merge = %v, want ErrUnsupportedOperation", err)
	}
}

func TestMergeAndValidateDefault(t *testing.T) {
	spec := &ToolSpec{Name: "m", New: func(tc ToolContext) (Tool, error) {
		return &mergeTool{fakeTool{data: tc.Data}}, nil
	}}
	b, _ := New(spec, nil, Options{Data: Data{"text": "a"}})
	if err := b.Merge(context.Background(), Data{"text": "b"}); err != nil {
		t.Fatal(err)
	}
	saved, _ := b.Save(context.Background())
	if saved.Data["text"] != "ab" {
		t.Errorf("text = %v, want ab", saved.Data["text"])
	}
	if !b.Validate(context.Background(), saved.Data) {
		t.Error("blocks without a validator must be valid")
	}
}

func TestDestroyIdempotent(t *testing.T) {
	var n atomic.Int32
	spec := fakeSpec(func(tc ToolContext) *fakeTool { return &fakeTool{data: tc.Data, destroys: &n} })
	b, _ := New(spec, nil, Options{})
	b.Destroy()
	b.Destroy()
	if n.Load() != 1 {
		t.Errorf("destroy calls = %d, want 1", n.Load())
	}
}

func TestDispatchChange(t *testing.T) {
	var got *Block
	spec := fakeSpec(func(tc ToolContext) *fakeTool { return &fakeTool{data: tc.Data} })
	b, _ := New(spec, nil, Options{OnChange: func(b *Block) { got = b }})
	b.API().DispatchChange()
	if got != b {
		t.Fatal("OnChange not called")
	}
	got = nil
	b.Destroy()
	b.API().DispatchChange()
	if got != nil {
		t.Error("OnChange called after destroy")
	}
}

func TestReparentSymmetry(t *testing.T) {
	spec := fakeSpec(func(tc ToolContext) *fakeTool { return &fakeTool{data: tc.Data} })
	p1, _ := New(spec, nil, Options{ID: "p1"})
	p2, _ := New(spec, nil, Options{ID: "p2"})
	c, _ := New(spec, nil, Options{ID: "c"})

	Reparent(c, nil, p1)
	Reparent(c, p1, p1)
	if got := p1.ContentIDs(); len(got) != 1 || got[0] != "c" {
		t.Fatalf("p1 content = %v", got)
	}
	Reparent(c, p1, p2)
	if len(p1.ContentIDs()) != 0 {
		t.Errorf("p1 content = %v, want empty", p1.ContentIDs())
	}
	if c.ParentID() != "p2" || len(p2.ContentIDs()) != 1 {
		t.Errorf("parent = %q, p2 content = %v", c.ParentID(), p2.ContentIDs())
	}
	Reparent(c, p2, nil)
	if c.ParentID() != "" || len(p2.ContentIDs()) != 0 {
		t.Errorf("root reparent left parent = %q, p2 content = %v", c.ParentID(), p2.ContentIDs())
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	spec := ToolSpec{Name: "p", New: func(ToolContext) (Tool, error) { return &fakeTool{}, nil }}
	if err := r.RegisterTool(spec); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterTool(spec); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate register = %v", err)
	}
	if _, err := r.Tool("nope"); !errors.Is(err, apperr.ErrToolNotFound) {
		t.Errorf("lookup = %v, want ErrToolNotFound", err)
	}
	def, err := r.Default()
	if err != nil || def.Name != "p" {
		t.Errorf("default = %v, %v", def, err)
	}
	if err := r.SetDefault("nope"); !errors.Is(err, apperr.ErrToolNotFound) {
		t.Errorf("SetDefault = %v", err)
	}
}
