package tools

import (
	"sync"

	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/view"
)

// AlignmentTune is the alignment tune's name.
const AlignmentTune = "alignment"

// Aligned is the wrapped element produced by the alignment tune.
type Aligned struct {
	Alignment string
	Content   view.Element
}

// Alignment is a tune storing {"alignment": "left"|"center"|"right"}.
type Alignment struct {
	mu    sync.Mutex
	value string
}

func (a *Alignment) Render() view.Element {
	return &Aligned{Alignment: a.Value()}
}

// Value returns the current alignment.
func (a *Alignment) Value() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

// Set changes the alignment; unknown values fall back to left.
func (a *Alignment) Set(v string) {
	switch v {
	case "left", "center", "right":
	default:
		v = "left"
	}
	a.mu.Lock()
	a.value = v
	a.mu.Unlock()
}

func (a *Alignment) Save() (any, error) {
	v := a.Value()
	if v == "left" {
		return nil, nil
	}
	return map[string]any{"alignment": v}, nil
}

func (a *Alignment) Wrap(el view.Element) view.Element {
	return &Aligned{Alignment: a.Value(), Content: el}
}

// AlignmentSpec registers the alignment tune.
func AlignmentSpec() block.TuneSpec {
	return block.TuneSpec{
		Name: AlignmentTune,
		New: func(tc block.TuneContext) (block.Tune, error) {
			a := &Alignment{}
			v := ""
			if m, ok := tc.Data.(map[string]any); ok {
				v, _ = m["alignment"].(string)
			}
			a.Set(v)
			return a, nil
		},
	}
}
