package block

import (
	"context"
	"fmt"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/sanitize"
	"github.com/starford/tessera/internal/view"
)

// Data is a content handler's payload.
type Data = map[string]any

// StubName is the tool that stands in for blocks whose tool is not registered.
const StubName = "stub"

// ToolContext is handed to ToolSpec.New for every block instance.
type ToolContext struct {
	Data     Data
	Config   map[string]any
	API      *API
	ReadOnly bool
}

// Tool is a content handler instance. Render may block; it runs off the
// caller's goroutine and is awaited before save, merge and validate.
type Tool interface {
	Render(ctx context.Context) (view.Element, error)
}

// Saver extracts the handler's data from its rendered element.
type Saver interface {
	Save(ctx context.Context, el view.Element) (Data, error)
}

// Validator rejects payloads that should not be persisted.
type Validator interface {
	Validate(ctx context.Context, data Data) (bool, error)
}

// Merger appends another block's payload into this handler.
type Merger interface {
	Merge(ctx context.Context, data Data) error
}

// Destroyer releases handler resources.
type Destroyer interface {
	Destroy()
}

// Kinder reports a style kind used for sibling grouping (e.g. ordered vs
// unordered list items).
type Kinder interface {
	Kind() string
}

// Conversion declares how a tool exports to and imports from a plain string.
// A field name is the simple form; the func form wins when both are set.
type Conversion struct {
	ExportField string
	Export      func(data Data) (string, error)
	ImportField string
	Import      func(s string, config map[string]any) (Data, error)
}

// CanExport reports whether c can produce a string.
func (c *Conversion) CanExport() bool {
	return c != nil && (c.Export != nil || c.ExportField != "")
}

// CanImport reports whether c can build a payload from a string.
func (c *Conversion) CanImport() bool {
	return c != nil && (c.Import != nil || c.ImportField != "")
}

// ExportString converts data to its string form.
func (c *Conversion) ExportString(data Data) (string, error) {
	switch {
	case c == nil:
	case c.Export != nil:
		return c.Export(data)
	case c.ExportField != "":
		s, _ := data[c.ExportField].(string)
		return s, nil
	}
	return "", fmt.Errorf("export: %w", apperr.ErrUnsupportedOperation)
}

// ImportString builds a payload from s.
func (c *Conversion) ImportString(s string, config map[string]any) (Data, error) {
	switch {
	case c == nil:
	case c.Import != nil:
		return c.Import(s, config)
	case c.ImportField != "":
		return Data{c.ImportField: s}, nil
	}
	return nil, fmt.Errorf("import: %w", apperr.ErrUnsupportedOperation)
}

// ToolSpec registers a content handler.
type ToolSpec struct {
	Name       string
	New        func(tc ToolContext) (Tool, error)
	Conversion *Conversion
	Sanitize   sanitize.Config
	// Family groups tools that may nest under each other. Empty means the
	// tool never nests.
	Family string
	Config map[string]any
}

// TuneContext is handed to TuneSpec.New.
type TuneContext struct {
	Data any
	API  *API
}

// Tune is a per-block modifier instance.
type Tune interface {
	Render() view.Element
}

// TuneSaver reports the tune's current data.
type TuneSaver interface {
	Save() (any, error)
}

// Wrapper decorates the content element after render.
type Wrapper interface {
	Wrap(el view.Element) view.Element
}

// TuneSpec registers a tune.
type TuneSpec struct {
	Name string
	New  func(tc TuneContext) (Tune, error)
}
