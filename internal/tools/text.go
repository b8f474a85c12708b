package tools

import (
	"context"
	"errors"

	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/sanitize"
	"github.com/starford/tessera/internal/view"
)

// Tool names.
const (
	Paragraph = "paragraph"
	Header    = "header"
	Quote     = "quote"
	List      = "list"
	Delimiter = "delimiter"
)

var errNotRendered = errors.New("element was not rendered by this tool")

// textTool backs every tool whose element is an Editable. fields lists the
// keys Save reports.
type textTool struct {
	data   block.Data
	fields []string
	el     *Editable
}

func (t *textTool) Render(context.Context) (view.Element, error) {
	t.el = NewEditable(t.data)
	return t.el, nil
}

func (t *textTool) Save(_ context.Context, el view.Element) (block.Data, error) {
	e, ok := asEditable(el)
	if !ok {
		return nil, errNotRendered
	}
	snap := e.Snapshot()
	out := make(block.Data, len(t.fields))
	for _, f := range t.fields {
		if v, ok := snap[f]; ok {
			out[f] = v
		}
	}
	return out, nil
}

type paragraph struct {
	textTool
	preserveBlank bool
}

func (p *paragraph) Validate(_ context.Context, data block.Data) (bool, error) {
	return p.preserveBlank || !blank(str(data, "text")), nil
}

func (p *paragraph) Merge(_ context.Context, data block.Data) error {
	p.el.Append("text", str(data, "text"))
	return nil
}

// ParagraphSpec is the default text tool. Blank paragraphs are dropped on save
// unless config "preserveBlank" is true.
func ParagraphSpec() block.ToolSpec {
	return block.ToolSpec{
		Name: Paragraph,
		New: func(tc block.ToolContext) (block.Tool, error) {
			keep, _ := tc.Config["preserveBlank"].(bool)
			data := block.Data{"text": str(tc.Data, "text")}
			return &paragraph{textTool{data: data, fields: []string{"text"}}, keep}, nil
		},
		Conversion: &block.Conversion{ExportField: "text", ImportField: "text"},
		Sanitize:   sanitize.Config{Fields: map[string]sanitize.Rule{"text": inline}},
	}
}

type header struct{ textTool }

func (h *header) Validate(_ context.Context, data block.Data) (bool, error) {
	return !blank(str(data, "text")), nil
}

// HeaderSpec is a heading with a level from 1 to 6.
func HeaderSpec() block.ToolSpec {
	return block.ToolSpec{
		Name: Header,
		New: func(tc block.ToolContext) (block.Tool, error) {
			level := toInt(tc.Data["level"], toInt(tc.Config["defaultLevel"], 2))
			level = max(1, min(6, level))
			data := block.Data{"text": str(tc.Data, "text"), "level": level}
			return &header{textTool{data: data, fields: []string{"text", "level"}}}, nil
		},
		Conversion: &block.Conversion{
			ExportField: "text",
			ImportField: "text",
			Import: func(s string, config map[string]any) (block.Data, error) {
				return block.Data{"text": s, "level": toInt(config["defaultLevel"], 2)}, nil
			},
		},
		Sanitize: sanitize.Config{Fields: map[string]sanitize.Rule{"text": sanitize.Allow("b", "i", "a").With("a", "href")}},
		Config:   map[string]any{"defaultLevel": 2},
	}
}

type quote struct{ textTool }

func (q *quote) Merge(_ context.Context, data block.Data) error {
	q.el.Append("text", str(data, "text"))
	return nil
}

// QuoteSpec is a quotation with a caption.
func QuoteSpec() block.ToolSpec {
	return block.ToolSpec{
		Name: Quote,
		New: func(tc block.ToolContext) (block.Tool, error) {
			align := str(tc.Data, "alignment")
			if align == "" {
				align = "left"
			}
			data := block.Data{"text": str(tc.Data, "text"), "caption": str(tc.Data, "caption"), "alignment": align}
			return &quote{textTool{data: data, fields: []string{"text", "caption", "alignment"}}}, nil
		},
		Conversion: &block.Conversion{
			Export:      func(d block.Data) (string, error) { return str(d, "text"), nil },
			ImportField: "text",
			Import: func(s string, _ map[string]any) (block.Data, error) {
				return block.Data{"text": s, "caption": "", "alignment": "left"}, nil
			},
		},
		Sanitize: sanitize.Config{Fields: map[string]sanitize.Rule{"text": inline, "caption": sanitize.Allow("b", "i")}},
	}
}

type listItem struct {
	textTool
	style string
}

func (l *listItem) Kind() string { return l.style }

func (l *listItem) Merge(_ context.Context, data block.Data) error {
	l.el.Append("text", str(data, "text"))
	return nil
}

// List styles.
const (
	Unordered = "unordered"
	Ordered   = "ordered"
	Checklist = "checklist"
)

// ListSpec is one list item. Items nest under each other through the
// hierarchy; style is the grouping kind.
func ListSpec() block.ToolSpec {
	return block.ToolSpec{
		Name: List,
		New: func(tc block.ToolContext) (block.Tool, error) {
			style := str(tc.Data, "style")
			switch style {
			case Unordered, Ordered, Checklist:
			default:
				style = Unordered
			}
			data := block.Data{"text": str(tc.Data, "text"), "style": style}
			fields := []string{"text", "style"}
			if style == Checklist {
				checked, _ := tc.Data["checked"].(bool)
				data["checked"] = checked
				fields = append(fields, "checked")
			}
			return &listItem{textTool{data: data, fields: fields}, style}, nil
		},
		Conversion: &block.Conversion{
			ExportField: "text",
			ImportField: "text",
			Import: func(s string, _ map[string]any) (block.Data, error) {
				return block.Data{"text": s, "style": Unordered}, nil
			},
		},
		Sanitize: sanitize.Config{Fields: map[string]sanitize.Rule{"text": inline}},
		Family:   List,
	}
}

type delimiter struct{}

func (delimiter) Render(context.Context) (view.Element, error) { return NewEditable(nil), nil }

func (delimiter) Save(context.Context, view.Element) (block.Data, error) { return block.Data{}, nil }

// DelimiterSpec is a content-less separator.
func DelimiterSpec() block.ToolSpec {
	return block.ToolSpec{
		Name: Delimiter,
		New:  func(block.ToolContext) (block.Tool, error) { return delimiter{}, nil },
	}
}
