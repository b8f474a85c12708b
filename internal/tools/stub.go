package tools

import (
	"context"
	"maps"

	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/view"
)

// stub stands in for a block whose tool is not registered. Its data is
// {"title": tool name, "savedData": {"id", "type", "data"}} and is saved back
// untouched so the original block survives a round trip.
type stub struct {
	data block.Data
}

func (s *stub) Render(context.Context) (view.Element, error) {
	return NewEditable(block.Data{"title": s.data["title"]}), nil
}

func (s *stub) Save(context.Context, view.Element) (block.Data, error) {
	return maps.Clone(s.data), nil
}

// StubSpec is registered under block.StubName.
func StubSpec() block.ToolSpec {
	return block.ToolSpec{
		Name: block.StubName,
		New: func(tc block.ToolContext) (block.Tool, error) {
			return &stub{data: maps.Clone(tc.Data)}, nil
		},
	}
}

// StubData builds the payload a stub block carries for an unknown tool.
func StubData(id, tool string, data block.Data) block.Data {
	return block.Data{
		"title": tool,
		"savedData": map[string]any{
			"id":   id,
			"type": tool,
			"data": maps.Clone(data),
		},
	}
}

// Unstub extracts the original tool and data from a stub payload.
func Unstub(data block.Data) (tool string, original block.Data, ok bool) {
	saved, ok := data["savedData"].(map[string]any)
	if !ok {
		return "", nil, false
	}
	tool, _ = saved["type"].(string)
	original, _ = saved["data"].(map[string]any)
	return tool, original, tool != ""
}
