package tools

import (
	"fmt"

	"github.com/starford/tessera/internal/block"
)

// Options tunes the built-in set.
type Options struct {
	DefaultTool   string
	PreserveBlank bool
}

// NewRegistry returns a registry holding every built-in tool and tune.
func NewRegistry(opts Options) (*block.Registry, error) {
	reg := block.NewRegistry()
	para := ParagraphSpec()
	para.Config = map[string]any{"preserveBlank": opts.PreserveBlank}

	for _, spec := range []block.ToolSpec{para, HeaderSpec(), QuoteSpec(), ListSpec(), DelimiterSpec(), StubSpec()} {
		if err := reg.RegisterTool(spec); err != nil {
			return nil, fmt.Errorf("register tool: %w", err)
		}
	}
	if err := reg.RegisterTune(AlignmentSpec()); err != nil {
		return nil, fmt.Errorf("register tune: %w", err)
	}
	def := opts.DefaultTool
	if def == "" {
		def = Paragraph
	}
	if err := reg.SetDefault(def); err != nil {
		return nil, err
	}
	return reg, nil
}
