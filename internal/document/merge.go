package document

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/mutation"
	"github.com/starford/tessera/internal/sanitize"
)

// Merge folds source into target and removes source. Same-tool blocks merge
// directly; otherwise source is exported through its conversion config and
// imported into target's shape. When neither path applies nothing happens
// and merged is false. Handler failures are logged and also report false.
func (d *Document) Merge(ctx context.Context, target, source *block.Block) (merged bool, err error) {
	_, target, err = d.resolve(target)
	if err != nil {
		return false, err
	}
	_, source, err = d.resolve(source)
	if err != nil {
		return false, err
	}
	if target.ID() == source.ID() || !target.Mergeable() {
		return false, nil
	}

	tspec, sspec := target.Spec(), source.Spec()
	var payload block.Data
	switch {
	case target.Name() == source.Name():
		saved, err := source.Save(ctx)
		if err != nil {
			return false, err
		}
		payload = sanitize.Data(saved.Data, tspec.Sanitize)
	case sspec.Conversion.CanExport() && tspec.Conversion.CanImport():
		saved, err := source.Save(ctx)
		if err != nil {
			return false, err
		}
		payload, err = d.convertPayload(saved.Data, sspec, tspec)
		if err != nil {
			d.logger.Warn("merge conversion failed", slog.String("from", sspec.Name), slog.String("to", tspec.Name), slog.String("error", err.Error()))
			return false, nil
		}
	default:
		return false, nil
	}

	if err := target.Merge(ctx, payload); err != nil {
		d.logger.Warn("merge failed", slog.String("block", target.ID()), slog.String("error", err.Error()))
		return false, nil
	}
	d.emit(mutation.Changed, target, d.blocks.IndexOf(target))

	if err := d.Remove(source, false); err != nil {
		return true, err
	}
	d.current = d.blocks.IndexOf(target)
	return true, nil
}

// convertPayload exports data from one tool and imports it into another,
// cleaning the string with the destination field's rule.
func (d *Document) convertPayload(data block.Data, from, to *block.ToolSpec) (block.Data, error) {
	s, err := from.Conversion.ExportString(data)
	if err != nil {
		return nil, err
	}
	s = sanitize.String(s, to.Sanitize.For(to.Conversion.ImportField))
	return to.Conversion.ImportString(s, to.Config)
}

// Convert turns b into a tool block through the conversion configs, overlays
// overrides and substitutes the result under b's id.
func (d *Document) Convert(ctx context.Context, b *block.Block, tool string, overrides block.Data) (*block.Block, error) {
	index, live, err := d.resolve(b)
	if err != nil {
		return nil, err
	}
	spec, err := d.registry.Tool(tool)
	if err != nil {
		return nil, err
	}
	if !live.Spec().Conversion.CanExport() || !spec.Conversion.CanImport() {
		return nil, fmt.Errorf("convert %s to %s: %w", live.Name(), tool, apperr.ErrUnsupportedOperation)
	}
	saved, err := live.Save(ctx)
	if err != nil {
		return nil, err
	}
	data, err := d.convertPayload(saved.Data, live.Spec(), spec)
	if err != nil {
		return nil, fmt.Errorf("convert %s to %s: %w", live.Name(), tool, err)
	}
	if data == nil {
		data = block.Data{}
	}
	maps.Copy(data, overrides)

	next, err := d.compose(tool, data, live.ID(), saved.Tunes)
	if err != nil {
		return nil, err
	}
	return next, d.substitute(index, live, next)
}

// Split inserts a default block after the current one carrying fragment, the
// markup a host caret utility cut from the end of the current block. This is
// the one operation that depends on the host's markup.
func (d *Document) Split(fragment string) (*block.Block, error) {
	text, err := innerHTML(fragment)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	return d.Insert("", block.Data{"text": text})
}

// innerHTML wraps fragment in a div and returns the div's markup, or "" when
// it holds no content.
func innerHTML(fragment string) (string, error) {
	wrapper := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), wrapper)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	empty := true
	for _, n := range nodes {
		if !isEmptyNode(n) {
			empty = false
		}
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	if empty {
		return "", nil
	}
	return buf.String(), nil
}

func isEmptyNode(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return strings.TrimSpace(n.Data) == ""
	case html.ElementNode:
		if n.DataAtom == atom.Img || n.DataAtom == atom.Hr {
			return false
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !isEmptyNode(c) {
			return false
		}
	}
	return true
}
