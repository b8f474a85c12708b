package workspace

import (
	"context"
	"slices"

	"github.com/starford/tessera/internal/markdown"
)

// ImportMarkdown parses data into blocks. With an empty id a new document is
// created, titled from the frontmatter or first heading. Otherwise the blocks
// are appended to the existing document, or replace its content when replace
// is set.
func (w *Workspace) ImportMarkdown(ctx context.Context, id string, data []byte, replace bool) (*Detail, error) {
	res, err := markdown.Parse(data)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return w.Create(ctx, res.Title, res.Blocks)
	}

	s, err := w.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	blocks := res.Blocks
	if !replace {
		cur, err := s.doc.Save(ctx)
		if err != nil {
			return nil, err
		}
		blocks = slices.Concat(cur.Blocks, res.Blocks)
	}
	if err := s.load(ctx, blocks); err != nil {
		return nil, err
	}
	if s.title == "" {
		s.title = res.Title
	}
	return w.persist(ctx, s)
}

// ExportMarkdown renders the current content of a document as Markdown.
func (w *Workspace) ExportMarkdown(ctx context.Context, id string) ([]byte, error) {
	d, err := w.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return markdown.Render(d.Document)
}
