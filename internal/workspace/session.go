package workspace

import (
	"context"
	"sync"

	"github.com/starford/tessera/internal/document"
	"github.com/starford/tessera/internal/models"
	"github.com/starford/tessera/internal/view"
)

// Session is one open document.
type Session struct {
	id   string
	doc  *document.Document
	tree *view.Tree

	mu          sync.Mutex
	title       string
	checksum    string // of the last stored bytes
	dirty       bool
	closed      bool
	unsubscribe func()
}

// load replaces the content without marking the session dirty.
func (s *Session) load(ctx context.Context, blocks []models.SavedBlock) error {
	if err := s.doc.Load(ctx, blocks); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *Session) snapshot(ctx context.Context) (*Detail, error) {
	out, err := s.doc.Save(ctx)
	if err != nil {
		return nil, err
	}
	return &Detail{
		Document: models.Document{ID: s.id, Title: s.title, Output: out},
		Checksum: s.checksum,
		Dirty:    s.dirty,
	}, nil
}

func (s *Session) close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	_ = s.doc.Clear(false)
}
