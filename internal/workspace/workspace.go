// Package workspace keeps open documents in memory and persists them to the
// document store and index. It is the layer the HTTP and MCP surfaces talk
// to: every document operation runs under the owning session's lock.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/checksum"
	"github.com/starford/tessera/internal/document"
	"github.com/starford/tessera/internal/index"
	"github.com/starford/tessera/internal/models"
	"github.com/starford/tessera/internal/mutation"
	"github.com/starford/tessera/internal/storage"
	"github.com/starford/tessera/internal/view"
)

// Publisher receives block mutations and document lifecycle events.
type Publisher interface {
	PublishBlockEvent(documentID string, e mutation.Event)
	PublishDocumentEvent(kind, id string)
}

type nopPublisher struct{}

func (nopPublisher) PublishBlockEvent(string, mutation.Event) {}
func (nopPublisher) PublishDocumentEvent(string, string)      {}

// Detail is a saved document together with the checksum of its stored form.
type Detail struct {
	models.Document
	Checksum string `json:"checksum"`
	Dirty    bool   `json:"dirty"`
}

// ListItem is one entry of a document listing.
type ListItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Checksum   string    `json:"checksum"`
	BlockCount int       `json:"block_count"`
	UpdatedAt  time.Time `json:"updated_at"`
	Open       bool      `json:"open"`
}

// Workspace coordinates sessions, storage and the index.
type Workspace struct {
	store  storage.Provider
	db     index.DocumentIndex
	reg    *block.Registry
	pub    Publisher
	logger *slog.Logger

	readOnly        bool
	saveConcurrency int

	mu       sync.Mutex
	sessions map[string]*Session

	autosave *autosaver
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// WithPublisher forwards events to p.
func WithPublisher(p Publisher) Option {
	return func(w *Workspace) { w.pub = p }
}

// WithReadOnly opens every document read-only.
func WithReadOnly(ro bool) Option {
	return func(w *Workspace) { w.readOnly = ro }
}

// WithSaveConcurrency bounds parallel block extraction per save.
func WithSaveConcurrency(n int) Option {
	return func(w *Workspace) { w.saveConcurrency = n }
}

// New creates a workspace over store and db using the tools in reg.
func New(store storage.Provider, db index.DocumentIndex, reg *block.Registry, opts ...Option) *Workspace {
	w := &Workspace{
		store:    store,
		db:       db,
		reg:      reg,
		pub:      nopPublisher{},
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Registry returns the tool registry documents are built from.
func (w *Workspace) Registry() *block.Registry { return w.reg }

// Create stores a new document. An empty blocks slice yields one default
// block.
func (w *Workspace) Create(ctx context.Context, title string, blocks []models.SavedBlock) (*Detail, error) {
	id := uuid.NewString()
	s, err := w.newSession(ctx, id, title, blocks)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.sessions[id] = s
	w.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := w.persist(ctx, s)
	if err != nil {
		return nil, err
	}
	w.pub.PublishDocumentEvent("created", id)
	return d, nil
}

// Get returns the current content of a document: the live session state
// when it is open, else the stored copy.
func (w *Workspace) Get(ctx context.Context, id string) (*Detail, error) {
	s, err := w.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.snapshot(ctx)
}

// List returns a page of indexed documents.
func (w *Workspace) List(_ context.Context, limit, offset int, sort string) ([]ListItem, int, error) {
	rows, total, err := w.db.ListDocuments(limit, offset, sort)
	if err != nil {
		return nil, 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	items := make([]ListItem, len(rows))
	for i, r := range rows {
		_, open := w.sessions[r.ID]
		items[i] = ListItem{
			ID:         r.ID,
			Title:      r.Title,
			Checksum:   r.Checksum,
			BlockCount: r.BlockCount,
			UpdatedAt:  r.UpdatedAt,
			Open:       open,
		}
	}
	return items, total, nil
}

// Delete closes the session and removes the document from storage and index.
func (w *Workspace) Delete(_ context.Context, id string) error {
	w.closeSession(id)
	if err := w.store.Delete(id); err != nil {
		return err
	}
	if err := w.db.DeleteDocument(id); err != nil {
		return err
	}
	w.pub.PublishDocumentEvent("deleted", id)
	return nil
}

// Apply runs fn against the open document. Mutations fn makes mark the
// session dirty; they are persisted by Save, Flush, or autosave.
func (w *Workspace) Apply(ctx context.Context, id string, fn func(*document.Document) error) error {
	s, err := w.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()
	return fn(s.doc)
}

// Save persists the document if it is open and returns the stored form.
func (w *Workspace) Save(ctx context.Context, id string) (*Detail, error) {
	s, err := w.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return w.persist(ctx, s)
}

// Replace swaps the whole content of a document. ifMatch, an If-Match
// header value, must admit the checksum of the stored copy.
func (w *Workspace) Replace(ctx context.Context, id, title string, blocks []models.SavedBlock, ifMatch string) (*Detail, error) {
	s, err := w.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	if !checksum.Match(ifMatch, s.checksum) {
		return nil, fmt.Errorf("document %s: checksum mismatch: %w", id, apperr.ErrConflict)
	}
	if err := s.load(ctx, blocks); err != nil {
		return nil, err
	}
	if title != "" {
		s.title = title
	}
	return w.persist(ctx, s)
}

// Flush saves every dirty session. It keeps going on failure and returns the
// joined errors.
func (w *Workspace) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range w.openSessions() {
		s.mu.Lock()
		if s.dirty && !s.closed {
			if _, err := w.persist(ctx, s); err != nil {
				errs = append(errs, fmt.Errorf("flush %s: %w", s.id, err))
			}
		}
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Reload refreshes an open session from the stored copy after an external
// change. Dirty sessions keep their state; a missing file closes the session.
func (w *Workspace) Reload(ctx context.Context, id string) error {
	w.mu.Lock()
	s, ok := w.sessions[id]
	w.mu.Unlock()
	if !ok {
		return nil
	}

	data, err := w.store.Read(id)
	if errors.Is(err, apperr.ErrNotFound) {
		w.closeSession(id)
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cs := checksum.Sum(data)
	if cs == s.checksum {
		return nil
	}
	if s.dirty {
		w.logger.Warn("workspace: external change ignored, session has unsaved edits", slog.String("id", id))
		return nil
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", id, err)
	}
	if err := s.load(ctx, doc.Blocks); err != nil {
		return err
	}
	s.title = doc.Title
	s.checksum = cs
	w.logger.Info("workspace: reloaded", slog.String("id", id))
	return nil
}

// HandleIndexEvent is the index watcher callback: it forwards the event and
// reloads affected sessions.
func (w *Workspace) HandleIndexEvent(kind, id string) {
	w.pub.PublishDocumentEvent(kind, id)
	if err := w.Reload(context.Background(), id); err != nil {
		w.logger.Warn("workspace: reload failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}

// Search delegates full-text search to the index.
func (w *Workspace) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return w.db.Search(query, limit)
}

// Close stops autosave, flushes dirty sessions and closes them.
func (w *Workspace) Close(ctx context.Context) error {
	w.StopAutosave()
	err := w.Flush(ctx)
	for _, s := range w.openSessions() {
		w.closeSession(s.id)
	}
	return err
}

// persist saves the document, writes it to the store and indexes it. The
// caller holds s.mu.
func (w *Workspace) persist(ctx context.Context, s *Session) (*Detail, error) {
	out, err := s.doc.Save(ctx)
	if err != nil {
		return nil, err
	}
	doc := models.Document{ID: s.id, Title: s.title, Output: out}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.id, err)
	}
	if err := w.store.Write(s.id, data); err != nil {
		return nil, err
	}
	if err := index.Put(w.db, s.id, data, time.Now()); err != nil {
		return nil, err
	}
	s.checksum = checksum.Sum(data)
	s.dirty = false
	w.pub.PublishDocumentEvent("saved", s.id)
	return &Detail{Document: doc, Checksum: s.checksum}, nil
}

// session returns the open session for id, loading it from the store first
// when needed.
func (w *Workspace) session(ctx context.Context, id string) (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.sessions[id]; ok {
		return s, nil
	}
	data, err := w.store.Read(id)
	if err != nil {
		return nil, err
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	s, err := w.newSession(ctx, id, doc.Title, doc.Blocks)
	if err != nil {
		return nil, err
	}
	s.checksum = checksum.Sum(data)
	w.sessions[id] = s
	return s, nil
}

// acquire returns the session for id with s.mu held.
func (w *Workspace) acquire(ctx context.Context, id string) (*Session, error) {
	s, err := w.session(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
	}
	return s, nil
}

func (w *Workspace) newSession(ctx context.Context, id, title string, blocks []models.SavedBlock) (*Session, error) {
	tree := view.NewTree()
	doc := document.New(w.reg,
		document.WithLogger(w.logger.With(slog.String("document", id))),
		document.WithSurface(tree),
		document.WithReadOnly(w.readOnly),
		document.WithSaveConcurrency(w.saveConcurrency),
	)
	s := &Session{id: id, title: title, doc: doc, tree: tree}
	if err := s.load(ctx, blocks); err != nil {
		return nil, err
	}
	s.unsubscribe = doc.Bus().Subscribe(func(e mutation.Event) {
		// Delivered synchronously while the mutating caller holds s.mu.
		s.dirty = true
		w.pub.PublishBlockEvent(id, e)
	})
	return s, nil
}

func (w *Workspace) closeSession(id string) {
	w.mu.Lock()
	s, ok := w.sessions[id]
	delete(w.sessions, id)
	w.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.close()
}

func (w *Workspace) openSessions() []*Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
