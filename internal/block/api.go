package block

import "github.com/starford/tessera/internal/view"

// API is the narrow handle a content handler or tune gets for its block.
type API struct {
	b *Block
}

func (a *API) ID() string { return a.b.id }

func (a *API) Name() string { return a.b.spec.Name }

func (a *API) ParentID() string { return a.b.ParentID() }

func (a *API) Holder() *view.Node { return a.b.holder }

func (a *API) ReadOnly() bool { return a.b.readOnly }

// DispatchChange reports a handler-side content change to the document.
func (a *API) DispatchChange() { a.b.dispatchChange() }

// Block returns the block behind the handle.
func (a *API) Block() *Block { return a.b }
