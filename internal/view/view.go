// Package view is the boundary between the block document model and whatever
// host renders it. The core never inspects rendered content: it only places
// block holders on a Surface in document order and updates their depth marker.
package view

import "sync"

// Element is an opaque value produced by a content handler's render step.
type Element any

// Node is the holder a block owns for its lifetime. The content element is
// attached once the handler's render resolves.
type Node struct {
	id string

	mu      sync.RWMutex
	content Element
	depth   int
	attrs   map[string]string
}

// NewNode creates an empty holder for the block with the given id.
func NewNode(id string) *Node {
	return &Node{id: id, attrs: make(map[string]string)}
}

// ID returns the id of the owning block.
func (n *Node) ID() string { return n.id }

// Content returns the attached element, or nil before render resolves.
func (n *Node) Content() Element {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.content
}

// SetContent attaches the rendered element.
func (n *Node) SetContent(el Element) {
	n.mu.Lock()
	n.content = el
	n.mu.Unlock()
}

// Depth returns the depth marker last written by SetDepth.
func (n *Node) Depth() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.depth
}

// Attr returns a host attribute (e.g. "selected").
func (n *Node) Attr(key string) string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.attrs[key]
}

// SetAttr sets or clears (empty value) a host attribute.
func (n *Node) SetAttr(key, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if value == "" {
		delete(n.attrs, key)
		return
	}
	n.attrs[key] = value
}

func (n *Node) setDepth(d int) {
	n.mu.Lock()
	n.depth = d
	n.mu.Unlock()
}

// Surface receives placement instructions that keep the visual order in sync
// with the block collection.
type Surface interface {
	Append(n *Node)
	InsertBefore(anchor, n *Node)
	InsertAfter(anchor, n *Node)
	Replace(old, n *Node)
	Remove(n *Node)
	SetDepth(n *Node, depth int)
}

// Nop is a Surface that only records depth markers on the nodes.
type Nop struct{}

func (Nop) Append(*Node) {}

func (Nop) InsertBefore(_, _ *Node) {}

func (Nop) InsertAfter(_, _ *Node) {}

func (Nop) Replace(_, _ *Node) {}

func (Nop) Remove(*Node) {}

func (Nop) SetDepth(n *Node, depth int) { n.setDepth(depth) }
