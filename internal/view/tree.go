package view

import "sync"

// Tree is an in-memory Surface that mirrors the rendered order of holders.
type Tree struct {
	mu    sync.Mutex
	nodes []*Node
}

// NewTree creates an empty Tree.
func NewTree() *Tree {
	return &Tree{}
}

// Order returns the ids of the placed holders in visual order.
func (t *Tree) Order() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = n.ID()
	}
	return out
}

// Len returns the number of placed holders.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}

func (t *Tree) Append(n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detach(n)
	t.nodes = append(t.nodes, n)
}

func (t *Tree) InsertBefore(anchor, n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detach(n)
	i := t.indexOf(anchor)
	if i < 0 {
		t.nodes = append(t.nodes, n)
		return
	}
	t.insertAt(i, n)
}

func (t *Tree) InsertAfter(anchor, n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detach(n)
	i := t.indexOf(anchor)
	if i < 0 {
		t.nodes = append(t.nodes, n)
		return
	}
	t.insertAt(i+1, n)
}

func (t *Tree) Replace(old, n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(old)
	if i < 0 {
		t.detach(n)
		t.nodes = append(t.nodes, n)
		return
	}
	t.nodes[i] = n
}

func (t *Tree) Remove(n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detach(n)
}

func (t *Tree) SetDepth(n *Node, depth int) {
	n.setDepth(depth)
}

func (t *Tree) indexOf(n *Node) int {
	for i, x := range t.nodes {
		if x == n {
			return i
		}
	}
	return -1
}

func (t *Tree) detach(n *Node) {
	if i := t.indexOf(n); i >= 0 {
		t.nodes = append(t.nodes[:i], t.nodes[i+1:]...)
	}
}

func (t *Tree) insertAt(i int, n *Node) {
	t.nodes = append(t.nodes, nil)
	copy(t.nodes[i+1:], t.nodes[i:])
	t.nodes[i] = n
}
