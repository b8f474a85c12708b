// Package depth computes hierarchy depth and valid nesting targets over a
// read-only view of the block sequence. Nothing here is cached: callers pass
// a fresh snapshot each time.
package depth

import (
	"fmt"

	"github.com/starford/tessera/internal/apperr"
)

// Entry is the per-block marker the functions read.
type Entry struct {
	Depth  int
	Family string
	Kind   string
}

// Model is an indexed view of entries.
type Model interface {
	Len() int
	Entry(i int) Entry
}

// Entries is a Model over a slice.
type Entries []Entry

func (e Entries) Len() int { return len(e) }

func (e Entries) Entry(i int) Entry { return e[i] }

func nestable(a, b Entry) bool {
	return a.Family != "" && a.Family == b.Family
}

// MaxAllowedDepth returns how deep the entry at i may sit: one level below
// the entry right above it when both belong to the same family, else 0.
func MaxAllowedDepth(m Model, i int) int {
	if i <= 0 || i >= m.Len() {
		return 0
	}
	prev, cur := m.Entry(i-1), m.Entry(i)
	if !nestable(prev, cur) {
		return 0
	}
	return prev.Depth + 1
}

// SiblingIndex counts the contiguous preceding entries at depth with the same
// kind. Deeper entries are skipped; a shallower entry or a kind change at the
// same depth ends the group.
func SiblingIndex(m Model, i, depth int, kind string) int {
	var family string
	if i >= 0 && i < m.Len() {
		family = m.Entry(i).Family
	}
	n := 0
	for j := min(i, m.Len()) - 1; j >= 0; j-- {
		e := m.Entry(j)
		if e.Depth > depth {
			continue
		}
		if e.Depth < depth || e.Kind != kind || e.Family != family {
			break
		}
		n++
	}
	return n
}

// TargetDepth clamps want to the allowed range at i and snaps it to the depth
// of the following same-family entry when that would otherwise leave a gap.
func TargetDepth(m Model, i, want int) int {
	limit := MaxAllowedDepth(m, i)
	d := max(0, min(want, limit))
	if i+1 < m.Len() {
		cur, next := m.Entry(i), m.Entry(i+1)
		if nestable(cur, next) && next.Depth > d && next.Depth <= limit {
			d = next.Depth
		}
	}
	return d
}

// Project returns the order the entries would have after moving the sources
// (ascending indices) to sit after index after, and the index of the first
// moved entry in that order. after == -1 places them first. A source index
// for after resolves to the nearest preceding non-source.
func Project(m Model, sources []int, after int) (Entries, int) {
	moved := make(map[int]bool, len(sources))
	for _, s := range sources {
		moved[s] = true
	}
	var rest, group Entries
	first := 0
	for i := 0; i < m.Len(); i++ {
		if moved[i] {
			group = append(group, m.Entry(i))
			continue
		}
		rest = append(rest, m.Entry(i))
		if i <= after {
			first++
		}
	}
	out := make(Entries, 0, m.Len())
	out = append(out, rest[:first]...)
	out = append(out, group...)
	out = append(out, rest[first:]...)
	return out, first
}

// Of returns the number of ancestor hops from id to the root using the
// id→parent map. A missing ancestor ends the walk early; a cycle stops it
// once every block has been visited.
func Of(parents map[string]string, id string) int {
	d, _ := walk(parents, id)
	return d
}

// Strict is Of, but a missing ancestor or a cycle is an error.
func Strict(parents map[string]string, id string) (int, error) {
	return walk(parents, id)
}

func walk(parents map[string]string, id string) (int, error) {
	seen := map[string]bool{id: true}
	d := 0
	cur := id
	for {
		p, ok := parents[cur]
		if !ok {
			if cur == id {
				return 0, fmt.Errorf("block %q: %w", id, apperr.ErrNotFound)
			}
			return d - 1, fmt.Errorf("block %q: ancestor %q missing: %w", id, cur, apperr.ErrInvalidHierarchy)
		}
		if p == "" {
			return d, nil
		}
		if seen[p] {
			return d, fmt.Errorf("block %q: cycle at %q: %w", id, p, apperr.ErrInvalidHierarchy)
		}
		seen[p] = true
		d++
		cur = p
	}
}
