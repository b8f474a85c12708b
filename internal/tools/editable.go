// Package tools provides the built-in content handlers and tunes.
package tools

import (
	"maps"
	"strings"
	"sync"

	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/sanitize"
)

// Editable is the element the text tools render: the live field values a
// host edits in place. It is safe for concurrent use.
type Editable struct {
	mu     sync.RWMutex
	fields block.Data
}

// NewEditable creates an element seeded with a copy of fields.
func NewEditable(fields block.Data) *Editable {
	f := maps.Clone(fields)
	if f == nil {
		f = block.Data{}
	}
	return &Editable{fields: f}
}

// Set writes one field.
func (e *Editable) Set(key string, v any) {
	e.mu.Lock()
	e.fields[key] = v
	e.mu.Unlock()
}

// Text returns a string field, or "".
func (e *Editable) Text(key string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, _ := e.fields[key].(string)
	return s
}

// Append concatenates s onto a string field.
func (e *Editable) Append(key, s string) {
	e.mu.Lock()
	cur, _ := e.fields[key].(string)
	e.fields[key] = cur + s
	e.mu.Unlock()
}

// Snapshot returns a copy of every field.
func (e *Editable) Snapshot() block.Data {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.fields)
}

func str(d block.Data, key string) string {
	s, _ := d[key].(string)
	return s
}

func toInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

func blank(s string) bool {
	return strings.TrimSpace(sanitize.PlainText(s)) == ""
}

// inline is the markup text fields keep: the usual inline formatting.
var inline = sanitize.Allow("b", "strong", "i", "em", "u", "s", "code", "mark", "br").
	With("a", "href", "target", "rel")

func asEditable(el any) (*Editable, bool) {
	e, ok := el.(*Editable)
	return e, ok
}
