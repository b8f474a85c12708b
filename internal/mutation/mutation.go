// Package mutation carries document change notifications to history,
// collaboration and UI consumers.
package mutation

import (
	"sync"

	"github.com/starford/tessera/internal/block"
)

// Kind names a mutation.
type Kind string

const (
	Added   Kind = "added"
	Removed Kind = "removed"
	Changed Kind = "changed"
	Moved   Kind = "moved"
)

// Event describes one mutation. FromIndex and ToIndex are set for Moved.
type Event struct {
	Kind      Kind       `json:"kind"`
	BlockID   string     `json:"blockId"`
	Tool      string     `json:"tool"`
	Index     int        `json:"index"`
	FromIndex int        `json:"fromIndex"`
	ToIndex   int        `json:"toIndex"`
	Target    *block.API `json:"-"`
}

// New builds an event for b at index.
func New(kind Kind, b *block.Block, index int) Event {
	return Event{Kind: kind, BlockID: b.ID(), Tool: b.Name(), Index: index, Target: b.API()}
}

// Handler consumes events. It runs on the publishing goroutine.
type Handler func(Event)

// Bus fans events out to subscribers synchronously, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id int
	fn Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers e to every subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]Handler, len(b.subs))
	for i, s := range b.subs {
		subs[i] = s.fn
	}
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(e)
	}
}
