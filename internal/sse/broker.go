// Package sse implements a Server-Sent Events broker for document and block
// mutations.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/tessera/internal/mutation"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// BlockPayload is the data of a block.* event.
type BlockPayload struct {
	DocumentID string `json:"documentId"`
	mutation.Event
}

type blockEventReq struct {
	documentID string
	event      mutation.Event
}

type documentEventReq struct {
	kind string
	id   string
}

// subscription is a client channel and the document it follows. An empty
// documentID follows every document.
type subscription struct {
	ch         chan []byte
	documentID string
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable
// state (clients with their document filters + per-document throttle
// timestamps). Public methods communicate with this loop through channels, so
// no mutexes are required.
type Broker struct {
	changedMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	blockCh       chan blockEventReq
	documentCh    chan documentEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. document.changed is emitted at most
// once per throttle interval per document.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		changedMin:    throttle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		blockCh:       make(chan blockEventReq, 256),
		documentCh:    make(chan documentEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	lastChanged := make(map[string]time.Time)

	// broadcast delivers to clients following documentID; events without a
	// document reach everyone.
	broadcast := func(event Event, documentID string) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch, follows := range clients {
			if follows != "" && documentID != "" && follows != documentID {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	changed := func(id string) {
		now := time.Now()
		if now.Sub(lastChanged[id]) >= b.changedMin {
			lastChanged[id] = now
			broadcast(Event{Type: "document.changed", Data: map[string]string{"id": id}}, id)
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.documentID

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event, "")

		case req := <-b.blockCh:
			broadcast(Event{
				Type: "block." + string(req.event.Kind),
				Data: BlockPayload{DocumentID: req.documentID, Event: req.event},
			}, req.documentID)
			changed(req.documentID)

		case req := <-b.documentCh:
			switch req.kind {
			case "created", "updated", "deleted", "saved":
				broadcast(Event{Type: "document." + req.kind, Data: map[string]string{"id": req.id}}, req.id)
			}
			if req.kind == "deleted" {
				delete(lastChanged, req.id)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client following documentID, or every document when
// it is empty, and returns its channel.
func (b *Broker) Subscribe(documentID string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, documentID: documentID}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients regardless of filter.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishBlockEvent broadcasts a block mutation and a throttled
// document.changed for its document.
func (b *Broker) PublishBlockEvent(documentID string, e mutation.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.blockCh <- blockEventReq{documentID: documentID, event: e}:
	case <-b.stopped:
	}
}

// PublishDocumentEvent broadcasts document.<kind> where kind is one of
// "created", "updated", "deleted", "saved".
func (b *Broker) PublishDocumentEvent(kind, id string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.documentCh <- documentEventReq{kind: kind, id: id}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The document
// query parameter limits the stream to one document.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("document"))
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
