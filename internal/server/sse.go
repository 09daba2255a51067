package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/dmaloney/relay/internal/sessionlog"
)

// Broadcaster fans out session timeline events to multiple SSE clients.
// One Broadcaster per server. Thread-safe.
type Broadcaster struct {
	mu      sync.Mutex
	history []sessionlog.Event
	clients map[uint64]chan sessionlog.Event
	nextID  uint64
	closed  bool
	doneCh  chan struct{} // closed only on real broadcaster Close(), not slow-client drops
}

// NewBroadcaster creates a new event broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[uint64]chan sessionlog.Event),
		doneCh:  make(chan struct{}),
	}
}

// Send publishes one timeline event to history and all live subscribers.
func (b *Broadcaster) Send(ev sessionlog.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.history = append(b.history, ev)
	for id, ch := range b.clients {
		select {
		case ch <- ev:
		default:
			// Slow client: drop to avoid blocking the execution path.
			close(ch)
			delete(b.clients, id)
		}
	}
}

// Subscribe returns an events channel, a done channel, and an unsubscribe
// function. The events channel receives a replay of all historical events,
// then live events. The done channel is closed only when the broadcaster is
// closed (server shutting down), NOT when a slow client is dropped.
func (b *Broadcaster) Subscribe() (<-chan sessionlog.Event, <-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan sessionlog.Event, len(b.history)+256)
	id := b.nextID
	b.nextID++

	// Replay history. Channel is sized to fit all history plus live
	// headroom, so this never blocks while holding the mutex.
	for _, ev := range b.history {
		ch <- ev
	}

	if b.closed {
		close(ch)
		return ch, b.doneCh, func() {}
	}

	b.clients[id] = ch
	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.clients[id]; ok {
			delete(b.clients, id)
			close(ch)
		}
	}
	return ch, b.doneCh, unsub
}

// Close signals that no more events will be sent. All client channels are
// closed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.doneCh)
	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}
}

// History returns a copy of all events received so far.
func (b *Broadcaster) History() []sessionlog.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]sessionlog.Event, len(b.history))
	copy(out, b.history)
	return out
}

// TeeRecorder persists timeline events to an inner recorder and mirrors
// them to a Broadcaster for live SSE consumers. Events that fail to
// persist are not broadcast.
type TeeRecorder struct {
	inner sessionlog.Recorder
	b     *Broadcaster
}

func NewTeeRecorder(inner sessionlog.Recorder, b *Broadcaster) *TeeRecorder {
	return &TeeRecorder{inner: inner, b: b}
}

func (t *TeeRecorder) RecordEvent(ctx context.Context, sessionID string, ev sessionlog.Event) error {
	if err := t.inner.RecordEvent(ctx, sessionID, ev); err != nil {
		return err
	}
	stored := ev
	stored.SessionID = sessionID
	t.b.Send(stored)
	return nil
}

// WriteSSE streams events from a Broadcaster to an HTTP response as
// Server-Sent Events.
func WriteSSE(w http.ResponseWriter, r *http.Request, b *Broadcaster) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx proxy compatibility
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, doneCh, unsub := b.Subscribe()
	defer unsub()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				// Channel closed. Only emit "done" if the broadcaster
				// actually finished (vs. this client being dropped for
				// slowness).
				select {
				case <-doneCh:
					fmt.Fprintf(w, "event: done\ndata: {}\n\n")
					flusher.Flush()
				default:
				}
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
