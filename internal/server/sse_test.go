package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmaloney/relay/internal/sessionlog"
)

func TestBroadcaster_ReplayThenLive(t *testing.T) {
	b := NewBroadcaster()
	b.Send(sessionlog.Event{Role: sessionlog.RoleUser, Content: "one"})
	b.Send(sessionlog.Event{Role: sessionlog.RoleAssistant, Content: "two"})

	events, _, unsub := b.Subscribe()
	defer unsub()

	for _, want := range []string{"one", "two"} {
		select {
		case ev := <-events:
			if ev.Content != want {
				t.Fatalf("replay = %q, want %q", ev.Content, want)
			}
		case <-time.After(time.Second):
			t.Fatal("replay did not arrive")
		}
	}

	b.Send(sessionlog.Event{Role: sessionlog.RoleSystem, Content: "three"})
	select {
	case ev := <-events:
		if ev.Content != "three" {
			t.Fatalf("live = %q", ev.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("live event did not arrive")
	}
}

func TestBroadcaster_CloseSignalsDone(t *testing.T) {
	b := NewBroadcaster()
	events, doneCh, unsub := b.Subscribe()
	defer unsub()

	b.Close()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	select {
	case <-doneCh:
	default:
		t.Fatal("done channel not closed")
	}

	// Sends after close are dropped, and double-close is safe.
	b.Send(sessionlog.Event{Content: "late"})
	b.Close()
	if len(b.History()) != 0 {
		t.Fatalf("history after close = %v", b.History())
	}
}

func TestBroadcaster_SubscribeAfterClose(t *testing.T) {
	b := NewBroadcaster()
	b.Send(sessionlog.Event{Content: "kept"})
	b.Close()

	events, doneCh, unsub := b.Subscribe()
	defer unsub()

	ev, ok := <-events
	if !ok || ev.Content != "kept" {
		t.Fatalf("ev = %+v ok = %v", ev, ok)
	}
	if _, ok := <-events; ok {
		t.Fatal("channel should be closed after replay")
	}
	select {
	case <-doneCh:
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestBroadcaster_SlowClientDroppedWithoutDone(t *testing.T) {
	b := NewBroadcaster()
	events, doneCh, unsub := b.Subscribe()
	defer unsub()

	// Overflow the subscriber's buffer without draining it.
	for i := 0; i < 1024; i++ {
		b.Send(sessionlog.Event{Content: "flood"})
	}

	// Drain until the channel closes from the drop.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				// Dropped for slowness: done must NOT be signalled.
				select {
				case <-doneCh:
					t.Fatal("slow-client drop must not look like completion")
				default:
				}
				return
			}
		case <-deadline:
			t.Fatal("slow client was never dropped")
		}
	}
}

type failingRecorder struct{}

func (failingRecorder) RecordEvent(context.Context, string, sessionlog.Event) error {
	return errors.New("disk full")
}

func TestTeeRecorder_PersistsThenBroadcasts(t *testing.T) {
	store := sessionlog.NewMemoryStore()
	b := NewBroadcaster()
	tee := NewTeeRecorder(store, b)

	if err := tee.RecordEvent(context.Background(), "s1", sessionlog.Event{
		Role:    sessionlog.RoleUser,
		Content: "hello",
	}); err != nil {
		t.Fatal(err)
	}

	events, err := store.Events(context.Background(), "s1")
	if err != nil || len(events) != 1 {
		t.Fatalf("stored = %v err = %v", events, err)
	}
	hist := b.History()
	if len(hist) != 1 || hist[0].Content != "hello" || hist[0].SessionID != "s1" {
		t.Fatalf("broadcast = %+v", hist)
	}
}

func TestTeeRecorder_StoreFailureSuppressesBroadcast(t *testing.T) {
	b := NewBroadcaster()
	tee := NewTeeRecorder(failingRecorder{}, b)

	err := tee.RecordEvent(context.Background(), "s1", sessionlog.Event{Content: "x"})
	if err == nil {
		t.Fatal("store failure swallowed")
	}
	if len(b.History()) != 0 {
		t.Fatal("unpersisted event was broadcast")
	}
}
