// Package sessionlog records per-session event timelines. The orchestrator
// appends user, assistant, system and failover events through the Recorder
// interface; sessions are created implicitly on first write so recording is
// always safe.
package sessionlog

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/zeebo/blake3"
)

// Roles and event types used by the orchestrator.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleError     = "error"

	TypeMessage  = "message"
	TypeFailover = "failover"
	TypeError    = "error"
	TypeTimeout  = "timeout"
)

// Event is one entry on a session timeline. ID and Digest are filled by the
// store on write when empty.
type Event struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Role      string            `json:"role"`
	Type      string            `json:"type,omitempty"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Meta      map[string]string `json:"meta,omitempty"`
	Digest    string            `json:"digest,omitempty"`
}

// Recorder appends events to a durable per-session timeline.
type Recorder interface {
	RecordEvent(ctx context.Context, sessionID string, ev Event) error
}

// Store extends Recorder with reads, for the HTTP surface and tests.
type Store interface {
	Recorder
	Events(ctx context.Context, sessionID string) ([]Event, error)
	Sessions(ctx context.Context) ([]string, error)
}

// normalize stamps identity and integrity fields on an event before write.
func normalize(sessionID string, ev Event) Event {
	ev.SessionID = sessionID
	if ev.ID == "" {
		ev.ID = ulid.Make().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Digest == "" {
		sum := blake3.Sum256([]byte(ev.Content))
		ev.Digest = hex.EncodeToString(sum[:])
	}
	return ev
}
