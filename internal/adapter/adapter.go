// Package adapter defines the contract between the orchestrator and the
// interchangeable backend execution engines, plus the immutable registry
// that maps adapter names to implementations.
package adapter

import (
	"context"
	"encoding/json"
	"strings"
)

// Info is a snapshot of an adapter's shared conversation state.
type Info struct {
	SessionID string `json:"session_id"`
	ThreadID  string `json:"thread_id"`
	TurnCount int    `json:"turn_count"`
	IsActive  bool   `json:"is_active"`
	IsBusy    bool   `json:"is_busy"`
}

// Usage is the token accounting reported by a backend, when available.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Result is one completed execution against a backend. Backends differ in
// which text field they populate; PrimaryText resolves the priority chain.
type Result struct {
	FinalResponse string `json:"final_response,omitempty"`
	Text          string `json:"text,omitempty"`
	Message       string `json:"message,omitempty"`
	Items         []any  `json:"items,omitempty"`
	Usage         *Usage `json:"usage,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
}

// PrimaryText extracts the human-readable text from a result using the
// field priority final_response, text, message, then a JSON rendering of
// whatever is left.
func (r Result) PrimaryText() string {
	if s := strings.TrimSpace(r.FinalResponse); s != "" {
		return r.FinalResponse
	}
	if s := strings.TrimSpace(r.Text); s != "" {
		return r.Text
	}
	if s := strings.TrimSpace(r.Message); s != "" {
		return r.Message
	}
	b, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(b)
}

// ExecOptions carries the per-call execution parameters down to a backend.
type ExecOptions struct {
	SessionID   string
	SessionType string
	Mode        string
	Model       string
	Cwd         string
}

// Adapter is the required base contract for a backend execution engine.
// Everything beyond these three methods is an optional capability that
// callers probe for with interface assertions.
type Adapter interface {
	Name() string
	Exec(ctx context.Context, message string, opts ExecOptions) (Result, error)
	IsBusy() bool
}

// Initializable adapters verify availability before first use. Init is
// idempotent; an error means the backend is unavailable.
type Initializable interface {
	Init(ctx context.Context) error
}

// InfoProvider exposes the shared conversation snapshot used by the
// execution isolation policy.
type InfoProvider interface {
	Info() Info
}

// Resettable adapters can drop their shared conversation state.
type Resettable interface {
	Reset() error
}

// Steerable adapters accept best-effort mid-flight steering input.
type Steerable interface {
	Steer(ctx context.Context, message string) error
}

// IsolatedExecutor adapters support a pooled execution path that runs a
// request in a fresh context without touching the shared conversation.
type IsolatedExecutor interface {
	ExecIsolated(ctx context.Context, message string, opts ExecOptions) (Result, error)
}

// SessionSummary describes one stored backend conversation.
type SessionSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// SessionManageable adapters expose backend-native session management.
type SessionManageable interface {
	SessionID() string
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	SwitchSession(ctx context.Context, id string) error
	CreateSession(ctx context.Context) (string, error)
}

// SdkCommandable adapters declare and execute backend-native slash commands.
type SdkCommandable interface {
	SdkCommands() []string
	ExecSdkCommand(ctx context.Context, command, args string, opts ExecOptions) (string, error)
}
