package server

import "github.com/dmaloney/relay/internal/orchestrator"

// ExecuteRequest is the POST /v1/execute body.
type ExecuteRequest struct {
	Message         string                    `json:"message"`
	SessionID       string                    `json:"session_id,omitempty"`
	SessionType     string                    `json:"session_type,omitempty"`
	Mode            string                    `json:"mode,omitempty"`
	TimeoutMs       int64                     `json:"timeout_ms,omitempty"`
	Model           string                    `json:"model,omitempty"`
	Cwd             string                    `json:"cwd,omitempty"`
	Attachments     []orchestrator.Attachment `json:"attachments,omitempty"`
	ForceIsolated   bool                      `json:"force_isolated,omitempty"`
	AllowConcurrent *bool                     `json:"allow_concurrent,omitempty"`
}

// SwitchRequest is the POST /v1/switch body.
type SwitchRequest struct {
	Agent string `json:"agent"`
}

// ModeRequest is the POST /v1/mode body.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// CommandRequest is the POST /v1/command body.
type CommandRequest struct {
	Command string `json:"command"`
	Args    string `json:"args,omitempty"`
	Agent   string `json:"agent,omitempty"`
}

// CommandResponse carries the output of a forwarded backend command.
type CommandResponse struct {
	Output string `json:"output"`
}

// AgentInfo is one entry in the GET /v1/agents listing.
type AgentInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Disabled    bool     `json:"disabled"`
	Active      bool     `json:"active"`
	Busy        bool     `json:"busy"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
