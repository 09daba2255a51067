package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmaloney/relay/internal/adapterspec"
	"github.com/dmaloney/relay/internal/orchestrator"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	active, selection := s.orch.Active()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"active":    active,
		"selection": selection,
		"mode":      string(s.orch.Mode()),
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	active, _ := s.orch.Active()
	out := []AgentInfo{}
	for _, key := range adapterspec.FallbackOrder() {
		a, ok := s.reg.Get(key)
		if !ok {
			continue
		}
		info := AgentInfo{
			Name:   key,
			Active: key == active,
			Busy:   a.IsBusy(),
		}
		if spec, ok := adapterspec.Builtin(key); ok {
			info.DisplayName = spec.DisplayName
			info.Provider = spec.Provider
			info.Aliases = spec.Aliases
			info.Disabled = adapterspec.Disabled(spec)
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.Mode != "" && !orchestrator.ValidMode(orchestrator.Mode(req.Mode)) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid mode %q", req.Mode))
		return
	}

	// Execution outlives the HTTP request only through its own deadline;
	// a dropped client aborts the attempt.
	resp, err := s.orch.Execute(r.Context(), orchestrator.Request{
		Message:         req.Message,
		SessionID:       req.SessionID,
		SessionType:     req.SessionType,
		Mode:            orchestrator.Mode(req.Mode),
		Timeout:         time.Duration(req.TimeoutMs) * time.Millisecond,
		Attachments:     req.Attachments,
		Model:           req.Model,
		Cwd:             req.Cwd,
		ForceIsolated:   req.ForceIsolated,
		AllowConcurrent: req.AllowConcurrent,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Terminal failures are structured results, not transport errors.
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Agent == "" {
		writeError(w, http.StatusBadRequest, "agent is required")
		return
	}
	if err := s.orch.Switch(r.Context(), req.Agent); err != nil {
		if errors.Is(err, orchestrator.ErrUnknownAgent) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		var ie *orchestrator.InitError
		if errors.As(err, &ie) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	active, selection := s.orch.Active()
	writeJSON(w, http.StatusOK, map[string]string{"active": active, "selection": selection})
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := s.orch.SetMode(orchestrator.Mode(req.Mode)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": req.Mode})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	out, err := s.orch.ExecSdkCommand(r.Context(), req.Command, req.Args, req.Agent)
	if err != nil {
		if errors.Is(err, orchestrator.ErrUnknownAgent) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Output: out})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ids, err := s.store.Sessions(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, ids)
		return
	}
	sessions, err := s.orch.Sessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "no event store configured")
		return
	}
	events, err := s.store.Events(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleEvents tails the live timeline over SSE: a replay of everything the
// broadcaster has seen, then live events as requests execute.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	WriteSSE(w, r, s.bcast)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
