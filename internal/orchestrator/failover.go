package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmaloney/relay/internal/adapter"
	"github.com/dmaloney/relay/internal/adapterspec"
	"github.com/dmaloney/relay/internal/sessionlog"
)

// Request is one logical execution request. Zero-valued fields fall back
// to process-wide defaults.
type Request struct {
	Message     string
	SessionID   string // defaults to "<adapter>-default"
	SessionType string
	Mode        Mode          // defaults to the orchestrator's current mode
	Timeout     time.Duration // per-attempt deadline, defaults to DefaultExecTimeout
	Attachments []Attachment
	Model       string
	Cwd         string

	// ForceIsolated routes the call through the pooled path regardless of
	// adapter state. AllowConcurrent pins the shared path when explicitly
	// false; nil leaves the decision to the isolation policy.
	ForceIsolated   bool
	AllowConcurrent *bool
}

// AttemptOutcome is the terminal state of one execution attempt.
type AttemptOutcome string

const (
	OutcomeSuccess AttemptOutcome = "success"
	OutcomeTimeout AttemptOutcome = "timeout"
	OutcomeError   AttemptOutcome = "error"
)

// Attempt is one try against one adapter.
type Attempt struct {
	ID        string         `json:"id"`
	Adapter   string         `json:"adapter"`
	StartedAt time.Time      `json:"started_at"`
	Outcome   AttemptOutcome `json:"outcome"`
	Error     string         `json:"error,omitempty"`
	Isolated  bool           `json:"isolated,omitempty"`
}

// Response is the well-formed result every Execute call produces, success
// or not. Items and Usage are always renderable: Items is never nil on a
// failure payload.
type Response struct {
	OK            bool           `json:"ok"`
	FinalResponse string         `json:"final_response"`
	Items         []any          `json:"items"`
	Usage         *adapter.Usage `json:"usage"`
	Adapter       string         `json:"adapter,omitempty"`
	SessionID     string         `json:"session_id"`
	LastError     string         `json:"last_error,omitempty"`
	Attempts      []Attempt      `json:"attempts"`
}

// candidates builds the ordered fallback chain: the active adapter first,
// then the fixed global order, deduplicated, keeping only adapters that
// are registered and not disabled by their environment flag.
func (o *Orchestrator) candidates(activeName string) []string {
	ordered := append([]string{activeName}, adapterspec.FallbackOrder()...)
	seen := map[string]struct{}{}
	out := make([]string, 0, len(ordered))
	for _, name := range ordered {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := o.reg.Get(name); !ok {
			continue
		}
		if spec, ok := adapterspec.Builtin(name); ok && adapterspec.Disabled(spec) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Execute runs the request against the fallback chain. Failures inside an
// attempt never escape: the result is either a successful response or a
// structured terminal failure. The returned error is reserved for
// programmer misuse (it is nil for timeouts, adapter errors and
// exhaustion).
func (o *Orchestrator) Execute(ctx context.Context, req Request) (Response, error) {
	_, activeName := o.activeSnapshot()

	sessionID := trimOrDefault(req.SessionID, defaultSessionID(activeName))
	mode := req.Mode
	if mode == "" {
		mode = o.Mode()
	}
	timeout := req.Timeout
	if timeout == 0 {
		timeout = o.execTimeout
	}
	model := trimOrDefault(req.Model, o.defaultModel)

	// The inbound user message is recorded before framing.
	o.recordEvent(ctx, sessionID, sessionlog.Event{
		Role:    sessionlog.RoleUser,
		Type:    sessionlog.TypeMessage,
		Content: req.Message,
		Meta:    map[string]string{"adapter": activeName, "mode": string(mode)},
	})

	framed := FrameMessage(req.Message, mode)
	framed, _ = AppendAttachments(framed, req.Attachments)

	resp := Response{SessionID: sessionID, Items: []any{}}

	cands := o.candidates(activeName)
	if len(cands) == 0 {
		msg := "no eligible agents: every adapter is disabled or unregistered"
		o.recordEvent(ctx, sessionID, sessionlog.Event{
			Role:    sessionlog.RoleSystem,
			Type:    sessionlog.TypeError,
			Content: msg,
		})
		resp.FinalResponse = "All agents are unavailable. " + msg
		resp.LastError = msg
		return resp, nil
	}

	maxAttempts := o.maxFailover + 1
	if len(cands) < maxAttempts {
		maxAttempts = len(cands)
	}

	var lastErr error
	attemptsUsed := 0
	for i := 0; i < len(cands) && attemptsUsed < maxAttempts; i++ {
		name := cands[i]
		cand, ok := o.reg.Get(name)
		if !ok {
			continue
		}

		if i > 0 {
			// Failover: announce the switch on the timeline, then mutate
			// the global selection so subsequent requests start here.
			o.recordEvent(ctx, sessionID, sessionlog.Event{
				Role:    sessionlog.RoleSystem,
				Type:    sessionlog.TypeFailover,
				Content: fmt.Sprintf("Failing over from %s to %s after error: %v", cands[i-1], name, lastErr),
				Meta:    map[string]string{"from": cands[i-1], "to": name},
			})
			o.setActive(cand, name)

			if init, isInit := cand.(adapter.Initializable); isInit {
				if err := init.Init(ctx); err != nil {
					// Does not consume a timed attempt slot; advance.
					lastErr = &InitError{Adapter: name, Err: err}
					o.log.Warn("failover candidate init failed", zap.String("adapter", name), zap.Error(err))
					o.recordEvent(ctx, sessionID, sessionlog.Event{
						Role:    sessionlog.RoleSystem,
						Type:    sessionlog.TypeError,
						Content: lastErr.Error(),
					})
					continue
				}
			}
		}
		attemptsUsed++

		isolated := ShouldIsolate(cand, sessionID, req.ForceIsolated, req.AllowConcurrent)
		execFn := cand.Exec
		if isolated {
			if iso, isIso := cand.(adapter.IsolatedExecutor); isIso {
				execFn = iso.ExecIsolated
			}
		}

		at := Attempt{
			ID:        uuid.NewString(),
			Adapter:   name,
			StartedAt: time.Now().UTC(),
			Isolated:  isolated,
		}
		opts := adapter.ExecOptions{
			SessionID:   sessionID,
			SessionType: req.SessionType,
			Mode:        string(mode),
			Model:       model,
			Cwd:         req.Cwd,
		}

		res, err := WithTimeout(ctx, timeout, name+".exec", func(opCtx context.Context) (adapter.Result, error) {
			return execFn(opCtx, framed, opts)
		})
		if err == nil {
			at.Outcome = OutcomeSuccess
			resp.Attempts = append(resp.Attempts, at)

			text := res.PrimaryText()
			o.recordEvent(ctx, sessionID, sessionlog.Event{
				Role:    sessionlog.RoleAssistant,
				Type:    sessionlog.TypeMessage,
				Content: text,
				Meta:    map[string]string{"adapter": name},
			})
			resp.OK = true
			resp.FinalResponse = text
			resp.Adapter = name
			if res.Items != nil {
				resp.Items = res.Items
			}
			resp.Usage = res.Usage
			return resp, nil
		}

		// Caller-initiated abort is terminal: retrying a request the user
		// stopped would be worse than failing it.
		if ctx.Err() != nil {
			at.Outcome = OutcomeError
			at.Error = err.Error()
			resp.Attempts = append(resp.Attempts, at)
			o.recordEvent(context.WithoutCancel(ctx), sessionID, sessionlog.Event{
				Role:    sessionlog.RoleSystem,
				Type:    sessionlog.TypeError,
				Content: err.Error(),
			})
			resp.FinalResponse = "Request aborted: " + err.Error()
			resp.LastError = err.Error()
			return resp, nil
		}

		if IsTimeout(err) {
			at.Outcome = OutcomeTimeout
			o.log.Warn("attempt timed out", zap.String("adapter", name), zap.Duration("timeout", timeout))
		} else {
			err = &AdapterError{Adapter: name, Err: err}
			at.Outcome = OutcomeError
			o.log.Warn("attempt failed", zap.String("adapter", name), zap.Error(err))
		}
		at.Error = err.Error()
		resp.Attempts = append(resp.Attempts, at)
		lastErr = err
	}

	// Exhausted: always a structured failure, never an escaping error.
	timedOut := IsTimeout(lastErr)
	evType := sessionlog.TypeError
	summary := fmt.Sprintf("All agents failed after %d attempt(s). Last error: %v", attemptsUsed, lastErr)
	if timedOut {
		evType = sessionlog.TypeTimeout
		summary = fmt.Sprintf("All agents timed out after %d attempt(s). Last error: %v", attemptsUsed, lastErr)
	}
	o.recordEvent(ctx, sessionID, sessionlog.Event{
		Role:    sessionlog.RoleSystem,
		Type:    evType,
		Content: summary,
	})
	resp.FinalResponse = summary
	if lastErr != nil {
		resp.LastError = lastErr.Error()
	}
	return resp, nil
}
