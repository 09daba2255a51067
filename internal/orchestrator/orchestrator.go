// Package orchestrator is the adapter-selection, execution, timeout and
// failover core. It frames a user message for the current interaction
// mode, decides whether the call needs the isolated execution path, races
// the chosen adapter against a deadline, and on failure retries against
// the next eligible adapter in the fixed fallback order.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmaloney/relay/internal/adapter"
	"github.com/dmaloney/relay/internal/adapterspec"
	"github.com/dmaloney/relay/internal/sessionlog"
)

// Process-wide defaults.
const (
	DefaultExecTimeout = 45 * time.Minute
	// MaxFailoverAttempts bounds retries after the first attempt,
	// independent of how many adapters are configured.
	MaxFailoverAttempts = 2
)

// Options configures a new Orchestrator. Zero values fall back to the
// process-wide defaults.
type Options struct {
	InitialAdapter      string // adapter key; empty picks the first eligible fallback entry
	SelectionID         string // human-facing selection id; defaults to the adapter key
	DefaultModel        string
	DefaultMode         Mode
	ExecTimeout         time.Duration
	MaxFailoverAttempts int
}

// Orchestrator owns the process's active selection and drives execution
// with failover. All selection state lives on the struct; two independent
// orchestrators share nothing.
type Orchestrator struct {
	log *zap.Logger
	reg *adapter.Registry
	rec sessionlog.Recorder

	execTimeout time.Duration
	maxFailover int

	mu           sync.Mutex
	active       adapter.Adapter
	selectionID  string
	mode         Mode
	defaultModel string
}

// New resolves the initial active selection and returns the orchestrator.
// An empty registry is a programmer error: execution could never resolve
// an adapter.
func New(reg *adapter.Registry, rec sessionlog.Recorder, log *zap.Logger, opts Options) (*Orchestrator, error) {
	if reg == nil || len(reg.Names()) == 0 {
		return nil, fmt.Errorf("orchestrator requires at least one registered adapter")
	}
	if rec == nil {
		rec = sessionlog.NewMemoryStore()
	}
	if log == nil {
		log = zap.NewNop()
	}

	o := &Orchestrator{
		log:          log.With(zap.String("component", "orchestrator")),
		reg:          reg,
		rec:          rec,
		execTimeout:  opts.ExecTimeout,
		maxFailover:  opts.MaxFailoverAttempts,
		mode:         opts.DefaultMode,
		defaultModel: opts.DefaultModel,
	}
	if o.execTimeout <= 0 {
		o.execTimeout = DefaultExecTimeout
	}
	if o.maxFailover <= 0 {
		o.maxFailover = MaxFailoverAttempts
	}
	if o.mode == "" {
		o.mode = ModeAgent
	}

	name := adapterspec.CanonicalKey(opts.InitialAdapter)
	if name == "" {
		name = o.firstEligible()
	}
	a, ok := reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("initial adapter %q is not registered", name)
	}
	o.active = a
	o.selectionID = opts.SelectionID
	if o.selectionID == "" {
		o.selectionID = name
	}
	return o, nil
}

// firstEligible returns the first registered, non-disabled adapter in the
// fixed fallback order, falling back to the first registered name.
func (o *Orchestrator) firstEligible() string {
	for _, key := range adapterspec.FallbackOrder() {
		if _, ok := o.reg.Get(key); !ok {
			continue
		}
		if spec, ok := adapterspec.Builtin(key); ok && adapterspec.Disabled(spec) {
			continue
		}
		return key
	}
	return o.reg.Names()[0]
}

// Active returns the current adapter name and the human-facing selection
// id (a profile name may differ from the adapter name).
func (o *Orchestrator) Active() (adapterName, selectionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active.Name(), o.selectionID
}

func (o *Orchestrator) activeSnapshot() (adapter.Adapter, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active, o.active.Name()
}

func (o *Orchestrator) setActive(a adapter.Adapter, selectionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = a
	o.selectionID = selectionID
}

// Switch changes the active selection to the named adapter. Unknown names
// return ErrUnknownAgent without mutating the selection; an explicit user
// choice is never substituted with a different adapter. An initialization
// failure also leaves the previous selection in place.
func (o *Orchestrator) Switch(ctx context.Context, name string) error {
	key := adapterspec.CanonicalKey(name)
	a, ok := o.reg.Get(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, name)
	}
	if init, ok := a.(adapter.Initializable); ok {
		if err := init.Init(ctx); err != nil {
			return &InitError{Adapter: key, Err: err}
		}
	}
	o.setActive(a, key)
	o.log.Info("switched active adapter", zap.String("adapter", key))
	return nil
}

// Mode returns the process-wide default interaction mode.
func (o *Orchestrator) Mode() Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// SetMode updates the default interaction mode. Invalid input is rejected
// without mutation.
func (o *Orchestrator) SetMode(m Mode) error {
	if !ValidMode(m) {
		return fmt.Errorf("invalid mode %q: must be one of ask, agent, plan", string(m))
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mode = m
	return nil
}

// SdkCommands returns the active adapter's declared backend-native
// commands, empty when the capability is absent.
func (o *Orchestrator) SdkCommands() []string {
	a, _ := o.activeSnapshot()
	if sc, ok := a.(adapter.SdkCommandable); ok {
		return sc.SdkCommands()
	}
	return []string{}
}

// Steer forwards best-effort mid-flight steering input to the active
// adapter.
func (o *Orchestrator) Steer(ctx context.Context, message string) error {
	a, name := o.activeSnapshot()
	st, ok := a.(adapter.Steerable)
	if !ok {
		return fmt.Errorf("adapter %s does not support steering", name)
	}
	return st.Steer(ctx, message)
}

// Sessions lists the active adapter's stored sessions. Adapters without
// session management degrade to an empty list.
func (o *Orchestrator) Sessions(ctx context.Context) ([]adapter.SessionSummary, error) {
	a, _ := o.activeSnapshot()
	if sm, ok := a.(adapter.SessionManageable); ok {
		return sm.ListSessions(ctx)
	}
	return []adapter.SessionSummary{}, nil
}

// defaultSessionID synthesizes the session id used when the caller does
// not supply one.
func defaultSessionID(adapterName string) string {
	return adapterName + "-default"
}

// recordEvent appends to the session timeline. Recorder failures must not
// fail the request; they are logged and the request proceeds.
func (o *Orchestrator) recordEvent(ctx context.Context, sessionID string, ev sessionlog.Event) {
	if err := o.rec.RecordEvent(ctx, sessionID, ev); err != nil {
		o.log.Warn("record event failed",
			zap.String("session_id", sessionID),
			zap.String("role", ev.Role),
			zap.Error(err))
	}
}

func trimOrDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
