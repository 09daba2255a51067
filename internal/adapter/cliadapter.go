package adapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dmaloney/relay/internal/adapterspec"
)

// CLIAdapter drives a backend through its command-line binary, one
// subprocess per execution. It maintains a single shared conversation
// (session id, turn count) guarded by a mutex; concurrent requests for a
// different conversation are expected to go through ExecIsolated instead.
type CLIAdapter struct {
	spec adapterspec.Spec
	log  *zap.Logger

	// Executable overrides the spec's default binary. Used by tests and by
	// configuration that points at a non-PATH install.
	Executable string

	mu          sync.Mutex
	initialized bool
	busy        bool
	active      bool
	sessionID   string
	threadID    string
	turns       int
}

func NewCLIAdapter(spec adapterspec.Spec, log *zap.Logger) *CLIAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &CLIAdapter{
		spec: spec,
		log:  log.With(zap.String("adapter", spec.Key)),
	}
}

func (a *CLIAdapter) Name() string { return a.spec.Key }

func (a *CLIAdapter) IsBusy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.busy
}

func (a *CLIAdapter) Info() Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Info{
		SessionID: a.sessionID,
		ThreadID:  a.threadID,
		TurnCount: a.turns,
		IsActive:  a.active,
		IsBusy:    a.busy,
	}
}

// Init probes for the backend binary. Idempotent; a missing binary means
// the adapter is unavailable and failover should skip past it.
func (a *CLIAdapter) Init(ctx context.Context) error {
	_ = ctx
	a.mu.Lock()
	if a.initialized {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	if _, err := exec.LookPath(a.executable()); err != nil {
		return fmt.Errorf("%s unavailable: %w", a.spec.Key, err)
	}
	a.mu.Lock()
	a.initialized = true
	a.active = true
	a.mu.Unlock()
	return nil
}

func (a *CLIAdapter) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionID = ""
	a.threadID = ""
	a.turns = 0
	return nil
}

func (a *CLIAdapter) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// Exec runs one prompt through the shared conversation. The session id and
// turn counter mutate under the adapter's lock; the subprocess itself runs
// outside it so IsBusy stays observable.
func (a *CLIAdapter) Exec(ctx context.Context, message string, opts ExecOptions) (Result, error) {
	a.mu.Lock()
	if a.busy {
		a.mu.Unlock()
		return Result{}, fmt.Errorf("%s is busy with session %q", a.spec.Key, a.sessionID)
	}
	a.busy = true
	a.sessionID = opts.SessionID
	a.turns++
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.busy = false
		a.mu.Unlock()
	}()

	return a.run(ctx, message, opts)
}

// ExecIsolated runs one prompt in a fresh subprocess without claiming the
// shared conversation state.
func (a *CLIAdapter) ExecIsolated(ctx context.Context, message string, opts ExecOptions) (Result, error) {
	return a.run(ctx, message, opts)
}

func (a *CLIAdapter) SdkCommands() []string {
	return append([]string{}, a.spec.SdkCommands...)
}

// ExecSdkCommand forwards a backend-native slash command verbatim as a
// prompt. Declared-command enforcement happens in the orchestrator.
func (a *CLIAdapter) ExecSdkCommand(ctx context.Context, command, args string, opts ExecOptions) (string, error) {
	prompt := command
	if strings.TrimSpace(args) != "" {
		prompt = command + " " + args
	}
	res, err := a.run(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	return res.PrimaryText(), nil
}

func (a *CLIAdapter) executable() string {
	if a.Executable != "" {
		return a.Executable
	}
	if a.spec.CLI != nil && a.spec.CLI.DefaultExecutable != "" {
		return a.spec.CLI.DefaultExecutable
	}
	return a.spec.Key
}

// buildArgs expands the spec's invocation template. Placeholder-bearing
// entries whose value is empty are dropped together with a preceding flag
// so optional model/cwd settings do not produce dangling flags.
func (a *CLIAdapter) buildArgs(message string, opts ExecOptions) []string {
	if a.spec.CLI == nil {
		return []string{message}
	}
	tmpl := a.spec.CLI.InvocationTemplate
	out := make([]string, 0, len(tmpl))
	for i := 0; i < len(tmpl); i++ {
		arg := tmpl[i]
		switch arg {
		case "{{model}}", "{{cwd}}":
			val := opts.Model
			if arg == "{{cwd}}" {
				val = opts.Cwd
			}
			if val == "" {
				// Drop the flag that introduced this placeholder.
				if len(out) > 0 && strings.HasPrefix(out[len(out)-1], "-") {
					out = out[:len(out)-1]
				}
				continue
			}
			out = append(out, val)
		case "{{prompt}}":
			out = append(out, message)
		default:
			out = append(out, arg)
		}
	}
	return out
}

func (a *CLIAdapter) run(ctx context.Context, message string, opts ExecOptions) (Result, error) {
	args := a.buildArgs(message, opts)
	cmd := exec.CommandContext(ctx, a.executable(), args...)
	if opts.Cwd != "" {
		cmd.Dir = opts.Cwd
	}
	if a.spec.CLI != nil && a.spec.CLI.PromptMode == "stdin" {
		cmd.Stdin = strings.NewReader(message)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	a.log.Debug("exec backend cli",
		zap.String("executable", a.executable()),
		zap.Int("args", len(args)),
		zap.String("session_id", opts.SessionID))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Result{}, fmt.Errorf("%s exec failed: %s", a.spec.Key, msg)
	}

	return Result{
		FinalResponse: strings.TrimRight(stdout.String(), "\n"),
		SessionID:     opts.SessionID,
	}, nil
}
