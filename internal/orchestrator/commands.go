package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmaloney/relay/internal/adapter"
	"github.com/dmaloney/relay/internal/adapterspec"
)

// ExecSdkCommand forwards a backend-native slash command to the named
// adapter (or the active one when adapterName is empty). The command is
// normalized to start with "/". "/clear" resets the adapter's session and
// reports success uniformly across adapters; every other command must be
// declared in the adapter's capability list before it is forwarded.
func (o *Orchestrator) ExecSdkCommand(ctx context.Context, command, args, adapterName string) (string, error) {
	var a adapter.Adapter
	var name string
	if strings.TrimSpace(adapterName) != "" {
		name = adapterspec.CanonicalKey(adapterName)
		var ok bool
		a, ok = o.reg.Get(name)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownAgent, adapterName)
		}
	} else {
		a, name = o.activeSnapshot()
	}

	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return "", fmt.Errorf("empty SDK command")
	}
	if !strings.HasPrefix(cmd, "/") {
		cmd = "/" + cmd
	}

	if cmd == "/clear" {
		if r, ok := a.(adapter.Resettable); ok {
			if err := r.Reset(); err != nil {
				return "", fmt.Errorf("clear session on %s: %w", name, err)
			}
		}
		return "Session cleared.", nil
	}

	sc, ok := a.(adapter.SdkCommandable)
	if !ok {
		return "", fmt.Errorf("adapter %s does not support SDK commands (supported: none)", name)
	}
	declared := sc.SdkCommands()
	if !slices.Contains(declared, cmd) {
		return "", fmt.Errorf("unknown SDK command %s for %s (supported: %s)",
			cmd, name, strings.Join(declared, ", "))
	}
	return sc.ExecSdkCommand(ctx, cmd, args, adapter.ExecOptions{
		SessionID: defaultSessionID(name),
	})
}
