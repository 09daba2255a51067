package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmaloney/relay/internal/adapter"
)

func TestExecSdkCommand_ClearIsIdempotent(t *testing.T) {
	o, _, fakes := newTestRig(t)
	for i := 1; i <= 2; i++ {
		out, err := o.ExecSdkCommand(context.Background(), "/clear", "", "")
		if err != nil {
			t.Fatal(err)
		}
		if out != "Session cleared." {
			t.Fatalf("out = %q", out)
		}
		if _, _, _, resets := fakes["claude-sdk"].counts(); resets != i {
			t.Fatalf("reset calls = %d, want %d", resets, i)
		}
	}
	// "/clear" is handled uniformly, never forwarded to the backend.
	f := fakes["claude-sdk"]
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.forwarded) != 0 {
		t.Fatalf("forwarded = %v", f.forwarded)
	}
}

func TestExecSdkCommand_NormalizesMissingSlash(t *testing.T) {
	o, _, fakes := newTestRig(t)
	out, err := o.ExecSdkCommand(context.Background(), "model", "opus", "")
	if err != nil {
		t.Fatal(err)
	}
	if out != "forwarded /model" {
		t.Fatalf("out = %q", out)
	}
	f := fakes["claude-sdk"]
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.forwarded) != 1 || f.forwarded[0] != "/model opus" {
		t.Fatalf("forwarded = %v", f.forwarded)
	}
}

func TestExecSdkCommand_UndeclaredCommandRejected(t *testing.T) {
	o, _, fakes := newTestRig(t)
	_, err := o.ExecSdkCommand(context.Background(), "/compact", "", "")
	if err == nil {
		t.Fatal("undeclared command accepted")
	}
	if !strings.Contains(err.Error(), "/compact") || !strings.Contains(err.Error(), "/clear, /model") {
		t.Fatalf("err = %v, want the supported list", err)
	}
	// Rejection happens before anything reaches the backend.
	f := fakes["claude-sdk"]
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.forwarded) != 0 {
		t.Fatalf("forwarded = %v", f.forwarded)
	}
}

func TestExecSdkCommand_TargetsNamedAdapter(t *testing.T) {
	o, _, fakes := newTestRig(t)
	// Aliases resolve the same way explicit switching does.
	out, err := o.ExecSdkCommand(context.Background(), "/model", "flash", "gemini")
	if err != nil {
		t.Fatal(err)
	}
	if out != "forwarded /model" {
		t.Fatalf("out = %q", out)
	}
	g := fakes["gemini-sdk"]
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.forwarded) != 1 {
		t.Fatalf("gemini forwarded = %v", g.forwarded)
	}
}

func TestExecSdkCommand_UnknownAdapter(t *testing.T) {
	o, _, _ := newTestRig(t)
	_, err := o.ExecSdkCommand(context.Background(), "/clear", "", "not-real")
	if !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("err = %v, want ErrUnknownAgent", err)
	}
}

func TestExecSdkCommand_AdapterWithoutCommandSupport(t *testing.T) {
	reg := adapter.NewRegistry()
	if err := reg.Register(&minimalAdapter{name: "claude-sdk"}); err != nil {
		t.Fatal(err)
	}
	o, err := New(reg, nil, nil, Options{InitialAdapter: "claude-sdk"})
	if err != nil {
		t.Fatal(err)
	}

	// "/clear" still succeeds: an adapter with no session state has
	// nothing to reset.
	out, err := o.ExecSdkCommand(context.Background(), "/clear", "", "")
	if err != nil || out != "Session cleared." {
		t.Fatalf("out = %q err = %v", out, err)
	}

	if _, err := o.ExecSdkCommand(context.Background(), "/model", "opus", ""); err == nil {
		t.Fatal("command forwarding on a non-commandable adapter should error")
	}
}
