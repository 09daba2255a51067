package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmaloney/relay/internal/adapter"
	"github.com/dmaloney/relay/internal/sessionlog"
)

func blockUntilAborted(ctx context.Context, message string, opts adapter.ExecOptions) (adapter.Result, error) {
	<-ctx.Done()
	return adapter.Result{}, ctx.Err()
}

func failWith(msg string) func(context.Context, string, adapter.ExecOptions) (adapter.Result, error) {
	return func(ctx context.Context, message string, opts adapter.ExecOptions) (adapter.Result, error) {
		return adapter.Result{}, errors.New(msg)
	}
}

func disableAllExcept(t *testing.T, keep ...string) {
	t.Helper()
	kept := map[string]bool{}
	for _, k := range keep {
		kept[k] = true
	}
	envs := map[string]string{
		"claude-sdk":   "CLAUDE_SDK_DISABLED",
		"codex-sdk":    "CODEX_SDK_DISABLED",
		"gemini-sdk":   "GEMINI_SDK_DISABLED",
		"opencode-sdk": "OPENCODE_SDK_DISABLED",
		"qwen-sdk":     "QWEN_SDK_DISABLED",
	}
	for name, env := range envs {
		if kept[name] {
			t.Setenv(env, "0")
		} else {
			t.Setenv(env, "1")
		}
	}
}

func TestExecute_FailoverStopsAtAttemptCap(t *testing.T) {
	o, store, fakes := newTestRig(t)
	// First two candidates hang until aborted; the third answers.
	fakes["claude-sdk"].execFn = blockUntilAborted
	fakes["codex-sdk"].execFn = blockUntilAborted

	resp, err := o.Execute(context.Background(), Request{
		Message: "refactor the parser",
		Timeout: 40 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Adapter != "gemini-sdk" || resp.FinalResponse != "gemini-sdk ok" {
		t.Fatalf("adapter = %q final = %q", resp.Adapter, resp.FinalResponse)
	}
	if len(resp.Attempts) != 3 {
		t.Fatalf("attempts = %d, want exactly 3", len(resp.Attempts))
	}
	if resp.Attempts[0].Outcome != OutcomeTimeout || resp.Attempts[1].Outcome != OutcomeTimeout || resp.Attempts[2].Outcome != OutcomeSuccess {
		t.Fatalf("outcomes = %v %v %v", resp.Attempts[0].Outcome, resp.Attempts[1].Outcome, resp.Attempts[2].Outcome)
	}

	// Failover mutated the global selection to the adapter that answered.
	if name, _ := o.Active(); name != "gemini-sdk" {
		t.Fatalf("active = %q", name)
	}
	// Candidates past the cap are never touched.
	for _, name := range []string{"opencode-sdk", "qwen-sdk"} {
		if execs, isos, _, _ := fakes[name].counts(); execs+isos != 0 {
			t.Fatalf("%s was executed beyond the attempt cap", name)
		}
	}

	events, err := store.Events(context.Background(), resp.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	var failovers int
	for _, ev := range events {
		if ev.Type == sessionlog.TypeFailover {
			failovers++
		}
	}
	if failovers != 2 {
		t.Fatalf("failover events = %d", failovers)
	}
	last := events[len(events)-1]
	if last.Role != sessionlog.RoleAssistant || last.Content != "gemini-sdk ok" {
		t.Fatalf("last event = %+v", last)
	}
}

func TestExecute_AttemptCapWithAllCandidatesFailing(t *testing.T) {
	o, _, fakes := newTestRig(t)
	for _, f := range fakes {
		f.execFn = failWith("down")
	}
	resp, err := o.Execute(context.Background(), Request{Message: "hi", Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if resp.OK {
		t.Fatal("should have exhausted")
	}
	// 5 candidates exist but the cap allows the initial attempt plus two
	// failovers only.
	if len(resp.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(resp.Attempts))
	}
	if !strings.Contains(resp.FinalResponse, "failed") || !strings.Contains(resp.LastError, "down") {
		t.Fatalf("final = %q lastError = %q", resp.FinalResponse, resp.LastError)
	}
	if resp.Items == nil || len(resp.Items) != 0 || resp.Usage != nil {
		t.Fatalf("failure payload not renderable: items=%v usage=%v", resp.Items, resp.Usage)
	}
}

func TestExecute_OnlyActiveEligibleAndFailing(t *testing.T) {
	disableAllExcept(t, "claude-sdk")
	o, store, fakes := newTestRig(t)
	fakes["claude-sdk"].execFn = failWith("auth expired")

	resp, err := o.Execute(context.Background(), Request{Message: "hi", Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if resp.OK || len(resp.Attempts) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if !strings.Contains(resp.LastError, "auth expired") {
		t.Fatalf("terminal response must carry the last concrete error, got %q", resp.LastError)
	}

	events, _ := store.Events(context.Background(), resp.SessionID)
	last := events[len(events)-1]
	if last.Role != sessionlog.RoleSystem || !strings.Contains(last.Content, "auth expired") {
		t.Fatalf("terminal event = %+v", last)
	}
}

func TestExecute_NoEligibleCandidates(t *testing.T) {
	disableAllExcept(t)
	o, _, _ := newTestRig(t)
	resp, err := o.Execute(context.Background(), Request{Message: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.OK || len(resp.Attempts) != 0 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.LastError == "" || resp.Items == nil {
		t.Fatalf("terminal failure must still be well-formed: %+v", resp)
	}
}

func TestExecute_TimeoutTimelineScenario(t *testing.T) {
	disableAllExcept(t, "claude-sdk")
	o, store, fakes := newTestRig(t)
	fakes["claude-sdk"].execFn = blockUntilAborted

	resp, err := o.Execute(context.Background(), Request{
		Message: "fix bug",
		Mode:    ModeAsk,
		Timeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.OK {
		t.Fatal("should have timed out")
	}
	if !strings.Contains(resp.FinalResponse, "timed out") {
		t.Fatalf("final response = %q", resp.FinalResponse)
	}

	events, _ := store.Events(context.Background(), resp.SessionID)
	if len(events) != 2 {
		t.Fatalf("events = %d, want user + terminal", len(events))
	}
	if events[0].Role != sessionlog.RoleUser || events[0].Content != "fix bug" {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].Role != sessionlog.RoleSystem || !strings.Contains(events[1].Content, "AGENT_TIMEOUT") {
		t.Fatalf("terminal event = %+v", events[1])
	}
	if events[1].Type != sessionlog.TypeTimeout {
		t.Fatalf("terminal type = %q", events[1].Type)
	}
}

func TestExecute_FramesAfterRecordingRawMessage(t *testing.T) {
	o, store, fakes := newTestRig(t)
	resp, err := o.Execute(context.Background(), Request{
		Message:     "fix bug",
		Mode:        ModeAsk,
		Attachments: []Attachment{{Name: "notes.txt", FilePath: "/tmp/notes.txt"}},
	})
	if err != nil || !resp.OK {
		t.Fatalf("resp = %+v err = %v", resp, err)
	}

	f := fakes["claude-sdk"]
	f.mu.Lock()
	dispatched := f.lastMessage
	f.mu.Unlock()
	if !strings.HasPrefix(dispatched, askPrefix) {
		t.Fatalf("ask prefix missing: %q", dispatched)
	}
	if !strings.Contains(dispatched, "fix bug") || !strings.Contains(dispatched, "notes.txt") {
		t.Fatalf("dispatched = %q", dispatched)
	}

	// The timeline keeps the raw inbound message, not the framed prompt.
	events, _ := store.Events(context.Background(), resp.SessionID)
	if events[0].Content != "fix bug" {
		t.Fatalf("user event content = %q", events[0].Content)
	}
}

func TestExecute_SynthesizesSessionID(t *testing.T) {
	o, _, fakes := newTestRig(t)
	resp, err := o.Execute(context.Background(), Request{Message: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.SessionID != "claude-sdk-default" {
		t.Fatalf("session id = %q", resp.SessionID)
	}
	f := fakes["claude-sdk"]
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastOpts.SessionID != "claude-sdk-default" {
		t.Fatalf("opts session id = %q", f.lastOpts.SessionID)
	}
}

func TestExecute_InitFailureAdvancesWithoutConsumingAttempt(t *testing.T) {
	o, _, fakes := newTestRig(t)
	fakes["claude-sdk"].execFn = failWith("dead")
	fakes["codex-sdk"].initErr = errors.New("binary missing")

	resp, err := o.Execute(context.Background(), Request{Message: "hi", Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Adapter != "gemini-sdk" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Attempts) != 2 {
		t.Fatalf("attempts = %d, init failures must not consume attempt slots", len(resp.Attempts))
	}
	execs, isos, inits, _ := fakes["codex-sdk"].counts()
	if execs+isos != 0 || inits != 1 {
		t.Fatalf("codex execs=%d isos=%d inits=%d", execs, isos, inits)
	}
}

func TestExecute_BusyDifferentSessionTakesIsolatedPath(t *testing.T) {
	o, _, fakes := newTestRig(t)
	f := fakes["claude-sdk"]
	f.busy = true
	f.info = adapter.Info{SessionID: "someone-else", IsBusy: true}

	resp, err := o.Execute(context.Background(), Request{Message: "hi", SessionID: "mine"})
	if err != nil || !resp.OK {
		t.Fatalf("resp = %+v err = %v", resp, err)
	}
	execs, isos, _, _ := f.counts()
	if execs != 0 || isos != 1 {
		t.Fatalf("execs=%d isos=%d, want the isolated path", execs, isos)
	}
	if !resp.Attempts[0].Isolated {
		t.Fatal("attempt not marked isolated")
	}
}

func TestExecute_SameSessionContinuationStaysShared(t *testing.T) {
	o, _, fakes := newTestRig(t)
	f := fakes["claude-sdk"]
	f.busy = true
	f.info = adapter.Info{SessionID: "mine", IsBusy: true}

	resp, err := o.Execute(context.Background(), Request{Message: "hi", SessionID: "mine"})
	if err != nil || !resp.OK {
		t.Fatalf("resp = %+v err = %v", resp, err)
	}
	execs, isos, _, _ := f.counts()
	if execs != 1 || isos != 0 {
		t.Fatalf("execs=%d isos=%d, want the shared path", execs, isos)
	}
}

func TestExecute_CallerAbortIsTerminal(t *testing.T) {
	o, _, fakes := newTestRig(t)
	started := make(chan struct{})
	fakes["claude-sdk"].execFn = func(ctx context.Context, message string, opts adapter.ExecOptions) (adapter.Result, error) {
		close(started)
		<-ctx.Done()
		return adapter.Result{}, context.Cause(ctx)
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	go func() {
		<-started
		cancel(ErrAbortUserStop)
	}()

	resp, err := o.Execute(ctx, Request{Message: "hi", Timeout: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	if resp.OK {
		t.Fatal("aborted request reported success")
	}
	if len(resp.Attempts) != 1 {
		t.Fatalf("attempts = %d, caller abort must not fail over", len(resp.Attempts))
	}
	if !strings.Contains(resp.FinalResponse, "aborted") || !strings.Contains(resp.LastError, "user_stop") {
		t.Fatalf("final = %q lastError = %q", resp.FinalResponse, resp.LastError)
	}
	// The untouched fallback candidates were never executed.
	if execs, isos, _, _ := fakes["codex-sdk"].counts(); execs+isos != 0 {
		t.Fatal("failover ran after a caller abort")
	}
}
