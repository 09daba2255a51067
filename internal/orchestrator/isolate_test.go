package orchestrator

import (
	"testing"

	"github.com/dmaloney/relay/internal/adapter"
)

func boolPtr(v bool) *bool { return &v }

func TestShouldIsolate(t *testing.T) {
	cases := []struct {
		name            string
		busy            bool
		adapterSession  string
		requested       string
		force           bool
		allowConcurrent *bool
		want            bool
	}{
		{name: "idle adapter shares regardless of sessions", busy: false, adapterSession: "a", requested: "b", want: false},
		{name: "idle adapter shares with empty sessions", busy: false, want: false},
		{name: "busy same session continues shared", busy: true, adapterSession: "s1", requested: "s1", want: false},
		{name: "busy different session isolates", busy: true, adapterSession: "s1", requested: "s2", want: true},
		{name: "busy empty adapter session isolates", busy: true, adapterSession: "", requested: "s2", want: true},
		{name: "busy empty requested session isolates", busy: true, adapterSession: "s1", requested: "", want: true},
		{name: "force wins over idle", busy: false, force: true, want: true},
		{name: "force wins over matching sessions", busy: true, adapterSession: "s1", requested: "s1", force: true, want: true},
		{name: "explicit no-concurrency pins shared path", busy: true, adapterSession: "s1", requested: "s2", allowConcurrent: boolPtr(false), want: false},
		{name: "allow-concurrent true defers to policy", busy: true, adapterSession: "s1", requested: "s2", allowConcurrent: boolPtr(true), want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &fakeAdapter{name: "claude-sdk", busy: tc.busy, info: adapter.Info{SessionID: tc.adapterSession, IsBusy: tc.busy}}
			got := ShouldIsolate(a, tc.requested, tc.force, tc.allowConcurrent)
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestShouldIsolate_BusyWithoutInfoFailsClosed(t *testing.T) {
	a := &minimalAdapter{name: "claude-sdk", busy: true}
	if !ShouldIsolate(a, "s1", false, nil) {
		t.Fatal("a busy adapter with no session snapshot must isolate")
	}
	if ShouldIsolate(&minimalAdapter{name: "claude-sdk"}, "s1", false, nil) {
		t.Fatal("idle adapter must share even without a session snapshot")
	}
}
