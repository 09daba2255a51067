package orchestrator

import (
	"strings"

	"github.com/dmaloney/relay/internal/adapter"
)

// ShouldIsolate decides whether a request must run through the isolated
// pooled path instead of the adapter's shared conversation. Several
// backends keep a single mutable "current turn" on the shared object;
// running two unrelated sessions through it concurrently corrupts turn
// state, so ambiguity about session identity fails closed toward
// isolation.
//
// Decision order:
//  1. explicit force wins;
//  2. an explicit AllowConcurrent=false pins the shared path (absence of
//     the flag means the default policy decides);
//  3. a non-busy adapter is safe to share;
//  4. a busy adapter is shared only when the request continues the exact
//     session the adapter is already on.
func ShouldIsolate(a adapter.Adapter, requestedSessionID string, forceIsolated bool, allowConcurrent *bool) bool {
	if forceIsolated {
		return true
	}
	if allowConcurrent != nil && !*allowConcurrent {
		return false
	}
	if !a.IsBusy() {
		return false
	}

	ip, ok := a.(adapter.InfoProvider)
	if !ok {
		// Busy with no way to identify the active session: isolate.
		return true
	}
	current := strings.TrimSpace(ip.Info().SessionID)
	requested := strings.TrimSpace(requestedSessionID)
	if current == "" || requested == "" {
		return true
	}
	return current != requested
}
