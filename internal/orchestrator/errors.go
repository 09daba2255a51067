package orchestrator

import (
	"errors"
	"fmt"
	"time"
)

// Abort causes. The cause carried by a cancelled execution context tells
// the backend (and the logs) whether the deadline fired or the caller
// stopped the request.
var (
	ErrAbortTimeout  = errors.New("timeout")
	ErrAbortUserStop = errors.New("user_stop")
)

// ErrUnknownAgent is returned by Switch when the requested adapter name
// does not resolve to a registered descriptor. An explicit user choice is
// never silently substituted.
var ErrUnknownAgent = errors.New("unknown_agent")

// TimeoutError means one attempt exceeded its deadline. Always retryable
// within the failover budget. The message keeps the AGENT_TIMEOUT prefix
// for log and timeline compatibility; classification is by type, not text.
type TimeoutError struct {
	Label   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("AGENT_TIMEOUT: %s did not respond within %ds", e.Label, int(e.Timeout.Seconds()))
}

// AdapterError wraps a failure reported by the adapter's exec itself.
// Retried the same way as a timeout but recorded with distinct wording.
type AdapterError struct {
	Adapter string
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s exec error: %v", e.Adapter, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// InitError means switching to a failover candidate failed during its
// initialization. It advances the candidate pointer without consuming a
// timed execution attempt.
type InitError struct {
	Adapter string
	Err     error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s init failed: %v", e.Adapter, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
