package orchestrator

// Mode is the interaction mode a request runs under.
type Mode string

const (
	// ModeAsk answers questions without touching the workspace.
	ModeAsk Mode = "ask"
	// ModeAgent is full capability and adds no framing.
	ModeAgent Mode = "agent"
	// ModePlan produces a plan without executing it.
	ModePlan Mode = "plan"
)

// askPrefix and planPrefix are the fixed instruction blocks prepended to a
// user message in the corresponding mode.
const askPrefix = "You are in ask mode. Answer the user's question directly and concisely. " +
	"Do not modify files, run commands, or take any other action in the workspace.\n\n"

const planPrefix = "You are in plan mode. Produce a concrete step-by-step plan for the request " +
	"below, but do not execute any part of it or change anything in the workspace.\n\n"

// ValidMode reports whether m is one of the three supported modes.
func ValidMode(m Mode) bool {
	switch m {
	case ModeAsk, ModeAgent, ModePlan:
		return true
	}
	return false
}

// FrameMessage prepends the mode's instruction prefix to the message.
// Agent mode and any unrecognized mode pass the message through unchanged;
// an invalid mode degrades to default framing rather than failing.
func FrameMessage(message string, mode Mode) string {
	switch mode {
	case ModeAsk:
		return askPrefix + message
	case ModePlan:
		return planPrefix + message
	default:
		return message
	}
}
