package adapterspec

import (
	"os"
	"strings"
	"sync"
)

// CLISpec describes how to drive a backend's command-line binary.
// InvocationTemplate entries may contain the placeholders {{model}},
// {{cwd}} and {{prompt}}.
type CLISpec struct {
	DefaultExecutable  string
	InvocationTemplate []string
	PromptMode         string // "arg" or "stdin"
}

// Spec is the fixed metadata for one backend execution adapter.
type Spec struct {
	Key         string // canonical adapter key, e.g. "claude-sdk"
	Provider    string // uppercase vendor tag, e.g. "CLAUDE"
	DisplayName string
	Aliases     []string
	CLI         *CLISpec
	SdkCommands []string // backend-native slash commands the adapter understands
}

var (
	adapterAliasOnce  sync.Once
	adapterAliasIndex map[string]string
)

func adapterAliases() map[string]string {
	adapterAliasOnce.Do(func() {
		adapterAliasIndex = adapterAliasIndexFromBuiltins(Builtins())
	})
	return adapterAliasIndex
}

func adapterAliasIndexFromBuiltins(specs map[string]Spec) map[string]string {
	out := map[string]string{}
	for rawKey, spec := range specs {
		key := strings.ToLower(strings.TrimSpace(rawKey))
		if key == "" {
			continue
		}
		out[key] = key
		for _, rawAlias := range spec.Aliases {
			alias := strings.ToLower(strings.TrimSpace(rawAlias))
			if alias != "" {
				out[alias] = key
			}
		}
	}
	return out
}

// CanonicalKey resolves an adapter name or alias to its canonical key.
// Unknown names pass through lowercased so callers can report them verbatim.
func CanonicalKey(in string) string {
	key := strings.ToLower(strings.TrimSpace(in))
	if key == "" {
		return ""
	}
	if canonical, ok := adapterAliases()[key]; ok {
		return canonical
	}
	return key
}

// DisableEnvVar returns the environment flag that disables the adapter,
// derived from its provider tag: <PROVIDER>_SDK_DISABLED.
func DisableEnvVar(s Spec) string {
	return s.Provider + "_SDK_DISABLED"
}

// Disabled reports whether the adapter's disable flag is set in the
// environment. Truthy values are 1, true, yes, on and y (case-insensitive);
// anything else, including absence, is falsy.
func Disabled(s Spec) bool {
	return Truthy(os.Getenv(DisableEnvVar(s)))
}

func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on", "y":
		return true
	}
	return false
}
