package adapterspec

var builtinSpecs = map[string]Spec{
	"claude-sdk": {
		Key:         "claude-sdk",
		Provider:    "CLAUDE",
		DisplayName: "Claude Code",
		Aliases:     []string{"claude", "claude-code"},
		CLI: &CLISpec{
			DefaultExecutable:  "claude",
			InvocationTemplate: []string{"-p", "--output-format", "text", "--model", "{{model}}", "{{prompt}}"},
			PromptMode:         "arg",
		},
		SdkCommands: []string{"/clear", "/compact", "/model", "/status"},
	},
	"codex-sdk": {
		Key:         "codex-sdk",
		Provider:    "CODEX",
		DisplayName: "Codex",
		Aliases:     []string{"codex"},
		CLI: &CLISpec{
			DefaultExecutable:  "codex",
			InvocationTemplate: []string{"exec", "--json", "-m", "{{model}}", "-C", "{{cwd}}"},
			PromptMode:         "stdin",
		},
		SdkCommands: []string{"/clear", "/model", "/review"},
	},
	"gemini-sdk": {
		Key:         "gemini-sdk",
		Provider:    "GEMINI",
		DisplayName: "Gemini CLI",
		Aliases:     []string{"gemini", "gemini-cli"},
		CLI: &CLISpec{
			DefaultExecutable:  "gemini",
			InvocationTemplate: []string{"-p", "--model", "{{model}}", "{{prompt}}"},
			PromptMode:         "arg",
		},
		SdkCommands: []string{"/clear", "/memory", "/stats"},
	},
	"opencode-sdk": {
		Key:         "opencode-sdk",
		Provider:    "OPENCODE",
		DisplayName: "OpenCode",
		Aliases:     []string{"opencode"},
		CLI: &CLISpec{
			DefaultExecutable:  "opencode",
			InvocationTemplate: []string{"run", "--model", "{{model}}", "{{prompt}}"},
			PromptMode:         "arg",
		},
		SdkCommands: []string{"/clear", "/share", "/models"},
	},
	"qwen-sdk": {
		Key:         "qwen-sdk",
		Provider:    "QWEN",
		DisplayName: "Qwen Code",
		Aliases:     []string{"qwen", "qwen-code"},
		CLI: &CLISpec{
			DefaultExecutable:  "qwen",
			InvocationTemplate: []string{"-p", "--model", "{{model}}", "{{prompt}}"},
			PromptMode:         "arg",
		},
		SdkCommands: []string{"/clear", "/memory"},
	},
}

// FallbackOrder is the fixed global failover order across all registered
// adapters. Candidate chains start with the active adapter and then follow
// this list, deduplicated and filtered by the per-adapter disable flag.
func FallbackOrder() []string {
	return []string{"claude-sdk", "codex-sdk", "gemini-sdk", "opencode-sdk", "qwen-sdk"}
}

func Builtin(key string) (Spec, bool) {
	s, ok := builtinSpecs[CanonicalKey(key)]
	if !ok {
		return Spec{}, false
	}
	return cloneSpec(s), true
}

func Builtins() map[string]Spec {
	out := make(map[string]Spec, len(builtinSpecs))
	for key, spec := range builtinSpecs {
		out[key] = cloneSpec(spec)
	}
	return out
}

func cloneSpec(in Spec) Spec {
	out := in
	if in.CLI != nil {
		cli := *in.CLI
		cli.InvocationTemplate = append([]string{}, in.CLI.InvocationTemplate...)
		out.CLI = &cli
	}
	out.Aliases = append([]string{}, in.Aliases...)
	out.SdkCommands = append([]string{}, in.SdkCommands...)
	return out
}
