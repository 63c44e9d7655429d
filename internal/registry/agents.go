package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stepandel/clawup/pkg/manifest"
)

// BackendOmit is the sentinel meaning "omit this key from the serialized
// CLI backend config". Empty string means the same.
const BackendOmit = "never"

// CLIBackend describes how OpenClaw drives a coding-agent CLI.
type CLIBackend struct {
	Command      string
	Args         []string
	Output       string
	ResumeMode   string
	SystemPrompt string
	Images       string
	// OpenAICompatible backends speak the OpenAI API and are eligible for
	// the OpenRouter base-URL aliasing in the synthesizer.
	OpenAICompatible bool
}

// Serialize renders the backend descriptor as a config map, dropping every
// field whose value is "" or the "never" sentinel.
func (b CLIBackend) Serialize() map[string]any {
	out := map[string]any{}
	put := func(key, val string) {
		if val == "" || val == BackendOmit {
			return
		}
		out[key] = val
	}
	put("command", b.Command)
	if len(b.Args) > 0 {
		out["args"] = append([]string(nil), b.Args...)
	}
	put("output", b.Output)
	put("resume", b.ResumeMode)
	put("systemPrompt", b.SystemPrompt)
	put("images", b.Images)
	return out
}

// CodingAgent describes one coding-agent CLI backend.
type CodingAgent struct {
	Name        string
	DisplayName string
	// InstallScript installs the CLI on a fresh machine.
	InstallScript string
	// ConfigureScript sets the default model; ${MODEL} is substituted by
	// the script assembler.
	ConfigureScript string
	Secrets         map[string]manifest.SecretSpec
	Backend         CLIBackend
}

var codingAgents = map[string]CodingAgent{
	"claude-code": {
		Name:          "claude-code",
		DisplayName:   "Claude Code",
		InstallScript: `npm install -g @anthropic-ai/claude-code`,
		ConfigureScript: strings.Join([]string{
			`claude config set --global defaultModel "${MODEL}"`,
			`claude --version`,
		}, "\n"),
		Secrets: map[string]manifest.SecretSpec{
			"apiKey": {EnvVar: "ANTHROPIC_API_KEY", Scope: manifest.ScopeGlobal, Sensitive: true},
		},
		Backend: CLIBackend{
			Command:      "claude",
			Args:         []string{"-p", "--output-format", "stream-json", "--verbose"},
			Output:       "stream-json",
			ResumeMode:   "--resume",
			SystemPrompt: "--append-system-prompt",
			Images:       "paths",
		},
	},
	"codex": {
		Name:          "codex",
		DisplayName:   "Codex CLI",
		InstallScript: `npm install -g @openai/codex`,
		ConfigureScript: strings.Join([]string{
			`codex config set model "${MODEL}"`,
		}, "\n"),
		Secrets: map[string]manifest.SecretSpec{
			"apiKey": {EnvVar: "OPENAI_API_KEY", Scope: manifest.ScopeGlobal, Sensitive: true},
		},
		Backend: CLIBackend{
			Command:          "codex",
			Args:             []string{"exec", "--json"},
			Output:           "json",
			ResumeMode:       "never",
			SystemPrompt:     "instructions-file",
			Images:           "never",
			OpenAICompatible: true,
		},
	},
}

// GetCodingAgent returns the coding agent for name.
func GetCodingAgent(name string) (CodingAgent, error) {
	a, ok := codingAgents[name]
	if !ok {
		return CodingAgent{}, fmt.Errorf("unknown coding agent %q (supported: %s)",
			name, strings.Join(CodingAgentNames(), ", "))
	}
	return a, nil
}

// CodingAgentNames returns the supported coding agent names, sorted.
func CodingAgentNames() []string {
	names := make([]string, 0, len(codingAgents))
	for n := range codingAgents {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
