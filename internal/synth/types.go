package synth

import (
	"fmt"
	"strings"

	"github.com/stepandel/clawup/pkg/manifest"
)

// Defaults for the static config sections.
const (
	DefaultGatewayPort = 18789
	// HeartbeatInterval is the fixed agent heartbeat cadence.
	HeartbeatInterval = "30s"
	// AckReaction is the fixed visual-feedback marker set when an agent
	// identity exists.
	AckReaction = "eyes"
	// ACPDefaultAgent is the fixed ACP default-agent identifier.
	ACPDefaultAgent = "default"
	// WebSearchProvider names the search backend for tools.web.search.
	WebSearchProvider = "brave"
)

// PluginEntry is one fully resolved plugin in a deployment request: its
// manifest, its non-secret config, and its already-resolved secret values
// keyed by config key.
type PluginEntry struct {
	Manifest     *manifest.PluginManifest
	Config       map[string]any
	SecretValues map[string]string
}

// DepEntry is one resolved system dependency plus its secret values keyed
// by env var name.
type DepEntry struct {
	Spec         manifest.DepSpec
	SecretValues map[string]string
}

// DeploymentRequest aggregates everything the synthesizer and script
// assembler need for one agent. It is constructed once per agent per
// deploy, never mutated, and consumed exactly once.
type DeploymentRequest struct {
	AgentName  string
	AgentEmoji string

	Model            string
	ModelCredential  string
	BackupModel      string
	BackupCredential string

	CodingAgent string

	GatewayPort    int
	GatewayToken   string
	TrustedProxies []string

	Plugins []PluginEntry
	Deps    []DepEntry

	// Skills are installed via clawhub on the provisioned machine.
	Skills []string

	// WorkspaceFiles maps relative paths to file content. Paths are
	// validated against directory traversal before any script is emitted.
	WorkspaceFiles map[string]string

	ExtraEnv map[string]string

	WebSearchKey     string
	TailscaleAuthKey string

	// Provider-specific toggles.
	SkipTailscale  bool
	SkipDocker     bool
	Foreground     bool
	CreateUser     bool
	CompressOutput bool
}

// Validate rejects malformed requests before any synthesis or script
// generation happens.
func (r *DeploymentRequest) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("deployment request: model is required")
	}
	for path := range r.WorkspaceFiles {
		if err := ValidateWorkspacePath(path); err != nil {
			return err
		}
	}
	return nil
}

// ValidateWorkspacePath rejects absolute paths, parent-directory segments,
// and NUL bytes so a workspace file can never escape the workspace root.
func ValidateWorkspacePath(path string) error {
	if path == "" {
		return fmt.Errorf("workspace file path is empty")
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("workspace file path %q contains a NUL byte", path)
	}
	if strings.HasPrefix(path, "/") {
		return fmt.Errorf("workspace file path %q is absolute; paths must be workspace-relative", path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return fmt.Errorf("workspace file path %q contains a parent-directory segment", path)
		}
	}
	return nil
}

// ModelRef is the model field shape used when a backup model exists. With
// no backup the model is written as a bare string; the difference is
// significant to OpenClaw and preserved exactly.
type ModelRef struct {
	Primary   string   `json:"primary"`
	Fallbacks []string `json:"fallbacks"`
}

// GatewayAuth configures gateway authentication.
type GatewayAuth struct {
	Mode  string `json:"mode"`
	Token string `json:"token,omitempty"`
}

// ControlUI toggles the gateway control UI.
type ControlUI struct {
	Enabled bool `json:"enabled"`
}

// GatewaySection is the gateway block of openclaw.json.
type GatewaySection struct {
	Port           int         `json:"port"`
	Auth           GatewayAuth `json:"auth"`
	TrustedProxies []string    `json:"trustedProxies,omitempty"`
	ControlUI      ControlUI   `json:"controlUi"`
}

// Heartbeat is the fixed-cadence agent heartbeat.
type Heartbeat struct {
	Every string `json:"every"`
}

// AgentDefaults is agents.defaults: heartbeat, model (string or ModelRef),
// and the serialized CLI backends.
type AgentDefaults struct {
	Heartbeat   Heartbeat                 `json:"heartbeat"`
	Model       any                       `json:"model"`
	CLIBackends map[string]map[string]any `json:"cliBackends,omitempty"`
}

// AgentIdentity is one agents.list entry.
type AgentIdentity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji,omitempty"`
}

// AgentsSection is the agents block of openclaw.json.
type AgentsSection struct {
	Defaults AgentDefaults   `json:"defaults"`
	List     []AgentIdentity `json:"list,omitempty"`
}

// PluginEntryConfig is one plugins.entries value.
type PluginEntryConfig struct {
	Enabled bool           `json:"enabled"`
	Config  map[string]any `json:"config,omitempty"`
}

// PluginsSection is the plugins block of openclaw.json.
type PluginsSection struct {
	Entries map[string]PluginEntryConfig `json:"entries"`
}

// WebSearch configures tools.web.search.
type WebSearch struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
}

// WebTools is the tools.web block.
type WebTools struct {
	Search WebSearch `json:"search"`
}

// ToolsSection is the tools block, present only when a search key exists.
type ToolsSection struct {
	Web WebTools `json:"web"`
}

// MessagesSection is present only when an agent identity exists.
type MessagesSection struct {
	AckReaction string `json:"ackReaction"`
}

// ACPSection is the acp block.
type ACPSection struct {
	DefaultAgent string `json:"defaultAgent"`
}

// ApplicationConfig is the synthesized openclaw.json document.
type ApplicationConfig struct {
	Gateway  GatewaySection            `json:"gateway"`
	Env      map[string]string         `json:"env,omitempty"`
	Agents   AgentsSection             `json:"agents"`
	Plugins  *PluginsSection           `json:"plugins,omitempty"`
	Channels map[string]map[string]any `json:"channels,omitempty"`
	Tools    *ToolsSection             `json:"tools,omitempty"`
	Messages *MessagesSection          `json:"messages,omitempty"`
	ACP      ACPSection                `json:"acp"`
}
