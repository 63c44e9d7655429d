// Package manifest defines the plugin and dependency manifest types consumed
// by the resolver, the config synthesizer, and the script assembler.
//
// A PluginManifest describes everything clawup needs to know about one
// OpenClaw plugin: where its config lives in openclaw.json, which secrets it
// needs, which of its config keys are internal bookkeeping, and which shell
// hooks it runs around provisioning.
package manifest

import (
	"fmt"
	"strings"
)

// ConfigPath selects where a plugin's config lives in openclaw.json.
type ConfigPath string

const (
	// ConfigPathEntries nests config under plugins.entries.<name>.config.
	ConfigPathEntries ConfigPath = "plugins.entries"
	// ConfigPathChannels makes the plugin a first-class named channel object.
	// Channel plugins are additionally mirrored as a minimal plugins.entries
	// stub so the plugin system recognizes them as active.
	ConfigPathChannels ConfigPath = "channels"
)

// SecretScope says whether a secret is per-agent or shared across agents.
type SecretScope string

const (
	ScopeAgent  SecretScope = "agent"
	ScopeGlobal SecretScope = "global"
)

// SecretSpec describes one secret a plugin or dep needs.
type SecretSpec struct {
	EnvVar         string      `json:"envVar" yaml:"envVar"`
	Scope          SecretScope `json:"scope,omitempty" yaml:"scope,omitempty"`
	Sensitive      bool        `json:"sensitive,omitempty" yaml:"sensitive,omitempty"`
	Required       bool        `json:"required,omitempty" yaml:"required,omitempty"`
	AutoResolvable bool        `json:"autoResolvable,omitempty" yaml:"autoResolvable,omitempty"`
	ValuePrefix    string      `json:"valuePrefix,omitempty" yaml:"valuePrefix,omitempty"`
	Instructions   string      `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

// ConfigTransform is a declarative rewrite applied before serialization:
// nested fields of SourceKey's object value are flattened onto sibling
// top-level keys named by TargetKeys. With RemoveSource the original nested
// object is dropped after extraction.
type ConfigTransform struct {
	SourceKey    string            `json:"sourceKey" yaml:"sourceKey"`
	TargetKeys   map[string]string `json:"targetKeys" yaml:"targetKeys"`
	RemoveSource bool              `json:"removeSource,omitempty" yaml:"removeSource,omitempty"`
}

// WebhookSetup describes a plugin's externally reachable webhook endpoint.
type WebhookSetup struct {
	URLPath      string `json:"urlPath" yaml:"urlPath"`
	SecretKey    string `json:"secretKey" yaml:"secretKey"`
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	ConfigPath   string `json:"configPath,omitempty" yaml:"configPath,omitempty"`
}

// OnboardInput is one named user input collected by an onboard hook.
type OnboardInput struct {
	Name      string `json:"name" yaml:"name"`
	Prompt    string `json:"prompt" yaml:"prompt"`
	Validator string `json:"validator,omitempty" yaml:"validator,omitempty"`
}

// OnboardSpec is a one-time interactive setup hook.
type OnboardSpec struct {
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Inputs      []OnboardInput `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Script      string         `json:"script" yaml:"script"`
	// RunOnce skips the hook when every required secret is already present.
	RunOnce bool `json:"runOnce,omitempty" yaml:"runOnce,omitempty"`
}

// Hooks groups a plugin's shell hooks.
type Hooks struct {
	// Resolve maps secret keys to scripts whose trimmed stdout becomes the
	// resolved value. Keys must reference autoResolvable secrets.
	Resolve map[string]string `json:"resolve,omitempty" yaml:"resolve,omitempty"`
	// PostProvision runs strictly before the config is written.
	PostProvision string `json:"postProvision,omitempty" yaml:"postProvision,omitempty"`
	// PreStart runs strictly after the config is written.
	PreStart string       `json:"preStart,omitempty" yaml:"preStart,omitempty"`
	Onboard  *OnboardSpec `json:"onboard,omitempty" yaml:"onboard,omitempty"`
}

// PluginManifest describes one OpenClaw plugin.
type PluginManifest struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	// Installable plugins are installed via `openclaw plugins install`.
	Installable bool `json:"installable,omitempty" yaml:"installable,omitempty"`
	// NeedsFunnel plugins require a publicly reachable HTTPS endpoint.
	NeedsFunnel bool                  `json:"needsFunnel,omitempty" yaml:"needsFunnel,omitempty"`
	ConfigPath  ConfigPath            `json:"configPath" yaml:"configPath"`
	Secrets     map[string]SecretSpec `json:"secrets,omitempty" yaml:"secrets,omitempty"`
	// InternalKeys are bookkeeping-only config keys that must never be
	// written to openclaw.json, even when they also appear in Secrets.
	InternalKeys     []string          `json:"internalKeys,omitempty" yaml:"internalKeys,omitempty"`
	ConfigTransforms []ConfigTransform `json:"configTransforms,omitempty" yaml:"configTransforms,omitempty"`
	WebhookSetup     *WebhookSetup     `json:"webhookSetup,omitempty" yaml:"webhookSetup,omitempty"`
	Hooks            *Hooks            `json:"hooks,omitempty" yaml:"hooks,omitempty"`
}

// DepSecret describes one secret a system dependency needs.
type DepSecret struct {
	EnvVar string      `json:"envVar" yaml:"envVar"`
	Scope  SecretScope `json:"scope,omitempty" yaml:"scope,omitempty"`
	// CheckCommand verifies the dep is configured (exit 0 means configured).
	CheckCommand string `json:"checkCommand,omitempty" yaml:"checkCommand,omitempty"`
}

// DepSpec describes a system dependency (a CLI tool) an agent needs.
type DepSpec struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	// InstallScript may be empty when the tool is baked into a base image.
	InstallScript string `json:"installScript,omitempty" yaml:"installScript,omitempty"`
	// PostInstallScript is templated with ${ENV_VAR} placeholders.
	PostInstallScript string               `json:"postInstallScript,omitempty" yaml:"postInstallScript,omitempty"`
	Secrets           map[string]DepSecret `json:"secrets,omitempty" yaml:"secrets,omitempty"`
}

// IsInternalKey reports whether key is listed in InternalKeys.
func (m *PluginManifest) IsInternalKey(key string) bool {
	for _, k := range m.InternalKeys {
		if k == key {
			return true
		}
	}
	return false
}

// TransformFor returns the config transform whose source key is key, if any.
func (m *PluginManifest) TransformFor(key string) (ConfigTransform, bool) {
	for _, t := range m.ConfigTransforms {
		if t.SourceKey == key {
			return t, true
		}
	}
	return ConfigTransform{}, false
}

// HasOrderedHooks reports whether the manifest carries any lifecycle hook
// that participates in the post-provision / config-write / pre-start order.
func (m *PluginManifest) HasOrderedHooks() bool {
	return m.Hooks != nil && (m.Hooks.PostProvision != "" || m.Hooks.PreStart != "")
}

// Validate enforces the manifest invariants:
//   - webhookSetup.secretKey must exist in secrets
//   - every hooks.resolve key must exist in secrets and be autoResolvable
//   - hook scripts must be non-empty
func (m *PluginManifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin manifest: name is required")
	}
	switch m.ConfigPath {
	case ConfigPathEntries, ConfigPathChannels:
	default:
		return fmt.Errorf("plugin %q: configPath must be %q or %q, got %q",
			m.Name, ConfigPathEntries, ConfigPathChannels, m.ConfigPath)
	}

	if m.WebhookSetup != nil {
		if _, ok := m.Secrets[m.WebhookSetup.SecretKey]; !ok {
			return fmt.Errorf("plugin %q: webhookSetup.secretKey %q does not reference a declared secret",
				m.Name, m.WebhookSetup.SecretKey)
		}
	}

	if m.Hooks == nil {
		return nil
	}
	for key, script := range m.Hooks.Resolve {
		if strings.TrimSpace(script) == "" {
			return fmt.Errorf("plugin %q: resolve hook for %q has an empty script", m.Name, key)
		}
		spec, ok := m.Secrets[key]
		if !ok {
			return fmt.Errorf("plugin %q: resolve hook key %q does not reference a declared secret", m.Name, key)
		}
		if !spec.AutoResolvable {
			return fmt.Errorf("plugin %q: resolve hook key %q references a secret that is not autoResolvable", m.Name, key)
		}
	}
	if m.Hooks.Onboard != nil && strings.TrimSpace(m.Hooks.Onboard.Script) == "" {
		return fmt.Errorf("plugin %q: onboard hook has an empty script", m.Name)
	}
	return nil
}
