// Package synth turns a fully resolved DeploymentRequest into the complete
// openclaw.json configuration for one agent, or into an equivalent ordered
// list of idempotent config-set operations.
//
// Synthesize is a pure transform: no I/O, no environment reads. Anything it
// rejects is rejected before any script text exists or any remote resource
// is touched.
package synth

import (
	"fmt"
	"sort"

	"github.com/stepandel/clawup/internal/registry"
)

// Synthesize builds the application config for one deployment request. The
// rules apply in a fixed order because several depend on each other: the
// primary provider decides the aliasing rule, identity wiring reads the
// channels built by plugin routing, and so on.
func Synthesize(req *DeploymentRequest) (*ApplicationConfig, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	agent, err := registry.GetCodingAgent(req.CodingAgent)
	if err != nil {
		return nil, err
	}

	env := map[string]string{}

	// Provider credential placement. For anthropic the credential shape
	// decides the env var: OAuth tokens and console keys are mutually
	// exclusive destinations.
	primary, err := registry.ProviderForModel(req.Model)
	if err != nil {
		return nil, err
	}
	if req.ModelCredential != "" {
		env[primary.CredentialEnvVar(req.ModelCredential)] = req.ModelCredential
	}

	// Backup provider credential, only when it is a different provider and
	// a credential is actually available. Never write empty values.
	if req.BackupModel != "" {
		backup, err := registry.ProviderForModel(req.BackupModel)
		if err != nil {
			return nil, err
		}
		if backup.Key != primary.Key && req.BackupCredential != "" {
			env[backup.CredentialEnvVar(req.BackupCredential)] = req.BackupCredential
		}
	}

	// OpenRouter aliasing: an OpenAI-compatible CLI can use OpenRouter
	// transparently by receiving the OpenRouter credential under the OpenAI
	// env var plus a base-URL override. Only for that exact pairing.
	if agent.Backend.OpenAICompatible && primary.Key == "openrouter" && req.ModelCredential != "" {
		env["OPENAI_API_KEY"] = req.ModelCredential
		env["OPENAI_BASE_URL"] = primary.BaseURL
	}

	// Model field shape: bare string without a backup, {primary, fallbacks}
	// with one.
	var model any = req.Model
	if req.BackupModel != "" {
		model = ModelRef{Primary: req.Model, Fallbacks: []string{req.BackupModel}}
	}

	cfg := &ApplicationConfig{
		Gateway: GatewaySection{
			Port:           gatewayPort(req),
			Auth:           GatewayAuth{Mode: "token", Token: req.GatewayToken},
			TrustedProxies: req.TrustedProxies,
			ControlUI:      ControlUI{Enabled: true},
		},
		Agents: AgentsSection{
			Defaults: AgentDefaults{
				Heartbeat: Heartbeat{Every: HeartbeatInterval},
				Model:     model,
				CLIBackends: map[string]map[string]any{
					agent.Name: agent.Backend.Serialize(),
				},
			},
		},
		ACP: ACPSection{DefaultAgent: ACPDefaultAgent},
	}

	// Plugin config routing.
	for _, entry := range req.Plugins {
		routePlugin(cfg, entry, env)
	}

	// Dep and extra env flattening.
	for _, dep := range req.Deps {
		for envVar, value := range dep.SecretValues {
			if value != "" {
				env[envVar] = value
			}
		}
	}
	for k, v := range req.ExtraEnv {
		env[k] = v
	}

	// Identity wiring, only when a display name exists. No phantom
	// identity or messages sections otherwise.
	if req.AgentName != "" {
		cfg.Agents.List = []AgentIdentity{{ID: "default", Name: req.AgentName, Emoji: req.AgentEmoji}}
		if slack, ok := cfg.Channels["slack"]; ok {
			// Peer agents post as bots; without this their messages are
			// invisible to each other.
			slack["allowBots"] = true
		}
		cfg.Messages = &MessagesSection{AckReaction: AckReaction}
	}

	// Web search, only when a key was supplied.
	if req.WebSearchKey != "" {
		cfg.Tools = &ToolsSection{Web: WebTools{Search: WebSearch{
			Provider: WebSearchProvider,
			APIKey:   req.WebSearchKey,
		}}}
	}

	if len(env) > 0 {
		cfg.Env = env
	}
	return cfg, nil
}

func gatewayPort(req *DeploymentRequest) int {
	if req.GatewayPort > 0 {
		return req.GatewayPort
	}
	return DefaultGatewayPort
}

// routePlugin writes one plugin's config into the channels or
// plugins.entries shape and its secret env vars into env. Internal keys are
// filtered from both, even when they also appear as secrets.
func routePlugin(cfg *ApplicationConfig, entry PluginEntry, env map[string]string) {
	m := entry.Manifest

	for _, key := range sortedKeys(entry.SecretValues) {
		if m.IsInternalKey(key) {
			continue
		}
		spec, ok := m.Secrets[key]
		if !ok || spec.EnvVar == "" {
			continue
		}
		if value := entry.SecretValues[key]; value != "" {
			env[spec.EnvVar] = value
		}
	}

	if m.ConfigPath == "channels" {
		channel := map[string]any{}
		applySecrets(channel, entry)
		for _, key := range sortedKeys(entry.Config) {
			if m.IsInternalKey(key) {
				continue
			}
			value := entry.Config[key]
			if tr, ok := m.TransformFor(key); ok {
				if nested, isObj := value.(map[string]any); isObj {
					for _, src := range sortedKeys(tr.TargetKeys) {
						if v, present := nested[src]; present {
							channel[tr.TargetKeys[src]] = v
						}
					}
					if !tr.RemoveSource {
						channel[key] = value
					}
					continue
				}
			}
			channel[key] = value
		}
		channel["enabled"] = true
		if cfg.Channels == nil {
			cfg.Channels = map[string]map[string]any{}
		}
		cfg.Channels[m.Name] = channel

		// Channel plugins are mirrored as a minimal entries stub so the
		// plugin system marks them active.
		ensureEntries(cfg)
		cfg.Plugins.Entries[m.Name] = PluginEntryConfig{Enabled: true}
		return
	}

	config := map[string]any{}
	applySecrets(config, entry)
	for _, key := range sortedKeys(entry.Config) {
		if m.IsInternalKey(key) {
			continue
		}
		config[key] = entry.Config[key]
	}
	ensureEntries(cfg)
	pe := PluginEntryConfig{Enabled: true}
	if len(config) > 0 {
		pe.Config = config
	}
	cfg.Plugins.Entries[m.Name] = pe
}

// applySecrets writes resolved secret values under their config keys,
// skipping internal keys.
func applySecrets(dst map[string]any, entry PluginEntry) {
	for _, key := range sortedKeys(entry.SecretValues) {
		if entry.Manifest.IsInternalKey(key) {
			continue
		}
		if value := entry.SecretValues[key]; value != "" {
			dst[key] = value
		}
	}
}

func ensureEntries(cfg *ApplicationConfig) {
	if cfg.Plugins == nil {
		cfg.Plugins = &PluginsSection{Entries: map[string]PluginEntryConfig{}}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WebhookURL returns the externally reachable webhook URL for a plugin
// entry, or "" when the plugin declares no webhook.
func WebhookURL(baseURL string, entry PluginEntry) string {
	if entry.Manifest.WebhookSetup == nil {
		return ""
	}
	return fmt.Sprintf("%s%s", baseURL, entry.Manifest.WebhookSetup.URLPath)
}
