package deploy

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/stepandel/clawup/internal/hooks"
	"github.com/stepandel/clawup/internal/identity"
	"github.com/stepandel/clawup/internal/logging"
	"github.com/stepandel/clawup/internal/registry"
	"github.com/stepandel/clawup/internal/resolver"
	"github.com/stepandel/clawup/internal/synth"
	"github.com/stepandel/clawup/pkg/manifest"
)

// BuildRequest assembles the deployment request for one agent: identity
// bundle values overridden by flags, plugin manifests resolved, secrets
// gathered from the environment, and resolve hooks run for anything
// auto-resolvable that is still missing.
func BuildRequest(ctx context.Context, opts *Options, bundle *identity.Bundle) (*synth.DeploymentRequest, error) {
	merged := mergeOptions(opts, bundle)

	if merged.Model == "" {
		return nil, fmt.Errorf("no model given: set --model or the identity's model field")
	}
	provider, err := registry.ProviderForModel(merged.Model)
	if err != nil {
		return nil, err
	}

	req := &synth.DeploymentRequest{
		AgentName:        merged.AgentName,
		AgentEmoji:       merged.AgentEmoji,
		Model:            merged.Model,
		ModelCredential:  credentialFromEnv(provider),
		BackupModel:      merged.BackupModel,
		CodingAgent:      merged.CodingAgent,
		GatewayPort:      merged.GatewayPort,
		GatewayToken:     merged.GatewayToken,
		Skills:           merged.Skills,
		ExtraEnv:         merged.Env,
		WebSearchKey:     merged.WebSearchKey,
		TailscaleAuthKey: merged.TailscaleAuthKey,
		CreateUser:       true,
		Foreground:       merged.Foreground,
	}
	if req.CodingAgent == "" {
		req.CodingAgent = "claude-code"
	}
	if merged.BackupModel != "" {
		backupProvider, err := registry.ProviderForModel(merged.BackupModel)
		if err != nil {
			return nil, fmt.Errorf("backup model: %w", err)
		}
		req.BackupCredential = credentialFromEnv(backupProvider)
	}

	var overrides map[string]*manifest.PluginManifest
	if bundle != nil {
		overrides = bundle.PluginManifests
		req.WorkspaceFiles = bundle.Files
	}

	executor := &hooks.Executor{}
	for _, m := range resolver.ResolveAll(merged.Plugins, overrides) {
		entry, err := buildPluginEntry(ctx, executor, m, bundle)
		if err != nil {
			return nil, err
		}
		req.Plugins = append(req.Plugins, entry)
	}

	depSpecs, err := resolver.ResolveDeps(merged.Deps)
	if err != nil {
		return nil, err
	}
	for _, spec := range depSpecs {
		entry := synth.DepEntry{Spec: spec, SecretValues: map[string]string{}}
		for _, sec := range spec.Secrets {
			if value := os.Getenv(sec.EnvVar); value != "" {
				entry.SecretValues[sec.EnvVar] = value
			} else {
				logging.Warn("dep %s: %s is not set; the machine will need it before %s works", spec.Name, sec.EnvVar, spec.Name)
			}
		}
		req.Deps = append(req.Deps, entry)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// buildPluginEntry gathers one plugin's config and secret values. Secrets
// come from the environment by their declared env var; values still
// missing after that are resolved by the plugin's resolve hooks where
// declared, and required ones that remain unset fail with the manifest's
// own instructions.
func buildPluginEntry(ctx context.Context, executor *hooks.Executor, m *manifest.PluginManifest, bundle *identity.Bundle) (synth.PluginEntry, error) {
	entry := synth.PluginEntry{
		Manifest:     m,
		Config:       map[string]any{},
		SecretValues: map[string]string{},
	}
	if bundle != nil {
		for k, v := range bundle.Manifest.PluginDefaults[m.Name] {
			entry.Config[k] = v
		}
	}

	env := map[string]string{}
	missingResolve := false
	for key, spec := range m.Secrets {
		value := os.Getenv(spec.EnvVar)
		if value != "" {
			entry.SecretValues[key] = value
			env[spec.EnvVar] = value
			continue
		}
		if spec.AutoResolvable && m.Hooks != nil && m.Hooks.Resolve[key] != "" {
			missingResolve = true
			continue
		}
		if spec.Required {
			msg := fmt.Sprintf("plugin %s: required secret %s is not set", m.Name, spec.EnvVar)
			if spec.Instructions != "" {
				msg += " (" + spec.Instructions + ")"
			}
			return entry, fmt.Errorf("%s", msg)
		}
	}

	if missingResolve {
		logging.Debug("running resolve hooks for plugin %s", m.Name)
		resolved, err := executor.ResolvePluginSecrets(ctx, m, env)
		if err != nil {
			return entry, err
		}
		for key, value := range resolved {
			if _, present := entry.SecretValues[key]; !present {
				entry.SecretValues[key] = value
			}
		}
	}
	return entry, nil
}

// credentialFromEnv reads the provider's credential from the environment,
// preferring the OAuth token variable when the provider has one.
func credentialFromEnv(p registry.ModelProvider) string {
	if p.OAuthEnvVar != "" {
		if value := os.Getenv(p.OAuthEnvVar); value != "" {
			return value
		}
	}
	return os.Getenv(p.KeyEnvVar)
}

// mergeOptions overlays flag values on the identity bundle's manifest.
// Flags win wherever both are set; list fields are unioned.
func mergeOptions(opts *Options, bundle *identity.Bundle) *Options {
	merged := *opts
	if bundle == nil {
		return &merged
	}
	man := bundle.Manifest

	if merged.AgentName == "" {
		merged.AgentName = man.DisplayName
		if merged.AgentName == "" {
			merged.AgentName = man.Name
		}
	}
	if merged.AgentEmoji == "" {
		merged.AgentEmoji = man.Emoji
	}
	if merged.Model == "" {
		merged.Model = man.Model
	}
	if merged.BackupModel == "" {
		merged.BackupModel = man.BackupModel
	}
	if merged.CodingAgent == "" {
		merged.CodingAgent = man.CodingAgent
	}
	merged.Plugins = unionPreservingOrder(man.Plugins, merged.Plugins)
	merged.Deps = unionPreservingOrder(man.Deps, merged.Deps)
	merged.Skills = unionPreservingOrder(man.Skills, merged.Skills)
	return &merged
}

func unionPreservingOrder(base, extra []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range append(append([]string{}, base...), extra...) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
