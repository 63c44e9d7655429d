// Package resolver maps plugin and dep names to manifests. Plugins resolve
// through three tiers: identity-supplied override, built-in registry, then a
// generic fallback so unknown names degrade to manual configuration instead
// of failing the deploy. Deps have no override tier and unknown deps are a
// hard error.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stepandel/clawup/internal/registry"
	"github.com/stepandel/clawup/pkg/manifest"
)

// Resolve returns the manifest for a plugin name. overrides, usually from an
// identity bundle, win outright over the built-in registry.
func Resolve(name string, overrides map[string]*manifest.PluginManifest) *manifest.PluginManifest {
	if m, ok := overrides[name]; ok && m != nil {
		return m
	}
	if m, ok := registry.GetPlugin(name); ok {
		return m
	}
	return genericManifest(name)
}

// ResolveAll resolves a list of plugin names, preserving input order.
func ResolveAll(names []string, overrides map[string]*manifest.PluginManifest) []*manifest.PluginManifest {
	out := make([]*manifest.PluginManifest, 0, len(names))
	for _, name := range names {
		out = append(out, Resolve(name, overrides))
	}
	return out
}

// genericManifest is the fallback for plugin names nothing knows about:
// installable, no secrets, config under plugins.entries.
func genericManifest(name string) *manifest.PluginManifest {
	return &manifest.PluginManifest{
		Name:        name,
		DisplayName: name,
		Installable: true,
		ConfigPath:  manifest.ConfigPathEntries,
	}
}

// PluginSecret is one plugin secret tagged with its owner and config key.
type PluginSecret struct {
	Plugin string
	Key    string
	Spec   manifest.SecretSpec
}

// CollectSecrets flattens every manifest's secrets into a single list in
// manifest order (secret keys sorted within a manifest for determinism).
// The result is the full secret surface a deployment needs.
func CollectSecrets(manifests []*manifest.PluginManifest) []PluginSecret {
	var out []PluginSecret
	for _, m := range manifests {
		keys := make([]string, 0, len(m.Secrets))
		for k := range m.Secrets {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, PluginSecret{Plugin: m.Name, Key: k, Spec: m.Secrets[k]})
		}
	}
	return out
}

// IsSecretCovered reports whether some plugin already declares a secret with
// the given env var, so callers can avoid prompting for the same secret
// twice under two different names.
func IsSecretCovered(envVar string, manifests []*manifest.PluginManifest) bool {
	for _, m := range manifests {
		for _, spec := range m.Secrets {
			if spec.EnvVar == envVar {
				return true
			}
		}
	}
	return false
}

// ResolveDep returns the built-in dep spec for name. Unknown deps fail hard
// with the known set in the error.
func ResolveDep(name string) (manifest.DepSpec, error) {
	d, ok := registry.GetDep(name)
	if !ok {
		return manifest.DepSpec{}, fmt.Errorf("unknown dep %q (known deps: %s)",
			name, strings.Join(registry.DepNames(), ", "))
	}
	return d, nil
}

// ResolveDeps resolves a list of dep names, preserving input order.
func ResolveDeps(names []string) ([]manifest.DepSpec, error) {
	out := make([]manifest.DepSpec, 0, len(names))
	for _, name := range names {
		d, err := ResolveDep(name)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
