// Package registry holds the built-in lookup tables for model providers,
// coding agents, system dependencies, and plugins. Tables are process-wide
// constants loaded at init; nothing in this package mutates them at runtime.
package registry

import (
	"fmt"
	"sort"
	"strings"
)

// AnthropicOAuthPrefix marks a subscription OAuth token rather than a
// console API key. Values with this prefix are routed to the OAuth env var.
const AnthropicOAuthPrefix = "sk-ant-oat"

// ModelProvider describes one model provider's credential conventions.
type ModelProvider struct {
	Key string
	// KeyEnvVar is the canonical env var for a console API key.
	KeyEnvVar string
	// OAuthEnvVar, when set, receives values matching OAuthPrefix instead
	// of KeyEnvVar. The two are mutually exclusive.
	OAuthEnvVar string
	OAuthPrefix string
	// BaseURL is the OpenAI-compatible endpoint, for providers that have one.
	BaseURL string
	// OnboardingFlags are passed to the coding-agent CLI during setup.
	OnboardingFlags []string
}

var modelProviders = map[string]ModelProvider{
	"anthropic": {
		Key:         "anthropic",
		KeyEnvVar:   "ANTHROPIC_API_KEY",
		OAuthEnvVar: "CLAUDE_CODE_OAUTH_TOKEN",
		OAuthPrefix: AnthropicOAuthPrefix,
	},
	"openai": {
		Key:       "openai",
		KeyEnvVar: "OPENAI_API_KEY",
	},
	"google": {
		Key:       "google",
		KeyEnvVar: "GOOGLE_API_KEY",
	},
	"openrouter": {
		Key:       "openrouter",
		KeyEnvVar: "OPENROUTER_API_KEY",
		BaseURL:   "https://openrouter.ai/api/v1",
	},
}

// GetModelProvider returns the provider for a registry key.
func GetModelProvider(key string) (ModelProvider, bool) {
	p, ok := modelProviders[key]
	return p, ok
}

// ProviderKeyForModel extracts the provider key from a model string of the
// form <providerKey>/<modelId>. A string without a slash is treated as a
// bare provider key.
func ProviderKeyForModel(model string) string {
	if i := strings.Index(model, "/"); i >= 0 {
		return model[:i]
	}
	return model
}

// ProviderForModel resolves a model string to its provider. Unknown provider
// prefixes are a hard error: synthesis must fail fast rather than default.
func ProviderForModel(model string) (ModelProvider, error) {
	key := ProviderKeyForModel(model)
	p, ok := modelProviders[key]
	if !ok {
		return ModelProvider{}, fmt.Errorf("unknown model provider %q in model %q (supported: %s)",
			key, model, strings.Join(ModelProviderKeys(), ", "))
	}
	return p, nil
}

// CredentialEnvVar picks the env var a credential value belongs under,
// applying the OAuth prefix discrimination when the provider supports it.
func (p ModelProvider) CredentialEnvVar(value string) string {
	if p.OAuthEnvVar != "" && p.OAuthPrefix != "" && strings.HasPrefix(value, p.OAuthPrefix) {
		return p.OAuthEnvVar
	}
	return p.KeyEnvVar
}

// ModelProviderKeys returns the supported provider keys, sorted.
func ModelProviderKeys() []string {
	keys := make([]string, 0, len(modelProviders))
	for k := range modelProviders {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
