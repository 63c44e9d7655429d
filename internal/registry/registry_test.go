package registry

import (
	"strings"
	"testing"
)

func TestProviderForModel(t *testing.T) {
	p, err := ProviderForModel("anthropic/claude-opus-4-6")
	if err != nil {
		t.Fatalf("ProviderForModel failed: %v", err)
	}
	if p.Key != "anthropic" {
		t.Errorf("expected anthropic, got %q", p.Key)
	}
	if p.KeyEnvVar != "ANTHROPIC_API_KEY" || p.OAuthEnvVar != "CLAUDE_CODE_OAUTH_TOKEN" {
		t.Errorf("unexpected env vars: %+v", p)
	}
}

func TestProviderForModel_BareKey(t *testing.T) {
	p, err := ProviderForModel("openai")
	if err != nil {
		t.Fatalf("ProviderForModel failed: %v", err)
	}
	if p.Key != "openai" {
		t.Errorf("expected openai, got %q", p.Key)
	}
}

func TestProviderForModel_UnknownPrefix(t *testing.T) {
	_, err := ProviderForModel("mistral/large")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), `"mistral"`) {
		t.Errorf("error should name the provider, got: %v", err)
	}
	for _, key := range ModelProviderKeys() {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should list supported provider %q, got: %v", key, err)
		}
	}
}

func TestCredentialEnvVar_OAuthDiscrimination(t *testing.T) {
	p, _ := GetModelProvider("anthropic")

	if got := p.CredentialEnvVar("sk-ant-api03-XXXX"); got != "ANTHROPIC_API_KEY" {
		t.Errorf("console key routed to %q", got)
	}
	if got := p.CredentialEnvVar("sk-ant-oat01-XXXX"); got != "CLAUDE_CODE_OAUTH_TOKEN" {
		t.Errorf("oauth token routed to %q", got)
	}

	// Providers without an OAuth var never discriminate.
	op, _ := GetModelProvider("openai")
	if got := op.CredentialEnvVar("sk-ant-oat01-XXXX"); got != "OPENAI_API_KEY" {
		t.Errorf("openai credential routed to %q", got)
	}
}

func TestOpenRouterBaseURL(t *testing.T) {
	p, ok := GetModelProvider("openrouter")
	if !ok {
		t.Fatal("openrouter not registered")
	}
	if p.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("unexpected base URL %q", p.BaseURL)
	}
}

func TestCLIBackendSerialize_DropsSentinels(t *testing.T) {
	a, err := GetCodingAgent("codex")
	if err != nil {
		t.Fatalf("GetCodingAgent failed: %v", err)
	}
	cfg := a.Backend.Serialize()
	if _, ok := cfg["resume"]; ok {
		t.Error(`"never" resume mode should be omitted`)
	}
	if _, ok := cfg["images"]; ok {
		t.Error(`"never" images mode should be omitted`)
	}
	if cfg["command"] != "codex" {
		t.Errorf("command not serialized: %v", cfg)
	}

	cc, _ := GetCodingAgent("claude-code")
	ccCfg := cc.Backend.Serialize()
	if ccCfg["resume"] != "--resume" {
		t.Errorf("claude-code resume flag missing: %v", ccCfg)
	}
}

func TestGetCodingAgent_Unknown(t *testing.T) {
	_, err := GetCodingAgent("cursor")
	if err == nil {
		t.Fatal("expected error for unknown coding agent")
	}
	if !strings.Contains(err.Error(), "claude-code") {
		t.Errorf("error should list supported agents, got: %v", err)
	}
}

func TestBuiltinPluginManifestsValidate(t *testing.T) {
	for _, name := range PluginNames() {
		m, ok := GetPlugin(name)
		if !ok {
			t.Fatalf("plugin %q not found by its own listed name", name)
		}
		if err := m.Validate(); err != nil {
			t.Errorf("built-in manifest %q fails validation: %v", name, err)
		}
	}
}

func TestMemoryHookToleratesMissingUser(t *testing.T) {
	m, ok := GetPlugin("memory")
	if !ok {
		t.Fatal("memory plugin not found")
	}
	hook := m.Hooks.PostProvision
	// Container bootstraps run under set -e with no openclaw user, so a
	// bare chown would abort the whole script there.
	if !strings.Contains(hook, "id openclaw") {
		t.Errorf("postProvision chown is not conditioned on the openclaw user existing:\n%s", hook)
	}
}

func TestGetDep(t *testing.T) {
	d, ok := GetDep("gh")
	if !ok {
		t.Fatal("gh dep not registered")
	}
	if d.Secrets["token"].EnvVar != "GH_TOKEN" {
		t.Errorf("unexpected gh secret: %+v", d.Secrets)
	}
	if _, ok := GetDep("terraform"); ok {
		t.Error("unexpected dep 'terraform'")
	}
}
