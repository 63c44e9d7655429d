package manifest

import (
	"strings"
	"testing"
)

func validManifest() *PluginManifest {
	return &PluginManifest{
		Name:        "github",
		DisplayName: "GitHub",
		Installable: true,
		ConfigPath:  ConfigPathEntries,
		Secrets: map[string]SecretSpec{
			"webhookSecret": {EnvVar: "GITHUB_WEBHOOK_SECRET", Scope: ScopeAgent, Sensitive: true, Required: true},
			"accountId":     {EnvVar: "GITHUB_ACCOUNT_ID", Scope: ScopeAgent, AutoResolvable: true},
		},
		WebhookSetup: &WebhookSetup{
			URLPath:   "/hooks/github",
			SecretKey: "webhookSecret",
		},
		Hooks: &Hooks{
			Resolve: map[string]string{
				"accountId": `gh api user --jq .id`,
			},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validManifest().Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidate_WebhookSecretMustExist(t *testing.T) {
	m := validManifest()
	m.WebhookSetup.SecretKey = "missing"
	err := m.Validate()
	if err == nil {
		t.Fatal("expected error for webhookSetup.secretKey not in secrets")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error should name the offending key, got: %v", err)
	}
}

func TestValidate_ResolveKeyMustExist(t *testing.T) {
	m := validManifest()
	m.Hooks.Resolve = map[string]string{"nope": "echo x"}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for resolve hook key not in secrets")
	}
}

func TestValidate_ResolveKeyMustBeAutoResolvable(t *testing.T) {
	m := validManifest()
	m.Hooks.Resolve = map[string]string{"webhookSecret": "echo x"}
	err := m.Validate()
	if err == nil {
		t.Fatal("expected error for non-autoResolvable resolve target")
	}
	if !strings.Contains(err.Error(), "autoResolvable") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_EmptyHookScript(t *testing.T) {
	m := validManifest()
	m.Hooks.Resolve = map[string]string{"accountId": "   "}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for blank resolve script")
	}
}

func TestValidate_ConfigPath(t *testing.T) {
	m := validManifest()
	m.ConfigPath = "plugins"
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for unknown configPath")
	}
}

func TestParseJSON_Valid(t *testing.T) {
	data := []byte(`{
		"name": "linear",
		"configPath": "plugins.entries",
		"installable": true,
		"secrets": {
			"apiKey": {"envVar": "LINEAR_API_KEY", "sensitive": true, "required": true}
		}
	}`)
	m, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}
	if m.Name != "linear" {
		t.Errorf("expected name 'linear', got %q", m.Name)
	}
	if m.Secrets["apiKey"].EnvVar != "LINEAR_API_KEY" {
		t.Errorf("secret envVar not decoded: %+v", m.Secrets)
	}
}

func TestParseJSON_RejectsUnknownField(t *testing.T) {
	data := []byte(`{"name": "x", "configPath": "channels", "bogus": true}`)
	if _, err := ParseJSON(data); err == nil {
		t.Fatal("expected schema error for unknown field")
	}
}

func TestParseJSON_RejectsBadConfigPath(t *testing.T) {
	data := []byte(`{"name": "x", "configPath": "elsewhere"}`)
	if _, err := ParseJSON(data); err == nil {
		t.Fatal("expected schema error for bad configPath")
	}
}

func TestParseJSON_EnforcesInvariants(t *testing.T) {
	// Schema-valid but the webhook secret key does not exist.
	data := []byte(`{
		"name": "x",
		"configPath": "channels",
		"webhookSetup": {"urlPath": "/hooks/x", "secretKey": "ghost"}
	}`)
	if _, err := ParseJSON(data); err == nil {
		t.Fatal("expected invariant error for dangling webhook secret key")
	}
}

func TestHasOrderedHooks(t *testing.T) {
	m := validManifest()
	if m.HasOrderedHooks() {
		t.Error("resolve-only hooks should not count as ordered")
	}
	m.Hooks.PreStart = "curl -sf https://example.com/ping"
	if !m.HasOrderedHooks() {
		t.Error("preStart hook should count as ordered")
	}
	m.Hooks = nil
	if m.HasOrderedHooks() {
		t.Error("nil hooks should not count as ordered")
	}
}

func TestTransformFor(t *testing.T) {
	m := &PluginManifest{
		Name:       "slack",
		ConfigPath: ConfigPathChannels,
		ConfigTransforms: []ConfigTransform{
			{SourceKey: "dm", TargetKeys: map[string]string{"policy": "dmPolicy"}, RemoveSource: true},
		},
	}
	tr, ok := m.TransformFor("dm")
	if !ok {
		t.Fatal("expected transform for 'dm'")
	}
	if tr.TargetKeys["policy"] != "dmPolicy" {
		t.Errorf("unexpected transform: %+v", tr)
	}
	if _, ok := m.TransformFor("other"); ok {
		t.Error("unexpected transform for 'other'")
	}
}
