package identity

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `
name: lobster
displayName: Lobster
role: release engineer
emoji: "🦞"
model: anthropic/claude-opus-4
codingAgent: claude-code
skills:
  - changelog-writer
plugins:
  - slack
  - memory
deps:
  - gh
pluginDefaults:
  slack:
    dm:
      policy: allowlist
templateVars:
  - SLACK_BOT_TOKEN
`

const overrideManifest = `{
  "name": "slack",
  "displayName": "Slack (workspace fork)",
  "installable": true,
  "configPath": "channels"
}`

func writeBundle(t *testing.T, fs afero.Fs, dir string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, dir+"/identity.yaml", []byte(testManifest), 0644))
	require.NoError(t, afero.WriteFile(fs, dir+"/files/SOUL.md", []byte("# Lobster\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, dir+"/files/notes/release.md", []byte("ship it\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, dir+"/plugins/slack.json", []byte(overrideManifest), 0644))
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeBundle(t, fs, "/cache/lobster")

	bundle, err := Load(fs, "/cache/lobster")
	require.NoError(t, err)

	assert.Equal(t, "lobster", bundle.Manifest.Name)
	assert.Equal(t, "Lobster", bundle.Manifest.DisplayName)
	assert.Equal(t, "🦞", bundle.Manifest.Emoji)
	assert.Equal(t, []string{"slack", "memory"}, bundle.Manifest.Plugins)
	assert.Equal(t, "allowlist", bundle.Manifest.PluginDefaults["slack"]["dm"].(map[string]any)["policy"])

	assert.Equal(t, "# Lobster\n", bundle.Files["SOUL.md"])
	assert.Equal(t, "ship it\n", bundle.Files["notes/release.md"])

	override, ok := bundle.PluginManifests["slack"]
	require.True(t, ok, "slack override manifest should be loaded")
	assert.Equal(t, "Slack (workspace fork)", override.DisplayName)
}

func TestLoad_MissingManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Load(fs, "/cache/empty")
	require.Error(t, err)
}

func TestLoad_RequiresName(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cache/x/identity.yaml", []byte("role: ghost\n"), 0644))
	_, err := Load(fs, "/cache/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoad_RejectsInvalidOverride(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cache/y/identity.yaml", []byte("name: y\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/cache/y/plugins/bad.json", []byte(`{"displayName": "no name"}`), 0644))
	_, err := Load(fs, "/cache/y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.json")
}

func TestCacheKey(t *testing.T) {
	cases := map[string]string{
		"https://github.com/acme/lobster-identity.git": "github.com-acme-lobster-identity",
		"git@github.com:acme/lobster-identity.git":     "github.com-acme-lobster-identity",
		"https://github.com/acme/ids/":                 "github.com-acme-ids",
	}
	for url, want := range cases {
		if got := cacheKey(url); got != want {
			t.Errorf("cacheKey(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestCacheKey_SameNameDifferentOwner(t *testing.T) {
	a := cacheKey("https://github.com/acme/agent-identity.git")
	b := cacheKey("https://github.com/rival/agent-identity.git")
	if a == b {
		t.Fatalf("repos from different owners share cache key %q", a)
	}
	c := cacheKey("https://gitlab.com/acme/agent-identity.git")
	if a == c {
		t.Fatalf("repos from different hosts share cache key %q", a)
	}
}
