package registry

import (
	"sort"

	"github.com/stepandel/clawup/pkg/manifest"
)

// Built-in plugin manifests. Identity repos can override any of these by
// shipping a plugins/<name>.json manifest of their own.
var plugins = map[string]*manifest.PluginManifest{
	"slack": {
		Name:        "slack",
		DisplayName: "Slack",
		Installable: true,
		ConfigPath:  manifest.ConfigPathChannels,
		Secrets: map[string]manifest.SecretSpec{
			"botToken": {
				EnvVar:       "SLACK_BOT_TOKEN",
				Scope:        manifest.ScopeAgent,
				Sensitive:    true,
				Required:     true,
				ValuePrefix:  "xoxb-",
				Instructions: "Bot token from your Slack app's OAuth & Permissions page",
			},
			"appToken": {
				EnvVar:       "SLACK_APP_TOKEN",
				Scope:        manifest.ScopeAgent,
				Sensitive:    true,
				Required:     true,
				ValuePrefix:  "xapp-",
				Instructions: "App-level token with connections:write (Socket Mode)",
			},
		},
		ConfigTransforms: []manifest.ConfigTransform{
			{
				SourceKey: "dm",
				TargetKeys: map[string]string{
					"policy":    "dmPolicy",
					"allowFrom": "allowFrom",
				},
				RemoveSource: true,
			},
		},
	},
	"discord": {
		Name:        "discord",
		DisplayName: "Discord",
		Installable: true,
		ConfigPath:  manifest.ConfigPathChannels,
		Secrets: map[string]manifest.SecretSpec{
			"token": {
				EnvVar:       "DISCORD_BOT_TOKEN",
				Scope:        manifest.ScopeAgent,
				Sensitive:    true,
				Required:     true,
				Instructions: "Bot token from the Discord developer portal",
			},
		},
	},
	"telegram": {
		Name:        "telegram",
		DisplayName: "Telegram",
		Installable: true,
		NeedsFunnel: true,
		ConfigPath:  manifest.ConfigPathChannels,
		Secrets: map[string]manifest.SecretSpec{
			"botToken": {
				EnvVar:       "TELEGRAM_BOT_TOKEN",
				Scope:        manifest.ScopeAgent,
				Sensitive:    true,
				Required:     true,
				Instructions: "Bot token from @BotFather",
			},
			"webhookSecret": {
				EnvVar:    "TELEGRAM_WEBHOOK_SECRET",
				Scope:     manifest.ScopeAgent,
				Sensitive: true,
				Required:  true,
			},
		},
		WebhookSetup: &manifest.WebhookSetup{
			URLPath:      "/hooks/telegram",
			SecretKey:    "webhookSecret",
			Instructions: "Register the webhook URL with @BotFather after the agent is reachable",
			ConfigPath:   "channels.telegram.webhookSecret",
		},
		Hooks: &manifest.Hooks{
			PreStart: `curl -sf "https://api.telegram.org/bot${TELEGRAM_BOT_TOKEN}/setWebhook" \
  -d "url=${AGENT_BASE_URL}/hooks/telegram" \
  -d "secret_token=${TELEGRAM_WEBHOOK_SECRET}"`,
		},
	},
	"github": {
		Name:        "github",
		DisplayName: "GitHub",
		Installable: true,
		NeedsFunnel: true,
		ConfigPath:  manifest.ConfigPathEntries,
		Secrets: map[string]manifest.SecretSpec{
			"token": {
				EnvVar:       "GITHUB_PLUGIN_TOKEN",
				Scope:        manifest.ScopeAgent,
				Sensitive:    true,
				Required:     true,
				ValuePrefix:  "ghp_",
				Instructions: "Fine-grained PAT with repo and webhook scopes",
			},
			"webhookSecret": {
				EnvVar:    "GITHUB_WEBHOOK_SECRET",
				Scope:     manifest.ScopeAgent,
				Sensitive: true,
				Required:  true,
			},
			"accountId": {
				EnvVar:         "GITHUB_ACCOUNT_ID",
				Scope:          manifest.ScopeAgent,
				AutoResolvable: true,
			},
		},
		// installId is derived bookkeeping used to compute webhook routes;
		// it must never land in openclaw.json.
		InternalKeys: []string{"installId"},
		WebhookSetup: &manifest.WebhookSetup{
			URLPath:      "/hooks/github",
			SecretKey:    "webhookSecret",
			Instructions: "Add the webhook URL to the repository settings with content type application/json",
			ConfigPath:   "plugins.entries.github.config.webhookSecret",
		},
		Hooks: &manifest.Hooks{
			Resolve: map[string]string{
				"accountId": `GH_TOKEN="${GITHUB_PLUGIN_TOKEN}" gh api user --jq .id`,
			},
		},
	},
	"memory": {
		Name:        "memory",
		DisplayName: "Agent memory",
		Installable: true,
		ConfigPath:  manifest.ConfigPathEntries,
		// agentUuid keys the on-disk store and is computed per deploy.
		InternalKeys: []string{"agentUuid"},
		Hooks: &manifest.Hooks{
			// The chown only applies on variants that create the openclaw
			// user; in a container the bootstrap runs as the only user.
			PostProvision: `mkdir -p "${HOME}/.openclaw/memory" && { ! id openclaw >/dev/null 2>&1 || chown -R openclaw: "${HOME}/.openclaw/memory"; }`,
		},
	},
}

// GetPlugin returns the built-in manifest for name.
func GetPlugin(name string) (*manifest.PluginManifest, bool) {
	p, ok := plugins[name]
	return p, ok
}

// PluginNames returns the built-in plugin names, sorted.
func PluginNames() []string {
	names := make([]string, 0, len(plugins))
	for n := range plugins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
