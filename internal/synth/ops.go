package synth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailscale/hujson"
)

// ConfigOp is one idempotent "config set" operation: a dotted key path and
// a JSON value. The ordered op list is equivalent to the full config
// document and is consumed by a shell-side apply loop on machines where
// embedding a whole JSON blob is impractical.
type ConfigOp struct {
	Key     string
	Value   any
	Comment string
}

// ConfigOps flattens a synthesized config into a deterministic op list.
// Scalars become one op per leaf; composite values whose shape matters to
// OpenClaw (the model field, plugin entries, channel objects) are set as a
// single op so the consumer sees them atomically.
func ConfigOps(cfg *ApplicationConfig) []ConfigOp {
	var ops []ConfigOp
	add := func(key string, value any, comment string) {
		ops = append(ops, ConfigOp{Key: key, Value: value, Comment: comment})
	}

	add("gateway.port", cfg.Gateway.Port, "")
	add("gateway.auth.mode", cfg.Gateway.Auth.Mode, "")
	if cfg.Gateway.Auth.Token != "" {
		add("gateway.auth.token", cfg.Gateway.Auth.Token, "")
	}
	if len(cfg.Gateway.TrustedProxies) > 0 {
		add("gateway.trustedProxies", cfg.Gateway.TrustedProxies, "")
	}
	add("gateway.controlUi.enabled", cfg.Gateway.ControlUI.Enabled, "")

	for _, k := range sortedKeys(cfg.Env) {
		comment := ""
		if isSensitiveEnvVar(k) {
			comment = "secret"
		}
		add("env."+k, cfg.Env[k], comment)
	}

	add("agents.defaults.heartbeat.every", cfg.Agents.Defaults.Heartbeat.Every, "")
	add("agents.defaults.model", cfg.Agents.Defaults.Model, "")
	for _, name := range sortedKeys(cfg.Agents.Defaults.CLIBackends) {
		add("agents.defaults.cliBackends."+name, cfg.Agents.Defaults.CLIBackends[name], "")
	}
	if len(cfg.Agents.List) > 0 {
		add("agents.list", cfg.Agents.List, "agent identity")
	}

	if cfg.Plugins != nil {
		for _, name := range sortedKeys(cfg.Plugins.Entries) {
			add("plugins.entries."+name, cfg.Plugins.Entries[name], "")
		}
	}
	for _, name := range sortedKeys(cfg.Channels) {
		add("channels."+name, cfg.Channels[name], "")
	}

	if cfg.Tools != nil {
		add("tools.web.search", cfg.Tools.Web.Search, "")
	}
	if cfg.Messages != nil {
		add("messages.ackReaction", cfg.Messages.AckReaction, "")
	}
	add("acp.defaultAgent", cfg.ACP.DefaultAgent, "")

	return ops
}

// RenderOps emits the ops as an `openclaw config set` shell apply loop.
// Values are JSON-encoded and single-quoted for the shell.
func RenderOps(ops []ConfigOp) (string, error) {
	var b strings.Builder
	for _, op := range ops {
		data, err := json.Marshal(op.Value)
		if err != nil {
			return "", fmt.Errorf("encode config op %s: %w", op.Key, err)
		}
		if op.Comment != "" {
			fmt.Fprintf(&b, "# %s\n", op.Comment)
		}
		fmt.Fprintf(&b, "openclaw config set %s --json %s\n", op.Key, shellQuote(string(data)))
	}
	return b.String(), nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isSensitiveEnvVar(name string) bool {
	for _, marker := range []string{"KEY", "TOKEN", "SECRET", "PASSWORD"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// Marshal renders the config as indented JSON.
func Marshal(cfg *ApplicationConfig) ([]byte, error) {
	return json.MarshalIndent(cfg, "", "  ")
}

// PatchConfig merges the synthesized config into an existing openclaw.json,
// which may carry comments and trailing commas (JWCC). Synthesized sections
// win at the leaf level; unrelated keys the user added are preserved. With
// no existing document this is a plain marshal.
func PatchConfig(existing []byte, cfg *ApplicationConfig) ([]byte, error) {
	if len(existing) == 0 {
		return Marshal(cfg)
	}

	std, err := hujson.Standardize(existing)
	if err != nil {
		return nil, fmt.Errorf("parse existing config: %w", err)
	}
	var current map[string]any
	if err := json.Unmarshal(std, &current); err != nil {
		return nil, fmt.Errorf("decode existing config: %w", err)
	}

	synthesized, err := Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var next map[string]any
	if err := json.Unmarshal(synthesized, &next); err != nil {
		return nil, err
	}

	merged := deepMerge(current, next)
	return json.MarshalIndent(merged, "", "  ")
}

// deepMerge overlays next onto current, recursing where both sides are
// objects and replacing otherwise.
func deepMerge(current, next map[string]any) map[string]any {
	out := make(map[string]any, len(current)+len(next))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range next {
		if nextObj, ok := v.(map[string]any); ok {
			if curObj, ok := out[k].(map[string]any); ok {
				out[k] = deepMerge(curObj, nextObj)
				continue
			}
		}
		out[k] = v
	}
	return out
}
