package script

import (
	"strings"
	"testing"

	"github.com/stepandel/clawup/internal/registry"
	"github.com/stepandel/clawup/internal/synth"
)

func hookedRequest(t *testing.T) *synth.DeploymentRequest {
	t.Helper()
	memory, ok := registry.GetPlugin("memory")
	if !ok {
		t.Fatal("memory plugin not registered")
	}
	telegram, ok := registry.GetPlugin("telegram")
	if !ok {
		t.Fatal("telegram plugin not registered")
	}
	return &synth.DeploymentRequest{
		AgentName:       "lobster",
		Model:           "anthropic/claude-opus-4",
		ModelCredential: "sk-ant-api-test",
		CodingAgent:     "claude-code",
		GatewayToken:    "tok-abc123",
		CreateUser:      true,
		Plugins: []synth.PluginEntry{
			{Manifest: memory, Config: map[string]any{}},
			{
				Manifest: telegram,
				Config:   map[string]any{},
				SecretValues: map[string]string{
					"botToken":      "12345:telegram-token",
					"webhookSecret": "hook-secret",
				},
			},
		},
	}
}

func assemble(t *testing.T, req *synth.DeploymentRequest, fn func(*synth.DeploymentRequest, *synth.ApplicationConfig, Options) (string, error), opts Options) string {
	t.Helper()
	cfg, err := synth.Synthesize(req)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	out, err := fn(req, cfg, opts)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	return out
}

func TestAssembleCloudInit_HookOrdering(t *testing.T) {
	req := hookedRequest(t)
	script := assemble(t, req, AssembleCloudInit, Options{})

	post := strings.Index(script, "postProvision hook: memory")
	write := strings.Index(script, "write openclaw.json")
	pre := strings.Index(script, "preStart hook: telegram")

	if post == -1 || write == -1 || pre == -1 {
		t.Fatalf("missing markers: post=%d write=%d pre=%d", post, write, pre)
	}
	if !(post < write) {
		t.Errorf("postProvision hook at %d should precede config write at %d", post, write)
	}
	if !(write < pre) {
		t.Errorf("config write at %d should precede preStart hook at %d", write, pre)
	}
}

func TestAssembleNixOS_HookOrdering(t *testing.T) {
	req := hookedRequest(t)
	script := assemble(t, req, AssembleNixOS, Options{})

	post := strings.Index(script, "postProvision hook: memory")
	write := strings.Index(script, "write openclaw.json")
	pre := strings.Index(script, "preStart hook: telegram")
	if !(post != -1 && write != -1 && pre != -1 && post < write && write < pre) {
		t.Errorf("hook ordering violated: post=%d write=%d pre=%d", post, write, pre)
	}
}

func TestAssembleEntrypoint_HookOrdering(t *testing.T) {
	req := hookedRequest(t)
	script := assemble(t, req, AssembleEntrypoint, Options{})

	post := strings.Index(script, "postProvision hook: memory")
	write := strings.Index(script, "write openclaw.json")
	pre := strings.Index(script, "preStart hook: telegram")
	if !(post != -1 && write != -1 && pre != -1 && post < write && write < pre) {
		t.Errorf("hook ordering violated: post=%d write=%d pre=%d", post, write, pre)
	}
}

func TestAssembleCloudInit_FullImageSteps(t *testing.T) {
	req := hookedRequest(t)
	script := assemble(t, req, AssembleCloudInit, Options{})

	for _, want := range []string{
		"#!/bin/bash",
		"set -euo pipefail",
		"apt-get update -y",
		"curl -fsSL https://get.docker.com | sh",
		"useradd -m -s /bin/bash openclaw",
		"npm install -g openclaw",
		"npm install -g @anthropic-ai/claude-code",
		"tailscale up",
		"tailscale funnel",
		"systemctl daemon-reload",
		"systemctl enable --now openclaw",
		"openclaw devices approve --latest",
		"openclaw doctor --non-interactive",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("cloud-init script missing %q", want)
		}
	}
}

func TestAssembleCloudInit_SkipToggles(t *testing.T) {
	req := hookedRequest(t)
	req.SkipDocker = true
	req.SkipTailscale = true
	script := assemble(t, req, AssembleCloudInit, Options{})

	if strings.Contains(script, "get.docker.com") {
		t.Error("SkipDocker left the docker install step in place")
	}
	if strings.Contains(script, "tailscale up") {
		t.Error("SkipTailscale left the tailscale step in place")
	}
}

func TestAssembleCloudInit_Foreground(t *testing.T) {
	req := hookedRequest(t)
	req.Foreground = true
	script := assemble(t, req, AssembleCloudInit, Options{})

	if !strings.Contains(script, `exec openclaw gateway --port "$GATEWAY_PORT"`) {
		t.Error("foreground script should exec the gateway")
	}
	if strings.Contains(script, "systemctl") {
		t.Error("foreground script should not install a systemd unit")
	}
}

func TestAssembleNixOS_NoInstalls(t *testing.T) {
	req := hookedRequest(t)
	script := assemble(t, req, AssembleNixOS, Options{})

	for _, forbidden := range []string{"apt-get", "npm install -g openclaw", "useradd"} {
		if strings.Contains(script, forbidden) {
			t.Errorf("nixos script should not contain %q", forbidden)
		}
	}
	if !strings.Contains(script, "systemctl restart openclaw") {
		t.Error("nixos script should restart the baked-in service")
	}
}

func TestAssembleEntrypoint_NoHostConcerns(t *testing.T) {
	req := hookedRequest(t)
	script := assemble(t, req, AssembleEntrypoint, Options{})

	for _, forbidden := range []string{"apt-get", "tailscale", "systemctl", "useradd"} {
		if strings.Contains(script, forbidden) {
			t.Errorf("entrypoint script should not contain %q", forbidden)
		}
	}
	if !strings.Contains(script, `exec openclaw gateway --port "$GATEWAY_PORT"`) {
		t.Error("entrypoint script should exec the gateway as the final process")
	}
}

func TestAssembleCloudInit_ConfigHeredocNotExpanded(t *testing.T) {
	req := hookedRequest(t)
	script := assemble(t, req, AssembleCloudInit, Options{})

	if !strings.Contains(script, "<<'OPENCLAW_JSON'") {
		t.Error("config should be written through a quoted heredoc so the shell never expands its contents")
	}
}

func TestAssembleCloudInit_OpsMode(t *testing.T) {
	req := hookedRequest(t)
	script := assemble(t, req, AssembleCloudInit, Options{UseOps: true})

	if strings.Contains(script, "<<'OPENCLAW_JSON'") {
		t.Error("ops mode should not write the full JSON document")
	}
	if !strings.Contains(script, "openclaw config set gateway.port") {
		t.Error("ops mode should apply config via openclaw config set")
	}
}

func TestAssembleCloudInit_WorkspaceFiles(t *testing.T) {
	req := hookedRequest(t)
	req.WorkspaceFiles = map[string]string{
		"notes/plan.md": "# plan\n",
	}
	script := assemble(t, req, AssembleCloudInit, Options{})

	if !strings.Contains(script, `"/home/openclaw/workspace/notes"`) {
		t.Error("workspace step should create the parent directory under the workspace root")
	}
	if !strings.Contains(script, "base64 -d | gunzip >") {
		t.Error("workspace files should be embedded gzip+base64")
	}
}

func TestAssembleCloudInit_RejectsTraversal(t *testing.T) {
	for _, bad := range []string{"../escape.txt", "/etc/passwd", "a/../../b"} {
		req := hookedRequest(t)
		req.WorkspaceFiles = map[string]string{bad: "x"}
		cfg := &synth.ApplicationConfig{}
		if _, err := AssembleCloudInit(req, cfg, Options{}); err == nil {
			t.Errorf("path %q should have been rejected", bad)
		}
	}
}

func TestAssembleCloudInit_SecretsEmbeddedEscaped(t *testing.T) {
	req := hookedRequest(t)
	req.ModelCredential = `sk-ant-api-with"quote$and` + "`tick`"
	script := assemble(t, req, AssembleCloudInit, Options{})

	if !strings.Contains(script, `\"quote\$and\`+"\\`tick\\`") {
		t.Error("embedded credential should be escaped for double quotes")
	}
}

func TestAssembleCloudInit_DeferredSecretsArePlaceholders(t *testing.T) {
	req := hookedRequest(t)
	req.GatewayToken = ""
	req.TailscaleAuthKey = ""
	script := assemble(t, req, AssembleCloudInit, Options{})

	if !strings.Contains(script, "${GATEWAY_TOKEN}") {
		t.Error("unset gateway token should stay a placeholder")
	}
	if !strings.Contains(script, "${TAILSCALE_AUTH_KEY}") {
		t.Error("unset tailscale auth key should stay a placeholder")
	}
}

func TestAssembleCloudInit_BestEffortGuards(t *testing.T) {
	req := hookedRequest(t)
	script := assemble(t, req, AssembleCloudInit, Options{})

	if !strings.Contains(script, `|| echo "warning: approve device pairing failed (continuing)"`) {
		t.Error("device approval should degrade to a warning")
	}
	if !strings.Contains(script, `|| echo "warning: openclaw doctor failed (continuing)"`) {
		t.Error("doctor should degrade to a warning")
	}
}

func TestAssembleCloudInit_EnvFile(t *testing.T) {
	req := hookedRequest(t)
	script := assemble(t, req, AssembleCloudInit, Options{})

	if !strings.Contains(script, `/home/openclaw/.openclaw/agent.env`) {
		t.Error("systemd variants should persist the agent environment file")
	}
	if !strings.Contains(script, "chmod 600") {
		t.Error("the env file should not be world readable")
	}
}

func TestPlanValidate_RejectsBackwardsPhases(t *testing.T) {
	plan := &Plan{Variant: "test"}
	plan.Add(Step{Label: "write config", Phase: PhaseConfigWrite, Shell: "true"})
	plan.Add(Step{Label: "late hook", Phase: PhasePostProvision, Shell: "true"})
	if err := plan.validate(); err == nil {
		t.Fatal("a postProvision step after the config write should fail validation")
	}
}

func TestStepRendered_BestEffort(t *testing.T) {
	s := Step{Label: "probe", Shell: "false", BestEffort: true}
	got := s.Rendered()
	want := `{ false ; } || echo "warning: probe failed (continuing)"`
	if got != want {
		t.Errorf("Rendered() = %q, want %q", got, want)
	}
}
