package script

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/stepandel/clawup/internal/registry"
	"github.com/stepandel/clawup/internal/synth"
)

//go:embed templates/cloudinit.sh.tmpl
var cloudInitTemplate string

//go:embed templates/nixos.sh.tmpl
var nixosTemplate string

//go:embed templates/entrypoint.sh.tmpl
var entrypointTemplate string

//go:embed templates/openclaw.service.tmpl
var systemdUnitTemplate string

const (
	openclawHome   = "/home/openclaw"
	openclawConfig = openclawHome + "/.openclaw/openclaw.json"
	workspaceRoot  = openclawHome + "/workspace"
)

// Options tune script assembly beyond what the request itself carries.
type Options struct {
	// UseOps applies the config as an `openclaw config set` loop instead of
	// writing the full JSON document.
	UseOps bool
}

type assembler struct {
	req   *synth.DeploymentRequest
	cfg   *synth.ApplicationConfig
	agent registry.CodingAgent
	opts  Options
}

func newAssembler(req *synth.DeploymentRequest, cfg *synth.ApplicationConfig, opts Options) (*assembler, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	agent, err := registry.GetCodingAgent(req.CodingAgent)
	if err != nil {
		return nil, err
	}
	return &assembler{req: req, cfg: cfg, agent: agent, opts: opts}, nil
}

// AssembleCloudInit builds the full-image bootstrap: a fresh Ubuntu machine
// that needs packages, Docker, a node runtime, OpenClaw itself, an
// unprivileged user, and the coding-agent CLI before any configuration.
func AssembleCloudInit(req *synth.DeploymentRequest, cfg *synth.ApplicationConfig, opts Options) (string, error) {
	a, err := newAssembler(req, cfg, opts)
	if err != nil {
		return "", err
	}
	plan := &Plan{Variant: "cloud-init"}

	plan.Add(Step{Label: "base packages", Phase: PhaseInstall, Shell: strings.Join([]string{
		"export DEBIAN_FRONTEND=noninteractive",
		"apt-get update -y",
		"apt-get install -y curl git jq gzip ca-certificates",
	}, "\n")})
	if !req.SkipDocker {
		plan.Add(Step{Label: "install docker", Phase: PhaseInstall,
			Shell: "curl -fsSL https://get.docker.com | sh"})
	}
	plan.Add(Step{Label: "install node runtime", Phase: PhaseInstall, Shell: strings.Join([]string{
		"curl -fsSL https://deb.nodesource.com/setup_22.x | bash -",
		"apt-get install -y nodejs",
	}, "\n")})
	if req.CreateUser {
		plan.Add(Step{Label: "create openclaw user", Phase: PhaseInstall, Shell: strings.Join([]string{
			"id -u openclaw >/dev/null 2>&1 || useradd -m -s /bin/bash openclaw",
			"usermod -aG docker openclaw || true",
		}, "\n")})
	}
	plan.Add(Step{Label: "install openclaw", Phase: PhaseInstall,
		Shell: "npm install -g openclaw"})

	a.addEnvStep(plan)
	a.addTailscaleSteps(plan, true)
	plan.Add(Step{Label: "install " + a.agent.DisplayName, Phase: PhaseInstall, Shell: a.agent.InstallScript})
	a.addCodingAgentConfigStep(plan)
	a.addDepSteps(plan, true)
	a.addPluginInstallSteps(plan)
	a.addSkillSteps(plan)
	if err := a.addWorkspaceStep(plan); err != nil {
		return "", err
	}
	a.addPostProvisionSteps(plan)
	if err := a.addConfigWriteStep(plan); err != nil {
		return "", err
	}
	if !req.Foreground {
		a.addEnvFileStep(plan)
	}
	a.addPreStartSteps(plan)

	if req.Foreground {
		plan.Add(Step{Label: "start gateway (foreground)", Phase: PhaseStart, Shell: strings.Join([]string{
			a.approveInBackground(),
			"exec openclaw gateway --port \"$GATEWAY_PORT\"",
		}, "\n")})
	} else {
		if err := a.addSystemdSteps(plan, "enable --now"); err != nil {
			return "", err
		}
		a.addPostStartSteps(plan)
	}

	return render(plan, cloudInitTemplate, a.req)
}

// AssembleNixOS builds the pre-built VM image bootstrap: packages and
// runtimes are baked in, but networking, the config, hooks, workspace
// files, and the service restart still happen on first boot.
func AssembleNixOS(req *synth.DeploymentRequest, cfg *synth.ApplicationConfig, opts Options) (string, error) {
	a, err := newAssembler(req, cfg, opts)
	if err != nil {
		return "", err
	}
	plan := &Plan{Variant: "nixos-image"}

	a.addEnvStep(plan)
	a.addTailscaleSteps(plan, false)
	a.addCodingAgentConfigStep(plan)
	a.addDepSteps(plan, false)
	a.addSkillSteps(plan)
	if err := a.addWorkspaceStep(plan); err != nil {
		return "", err
	}
	a.addPostProvisionSteps(plan)
	if err := a.addConfigWriteStep(plan); err != nil {
		return "", err
	}
	a.addEnvFileStep(plan)
	a.addPreStartSteps(plan)
	plan.Add(Step{Label: "restart openclaw service", Phase: PhaseStart,
		Shell: "systemctl restart openclaw"})
	a.addPostStartSteps(plan)

	return render(plan, nixosTemplate, a.req)
}

// AssembleEntrypoint builds the container entrypoint: no packages, no user
// creation, no networking or service manager. Secrets land in the
// environment, hooks and config run, and the gateway is exec'd in the
// foreground as PID 1.
func AssembleEntrypoint(req *synth.DeploymentRequest, cfg *synth.ApplicationConfig, opts Options) (string, error) {
	a, err := newAssembler(req, cfg, opts)
	if err != nil {
		return "", err
	}
	plan := &Plan{Variant: "entrypoint"}

	a.addEnvStep(plan)
	a.addCodingAgentConfigStep(plan)
	a.addDepSteps(plan, false)
	a.addSkillSteps(plan)
	if err := a.addWorkspaceStep(plan); err != nil {
		return "", err
	}
	a.addPostProvisionSteps(plan)
	if err := a.addConfigWriteStep(plan); err != nil {
		return "", err
	}
	a.addPreStartSteps(plan)
	plan.Add(Step{Label: "start gateway (foreground)", Phase: PhaseStart, Shell: strings.Join([]string{
		a.approveInBackground(),
		"exec openclaw gateway --port \"$GATEWAY_PORT\"",
	}, "\n")})

	return render(plan, entrypointTemplate, a.req)
}

// addEnvStep exports the env contract of generated scripts: provider and
// plugin credentials from the synthesized env, gateway settings, and the
// agent identity. Values resolved at generation time are embedded; values
// arriving through a separate secrets channel stay as ${NAME} placeholders
// for the interpolation pass.
func (a *assembler) addEnvStep(plan *Plan) {
	var b strings.Builder
	for _, name := range sortedKeys(a.cfg.Env) {
		fmt.Fprintf(&b, "export %s=\"%s\"\n", name, shellEscape(a.cfg.Env[name]))
	}
	fmt.Fprintf(&b, "export GATEWAY_PORT=\"%d\"\n", a.cfg.Gateway.Port)
	if a.cfg.Gateway.Auth.Token != "" {
		fmt.Fprintf(&b, "export GATEWAY_TOKEN=\"%s\"\n", shellEscape(a.cfg.Gateway.Auth.Token))
	} else {
		b.WriteString("export GATEWAY_TOKEN=\"${GATEWAY_TOKEN}\"\n")
	}
	if a.req.AgentName != "" {
		fmt.Fprintf(&b, "export AGENT_NAME=\"%s\"\n", shellEscape(a.req.AgentName))
	}
	if a.req.AgentEmoji != "" {
		fmt.Fprintf(&b, "export AGENT_EMOJI=\"%s\"\n", shellEscape(a.req.AgentEmoji))
	}
	plan.Add(Step{Label: "export agent environment", Phase: PhaseInstall,
		Shell: strings.TrimRight(b.String(), "\n")})
}

func (a *assembler) addTailscaleSteps(plan *Plan, install bool) {
	if a.req.SkipTailscale {
		return
	}
	if install {
		plan.Add(Step{Label: "install tailscale", Phase: PhaseInstall,
			Shell: "curl -fsSL https://tailscale.com/install.sh | sh"})
	}
	authKey := "${TAILSCALE_AUTH_KEY}"
	if a.req.TailscaleAuthKey != "" {
		authKey = shellEscape(a.req.TailscaleAuthKey)
	}
	hostname := a.req.AgentName
	if hostname == "" {
		hostname = "openclaw-agent"
	}
	plan.Add(Step{Label: "tailscale up", Phase: PhaseInstall,
		Shell: fmt.Sprintf("tailscale up --authkey=\"%s\" --hostname=%q", authKey, hostname)})
	plan.Add(Step{Label: "tailscale serve", Phase: PhaseInstall, BestEffort: true,
		Shell: "tailscale serve --bg --https=443 \"http://127.0.0.1:${GATEWAY_PORT}\""})
	plan.Add(Step{Label: "resolve agent base url", Phase: PhaseInstall,
		Shell: `export AGENT_BASE_URL="https://$(tailscale status --json | jq -r '.Self.DNSName' | sed 's/\.$//')"`})
	if a.needsFunnel() {
		plan.Add(Step{Label: "tailscale funnel", Phase: PhaseInstall, BestEffort: true,
			Shell: "tailscale funnel --bg 443"})
	}
}

func (a *assembler) needsFunnel() bool {
	for _, entry := range a.req.Plugins {
		if entry.Manifest.NeedsFunnel {
			return true
		}
	}
	return false
}

func (a *assembler) addCodingAgentConfigStep(plan *Plan) {
	shell := fmt.Sprintf("export MODEL=\"%s\"\n%s", shellEscape(a.req.Model), a.agent.ConfigureScript)
	plan.Add(Step{Label: "configure " + a.agent.DisplayName, Phase: PhaseInstall, Shell: shell})
}

func (a *assembler) addDepSteps(plan *Plan, install bool) {
	for _, dep := range a.req.Deps {
		if install && dep.Spec.InstallScript != "" {
			plan.Add(Step{Label: "install " + dep.Spec.Name, Phase: PhaseInstall, Shell: dep.Spec.InstallScript})
		}
		if dep.Spec.PostInstallScript != "" {
			plan.Add(Step{Label: "configure " + dep.Spec.Name, Phase: PhaseInstall, Shell: dep.Spec.PostInstallScript})
		}
		for _, key := range sortedKeys(dep.Spec.Secrets) {
			if check := dep.Spec.Secrets[key].CheckCommand; check != "" {
				plan.Add(Step{Label: "check " + dep.Spec.Name, Phase: PhaseInstall, BestEffort: true, Shell: check})
			}
		}
	}
}

func (a *assembler) addPluginInstallSteps(plan *Plan) {
	for _, entry := range a.req.Plugins {
		if !entry.Manifest.Installable {
			continue
		}
		plan.Add(Step{Label: "install plugin " + entry.Manifest.Name, Phase: PhaseInstall, BestEffort: true,
			Shell: fmt.Sprintf("openclaw plugins install %s", entry.Manifest.Name)})
	}
}

func (a *assembler) addSkillSteps(plan *Plan) {
	for _, skill := range a.req.Skills {
		plan.Add(Step{Label: "install skill " + skill, Phase: PhaseInstall, BestEffort: true,
			Shell: fmt.Sprintf("clawhub install %q", skill)})
	}
}

func (a *assembler) addWorkspaceStep(plan *Plan) error {
	if len(a.req.WorkspaceFiles) == 0 {
		return nil
	}
	step, err := workspaceStep(a.req.WorkspaceFiles, workspaceRoot)
	if err != nil {
		return err
	}
	plan.Add(step)
	return nil
}

func (a *assembler) addPostProvisionSteps(plan *Plan) {
	for _, entry := range a.req.Plugins {
		if !entry.Manifest.HasOrderedHooks() || entry.Manifest.Hooks.PostProvision == "" {
			continue
		}
		plan.Add(Step{
			Label: "postProvision hook: " + entry.Manifest.Name,
			Phase: PhasePostProvision,
			Shell: entry.Manifest.Hooks.PostProvision,
		})
	}
}

func (a *assembler) addConfigWriteStep(plan *Plan) error {
	var body string
	if a.opts.UseOps {
		rendered, err := synth.RenderOps(synth.ConfigOps(a.cfg))
		if err != nil {
			return err
		}
		body = rendered
	} else {
		data, err := synth.Marshal(a.cfg)
		if err != nil {
			return err
		}
		body = strings.Join([]string{
			fmt.Sprintf("mkdir -p %q", openclawHome+"/.openclaw"),
			fmt.Sprintf("cat > %q <<'OPENCLAW_JSON'", openclawConfig),
			string(data),
			"OPENCLAW_JSON",
		}, "\n")
	}
	plan.Add(Step{Label: "write openclaw.json", Phase: PhaseConfigWrite, Shell: body})
	return nil
}

// addEnvFileStep persists the agent environment for the systemd unit,
// which does not inherit the bootstrap shell's exports.
func (a *assembler) addEnvFileStep(plan *Plan) {
	var b strings.Builder
	fmt.Fprintf(&b, "mkdir -p %q\n", openclawHome+"/.openclaw")
	fmt.Fprintf(&b, "cat > %q <<EOF\n", openclawHome+"/.openclaw/agent.env")
	for _, name := range sortedKeys(a.cfg.Env) {
		fmt.Fprintf(&b, "%s=\"%s\"\n", name, shellEscape(a.cfg.Env[name]))
	}
	fmt.Fprintf(&b, "GATEWAY_PORT=\"%d\"\n", a.cfg.Gateway.Port)
	if a.cfg.Gateway.Auth.Token != "" {
		fmt.Fprintf(&b, "GATEWAY_TOKEN=\"%s\"\n", shellEscape(a.cfg.Gateway.Auth.Token))
	}
	b.WriteString("EOF\n")
	fmt.Fprintf(&b, "chmod 600 %q", openclawHome+"/.openclaw/agent.env")
	plan.Add(Step{Label: "write agent.env", Phase: PhaseConfigWrite, Shell: b.String()})
}

func (a *assembler) addPreStartSteps(plan *Plan) {
	for _, entry := range a.req.Plugins {
		if !entry.Manifest.HasOrderedHooks() || entry.Manifest.Hooks.PreStart == "" {
			continue
		}
		plan.Add(Step{
			Label: "preStart hook: " + entry.Manifest.Name,
			Phase: PhasePreStart,
			Shell: entry.Manifest.Hooks.PreStart,
		})
	}
}

func (a *assembler) addSystemdSteps(plan *Plan, action string) error {
	unit, err := renderSystemdUnit(a.req)
	if err != nil {
		return err
	}
	plan.Add(Step{Label: "install systemd service", Phase: PhaseStart, Shell: strings.Join([]string{
		"cat > /etc/systemd/system/openclaw.service <<'OPENCLAW_UNIT'",
		unit,
		"OPENCLAW_UNIT",
		"systemctl daemon-reload",
		"systemctl " + action + " openclaw",
	}, "\n")})
	return nil
}

// addPostStartSteps approves the freshly started gateway's pending device
// pairing so it does not block on manual approval, then runs a self-check.
// Both degrade to warnings; the device may simply be paired already.
func (a *assembler) addPostStartSteps(plan *Plan) {
	plan.Add(Step{Label: "approve device pairing", Phase: PhaseStart, BestEffort: true,
		Shell: "sleep 5\nopenclaw devices approve --latest"})
	plan.Add(Step{Label: "openclaw doctor", Phase: PhaseStart, BestEffort: true,
		Shell: "openclaw doctor --non-interactive"})
}

func (a *assembler) approveInBackground() string {
	return `( sleep 5; openclaw devices approve --latest || echo "warning: approve device pairing failed (continuing)" ) &`
}

func renderSystemdUnit(req *synth.DeploymentRequest) (string, error) {
	tmpl, err := template.New("unit").Parse(systemdUnitTemplate)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{
		"User": "openclaw",
		"Home": openclawHome,
	}); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func render(plan *Plan, tmplStr string, req *synth.DeploymentRequest) (string, error) {
	if err := plan.validate(); err != nil {
		return "", err
	}
	tmpl, err := template.New(plan.Variant).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", plan.Variant, err)
	}
	agentName := req.AgentName
	if agentName == "" {
		agentName = "agent"
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{
		"AgentName": agentName,
		"Steps":     plan.Steps,
	}); err != nil {
		return "", fmt.Errorf("render %s script: %w", plan.Variant, err)
	}
	return buf.String(), nil
}

func shellEscape(s string) string {
	return strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"$", `\$`,
		"`", "\\`",
	).Replace(s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
