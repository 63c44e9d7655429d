package deployment

import (
	"context"
	"fmt"

	"github.com/stepandel/clawup/internal/script"
	"github.com/stepandel/clawup/internal/synth"
)

// ScriptVariant selects which bootstrap flavor a deployment ships.
type ScriptVariant string

const (
	VariantCloudInit  ScriptVariant = "cloud-init"
	VariantNixOS      ScriptVariant = "nixos"
	VariantEntrypoint ScriptVariant = "entrypoint"
)

// VariantForTarget returns the default script variant for a target. The
// nixos variant is opt-in per machine image, never implied by the target.
func VariantForTarget(targetName string) ScriptVariant {
	if targetName == "docker" {
		return VariantEntrypoint
	}
	return VariantCloudInit
}

// Service runs the full provisioning pipeline for one agent: synthesize
// the config, assemble the bootstrap script, substitute deferred secrets,
// and hand the result to a provision target.
type Service struct {
	// Secrets are deferred values substituted into the assembled script
	// (gateway token, tailscale auth key, webhook base URL).
	Secrets map[string]string

	// ScriptOptions are passed through to the assembler.
	ScriptOptions script.Options
}

// DeployPlan is everything generated for one agent before any provider call.
type DeployPlan struct {
	Config *synth.ApplicationConfig
	Script string
}

// Assemble renders the bootstrap script for one variant.
func Assemble(req *synth.DeploymentRequest, cfg *synth.ApplicationConfig, variant ScriptVariant, opts script.Options) (string, error) {
	var bootstrap string
	var err error
	switch variant {
	case VariantCloudInit:
		bootstrap, err = script.AssembleCloudInit(req, cfg, opts)
	case VariantNixOS:
		bootstrap, err = script.AssembleNixOS(req, cfg, opts)
	case VariantEntrypoint:
		bootstrap, err = script.AssembleEntrypoint(req, cfg, opts)
	default:
		return "", fmt.Errorf("unknown script variant: %s", variant)
	}
	if err != nil {
		return "", fmt.Errorf("failed to assemble %s script: %w", variant, err)
	}
	return bootstrap, nil
}

// Prepare synthesizes the config and assembles the interpolated bootstrap
// script. It fails before any provider side effect: an unresolvable config
// or a leftover secret placeholder aborts here.
func (s *Service) Prepare(req *synth.DeploymentRequest, variant ScriptVariant) (*DeployPlan, error) {
	cfg, err := synth.Synthesize(req)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize config: %w", err)
	}

	bootstrap, err := Assemble(req, cfg, variant, s.ScriptOptions)
	if err != nil {
		return nil, err
	}

	bootstrap = script.Interpolate(bootstrap, s.Secrets)
	if leftover := script.UnresolvedPlaceholders(bootstrap, runtimeAllowlist(req, cfg, variant)); len(leftover) > 0 {
		for _, name := range leftover {
			if name == "AGENT_BASE_URL" {
				return nil, fmt.Errorf("a plugin references AGENT_BASE_URL but this variant cannot derive it from tailscale; supply the agent's public base URL (--base-url)")
			}
		}
		return nil, fmt.Errorf("unresolved placeholders in bootstrap script: %v", leftover)
	}

	return &DeployPlan{Config: cfg, Script: bootstrap}, nil
}

// runtimeAllowlist extends the static allow-list with every name the
// script exports itself: config env vars, the agent identity, and the
// tailscale-derived base URL on variants that bring tailscale up. Hooks
// referencing those resolve at runtime on the machine, not here.
func runtimeAllowlist(req *synth.DeploymentRequest, cfg *synth.ApplicationConfig, variant ScriptVariant) []string {
	allow := append([]string{}, script.RuntimeAllowlist...)
	for name := range cfg.Env {
		allow = append(allow, name)
	}
	allow = append(allow, "AGENT_NAME", "AGENT_EMOJI")
	if !req.SkipTailscale && variant != VariantEntrypoint {
		allow = append(allow, "AGENT_BASE_URL")
	}
	return allow
}

// Deploy prepares and provisions one agent on the named target.
func (s *Service) Deploy(ctx context.Context, targetName string, machine *Machine, req *synth.DeploymentRequest, variant ScriptVariant, options ProvisionOptions) (*ProvisionResult, error) {
	target, ok := GetProvisionTarget(targetName)
	if !ok {
		return nil, fmt.Errorf("unknown provision target: %s (available: %v)", targetName, ListProvisionTargets())
	}
	if err := target.Validate(ctx); err != nil {
		return nil, fmt.Errorf("target %s not usable: %w", targetName, err)
	}

	plan, err := s.Prepare(req, variant)
	if err != nil {
		return nil, err
	}

	input := &ProvisionInput{
		Script:  plan.Script,
		Request: req,
		Env:     plan.Config.Env,
	}
	return target.Provision(ctx, machine, input, options)
}
