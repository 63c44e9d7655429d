package deploy

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/stepandel/clawup/internal/config"
	"github.com/stepandel/clawup/internal/deployment"
	_ "github.com/stepandel/clawup/internal/deployment/targets"
	"github.com/stepandel/clawup/internal/identity"
	"github.com/stepandel/clawup/internal/logging"
	"github.com/stepandel/clawup/internal/script"
	"github.com/stepandel/clawup/internal/synth"
)

// HandleUp is the entry point for `clawup up`. With several identities it
// deploys one machine per identity, each with its own run ID and gateway
// token; nothing is shared between the deploys.
func HandleUp(ctx context.Context, opts *Options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	repos := opts.IdentityRepos
	if len(repos) == 0 {
		repos = []string{opts.IdentityRepo}
	}
	for i, repo := range repos {
		if i > 0 {
			fmt.Println()
		}
		agentOpts := *opts
		agentOpts.IdentityRepo = repo
		if err := deployOne(ctx, &agentOpts, cfg); err != nil {
			if len(repos) > 1 {
				return fmt.Errorf("deploying %s: %w", repo, err)
			}
			return err
		}
	}
	return nil
}

func deployOne(ctx context.Context, opts *Options, cfg *config.Config) error {
	applyConfigDefaults(opts, cfg)

	runID := newRunID()
	logging.Debug("deploy run %s starting", runID)

	bundle, err := fetchIdentity(ctx, opts, cfg)
	if err != nil {
		return err
	}

	if opts.GatewayToken == "" {
		opts.GatewayToken = uuid.NewString()
		logging.Debug("generated gateway token for run %s", runID)
	}
	if opts.Target == "docker" {
		opts.Foreground = true
	}

	req, err := BuildRequest(ctx, opts, bundle)
	if err != nil {
		return err
	}

	fmt.Printf("🚀 Deploying agent '%s' to %s\n\n", req.AgentName, opts.Target)
	fmt.Printf("🔍 Agent configuration:\n")
	fmt.Printf("   ✓ Model: %s\n", req.Model)
	fmt.Printf("   ✓ Coding agent: %s\n", req.CodingAgent)
	if len(req.Plugins) > 0 {
		fmt.Printf("   ✓ Plugins: %s\n", pluginNames(req))
	}
	if req.ModelCredential == "" {
		fmt.Printf("   ⚠️  No model credential found in environment\n")
	}
	fmt.Println()

	variant := deployment.VariantForTarget(opts.Target)
	if opts.NixOS {
		variant = deployment.VariantNixOS
	}

	svc := &deployment.Service{
		Secrets:       deferredSecrets(opts),
		ScriptOptions: script.Options{UseOps: opts.UseOps},
	}
	machine := machineFor(opts, req)
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join("clawup-runs", runID)
	}

	result, err := svc.Deploy(ctx, opts.Target, machine, req, variant, deployment.ProvisionOptions{
		DryRun:    opts.DryRun,
		OutputDir: outputDir,
		Attach:    opts.Attach,
	})
	if err != nil {
		return err
	}

	if !opts.DryRun {
		fmt.Printf("\n✅ Agent '%s' is provisioning (machine %s)\n", req.AgentName, result.MachineID)
		if result.Address != "" {
			fmt.Printf("   Address: %s\n", result.Address)
		}
	}
	return nil
}

// HandleDestroy tears down one agent's machine.
func HandleDestroy(ctx context.Context, opts *Options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyConfigDefaults(opts, cfg)

	target, ok := deployment.GetProvisionTarget(opts.Target)
	if !ok {
		return fmt.Errorf("unknown provision target: %s (available: %v)", opts.Target, deployment.ListProvisionTargets())
	}
	return target.Destroy(ctx, machineFor(opts, nil))
}

// HandleStatus prints one agent's machine state.
func HandleStatus(ctx context.Context, opts *Options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyConfigDefaults(opts, cfg)

	target, ok := deployment.GetProvisionTarget(opts.Target)
	if !ok {
		return fmt.Errorf("unknown provision target: %s (available: %v)", opts.Target, deployment.ListProvisionTargets())
	}
	status, err := target.Status(ctx, machineFor(opts, nil))
	if err != nil {
		return err
	}
	fmt.Printf("State: %s\n", status.State)
	if status.Address != "" {
		fmt.Printf("Address: %s\n", status.Address)
	}
	if status.Message != "" {
		fmt.Printf("Message: %s\n", status.Message)
	}
	return nil
}

// HandleTargets lists registered targets and whether each is usable.
func HandleTargets(ctx context.Context) error {
	for _, name := range deployment.ListProvisionTargets() {
		target, _ := deployment.GetProvisionTarget(name)
		if err := target.Validate(ctx); err != nil {
			fmt.Printf("   ✗ %s: %v\n", name, err)
			continue
		}
		fmt.Printf("   ✓ %s\n", name)
	}
	return nil
}

func fetchIdentity(ctx context.Context, opts *Options, cfg *config.Config) (*identity.Bundle, error) {
	if opts.IdentityRepo == "" {
		return nil, nil
	}
	fmt.Printf("📦 Fetching identity from %s\n", opts.IdentityRepo)
	bundle, err := identity.NewFetcher(cfg.CacheDir).Fetch(ctx, opts.IdentityRepo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch identity: %w", err)
	}
	fmt.Printf("   ✓ Loaded identity '%s'\n\n", bundle.Manifest.Name)
	return bundle, nil
}

func applyConfigDefaults(opts *Options, cfg *config.Config) {
	if opts.Target == "" {
		opts.Target = cfg.DefaultTarget
	}
	if opts.GatewayPort == 0 {
		opts.GatewayPort = cfg.GatewayPort
	}
	if opts.Image == "" {
		opts.Image = cfg.MachineImage(opts.Target)
	}
	if opts.SSHKeyName == "" {
		opts.SSHKeyName = cfg.SSHKeyName
	}
	if opts.Region == "" {
		switch opts.Target {
		case "aws":
			opts.Region = cfg.AWSRegion
		case "hetzner":
			opts.Region = cfg.HetznerLocation
		}
	}
	if opts.InstanceType == "" {
		switch opts.Target {
		case "aws":
			opts.InstanceType = cfg.AWSInstanceType
		case "hetzner":
			opts.InstanceType = cfg.HetznerServerType
		}
	}
}

// deferredSecrets are the values interpolated into the script after
// assembly rather than embedded during it.
func deferredSecrets(opts *Options) map[string]string {
	secrets := map[string]string{}
	if opts.GatewayToken != "" {
		secrets["GATEWAY_TOKEN"] = opts.GatewayToken
	}
	if opts.TailscaleAuthKey != "" {
		secrets["TAILSCALE_AUTH_KEY"] = opts.TailscaleAuthKey
	}
	if opts.AgentBaseURL != "" {
		secrets["AGENT_BASE_URL"] = opts.AgentBaseURL
	}
	return secrets
}

func machineFor(opts *Options, req *synth.DeploymentRequest) *deployment.Machine {
	name := opts.AgentName
	if req != nil && req.AgentName != "" {
		name = req.AgentName
	}
	if name == "" {
		name = "agent"
	}
	return &deployment.Machine{
		Name:         name,
		Region:       opts.Region,
		InstanceType: opts.InstanceType,
		Image:        opts.Image,
		SSHKeyName:   opts.SSHKeyName,
	}
}

func pluginNames(req *synth.DeploymentRequest) string {
	names := ""
	for i, entry := range req.Plugins {
		if i > 0 {
			names += ", "
		}
		names += entry.Manifest.Name
	}
	return names
}
