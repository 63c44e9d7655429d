package main

import (
	"github.com/spf13/cobra"

	"github.com/stepandel/clawup/cmd/main/handlers/deploy"
)

var upOpts deploy.Options

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Provision OpenClaw agent machines",
	Long: `Provision agents: synthesize each agent's openclaw.json, assemble the
bootstrap script for the target, and create the machine. Repeating
--identity deploys one machine per identity, independently.

An agent can be described by an identity repo (--identity), by flags, or
both; flags win where both are set.`,
	Example: `  clawup up --identity https://github.com/acme/lobster-identity --target hetzner
  clawup up --name lobster --model anthropic/claude-opus-4 --plugin slack --target aws
  clawup up -i https://github.com/acme/lobster-identity -i https://github.com/acme/crab-identity
  clawup up --name dev --target docker --attach`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return deploy.HandleUp(cmd.Context(), &upOpts)
	},
}

func init() {
	addAgentFlags(upCmd, &upOpts)
	addTargetFlags(upCmd, &upOpts)
	upCmd.Flags().StringArrayVarP(&upOpts.IdentityRepos, "identity", "i", nil, "Git URL of an identity repo (repeatable)")
	upCmd.Flags().BoolVar(&upOpts.DryRun, "dry-run", false, "Generate artifacts without provisioning")
	upCmd.Flags().StringVar(&upOpts.OutputDir, "output-dir", "", "Directory for generated artifacts (default clawup-runs/<run-id>)")
	upCmd.Flags().BoolVar(&upOpts.Attach, "attach", false, "Stream machine output after start (docker)")
}

// addAgentFlags registers the agent-shape flags shared by up, script, and
// config. The identity flag is registered per command: up takes it
// repeatedly, script and config take exactly one.
func addAgentFlags(cmd *cobra.Command, opts *deploy.Options) {
	cmd.Flags().StringVar(&opts.AgentName, "name", "", "Agent display name")
	cmd.Flags().StringVar(&opts.AgentEmoji, "emoji", "", "Agent emoji")
	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "Model (e.g. anthropic/claude-opus-4)")
	cmd.Flags().StringVar(&opts.BackupModel, "backup-model", "", "Fallback model")
	cmd.Flags().StringVar(&opts.CodingAgent, "coding-agent", "", "Coding agent CLI (claude-code, codex)")
	cmd.Flags().StringArrayVar(&opts.Plugins, "plugin", nil, "Plugin to enable (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Deps, "dep", nil, "System dependency to install (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Skills, "skill", nil, "Skill to install via clawhub (repeatable)")
	cmd.Flags().StringToStringVar(&opts.Env, "env", nil, "Extra env var (key=value, repeatable)")
	cmd.Flags().IntVar(&opts.GatewayPort, "gateway-port", 0, "Gateway port")
	cmd.Flags().StringVar(&opts.GatewayToken, "gateway-token", "", "Gateway auth token (generated when empty)")
	cmd.Flags().StringVar(&opts.TailscaleAuthKey, "tailscale-key", "", "Tailscale auth key")
	cmd.Flags().StringVar(&opts.AgentBaseURL, "base-url", "", "Public base URL for webhook plugins (needed on docker)")
	cmd.Flags().StringVar(&opts.WebSearchKey, "websearch-key", "", "Web search API key")
}

// addTargetFlags registers the machine-shape flags shared by up, destroy,
// and status.
func addTargetFlags(cmd *cobra.Command, opts *deploy.Options) {
	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "Provision target (aws, hetzner, docker)")
	cmd.Flags().BoolVar(&opts.NixOS, "nixos", false, "Machine image is a prebuilt NixOS image")
	cmd.Flags().StringVar(&opts.Region, "region", "", "Cloud region or Hetzner location")
	cmd.Flags().StringVar(&opts.InstanceType, "instance-type", "", "Machine size (EC2 instance type, Hetzner server type)")
	cmd.Flags().StringVar(&opts.Image, "image", "", "Boot image (AMI, Hetzner image, or container image)")
	cmd.Flags().StringVar(&opts.SSHKeyName, "ssh-key", "", "Provider SSH key name")
	cmd.Flags().BoolVar(&opts.UseOps, "ops", false, "Apply config as openclaw config set operations")
}
