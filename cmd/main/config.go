package main

import (
	"github.com/spf13/cobra"

	"github.com/stepandel/clawup/cmd/main/handlers/deploy"
)

var (
	configOpts      deploy.Options
	configPatchPath string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the synthesized openclaw.json for an agent",
	Long: `Synthesize and print the agent's openclaw.json. With --ops the
equivalent list of openclaw config set operations is printed instead;
with --patch the synthesized config is merged into an existing file,
preserving keys the user added by hand (comments and trailing commas in
the existing file are accepted).`,
	Example: `  clawup config --name lobster --model anthropic/claude-opus-4
  clawup config --identity https://github.com/acme/lobster-identity --ops
  clawup config --name lobster --model openai/gpt-4o --patch ~/.openclaw/openclaw.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return deploy.HandleConfig(cmd.Context(), &configOpts, configPatchPath)
	},
}

func init() {
	addAgentFlags(configCmd, &configOpts)
	addTargetFlags(configCmd, &configOpts)
	configCmd.Flags().StringVarP(&configOpts.IdentityRepo, "identity", "i", "", "Git URL of an identity repo")
	configCmd.Flags().StringVar(&configPatchPath, "patch", "", "Merge into an existing openclaw.json at this path")
}
