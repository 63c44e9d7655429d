package main

import (
	"github.com/spf13/cobra"

	"github.com/stepandel/clawup/cmd/main/handlers/deploy"
)

var (
	scriptOpts   deploy.Options
	scriptFormat string
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Print the bootstrap script for an agent",
	Long: `Assemble and print the bootstrap script that up would run on the
machine, without provisioning anything. Deferred secrets that are not
supplied stay as ${NAME} placeholders.`,
	Example: `  clawup script --name lobster --model anthropic/claude-opus-4 --target hetzner
  clawup script --identity https://github.com/acme/lobster-identity --format multipart`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return deploy.HandleScript(cmd.Context(), &scriptOpts, scriptFormat)
	},
}

func init() {
	addAgentFlags(scriptCmd, &scriptOpts)
	addTargetFlags(scriptCmd, &scriptOpts)
	scriptCmd.Flags().StringVarP(&scriptOpts.IdentityRepo, "identity", "i", "", "Git URL of an identity repo")
	scriptCmd.Flags().StringVar(&scriptFormat, "format", "plain", "Output envelope: plain, gzip, multipart")
}
