package main

import (
	"github.com/spf13/cobra"

	"github.com/stepandel/clawup/cmd/main/handlers/deploy"
)

var onboardOpts deploy.Options

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Run one-time plugin onboarding hooks",
	Long: `Runs the onboard hook of each plugin that declares one. Hooks marked
runOnce are skipped when their required secrets are already set in the
environment. Follow-up instructions printed by a hook are shown after it
succeeds.`,
	Example: `  clawup onboard --plugin slack
  clawup onboard --identity github.com/acme/lobster-identity`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return deploy.HandleOnboard(cmd.Context(), &onboardOpts)
	},
}

func init() {
	onboardCmd.Flags().StringVarP(&onboardOpts.IdentityRepo, "identity", "i", "", "Identity repository URL")
	onboardCmd.Flags().StringArrayVar(&onboardOpts.Plugins, "plugin", nil, "Plugin to onboard (repeatable)")
}
