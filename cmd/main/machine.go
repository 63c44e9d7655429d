package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stepandel/clawup/cmd/main/handlers/deploy"
	"github.com/stepandel/clawup/internal/version"
)

var (
	destroyOpts deploy.Options
	statusOpts  deploy.Options
)

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Tear down an agent's machine",
	Example: `  clawup destroy --name lobster --target hetzner
  clawup destroy --name dev --target docker`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return deploy.HandleDestroy(cmd.Context(), &destroyOpts)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show an agent machine's state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return deploy.HandleStatus(cmd.Context(), &statusOpts)
	},
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List provision targets and whether each is usable",
	RunE: func(cmd *cobra.Command, args []string) error {
		return deploy.HandleTargets(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetFullVersionString())
	},
}

func init() {
	for _, pair := range []struct {
		cmd  *cobra.Command
		opts *deploy.Options
	}{{destroyCmd, &destroyOpts}, {statusCmd, &statusOpts}} {
		pair.cmd.Flags().StringVar(&pair.opts.AgentName, "name", "", "Agent name")
		pair.cmd.Flags().StringVarP(&pair.opts.Target, "target", "t", "", "Provision target (aws, hetzner, docker)")
		pair.cmd.Flags().StringVar(&pair.opts.Region, "region", "", "Cloud region or Hetzner location")
		pair.cmd.MarkFlagRequired("name")
	}
}
