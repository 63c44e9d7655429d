package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stepandel/clawup/internal/logging"
	"github.com/stepandel/clawup/internal/version"
)

var (
	debugFlag bool

	rootCmd = &cobra.Command{
		Use:   "clawup",
		Short: "Clawup - OpenClaw agent provisioning",
		Long: `Clawup provisions OpenClaw agent machines across AWS, Hetzner, and
local Docker. It synthesizes the agent's openclaw.json, assembles the
bootstrap script for the target, and brings the machine up.`,
		Version: version.GetVersionString(),
	}
)

func init() {
	cobra.OnInitialize(initViper)
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(versionCmd)
}

func initViper() {
	viper.SetEnvPrefix("CLAWUP")
	viper.AutomaticEnv()
}

func initLogging() {
	logging.Initialize(viper.GetBool("debug") || debugFlag)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
