package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "stackready",
	Short: "Reconcile local infrastructure against a declared service set",
	Long: `stackready inspects the Docker runtime, classifies the declared
service set as healthy, partial, unhealthy, or not running, and deploys
or tears down the stack to reach a known-good state.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "stackready.yml", "path to the stack declaration file")
	rootCmd.AddCommand(deployCmd, destroyCmd, statusCmd, watchCmd)
}
