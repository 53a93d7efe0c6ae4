package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackready/stackready/internal/server"
	"github.com/stackready/stackready/internal/status"
)

var forceDeploy bool

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the declared stack unless it is already healthy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		// Long readiness waits are worth scraping; a zero port disables this.
		server.Start(ctx, a.logger, a.cfg.PollInterval, nil, a.collector, 0, a.cfg.MetricsPort)

		current := a.reconciler.ComputeStatus(ctx)
		if !a.reconciler.ShouldDeploy(current, forceDeploy) {
			a.logger.Info().Msg("infrastructure already healthy, skipping deploy")
			a.recordSnapshot(ctx, "skip", current)
			fmt.Println(status.Render(current))
			return nil
		}

		if err := a.reconciler.Deploy(ctx, a.desired); err != nil {
			a.recordSnapshot(ctx, "deploy-failed", a.reconciler.ComputeStatus(ctx))
			return err
		}

		final := a.reconciler.ComputeStatus(ctx)
		a.recordSnapshot(ctx, "deploy", final)
		fmt.Println(status.Render(final))
		return nil
	},
}

func init() {
	deployCmd.Flags().BoolVar(&forceDeploy, "force", false, "redeploy even when the stack is healthy")
}
