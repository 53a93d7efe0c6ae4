package main

import (
	"github.com/spf13/cobra"

	"github.com/stackready/stackready/internal/status"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Tear the declared stack down",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.reconciler.Destroy(ctx); err != nil {
			return err
		}

		a.logger.Info().Str("project", a.stack.Project).Msg("stack destroyed")
		a.recordSnapshot(ctx, "destroy", status.Status{
			Kind:     status.KindNotRunning,
			Services: map[string]status.ServiceState{},
		})
		return nil
	},
}
