package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackready/stackready/internal/status"
)

var statusJSON bool

// statusReport is the JSON shape of the status command: the classification
// plus drift against the snapshot recorded by the last deploy.
type statusReport struct {
	status.Status
	ConfigDrift bool   `json:"config_drift"`
	LastAction  string `json:"last_action,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the current stack status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		current := a.reconciler.ComputeStatus(ctx)

		report := statusReport{Status: current}
		if loaded, err := a.store.Load(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("state load failed, drift unknown")
		} else if snapshot, ok := loaded.Projects[a.stack.Project]; ok {
			report.ConfigDrift = snapshot.ConfigDrifted(a.fingerprint)
			report.LastAction = snapshot.Action
		}

		if statusJSON {
			encoded, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))
		} else {
			fmt.Println(status.Render(current))
			if report.ConfigDrift {
				fmt.Println("  compose file changed since last deploy")
			}
		}

		if !current.Healthy() {
			return fmt.Errorf("infrastructure is %s", current.Kind)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print status as JSON")
}
