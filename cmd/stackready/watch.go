package main

import (
	"github.com/spf13/cobra"

	"github.com/stackready/stackready/internal/healthcheck"
	"github.com/stackready/stackready/internal/notify"
	"github.com/stackready/stackready/internal/server"
	"github.com/stackready/stackready/internal/watch"
)

var watchDryRun bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously observe the stack and notify on service transitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		notifier := buildNotifier(a, watchDryRun)
		tracker := healthcheck.NewTracker()

		server.Start(ctx, a.logger, a.cfg.PollInterval, tracker, a.collector, a.cfg.HealthPort, a.cfg.MetricsPort)

		watcher := watch.New(a.logger, a.stack.Project, a.cfg.PollInterval, a.reconciler, a.store,
			watch.WithNotifier(notifier),
			watch.WithMetrics(a.collector),
			watch.WithTracker(tracker),
			watch.WithComposeFingerprint(a.fingerprint),
		)

		a.logger.Info().
			Str("project", a.stack.Project).
			Dur("poll_interval", a.cfg.PollInterval).
			Msg("watching")
		return watcher.Run(ctx)
	},
}

func buildNotifier(a *app, dryRun bool) notify.Notifier {
	if dryRun {
		return notify.NewDryRun(a.logger)
	}

	notifiers := make([]notify.Notifier, 0, 2)
	notifiers = append(notifiers, notify.NewSlack(a.logger, a.cfg.SlackWebhookURL))
	if a.cfg.WebhookURL != "" {
		webhook, err := notify.NewWebhook(a.logger, a.cfg.WebhookURL, "")
		if err != nil {
			a.logger.Warn().Err(err).Msg("webhook notifier disabled")
		} else {
			notifiers = append(notifiers, webhook)
		}
	}
	return notify.NewMulti(notifiers...)
}

func init() {
	watchCmd.Flags().BoolVar(&watchDryRun, "dry-run", false, "log transitions instead of delivering notifications")
}
