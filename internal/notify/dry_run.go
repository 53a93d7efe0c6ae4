package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/stackready/stackready/internal/transition"
)

// DryRunNotifier logs transitions without delivering them anywhere.
type DryRunNotifier struct {
	logger zerolog.Logger
}

// NewDryRun returns a notifier that suppresses delivery and logs instead.
func NewDryRun(logger zerolog.Logger) *DryRunNotifier {
	return &DryRunNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, project string, transitions []transition.ServiceTransition) error {
	for _, change := range transitions {
		n.logger.Info().
			Str("project", project).
			Str("service", change.Name).
			Str("previous", string(change.Previous)).
			Str("current", string(change.Current)).
			Msg("[DRY-RUN] would notify")
	}
	return nil
}
