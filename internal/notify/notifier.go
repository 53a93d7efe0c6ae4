package notify

import (
	"context"

	"github.com/stackready/stackready/internal/transition"
)

// Notifier delivers service transition alerts to external systems.
type Notifier interface {
	Notify(ctx context.Context, project string, transitions []transition.ServiceTransition) error
}
