package notify

import (
	"context"

	"github.com/stackready/stackready/internal/transition"
)

// MultiNotifier fans out notifications to several notifiers. Delivery
// continues past failures; the first error wins.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMulti creates a notifier that dispatches to all provided notifiers,
// skipping nil entries.
func NewMulti(notifiers ...Notifier) *MultiNotifier {
	kept := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier == nil {
			continue
		}
		kept = append(kept, notifier)
	}
	return &MultiNotifier{notifiers: kept}
}

// Notify implements Notifier.
func (m *MultiNotifier) Notify(ctx context.Context, project string, transitions []transition.ServiceTransition) error {
	var firstErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, project, transitions); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
