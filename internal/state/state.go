package state

import (
	"context"
	"time"

	"github.com/stackready/stackready/internal/status"
)

// Snapshot captures the outcome of one reconciliation for a project. It is
// a record of what was observed, not an input to classification: status is
// always recomputed fresh.
type Snapshot struct {
	Action             string                         `json:"action"`
	StatusKind         status.Kind                    `json:"status_kind"`
	Services           map[string]status.ServiceState `json:"services,omitempty"`
	ComposeFingerprint string                         `json:"compose_fingerprint,omitempty"`
	RecordedAt         time.Time                      `json:"recorded_at"`
}

// ConfigDrifted reports whether the compose file has changed since this
// snapshot was recorded. Unknown fingerprints on either side never count
// as drift.
func (s Snapshot) ConfigDrifted(fingerprint string) bool {
	if s.ComposeFingerprint == "" || fingerprint == "" {
		return false
	}
	return s.ComposeFingerprint != fingerprint
}

// State stores snapshots for all projects.
type State struct {
	Projects map[string]Snapshot `json:"projects"`
}

// Store defines the interface for persisting state.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}
