package transition

import (
	"sort"

	"github.com/stackready/stackready/internal/state"
	"github.com/stackready/stackready/internal/status"
)

// ServiceTransition captures one service moving between states across two
// observations.
type ServiceTransition struct {
	Name     string
	Previous status.ServiceState
	Current  status.ServiceState
}

// Detect compares a previous snapshot with the current observation and
// emits one transition per service whose state changed. On the first
// observation (no snapshot, or a snapshot without service detail) only
// services that are not OK are reported, so a freshly watched healthy stack
// stays quiet.
func Detect(prev *state.Snapshot, current status.Status) []ServiceTransition {
	prevServices := map[string]status.ServiceState{}
	if prev != nil && prev.Services != nil {
		prevServices = prev.Services
	}
	firstRun := len(prevServices) == 0

	transitions := make([]ServiceTransition, 0)
	for name, currentState := range current.Services {
		previous, hadPrev := prevServices[name]

		if firstRun || !hadPrev {
			if currentState == status.ServiceOK {
				continue
			}
		} else if previous == currentState {
			continue
		}

		transitions = append(transitions, ServiceTransition{
			Name:     name,
			Previous: previous,
			Current:  currentState,
		})
	}

	// Services that vanished from the observation entirely, e.g. after the
	// required set shrank, still close out their last known state.
	for name, previous := range prevServices {
		if _, ok := current.Services[name]; ok {
			continue
		}
		transitions = append(transitions, ServiceTransition{
			Name:     name,
			Previous: previous,
			Current:  status.ServiceMissing,
		})
	}

	sort.Slice(transitions, func(i, j int) bool {
		return transitions[i].Name < transitions[j].Name
	})

	return transitions
}
