package status

import (
	"fmt"
	"sort"
	"strings"
)

// Kind classifies the infrastructure as a whole.
type Kind string

const (
	// KindNotRunning means none of the required services are running.
	KindNotRunning Kind = "NOT_RUNNING"
	// KindPartial means some, but not all, required services are running.
	KindPartial Kind = "PARTIAL"
	// KindUnhealthy means all required services are running but at least
	// one fails its health probe.
	KindUnhealthy Kind = "UNHEALTHY"
	// KindHealthy means all required services are running and pass their
	// health probes.
	KindHealthy Kind = "HEALTHY"
	// KindError means observation itself failed (runtime unreachable).
	KindError Kind = "ERROR"
)

// ServiceState is the per-service observation backing the overall Kind.
type ServiceState string

const (
	ServiceOK        ServiceState = "OK"
	ServiceMissing   ServiceState = "MISSING"
	ServiceUnhealthy ServiceState = "UNHEALTHY"
	// ServiceUnknown marks a running service whose health was not probed
	// because the stack as a whole was incomplete.
	ServiceUnknown ServiceState = "UNKNOWN"
)

// Status is the full classification result for one observation. It is a
// value: it carries no memory of prior observations and is recomputed on
// every reconciliation call.
type Status struct {
	Kind      Kind                    `json:"kind"`
	Missing   []string                `json:"missing,omitempty"`
	Unhealthy []string                `json:"unhealthy,omitempty"`
	Services  map[string]ServiceState `json:"services,omitempty"`
	Reason    string                  `json:"reason,omitempty"`
}

// Healthy reports whether the status is fully healthy.
func (s Status) Healthy() bool {
	return s.Kind == KindHealthy
}

// Classify derives a Status from one observation of the runtime.
//
// running holds the names reported running by the container runtime.
// healthy holds per-service probe outcomes and is only consulted when every
// required service is running; callers may pass nil otherwise.
func Classify(required []string, running map[string]struct{}, healthy map[string]bool) Status {
	services := make(map[string]ServiceState, len(required))
	missing := make([]string, 0)
	present := 0

	for _, name := range required {
		if _, ok := running[name]; ok {
			present++
			services[name] = ServiceUnknown
			continue
		}
		services[name] = ServiceMissing
		missing = append(missing, name)
	}
	sort.Strings(missing)

	if present == 0 {
		return Status{Kind: KindNotRunning, Missing: missing, Services: services}
	}
	if len(missing) > 0 {
		return Status{Kind: KindPartial, Missing: missing, Services: services}
	}

	unhealthy := make([]string, 0)
	for _, name := range required {
		if healthy[name] {
			services[name] = ServiceOK
			continue
		}
		services[name] = ServiceUnhealthy
		unhealthy = append(unhealthy, name)
	}
	sort.Strings(unhealthy)

	if len(unhealthy) > 0 {
		return Status{Kind: KindUnhealthy, Unhealthy: unhealthy, Services: services}
	}
	return Status{Kind: KindHealthy, Services: services}
}

// ProbeFailure builds the Error status for a failed runtime observation.
func ProbeFailure(err error) Status {
	reason := "observation failed"
	if err != nil {
		reason = err.Error()
	}
	return Status{Kind: KindError, Reason: reason}
}

// Render formats the status as a human-readable block.
func Render(s Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "infrastructure: %s\n", s.Kind)
	if s.Reason != "" {
		fmt.Fprintf(&b, "  reason: %s\n", s.Reason)
	}

	names := make([]string, 0, len(s.Services))
	width := 0
	for name := range s.Services {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(&b, "  %-*s  %s\n", width, name, strings.ToLower(string(s.Services[name])))
	}
	return b.String()
}
