// Package probe implements the per-service liveness checks. A probe answers
// one question about one service; errors mean unhealthy (fail closed).
package probe

import (
	"context"
	"fmt"

	"github.com/stackready/stackready/internal/config"
	"github.com/stackready/stackready/internal/secret"
)

// HealthProbe performs a protocol-specific liveness check. A nil return
// means healthy; any error means unhealthy.
type HealthProbe interface {
	Check(ctx context.Context) error
}

// Execer runs a command inside a service's container. Implemented by the
// docker client.
type Execer interface {
	Exec(ctx context.Context, service string, cmd []string, env []string) (int, error)
}

// New builds the probe described by spec for the named service.
func New(spec config.ProbeSpec, service string, execer Execer) (HealthProbe, error) {
	switch spec.Type {
	case config.ProbeTCP:
		return NewTCPProbe(spec.Address), nil
	case config.ProbeHTTP:
		return NewHTTPProbe(spec.URL), nil
	case config.ProbeExec:
		var credentials secret.Provider
		if spec.PasswordFile != "" {
			credentials = secret.NewFileProvider(spec.PasswordFile)
		}
		return NewExecProbe(execer, service, spec.Command, spec.PasswordEnv, credentials), nil
	default:
		return nil, fmt.Errorf("service %q: unknown probe type %q", service, spec.Type)
	}
}
