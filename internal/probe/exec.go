package probe

import (
	"context"
	"fmt"

	"github.com/stackready/stackready/internal/secret"
)

// ExecProbe runs a liveness command inside the service's container, e.g. a
// credentialed ping against a database. The credential is resolved at check
// time and passed only through the command's environment; it never appears
// in errors or logs.
type ExecProbe struct {
	execer      Execer
	service     string
	command     []string
	passwordEnv string
	credentials secret.Provider
}

// NewExecProbe returns an in-container exec probe. credentials may be nil
// for commands that need none.
func NewExecProbe(execer Execer, service string, command []string, passwordEnv string, credentials secret.Provider) *ExecProbe {
	return &ExecProbe{
		execer:      execer,
		service:     service,
		command:     command,
		passwordEnv: passwordEnv,
		credentials: credentials,
	}
}

// Check implements HealthProbe.
func (p *ExecProbe) Check(ctx context.Context) error {
	var env []string
	if p.credentials != nil {
		value, err := p.credentials.Lookup(ctx)
		if err != nil {
			return fmt.Errorf("resolve credential: %w", err)
		}
		env = []string{p.passwordEnv + "=" + value}
	}

	code, err := p.execer.Exec(ctx, p.service, p.command, env)
	if err != nil {
		return fmt.Errorf("exec in %s: %w", p.service, err)
	}
	if code != 0 {
		return fmt.Errorf("liveness command in %s exited %d", p.service, code)
	}
	return nil
}
