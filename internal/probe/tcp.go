package probe

import (
	"context"
	"fmt"
	"net"
	"time"
)

const defaultDialTimeout = 5 * time.Second

// TCPProbe reports healthy when a TCP connection to the address succeeds.
// Suitable for broker-like services that expose no richer liveness surface.
type TCPProbe struct {
	address string
	timeout time.Duration
}

// NewTCPProbe returns a TCP connect probe for the given host:port address.
func NewTCPProbe(address string) *TCPProbe {
	return &TCPProbe{address: address, timeout: defaultDialTimeout}
}

// Check implements HealthProbe.
func (p *TCPProbe) Check(ctx context.Context) error {
	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.address, err)
	}
	return conn.Close()
}
