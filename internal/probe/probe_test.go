package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stackready/stackready/internal/config"
	"github.com/stackready/stackready/internal/secret"
)

type fakeExecer struct {
	service string
	cmd     []string
	env     []string
	code    int
	err     error
}

func (f *fakeExecer) Exec(_ context.Context, service string, cmd []string, env []string) (int, error) {
	f.service = service
	f.cmd = cmd
	f.env = env
	return f.code, f.err
}

func TestTCPProbe(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	if err := NewTCPProbe(listener.Addr().String()).Check(context.Background()); err != nil {
		t.Errorf("open port should be healthy: %v", err)
	}
}

func TestTCPProbe_ClosedPort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	address := listener.Addr().String()
	listener.Close()

	if err := NewTCPProbe(address).Check(context.Background()); err == nil {
		t.Error("closed port should be unhealthy")
	}
}

func TestHTTPProbe(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		healthy bool
	}{
		{"ok", http.StatusOK, true},
		{"no_content", http.StatusNoContent, true},
		{"server_error", http.StatusInternalServerError, false},
		{"not_found", http.StatusNotFound, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			err := NewHTTPProbe(server.URL).Check(context.Background())
			if tc.healthy && err != nil {
				t.Errorf("expected healthy, got %v", err)
			}
			if !tc.healthy && err == nil {
				t.Error("expected unhealthy")
			}
		})
	}
}

func TestHTTPProbe_UnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	if err := NewHTTPProbe(url).Check(context.Background()); err == nil {
		t.Error("unreachable server should be unhealthy")
	}
}

func TestExecProbe_PassesCredentialThroughEnv(t *testing.T) {
	execer := &fakeExecer{}
	p := NewExecProbe(execer, "mysql", []string{"mysqladmin", "ping", "--silent"}, "MYSQL_PWD", secret.Static("s3cret"))

	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("Check() error: %v", err)
	}

	if execer.service != "mysql" {
		t.Errorf("service = %q", execer.service)
	}
	if len(execer.env) != 1 || execer.env[0] != "MYSQL_PWD=s3cret" {
		t.Errorf("env = %v", execer.env)
	}
}

func TestExecProbe_NonZeroExitIsUnhealthy(t *testing.T) {
	p := NewExecProbe(&fakeExecer{code: 1}, "mysql", []string{"mysqladmin", "ping"}, "", nil)

	err := p.Check(context.Background())
	if err == nil {
		t.Fatal("expected unhealthy")
	}
	if !strings.Contains(err.Error(), "exited 1") {
		t.Errorf("error = %v", err)
	}
}

func TestExecProbe_ErrorsNeverContainCredential(t *testing.T) {
	p := NewExecProbe(&fakeExecer{code: 1}, "mysql", []string{"mysqladmin", "ping"}, "MYSQL_PWD", secret.Static("topsecret"))

	err := p.Check(context.Background())
	if err == nil {
		t.Fatal("expected unhealthy")
	}
	if strings.Contains(err.Error(), "topsecret") {
		t.Fatalf("credential leaked into error: %v", err)
	}
}

func TestExecProbe_FailsClosedOnExecError(t *testing.T) {
	p := NewExecProbe(&fakeExecer{err: errors.New("no running container")}, "mysql", []string{"true"}, "", nil)

	if err := p.Check(context.Background()); err == nil {
		t.Fatal("expected unhealthy on exec transport error")
	}
}

func TestExecProbe_CredentialLookupFailure(t *testing.T) {
	p := NewExecProbe(&fakeExecer{}, "mysql", []string{"true"}, "PASSWORD", secret.NewFileProvider("/does/not/exist"))

	if err := p.Check(context.Background()); err == nil {
		t.Fatal("expected unhealthy when credential cannot be resolved")
	}
}

func TestNew_BuildsProbeFromSpec(t *testing.T) {
	execer := &fakeExecer{}

	cases := []struct {
		name string
		spec config.ProbeSpec
		want string
	}{
		{"tcp", config.ProbeSpec{Type: config.ProbeTCP, Address: "localhost:9092"}, "*probe.TCPProbe"},
		{"http", config.ProbeSpec{Type: config.ProbeHTTP, URL: "http://localhost:8088/health"}, "*probe.HTTPProbe"},
		{"exec", config.ProbeSpec{Type: config.ProbeExec, Command: []string{"true"}}, "*probe.ExecProbe"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := New(tc.spec, "svc", execer)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			if got := typeName(p); got != tc.want {
				t.Errorf("probe type = %s, want %s", got, tc.want)
			}
		})
	}

	if _, err := New(config.ProbeSpec{Type: "icmp"}, "svc", execer); err == nil {
		t.Error("expected error for unknown probe type")
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *TCPProbe:
		return "*probe.TCPProbe"
	case *HTTPProbe:
		return "*probe.HTTPProbe"
	case *ExecProbe:
		return "*probe.ExecProbe"
	default:
		return "unknown"
	}
}
