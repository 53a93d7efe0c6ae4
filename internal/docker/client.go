package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

const defaultAPITimeout = 10 * time.Second

// Client wraps the Docker API for one project: it is both the container
// runtime probe (ListRunning) and the exec transport for credentialed health
// probes.
type Client struct {
	api     dockerAPI
	project string
	timeout time.Duration
}

// NewClient initializes a Docker client for the given API host and project.
// An empty host uses the standard environment defaults.
func NewClient(host, project string, timeout time.Duration) (*Client, error) {
	if project == "" {
		return nil, errors.New("project is required")
	}
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}

	opts := []client.Opt{
		client.WithAPIVersionNegotiation(),
		client.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	api, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}

	return &Client{api: api, project: project, timeout: timeout}, nil
}

// Ping validates connectivity to the Docker daemon.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errors.New("docker client is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.api.Ping(ctx)
	return err
}

// ListRunning returns the set of service names whose containers are running,
// selected by the project label.
func (c *Client) ListRunning(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	containers, err := c.api.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(
			filters.Arg("label", LabelProject+"="+c.project),
			filters.Arg("status", "running"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	running := make(map[string]struct{}, len(containers))
	for _, item := range containers {
		service := item.Labels[LabelService]
		if service == "" {
			continue
		}
		running[service] = struct{}{}
	}
	return running, nil
}

// Exec runs a command inside the named service's running container and
// returns its exit code. env entries are passed verbatim and never logged.
func (c *Client) Exec(ctx context.Context, service string, cmd []string, env []string) (int, error) {
	containerID, err := c.findRunning(ctx, service)
	if err != nil {
		return -1, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	created, err := c.api.ContainerExecCreate(ctx, containerID, dockertypes.ExecConfig{
		Cmd:          cmd,
		Env:          env,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return -1, fmt.Errorf("create exec: %w", err)
	}

	attached, err := c.api.ContainerExecAttach(ctx, created.ID, dockertypes.ExecStartCheck{})
	if err != nil {
		return -1, fmt.Errorf("start exec: %w", err)
	}
	// Draining the stream is what waits for the command to finish.
	_, _ = io.Copy(io.Discard, attached.Reader)
	attached.Close()

	inspected, err := c.api.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return -1, fmt.Errorf("inspect exec: %w", err)
	}
	if inspected.Running {
		return -1, errors.New("exec still running after stream closed")
	}
	return inspected.ExitCode, nil
}

func (c *Client) findRunning(ctx context.Context, service string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	containers, err := c.api.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(
			filters.Arg("label", LabelProject+"="+c.project),
			filters.Arg("label", LabelService+"="+service),
			filters.Arg("status", "running"),
		),
	})
	if err != nil {
		return "", fmt.Errorf("list containers: %w", err)
	}
	if len(containers) == 0 {
		return "", fmt.Errorf("no running container for service %q", service)
	}
	return containers[0].ID, nil
}

// Close releases resources associated with the client.
func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	return c.api.Close()
}
