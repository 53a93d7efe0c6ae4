package docker

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

type fakeAPI struct {
	pingErr    error
	containers []dockertypes.Container
	listErr    error
	listCalls  []container.ListOptions

	createdNames   []string
	createdConfigs []*container.Config
	createdHosts   []*container.HostConfig
	createErr      error
	started        []string
	stopped        []string
	removed        []string

	execCmd     []string
	execEnv     []string
	execExit    int
	execRunning bool
	execErr     error

	pulled  []string
	pullErr error

	networkExists   bool
	networkCreated  bool
	networksRemoved []string

	closed bool
}

func (f *fakeAPI) Ping(context.Context) (dockertypes.Ping, error) {
	return dockertypes.Ping{}, f.pingErr
}

func (f *fakeAPI) ContainerList(_ context.Context, options container.ListOptions) ([]dockertypes.Container, error) {
	f.listCalls = append(f.listCalls, options)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.containers, nil
}

func (f *fakeAPI) ContainerCreate(_ context.Context, config *container.Config, hostConfig *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, containerName string) (container.CreateResponse, error) {
	if f.createErr != nil {
		return container.CreateResponse{}, f.createErr
	}
	f.createdNames = append(f.createdNames, containerName)
	f.createdConfigs = append(f.createdConfigs, config)
	f.createdHosts = append(f.createdHosts, hostConfig)
	return container.CreateResponse{ID: "id-" + containerName}, nil
}

func (f *fakeAPI) ContainerStart(_ context.Context, containerID string, _ container.StartOptions) error {
	f.started = append(f.started, containerID)
	return nil
}

func (f *fakeAPI) ContainerStop(_ context.Context, containerID string, _ container.StopOptions) error {
	f.stopped = append(f.stopped, containerID)
	return nil
}

func (f *fakeAPI) ContainerRemove(_ context.Context, containerID string, _ container.RemoveOptions) error {
	f.removed = append(f.removed, containerID)
	return nil
}

func (f *fakeAPI) ContainerExecCreate(_ context.Context, _ string, config dockertypes.ExecConfig) (dockertypes.IDResponse, error) {
	if f.execErr != nil {
		return dockertypes.IDResponse{}, f.execErr
	}
	f.execCmd = config.Cmd
	f.execEnv = config.Env
	return dockertypes.IDResponse{ID: "exec-1"}, nil
}

func (f *fakeAPI) ContainerExecAttach(context.Context, string, dockertypes.ExecStartCheck) (dockertypes.HijackedResponse, error) {
	client, server := net.Pipe()
	_ = server.Close()
	return dockertypes.HijackedResponse{
		Conn:   client,
		Reader: bufio.NewReader(strings.NewReader("")),
	}, nil
}

func (f *fakeAPI) ContainerExecInspect(context.Context, string) (dockertypes.ContainerExecInspect, error) {
	return dockertypes.ContainerExecInspect{ExitCode: f.execExit, Running: f.execRunning}, nil
}

func (f *fakeAPI) ImagePull(_ context.Context, refStr string, _ image.PullOptions) (io.ReadCloser, error) {
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	f.pulled = append(f.pulled, refStr)
	return io.NopCloser(strings.NewReader("{}")), nil
}

func (f *fakeAPI) NetworkCreate(context.Context, string, dockertypes.NetworkCreate) (dockertypes.NetworkCreateResponse, error) {
	f.networkCreated = true
	return dockertypes.NetworkCreateResponse{ID: "net-1"}, nil
}

func (f *fakeAPI) NetworkInspect(context.Context, string, dockertypes.NetworkInspectOptions) (dockertypes.NetworkResource, error) {
	if f.networkExists || f.networkCreated {
		return dockertypes.NetworkResource{ID: "net-1"}, nil
	}
	return dockertypes.NetworkResource{}, errors.New("not found")
}

func (f *fakeAPI) NetworkRemove(_ context.Context, networkID string) error {
	f.networksRemoved = append(f.networksRemoved, networkID)
	return nil
}

func (f *fakeAPI) Close() error {
	f.closed = true
	return nil
}

func newTestClient(api dockerAPI) *Client {
	return &Client{api: api, project: "ci-infra", timeout: time.Second}
}

func TestClient_ListRunning(t *testing.T) {
	api := &fakeAPI{
		containers: []dockertypes.Container{
			{ID: "a", Labels: map[string]string{LabelProject: "ci-infra", LabelService: "mysql"}},
			{ID: "b", Labels: map[string]string{LabelProject: "ci-infra", LabelService: "kafka"}},
			{ID: "c", Labels: map[string]string{"unrelated": "x"}},
		},
	}

	running, err := newTestClient(api).ListRunning(context.Background())
	if err != nil {
		t.Fatalf("ListRunning() error: %v", err)
	}

	if len(running) != 2 {
		t.Fatalf("running = %v, want 2 services", running)
	}
	for _, name := range []string{"mysql", "kafka"} {
		if _, ok := running[name]; !ok {
			t.Errorf("missing service %q", name)
		}
	}

	if len(api.listCalls) != 1 {
		t.Fatalf("expected one list call, got %d", len(api.listCalls))
	}
	filterArgs := api.listCalls[0].Filters
	if got := filterArgs.Get("label"); len(got) != 1 || got[0] != LabelProject+"=ci-infra" {
		t.Errorf("label filter = %v", got)
	}
	if got := filterArgs.Get("status"); len(got) != 1 || got[0] != "running" {
		t.Errorf("status filter = %v", got)
	}
}

func TestClient_ListRunning_PropagatesError(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("daemon unreachable")}

	if _, err := newTestClient(api).ListRunning(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestClient_Exec(t *testing.T) {
	api := &fakeAPI{
		containers: []dockertypes.Container{
			{ID: "c1", Labels: map[string]string{LabelProject: "ci-infra", LabelService: "mysql"}},
		},
		execExit: 0,
	}

	code, err := newTestClient(api).Exec(context.Background(), "mysql",
		[]string{"mysqladmin", "ping"}, []string{"MYSQL_PWD=secret"})
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if len(api.execCmd) != 2 || api.execCmd[0] != "mysqladmin" {
		t.Errorf("exec cmd = %v", api.execCmd)
	}
	if len(api.execEnv) != 1 || api.execEnv[0] != "MYSQL_PWD=secret" {
		t.Errorf("exec env = %v", api.execEnv)
	}
}

func TestClient_Exec_NoRunningContainer(t *testing.T) {
	api := &fakeAPI{}

	if _, err := newTestClient(api).Exec(context.Background(), "mysql", []string{"true"}, nil); err == nil {
		t.Fatal("expected error when no container is running")
	}
}

func TestClient_Exec_NonZeroExit(t *testing.T) {
	api := &fakeAPI{
		containers: []dockertypes.Container{
			{ID: "c1", Labels: map[string]string{LabelProject: "ci-infra", LabelService: "mysql"}},
		},
		execExit: 1,
	}

	code, err := newTestClient(api).Exec(context.Background(), "mysql", []string{"false"}, nil)
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestClient_PingAndClose(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(api)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !api.closed {
		t.Fatal("Close() did not reach the API")
	}

	api.pingErr = errors.New("down")
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestNewClient_RequiresProject(t *testing.T) {
	if _, err := NewClient("", "", time.Second); err == nil {
		t.Fatal("expected error for empty project")
	}
}
