package docker

import (
	"context"
	"fmt"
	"io"
	"sort"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog"

	"github.com/stackready/stackready/internal/compose"
)

// Driver brings the project's declared services up or down. Both operations
// are idempotent: Up replaces whatever is there, Down tolerates an absent
// deployment.
type Driver struct {
	api     dockerAPI
	project string
	logger  zerolog.Logger
}

// NewDriver builds a Driver sharing the given client's connection.
func NewDriver(client *Client, logger zerolog.Logger) *Driver {
	return &Driver{
		api:     client.api,
		project: client.project,
		logger:  logger,
	}
}

// Up creates and starts a container for every service in the desired state.
// Existing containers for the same services are replaced.
func (d *Driver) Up(ctx context.Context, desired compose.DesiredState) error {
	networkName, err := d.ensureNetwork(ctx)
	if err != nil {
		return err
	}

	for _, name := range desired.Names() {
		service := desired.Services[name]
		if err := d.upService(ctx, networkName, name, service); err != nil {
			return fmt.Errorf("service %q: %w", name, err)
		}
		d.logger.Info().Str("service", name).Str("image", service.Image).Msg("service started")
	}
	return nil
}

// Down stops and removes every container the driver created for this
// project, then the project network. An absent deployment is not an error.
func (d *Driver) Down(ctx context.Context) error {
	containers, err := d.api.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", LabelProject+"="+d.project),
		),
	})
	if err != nil {
		return fmt.Errorf("list containers: %w", err)
	}

	for _, item := range containers {
		if err := d.api.ContainerStop(ctx, item.ID, container.StopOptions{}); err != nil {
			d.logger.Debug().Err(err).Str("container", item.ID).Msg("stop failed, removing anyway")
		}
		if err := d.api.ContainerRemove(ctx, item.ID, container.RemoveOptions{Force: true}); err != nil {
			return fmt.Errorf("remove container %s: %w", item.ID, err)
		}
	}

	if err := d.api.NetworkRemove(ctx, NetworkName(d.project)); err != nil {
		d.logger.Debug().Err(err).Msg("network remove skipped")
	}

	d.logger.Info().Int("containers", len(containers)).Msg("teardown complete")
	return nil
}

func (d *Driver) upService(ctx context.Context, networkName, name string, service compose.DesiredService) error {
	d.pullImage(ctx, service.Image)

	if err := d.removeExisting(ctx, name); err != nil {
		return err
	}

	exposed, bindings, err := portBindings(service.Ports)
	if err != nil {
		return err
	}

	config := &container.Config{
		Image:        service.Image,
		Cmd:          service.Command,
		Env:          service.Env,
		ExposedPorts: exposed,
		Labels: map[string]string{
			LabelProject: d.project,
			LabelService: name,
		},
	}
	hostConfig := &container.HostConfig{
		PortBindings: bindings,
	}
	if service.Restart != "" {
		hostConfig.RestartPolicy = container.RestartPolicy{
			Name: container.RestartPolicyMode(service.Restart),
		}
	}
	networking := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			networkName: {},
		},
	}

	created, err := d.api.ContainerCreate(ctx, config, hostConfig, networking, nil, ContainerName(d.project, name))
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	if err := d.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container: %w", err)
	}
	return nil
}

// pullImage is best-effort: a pull failure with the image already present
// locally should not block the deploy, and a truly missing image surfaces as
// a create error right after.
func (d *Driver) pullImage(ctx context.Context, ref string) {
	reader, err := d.api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		d.logger.Warn().Err(err).Str("image", ref).Msg("image pull failed")
		return
	}
	defer reader.Close()
	_, _ = io.Copy(io.Discard, reader)
}

func (d *Driver) removeExisting(ctx context.Context, service string) error {
	containers, err := d.api.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", LabelProject+"="+d.project),
			filters.Arg("label", LabelService+"="+service),
		),
	})
	if err != nil {
		return fmt.Errorf("list containers: %w", err)
	}

	for _, item := range containers {
		if err := d.api.ContainerStop(ctx, item.ID, container.StopOptions{}); err != nil {
			d.logger.Debug().Err(err).Str("container", item.ID).Msg("stop failed, removing anyway")
		}
		if err := d.api.ContainerRemove(ctx, item.ID, container.RemoveOptions{Force: true}); err != nil {
			return fmt.Errorf("remove stale container %s: %w", item.ID, err)
		}
	}
	return nil
}

// ensureNetwork creates the project network if it does not exist. Creation
// races with concurrent creators are resolved by re-inspecting.
func (d *Driver) ensureNetwork(ctx context.Context) (string, error) {
	name := NetworkName(d.project)

	if _, err := d.api.NetworkInspect(ctx, name, dockertypes.NetworkInspectOptions{}); err == nil {
		return name, nil
	}

	_, err := d.api.NetworkCreate(ctx, name, dockertypes.NetworkCreate{
		Driver: "bridge",
		Labels: map[string]string{LabelProject: d.project},
	})
	if err != nil {
		if _, inspectErr := d.api.NetworkInspect(ctx, name, dockertypes.NetworkInspectOptions{}); inspectErr == nil {
			return name, nil
		}
		return "", fmt.Errorf("create network %q: %w", name, err)
	}
	return name, nil
}

func portBindings(ports []compose.PortBinding) (nat.PortSet, nat.PortMap, error) {
	if len(ports) == 0 {
		return nil, nil, nil
	}

	exposed := make(nat.PortSet, len(ports))
	bindings := make(nat.PortMap, len(ports))
	for _, binding := range ports {
		port, err := nat.NewPort(binding.Protocol, fmt.Sprintf("%d", binding.Target))
		if err != nil {
			return nil, nil, fmt.Errorf("port %d/%s: %w", binding.Target, binding.Protocol, err)
		}
		exposed[port] = struct{}{}
		bindings[port] = append(bindings[port], nat.PortBinding{
			HostIP:   binding.HostIP,
			HostPort: binding.Published,
		})
	}

	// Deterministic binding order for tests and logs.
	for port := range bindings {
		sort.Slice(bindings[port], func(i, j int) bool {
			return bindings[port][i].HostPort < bindings[port][j].HostPort
		})
	}
	return exposed, bindings, nil
}
