package compose

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
)

// PortBinding is one published port of a desired service.
type PortBinding struct {
	HostIP    string
	Published string
	Target    uint32
	Protocol  string
}

// DesiredService captures the fields the deployment driver needs to run a
// service.
type DesiredService struct {
	Image   string
	Command []string
	Env     []string
	Ports   []PortBinding
	Restart string
}

// DesiredState represents the normalized desired state from a compose file.
type DesiredState struct {
	Services map[string]DesiredService
}

// Names returns the sorted service names of the desired state.
func (s DesiredState) Names() []string {
	names := make([]string, 0, len(s.Services))
	for name := range s.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseDesiredState parses compose content into a normalized desired state
// model under the given project name.
func ParseDesiredState(ctx context.Context, body []byte, projectName string) (DesiredState, error) {
	if len(body) == 0 {
		return DesiredState{}, errors.New("compose body is empty")
	}
	if projectName == "" {
		return DesiredState{}, errors.New("project name is required")
	}

	details := types.ConfigDetails{
		WorkingDir: ".",
		ConfigFiles: []types.ConfigFile{
			{
				Filename: "compose.yml",
				Content:  body,
			},
		},
		Environment: types.Mapping{},
	}

	project, err := loader.LoadWithContext(ctx, details, func(opts *loader.Options) {
		opts.SetProjectName(projectName, false)
	})
	if err != nil {
		return DesiredState{}, fmt.Errorf("load compose: %w", err)
	}
	if len(project.Services) == 0 {
		return DesiredState{}, errors.New("compose has no services")
	}

	state := DesiredState{
		Services: make(map[string]DesiredService, len(project.Services)),
	}

	for name, service := range project.Services {
		if service.Image == "" {
			return DesiredState{}, fmt.Errorf("service %q missing image", name)
		}

		state.Services[name] = DesiredService{
			Image:   service.Image,
			Command: append([]string(nil), service.Command...),
			Env:     flattenEnvironment(service.Environment),
			Ports:   collectPorts(service.Ports),
			Restart: service.Restart,
		}
	}

	return state, nil
}

func flattenEnvironment(env types.MappingWithEquals) []string {
	if len(env) == 0 {
		return nil
	}
	pairs := make([]string, 0, len(env))
	for key, value := range env {
		if value == nil {
			continue
		}
		pairs = append(pairs, key+"="+*value)
	}
	sort.Strings(pairs)
	return pairs
}

func collectPorts(ports []types.ServicePortConfig) []PortBinding {
	if len(ports) == 0 {
		return nil
	}
	bindings := make([]PortBinding, 0, len(ports))
	for _, port := range ports {
		if port.Published == "" {
			continue
		}
		protocol := port.Protocol
		if protocol == "" {
			protocol = "tcp"
		}
		bindings = append(bindings, PortBinding{
			HostIP:    port.HostIP,
			Published: port.Published,
			Target:    port.Target,
			Protocol:  protocol,
		})
	}
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].Target < bindings[j].Target
	})
	return bindings
}
