package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Probe types accepted in a stack file.
const (
	ProbeTCP  = "tcp"
	ProbeHTTP = "http"
	ProbeExec = "exec"
)

const (
	defaultReadyTimeout      = 2 * time.Minute
	defaultProbeInterval     = 5 * time.Second
	defaultSettleDelay       = 10 * time.Second
	defaultStackComposeFile  = "docker-compose.yml"
	defaultProbePasswordName = "PASSWORD"
)

// ProbeSpec describes how a service's liveness is checked.
type ProbeSpec struct {
	Type    string   `yaml:"type"`
	Address string   `yaml:"address,omitempty"`
	URL     string   `yaml:"url,omitempty"`
	Command []string `yaml:"command,omitempty"`
	// PasswordFile names a file whose trimmed content is handed to an exec
	// probe as the PasswordEnv environment variable. Exec probes only.
	PasswordFile string `yaml:"password_file,omitempty"`
	PasswordEnv  string `yaml:"password_env,omitempty"`
}

// ServiceSpec is one required service with its readiness budget.
// The database-like and broker-like services typically carry different
// budgets; the broker needs materially longer warm-up.
type ServiceSpec struct {
	Name         string        `yaml:"name"`
	ReadyTimeout time.Duration `yaml:"ready_timeout,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	Probe        ProbeSpec     `yaml:"probe"`
}

// StackFile is the parsed YAML structure describing one managed stack.
type StackFile struct {
	Project     string        `yaml:"project"`
	ComposeFile string        `yaml:"compose_file,omitempty"`
	SettleDelay time.Duration `yaml:"settle_delay,omitempty"`
	Services    []ServiceSpec `yaml:"services"`
}

// RequiredSet returns the names of all required services, in file order.
func (f StackFile) RequiredSet() []string {
	names := make([]string, 0, len(f.Services))
	for _, svc := range f.Services {
		names = append(names, svc.Name)
	}
	return names
}

// LoadStackFile parses and validates a stack file from the given path,
// applying defaults for omitted budgets.
func LoadStackFile(path string) (StackFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StackFile{}, fmt.Errorf("read stack file: %w", err)
	}

	var file StackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return StackFile{}, fmt.Errorf("parse stack file: %w", err)
	}

	applyStackDefaults(&file)

	if err := validateStackFile(file); err != nil {
		return StackFile{}, err
	}

	return file, nil
}

func applyStackDefaults(file *StackFile) {
	if file.ComposeFile == "" {
		file.ComposeFile = defaultStackComposeFile
	}
	if file.SettleDelay == 0 {
		file.SettleDelay = defaultSettleDelay
	}
	for i := range file.Services {
		svc := &file.Services[i]
		if svc.ReadyTimeout == 0 {
			svc.ReadyTimeout = defaultReadyTimeout
		}
		if svc.PollInterval == 0 {
			svc.PollInterval = defaultProbeInterval
		}
		if svc.Probe.Type == ProbeExec && svc.Probe.PasswordFile != "" && svc.Probe.PasswordEnv == "" {
			svc.Probe.PasswordEnv = defaultProbePasswordName
		}
	}
}

func validateStackFile(file StackFile) error {
	if file.Project == "" {
		return fmt.Errorf("stack file: project is required")
	}
	if len(file.Services) == 0 {
		return fmt.Errorf("stack file: at least one service is required")
	}
	if file.SettleDelay < 0 {
		return fmt.Errorf("stack file: settle_delay cannot be negative")
	}

	seen := make(map[string]bool)
	for i, svc := range file.Services {
		if svc.Name == "" {
			return fmt.Errorf("service %d: name is required", i)
		}
		if seen[svc.Name] {
			return fmt.Errorf("service %q: duplicate name", svc.Name)
		}
		seen[svc.Name] = true

		if svc.ReadyTimeout < 0 {
			return fmt.Errorf("service %q: ready_timeout cannot be negative", svc.Name)
		}
		if svc.PollInterval < 0 {
			return fmt.Errorf("service %q: poll_interval cannot be negative", svc.Name)
		}

		if err := validateProbe(svc.Probe); err != nil {
			return fmt.Errorf("service %q: %w", svc.Name, err)
		}
	}

	return nil
}

func validateProbe(probe ProbeSpec) error {
	switch probe.Type {
	case ProbeTCP:
		if probe.Address == "" {
			return fmt.Errorf("tcp probe requires address")
		}
	case ProbeHTTP:
		if probe.URL == "" {
			return fmt.Errorf("http probe requires url")
		}
		if err := validateURL(probe.URL, "probe url"); err != nil {
			return err
		}
	case ProbeExec:
		if len(probe.Command) == 0 {
			return fmt.Errorf("exec probe requires command")
		}
	case "":
		return fmt.Errorf("probe type is required")
	default:
		return fmt.Errorf("unknown probe type %q", probe.Type)
	}
	return nil
}
