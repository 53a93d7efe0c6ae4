package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		envDockerHost, envStatePath, envPollInterval, envLogLevel,
		envSlackWebhookURL, envWebhookURL, envHealthPort, envMetricsPort,
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.PollInterval != defaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, defaultPollInterval)
	}
	if cfg.StatePath != defaultStatePath {
		t.Errorf("StatePath = %q, want %q", cfg.StatePath, defaultStatePath)
	}
	if cfg.HealthPort != 0 || cfg.MetricsPort != 0 {
		t.Errorf("ports should default to disabled, got %d/%d", cfg.HealthPort, cfg.MetricsPort)
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(envDockerHost, "tcp://docker-proxy:2375")
	t.Setenv(envStatePath, "/var/lib/stackready/state.json")
	t.Setenv(envPollInterval, "45s")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envSlackWebhookURL, "https://hooks.slack.com/services/T/B/X")
	t.Setenv(envHealthPort, "8080")
	t.Setenv(envMetricsPort, "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DockerHost != "tcp://docker-proxy:2375" {
		t.Errorf("DockerHost = %q", cfg.DockerHost)
	}
	if cfg.StatePath != "/var/lib/stackready/state.json" {
		t.Errorf("StatePath = %q", cfg.StatePath)
	}
	if cfg.PollInterval != 45*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.HealthPort != 8080 || cfg.MetricsPort != 9090 {
		t.Errorf("ports = %d/%d", cfg.HealthPort, cfg.MetricsPort)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad_interval", envPollInterval, "soon", "SR_POLL_INTERVAL"},
		{"zero_interval", envPollInterval, "0s", "greater than zero"},
		{"bad_port", envHealthPort, "http", "SR_HEALTH_PORT"},
		{"port_out_of_range", envMetricsPort, "70000", "out of range"},
		{"webhook_missing_scheme", envWebhookURL, "hooks.example.com/x", "scheme and host"},
		{"slack_not_a_url", envSlackWebhookURL, "://bad", "SR_SLACK_WEBHOOK_URL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_TrimsWhitespace(t *testing.T) {
	clearEnv(t)
	t.Setenv(envDockerHost, "  tcp://localhost:2375  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DockerHost != "tcp://localhost:2375" {
		t.Errorf("DockerHost = %q, want trimmed value", cfg.DockerHost)
	}
}
