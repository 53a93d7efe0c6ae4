package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envDockerHost      = "SR_DOCKER_HOST"
	envStatePath       = "SR_STATE_PATH"
	envPollInterval    = "SR_POLL_INTERVAL"
	envLogLevel        = "SR_LOG_LEVEL"
	envSlackWebhookURL = "SR_SLACK_WEBHOOK_URL"
	envWebhookURL      = "SR_WEBHOOK_URL"
	envHealthPort      = "SR_HEALTH_PORT"
	envMetricsPort     = "SR_METRICS_PORT"
)

const (
	defaultStatePath    = ".stackready/state.json"
	defaultPollInterval = 30 * time.Second
)

// Config describes runtime configuration loaded from the environment.
type Config struct {
	DockerHost      string
	StatePath       string
	PollInterval    time.Duration
	LogLevel        string
	SlackWebhookURL string
	WebhookURL      string
	HealthPort      int
	MetricsPort     int
}

// Load reads configuration from environment variables and a local .env file
// if present. Existing environment variables take precedence over .env.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		StatePath:    defaultStatePath,
		PollInterval: defaultPollInterval,
	}

	if value, ok := lookupTrimmed(envDockerHost); ok && value != "" {
		cfg.DockerHost = value
	}

	if value, ok := lookupTrimmed(envStatePath); ok && value != "" {
		cfg.StatePath = value
	}

	if value, ok := lookupTrimmed(envPollInterval); ok && value != "" {
		interval, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envPollInterval, err)
		}
		if interval <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than zero", envPollInterval)
		}
		cfg.PollInterval = interval
	}

	if value, ok := lookupTrimmed(envLogLevel); ok && value != "" {
		cfg.LogLevel = value
	}

	if value, ok := lookupTrimmed(envSlackWebhookURL); ok && value != "" {
		cfg.SlackWebhookURL = value
	}

	if value, ok := lookupTrimmed(envWebhookURL); ok && value != "" {
		cfg.WebhookURL = value
	}

	var err error
	if cfg.HealthPort, err = lookupPort(envHealthPort); err != nil {
		return Config{}, err
	}
	if cfg.MetricsPort, err = lookupPort(envMetricsPort); err != nil {
		return Config{}, err
	}

	if cfg.SlackWebhookURL != "" {
		if err := validateURL(cfg.SlackWebhookURL, envSlackWebhookURL); err != nil {
			return Config{}, err
		}
	}
	if cfg.WebhookURL != "" {
		if err := validateURL(cfg.WebhookURL, envWebhookURL); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func lookupPort(key string) (int, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return 0, nil
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("%s out of range: %d", key, port)
	}
	return port, nil
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
