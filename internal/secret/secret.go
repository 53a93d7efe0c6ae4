package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider supplies a credential at call time. Values are handed directly to
// the consumer and must never be logged or embedded in status output.
type Provider interface {
	Lookup(ctx context.Context) (string, error)
}

// FileProvider reads a single credential from a file, trimming surrounding
// whitespace. The file is re-read on every lookup so rotations take effect
// without a restart.
type FileProvider struct {
	path string
}

// NewFileProvider returns a file-backed provider for the given path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Lookup implements Provider.
func (p *FileProvider) Lookup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}

	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("credential file %s is empty", p.path)
	}
	return value, nil
}

// Static is a fixed credential, used in tests.
type Static string

// Lookup implements Provider.
func (s Static) Lookup(context.Context) (string, error) {
	return string(s), nil
}
