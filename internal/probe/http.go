package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPProbe reports healthy when a GET to the URL returns a 2xx status.
// Retries are owned by the reconciler's polling loop, not the probe.
type HTTPProbe struct {
	url    string
	client *retryablehttp.Client
}

// NewHTTPProbe returns an HTTP GET probe for the given URL.
func NewHTTPProbe(url string) *HTTPProbe {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.CheckRetry = func(_ context.Context, _ *http.Response, _ error) (bool, error) {
		return false, nil
	}
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}

	return &HTTPProbe{url: url, client: client}
}

// Check implements HealthProbe.
func (p *HTTPProbe) Check(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", p.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("get %s: unexpected status %s", p.url, resp.Status)
	}
	return nil
}
