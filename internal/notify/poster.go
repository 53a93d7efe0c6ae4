package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const posterBodyLimit = 1024

// posterTiming bundles the delivery pacing knobs so tests can tighten them.
type posterTiming struct {
	requestTimeout time.Duration
	rateInterval   time.Duration
	rateBurst      int
	backoffInitial time.Duration
	backoffMax     time.Duration
	maxElapsed     time.Duration
}

var defaultPosterTiming = posterTiming{
	requestTimeout: 10 * time.Second,
	rateInterval:   time.Second,
	rateBurst:      1,
	backoffInitial: time.Second,
	backoffMax:     10 * time.Second,
	maxElapsed:     30 * time.Second,
}

// poster delivers JSON payloads to a single webhook endpoint with rate
// limiting, retries on transient failures, and Retry-After handling.
type poster struct {
	name    string
	url     string
	client  *retryablehttp.Client
	limiter *rate.Limiter
	timing  posterTiming
}

func newPoster(name, url string, timing posterTiming) *poster {
	// Retries are driven by the backoff loop below so the underlying
	// client never retries on its own.
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.CheckRetry = func(_ context.Context, _ *http.Response, _ error) (bool, error) {
		return false, nil
	}
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: timing.requestTimeout}

	return &poster{
		name:    name,
		url:     url,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(timing.rateInterval), timing.rateBurst),
		timing:  timing,
	}
}

// post delivers one payload, waiting for the rate limiter first.
func (p *poster) post(ctx context.Context, payload []byte) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.timing.backoffInitial
	policy.MaxInterval = p.timing.backoffMax
	policy.MaxElapsedTime = p.timing.maxElapsed

	return backoff.Retry(func() error {
		return p.postOnce(ctx, payload)
	}, backoff.WithContext(policy, ctx))
}

func (p *poster) postOnce(ctx context.Context, payload []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.timing.requestTimeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(reqCtx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build %s request: %w", p.name, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, posterBodyLimit))
	bodyText := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		if wait, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			sleepContext(ctx, wait)
		}
		return fmt.Errorf("%s rate limited: %s", p.name, resp.Status)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%s server error: %s", p.name, resp.Status)
	}

	if bodyText != "" {
		return backoff.Permanent(fmt.Errorf("%s request failed: %s (%s)", p.name, resp.Status, bodyText))
	}
	return backoff.Permanent(fmt.Errorf("%s request failed: %s", p.name, resp.Status))
}

func parseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if wait := time.Until(when); wait > 0 {
			return wait, true
		}
	}
	return 0, false
}

func sleepContext(ctx context.Context, wait time.Duration) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
