// Package verify smoke-checks a deployed API by probing its movie
// listing endpoint until it answers correctly or the retry budget is
// exhausted. Freshly promoted deployments can take a few seconds before
// their edge routes settle, hence the retries.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AaronHausheer/liftoff/internal/model"
	"github.com/AaronHausheer/liftoff/internal/retry"
)

// maxBodyBytes bounds how much of a response is read when probing.
const maxBodyBytes = 1 << 20

// Checker probes a deployment's API endpoint.
type Checker struct {
	// Client is the HTTP client used for probes.
	Client *http.Client

	// Policy controls how failed probes are retried.
	Policy retry.Policy

	// Path is the API path probed on the deployment, e.g. /api/movies.
	Path string
}

// NewChecker returns a Checker with a 10s-per-request client.
func NewChecker(policy retry.Policy, path string) *Checker {
	return &Checker{
		Client: &http.Client{Timeout: 10 * time.Second},
		Policy: policy,
		Path:   path,
	}
}

// Report describes a successful verification.
type Report struct {
	// URL is the full endpoint that was probed.
	URL string `json:"url"`

	// Attempts is how many probes were needed, including the
	// successful one.
	Attempts int `json:"attempts"`

	// StatusCode is the HTTP status of the successful probe.
	StatusCode int `json:"statusCode"`

	// MovieCount is the number of items in the response's movies array.
	MovieCount int `json:"movieCount"`

	// Total is the collection size the API reports alongside the page.
	Total int `json:"total"`
}

// moviesResponse mirrors the endpoint's JSON envelope.
type moviesResponse struct {
	Movies []json.RawMessage `json:"movies"`
	Total  *int              `json:"total"`
}

// Check probes baseURL+Path until it returns HTTP 200 with a movies
// array, retrying per the policy. On exhaustion it returns a CLIError
// with ExitVerifyFailed wrapping the last probe error.
func (c *Checker) Check(ctx context.Context, baseURL string) (*Report, error) {
	url := strings.TrimSuffix(baseURL, "/") + c.Path

	var lastErr error
	for attempt := 0; attempt <= c.Policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.Policy.Sleep(ctx, attempt); err != nil {
				return nil, err
			}
		}

		report, err := c.probe(ctx, url)
		if err == nil {
			report.Attempts = attempt + 1
			return report, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, model.WrapCLIError(
		model.ExitVerifyFailed,
		fmt.Sprintf("verification of %s failed after %d attempts", url, c.Policy.MaxRetries+1),
		lastErr,
	)
}

func (c *Checker) probe(ctx context.Context, url string) (*Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload moviesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if payload.Movies == nil {
		return nil, fmt.Errorf("response has no movies array")
	}

	total := len(payload.Movies)
	if payload.Total != nil {
		total = *payload.Total
	}

	return &Report{
		URL:        url,
		StatusCode: resp.StatusCode,
		MovieCount: len(payload.Movies),
		Total:      total,
	}, nil
}
