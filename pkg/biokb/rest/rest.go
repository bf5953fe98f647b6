package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/exposome-labs/causeway/backend/internal/util"
	"github.com/exposome-labs/causeway/backend/pkg/biokb"
	"github.com/exposome-labs/causeway/backend/pkg/logger"
	"github.com/exposome-labs/causeway/backend/pkg/metrics"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Client implements biokb.Client against a REST knowledge-base API.
//
// Every outbound call is gated twice: a weighted semaphore caps concurrent
// in-flight calls, and a shared token bucket caps the total call rate across
// all requests in the process. Transient failures (network errors, 5xx) are
// retried with exponential backoff; a 404 means "not in the graph" and is
// reported as an empty result.
type Client struct {
	baseURL string
	apiKey  string

	httpClient *http.Client
	reqLock    *semaphore.Weighted
	limiter    *rate.Limiter

	maxAttempts  int
	retryBackoff time.Duration
}

// NewClientParams contains configuration for creating a REST client.
type NewClientParams struct {
	BaseURL string
	APIKey  string

	// CallTimeout bounds one attempt. Zero defaults to 10s.
	CallTimeout time.Duration
	// MaxAttempts is the per-call attempt budget. Zero defaults to 3.
	MaxAttempts int
	// RetryBackoff is the first retry delay, doubled per attempt.
	// Zero defaults to 1s.
	RetryBackoff time.Duration
	// MaxConcurrentCalls caps in-flight calls. Zero defaults to 5.
	MaxConcurrentCalls int64
	// CallsPerMinute caps the process-wide outbound rate. Zero defaults to 30.
	CallsPerMinute int
}

// NewClient creates a REST knowledge-base client.
func NewClient(params NewClientParams) *Client {
	timeout := params.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := params.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	concurrent := params.MaxConcurrentCalls
	if concurrent <= 0 {
		concurrent = 5
	}
	perMinute := params.CallsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}

	return &Client{
		baseURL:      params.BaseURL,
		apiKey:       params.APIKey,
		httpClient:   &http.Client{Timeout: timeout},
		reqLock:      semaphore.NewWeighted(concurrent),
		limiter:      rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		maxAttempts:  attempts,
		retryBackoff: backoff,
	}
}

type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

func retryable(err error) bool {
	if statusErr, ok := err.(*httpStatusError); ok {
		return statusErr.status >= 500 || statusErr.status == http.StatusTooManyRequests
	}
	// Network-level failures are transient by assumption.
	return true
}

// errTransient signals the retry helper that an attempt failed but the call
// may still succeed. The real cause is kept aside so the exhaustion error can
// name it instead of the sentinel.
var errTransient = errors.New("transient call failure")

// getJSON performs one rate-limited, retried GET and decodes the body into
// out. A 404 leaves out untouched and returns (false, nil).
func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) (bool, error) {
	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer c.reqLock.Release(1)

	var permErr, lastErr error
	found, err := util.RetryBackoffWithContext(ctx, c.maxAttempts, c.retryBackoff,
		func(ctx context.Context) (bool, error) {
			if err := c.limiter.Wait(ctx); err != nil {
				return false, err
			}

			found, err := c.doOnce(ctx, endpoint, query, out)
			if err == nil {
				return found, nil
			}
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if !retryable(err) {
				permErr = err
				return false, nil
			}

			lastErr = err
			logger.Debug("[BioKB] Retrying call", "endpoint", endpoint, "err", err)
			return false, errTransient
		})

	switch {
	case permErr != nil:
		metrics.OutboundCalls.WithLabelValues(endpoint, "error").Inc()
		return false, permErr
	case errors.Is(err, errTransient):
		metrics.OutboundCalls.WithLabelValues(endpoint, "error").Inc()
		return false, fmt.Errorf("call to %s exhausted %d attempts: %w", endpoint, c.maxAttempts, lastErr)
	case err != nil:
		metrics.OutboundCalls.WithLabelValues(endpoint, "error").Inc()
		return false, err
	}

	metrics.OutboundCalls.WithLabelValues(endpoint, "ok").Inc()
	return found, nil
}

func (c *Client) doOnce(ctx context.Context, endpoint string, query url.Values, out any) (bool, error) {
	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return false, nil
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return false, &httpStatusError{status: resp.StatusCode}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return true, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return true, nil
}

// FindPaths queries the path-search endpoint for up to limit causal paths
// from source to target within maxDepth nodes.
func (c *Client) FindPaths(ctx context.Context, source, target string, maxDepth, limit int) ([]biokb.Path, error) {
	query := url.Values{
		"source":    {source},
		"target":    {target},
		"max_depth": {strconv.Itoa(maxDepth)},
		"limit":     {strconv.Itoa(limit)},
	}

	var body struct {
		Paths []biokb.Path `json:"paths"`
	}
	found, err := c.getJSON(ctx, "/api/paths", query, &body)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return body.Paths, nil
}

// Neighbors queries the expansion endpoint for nodes adjacent to node.
func (c *Client) Neighbors(ctx context.Context, node string, direction biokb.Direction, hops int, minBelief float64) ([]biokb.Neighbor, error) {
	query := url.Values{
		"node":       {node},
		"direction":  {string(direction)},
		"hops":       {strconv.Itoa(hops)},
		"min_belief": {strconv.FormatFloat(minBelief, 'f', -1, 64)},
	}

	var body struct {
		Neighbors []biokb.Neighbor `json:"neighbors"`
	}
	found, err := c.getJSON(ctx, "/api/neighbors", query, &body)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return body.Neighbors, nil
}

// Autocomplete queries the grounding endpoint for canonical candidates.
// The API answers with [name, database, id] triples.
func (c *Client) Autocomplete(ctx context.Context, prefix string, limit int) ([]biokb.Match, error) {
	query := url.Values{
		"prefix": {prefix},
		"limit":  {strconv.Itoa(limit)},
	}

	var rows [][]string
	found, err := c.getJSON(ctx, "/api/autocomplete", query, &rows)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	matches := make([]biokb.Match, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		matches = append(matches, biokb.Match{Name: row[0], Database: row[1], ID: row[2]})
	}
	return matches, nil
}

// Health probes the API health endpoint.
func (c *Client) Health(ctx context.Context) error {
	found, err := c.getJSON(ctx, "/api/health", nil, nil)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("health endpoint not found")
	}
	return nil
}
