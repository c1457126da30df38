// Package scorer provides a client for the remote gaze attention scoring
// service. The scorer is best-effort: calls are retried with backoff and
// guarded by a circuit breaker so a flaky remote never stalls the pipeline.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gazekit/platform/internal/errors"
	"github.com/gazekit/platform/internal/gaze"
	"github.com/gazekit/platform/internal/resilience"
	"github.com/gazekit/platform/internal/trace"
)

const (
	predictPath    = "/api/predict"
	requestTimeout = 30 * time.Second

	// maxResponseBytes bounds how much of a scorer response is read.
	maxResponseBytes = 1 << 20
)

// Analysis mirrors the remote service's per-trace statistics.
type Analysis struct {
	TotalPoints     int     `json:"total_points"`
	DurationSeconds float64 `json:"duration_seconds"`
	AverageMovement float64 `json:"average_movement"`
	TotalMovement   float64 `json:"total_movement"`
	StabilityScore  float64 `json:"stability_score"`
	CoverageArea    float64 `json:"coverage_area"`
}

// Result is the remote scorer's verdict for one trace.
type Result struct {
	Score    int      `json:"score"`
	Analysis Analysis `json:"analysis"`
	Message  string   `json:"message"`
	Error    string   `json:"error,omitempty"`
}

// envelope is the scorer's request/response wrapper: a single CSV string in,
// a single JSON-encoded result string out.
type envelope struct {
	Data []string `json:"data"`
}

// Client calls the remote scorer over HTTP.
type Client struct {
	base    string
	http    *http.Client
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

// New creates a scorer client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		base:    baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		retry:   resilience.ScorerRetryConfig(),
		breaker: resilience.New(resilience.ScorerConfig()),
	}
}

// Score submits a trace and returns the remote verdict.
func (c *Client) Score(ctx context.Context, t gaze.Trace) (*Result, error) {
	var buf bytes.Buffer
	if err := gaze.WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	csvData := buf.String()

	return resilience.ExecuteWithResult(c.breaker, func() (*Result, error) {
		var result *Result
		err := resilience.Retry(ctx, c.retry, func() error {
			var callErr error
			result, callErr = c.predict(ctx, csvData)
			return callErr
		})
		return result, err
	})
}

func (c *Client) predict(ctx context.Context, csvData string) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, "scorer_predict")
	defer span.End()

	body, err := json.Marshal(envelope{Data: []string{csvData}})
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "encoding scorer request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+predictPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "building scorer request")
	}
	req.Header.Set("Content-Type", "application/json")
	if tc, ok := trace.FromContext(ctx); ok {
		for k, v := range tc.ToMap() {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ScorerUnavailable, "scorer request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp.StatusCode); err != nil {
		span.SetAttr("status", resp.StatusCode)
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, errors.ScorerUnavailable, "reading scorer response")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "decoding scorer envelope")
	}
	if len(env.Data) == 0 {
		return nil, errors.New(errors.Internal, "scorer returned empty data")
	}

	var result Result
	if err := json.Unmarshal([]byte(env.Data[0]), &result); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "decoding scorer result")
	}
	if result.Error != "" {
		return nil, errors.Newf(errors.InvalidTrace, "scorer rejected trace: %s", result.Error)
	}

	span.SetAttr("score", result.Score)
	return &result, nil
}

// classifyStatus maps HTTP status codes onto structured errors so the retry
// layer can distinguish transient failures from permanent ones.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return errors.New(errors.RateLimited, "scorer rate limit exceeded")
	case status >= 500:
		return errors.Newf(errors.ScorerUnavailable, "scorer returned %d", status)
	case status >= 400:
		return errors.Newf(errors.InvalidArgument, "scorer rejected request with %d", status)
	default:
		return errors.Newf(errors.Internal, "unexpected scorer status %d", status)
	}
}
