// internal/backend/client.go
//
// Typed HTTP client for the PHP directory API.
//
// Context
// -------
// Every directory record (categories, listings, businesses, users, reviews)
// lives behind the PHP backend.  This client is the only code that knows its
// URLs, parameter conventions, and envelope shapes for auth calls.  Read
// endpoints hand back raw bodies because their shapes are not contractually
// fixed; the catalog and listing packages own the tolerant decoding.
//
// Workflow
// --------
//  1. A shared resty client carries base URL, timeout, retry policy, and
//     User-Agent.
//  2. Each call waits on the rate limiter, attaches the caller's context,
//     and records outcome and latency in Prometheus.
//  3. Non-2xx responses surface as *StatusError so callers can decide
//     whether absence and failure should look the same.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/yanizio/bizdir/internal/config"
	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/metrics"
)

// Endpoint paths relative to backend.base_url.
const (
	PathCategories        = "/api/main-search.php"
	PathListings          = "/api/users/main-search-display-request.php"
	PathListingsForWeb    = "/api/users/main-search-display-request-for-web.php"
	PathBusiness          = "/api/users/get-business.php"
	PathLogin             = "/api/login.php"
	PathRegister          = "/api/register.php"
	PathSubmitReview      = "/api/users/submit_review.php"
	outcomeOK             = "ok"
	outcomeHTTPError      = "http_error"
	outcomeTransportError = "transport_error"
	outcomeCanceled       = "canceled"
)

// StatusError reports a non-2xx backend answer.
type StatusError struct {
	Endpoint string
	Code     int
	Body     []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s: HTTP %d", e.Endpoint, e.Code)
}

// IsStatus reports whether err is a *StatusError.
func IsStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// Client is safe for concurrent use.  Construct with New.
type Client struct {
	http *resty.Client
	rl   ratelimit.Limiter
}

// New builds the client from the backend config section.
func New(cfg config.Backend) *Client {
	hc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(250*time.Millisecond).
		SetHeader("Accept", "application/json").
		SetLogger(zap.S())
	if cfg.UserAgent != "" {
		hc.SetHeader("User-Agent", cfg.UserAgent)
	}

	rl := ratelimit.NewUnlimited()
	if cfg.RequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.RequestsPerSecond)
	}

	return &Client{http: hc, rl: rl}
}

// Close releases idle connections.
func (c *Client) Close() error { return c.http.Close() }

/*──────────────────────────── read endpoints ──────────────────────────────*/

// Categories fetches the raw category tree.
func (c *Client) Categories(ctx context.Context) ([]byte, error) {
	return c.do(ctx, PathCategories, c.http.R().SetContext(ctx), getMethod)
}

// Listings POSTs exactly one filter parameter to path (PathListings or
// PathListingsForWeb) and returns the raw body.
func (c *Client) Listings(ctx context.Context, path, key, value string) ([]byte, error) {
	req := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{key: value})
	return c.do(ctx, path, req, postMethod)
}

// Business fetches a single record by id.
func (c *Client) Business(ctx context.Context, id string) ([]byte, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("id", id)
	return c.do(ctx, PathBusiness, req, getMethod)
}

/*──────────────────────────── plumbing ────────────────────────────────────*/

type method int

const (
	getMethod method = iota
	postMethod
)

// wait takes a limiter slot, giving up when ctx ends first.  An abandoned
// Take still completes in the background and spends its slot.
func (c *Client) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		c.rl.Take()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// exec runs req against path, waits on the limiter, and records metrics.
// Transport failures come back as errors; any HTTP status is a response.
func (c *Client) exec(ctx context.Context, path string, req *resty.Request, m method) (*resty.Response, error) {
	if err := c.wait(ctx); err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(path, outcomeCanceled).Inc()
		return nil, fmt.Errorf("backend %s: %w", path, err)
	}

	start := time.Now()
	var (
		resp *resty.Response
		err  error
	)
	switch m {
	case postMethod:
		resp, err = req.Post(path)
	default:
		resp, err = req.Get(path)
	}
	metrics.BackendRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(path, outcomeTransportError).Inc()
		logger.FromContext(ctx).Warn("backend request failed",
			zap.String("endpoint", path), zap.Error(err))
		return nil, fmt.Errorf("backend %s: %w", path, err)
	}

	outcome := outcomeOK
	if !resp.IsSuccess() {
		outcome = outcomeHTTPError
	}
	metrics.BackendRequestsTotal.WithLabelValues(path, outcome).Inc()
	logger.FromContext(ctx).Debug("backend request",
		zap.String("endpoint", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("took", time.Since(start)))
	return resp, nil
}

// do is exec plus status mapping: the body for 2xx answers, *StatusError
// (body attached) otherwise.
func (c *Client) do(ctx context.Context, path string, req *resty.Request, m method) ([]byte, error) {
	resp, err := c.exec(ctx, path, req, m)
	if err != nil {
		return nil, err
	}
	body := resp.Bytes()
	if !resp.IsSuccess() {
		logger.FromContext(ctx).Warn("backend non-success status",
			zap.String("endpoint", path), zap.Int("status", resp.StatusCode()))
		return nil, &StatusError{Endpoint: path, Code: resp.StatusCode(), Body: body}
	}
	return body, nil
}
