package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/geomine/poisync/pkg/monitoring"
	"github.com/geomine/poisync/pkg/tracing"
)

const (
	// DefaultBaseURL is the public Overpass API interpreter endpoint.
	DefaultBaseURL = "https://overpass-api.de/api/interpreter"

	// DefaultUserAgent identifies this client to the Overpass service,
	// as required by its usage policy.
	DefaultUserAgent = "poisync/0.1.0"
)

// Client executes Overpass queries as single synchronous exchanges. It
// performs no internal retry and no caching; a rate limiter enforces
// the politeness contract with the remote service.
type Client struct {
	endpoint  string
	userAgent string
	httpc     *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewClient creates a client for the given interpreter endpoint. An
// empty endpoint selects the public Overpass instance.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultBaseURL
	}
	return &Client{
		endpoint:  endpoint,
		userAgent: DefaultUserAgent,
		httpc: &http.Client{
			Timeout: 180 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		logger:  slog.Default().With("component", "overpass"),
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// SetUserAgent overrides the User-Agent header sent with each request.
func (c *Client) SetUserAgent(ua string) {
	if ua != "" {
		c.userAgent = ua
	}
}

// SetRateLimit updates the request rate limit.
func (c *Client) SetRateLimit(rps float64, burst int) {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Fetch executes one query against the endpoint and returns the raw
// element graph. A non-success status or network failure yields an
// ErrNetwork/ErrStatus QueryError; a body that cannot be decoded yields
// an ErrDecode QueryError.
func (c *Client) Fetch(ctx context.Context, query string) ([]Element, error) {
	ctx, span := tracing.StartSpan(ctx, "overpass.fetch",
		trace.WithAttributes(
			attribute.String(tracing.AttrServiceURL, c.endpoint),
			attribute.Int("overpass.query_bytes", len(query)),
		),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &QueryError{Code: ErrNetwork, Message: "rate limit wait interrupted", Err: err}
	}

	form := url.Values{"data": []string{query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &QueryError{Code: ErrNetwork, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	monitoring.OverpassRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		monitoring.OverpassRequestsTotal.WithLabelValues(monitoring.StatusError).Inc()
		tracing.RecordError(ctx, err)
		tracing.SetStatus(ctx, codes.Error, "request failed")
		c.logger.Error("overpass request failed", "error", err)
		return nil, &QueryError{Code: ErrNetwork, Message: "overpass request failed", Err: err}
	}
	defer resp.Body.Close()

	tracing.SetAttributes(ctx, attribute.Int(tracing.AttrHTTPStatusCode, resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		monitoring.OverpassRequestsTotal.WithLabelValues(monitoring.StatusError).Inc()
		tracing.SetStatus(ctx, codes.Error, "unexpected status")
		c.logger.Error("overpass returned error status", "status", resp.StatusCode)
		return nil, &QueryError{
			Code:    ErrStatus,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("overpass returned status %d", resp.StatusCode),
		}
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		monitoring.OverpassRequestsTotal.WithLabelValues(monitoring.StatusError).Inc()
		tracing.RecordError(ctx, err)
		tracing.SetStatus(ctx, codes.Error, "decode failed")
		c.logger.Error("failed to decode overpass response", "error", err)
		return nil, &QueryError{Code: ErrDecode, Message: "malformed overpass response", Err: err}
	}

	monitoring.OverpassRequestsTotal.WithLabelValues(monitoring.StatusSuccess).Inc()
	monitoring.ElementsFetched.Add(float64(len(body.Elements)))
	tracing.SetAttributes(ctx, attribute.Int("overpass.elements", len(body.Elements)))
	tracing.SetStatus(ctx, codes.Ok, "")
	c.logger.Debug("overpass fetch complete",
		"elements", len(body.Elements),
		"duration", time.Since(start),
	)
	return body.Elements, nil
}
