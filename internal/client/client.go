package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"go-fetch-cache/internal/interfaces"
	"go-fetch-cache/internal/metrics"
	"go-fetch-cache/internal/models"
)

// Ensure Client implements interfaces.HTTPClient
var _ interfaces.HTTPClient = (*Client)(nil)

// drainLimit caps how much of a rejected response body is read before the
// connection is released
const drainLimit = 64 << 10

// Client executes RequestConfigurations over HTTPS. It does no caching and
// no retries.
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a Client. A nil httpClient selects http.DefaultClient.
func NewClient(httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		http:   httpClient,
		logger: logger,
	}
}

// BuildURL combines domain, path and query parameters into an https URL
func BuildURL(cfg models.RequestConfiguration) (*url.URL, error) {
	if cfg.Domain == "" {
		return nil, models.NewInvalidURLError()
	}

	host, err := url.Parse("https://" + cfg.Domain)
	if err != nil || host.Host != cfg.Domain || host.User != nil {
		return nil, models.NewInvalidURLError()
	}

	if cfg.Path != "" && cfg.Path[0] != '/' {
		return nil, models.NewInvalidURLError()
	}

	u := &url.URL{
		Scheme: "https",
		Host:   cfg.Domain,
		Path:   cfg.Path,
	}
	if len(cfg.QueryParameters) > 0 {
		query := url.Values{}
		for k, v := range cfg.QueryParameters {
			query.Set(k, v)
		}
		u.RawQuery = query.Encode()
	}
	return u, nil
}

// Execute performs the request and returns the body of a 2xx response
func (c *Client) Execute(ctx context.Context, cfg models.RequestConfiguration) ([]byte, error) {
	method := string(cfg.Method)
	if method == "" {
		method = string(models.MethodGet)
	}

	u, err := BuildURL(cfg)
	if err != nil {
		metrics.RecordHTTPResult(method, string(models.KindInvalidURL))
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = models.DefaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if cfg.Body != nil {
		body = bytes.NewReader(cfg.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		metrics.RecordHTTPResult(method, string(models.KindInvalidURL))
		return nil, models.NewInvalidURLError()
	}
	for name, value := range cfg.Headers {
		req.Header.Set(name, value)
	}

	done := metrics.TimeHTTPRequest(method)
	resp, err := c.http.Do(req)
	done()
	if err != nil {
		c.logger.Debug("HTTP request failed", zap.String("method", method), zap.String("url", u.String()), zap.Error(err))
		metrics.RecordHTTPResult(method, string(models.KindNetworkError))
		return nil, models.NewNetworkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.RecordHTTPStatus(method, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
		c.logger.Debug("HTTP request rejected",
			zap.String("method", method),
			zap.String("url", u.String()),
			zap.Int("status", resp.StatusCode))
		return nil, models.NewServerError(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewNetworkError(fmt.Errorf("read response body: %w", err))
	}

	c.logger.Debug("HTTP request completed",
		zap.String("method", method),
		zap.String("url", u.String()),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)))

	return data, nil
}

// Request executes cfg and decodes the JSON body into T. Decode failures are
// returned as produced by encoding/json.
func Request[T any](ctx context.Context, c interfaces.HTTPClient, cfg models.RequestConfiguration) (T, error) {
	var result T

	data, err := c.Execute(ctx, cfg)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, err
	}
	return result, nil
}
