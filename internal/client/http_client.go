package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anmicius0/unit-batch-station/internal/utils"
	"go.uber.org/zap"
	"resty.dev/v3"
)

// DefaultTimeout bounds every backend call. There is no retry.
const DefaultTimeout = 30 * time.Second

const maxLoggedBody = 1000

// FacilityHeader carries the station's facility code on every request.
const FacilityHeader = "X-Facility"

// HTTPClient is a base HTTP client using resty for backend requests.
type HTTPClient struct {
	client *resty.Client
}

// HTTPError represents an HTTP error response from the backend.
// It exposes the status code so callers can detect specific cases (e.g., 404)
// without parsing text messages.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Options configures the backend connection.
type Options struct {
	BaseURL  string
	Token    string
	Facility string
	Timeout  time.Duration
}

// NewHTTPClient creates a new HTTPClient with bearer auth and JSON headers.
func NewHTTPClient(opts Options) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if opts.Token != "" {
		c.SetAuthToken(opts.Token)
	}
	if opts.Facility != "" {
		c.SetHeader(FacilityHeader, opts.Facility)
	}
	return &HTTPClient{client: c}
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	return c.client.Close()
}

// DoReq performs an HTTP request with the given method, endpoint, body, and query params.
// Logs errors for 4xx/5xx responses and truncates long bodies.
func (c *HTTPClient) DoReq(ctx context.Context, method, endpoint string, body any, params map[string]string) (*resty.Response, error) {
	request := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetQueryParams(params)

	log := utils.WithComponent("backend_http")
	log.Debug("HTTP request start",
		zap.String("method", method),
		zap.String("endpoint", endpoint))

	start := time.Now()
	response, err := request.Execute(method, endpoint)
	duration := time.Since(start)
	if err != nil {
		log.Error("HTTP request failed",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}

	if response.StatusCode() >= 400 {
		responseBody := strings.TrimSpace(response.String())
		if len(responseBody) > maxLoggedBody {
			responseBody = responseBody[:maxLoggedBody] + "…"
		}
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("url", response.Request.URL),
			zap.Int("status_code", response.StatusCode()),
			zap.String("body", responseBody),
			zap.Duration("duration", duration),
		}
		switch {
		case response.StatusCode() == 404:
			log.Debug("Backend returned 404 (resource not found)", fields...)
		case response.StatusCode() >= 500:
			log.Error("Backend error response (server)", fields...)
		default:
			log.Warn("Backend error response (client)", fields...)
		}
		return nil, &HTTPError{StatusCode: response.StatusCode(), Body: responseBody}
	}

	log.Debug("HTTP request completed",
		zap.String("method", method),
		zap.String("url", response.Request.URL),
		zap.Int("status_code", response.StatusCode()),
		zap.Duration("duration", duration))

	return response, nil
}
