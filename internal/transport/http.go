package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nexus-ptz/ptzctl/internal/logging"
)

// maxBodySize bounds how much of a device response is read.
const maxBodySize = 4 << 20

// HTTPTransport issues CGI requests as HTTP GETs
type HTTPTransport struct {
	httpClient *http.Client
	userAgent  string
	logger     *logging.Logger
	mutex      sync.Mutex
	stats      Statistics
}

// HTTPOption configures an HTTPTransport
type HTTPOption func(*HTTPTransport)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) { t.httpClient = c }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) HTTPOption {
	return func(t *HTTPTransport) { t.userAgent = ua }
}

// WithLogger sets the transport logger
func WithLogger(l *logging.Logger) HTTPOption {
	return func(t *HTTPTransport) { t.logger = l }
}

// NewHTTPTransport creates an HTTP transport with pooled connections. Request
// timeouts come from each Request rather than the client.
func NewHTTPTransport(opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		},
		userAgent: "ptzctl",
		logger:    logging.For("transport"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do executes the request
func (t *HTTPTransport) Do(ctx context.Context, req Request) (Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	action := req.Action()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL(), nil)
	if err != nil {
		return nil, t.unreachable(action, "failed to build request", err)
	}
	httpReq.Header.Set("User-Agent", t.userAgent)
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")
	if req.Endpoint.Username != "" {
		httpReq.SetBasicAuth(req.Endpoint.Username, req.Endpoint.Password)
	}

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		t.updateRequestStatistics(time.Since(start), 0, false)
		return nil, t.unreachable(action, "failed to reach camera", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	duration := time.Since(start)
	if err != nil {
		t.updateRequestStatistics(duration, int64(len(body)), false)
		return nil, t.unreachable(action, "failed to read camera response", err)
	}

	t.logger.WithContext(ctx).LogHTTPRequest(http.MethodGet, action, resp.StatusCode, duration)

	if resp.StatusCode >= http.StatusBadRequest {
		t.updateRequestStatistics(duration, int64(len(body)), false)
		return nil, t.handleHTTPError(action, resp, body)
	}

	t.updateRequestStatistics(duration, int64(len(body)), true)
	return DecodeBody(body), nil
}

// Statistics returns a snapshot of the request metrics
func (t *HTTPTransport) Statistics() Statistics {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.stats
}

func (t *HTTPTransport) unreachable(action, message string, err error) *Error {
	return &Error{
		Reason:    ReasonUnreachable,
		Message:   fmt.Sprintf("%s: %v", message, err),
		Action:    action,
		Cause:     err,
		Timestamp: time.Now(),
	}
}

// handleHTTPError converts an HTTP error status into a transport error
func (t *HTTPTransport) handleHTTPError(action string, resp *http.Response, body []byte) *Error {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprintf("%d", resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return &Error{
		Reason:     ReasonHTTPStatus,
		Message:    fmt.Sprintf("HTTP error %d from camera: %s", resp.StatusCode, reason),
		Action:     action,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
		Timestamp:  time.Now(),
	}
}

func (t *HTTPTransport) updateRequestStatistics(responseTime time.Duration, bytes int64, success bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.stats.record(responseTime, bytes, success)
}
