// Package transport executes Nexus requests against a camera.
// Two strategies implement the Transport interface: direct HTTP GET requests and the
// legacy shell scripts that wrap the same CGI calls.
package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nexus-ptz/ptzctl/internal/query"
)

// Defaults for the Nexus CGI endpoint.
const (
	DefaultScheme         = "http"
	DefaultPort           = 80
	DefaultPath           = "/Nexus.cgi"
	DefaultRequestTimeout = 5 * time.Second
)

// RawKey holds the undecoded body when a response is not a JSON object.
const RawKey = "raw"

// Endpoint identifies the CGI endpoint of one camera.
type Endpoint struct {
	Scheme   string
	Host     string
	Port     int
	Path     string
	Username string
	Password string
}

// Address returns host:port
func (e Endpoint) Address() string {
	port := e.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

// BaseURL returns the endpoint URL without a query string
func (e Endpoint) BaseURL() string {
	scheme := e.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}
	path := e.Path
	if path == "" {
		path = DefaultPath
	}
	return fmt.Sprintf("%s://%s%s", scheme, e.Address(), path)
}

// Request is one CGI call.
type Request struct {
	Endpoint Endpoint
	Query    query.Values
	Timeout  time.Duration
}

// Action returns the wire action carried by the request
func (r Request) Action() string {
	action, _ := r.Query.Get(query.ActionKey)
	return action
}

// URL returns the full request URL with the query encoded in order
func (r Request) URL() string {
	if len(r.Query) == 0 {
		return r.Endpoint.BaseURL()
	}
	return r.Endpoint.BaseURL() + "?" + r.Query.Encode()
}

// Response is the structured payload returned by the device.
type Response map[string]any

// Raw returns the undecoded body if the device did not answer with a JSON object
func (r Response) Raw() (string, bool) {
	raw, ok := r[RawKey].(string)
	return raw, ok
}

// Transport executes a request and returns the structured result or a *Error.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Reason distinguishes the ways a request can fail.
type Reason string

const (
	// ReasonUnreachable means the device could not be reached at all.
	ReasonUnreachable Reason = "unreachable"
	// ReasonHTTPStatus means the device answered with an HTTP error status.
	ReasonHTTPStatus Reason = "http_status"
	// ReasonScriptFailed means a legacy script exited non-zero or printed no JSON.
	ReasonScriptFailed Reason = "script_failed"
)

// Error represents a failed request
type Error struct {
	Reason     Reason    `json:"reason"`
	Message    string    `json:"message"`
	Action     string    `json:"action,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	Status     string    `json:"status,omitempty"`
	Body       string    `json:"body,omitempty"`
	ExitCode   int       `json:"exitCode,omitempty"`
	Stderr     string    `json:"stderr,omitempty"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Unwrap provides access to the original underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Statistics tracks request metrics for one transport
type Statistics struct {
	TotalRequests       int           `json:"totalRequests"`
	SuccessfulRequests  int           `json:"successfulRequests"`
	FailedRequests      int           `json:"failedRequests"`
	AverageResponseTime time.Duration `json:"averageResponseTime"`
	LastRequestTime     time.Time     `json:"lastRequestTime"`
	BytesReceived       int64         `json:"bytesReceived"`
}

// record updates the statistics with one request outcome
func (s *Statistics) record(responseTime time.Duration, bytes int64, success bool) {
	s.TotalRequests++
	s.LastRequestTime = time.Now()
	s.BytesReceived += bytes

	if success {
		s.SuccessfulRequests++
	} else {
		s.FailedRequests++
	}

	if s.TotalRequests == 1 {
		s.AverageResponseTime = responseTime
	} else {
		total := s.AverageResponseTime * time.Duration(s.TotalRequests-1)
		s.AverageResponseTime = (total + responseTime) / time.Duration(s.TotalRequests)
	}
}
