// Package dispatch turns named commands into authenticated Nexus requests.
//
// A dispatch ensures a session, validates and coerces the caller's parameters,
// builds the query and sends it. When the transport fails the dispatcher forces one
// reauthentication and retries exactly once; a second failure is reported as
// CommandFailed. Caller errors are never retried.
//
// A Dispatcher owns one session and is not safe for concurrent use. Callers that
// share one must serialise Dispatch calls and target switches.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nexus-ptz/ptzctl/internal/commands"
	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/logging"
	"github.com/nexus-ptz/ptzctl/internal/query"
	"github.com/nexus-ptz/ptzctl/internal/session"
	"github.com/nexus-ptz/ptzctl/internal/transport"
)

// maxAttempts caps transport calls per dispatch: the original and one retry after
// a forced reauthentication.
const maxAttempts = 2

// Options configures a Dispatcher
type Options struct {
	Registry  *commands.Registry
	Session   *session.Manager
	Transport transport.Transport
	// Resolve returns the endpoint of the current target camera.
	Resolve          func() (transport.Endpoint, error)
	Timeout          time.Duration
	IncludeOverrides bool
	Overrides        commands.Params
	Logger           *logging.Logger
}

// Stats counts dispatcher activity
type Stats struct {
	Dispatches     int `json:"dispatches"`
	Succeeded      int `json:"succeeded"`
	Failed         int `json:"failed"`
	Retries        int `json:"retries"`
	ForcedReauths  int `json:"forcedReauths"`
	TransportCalls int `json:"transportCalls"`
}

// Dispatcher executes registry commands against one camera
type Dispatcher struct {
	registry         *commands.Registry
	session          *session.Manager
	transport        transport.Transport
	resolve          func() (transport.Endpoint, error)
	builder          *query.Builder
	timeout          time.Duration
	includeOverrides bool
	logger           *logging.Logger
	stats            Stats
}

// New creates a dispatcher
func New(opts Options) *Dispatcher {
	overrides := opts.Overrides
	if overrides == nil {
		overrides = query.DefaultOverrides
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = transport.DefaultRequestTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.For("dispatch")
	}
	return &Dispatcher{
		registry:         opts.Registry,
		session:          opts.Session,
		transport:        opts.Transport,
		resolve:          opts.Resolve,
		builder:          query.NewBuilder(overrides),
		timeout:          timeout,
		includeOverrides: opts.IncludeOverrides,
		logger:           logger,
	}
}

// Dispatch runs the named command with loosely typed params and returns the
// device payload unmodified.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params map[string]any) (transport.Response, error) {
	ctx = logging.ContextWithRequestID(ctx, uuid.NewString())
	logger := d.logger.WithContext(ctx).WithField("command", name)
	d.stats.Dispatches++

	resp, err := d.dispatch(ctx, logger, name, params)
	if err != nil {
		d.stats.Failed++
		logger.Warn("Dispatch failed", "error", err.Error(), "kind", string(errors.KindOf(err)))
		return nil, err
	}
	d.stats.Succeeded++
	return resp, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, logger *logging.Logger, name string, params map[string]any) (transport.Response, error) {
	endpoint, err := d.resolve()
	if err != nil {
		return nil, err
	}

	state, err := d.session.Ensure(ctx, false)
	if err != nil {
		return nil, err
	}

	spec, err := d.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	dynamic, err := commands.ResolveParams(spec, params)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req := transport.Request{
			Endpoint: endpoint,
			Query:    d.builder.Build(spec, state.Token, dynamic, d.includeOverrides),
			Timeout:  d.timeout,
		}

		d.stats.TransportCalls++
		start := time.Now()
		resp, err := d.transport.Do(ctx, req)
		if err == nil {
			logger.Debug("Command succeeded",
				"action", spec.Action,
				"attempt", attempt,
				"duration", time.Since(start))
			return resp, nil
		}
		if !errors.Retryable(err) {
			logger.Debug("Command failed without retry",
				"action", spec.Action,
				"kind", string(errors.KindOf(err)),
				"error", err.Error())
			return nil, err
		}
		lastErr = err
		logger.Info("Command attempt failed",
			"action", spec.Action,
			"attempt", attempt,
			"error", err.Error())

		if attempt == maxAttempts || ctx.Err() != nil {
			break
		}

		d.stats.ForcedReauths++
		state, err = d.session.Ensure(ctx, true)
		if err != nil {
			return nil, err
		}
		d.stats.Retries++
	}
	return nil, errors.CommandFailed(name, lastErr)
}

// Preview validates the command and returns the URL it would request with token,
// without authenticating or sending anything.
func (d *Dispatcher) Preview(name string, params map[string]any, token string) (string, error) {
	endpoint, err := d.resolve()
	if err != nil {
		return "", err
	}
	spec, err := d.registry.Lookup(name)
	if err != nil {
		return "", err
	}
	dynamic, err := commands.ResolveParams(spec, params)
	if err != nil {
		return "", err
	}
	req := transport.Request{
		Endpoint: endpoint,
		Query:    d.builder.Build(spec, token, dynamic, d.includeOverrides),
	}
	return req.URL(), nil
}

// Registry returns the command registry
func (d *Dispatcher) Registry() *commands.Registry {
	return d.registry
}

// Session returns the session manager
func (d *Dispatcher) Session() *session.Manager {
	return d.session
}

// Stats returns a snapshot of the dispatch counters
func (d *Dispatcher) Stats() Stats {
	return d.stats
}
