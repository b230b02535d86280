// Package camera is the caller-facing client for one Nexus PTZ camera. It wires
// the configuration, the selected backend, the session manager and the dispatcher
// together and offers typed wrappers for the registry commands.
package camera

import (
	"context"
	"time"

	"github.com/nexus-ptz/ptzctl/internal/commands"
	"github.com/nexus-ptz/ptzctl/internal/config"
	"github.com/nexus-ptz/ptzctl/internal/dispatch"
	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/logging"
	"github.com/nexus-ptz/ptzctl/internal/session"
	"github.com/nexus-ptz/ptzctl/internal/transport"
)

// Options overrides parts of the configuration for one client
type Options struct {
	Camera  string
	Host    string
	Port    int
	Path    string
	Backend string

	SessionTimeout  time.Duration
	RequestTimeout  time.Duration
	NoTokenOverride bool

	Registry *commands.Registry
	// Transport replaces the backend selected by configuration. The session is
	// then obtained with the who-am-I exchange over this transport.
	Transport     transport.Transport
	Authenticator session.Authenticator
	Clock         func() time.Time
	Logger        *logging.Logger
}

// Client drives one camera at a time
type Client struct {
	cfg        *config.Config
	alias      string
	host       string
	port       int
	path       string
	backend    string
	dispatcher *dispatch.Dispatcher
	session    *session.Manager
	transport  transport.Transport
	logger     *logging.Logger
}

// New creates a client for the camera selected by opts
func New(cfg *config.Config, opts Options) (*Client, error) {
	c := &Client{
		cfg:     cfg,
		alias:   opts.Camera,
		host:    opts.Host,
		port:    opts.Port,
		path:    opts.Path,
		backend: opts.Backend,
		logger:  opts.Logger,
	}
	if c.alias == "" {
		c.alias = cfg.DefaultCamera
	}
	if c.backend == "" {
		c.backend = cfg.Backend
	}
	if c.logger == nil {
		c.logger = logging.GetGlobalLogger()
	}

	registry := opts.Registry
	if registry == nil {
		r, err := cfg.Registry()
		if err != nil {
			return nil, err
		}
		registry = r
	}

	requestTimeout := firstDuration(opts.RequestTimeout, cfg.RequestTimeout)
	sessionTimeout := firstDuration(opts.SessionTimeout, cfg.SessionTimeout)

	tr, auth, err := c.backendFor(opts, requestTimeout)
	if err != nil {
		return nil, err
	}
	c.transport = tr

	sessionOpts := []session.Option{session.WithLogger(c.logger.WithComponent("session"))}
	if opts.Clock != nil {
		sessionOpts = append(sessionOpts, session.WithClock(opts.Clock))
	}
	c.session = session.NewManager(auth, sessionTimeout, sessionOpts...)

	c.dispatcher = dispatch.New(dispatch.Options{
		Registry:         registry,
		Session:          c.session,
		Transport:        tr,
		Resolve:          c.Endpoint,
		Timeout:          requestTimeout,
		IncludeOverrides: !opts.NoTokenOverride,
		Overrides:        cfg.OverrideParams,
		Logger:           c.logger.WithComponent("dispatch"),
	})
	return c, nil
}

func (c *Client) backendFor(opts Options, timeout time.Duration) (transport.Transport, session.Authenticator, error) {
	tr := opts.Transport
	auth := opts.Authenticator

	if tr == nil {
		switch c.backend {
		case config.BackendHTTP:
			tr = transport.NewHTTPTransport(transport.WithLogger(c.logger.WithComponent("transport")))
		case config.BackendScript:
			if c.cfg.ScriptDir == "" {
				return nil, nil, errors.Configuration(nil, "script backend requires script_dir")
			}
			scripts := transport.NewScriptTransport(c.cfg.ScriptDir, c.logger.WithComponent("transport"))
			tr = scripts
			if auth == nil {
				auth = session.AuthenticatorFunc(func(ctx context.Context) (string, error) {
					ep, err := c.Endpoint()
					if err != nil {
						return "", err
					}
					return scripts.Authenticate(ctx, ep)
				})
			}
		default:
			return nil, nil, errors.Configuration(nil, "unsupported backend %q", c.backend)
		}
	}

	if auth == nil {
		auth = &session.WhoAmI{
			Transport: tr,
			Endpoint:  c.Endpoint,
			Action:    c.cfg.AuthAction,
			Timeout:   timeout,
		}
	}
	return tr, auth, nil
}

func firstDuration(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// Endpoint resolves the CGI endpoint of the current target
func (c *Client) Endpoint() (transport.Endpoint, error) {
	ep, err := c.cfg.Endpoint(c.alias, c.host)
	if err != nil {
		return transport.Endpoint{}, err
	}
	if c.port != 0 {
		ep.Port = c.port
	}
	if c.path != "" {
		ep.Path = c.path
	}
	return ep, nil
}

// SetCamera switches the target and invalidates the session. A non-empty alias
// selects that camera and clears any host override unless host is also given;
// a host alone overrides the address of the current alias.
func (c *Client) SetCamera(alias, host string) error {
	if alias != "" {
		if _, err := c.cfg.Camera(alias); err != nil {
			return err
		}
		c.alias = alias
		c.host = host
	} else if host != "" {
		c.host = host
	}
	c.session.Invalidate()
	c.logger.Info("Camera target changed", "camera", c.alias, "host_override", c.host)
	return nil
}

// Camera returns the current alias
func (c *Client) Camera() string {
	return c.alias
}

// Host returns the address of the current target
func (c *Client) Host() (string, error) {
	return c.cfg.ResolveHost(c.alias, c.host)
}

// Cameras returns the configured aliases sorted
func (c *Client) Cameras() []string {
	return c.cfg.CameraNames()
}

// Backend returns the backend in use
func (c *Client) Backend() string {
	return c.backend
}

// Execute dispatches a registry command and returns the payload unmodified
func (c *Client) Execute(ctx context.Context, name string, params map[string]any) (transport.Response, error) {
	return c.dispatcher.Dispatch(ctx, name, params)
}

// Preview returns the URL a command would request with token without sending it
func (c *Client) Preview(name string, params map[string]any, token string) (string, error) {
	return c.dispatcher.Preview(name, params, token)
}

// SeedSession installs a session obtained elsewhere so the first command skips
// authentication.
func (c *Client) SeedSession(token string) error {
	return c.session.Seed(token)
}

// EnsureSession authenticates unless a fresh session is already held
func (c *Client) EnsureSession(ctx context.Context) (session.State, error) {
	if _, err := c.Endpoint(); err != nil {
		return session.State{}, err
	}
	return c.session.Ensure(ctx, false)
}

// WaitForHost probes the target with TCP connects before the first command
func (c *Client) WaitForHost(ctx context.Context, retries int, delay time.Duration) error {
	ep, err := c.Endpoint()
	if err != nil {
		return err
	}
	return transport.WaitForHost(ctx, ep, retries, delay)
}

// Registry returns the command registry
func (c *Client) Registry() *commands.Registry {
	return c.dispatcher.Registry()
}

// Session returns a snapshot of the session state
func (c *Client) Session() session.State {
	return c.session.State()
}

// Stats returns the dispatcher counters
func (c *Client) Stats() dispatch.Stats {
	return c.dispatcher.Stats()
}

// RequestStats returns the request metrics of the backend. Only the HTTP
// backend keeps them.
func (c *Client) RequestStats() (transport.Statistics, bool) {
	reporter, ok := c.transport.(interface{ Statistics() transport.Statistics })
	if !ok {
		return transport.Statistics{}, false
	}
	return reporter.Statistics(), true
}
