// Package session manages the time-bounded Nexus session of one camera client.
//
// A session is valid while a token is present and it was issued no longer than the
// timeout ago. Staleness is computed lazily at call time; nothing expires in the
// background. A Manager is owned by a single dispatcher and is not safe for
// concurrent use.
package session

import (
	"context"
	"strings"
	"time"

	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/logging"
)

// DefaultTimeout is the session lifetime assumed for Nexus cameras.
const DefaultTimeout = 120 * time.Second

// Authenticator performs the session exchange and returns the issued token.
type Authenticator interface {
	Authenticate(ctx context.Context) (string, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface
type AuthenticatorFunc func(ctx context.Context) (string, error)

// Authenticate calls f
func (f AuthenticatorFunc) Authenticate(ctx context.Context) (string, error) {
	return f(ctx)
}

// State is a snapshot of the session. Generation increases with every token the
// manager accepts, so callers can tell whether a reauthentication happened.
type State struct {
	Token      string        `json:"-"`
	IssuedAt   time.Time     `json:"issuedAt"`
	Timeout    time.Duration `json:"timeout"`
	Generation uint64        `json:"generation"`
}

// Valid reports whether the session is usable at now
func (s State) Valid(now time.Time) bool {
	return s.Token != "" && now.Sub(s.IssuedAt) <= s.Timeout
}

// Manager owns the current session token and its issue time
type Manager struct {
	auth       Authenticator
	timeout    time.Duration
	now        func() time.Time
	logger     *logging.Logger
	state      State
	generation uint64
	authCount  int
}

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the session logger
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates an unauthenticated session manager
func NewManager(auth Authenticator, timeout time.Duration, opts ...Option) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m := &Manager{
		auth:    auth,
		timeout: timeout,
		now:     time.Now,
		logger:  logging.For("session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state.Timeout = timeout
	return m
}

// Ensure returns a valid session, authenticating when the current one is missing
// or stale, or unconditionally when force is set. On failure the session is left
// unauthenticated and an AuthenticationFailed error is returned.
func (m *Manager) Ensure(ctx context.Context, force bool) (State, error) {
	if !force && m.Valid() {
		return m.state, nil
	}

	logger := m.logger.WithContext(ctx)
	start := m.now()
	m.authCount++
	token, err := m.auth.Authenticate(ctx)
	if err == nil && token == "" {
		err = errTokenMissing
	}
	if err != nil {
		logger.LogAuthentication(force, m.generation, m.now().Sub(start), err)
		m.Invalidate()
		return State{}, errors.AuthenticationFailed(err)
	}

	m.accept(token)
	logger.LogAuthentication(force, m.generation, m.now().Sub(start), nil)
	return m.state, nil
}

// Seed installs a token obtained elsewhere, treating it as issued now.
// Surrounding whitespace from the command line is dropped.
func (m *Manager) Seed(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.NewErrorBuilder(errors.KindConfiguration).
			WithMessage("invalid session token").
			WithCause(errTokenMissing).
			Build()
	}
	m.accept(token)
	return nil
}

func (m *Manager) accept(token string) {
	m.generation++
	m.state = State{
		Token:      token,
		IssuedAt:   m.now(),
		Timeout:    m.timeout,
		Generation: m.generation,
	}
}

// Invalidate clears the token so the next Ensure reauthenticates
func (m *Manager) Invalidate() {
	m.state = State{Timeout: m.timeout, Generation: m.generation}
}

// Valid reports whether the current session is usable
func (m *Manager) Valid() bool {
	return m.state.Valid(m.now())
}

// Token returns the current token, which may be stale or empty
func (m *Manager) Token() string {
	return m.state.Token
}

// State returns a snapshot of the current session
func (m *Manager) State() State {
	return m.state
}

// Timeout returns the session lifetime
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Authentications returns how many exchanges were attempted
func (m *Manager) Authentications() int {
	return m.authCount
}

var errTokenMissing = errors.New("session ID missing in response")
