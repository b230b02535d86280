package transport

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nexus-ptz/ptzctl/internal/logging"
	"github.com/nexus-ptz/ptzctl/internal/query"
)

// Script names used by the legacy backend.
const (
	AuthScript    = "authenticate.sh"
	GenericScript = "nexus.sh"
	scriptSuffix  = ".sh"
)

// DefaultAuthTimeout bounds the authentication script.
const DefaultAuthTimeout = 15 * time.Second

// ScriptTransport runs one executable per wire action from Dir. The script for
// action X is X.sh, falling back to nexus.sh. Scripts receive the host, the
// session and the remaining query parameters as key=value arguments and print the
// device JSON on stdout.
type ScriptTransport struct {
	Dir         string
	AuthTimeout time.Duration
	logger      *logging.Logger
}

// NewScriptTransport creates a script transport rooted at dir
func NewScriptTransport(dir string, logger *logging.Logger) *ScriptTransport {
	if logger == nil {
		logger = logging.For("transport")
	}
	return &ScriptTransport{Dir: dir, AuthTimeout: DefaultAuthTimeout, logger: logger}
}

// Do runs the script for the request's action
func (s *ScriptTransport) Do(ctx context.Context, req Request) (Response, error) {
	action := req.Action()
	script, err := s.resolve(action + scriptSuffix)
	if err != nil {
		if script, err = s.resolve(GenericScript); err != nil {
			return nil, s.failed(action, fmt.Sprintf("no script for action %s in %s", action, s.Dir), -1, "", err)
		}
	}

	session, _ := req.Query.Get(query.SessionKey)
	args := []string{req.Endpoint.Host, session}
	for _, p := range req.Query {
		if p.Name == query.SessionKey {
			continue
		}
		args = append(args, p.Name+"="+p.Value)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	stdout, err := s.run(ctx, timeout, action, script, args...)
	if err != nil {
		return nil, err
	}

	start := bytes.IndexByte(stdout, '{')
	if start < 0 {
		return nil, s.failed(action, "no JSON object in script output", 0, "", nil)
	}
	resp := DecodeBody(stdout[start:])
	if _, raw := resp.Raw(); raw {
		return nil, s.failed(action, "invalid JSON in script output", 0, "", nil)
	}
	return resp, nil
}

// Authenticate runs authenticate.sh for the endpoint and returns the session it
// prints on stdout.
func (s *ScriptTransport) Authenticate(ctx context.Context, ep Endpoint) (string, error) {
	script, err := s.resolve(AuthScript)
	if err != nil {
		return "", s.failed("authenticate", "authentication script not found", -1, "", err)
	}
	timeout := s.AuthTimeout
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}
	stdout, err := s.run(ctx, timeout, "authenticate", script, ep.Host)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(stdout))
	if token == "" {
		return "", s.failed("authenticate", "authentication script printed no session", 0, "", nil)
	}
	return token, nil
}

func (s *ScriptTransport) resolve(name string) (string, error) {
	path := filepath.Join(s.Dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return path, nil
}

func (s *ScriptTransport) run(ctx context.Context, timeout time.Duration, action, script string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, script, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	s.logger.WithContext(ctx).Debug("Script finished",
		"script", filepath.Base(script),
		"action", action,
		"duration", time.Since(started),
		"ok", err == nil)

	if err != nil {
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, s.failed(action, fmt.Sprintf("script %s failed: %s", filepath.Base(script), msg), code, strings.TrimSpace(stderr.String()), err)
	}
	return stdout.Bytes(), nil
}

func (s *ScriptTransport) failed(action, message string, code int, stderr string, cause error) *Error {
	return &Error{
		Reason:    ReasonScriptFailed,
		Message:   message,
		Action:    action,
		ExitCode:  code,
		Stderr:    stderr,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}
