package session

import (
	"context"
	"fmt"
	"time"

	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/query"
	"github.com/nexus-ptz/ptzctl/internal/transport"
)

// DefaultAuthAction is the Nexus action that issues a session.
const DefaultAuthAction = "SERVERWhoAmI"

// WhoAmI authenticates by calling the who-am-I action on the same endpoint as
// ordinary commands. The token is read from <action>.Id in the response.
type WhoAmI struct {
	Transport transport.Transport
	Endpoint  func() (transport.Endpoint, error)
	Action    string
	Timeout   time.Duration
}

// Authenticate performs the exchange
func (w *WhoAmI) Authenticate(ctx context.Context) (string, error) {
	ep, err := w.Endpoint()
	if err != nil {
		return "", err
	}
	action := w.Action
	if action == "" {
		action = DefaultAuthAction
	}

	resp, err := w.Transport.Do(ctx, transport.Request{
		Endpoint: ep,
		Query:    query.Action(action),
		Timeout:  w.Timeout,
	})
	if err != nil {
		return "", err
	}
	return ExtractToken(resp, action)
}

// ExtractToken reads the session id from an authentication response
func ExtractToken(resp transport.Response, action string) (string, error) {
	if raw, ok := resp.Raw(); ok {
		return "", fmt.Errorf("invalid JSON in authentication response: %.80q", raw)
	}
	section, ok := resp[action].(map[string]any)
	if !ok {
		return "", fmt.Errorf("response has no %s object", action)
	}

	switch id := section["Id"].(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case fmt.Stringer:
		if s := id.String(); s != "" {
			return s, nil
		}
	}
	return "", errors.New("session ID missing in response")
}
