package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/nexus-ptz/ptzctl/internal/errors"
)

// WaitForHost polls the endpoint with TCP connects until one succeeds. Each attempt
// is bounded by delay, and attempts are separated by delay. retries <= 0 returns
// immediately.
func WaitForHost(ctx context.Context, ep Endpoint, retries int, delay time.Duration) error {
	if retries <= 0 {
		return nil
	}

	dialer := &net.Dialer{Timeout: delay}
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", ep.Address())
		if err == nil {
			conn.Close()
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return unreachableAfter(ep, attempt, ctx.Err())
		case <-time.After(delay):
		}
	}
	return unreachableAfter(ep, retries, lastErr)
}

func unreachableAfter(ep Endpoint, attempts int, cause error) error {
	msg := fmt.Sprintf("camera at %s not reachable after %d attempts", ep.Address(), attempts)
	return errors.NewErrorBuilder(errors.KindTransport).
		WithMessage("%s", msg).
		WithCause(&Error{
			Reason:    ReasonUnreachable,
			Message:   fmt.Sprint(cause),
			Cause:     cause,
			Timestamp: time.Now(),
		}).
		Build()
}
