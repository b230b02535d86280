package transport

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/nexus-ptz/ptzctl/internal/errors"
)

func TestWaitForHostReachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	ep := Endpoint{Host: "127.0.0.1", Port: addr.Port}
	if err := WaitForHost(context.Background(), ep, 2, 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}
}

func TestWaitForHostUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()
	port, _ := strconv.Atoi(portStr)

	err = WaitForHost(context.Background(), Endpoint{Host: "127.0.0.1", Port: port}, 2, 20*time.Millisecond)
	if errors.KindOf(err) != errors.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	var terr *Error
	if !errors.As(err, &terr) || terr.Reason != ReasonUnreachable {
		t.Fatalf("expected unreachable cause, got %v", err)
	}
}

func TestWaitForHostNoRetries(t *testing.T) {
	if err := WaitForHost(context.Background(), Endpoint{Host: "203.0.113.1"}, 0, time.Second); err != nil {
		t.Fatalf("retries <= 0 should be a no-op, got %v", err)
	}
}
