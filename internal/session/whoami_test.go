package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/transport"
)

type recordingTransport struct {
	requests []transport.Request
	resp     transport.Response
	err      error
}

func (r *recordingTransport) Do(ctx context.Context, req transport.Request) (transport.Response, error) {
	r.requests = append(r.requests, req)
	return r.resp, r.err
}

func TestWhoAmIAuthenticate(t *testing.T) {
	tr := &recordingTransport{resp: transport.Response{"SERVERWhoAmI": map[string]any{"Id": "abc123"}}}
	w := &WhoAmI{
		Transport: tr,
		Endpoint:  func() (transport.Endpoint, error) { return transport.Endpoint{Host: "169.254.50.183"}, nil },
	}

	token, err := w.Authenticate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if token != "abc123" {
		t.Fatalf("token = %q", token)
	}
	if got, want := tr.requests[0].URL(), "http://169.254.50.183:80/Nexus.cgi?action=SERVERWhoAmI"; got != want {
		t.Fatalf("URL = %q, want %q", got, want)
	}
}

func TestWhoAmIEndpointError(t *testing.T) {
	tr := &recordingTransport{}
	w := &WhoAmI{
		Transport: tr,
		Endpoint: func() (transport.Endpoint, error) {
			return transport.Endpoint{}, errors.UnknownCamera("FLIR9", []string{"FLIR1", "FLIR2"})
		},
	}
	if _, err := w.Authenticate(context.Background()); !errors.Is(err, errors.ErrUnknownCamera) {
		t.Fatalf("expected UnknownCamera, got %v", err)
	}
	if len(tr.requests) != 0 {
		t.Fatal("no request should be sent without an endpoint")
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name string
		resp transport.Response
		want string
		ok   bool
	}{
		{"valid", transport.Response{"SERVERWhoAmI": map[string]any{"Id": "s1"}}, "s1", true},
		{"numeric", transport.Response{"SERVERWhoAmI": map[string]any{"Id": json.Number("42")}}, "42", true},
		{"empty id", transport.Response{"SERVERWhoAmI": map[string]any{"Id": ""}}, "", false},
		{"missing id", transport.Response{"SERVERWhoAmI": map[string]any{}}, "", false},
		{"missing section", transport.Response{"Other": map[string]any{"Id": "x"}}, "", false},
		{"raw body", transport.Response{transport.RawKey: "<html>"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractToken(tt.resp, DefaultAuthAction)
			if (err == nil) != tt.ok || got != tt.want {
				t.Fatalf("ExtractToken = %q, %v", got, err)
			}
		})
	}
}
