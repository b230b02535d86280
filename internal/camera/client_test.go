package camera

import (
	"context"
	"net"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/nexus-ptz/ptzctl/internal/config"
	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/logging"
	"github.com/nexus-ptz/ptzctl/internal/nexustest"
)

func newTestClient(t *testing.T) (*Client, *nexustest.Device) {
	t.Helper()
	device := nexustest.NewDevice()
	srv := httptest.NewServer(device)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)

	cfg := config.Default()
	cfg.Cameras["TEST"] = config.Camera{Host: host, Port: port}
	cfg.DefaultCamera = "TEST"

	client, err := New(cfg, Options{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client, device
}

func TestTypedWrappers(t *testing.T) {
	client, device := newTestClient(t)
	ctx := context.Background()
	device.SetPosition(123.5, -4)

	az, el, err := client.GetPosition(ctx)
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if az != 123.5 || el != -4 {
		t.Errorf("GetPosition() = %v, %v", az, el)
	}

	if _, err := client.SetZoom(ctx, 2.5); err != nil {
		t.Fatalf("SetZoom() error = %v", err)
	}
	zoom, err := client.GetZoom(ctx)
	if err != nil || zoom != 2.5 {
		t.Errorf("GetZoom() = %v, %v; want 2.5", zoom, err)
	}

	if _, err := client.SetSpeed(ctx, 20, 30); err != nil {
		t.Fatalf("SetSpeed() error = %v", err)
	}
	azs, els, err := client.GetSpeed(ctx)
	if err != nil || azs != 20 || els != 30 {
		t.Errorf("GetSpeed() = %v, %v, %v", azs, els, err)
	}

	if _, err := client.Center(ctx, 320, 240); err != nil {
		t.Fatalf("Center() error = %v", err)
	}
	x, y := device.LastScreen()
	if x != 320 || y != 240 {
		t.Errorf("device saw screen %v, %v", x, y)
	}

	if device.SessionsIssued() != 1 {
		t.Errorf("SessionsIssued() = %d, want one session reused", device.SessionsIssued())
	}

	queries := device.Queries()
	last := queries[len(queries)-1]
	want := "action=PTAzimuthElevationOnScreenSet&Active_cam=0&Cam_type=4&Cam_id=0&ScreenX=320&ScreenY=240&tokenoverride=1&_=0"
	if !strings.HasSuffix(last, want) {
		t.Errorf("center query = %q, want suffix %q", last, want)
	}
}

func TestExpiredSessionRecovers(t *testing.T) {
	client, device := newTestClient(t)
	ctx := context.Background()

	if _, err := client.AutoFocus(ctx); err != nil {
		t.Fatal(err)
	}
	device.ExpireSessions()
	if _, err := client.AutoFocus(ctx); err != nil {
		t.Fatalf("AutoFocus() after expiry error = %v", err)
	}
	if device.SessionsIssued() != 2 {
		t.Errorf("SessionsIssued() = %d, want 2", device.SessionsIssued())
	}
}

func TestPersistentFailure(t *testing.T) {
	client, device := newTestClient(t)
	device.FailCommands(2)

	_, err := client.Execute(context.Background(), "get_zoom", nil)
	if !errors.Is(err, errors.ErrCommandFailed) {
		t.Fatalf("error = %v, want CommandFailed", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error %q lost the transport diagnostic", err)
	}
}

func TestRawBodyMissingField(t *testing.T) {
	client, device := newTestClient(t)
	device.RawBody("OK")

	_, err := client.GetZoom(context.Background())
	if !errors.Is(err, ErrFieldMissing) {
		t.Fatalf("error = %v, want ErrFieldMissing", err)
	}
}

func TestSetCamera(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	if _, err := client.AutoFocus(ctx); err != nil {
		t.Fatal(err)
	}
	if !client.Session().Valid(client.Session().IssuedAt) {
		t.Fatal("expected a valid session")
	}

	if err := client.SetCamera("NOPE", ""); !errors.Is(err, errors.ErrUnknownCamera) {
		t.Fatalf("SetCamera(NOPE) error = %v", err)
	}
	if client.Camera() != "TEST" {
		t.Errorf("failed switch changed camera to %q", client.Camera())
	}

	if err := client.SetCamera("FLIR1", ""); err != nil {
		t.Fatal(err)
	}
	if client.Session().Token != "" {
		t.Error("switch did not invalidate the session")
	}
	host, _ := client.Host()
	if host != config.FLIR1Host {
		t.Errorf("Host() = %q", host)
	}

	if err := client.SetCamera("", "10.0.0.9"); err != nil {
		t.Fatal(err)
	}
	ep, _ := client.Endpoint()
	if ep.Host != "10.0.0.9" || client.Camera() != "FLIR1" {
		t.Errorf("endpoint = %+v camera = %s", ep, client.Camera())
	}
}

func TestSeedSessionSkipsAuth(t *testing.T) {
	client, device := newTestClient(t)
	if err := client.SeedSession("sess-manual"); err != nil {
		t.Fatal(err)
	}
	u, err := client.Preview("get_zoom", nil, client.Session().Token)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(u, "session=sess-manual&action=DLTVFOVMagnificationGet") {
		t.Errorf("Preview() = %s", u)
	}
	if len(device.Queries()) != 0 {
		t.Error("Preview sent a request")
	}
}

func TestUnsupportedBackend(t *testing.T) {
	cfg := config.Default()
	if _, err := New(cfg, Options{Backend: "smoke"}); !errors.Is(err, errors.ErrConfiguration) {
		t.Errorf("New() error = %v, want Configuration", err)
	}
}

func TestStatus(t *testing.T) {
	client, device := newTestClient(t)
	device.SetPosition(90, 10)

	report, err := client.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() {
		t.Fatalf("report has errors: %+v", report)
	}
	if *report.Position.Azimuth != 90 || *report.Zoom.Value != 1 || *report.Speed.Elevation != 10 {
		t.Errorf("report = %+v", report)
	}

	device.RawBody("busy")
	report, err = client.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.OK() || report.Zoom.Error == "" {
		t.Errorf("expected recorded field errors, got %+v", report)
	}
}
