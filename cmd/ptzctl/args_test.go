package main

import (
	"bytes"
	"flag"
	"io"
	"net"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/nexus-ptz/ptzctl/internal/config"
	"github.com/nexus-ptz/ptzctl/internal/nexustest"
)

func TestParseKeyValues(t *testing.T) {
	params, err := parseKeyValues([]string{"Magnification=4", "Filter=a=b"})
	if err != nil {
		t.Fatalf("parseKeyValues() error = %v", err)
	}
	if params["Magnification"] != "4" {
		t.Errorf("Magnification = %v, want 4", params["Magnification"])
	}
	if params["Filter"] != "a=b" {
		t.Errorf("Filter = %v, want a=b", params["Filter"])
	}

	for _, args := range [][]string{
		{"Magnification"},
		{"=4"},
		{"X=1", "X=2"},
	} {
		_, err := parseKeyValues(args)
		if _, ok := err.(*usageError); !ok {
			t.Errorf("parseKeyValues(%q) error = %v, want usage error", args, err)
		}
	}
}

func TestParseInterspersed(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	camera := fs.String("camera", "", "")
	raw := fs.Bool("raw", false, "")

	positional, err := parseInterspersed(fs, []string{"set_zoom", "--camera", "FLIR1", "Magnification=4", "--raw", "--", "--odd=1"})
	if err != nil {
		t.Fatalf("parseInterspersed() error = %v", err)
	}
	if *camera != "FLIR1" || !*raw {
		t.Errorf("flags = %q, %v", *camera, *raw)
	}
	want := []string{"set_zoom", "Magnification=4", "--odd=1"}
	if strings.Join(positional, " ") != strings.Join(want, " ") {
		t.Errorf("positional = %q, want %q", positional, want)
	}
}

// writeConfig saves a configuration whose only camera points at a fake device
func writeConfig(t *testing.T) (string, *nexustest.Device) {
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

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.Default()
	cfg.Cameras = map[string]config.Camera{"TEST": {Host: host, Port: port}}
	cfg.DefaultCamera = "TEST"
	m, err := config.NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return path, device
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := realMain(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRealMainVersionAndUsage(t *testing.T) {
	code, out, _ := run(t, "--version")
	if code != 0 || !strings.Contains(out, Version) {
		t.Errorf("--version = %d, %q", code, out)
	}

	code, _, errOut := run(t, "frobnicate")
	if code != 2 || !strings.Contains(errOut, "unknown subcommand") {
		t.Errorf("unknown subcommand = %d, %q", code, errOut)
	}

	code, _, _ = run(t)
	if code != 2 {
		t.Errorf("no subcommand exit = %d, want 2", code)
	}
}

func TestListCommand(t *testing.T) {
	path, _ := writeConfig(t)
	code, out, errOut := run(t, "--config", path, "list")
	if code != 0 {
		t.Fatalf("list exit = %d, stderr %q", code, errOut)
	}
	for _, want := range []string{"COMMAND", "set_zoom", "DLTVFOVMagnificationSet", "Magnification"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	code, out, _ = run(t, "--config", path, "list", "--json")
	if code != 0 || !strings.Contains(out, `"action": "PTSpeedModeSet"`) {
		t.Errorf("list --json = %d:\n%s", code, out)
	}
}

func TestRunCommand(t *testing.T) {
	path, device := writeConfig(t)
	device.SetPosition(90, 5)

	code, out, errOut := run(t, "--config", path, "run", "get_position")
	if code != 0 {
		t.Fatalf("run exit = %d, stderr %q", code, errOut)
	}
	if !strings.Contains(out, "Azimuth") {
		t.Errorf("run output = %q", out)
	}

	code, _, errOut = run(t, "--config", path, "run", "set_zoom", "Magnification=abc")
	if code != 2 {
		t.Errorf("invalid value exit = %d, want 2 (stderr %q)", code, errOut)
	}
	if !strings.Contains(errOut, "invalid_parameter_value") {
		t.Errorf("stderr = %q, want the error kind", errOut)
	}

	code, _, _ = run(t, "--config", path, "run", "no_such_command")
	if code != 2 {
		t.Errorf("unknown command exit = %d, want 2", code)
	}

	code, _, _ = run(t, "--config", path, "run", "set_zoom", "Magnification")
	if code != 2 {
		t.Errorf("malformed argument exit = %d, want 2", code)
	}
}

func TestURLCommand(t *testing.T) {
	path, device := writeConfig(t)

	code, out, errOut := run(t, "--config", path, "url", "--session", "abc123", "set_zoom", "Magnification=4")
	if code != 0 {
		t.Fatalf("url exit = %d, stderr %q", code, errOut)
	}
	if !strings.Contains(out, "action=DLTVFOVMagnificationSet") || !strings.Contains(out, "abc123") {
		t.Errorf("url output = %q", out)
	}
	if len(device.Actions()) != 0 {
		t.Errorf("url contacted the camera: %v", device.Actions())
	}

	code, _, _ = run(t, "--config", path, "url", "get_zoom")
	if code != 2 {
		t.Errorf("url without --session exit = %d, want 2", code)
	}
}

func TestConfigCommand(t *testing.T) {
	path, _ := writeConfig(t)

	code, out, _ := run(t, "--config", path, "config", "path")
	if code != 0 || strings.TrimSpace(out) != path {
		t.Errorf("config path = %d, %q", code, out)
	}

	code, _, errOut := run(t, "--config", path, "config", "add-camera", "--port", "8081", "LAB", "10.0.0.9")
	if code != 0 {
		t.Fatalf("add-camera exit = %d, stderr %q", code, errOut)
	}
	m, err := config.NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cam := cfg.Cameras["LAB"]; cam.Host != "10.0.0.9" || cam.Port != 8081 {
		t.Errorf("LAB = %+v", cam)
	}

	code, out, _ = run(t, "--config", path, "config", "show")
	if code != 0 || !strings.Contains(out, "10.0.0.9") {
		t.Errorf("config show = %d:\n%s", code, out)
	}

	os.Unsetenv(envPassword)
	code, _, _ = run(t, "--config", path, "config", "set-credentials", "LAB", "admin")
	if code != 2 {
		t.Errorf("set-credentials without password exit = %d, want 2", code)
	}

	code, _, _ = run(t, "--config", path, "config", "reset")
	if code != 2 {
		t.Errorf("unknown config action exit = %d, want 2", code)
	}
}
