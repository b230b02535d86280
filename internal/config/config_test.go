package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nexus-ptz/ptzctl/internal/commands"
	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/logging"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	m, err := NewManager(filepath.Join(dir, "ptzctl", "config.yaml"),
		WithKeyPath(filepath.Join(dir, "security", "master.key")),
		WithLogger(logging.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestLoadCreatesDefaults(t *testing.T) {
	m := newTestManager(t)

	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultCamera != "FLIR2" || cfg.Cameras["FLIR1"].Host != "169.254.80.109" || cfg.Cameras["FLIR2"].Host != "169.254.50.183" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.SessionTimeout != 120*time.Second || cfg.RequestTimeout != 5*time.Second {
		t.Errorf("timeouts = %v, %v", cfg.SessionTimeout, cfg.RequestTimeout)
	}
	want := commands.Params{{Name: "tokenoverride", Value: "1"}, {Name: "_", Value: "0"}}
	if !reflect.DeepEqual(cfg.OverrideParams, want) {
		t.Errorf("overrides = %v", cfg.OverrideParams)
	}

	info, err := os.Stat(m.Path())
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}

	m.InvalidateCache()
	again, err := m.Load()
	if err != nil {
		t.Fatalf("reloading written defaults failed: %v", err)
	}
	if !reflect.DeepEqual(again.OverrideParams, want) || again.SessionTimeout != 120*time.Second {
		t.Errorf("round trip lost values: %+v", again)
	}
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	m := newTestManager(t)
	os.MkdirAll(filepath.Dir(m.Path()), 0700)
	doc := `
default_camera: lab
cameras:
  lab:
    host: 10.0.0.9
    port: 8080
session_timeout: 30s
`
	if err := os.WriteFile(m.Path(), []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SessionTimeout != 30*time.Second || cfg.Port != 80 || cfg.CGIPath != "/Nexus.cgi" || cfg.Backend != BackendHTTP {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if _, ok := cfg.Cameras["FLIR1"]; ok {
		t.Fatal("factory cameras should not be merged into a user table")
	}

	ep, err := cfg.Endpoint("", "")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ep.BaseURL(), "http://10.0.0.9:8080/Nexus.cgi"; got != want {
		t.Fatalf("BaseURL() = %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"no cameras":       func(c *Config) { c.Cameras = nil },
		"unknown default":  func(c *Config) { c.DefaultCamera = "FLIR9" },
		"bad port":         func(c *Config) { c.Port = 70000 },
		"zero timeout":     func(c *Config) { c.RequestTimeout = -time.Second },
		"bad backend":      func(c *Config) { c.Backend = "serial" },
		"script no dir":    func(c *Config) { c.Backend = BackendScript },
		"empty host":       func(c *Config) { c.Cameras["FLIR1"] = Camera{} },
		"relative path":    func(c *Config) { c.CGIPath = "Nexus.cgi" },
		"unknown loglevel": func(c *Config) { c.Log.Level = "chatty" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, errors.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestResolveHost(t *testing.T) {
	cfg := Default()

	tests := []struct {
		alias, host, want string
	}{
		{"", "", FLIR2Host},
		{"FLIR1", "", FLIR1Host},
		{"FLIR1", "192.168.1.20", "192.168.1.20"},
		{"FLIR9", "192.168.1.20", "192.168.1.20"},
	}
	for _, tt := range tests {
		got, err := cfg.ResolveHost(tt.alias, tt.host)
		if err != nil || got != tt.want {
			t.Errorf("ResolveHost(%q, %q) = %q, %v; want %q", tt.alias, tt.host, got, err, tt.want)
		}
	}

	_, err := cfg.ResolveHost("FLIR9", "")
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindUnknownCamera {
		t.Fatalf("expected UnknownCamera, got %v", err)
	}
	if !reflect.DeepEqual(e.Options, []string{"FLIR1", "FLIR2"}) {
		t.Errorf("options = %v", e.Options)
	}
}

func TestCredentialsEncryptedAtRest(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	if err := m.SetCredentials("FLIR1", "admin", "s3cret"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "s3cret") || !strings.Contains(string(data), encryptedPrefix) {
		t.Fatalf("password not encrypted on disk:\n%s", data)
	}

	m.InvalidateCache()
	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	ep, err := cfg.Endpoint("FLIR1", "")
	if err != nil {
		t.Fatal(err)
	}
	if ep.Username != "admin" || ep.Password != "s3cret" {
		t.Fatalf("credentials not restored: %q/%q", ep.Username, ep.Password)
	}

	if err := m.SetCredentials("FLIR9", "admin", "x"); !errors.Is(err, errors.ErrUnknownCamera) {
		t.Fatalf("expected UnknownCamera, got %v", err)
	}
}

func TestKeyFileCipherRoundTrip(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "security", "master.key")
	c, err := NewKeyFileCipher(keyPath)
	if err != nil {
		t.Fatal(err)
	}

	sealed, err := c.Seal("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if sealed == "hunter2" {
		t.Fatal("Seal returned the plaintext")
	}

	// A second cipher reading the same salt derives the same key.
	other, err := NewKeyFileCipher(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	plain, err := other.Open(sealed)
	if err != nil || plain != "hunter2" {
		t.Fatalf("Open = %q, %v", plain, err)
	}
	if _, err := other.Open("not base64!"); err == nil {
		t.Fatal("expected error for malformed input")
	}

	if err := c.Forget(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(keyPath); !os.IsNotExist(err) {
		t.Fatal("key file should be removed")
	}
}

func TestSetCamera(t *testing.T) {
	m := newTestManager(t)
	if err := m.SetCamera("FLIR3", Camera{Host: "169.254.10.10"}); err != nil {
		t.Fatal(err)
	}
	m.InvalidateCache()
	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.CameraNames(), []string{"FLIR1", "FLIR2", "FLIR3"}) {
		t.Fatalf("CameraNames() = %v", cfg.CameraNames())
	}
	if err := m.SetCamera("bad", Camera{}); !errors.Is(err, errors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
