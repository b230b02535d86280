// Package config loads and saves the ptzctl configuration: the camera alias table,
// the Nexus endpoint defaults, the session and request timeouts and the backend
// selection. Camera passwords are encrypted at rest.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nexus-ptz/ptzctl/internal/commands"
	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/logging"
	"github.com/nexus-ptz/ptzctl/internal/query"
	"github.com/nexus-ptz/ptzctl/internal/session"
	"github.com/nexus-ptz/ptzctl/internal/transport"
	"gopkg.in/yaml.v3"
)

// Backends understood by the camera client.
const (
	BackendHTTP   = "http"
	BackendScript = "script"
)

// Factory camera table.
const (
	FLIR1Host     = "169.254.80.109"
	FLIR2Host     = "169.254.50.183"
	DefaultCamera = "FLIR2"
)

// encryptedPrefix marks a password stored encrypted on disk.
const encryptedPrefix = "enc:"

// Camera is one entry of the alias table
type Camera struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// LogConfig selects the log level, format and destination
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Config represents the complete configuration file structure
type Config struct {
	DefaultCamera  string            `yaml:"default_camera"`
	Cameras        map[string]Camera `yaml:"cameras"`
	Port           int               `yaml:"port"`
	CGIPath        string            `yaml:"cgi_path"`
	SessionTimeout time.Duration     `yaml:"session_timeout"`
	RequestTimeout time.Duration     `yaml:"request_timeout"`
	OverrideParams commands.Params   `yaml:"override_params"`
	AuthAction     string            `yaml:"auth_action"`
	Backend        string            `yaml:"backend"`
	ScriptDir      string            `yaml:"script_dir,omitempty"`
	CommandsFile   string            `yaml:"commands_file,omitempty"`
	Log            LogConfig         `yaml:"log"`
}

// Default returns the factory configuration
func Default() *Config {
	return &Config{
		DefaultCamera: DefaultCamera,
		Cameras: map[string]Camera{
			"FLIR1": {Host: FLIR1Host},
			"FLIR2": {Host: FLIR2Host},
		},
		Port:           transport.DefaultPort,
		CGIPath:        transport.DefaultPath,
		SessionTimeout: session.DefaultTimeout,
		RequestTimeout: transport.DefaultRequestTimeout,
		OverrideParams: append(commands.Params(nil), query.DefaultOverrides...),
		AuthAction:     session.DefaultAuthAction,
		Backend:        BackendHTTP,
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyDefaults fills unset scalar fields. The camera table is left as written.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.CGIPath == "" {
		c.CGIPath = def.CGIPath
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = def.SessionTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.OverrideParams == nil {
		c.OverrideParams = def.OverrideParams
	}
	if c.AuthAction == "" {
		c.AuthAction = def.AuthAction
	}
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Log.Output == "" {
		c.Log.Output = def.Log.Output
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if len(c.Cameras) == 0 {
		return errors.Configuration(nil, "no cameras configured")
	}
	for alias, cam := range c.Cameras {
		if strings.TrimSpace(alias) == "" {
			return errors.Configuration(nil, "camera alias cannot be empty")
		}
		if strings.TrimSpace(cam.Host) == "" {
			return errors.Configuration(nil, "camera %s has no host", alias)
		}
		if cam.Port < 0 || cam.Port > 65535 {
			return errors.Configuration(nil, "camera %s port %d out of range", alias, cam.Port)
		}
	}
	if _, ok := c.Cameras[c.DefaultCamera]; !ok {
		return errors.Configuration(nil, "default camera %q is not in the camera table (known: %s)",
			c.DefaultCamera, strings.Join(c.CameraNames(), ", "))
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Configuration(nil, "port %d out of range", c.Port)
	}
	if !strings.HasPrefix(c.CGIPath, "/") {
		return errors.Configuration(nil, "cgi_path must start with '/'")
	}
	if c.SessionTimeout <= 0 || c.RequestTimeout <= 0 {
		return errors.Configuration(nil, "timeouts must be positive")
	}
	switch c.Backend {
	case BackendHTTP:
	case BackendScript:
		if strings.TrimSpace(c.ScriptDir) == "" {
			return errors.Configuration(nil, "script backend requires script_dir")
		}
	default:
		return errors.Configuration(nil, "unsupported backend %q (use %s or %s)", c.Backend, BackendHTTP, BackendScript)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.Configuration(err, "invalid log level")
	}
	return nil
}

// CameraNames returns the configured aliases sorted
func (c *Config) CameraNames() []string {
	names := make([]string, 0, len(c.Cameras))
	for name := range c.Cameras {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Camera returns the entry for alias, or for the default camera when alias is empty
func (c *Config) Camera(alias string) (Camera, error) {
	if alias == "" {
		alias = c.DefaultCamera
	}
	cam, ok := c.Cameras[alias]
	if !ok {
		return Camera{}, errors.UnknownCamera(alias, c.CameraNames())
	}
	return cam, nil
}

// ResolveHost returns hostOverride when set, otherwise the host of alias
func (c *Config) ResolveHost(alias, hostOverride string) (string, error) {
	if hostOverride != "" {
		return hostOverride, nil
	}
	cam, err := c.Camera(alias)
	if err != nil {
		return "", err
	}
	return cam.Host, nil
}

// Endpoint returns the CGI endpoint for alias or hostOverride. An explicit host
// uses the global port and no credentials.
func (c *Config) Endpoint(alias, hostOverride string) (transport.Endpoint, error) {
	ep := transport.Endpoint{
		Scheme: transport.DefaultScheme,
		Port:   c.Port,
		Path:   c.CGIPath,
	}
	if hostOverride != "" {
		ep.Host = hostOverride
		return ep, nil
	}
	cam, err := c.Camera(alias)
	if err != nil {
		return transport.Endpoint{}, err
	}
	ep.Host = cam.Host
	if cam.Port != 0 {
		ep.Port = cam.Port
	}
	ep.Username = cam.Username
	ep.Password = cam.Password
	return ep, nil
}

// Registry loads the command registry named by CommandsFile, or the embedded one
func (c *Config) Registry() (*commands.Registry, error) {
	if c.CommandsFile != "" {
		return commands.LoadFile(c.CommandsFile)
	}
	return commands.Default()
}

// LoggingConfig converts the log section into a logging.Config
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	if c.Log.Format != "" {
		cfg.Format = c.Log.Format
	}
	if c.Log.Output != "" {
		cfg.Output = c.Log.Output
	}
	return cfg
}

// Manager reads and writes the configuration file
type Manager struct {
	configPath   string
	keyPath      string
	cipher       CredentialCipher
	cachedConfig *Config
	logger       *logging.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithKeyPath overrides where the encryption salt is stored
func WithKeyPath(path string) Option {
	return func(m *Manager) { m.keyPath = path }
}

// WithCipher replaces the credential encryption backend
func WithCipher(c CredentialCipher) Option {
	return func(m *Manager) { m.cipher = c }
}

// WithLogger sets the config logger
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a configuration manager for configPath, or for the
// OS-appropriate default path when configPath is empty.
func NewManager(configPath string, opts ...Option) (*Manager, error) {
	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to determine configuration path: %w", err)
		}
		configPath = p
	}

	m := &Manager{
		configPath: configPath,
		logger:     logging.For("config"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/ptzctl/config.yaml, falling back to
// ~/.config/ptzctl/config.yaml.
func DefaultPath() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "ptzctl", "config.yaml"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "ptzctl", "config.yaml"), nil
}

// Path returns the path to the configuration file
func (m *Manager) Path() string {
	return m.configPath
}

// InvalidateCache clears the cached configuration, forcing a reload on next access
func (m *Manager) InvalidateCache() {
	m.cachedConfig = nil
}

// Load reads, decrypts and validates the configuration. A missing file is created
// with the factory defaults.
func (m *Manager) Load() (*Config, error) {
	if m.cachedConfig != nil {
		return m.cachedConfig, nil
	}
	m.logger.LogConfigLoad(m.configPath, "")

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		cfg := Default()
		if err := m.Save(cfg); err != nil {
			return nil, errors.Configuration(err, "failed to create default configuration")
		}
		m.cachedConfig = cfg
		return cfg, nil
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, errors.Configuration(err, "failed to read configuration file %s", m.configPath)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Configuration(err, "failed to parse configuration file %s", m.configPath)
	}
	cfg.applyDefaults()

	for alias, cam := range cfg.Cameras {
		if !strings.HasPrefix(cam.Password, encryptedPrefix) {
			continue
		}
		sealer, err := m.credentialCipher()
		if err != nil {
			return nil, err
		}
		plain, err := sealer.Open(strings.TrimPrefix(cam.Password, encryptedPrefix))
		if err != nil {
			return nil, errors.Configuration(err, "failed to decrypt password for camera %s", alias)
		}
		cam.Password = plain
		cfg.Cameras[alias] = cam
	}

	if err := cfg.Validate(); err != nil {
		m.logger.LogConfigError("validate", err)
		return nil, err
	}

	m.cachedConfig = &cfg
	return &cfg, nil
}

// Save writes the configuration with passwords encrypted
func (m *Manager) Save(cfg *Config) error {
	configCopy := *cfg
	configCopy.Cameras = make(map[string]Camera, len(cfg.Cameras))
	for alias, cam := range cfg.Cameras {
		if cam.Password != "" && !strings.HasPrefix(cam.Password, encryptedPrefix) {
			sealer, err := m.credentialCipher()
			if err != nil {
				return err
			}
			encrypted, err := sealer.Seal(cam.Password)
			if err != nil {
				return errors.Configuration(err, "failed to encrypt password for camera %s", alias)
			}
			cam.Password = encryptedPrefix + encrypted
		}
		configCopy.Cameras[alias] = cam
	}

	data, err := yaml.Marshal(&configCopy)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	return m.logger.LogOperation("save_config", func() error {
		if err := os.MkdirAll(filepath.Dir(m.configPath), 0700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := os.WriteFile(m.configPath, data, 0600); err != nil {
			return fmt.Errorf("failed to write configuration file: %w", err)
		}
		m.cachedConfig = cfg
		return nil
	})
}

// SetCredentials stores HTTP basic credentials for a camera
func (m *Manager) SetCredentials(alias, username, password string) error {
	cfg, err := m.Load()
	if err != nil {
		return err
	}
	if alias == "" {
		alias = cfg.DefaultCamera
	}
	cam, err := cfg.Camera(alias)
	if err != nil {
		return err
	}
	if strings.TrimSpace(username) == "" {
		return errors.Configuration(nil, "username cannot be empty")
	}
	cam.Username = username
	cam.Password = password
	cfg.Cameras[alias] = cam
	return m.Save(cfg)
}

// SetCamera adds or replaces an alias
func (m *Manager) SetCamera(alias string, cam Camera) error {
	cfg, err := m.Load()
	if err != nil {
		return err
	}
	next := *cfg
	next.Cameras = make(map[string]Camera, len(cfg.Cameras)+1)
	for k, v := range cfg.Cameras {
		next.Cameras[k] = v
	}
	next.Cameras[alias] = cam
	if err := next.Validate(); err != nil {
		return err
	}
	return m.Save(&next)
}

func (m *Manager) credentialCipher() (CredentialCipher, error) {
	if m.cipher != nil {
		return m.cipher, nil
	}
	c, err := NewKeyFileCipher(m.keyPath)
	if err != nil {
		return nil, errors.Configuration(err, "failed to initialize credential encryption")
	}
	m.cipher = c
	return c, nil
}
