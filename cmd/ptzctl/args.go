package main

import (
	"flag"
	"strings"
	"time"

	"github.com/nexus-ptz/ptzctl/internal/camera"
	"github.com/nexus-ptz/ptzctl/internal/config"
)

// clientFlags are the options shared by every subcommand that talks to a camera
type clientFlags struct {
	camera          string
	host            string
	port            int
	path            string
	backend         string
	timeout         time.Duration
	session         string
	retries         int
	retryDelay      time.Duration
	noTokenOverride bool
}

func (c *clientFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.camera, "camera", "", "camera alias from the configuration (default: default_camera)")
	fs.StringVar(&c.host, "host", "", "explicit camera host or IP, overriding the alias")
	fs.IntVar(&c.port, "port", 0, "HTTP port of the Nexus CGI API (default: configured port)")
	fs.StringVar(&c.path, "path", "", "CGI path (default: configured cgi_path)")
	fs.StringVar(&c.backend, "backend", "", "transport backend: http or script (default: configured backend)")
	fs.DurationVar(&c.timeout, "timeout", 0, "per-request timeout (default: configured request_timeout)")
	fs.StringVar(&c.session, "session", "", "use a pre-obtained session id instead of authenticating first")
	fs.IntVar(&c.retries, "retries", 0, "probe the camera with TCP connects this many times before the first command")
	fs.DurationVar(&c.retryDelay, "retry-delay", time.Second, "connect timeout and pause between probes")
	fs.BoolVar(&c.noTokenOverride, "no-token-override", false, "do not append the override parameters to commands")
}

func (c *clientFlags) options() camera.Options {
	return camera.Options{
		Camera:          c.camera,
		Host:            c.host,
		Port:            c.port,
		Path:            c.path,
		Backend:         c.backend,
		RequestTimeout:  c.timeout,
		NoTokenOverride: c.noTokenOverride,
	}
}

// newClient builds the camera client and seeds the session when --session is set
func (a *app) newClient(cfg *config.Config, c *clientFlags) (*camera.Client, error) {
	opts := c.options()
	opts.Logger = a.logger
	client, err := camera.New(cfg, opts)
	if err != nil {
		return nil, err
	}
	if c.session != "" {
		if err := client.SeedSession(c.session); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// parseInterspersed parses flags that may appear before, between or after the
// positional arguments. A bare "--" ends flag parsing.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var tail []string
	for i, arg := range args {
		if arg == "--" {
			args, tail = args[:i], args[i+1:]
			break
		}
	}

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return append(positional, tail...), nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// parseKeyValues turns key=value arguments into command parameters. The value
// may itself contain '='; the key may not be empty.
func parseKeyValues(args []string) (map[string]any, error) {
	params := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, usagef("argument %q is not key=value", arg)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, usagef("argument %q has an empty key", arg)
		}
		if _, dup := params[key]; dup {
			return nil, usagef("parameter %q given more than once", key)
		}
		params[key] = value
	}
	return params, nil
}
