package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nexus-ptz/ptzctl/internal/config"
)

const maskedPassword = "********"

func configCommand(a *app, args []string) error {
	if len(args) == 0 {
		return usagef("config needs one of: path, show, set-credentials, add-camera")
	}
	switch args[0] {
	case "path":
		if err := a.ensureManager(); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, a.manager.Path())
		return nil
	case "show":
		return configShow(a)
	case "set-credentials":
		return configSetCredentials(a, args[1:])
	case "add-camera":
		return configAddCamera(a, args[1:])
	}
	return usagef("unknown config action %q", args[0])
}

// configShow prints the effective configuration with passwords masked
func configShow(a *app) error {
	cfg, err := a.loadConfig(false)
	if err != nil {
		return err
	}
	shown := *cfg
	shown.Cameras = make(map[string]config.Camera, len(cfg.Cameras))
	for alias, cam := range cfg.Cameras {
		if cam.Password != "" {
			cam.Password = maskedPassword
		}
		shown.Cameras[alias] = cam
	}
	out, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Fprintf(a.stdout, "# %s\n%s", a.manager.Path(), out)
	return nil
}

// configSetCredentials stores basic credentials. The password comes from the
// environment so it never appears in shell history.
func configSetCredentials(a *app, args []string) error {
	if len(args) != 2 {
		return usagef("usage: %s config set-credentials <alias> <user>  (password from %s)", ProgramName, envPassword)
	}
	password := os.Getenv(envPassword)
	if password == "" {
		return usagef("%s is not set", envPassword)
	}
	if _, err := a.loadConfig(false); err != nil {
		return err
	}
	if err := a.manager.SetCredentials(args[0], args[1], password); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Credentials for %s saved to %s\n", args[0], a.manager.Path())
	return nil
}

func configAddCamera(a *app, args []string) error {
	fs := flag.NewFlagSet("add-camera", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	port := fs.Int("port", 0, "HTTP port for this camera (default: global port)")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 2 {
		return usagef("usage: %s config add-camera [--port N] <alias> <host>", ProgramName)
	}
	if _, err := a.loadConfig(false); err != nil {
		return err
	}
	alias, host := positional[0], positional[1]
	if err := a.manager.SetCamera(alias, config.Camera{Host: host, Port: *port}); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Camera %s -> %s saved to %s\n", alias, host, a.manager.Path())
	return nil
}
