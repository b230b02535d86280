// Package main implements the ptzctl command line: one-shot commands against a
// Nexus PTZ camera, an interactive console, and HTTP and MCP bridges.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/nexus-ptz/ptzctl/internal/config"
	"github.com/nexus-ptz/ptzctl/internal/content"
	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/logging"
)

// Application metadata
const (
	Version     = "1.0.0"
	ProgramName = "ptzctl"
)

// env variables read by the CLI
const (
	envDebug    = "PTZCTL_DEBUG"
	envPassword = "PTZCTL_PASSWORD"
)

type subcommand struct {
	summary string
	run     func(a *app, args []string) error
}

var subcommands = map[string]subcommand{
	"run":     {"send a command and print the response", runCommand},
	"url":     {"print the request URL without sending it", urlCommand},
	"list":    {"list the available commands", listCommand},
	"status":  {"report position, zoom and speed of a camera", statusCommand},
	"console": {"interactive terminal console", consoleCommand},
	"serve":   {"serve the commands over HTTP", serveCommand},
	"mcp":     {"serve the commands as MCP tools over stdio", mcpCommand},
	"config":  {"show or edit the configuration", configCommand},
}

// app carries the global flags and shared services of one invocation
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath   string
	commandsPath string

	manager  *config.Manager
	renderer *content.Renderer
	errors   *errors.Handler
	logger   *logging.Logger
}

// usageError reports a malformed invocation. It exits with status 2.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	a := &app{
		stdout:   stdout,
		stderr:   stderr,
		renderer: content.NewRenderer(""),
		errors:   errors.NewHandler(),
	}

	fs := flag.NewFlagSet(ProgramName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&a.configPath, "config", "", "path to the configuration file")
	fs.StringVar(&a.commandsPath, "commands", "", "path to a YAML command registry replacing the built-in one")
	showVersion := fs.Bool("version", false, "print version information and exit")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintf(stdout, "%s v%s\n", ProgramName, Version)
		return 0
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	sub, ok := subcommands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown subcommand %q\n\n", rest[0])
		fs.Usage()
		return 2
	}

	bootstrap := logging.DefaultConfig()
	bootstrap.Level = logging.WarnLevel
	a.initLogging(bootstrap, false)
	return a.exit(sub.run(a, rest[1:]))
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s [global options] <subcommand> [options] [args]\n\n", ProgramName)
	fmt.Fprintf(w, "%s v%s controls Nexus PTZ cameras over the Nexus CGI API.\n\n", ProgramName, Version)
	fmt.Fprintf(w, "Subcommands:\n")
	names := make([]string, 0, len(subcommands))
	for name := range subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %s\n", name, subcommands[name].summary)
	}
	fmt.Fprintf(w, "\nGlobal options:\n")
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  %s run get_position\n", ProgramName)
	fmt.Fprintf(w, "  %s run --camera FLIR1 set_zoom Magnification=4\n", ProgramName)
	fmt.Fprintf(w, "  %s url --session abc123 center ScreenX=320 ScreenY=240\n", ProgramName)
	fmt.Fprintf(w, "  %s serve --listen :8080\n", ProgramName)
	fmt.Fprintf(w, "\nSet %s=true for debug logs in JSON.\n", envDebug)
}

// initLogging installs the global logger. quiet keeps terminal output clean for
// the console and the stdio MCP server unless logs go to a file.
func (a *app) initLogging(cfg logging.Config, quiet bool) {
	if os.Getenv(envDebug) == "true" {
		cfg.Level = logging.DebugLevel
		cfg.Format = "json"
	}
	if quiet && (cfg.Output == "" || cfg.Output == "stderr" || cfg.Output == "stdout") {
		cfg.Output = "discard"
	}
	if err := logging.InitGlobalLogger(cfg); err != nil {
		fmt.Fprintf(a.stderr, "Failed to initialize logging: %v\n", err)
		cfg.Output = "stderr"
		_ = logging.InitGlobalLogger(cfg)
	}
	a.logger = logging.GetGlobalLogger()
}

// loadConfig reads the configuration and applies --commands. quiet is passed
// on to initLogging.
func (a *app) loadConfig(quiet bool) (*config.Config, error) {
	if err := a.ensureManager(); err != nil {
		return nil, err
	}
	cfg, err := a.manager.Load()
	if err != nil {
		return nil, err
	}
	if a.commandsPath != "" {
		cfg.CommandsFile = a.commandsPath
	}
	a.initLogging(cfg.LoggingConfig(), quiet)
	return cfg, nil
}

func (a *app) ensureManager() error {
	if a.manager != nil {
		return nil
	}
	m, err := config.NewManager(a.configPath, config.WithLogger(a.logger.WithComponent("config")))
	if err != nil {
		return errors.Configuration(err, "failed to initialize configuration")
	}
	a.manager = m
	return nil
}

func (a *app) exit(err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return 0
	}
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(a.stderr, "Error: %s\n", ue.msg)
		return 2
	}
	fmt.Fprintln(a.stderr, a.renderer.RenderError(a.errors.Process(err), true))
	return errors.ExitCode(err)
}
