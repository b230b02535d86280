package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"

	"github.com/nexus-ptz/ptzctl/internal/content"
	"github.com/nexus-ptz/ptzctl/internal/transport"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCommand(a *app, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var cf clientFlags
	cf.register(fs)
	printURL := fs.Bool("print-url", false, "print the request URL before sending it")
	raw := fs.Bool("raw", false, "print the raw body, or compact JSON")
	pretty := fs.Bool("pretty", false, "highlight the JSON response")
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: %s run [options] <command> [key=value ...]\n\nOptions:\n", ProgramName)
		fs.PrintDefaults()
	}

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) == 0 {
		fs.Usage()
		return usagef("run needs a command name")
	}
	name := positional[0]
	params, err := parseKeyValues(positional[1:])
	if err != nil {
		return err
	}

	cfg, err := a.loadConfig(false)
	if err != nil {
		return err
	}
	client, err := a.newClient(cfg, &cf)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := client.WaitForHost(ctx, cf.retries, cf.retryDelay); err != nil {
		return err
	}

	if *printURL {
		token := client.Session().Token
		if token == "" {
			state, err := client.EnsureSession(ctx)
			if err != nil {
				return err
			}
			token = state.Token
		}
		u, err := client.Preview(name, params, token)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, u)
	}

	resp, err := client.Execute(ctx, name, params)
	if err != nil {
		return err
	}
	return a.printResponse(resp, *raw, *pretty)
}

func (a *app) printResponse(resp transport.Response, raw, pretty bool) error {
	format := content.Format{Pretty: true, Color: pretty}
	if raw {
		format = content.Format{}
	}
	out, err := a.renderer.FormatResponse(resp, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, out)
	return nil
}

func urlCommand(a *app, args []string) error {
	fs := flag.NewFlagSet("url", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var cf clientFlags
	cf.register(fs)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: %s url --session ID [options] <command> [key=value ...]\n\nOptions:\n", ProgramName)
		fs.PrintDefaults()
	}

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) == 0 {
		fs.Usage()
		return usagef("url needs a command name")
	}
	if cf.session == "" {
		return usagef("url needs --session; it never contacts the camera")
	}
	params, err := parseKeyValues(positional[1:])
	if err != nil {
		return err
	}

	cfg, err := a.loadConfig(false)
	if err != nil {
		return err
	}
	client, err := a.newClient(cfg, &cf)
	if err != nil {
		return err
	}
	u, err := client.Preview(positional[0], params, cf.session)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, u)
	return nil
}

func listCommand(a *app, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	asJSON := fs.Bool("json", false, "print the registry as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := a.loadConfig(false)
	if err != nil {
		return err
	}
	registry, err := cfg.Registry()
	if err != nil {
		return err
	}

	if *asJSON {
		type param struct {
			Name     string  `json:"name"`
			Type     string  `json:"type"`
			Required bool    `json:"required"`
			Default  *string `json:"default,omitempty"`
		}
		type entry struct {
			Name        string  `json:"name"`
			Action      string  `json:"action"`
			Description string  `json:"description,omitempty"`
			Params      []param `json:"params"`
		}
		var out []entry
		for _, spec := range registry.Commands() {
			e := entry{Name: spec.Name, Action: spec.Action, Description: spec.Description, Params: []param{}}
			for _, p := range spec.Params {
				e.Params = append(e.Params, param{p.Name, p.Kind.String(), p.Required, p.Default})
			}
			out = append(out, e)
		}
		body, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, string(body))
		return nil
	}

	table := content.Table{Headers: []string{"COMMAND", "ACTION", "PARAMETERS", "DESCRIPTION"}}
	for _, spec := range registry.Commands() {
		params := strings.TrimSpace(strings.TrimPrefix(spec.Usage(), spec.Name))
		if params == "" {
			params = "-"
		}
		table.Rows = append(table.Rows, []string{spec.Name, spec.Action, params, spec.Description})
	}
	fmt.Fprintln(a.stdout, a.renderer.RenderTable(table, false))
	return nil
}

func statusCommand(a *app, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var cf clientFlags
	cf.register(fs)
	pretty := fs.Bool("pretty", false, "highlight the JSON report")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := a.loadConfig(false)
	if err != nil {
		return err
	}
	client, err := a.newClient(cfg, &cf)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := client.WaitForHost(ctx, cf.retries, cf.retryDelay); err != nil {
		return err
	}

	report, err := client.Status(ctx)
	if err != nil {
		return err
	}
	body, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	out := string(body)
	if *pretty {
		if highlighted, err := content.NewSyntaxHighlighter(content.DefaultTheme, content.DefaultFormatter).Highlight(out, "json"); err == nil {
			out = strings.TrimRight(highlighted, "\n")
		}
	}
	fmt.Fprintln(a.stdout, out)
	if !report.OK() {
		return fmt.Errorf("camera %s answered with errors", report.Camera)
	}
	return nil
}
