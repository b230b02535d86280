package main

import (
	"flag"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nexus-ptz/ptzctl/internal/api"
	"github.com/nexus-ptz/ptzctl/internal/content"
	mcp_bridge "github.com/nexus-ptz/ptzctl/internal/mcp"
	"github.com/nexus-ptz/ptzctl/internal/ui/console"
)

func consoleCommand(a *app, args []string) error {
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var cf clientFlags
	cf.register(fs)
	theme := fs.String("theme", content.DefaultTheme, "chroma style for responses")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := a.loadConfig(true)
	if err != nil {
		return err
	}
	client, err := a.newClient(cfg, &cf)
	if err != nil {
		return err
	}

	model := console.NewModel(client, content.NewRenderer(*theme), cf.timeout)
	program := tea.NewProgram(model, tea.WithAltScreen())
	a.logger.Info("Starting console", "camera", client.Camera())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("console terminated: %w", err)
	}
	return nil
}

func serveCommand(a *app, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var cf clientFlags
	cf.register(fs)
	listen := fs.String("listen", ":8080", "address for the HTTP bridge")
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
	return api.NewServer(client, a.logger.WithComponent("api")).ListenAndServe(ctx, *listen)
}

func mcpCommand(a *app, args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var cf clientFlags
	cf.register(fs)
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
	return mcp_bridge.NewServer(client, a.logger.WithComponent("mcp")).Serve()
}
