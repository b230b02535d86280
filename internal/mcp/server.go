// Package mcp serves the command registry as Model Context Protocol tools over
// stdio. One tool is generated per registry command.
package mcp

import (
	"context"
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nexus-ptz/ptzctl/internal/camera"
	"github.com/nexus-ptz/ptzctl/internal/commands"
	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/logging"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Server name and version reported to MCP clients
const (
	ServerName    = "ptzctl"
	ServerVersion = "1.0.0"
)

// Tool names that are not registry commands
const (
	ToolListCameras  = "list_cameras"
	ToolSwitchCamera = "switch_camera"
	ToolStatus       = "camera_status"
)

// Server wraps an MCP server bound to one camera client
type Server struct {
	mu     sync.Mutex
	client *camera.Client
	server *server.MCPServer
	tools  []server.ServerTool
	errors *errors.Handler
	logger *logging.Logger
}

// NewServer builds the tool set from the client's registry
func NewServer(client *camera.Client, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.For("mcp")
	}
	s := &Server{
		client: client,
		server: server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		errors: errors.NewHandler(),
		logger: logger,
	}

	for _, spec := range client.Registry().Commands() {
		s.tools = append(s.tools, server.ServerTool{
			Tool:    CommandTool(spec),
			Handler: s.commandHandler(spec.Name),
		})
	}
	s.tools = append(s.tools,
		server.ServerTool{
			Tool:    mcp.NewTool(ToolListCameras, mcp.WithDescription("List the configured camera aliases and the current target")),
			Handler: s.handleListCameras,
		},
		server.ServerTool{
			Tool: mcp.NewTool(ToolSwitchCamera,
				mcp.WithDescription("Switch the target camera. The session is discarded."),
				mcp.WithString("camera", mcp.Description("Camera alias"), mcp.Enum(client.Cameras()...)),
				mcp.WithString("host", mcp.Description("Explicit host or IP overriding the alias")),
			),
			Handler: s.handleSwitchCamera,
		},
		server.ServerTool{
			Tool:    mcp.NewTool(ToolStatus, mcp.WithDescription("Sample position, zoom and speed of the current camera")),
			Handler: s.handleStatus,
		},
	)
	s.server.AddTools(s.tools...)
	return s
}

// CommandTool declares the MCP tool for a registry command
func CommandTool(spec *commands.CommandSpec) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(fmt.Sprintf("%s (Nexus action %s)", spec.Description, spec.Action))}
	for _, p := range spec.Params {
		propOpts := []mcp.PropertyOption{mcp.Description(paramHelp(p))}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		switch p.Kind {
		case commands.KindFloat, commands.KindInt:
			opts = append(opts, mcp.WithNumber(p.Name, propOpts...))
		case commands.KindBool:
			opts = append(opts, mcp.WithBoolean(p.Name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, propOpts...))
		}
	}
	return mcp.NewTool(spec.Name, opts...)
}

func paramHelp(p commands.ParamSpec) string {
	help := p.Help
	if help == "" {
		help = p.Name
	}
	if p.Kind == commands.KindInt {
		help += " (integer)"
	}
	if p.HasDefault() {
		help += fmt.Sprintf(" Default %s.", *p.Default)
	}
	return help
}

// Tools returns the registered tools in registration order
func (s *Server) Tools() []server.ServerTool {
	return s.tools
}

// Serve runs the stdio transport until the client disconnects
func (s *Server) Serve() error {
	s.logger.Info("Started stdio MCP server", "tools", len(s.tools), "camera", s.client.Camera())
	defer s.logger.Info("Shut down stdio MCP server")
	return server.ServeStdio(s.server)
}

func (s *Server) commandHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.mu.Lock()
		resp, err := s.client.Execute(ctx, name, request.GetArguments())
		s.mu.Unlock()
		if err != nil {
			return s.toolError(err), nil
		}
		return jsonResult(resp)
	}
}

func (s *Server) handleListCameras(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	host, _ := s.client.Host()
	return jsonResult(map[string]any{
		"cameras": s.client.Cameras(),
		"current": s.client.Camera(),
		"host":    host,
	})
}

func (s *Server) handleSwitchCamera(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	alias := request.GetString("camera", "")
	host := request.GetString("host", "")
	if alias == "" && host == "" {
		return mcp.NewToolResultError("camera or host is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.client.SetCamera(alias, host); err != nil {
		return s.toolError(err), nil
	}
	resolved, _ := s.client.Host()
	return jsonResult(map[string]any{"camera": s.client.Camera(), "host": resolved})
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	report, err := s.client.Status(ctx)
	s.mu.Unlock()
	if err != nil {
		return s.toolError(err), nil
	}
	return jsonResult(report)
}

func (s *Server) toolError(err error) *mcp.CallToolResult {
	report := s.errors.Process(err)
	s.logger.Warn("Tool call failed", "kind", report.Kind, "error", report.Message)
	body, mErr := codec.Marshal(map[string]any{"error": report})
	if mErr != nil {
		return mcp.NewToolResultError(report.Message)
	}
	return mcp.NewToolResultError(string(body))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	body, err := codec.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(body)), nil
}
