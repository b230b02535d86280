// Package console implements the interactive terminal console: a command list,
// a parameter form, and the highlighted response of the last dispatch.
package console

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nexus-ptz/ptzctl/internal/commands"
	"github.com/nexus-ptz/ptzctl/internal/content"
	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/logging"
	"github.com/nexus-ptz/ptzctl/internal/transport"
	"github.com/nexus-ptz/ptzctl/internal/ui/components"
)

// Camera is the part of the camera client the console drives
type Camera interface {
	Registry() *commands.Registry
	Execute(ctx context.Context, name string, params map[string]any) (transport.Response, error)
	Camera() string
	Cameras() []string
	SetCamera(alias, host string) error
	Host() (string, error)
}

// FocusState represents which part of the console is focused.
type FocusState int

const (
	FocusList FocusState = iota
	FocusForm
)

const maxHistory = 20

// HistoryEntry records one dispatch
type HistoryEntry struct {
	Command  string
	Camera   string
	At       time.Time
	Duration time.Duration
	OK       bool
}

// Model is the bubbletea model of the console
type Model struct {
	camera   Camera
	renderer *content.Renderer
	errors   *errors.Handler
	logger   *logging.Logger
	timeout  time.Duration

	specs        []*commands.CommandSpec
	selected     int
	focusState   FocusState
	inputs       []textinput.Model
	focusedInput int

	spinner spinner.Model
	busy    bool
	status  string
	output  string
	err     *errors.Report
	history []HistoryEntry

	width  int
	height int
}

// NewModel creates a console for cam. timeout bounds each dispatch; zero
// leaves it to the transport.
func NewModel(cam Camera, renderer *content.Renderer, timeout time.Duration) *Model {
	if renderer == nil {
		renderer = content.NewRenderer("")
	}
	return &Model{
		camera:   cam,
		renderer: renderer,
		errors:   errors.NewHandler(),
		logger:   logging.For("ui"),
		timeout:  timeout,
		specs:    cam.Registry().Commands(),
		spinner:  components.NewSpinner(),
	}
}

// Init is the first command that will be executed.
func (m *Model) Init() tea.Cmd {
	return nil
}

// History returns the recent dispatches, newest last
func (m *Model) History() []HistoryEntry {
	return m.history
}

// Selected returns the highlighted command
func (m *Model) Selected() *commands.CommandSpec {
	if m.selected < 0 || m.selected >= len(m.specs) {
		return nil
	}
	return m.specs[m.selected]
}

// resultMsg carries the outcome of a dispatch back into Update.
type resultMsg struct {
	command  string
	camera   string
	resp     transport.Response
	err      error
	duration time.Duration
}

// dispatch runs the command off the UI goroutine. Only one dispatch is in
// flight at a time because input is ignored while busy.
func (m *Model) dispatch(name string, params map[string]any) tea.Cmd {
	cam := m.camera
	timeout := m.timeout
	alias := cam.Camera()
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		start := time.Now()
		resp, err := cam.Execute(ctx, name, params)
		return resultMsg{command: name, camera: alias, resp: resp, err: err, duration: time.Since(start)}
	}
}

// openForm builds one text input per declared parameter.
func (m *Model) openForm(spec *commands.CommandSpec) tea.Cmd {
	m.inputs = make([]textinput.Model, len(spec.Params))
	for i, p := range spec.Params {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 64
		ti.Width = 24
		ti.Placeholder = p.Kind.String()
		if p.HasDefault() {
			ti.Placeholder = *p.Default
		}
		m.inputs[i] = ti
	}
	m.focusedInput = 0
	m.focusState = FocusForm
	return m.inputs[0].Focus()
}

// formParams collects the non-empty inputs. Empty fields are left out so the
// registry defaults and required checks apply.
func (m *Model) formParams(spec *commands.CommandSpec) map[string]any {
	params := make(map[string]any)
	for i, p := range spec.Params {
		if i >= len(m.inputs) {
			break
		}
		if v := strings.TrimSpace(m.inputs[i].Value()); v != "" {
			params[p.Name] = v
		}
	}
	return params
}

func (m *Model) closeForm() {
	m.inputs = nil
	m.focusedInput = 0
	m.focusState = FocusList
}

func (m *Model) record(msg resultMsg) {
	m.history = append(m.history, HistoryEntry{
		Command:  msg.command,
		Camera:   msg.camera,
		At:       time.Now(),
		Duration: msg.duration,
		OK:       msg.err == nil,
	})
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

// nextCamera returns the alias after the current one in sorted order.
func nextCamera(aliases []string, current string) string {
	if len(aliases) == 0 {
		return ""
	}
	for i, a := range aliases {
		if a == current {
			return aliases[(i+1)%len(aliases)]
		}
	}
	return aliases[0]
}
