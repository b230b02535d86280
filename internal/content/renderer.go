// Package content renders camera responses, command tables and errors for
// terminal output. JSON is highlighted with chroma and styled with lipgloss.
package content

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"github.com/charmbracelet/lipgloss"
	jsoniter "github.com/json-iterator/go"

	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/transport"
)

// map keys are emitted sorted
var codec = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

// SyntaxHighlighter highlights code using chroma
type SyntaxHighlighter struct {
	formatter chroma.Formatter
	style     *chroma.Style
	theme     string
}

// NewSyntaxHighlighter creates a highlighter. Unknown names fall back to the
// chroma defaults.
func NewSyntaxHighlighter(themeName, formatterName string) *SyntaxHighlighter {
	formatter := formatters.Get(formatterName)
	if formatter == nil {
		formatter = formatters.Fallback
	}
	style := styles.Get(themeName)
	if style == nil {
		style = styles.GitHub
	}
	return &SyntaxHighlighter{
		formatter: formatter,
		style:     style,
		theme:     themeName,
	}
}

// Highlight returns code with ANSI colouring. On failure code is returned as is
// together with the error.
func (sh *SyntaxHighlighter) Highlight(code, language string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}
	var highlighted strings.Builder
	if err := sh.formatter.Format(&highlighted, sh.style, iterator); err != nil {
		return code, err
	}
	return highlighted.String(), nil
}

// SetTheme switches the chroma style
func (sh *SyntaxHighlighter) SetTheme(themeName string) error {
	style, ok := styles.Registry[themeName]
	if !ok {
		return fmt.Errorf("theme '%s' not found", themeName)
	}
	sh.style = style
	sh.theme = themeName
	return nil
}

// Theme returns the active chroma style name
func (sh *SyntaxHighlighter) Theme() string {
	return sh.theme
}

// Styles groups the lipgloss styles used for terminal output
type Styles struct {
	Error       lipgloss.Style
	ErrorDetail lipgloss.Style
	Hint        lipgloss.Style
	Header      lipgloss.Style
	Success     lipgloss.Style
	Muted       lipgloss.Style
}

// DefaultStyles returns the stock palette
func DefaultStyles() Styles {
	return Styles{
		Error:       lipgloss.NewStyle().Foreground(lipgloss.Color("#dc3545")).Bold(true),
		ErrorDetail: lipgloss.NewStyle().Foreground(lipgloss.Color("#dc3545")),
		Hint:        lipgloss.NewStyle().Foreground(lipgloss.Color("#17a2b8")),
		Header:      lipgloss.NewStyle().Bold(true).Underline(true),
		Success:     lipgloss.NewStyle().Foreground(lipgloss.Color("#28a745")),
		Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("#6c757d")),
	}
}

// Renderer formats output for the CLI and the console
type Renderer struct {
	highlighter *SyntaxHighlighter
	styles      Styles
}

// NewRenderer creates a renderer using theme for JSON highlighting
func NewRenderer(theme string) *Renderer {
	if theme == "" {
		theme = DefaultTheme
	}
	return &Renderer{
		highlighter: NewSyntaxHighlighter(theme, DefaultFormatter),
		styles:      DefaultStyles(),
	}
}

// Styles returns the lipgloss palette
func (r *Renderer) Styles() Styles {
	return r.styles
}

// FormatResponse renders a response. A body that was not a JSON object is
// printed verbatim.
func (r *Renderer) FormatResponse(resp transport.Response, f Format) (string, error) {
	if raw, ok := resp.Raw(); ok && len(resp) == 1 {
		return raw, nil
	}

	var (
		body []byte
		err  error
	)
	if f.Pretty {
		body, err = codec.MarshalIndent(resp, "", "  ")
	} else {
		body, err = codec.Marshal(resp)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode response: %w", err)
	}
	if !f.Color {
		return string(body), nil
	}

	highlighter := r.highlighter
	if f.Theme != "" && f.Theme != highlighter.Theme() {
		highlighter = NewSyntaxHighlighter(f.Theme, DefaultFormatter)
	}
	out, err := highlighter.Highlight(string(body), "json")
	if err != nil {
		return string(body), nil
	}
	return strings.TrimRight(out, "\n"), nil
}

// FormatResponse renders resp with a default renderer
func FormatResponse(resp transport.Response, f Format) (string, error) {
	return NewRenderer(f.Theme).FormatResponse(resp, f)
}

// RenderTable lays out rows under headers. Cells wider than the column cap are
// truncated with "...".
func (r *Renderer) RenderTable(t Table, styled bool) string {
	if len(t.Headers) == 0 {
		return ""
	}
	widths := columnWidths(t)

	lines := []string{formatRow(t.Headers, widths, r.headerStyle(styled))}
	var parts []string
	for _, w := range widths {
		parts = append(parts, strings.Repeat("-", w))
	}
	lines = append(lines, strings.Join(parts, "  "))
	for _, row := range t.Rows {
		lines = append(lines, formatRow(row, widths, nil))
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) headerStyle(styled bool) *lipgloss.Style {
	if !styled {
		return nil
	}
	s := r.styles.Header
	return &s
}

func columnWidths(t Table) []int {
	maxWidth := t.MaxWidth
	if maxWidth <= 0 {
		maxWidth = DefaultMaxColumnWidth
	}
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	for i := range widths {
		if widths[i] < minColumnWidth {
			widths[i] = minColumnWidth
		}
		if widths[i] > maxWidth {
			widths[i] = maxWidth
		}
	}
	return widths
}

func formatRow(cells []string, widths []int, style *lipgloss.Style) string {
	var formatted []string
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if len(cell) > width {
			cell = cell[:width-3] + "..."
		}
		// the last column is not padded
		if i < len(widths)-1 {
			cell = fmt.Sprintf("%-*s", width, cell)
		}
		if style != nil {
			cell = style.Render(cell)
		}
		formatted = append(formatted, cell)
	}
	return strings.Join(formatted, "  ")
}

// RenderError formats an error report. styled adds lipgloss colouring.
func (r *Renderer) RenderError(report *errors.Report, styled bool) string {
	if report == nil {
		return ""
	}
	render := func(s lipgloss.Style, text string) string {
		if styled {
			return s.Render(text)
		}
		return text
	}

	var b strings.Builder
	b.WriteString(render(r.styles.Error, fmt.Sprintf("Error [%s]", report.Kind)))
	b.WriteString(" ")
	b.WriteString(render(r.styles.ErrorDetail, report.Message))
	if len(report.Options) > 0 {
		b.WriteString("\n  ")
		b.WriteString(render(r.styles.Muted, "options: "+strings.Join(report.Options, ", ")))
	}
	if report.Hint != "" {
		b.WriteString("\n  ")
		b.WriteString(render(r.styles.Hint, report.Hint))
	}
	return b.String()
}
