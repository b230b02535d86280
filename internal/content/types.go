package content

// Format selects how a camera response is printed
type Format struct {
	// Pretty indents JSON output
	Pretty bool
	// Color highlights JSON output with ANSI escapes
	Color bool
	// Theme names a chroma style. Empty selects DefaultTheme.
	Theme string
}

// Table is a simple column layout used by the command listing
type Table struct {
	Headers []string
	Rows    [][]string
	// MaxWidth caps each column. Zero selects DefaultMaxColumnWidth.
	MaxWidth int
}

// Rendering defaults
const (
	DefaultTheme          = "github"
	DefaultFormatter      = "terminal256"
	DefaultMaxColumnWidth = 60
	minColumnWidth        = 6
)
