package errors

import (
	"net/http"
	"time"
)

// Report is an error prepared for display by the CLI, the HTTP bridge and the console.
type Report struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Command   string    `json:"command,omitempty"`
	Param     string    `json:"param,omitempty"`
	Options   []string  `json:"options,omitempty"`
	Hint      string    `json:"hint,omitempty"`
}

// Handler turns errors into Reports.
type Handler struct {
	now func() time.Time
}

// NewHandler creates a new error handler.
func NewHandler() *Handler {
	return &Handler{now: time.Now}
}

// Process transforms any error into a Report. Errors outside the taxonomy are
// reported as command failures.
func (h *Handler) Process(err error) *Report {
	if err == nil {
		return nil
	}
	report := &Report{Timestamp: h.now(), Message: err.Error()}

	var e *Error
	if !As(err, &e) {
		report.Kind = KindCommandFailed
		return report
	}
	report.Kind = e.Kind
	report.Command = e.Command
	report.Param = e.Param
	report.Options = e.Options
	report.Hint = hintFor(e.Kind)
	return report
}

func hintFor(kind Kind) string {
	switch kind {
	case KindUnknownCommand:
		return "run 'ptzctl list' to see the available commands"
	case KindUnknownCamera:
		return "pick one of the configured camera aliases or pass --host"
	case KindMissingParameter, KindUnexpectedParameter, KindInvalidParameterValue:
		return "check the parameter list with 'ptzctl list'"
	case KindAuthenticationFailed:
		return "check that the camera is reachable and the credentials are correct"
	case KindCommandFailed:
		return "the camera rejected or did not answer the request"
	case KindConfiguration:
		return "fix the configuration file or run 'ptzctl config init'"
	default:
		return ""
	}
}

// HTTPStatus maps an error to the status code used by the HTTP bridge.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnknownCommand:
		return http.StatusNotFound
	case KindUnknownCamera, KindMissingParameter, KindUnexpectedParameter, KindInvalidParameterValue:
		return http.StatusBadRequest
	case KindAuthenticationFailed, KindCommandFailed, KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode maps an error to the CLI exit status: 0 on success, 2 for caller
// mistakes and 1 for device or network failures.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if As(err, &e) && e.IsCallerError() {
		return 2
	}
	return 1
}
