package errors

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", MissingParameter("set_zoom", "Magnification"))

	if !Is(err, ErrMissingParameter) {
		t.Fatalf("expected %v to match ErrMissingParameter", err)
	}
	if Is(err, ErrUnexpectedParameter) {
		t.Fatalf("did not expect %v to match ErrUnexpectedParameter", err)
	}
	if got := KindOf(err); got != KindMissingParameter {
		t.Fatalf("KindOf = %q, want %q", got, KindMissingParameter)
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := New("connection refused")
	err := CommandFailed("get_zoom", cause)

	if !strings.Contains(err.Error(), "get_zoom") || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !Is(err, cause) {
		t.Fatalf("expected cause to be reachable through Unwrap")
	}
}

func TestUnknownCommandListsOptions(t *testing.T) {
	err := UnknownCommand("zoom_in", []string{"get_zoom", "set_zoom"})

	if want := "unknown command 'zoom_in'. Available: get_zoom, set_zoom"; err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
	if len(err.Options) != 2 {
		t.Fatalf("Options = %v", err.Options)
	}
}

func TestCallerClassification(t *testing.T) {
	tests := []struct {
		err       *Error
		caller    bool
		exitCode  int
		httpCode  int
		retryable bool
	}{
		{UnknownCommand("x", nil), true, 2, http.StatusNotFound, false},
		{UnknownCamera("FLIR9", []string{"FLIR1"}), true, 2, http.StatusBadRequest, false},
		{InvalidParameterValue("Magnification", "abc", "float", nil), true, 2, http.StatusBadRequest, false},
		{AuthenticationFailed(New("timeout")), false, 1, http.StatusBadGateway, false},
		{CommandFailed("center", New("HTTP 500")), false, 1, http.StatusBadGateway, false},
		{NewErrorBuilder(KindTransport).WithMessage("unreachable").Build(), false, 1, http.StatusBadGateway, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			if got := tt.err.IsCallerError(); got != tt.caller {
				t.Errorf("IsCallerError = %v, want %v", got, tt.caller)
			}
			if got := ExitCode(tt.err); got != tt.exitCode {
				t.Errorf("ExitCode = %d, want %d", got, tt.exitCode)
			}
			if got := HTTPStatus(tt.err); got != tt.httpCode {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.httpCode)
			}
			if got := tt.err.Retryable(); got != tt.retryable {
				t.Errorf("Retryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestHandlerProcess(t *testing.T) {
	h := NewHandler()

	if h.Process(nil) != nil {
		t.Fatal("expected nil report for nil error")
	}

	report := h.Process(UnknownCamera("FLIR9", []string{"FLIR1", "FLIR2"}))
	if report.Kind != KindUnknownCamera || report.Hint == "" || len(report.Options) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	plain := h.Process(New("boom"))
	if plain.Kind != KindCommandFailed || plain.Message != "boom" {
		t.Fatalf("unexpected report for plain error %+v", plain)
	}
}

func TestRetryableClassifiesChains(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"untyped", New("connection refused"), true},
		{"transport kind", NewErrorBuilder(KindTransport).Build(), true},
		{"wrapped configuration", fmt.Errorf("script backend: %w", Configuration(nil, "script_dir missing")), false},
		{"command failed", CommandFailed("get_zoom", New("HTTP 500")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
