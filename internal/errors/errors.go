// Package errors implements the error taxonomy used across ptzctl.
// Caller and configuration mistakes are reported with the list of valid options,
// while device and network failures keep their transport diagnostic as the cause.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind categorizes errors for handling and exit status selection
type Kind string

const (
	KindUnknownCommand        Kind = "unknown_command"
	KindUnknownCamera         Kind = "unknown_camera"
	KindMissingParameter      Kind = "missing_parameter"
	KindUnexpectedParameter   Kind = "unexpected_parameter"
	KindInvalidParameterValue Kind = "invalid_parameter_value"
	KindAuthenticationFailed  Kind = "authentication_failed"
	KindCommandFailed         Kind = "command_failed"
	KindConfiguration         Kind = "configuration"
	KindTransport             Kind = "transport"
)

// Sentinels for errors.Is comparisons by kind.
var (
	ErrUnknownCommand        = &Error{Kind: KindUnknownCommand}
	ErrUnknownCamera         = &Error{Kind: KindUnknownCamera}
	ErrMissingParameter      = &Error{Kind: KindMissingParameter}
	ErrUnexpectedParameter   = &Error{Kind: KindUnexpectedParameter}
	ErrInvalidParameterValue = &Error{Kind: KindInvalidParameterValue}
	ErrAuthenticationFailed  = &Error{Kind: KindAuthenticationFailed}
	ErrCommandFailed         = &Error{Kind: KindCommandFailed}
	ErrConfiguration         = &Error{Kind: KindConfiguration}
)

// Error is the single structured error type returned by ptzctl components
type Error struct {
	Kind    Kind     `json:"kind"`
	Message string   `json:"message"`
	Command string   `json:"command,omitempty"`
	Param   string   `json:"param,omitempty"`
	Options []string `json:"options,omitempty"`
	Cause   error    `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap provides access to the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so the sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// IsCallerError reports whether the error stems from caller input or configuration
// rather than device state. Caller errors are never retried.
func (e *Error) IsCallerError() bool {
	switch e.Kind {
	case KindUnknownCommand, KindUnknownCamera, KindMissingParameter,
		KindUnexpectedParameter, KindInvalidParameterValue, KindConfiguration:
		return true
	default:
		return false
	}
}

// Retryable reports whether the failure may clear after a forced reauthentication.
// Only transport-level failures qualify.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransport
}

// ErrorBuilder provides a fluent interface for creating structured errors
type ErrorBuilder struct {
	err *Error
}

// NewErrorBuilder creates a new error builder for the given kind
func NewErrorBuilder(kind Kind) *ErrorBuilder {
	return &ErrorBuilder{err: &Error{Kind: kind}}
}

// WithMessage sets the error message
func (eb *ErrorBuilder) WithMessage(format string, args ...interface{}) *ErrorBuilder {
	eb.err.Message = fmt.Sprintf(format, args...)
	return eb
}

// WithCommand records the command the error relates to
func (eb *ErrorBuilder) WithCommand(command string) *ErrorBuilder {
	eb.err.Command = command
	return eb
}

// WithParam records the parameter the error relates to
func (eb *ErrorBuilder) WithParam(param string) *ErrorBuilder {
	eb.err.Param = param
	return eb
}

// WithOptions records the valid alternatives
func (eb *ErrorBuilder) WithOptions(options []string) *ErrorBuilder {
	eb.err.Options = append([]string(nil), options...)
	return eb
}

// WithCause sets the underlying error
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.err.Cause = cause
	return eb
}

// Build returns the constructed error
func (eb *ErrorBuilder) Build() *Error {
	return eb.err
}

// UnknownCommand reports a command name missing from the registry.
func UnknownCommand(name string, available []string) *Error {
	return NewErrorBuilder(KindUnknownCommand).
		WithMessage("unknown command '%s'. Available: %s", name, strings.Join(available, ", ")).
		WithCommand(name).
		WithOptions(available).
		Build()
}

// UnknownCamera reports an alias missing from the camera table.
func UnknownCamera(alias string, known []string) *Error {
	return NewErrorBuilder(KindUnknownCamera).
		WithMessage("unknown camera alias '%s'. Known aliases: %s", alias, strings.Join(known, ", ")).
		WithOptions(known).
		Build()
}

// MissingParameter reports a required parameter that was not supplied.
func MissingParameter(command, param string) *Error {
	return NewErrorBuilder(KindMissingParameter).
		WithMessage("missing required parameter '%s' for command '%s'", param, command).
		WithCommand(command).
		WithParam(param).
		Build()
}

// UnexpectedParameter reports supplied parameters the command does not declare.
func UnexpectedParameter(command string, extras, declared []string) *Error {
	return NewErrorBuilder(KindUnexpectedParameter).
		WithMessage("unexpected parameter(s) for '%s': %s. Supported: %s",
			command, strings.Join(extras, ", "), supported(declared)).
		WithCommand(command).
		WithParam(strings.Join(extras, ",")).
		WithOptions(declared).
		Build()
}

// InvalidParameterValue reports a value that cannot be coerced to the declared type.
func InvalidParameterValue(param, value, expected string, accepted []string) *Error {
	b := NewErrorBuilder(KindInvalidParameterValue).WithParam(param)
	if len(accepted) > 0 {
		b.WithMessage("parameter '%s' expects a %s value, got '%s'. Supported inputs: %s",
			param, expected, value, strings.Join(accepted, ", ")).WithOptions(accepted)
	} else {
		b.WithMessage("unable to convert '%s'='%s' to %s", param, value, expected)
	}
	return b.Build()
}

// AuthenticationFailed wraps a failed session exchange.
func AuthenticationFailed(cause error) *Error {
	return NewErrorBuilder(KindAuthenticationFailed).
		WithMessage("unable to authenticate with camera").
		WithCause(cause).
		Build()
}

// CommandFailed wraps the transport diagnostic of a command that exhausted its retry.
func CommandFailed(command string, cause error) *Error {
	return NewErrorBuilder(KindCommandFailed).
		WithMessage("command '%s' failed", command).
		WithCommand(command).
		WithCause(cause).
		Build()
}

// Configuration reports an invalid or unreadable configuration.
func Configuration(cause error, format string, args ...interface{}) *Error {
	return NewErrorBuilder(KindConfiguration).
		WithMessage(format, args...).
		WithCause(cause).
		Build()
}

func supported(declared []string) string {
	if len(declared) == 0 {
		return "none"
	}
	return strings.Join(declared, ", ")
}

// Retryable reports whether err may clear after a forced reauthentication.
// An error outside the taxonomy, such as a *transport.Error, counts as a
// transport failure.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Retryable()
	}
	return true
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is and As forward to the standard library so callers need a single import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// New forwards to the standard library errors.New.
func New(text string) error { return stderrors.New(text) }
