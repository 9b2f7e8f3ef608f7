package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/ordex/internal/errs"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Domain failure (uniqueness violation, bad fixture data)
	ExitCommandError = 2 // Command error (missing file, bad config, parse error)
)

// Error codes reported in CLI output.
const (
	ErrCodeGeneric         = "E001" // Generic/unknown error
	ErrCodeParse           = "E002" // Fixture parse error
	ErrCodeConfig          = "E003" // Config load or validation error
	ErrCodeNotFound        = "E005" // Path not found
	ErrCodeKeyNotFound     = "E101" // errs.CodeKeyNotFound
	ErrCodeUniqueness      = "E102" // errs.CodeUniquenessViolation
	ErrCodeInvalidArgument = "E103" // errs.CodeInvalidArgument
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CodeFor maps a core error to its CLI error code.
func CodeFor(err error) string {
	var e *errs.Error
	if !errors.As(err, &e) {
		return ErrCodeGeneric
	}
	switch e.Code {
	case errs.CodeKeyNotFound:
		return ErrCodeKeyNotFound
	case errs.CodeUniquenessViolation:
		return ErrCodeUniqueness
	case errs.CodeInvalidArgument:
		return ErrCodeInvalidArgument
	}
	return ErrCodeGeneric
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
// Text output prints data with fmt, so payload types implement
// fmt.Stringer.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// commandError reports a command-level failure (exit code 2).
func commandError(f *OutputFormatter, code, message string, details any) error {
	_ = f.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// domainError reports a failure raised by the core (exit code 1).
func domainError(f *OutputFormatter, err error) error {
	var details any
	var e *errs.Error
	if errors.As(err, &e) {
		details = map[string]any{"key": e.Key, "entity": e.Entity}
	}
	code := CodeFor(err)
	_ = f.Error(code, err.Error(), details)
	return WrapExitError(ExitFailure, code, err)
}
