package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ordex/internal/errs"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"key": "Smith"}
	err := formatter.Error(ErrCodeUniqueness, "entity already indexed", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUniqueness, resp.Error.Code)
	assert.Equal(t, "entity already indexed", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccessUsesStringer(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success(SortResult{Direction: "ascending"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "sorted 0 entries ascending")
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			err := formatter.Error(ErrCodeParse, "failed to parse fixture", map[string]int{"line": 3})
			require.NoError(t, err)
			assert.Contains(t, buf.String(), "Error [E002]: failed to parse fixture")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			diag := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: diag,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Loaded %d entities", 6)

			assert.Empty(t, out.String(), "diagnostics never reach stdout")
			if tt.wantLog {
				assert.Contains(t, diag.String(), "Loaded 6 entities")
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"key not found", errs.NewKeyNotFound("k"), ErrCodeKeyNotFound},
		{"uniqueness", errs.NewUniquenessViolation("k", 1), ErrCodeUniqueness},
		{"invalid argument", errs.NewInvalidArgument("bad", nil), ErrCodeInvalidArgument},
		{"wrapped", fmt.Errorf("entries[0]: %w", errs.NewTypeMismatch("key", "string", 1)), ErrCodeInvalidArgument},
		{"foreign", errors.New("boom"), ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeFor(tt.err))
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "E102", errors.New("dup"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := WrapExitError(ExitFailure, "E102", errs.ErrUniquenessViolation)
	assert.True(t, errors.Is(wrapped, errs.ErrUniquenessViolation))
	assert.Equal(t, "E102: UNIQUENESS_VIOLATION: entity already indexed", wrapped.Error())
}
