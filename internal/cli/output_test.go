package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]string{"key": "Post|abc"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"key": "Post|abc"}, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Error(ErrCodeDefinition, "Note.tag: target is required", "notes.cue:3:8"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDefinition, resp.Error.Code)
	assert.Equal(t, "notes.cue:3:8", resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Error(ErrCodeNotFound, "schema not found: x.cue", "ignored"))
	assert.Equal(t, "Error [E005]: schema not found: x.cue\n", buf.String())

	buf.Reset()
	f.Verbose = true
	require.NoError(t, f.Error(ErrCodeNotFound, "schema not found: x.cue", "extra"))
	assert.Contains(t, buf.String(), "Details: extra")
}

func TestOutputFormatter_VerboseGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	diag := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag}

	f.VerboseLog("quiet %d", 1)
	assert.Empty(t, diag.String())

	f.Verbose = true
	f.VerboseLog("loaded %d types", 2)
	f.Logger().Debug("step completed", "op", "upsert")
	assert.Empty(t, out.String())
	assert.Contains(t, diag.String(), "loaded 2 types")
	assert.Contains(t, diag.String(), "op=upsert")
}

func TestOutputFormatter_LoggerQuietByDefault(t *testing.T) {
	diag := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: diag}

	f.Logger().Debug("hidden")
	f.Logger().Warn("shown")
	assert.NotContains(t, diag.String(), "hidden")
	assert.Contains(t, diag.String(), "shown")
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"wrapped", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "bad path")), ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	cause := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "failed to load scenario", cause)
	assert.Equal(t, "failed to load scenario: no such file", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bad path", NewExitError(ExitFailure, "bad path").Error())
}
