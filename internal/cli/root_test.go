package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"validate", "hash", "run", "test"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommandRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, NewRootCommand(), "--format", "yaml", "hash", "Post")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestRootCommandJSONFormatFlag(t *testing.T) {
	out, err := execute(t, NewRootCommand(), "--format", "json", "hash", "Post", `{}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
}
