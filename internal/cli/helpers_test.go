package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const notesSchema = `types: {
	Note: {
		attributes: close({
			id:   int
			text: string
		})
		relations: tag: {target: "Tag"}
	}
	Tag: {
		attributes: close({
			id:   int
			name: string
		})
	}
}
`

const noteScenario = `name: note_with_tag
schema: ../notes.cue
steps:
  - op: upsert
    type: Note
    records:
      - {id: 1, text: hi, tag: {id: 7, name: red}}
assertions:
  - type: entity
    key: Note|1
    relations: {tag: Tag|7}
`

const failingScenario = `name: wrong_tag
schema: ../notes.cue
steps:
  - op: upsert
    type: Note
    records:
      - {id: 1, text: hi, tag: {id: 7, name: red}}
assertions:
  - type: entity
    key: Note|1
    relations: {tag: Tag|8}
`

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// workspace lays out dir/notes.cue and dir/scenarios/<name>.yaml.
func workspace(t *testing.T, scenarios map[string]string) (dir string) {
	t.Helper()
	dir = t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.cue"), notesSchema)
	for name, body := range scenarios {
		writeFile(t, filepath.Join(dir, "scenarios", name+".yaml"), body)
	}
	return dir
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
