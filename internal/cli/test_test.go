package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandNonExistentSchemasDir(t *testing.T) {
	dir := workspace(t, nil)
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--schemas", "/nonexistent/schemas")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schemas directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyDirJSON(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
}

func TestTestCommandPassing(t *testing.T) {
	dir := workspace(t, map[string]string{"note_with_tag": noteScenario})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(dir, "scenarios"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ note_with_tag")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFailing(t *testing.T) {
	dir := workspace(t, map[string]string{
		"note_with_tag": noteScenario,
		"wrong_tag":     failingScenario,
	})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), filepath.Join(dir, "scenarios"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.Equal(t, 2, resp.Data.Total)
}

func TestTestCommandFilter(t *testing.T) {
	dir := workspace(t, map[string]string{
		"note_with_tag": noteScenario,
		"wrong_tag":     failingScenario,
	})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(dir, "scenarios"), "--filter", "note_*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "wrong_tag")
}

func TestTestCommandInvalidFilter(t *testing.T) {
	dir := workspace(t, map[string]string{"note_with_tag": noteScenario})

	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(dir, "scenarios"), "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandSchemasFlag(t *testing.T) {
	dir := workspace(t, nil)
	scenario := `name: from_schemas_dir
schema: notes.cue
steps:
  - op: upsert
    type: Tag
    records: [{id: 1, name: red}]
`
	writeFile(t, filepath.Join(dir, "elsewhere", "s.yaml"), scenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(dir, "elsewhere"), "--schemas", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ from_schemas_dir")
}

func TestTestCommandGoldenRoundTrip(t *testing.T) {
	dir := workspace(t, map[string]string{"note_with_tag": noteScenario})
	scenarios := filepath.Join(dir, "scenarios")
	goldenPath := filepath.Join(scenarios, "golden", "note_with_tag.golden")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ note_with_tag (golden updated)")

	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"note_with_tag"`)

	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario_name":"note_with_tag","trace":[]}`), 0o644))
	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")
}
