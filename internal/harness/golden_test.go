package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/normstore/internal/ir"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"note_with_tag", "fetch_note"} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, loadTestScenario(t, name)))
		})
	}
}

func TestSnapshotJSON_Canonical(t *testing.T) {
	result := NewResult()
	result.addTrace(TraceEvent{Step: 1, Op: OpFetch, Kind: "fetch:error", Message: "x"})
	result.Dump = ir.IRObject{"queries": ir.IRObject{}, "entities": ir.IRObject{}}

	data, err := SnapshotJSON("s", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"dump":{"entities":{},"queries":{}},"scenario_name":"s","trace":[{"kind":"fetch:error","message":"x","op":"fetch","step":1}]}`,
		string(data))
}

func TestSnapshotJSON_EmptyResult(t *testing.T) {
	data, err := SnapshotJSON("empty", NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"dump":{},"scenario_name":"empty","trace":[]}`, string(data))
}

func TestWriteGolden(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "golden")
	result, err := Run(loadTestScenario(t, "note_with_tag"))
	require.NoError(t, err)

	require.NoError(t, WriteGolden(dir, "note_with_tag", result))

	written, err := os.ReadFile(filepath.Join(dir, "note_with_tag.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(GoldenDir, "note_with_tag.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))
}
