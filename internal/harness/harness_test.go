package harness

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func blogScenario(steps []Step, assertions []Assertion) *Scenario {
	return &Scenario{
		Name:       "inline",
		Schema:     filepath.Join("testdata", "schemas", "blog.cue"),
		Steps:      steps,
		Assertions: assertions,
	}
}

func TestRun_Scenarios(t *testing.T) {
	names := []string{
		"upsert_nested",
		"expunge_comment",
		"query_paging",
		"lifecycle_memory",
		"sqlite_pages",
		"unconfigured",
		"note_with_tag",
		"fetch_note",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.NotEmpty(t, result.Hash)
		})
	}
}

func TestRun_TraceRecordsOutcomeKinds(t *testing.T) {
	result, err := Run(loadTestScenario(t, "lifecycle_memory"))
	require.NoError(t, err)

	kinds := make([]string, 0, len(result.Trace))
	for _, ev := range result.Trace {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []string{"query", "fetch", "update:error", "fetch:error", "delete", "create"}, kinds)
	assert.Equal(t, 3, result.Trace[2].Step)
	assert.Equal(t, OpUpdate, result.Trace[2].Op)
	assert.Equal(t, "mapper: title: already used", result.Trace[2].Message)
}

func TestRun_Deterministic(t *testing.T) {
	s := loadTestScenario(t, "lifecycle_memory")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, first.Hash, second.Hash)
}

func TestRun_BackendsAgree(t *testing.T) {
	s := loadTestScenario(t, "sqlite_pages")
	onSQLite, err := Run(s)
	require.NoError(t, err)

	s.Backend = BackendMemory
	inMemory, err := Run(s)
	require.NoError(t, err)

	assert.True(t, inMemory.Pass, "errors: %v", inMemory.Errors)
	assert.Equal(t, onSQLite.Hash, inMemory.Hash)
}

func TestRun_FailingAssertion(t *testing.T) {
	s := blogScenario(
		[]Step{{Op: OpUpsert, Type: "Post", Records: []map[string]any{{"id": 1, "title": "a"}}}},
		[]Assertion{
			{Type: AssertEntity, Key: "Post|1", Attributes: map[string]any{"title": "b"}},
			{Type: AssertCount, Count: 1},
		},
	)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[0], `Expected: "b"`)
	assert.Contains(t, result.Errors[0], `Actual: "a"`)
}

func TestRun_StepErrorStopsScenario(t *testing.T) {
	s := blogScenario(
		[]Step{
			{Op: OpUpsert, Type: "Post", Records: []map[string]any{{"id": 1, "comments": 5}}},
			{Op: OpUpsert, Type: "Post", Records: []map[string]any{{"id": 2, "title": "b"}}},
		},
		[]Assertion{{Type: AssertCount, Count: 99}},
	)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1, "assertions are skipped after a step error")
	assert.Contains(t, result.Errors[0], "steps[0] upsert")
	assert.Contains(t, result.Errors[0], "not a sequence")
	assert.Len(t, result.Trace, 1)
}

func TestRun_ExpectErrorMismatch(t *testing.T) {
	s := blogScenario(
		[]Step{
			{Op: OpUpsert, Type: "Post", Records: []map[string]any{{"id": 1, "title": "a"}}, ExpectError: "boom"},
			{Op: OpUpsert, Type: "Post", Records: []map[string]any{{"title": "a"}}, ExpectError: "boom"},
		},
		nil,
	)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "got none")
	assert.Contains(t, result.Errors[1], "record has no id")
}

func TestRun_ExpectKindMismatch(t *testing.T) {
	s := blogScenario(
		[]Step{{Op: OpFetch, Type: "Post", ID: 1, ExpectKind: "fetch"}},
		nil,
	)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected outcome "fetch", got "fetch:error"`)
}

func TestRun_UpsertWithStateAndErrors(t *testing.T) {
	s := blogScenario(
		[]Step{{
			Op:      OpUpsert,
			Type:    "Post",
			Records: []map[string]any{{"id": 1, "title": "a", "author": map[string]any{"id": 2, "name": "Bo"}}},
			State:   "deleted",
			Errors:  map[string]string{"title": "bad"},
		}},
		[]Assertion{
			{Type: AssertEntity, Key: "Post|1", State: "deleted", Errors: map[string]string{"title": "bad"}},
			{Type: AssertEntity, Key: "Author|2", State: "deleted", Errors: map[string]string{}},
		},
	)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnknownState(t *testing.T) {
	s := blogScenario(
		[]Step{{Op: OpUpsert, Type: "Post", Records: []map[string]any{{"id": 1}}, State: "sleeping"}},
		nil,
	)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `unknown entity state "sleeping"`)
}

func TestRun_UpdateOfUnstoredEntity(t *testing.T) {
	s := blogScenario(
		[]Step{{Op: OpUpdate, Type: "Post", ID: 5, Record: map[string]any{"title": "x"}}},
		nil,
	)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Post 5 is not stored")
}

func TestRun_SetupErrors(t *testing.T) {
	t.Run("missing schema", func(t *testing.T) {
		s := blogScenario([]Step{{Op: OpQuery, Type: "Post"}}, nil)
		s.Schema = filepath.Join(t.TempDir(), "missing.cue")
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load schema")
	})

	t.Run("seed for unknown type", func(t *testing.T) {
		s := blogScenario([]Step{{Op: OpQuery, Type: "Post"}}, nil)
		s.Seed = map[string][]map[string]any{"Ghost": {{"id": 1}}}
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to prepare backend")
	})

	t.Run("seed without id", func(t *testing.T) {
		s := blogScenario([]Step{{Op: OpQuery, Type: "Post"}}, nil)
		s.Seed = map[string][]map[string]any{"Post": {{"title": "a"}}}
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record has no id")
	})
}

func TestRun_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Run(loadTestScenario(t, "upsert_nested"), WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "step completed")
}

func TestRunner_CloseLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	calls := 0
	r := &runner{
		logger: slog.New(slog.NewTextHandler(&buf, nil)),
		closers: []func() error{
			func() error { calls++; return errors.New("disk gone") },
			func() error { calls++; return nil },
		},
	}
	r.close()

	assert.Equal(t, 2, calls, "a failing closer does not stop the rest")
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "failed to close backend")
	assert.Contains(t, out, "disk gone")
}
