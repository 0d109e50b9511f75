package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, `
name: basic
description: "one upsert"
schema: blog.cue
backend: sqlite
seed:
  Post:
    - {id: 1, title: a}
steps:
  - op: upsert
    type: Post
    records:
      - {id: 1, title: a}
  - op: query
    type: Post
    paging: {page: 1, page_size: 10}
assertions:
  - type: entity
    key: Post|1
    attributes: {title: a}
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "basic", s.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "blog.cue"), s.Schema)
	assert.Equal(t, BackendSQLite, s.Backend)
	require.Len(t, s.Seed["Post"], 1)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, OpUpsert, s.Steps[0].Op)
	assert.Equal(t, 1, s.Steps[0].Records[0]["id"])
	require.NotNil(t, s.Steps[1].Paging)
	assert.Equal(t, 1, s.Steps[1].Paging.Page)
	assert.Equal(t, 10, s.Steps[1].Paging.PageSize)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, "Post|1", s.Assertions[0].Key)
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	path := writeScenario(t, `
name: based
schema: blog.cue
steps:
  - {op: expunge, type: Post, id: 1}
`)

	s, err := LoadScenarioWithBasePath(path, "/schemas")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/schemas", "blog.cue"), s.Schema)
}

func TestLoadScenario_AbsoluteSchemaKept(t *testing.T) {
	path := writeScenario(t, `
name: abs
schema: /opt/blog.cue
steps:
  - {op: expunge_query, type: Post}
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/blog.cue", s.Schema)
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
schema: blog.cue
step:
  - {op: upsert, type: Post}
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no name",
			yaml: "schema: a.cue\nsteps: [{op: query, type: Post}]",
			want: "name is required",
		},
		{
			name: "no schema",
			yaml: "name: x\nsteps: [{op: query, type: Post}]",
			want: "schema is required",
		},
		{
			name: "no steps",
			yaml: "name: x\nschema: a.cue",
			want: "at least one step",
		},
		{
			name: "bad backend",
			yaml: "name: x\nschema: a.cue\nbackend: redis\nsteps: [{op: query, type: Post}]",
			want: `unknown backend "redis"`,
		},
		{
			name: "seed without backend",
			yaml: "name: x\nschema: a.cue\nbackend: none\nseed: {Post: [{id: 1}]}\nsteps: [{op: query, type: Post}]",
			want: "seed requires a backend",
		},
		{
			name: "no op",
			yaml: "name: x\nschema: a.cue\nsteps: [{type: Post}]",
			want: "steps[0]: op is required",
		},
		{
			name: "unknown op",
			yaml: "name: x\nschema: a.cue\nsteps: [{op: merge, type: Post}]",
			want: `unknown op "merge"`,
		},
		{
			name: "no type",
			yaml: "name: x\nschema: a.cue\nsteps: [{op: query}]",
			want: "type is required",
		},
		{
			name: "upsert without records",
			yaml: "name: x\nschema: a.cue\nsteps: [{op: upsert, type: Post}]",
			want: "records are required",
		},
		{
			name: "fetch without id",
			yaml: "name: x\nschema: a.cue\nsteps: [{op: fetch, type: Post}]",
			want: "id is required for fetch",
		},
		{
			name: "fail on upsert",
			yaml: "name: x\nschema: a.cue\nsteps: [{op: upsert, type: Post, records: [{id: 1}], fail: {base: x}}]",
			want: "fail only applies",
		},
		{
			name: "expect_kind on expunge",
			yaml: "name: x\nschema: a.cue\nsteps: [{op: expunge, type: Post, id: 1, expect_kind: fetch}]",
			want: "expect_kind only applies",
		},
		{
			name: "entity assertion without key",
			yaml: "name: x\nschema: a.cue\nsteps: [{op: query, type: Post}]\nassertions: [{type: entity}]",
			want: "key is required for entity",
		},
		{
			name: "query assertion without type",
			yaml: "name: x\nschema: a.cue\nsteps: [{op: query, type: Post}]\nassertions: [{type: query}]",
			want: "entity_type is required",
		},
		{
			name: "negative count",
			yaml: "name: x\nschema: a.cue\nsteps: [{op: query, type: Post}]\nassertions: [{type: count, count: -1}]",
			want: "count must be non-negative",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\nschema: a.cue\nsteps: [{op: query, type: Post}]\nassertions: [{type: trace_order}]",
			want: `unknown assertion type "trace_order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
