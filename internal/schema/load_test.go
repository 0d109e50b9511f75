package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/schema"
	"github.com/roach88/normstore/internal/testutil"
)

func TestCompile_BlogSchema(t *testing.T) {
	reg := testutil.BlogRegistry(t)
	assert.Equal(t, []string{"Author", "Comment", "Post"}, reg.Names())

	post, err := reg.Lookup("Post")
	require.NoError(t, err)
	require.Len(t, post.Relations, 3)
	assert.Equal(t, schema.Relation{Name: "author", Cardinality: schema.One, Target: "Author", Inverse: "posts"}, post.Relations[0])
	assert.Equal(t, schema.Relation{Name: "comments", Cardinality: schema.Many, Target: "Comment", Inverse: "post"}, post.Relations[1])
	assert.Equal(t, schema.Relation{Name: "related", Cardinality: schema.Many, Target: "Post"}, post.Relations[2])

	d := post.Defaults()
	assert.Equal(t, ir.IRString("draft"), d["status"])
	assert.True(t, ir.Equal(ir.Obj(ir.O("views", ir.IRInt(0)), ir.O("featured", ir.IRBool(false))), d["meta"]))
}

func TestCompile_TypeWithoutAttributes(t *testing.T) {
	reg, err := schema.CompileString("t.cue", `types: Tag: {}`)
	require.NoError(t, err)
	tag, err := reg.Lookup("Tag")
	require.NoError(t, err)
	assert.Nil(t, tag.Validator)
	assert.Empty(t, tag.Relations)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no types", `other: 1`, "types is required"},
		{"no target", `types: A: relations: b: {many: true}`, "target is required"},
		{"bad many", `types: A: relations: b: {target: "A", many: "yes"}`, "many must be a bool"},
		{"bad inverse", `types: A: relations: b: {target: "A", inverse: 3}`, "inverse must be a string"},
		{"unknown target", `types: A: relations: b: {target: "B"}`, `unknown target type "B"`},
		{"syntax", `types: {`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.CompileString("bad.cue", tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func writeCUE(t *testing.T, path, src string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.cue")
	writeCUE(t, path, `types: {
	Note: relations: tag: {target: "Tag"}
	Tag: attributes: {id: int, name: string}
}`)

	reg, err := schema.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Note", "Tag"}, reg.Names())

	rel, err := reg.Relation("Note", "tag")
	require.NoError(t, err)
	assert.Equal(t, "Tag", rel.Target)
}

func TestLoad_PackageDirectory(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, filepath.Join(dir, "cue.mod", "module.cue"), `module: "example.com/schemas"
language: version: "v0.11.0"
`)
	writeCUE(t, filepath.Join(dir, "note.cue"), `package schemas

types: Note: relations: tag: {target: "Tag"}
`)
	writeCUE(t, filepath.Join(dir, "tag.cue"), `package schemas

types: Tag: attributes: {id: int, name: string}
`)

	reg, err := schema.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Note", "Tag"}, reg.Names())
}

func TestLoad_Missing(t *testing.T) {
	_, err := schema.Load(filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_ReportsPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	writeCUE(t, path, `types: Note: relations: tag: {many: true}`)

	_, err := schema.Load(path)
	var defErr *schema.DefinitionError
	require.ErrorAs(t, err, &defErr)
	assert.Equal(t, "Note", defErr.Type)
	assert.Equal(t, "tag", defErr.Field)
	assert.Equal(t, "target is required", defErr.Message)
}
