package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/testutil"
)

func newBlogStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return New(testutil.BlogRegistry(t), opts...)
}

// rec builds a record from alternating key/value pairs. Go ints become IRInt.
func rec(t *testing.T, kv ...any) ir.IRObject {
	t.Helper()
	require.Zero(t, len(kv)%2, "rec needs key/value pairs")
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	obj, err := ir.ObjectFromGo(m)
	require.NoError(t, err)
	return obj
}

func key(typ string, id string) entity.Key {
	return entity.Key{Type: typ, ID: id}
}

func mustGet(t *testing.T, s *Store, typ string, id int64) *entity.Entity {
	t.Helper()
	e, ok := s.Entity(typ, ir.IRInt(id))
	require.True(t, ok, "%s %d not stored", typ, id)
	return e
}

func mustUpsert(t *testing.T, s *Store, typ string, records ...ir.IRObject) *Store {
	t.Helper()
	next, err := s.Upsert(typ, records)
	require.NoError(t, err)
	return next
}

func examplePost(t *testing.T) ir.IRObject {
	return rec(t,
		"id", 1,
		"title", "t",
		"author", map[string]any{"id": 10, "name": "Ann"},
		"comments", []any{
			map[string]any{"id": 1, "body": "first"},
			map[string]any{"id": 2, "body": "second"},
		},
	)
}
