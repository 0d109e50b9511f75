package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/schema"
)

var commentType = func() *schema.Type {
	reg := schema.NewRegistry().MustRegister(&schema.Type{Name: "Comment"})
	t, _ := reg.Lookup("Comment")
	return t
}()

func comment(t *testing.T, id int64) *entity.Entity {
	t.Helper()
	e, err := entity.New(commentType, entity.Patch{Attributes: ir.Obj(ir.O("id", ir.IRInt(id)))})
	require.NoError(t, err)
	return e
}

func loaded(es ...*entity.Entity) []Row {
	rows := make([]Row, len(es))
	for i, e := range es {
		rows[i] = Row{Loaded: true, Entity: e}
	}
	return rows
}

func TestNewKey_OrderIndependent(t *testing.T) {
	a, err := NewKey("Post", ir.Obj(ir.O("a", ir.IRInt(1)), ir.O("b", ir.IRInt(2))))
	require.NoError(t, err)
	b, err := NewKey("Post", ir.Obj(ir.O("b", ir.IRInt(2)), ir.O("a", ir.IRInt(1))))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := NewKey("Comment", ir.Obj(ir.O("a", ir.IRInt(1)), ir.O("b", ir.IRInt(2))))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a.Hash, c.Hash)
}

func TestPlace_Unpaged(t *testing.T) {
	q := New(Key{Type: "Comment", Hash: "h"}, nil)
	c1, c2 := comment(t, 1), comment(t, 2)

	q2 := q.Place(loaded(c1, c2), nil)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 2, q2.Len())
	assert.Equal(t, []*entity.Entity{c1, c2}, q2.Entities())

	q3 := q2.Place(loaded(c2), nil)
	assert.Equal(t, []*entity.Entity{c2}, q3.Entities())
}

func TestPlace_PagedIsSparse(t *testing.T) {
	q := New(Key{Type: "Comment", Hash: "h"}, nil)
	c := []*entity.Entity{comment(t, 1), comment(t, 2), comment(t, 3), comment(t, 4)}

	p1 := q.Place(loaded(c[2], c[3]), &Paging{Page: 1, PageSize: 2, Count: 6})
	require.Equal(t, 6, p1.Len())
	assert.Equal(t, 2, p1.PageSize())
	for i, want := range []bool{false, false, true, true, false, false} {
		assert.Equal(t, want, p1.Row(i).Loaded, "row %d", i)
	}

	p0 := p1.Place(loaded(c[0], c[1]), &Paging{Page: 0, PageSize: 2, Count: 6})
	assert.Equal(t, []*entity.Entity{c[0], c[1], c[2], c[3]}, p0.Entities())
	assert.False(t, p0.Row(4).Loaded)
	assert.False(t, p1.Row(0).Loaded, "receiver unchanged")
}

func TestPlace_PageOverflowGrows(t *testing.T) {
	q := New(Key{Type: "Comment", Hash: "h"}, nil)
	p := q.Place(loaded(comment(t, 1), comment(t, 2)), &Paging{Page: 2, PageSize: 2, Count: 3})
	assert.Equal(t, 6, p.Len())
}

func TestPlace_PopulatedNullDiffersFromHole(t *testing.T) {
	q := New(Key{Type: "Comment", Hash: "h"}, nil)
	p := q.Place([]Row{{Loaded: true}}, &Paging{Page: 1, PageSize: 1, Count: 2})
	assert.False(t, p.Row(0).Loaded)
	assert.True(t, p.Row(1).Loaded)
	assert.Nil(t, p.Row(1).Entity)
	assert.Empty(t, p.Keys())
}

func TestRewriteAndRemove(t *testing.T) {
	c1, c2 := comment(t, 1), comment(t, 2)
	q := New(Key{Type: "Comment", Hash: "h"}, nil).Place(loaded(c1, c2, c1), nil)

	c1b := c1.WithState(entity.StateLoaded)
	r := q.Rewrite(c1b)
	assert.Same(t, c1b, r.Row(0).Entity)
	assert.Same(t, c1b, r.Row(2).Entity)
	assert.Same(t, c1, q.Row(0).Entity)

	assert.Same(t, q, q.Rewrite(comment(t, 9)), "no match returns receiver")

	removed := q.Remove(c1.Key())
	assert.Equal(t, 1, removed.Len())
	assert.Same(t, c2, removed.Row(0).Entity)
	assert.Equal(t, 3, q.Len())
	assert.Same(t, q, q.Remove(entity.Key{Type: "Comment", ID: "9"}))
}

func TestKeys_Distinct(t *testing.T) {
	c1, c2 := comment(t, 1), comment(t, 2)
	q := New(Key{Type: "Comment", Hash: "h"}, nil).Place(loaded(c2, c1, c2), nil)
	assert.Equal(t, []entity.Key{c2.Key(), c1.Key()}, q.Keys())
}

func TestPendingPages(t *testing.T) {
	q := New(Key{Type: "Comment", Hash: "h"}, nil)
	q2 := q.WithPending(3).WithPending(1).WithPending(3)
	assert.Equal(t, []int{1, 3}, q2.PendingPages())
	assert.True(t, q2.IsPending(1))
	assert.Empty(t, q.PendingPages())

	q3 := q2.WithoutPending(1)
	assert.Equal(t, []int{3}, q3.PendingPages())
	assert.Equal(t, []int{1, 3}, q2.PendingPages())
	assert.Same(t, q3, q3.WithoutPending(7))
}

func TestStateAndError(t *testing.T) {
	q := New(Key{Type: "Comment", Hash: "h"}, ir.Obj(ir.O("a", ir.IRInt(1))))
	assert.Equal(t, StateNew, q.State())

	e := q.WithState(StateError).WithError("boom")
	assert.Equal(t, StateError, e.State())
	assert.Equal(t, "boom", e.Error())
	assert.Equal(t, "", q.Error())
	assert.True(t, StateError.IsTerminal())
	assert.False(t, StateGetting.IsTerminal())

	opts := q.Options()
	opts["a"] = ir.IRInt(2)
	assert.Equal(t, ir.IRInt(1), q.Options()["a"])

	for _, s := range []State{StateNew, StateGetting, StateLoaded, StateError} {
		parsed, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
}

func TestPaging_Validate(t *testing.T) {
	var nilPaging *Paging
	assert.NoError(t, nilPaging.Validate())

	tests := []struct {
		name    string
		paging  Paging
		wantErr bool
	}{
		{"zero", Paging{}, false},
		{"page past the end", Paging{Page: 9, PageSize: 2, Count: 3}, false},
		{"negative page", Paging{Page: -1, PageSize: 2}, true},
		{"negative page size", Paging{PageSize: -2}, true},
		{"negative count", Paging{Count: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.paging.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPaging)
				return
			}
			assert.NoError(t, err)
		})
	}
}
