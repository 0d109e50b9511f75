package mapper

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/query"
)

// Memory is an in-process Mapper over a list of records.
//
// Query treats every option as an equality filter on the record attribute
// of the same name. Records come back in insertion order.
//
// Thread-safety: all methods are safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	typ     string
	order   []string
	records map[string]ir.IRObject
}

var _ Mapper = (*Memory)(nil)

// NewMemory creates a Memory mapper for typ seeded with records.
func NewMemory(typ string, records ...ir.IRObject) (*Memory, error) {
	m := &Memory{typ: typ, records: map[string]ir.IRObject{}}
	for _, rec := range records {
		if err := m.put(rec); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Memory) put(rec ir.IRObject) error {
	id, ok := entity.IDString(rec["id"])
	if !ok {
		return fmt.Errorf("%w: %s", entity.ErrMissingID, m.typ)
	}
	if _, exists := m.records[id]; !exists {
		m.order = append(m.order, id)
	}
	m.records[id] = rec.Clone()
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// Fetch returns a copy of the record with the given id, or ErrNotFound.
func (m *Memory) Fetch(ctx context.Context, id ir.IRValue, _ ir.IRObject) (ir.IRObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key, _ := entity.IDString(id)
	rec, ok := m.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s %v", ErrNotFound, m.typ, ir.ToGo(id))
	}
	return rec.Clone(), nil
}

// Query returns the records matching opts. A nil paging, or one with no
// page size, returns every match.
func (m *Memory) Query(ctx context.Context, opts ir.IRObject, paging *query.Paging) (QueryResponse, error) {
	if err := ctx.Err(); err != nil {
		return QueryResponse{}, err
	}
	if err := paging.Validate(); err != nil {
		return QueryResponse{}, fmt.Errorf("query %s: %w", m.typ, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []ir.IRObject
	for _, id := range m.order {
		rec := m.records[id]
		if matches(rec, opts) {
			matched = append(matched, rec.Clone())
		}
	}

	if paging == nil || paging.PageSize <= 0 {
		return QueryResponse{Records: matched}, nil
	}
	start := min(paging.Offset(), len(matched))
	end := min(start+paging.PageSize, len(matched))
	return QueryResponse{
		Records: matched[start:end],
		Paging:  &query.Paging{Page: paging.Page, PageSize: paging.PageSize, Count: len(matched)},
	}, nil
}

func matches(rec, opts ir.IRObject) bool {
	for k, want := range opts {
		if !ir.Equal(rec[k], want) {
			return false
		}
	}
	return true
}

// Create stores the entity's record. An existing id is reported as a field
// error on "id".
func (m *Memory) Create(ctx context.Context, e *entity.Entity, _ ir.IRObject) (ir.IRObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[e.Key().ID]; exists {
		return nil, NewError("id", "already exists")
	}
	rec := e.Record()
	if err := m.put(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update replaces the stored record, or fails with ErrNotFound.
func (m *Memory) Update(ctx context.Context, e *entity.Entity, _ ir.IRObject) (ir.IRObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[e.Key().ID]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, e.Key())
	}
	rec := e.Record()
	if err := m.put(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the record and returns nil, meaning the entity is gone.
func (m *Memory) Delete(ctx context.Context, e *entity.Entity, _ ir.IRObject) (ir.IRObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := e.Key().ID
	if _, exists := m.records[id]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, e.Key())
	}
	delete(m.records, id)
	for i, x := range m.order {
		if x == id {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	return nil, nil
}
