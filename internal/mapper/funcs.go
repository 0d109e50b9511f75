package mapper

import (
	"context"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/query"
)

// Funcs is a Mapper built from functions. A nil function behaves like
// Unconfigured for that operation.
type Funcs struct {
	Type       string
	FetchFunc  func(ctx context.Context, id ir.IRValue, opts ir.IRObject) (ir.IRObject, error)
	QueryFunc  func(ctx context.Context, opts ir.IRObject, paging *query.Paging) (QueryResponse, error)
	CreateFunc func(ctx context.Context, e *entity.Entity, opts ir.IRObject) (ir.IRObject, error)
	UpdateFunc func(ctx context.Context, e *entity.Entity, opts ir.IRObject) (ir.IRObject, error)
	DeleteFunc func(ctx context.Context, e *entity.Entity, opts ir.IRObject) (ir.IRObject, error)
}

var _ Mapper = Funcs{}

func (f Funcs) Fetch(ctx context.Context, id ir.IRValue, opts ir.IRObject) (ir.IRObject, error) {
	if f.FetchFunc == nil {
		return Unconfigured(f.Type).Fetch(ctx, id, opts)
	}
	return f.FetchFunc(ctx, id, opts)
}

func (f Funcs) Query(ctx context.Context, opts ir.IRObject, paging *query.Paging) (QueryResponse, error) {
	if f.QueryFunc == nil {
		return Unconfigured(f.Type).Query(ctx, opts, paging)
	}
	return f.QueryFunc(ctx, opts, paging)
}

func (f Funcs) Create(ctx context.Context, e *entity.Entity, opts ir.IRObject) (ir.IRObject, error) {
	if f.CreateFunc == nil {
		return Unconfigured(f.Type).Create(ctx, e, opts)
	}
	return f.CreateFunc(ctx, e, opts)
}

func (f Funcs) Update(ctx context.Context, e *entity.Entity, opts ir.IRObject) (ir.IRObject, error) {
	if f.UpdateFunc == nil {
		return Unconfigured(f.Type).Update(ctx, e, opts)
	}
	return f.UpdateFunc(ctx, e, opts)
}

func (f Funcs) Delete(ctx context.Context, e *entity.Entity, opts ir.IRObject) (ir.IRObject, error) {
	if f.DeleteFunc == nil {
		return Unconfigured(f.Type).Delete(ctx, e, opts)
	}
	return f.DeleteFunc(ctx, e, opts)
}
