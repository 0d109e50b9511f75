package mapper

import (
	"context"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/query"
)

// QueryResponse is one page of query results.
// Paging is nil for unpaged responses.
type QueryResponse struct {
	Records []ir.IRObject
	Paging  *query.Paging
}

// Mapper performs data access for one entity type.
//
// Create, Update and Delete may fail with a *Error to report field-level
// problems; any other error is reported as a single base message.
// Delete returns a nil record when the entity is gone.
type Mapper interface {
	Fetch(ctx context.Context, id ir.IRValue, opts ir.IRObject) (ir.IRObject, error)
	Query(ctx context.Context, opts ir.IRObject, paging *query.Paging) (QueryResponse, error)
	Create(ctx context.Context, e *entity.Entity, opts ir.IRObject) (ir.IRObject, error)
	Update(ctx context.Context, e *entity.Entity, opts ir.IRObject) (ir.IRObject, error)
	Delete(ctx context.Context, e *entity.Entity, opts ir.IRObject) (ir.IRObject, error)
}
