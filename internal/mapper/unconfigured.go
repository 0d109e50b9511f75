package mapper

import (
	"context"
	"fmt"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/query"
)

// Unconfigured is the Mapper used for types without one. Every call fails,
// naming the type and the operation.
type Unconfigured string

func (u Unconfigured) fail(op string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnconfigured, string(u), op)
}

// Fetch fails with ErrUnconfigured.
func (u Unconfigured) Fetch(context.Context, ir.IRValue, ir.IRObject) (ir.IRObject, error) {
	return nil, u.fail("fetch")
}

// Query fails with ErrUnconfigured.
func (u Unconfigured) Query(context.Context, ir.IRObject, *query.Paging) (QueryResponse, error) {
	return QueryResponse{}, u.fail("query")
}

// Create fails with ErrUnconfigured.
func (u Unconfigured) Create(context.Context, *entity.Entity, ir.IRObject) (ir.IRObject, error) {
	return nil, u.fail("create")
}

// Update fails with ErrUnconfigured.
func (u Unconfigured) Update(context.Context, *entity.Entity, ir.IRObject) (ir.IRObject, error) {
	return nil, u.fail("update")
}

// Delete fails with ErrUnconfigured.
func (u Unconfigured) Delete(context.Context, *entity.Entity, ir.IRObject) (ir.IRObject, error) {
	return nil, u.fail("delete")
}
