package store

import (
	"errors"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/query"
	"github.com/roach88/normstore/internal/schema"
)

var (
	// ErrMissingID means an ingested record carried no usable id.
	ErrMissingID = entity.ErrMissingID

	// ErrNotSequence means a to-many relation value was not an array.
	ErrNotSequence = errors.New("normstore: to-many relation value is not a sequence")

	// ErrUnloadable means a relation value was neither an id, a record with
	// an id, nor null.
	ErrUnloadable = errors.New("normstore: relation value cannot be loaded")

	// ErrUnknownType means an entity type is not in the registry.
	ErrUnknownType = schema.ErrUnknownType

	// ErrInvalidPaging means a query update carried a negative page, page
	// size, or count.
	ErrInvalidPaging = query.ErrInvalidPaging

	// ErrUnknownOutcome means Reduce was given an Outcome it cannot fold.
	ErrUnknownOutcome = errors.New("normstore: unknown outcome kind")
)
