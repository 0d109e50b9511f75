package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingID means a record carried no usable identifier.
	ErrMissingID = errors.New("normstore: record has no id")

	// ErrCardinality means a relation slot was given a link whose shape
	// disagrees with the relation's declared cardinality.
	ErrCardinality = errors.New("normstore: relation cardinality mismatch")
)

// ValidationError reports schema violations found while building or
// deriving an entity. Violations holds one message per problem.
type ValidationError struct {
	Type       string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("normstore: invalid %s attributes: %s", e.Type, strings.Join(e.Violations, "; "))
}
