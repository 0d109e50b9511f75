package schema

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

var (
	// ErrUnknownType is returned when an entity type was never registered.
	ErrUnknownType = errors.New("normstore: unknown entity type")

	// ErrUnknownRelation is returned when a relation name is not declared on a type.
	ErrUnknownRelation = errors.New("normstore: unknown relation")

	// ErrDuplicateType is returned when a type name is registered twice.
	ErrDuplicateType = errors.New("normstore: duplicate entity type")
)

// DefinitionError reports a malformed type definition, with a CUE source
// position when one is known.
type DefinitionError struct {
	Type    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *DefinitionError) Error() string {
	where := e.Type
	switch {
	case where == "":
		where = e.Field
	case e.Field != "":
		where += "." + e.Field
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			where, e.Message)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}
