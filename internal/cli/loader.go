package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/normstore/internal/schema"
)

// Error code constants shared by all commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeBadInput    = "E008" // Malformed command argument

	ErrCodeDefinition      = "E101" // Invalid type or relation definition
	ErrCodeUnknownType     = "E102" // Relation targets an unregistered type
	ErrCodeUnknownRelation = "E103" // Inverse names a missing relation
	ErrCodeDuplicateType   = "E104" // Type declared twice
)

// LoadError is a schema loading failure with a CLI error code.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchema compiles the CUE type file or package at path.
func LoadSchema(path string) (*schema.Registry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path)}
	}
	reg, err := schema.Load(path)
	if err != nil {
		return nil, convertSchemaError(err)
	}
	return reg, nil
}

func convertSchemaError(err error) *LoadError {
	var defErr *schema.DefinitionError
	if errors.As(err, &defErr) {
		code := ErrCodeDefinition
		if defErr.Field == "cue" {
			code = ErrCodeBuildFailed
		}
		where := defErr.Type
		switch {
		case where != "" && defErr.Field != "":
			where += "." + defErr.Field
		case where == "":
			where = defErr.Field
		}
		msg := defErr.Message
		if where != "" {
			msg = where + ": " + msg
		}
		return &LoadError{Code: code, Message: msg, Pos: defErr.Pos}
	}

	code := ErrCodeGeneric
	switch {
	case errors.Is(err, schema.ErrUnknownType):
		code = ErrCodeUnknownType
	case errors.Is(err, schema.ErrUnknownRelation):
		code = ErrCodeUnknownRelation
	case errors.Is(err, schema.ErrDuplicateType):
		code = ErrCodeDuplicateType
	}
	return &LoadError{Code: code, Message: err.Error()}
}
