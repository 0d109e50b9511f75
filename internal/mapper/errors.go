package mapper

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/normstore/internal/entity"
)

var (
	// ErrUnconfigured is returned by every method of an Unconfigured mapper.
	ErrUnconfigured = errors.New("normstore: no mapper configured")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("normstore: record not found")
)

// Error carries field-level errors keyed by attribute name, or by
// entity.BaseError for problems not tied to one attribute.
type Error struct {
	Errors map[string]string
}

// NewError creates an Error with a single field message.
func NewError(field, message string) *Error {
	return &Error{Errors: map[string]string{field: message}}
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Errors[k])
	}
	return "mapper: " + strings.Join(parts, "; ")
}

// FieldErrors converts err to the errors map attached to an entity.
// A *Error keeps its fields; anything else becomes a single base message.
func FieldErrors(err error) map[string]string {
	var me *Error
	if errors.As(err, &me) && len(me.Errors) > 0 {
		out := make(map[string]string, len(me.Errors))
		for k, v := range me.Errors {
			out[k] = v
		}
		return out
	}
	return map[string]string{entity.BaseError: err.Error()}
}
