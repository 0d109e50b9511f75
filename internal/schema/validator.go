package schema

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/normstore/internal/ir"
)

// Validator is the attribute schema contract the store consumes.
//
// Validate returns nil when attrs conform, or one message per violation.
// Defaults returns the attribute values derived from the schema alone; the
// store never mutates the returned object.
type Validator interface {
	Validate(attrs ir.IRObject) []string
	Defaults() ir.IRObject
}

// CUESchema validates attribute sets against a CUE struct value.
//
// Validation unifies the candidate with the schema and requires the result
// to be concrete. Defaults are derived per regular field, first match wins:
//
//  1. an explicit CUE default (`*"draft" | "published"`)
//  2. a concrete value (`kind: "post"`)
//  3. the first disjunct of a disjunction (`"a" | "b"` gives "a")
//  4. recursive defaults for nested structs
//  5. the zero value of the field's kind ("", 0, false, [], null)
//
// A top-level disjunction of structs derives its defaults from the first
// alternative. Optional fields (`note?: string`) get no default.
type CUESchema struct {
	value    cue.Value
	defaults ir.IRObject
}

// NewCUESchema wraps v. It fails when v is an error or when the derived
// defaults cannot be represented (floats, for example).
func NewCUESchema(v cue.Value) (*CUESchema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, "")
	}
	d, err := deriveDefault(v)
	if err != nil {
		return nil, err
	}
	obj, ok := d.(ir.IRObject)
	if !ok {
		return nil, &DefinitionError{Field: "attributes", Message: "attribute schema must be a struct", Pos: v.Pos()}
	}
	return &CUESchema{value: v, defaults: obj}, nil
}

// Value returns the underlying CUE value.
func (s *CUESchema) Value() cue.Value {
	return s.value
}

// Defaults implements Validator.
func (s *CUESchema) Defaults() ir.IRObject {
	return s.defaults
}

// Validate implements Validator.
func (s *CUESchema) Validate(attrs ir.IRObject) []string {
	data := s.value.Context().Encode(ir.ToGo(attrs))
	if err := data.Err(); err != nil {
		return cueMessages(err)
	}
	if err := s.value.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return cueMessages(err)
	}
	return nil
}

func cueMessages(err error) []string {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	sort.Strings(msgs)
	return msgs
}

func deriveDefault(v cue.Value) (ir.IRValue, error) {
	if d, ok := v.Default(); ok {
		return cueToIR(d)
	}

	kind := v.IncompleteKind()
	if kind == cue.StructKind {
		if op, args := v.Expr(); op == cue.OrOp && len(args) > 0 {
			return deriveDefault(args[0])
		}
		return structDefaults(v)
	}
	if v.IsConcrete() {
		return cueToIR(v)
	}
	if op, args := v.Expr(); op == cue.OrOp && len(args) > 0 {
		return deriveDefault(args[0])
	}

	switch {
	case kind&cue.StructKind != 0:
		return structDefaults(v)
	case kind&cue.ListKind != 0:
		return ir.IRArray{}, nil
	case kind&cue.StringKind != 0:
		return ir.IRString(""), nil
	case kind&cue.IntKind != 0:
		return ir.IRInt(0), nil
	case kind&cue.BoolKind != 0:
		return ir.IRBool(false), nil
	default:
		return ir.IRNull{}, nil
	}
}

func structDefaults(v cue.Value) (ir.IRValue, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err, "")
	}
	out := ir.IRObject{}
	for iter.Next() {
		d, err := deriveDefault(iter.Value())
		if err != nil {
			return nil, err
		}
		out[iter.Selector().Unquoted()] = d
	}
	return out, nil
}

// cueToIR converts a concrete CUE value to the store's value model.
func cueToIR(v cue.Value) (ir.IRValue, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err, "")
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err, "")
		}
		return ir.IRInt(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err, "")
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		list, err := v.List()
		if err != nil {
			return nil, formatCUEError(err, "")
		}
		out := ir.IRArray{}
		for list.Next() {
			elem, err := cueToIR(list.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		return structDefaults(v)
	default:
		return nil, &DefinitionError{
			Field:   v.Path().String(),
			Message: fmt.Sprintf("unsupported default kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error, typeName string) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	de := &DefinitionError{Type: typeName, Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		de.Pos = positions[0]
	}
	return de
}
