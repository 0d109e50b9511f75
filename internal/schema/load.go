package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Compile builds a Registry from a CUE value holding a top-level `types`
// struct. Each field of `types` declares one entity type:
//
//	types: Comment: {
//	    attributes: {id: int, body: string}
//	    relations: post: {target: "Post", inverse: "comments"}
//	}
//
// attributes is optional; without it the type accepts any attribute set.
// A relation is to-one unless `many: true`.
func Compile(v cue.Value) (*Registry, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, "")
	}

	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, &DefinitionError{Field: "types", Message: "types is required", Pos: v.Pos()}
	}

	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err, "")
	}

	reg := NewRegistry()
	for iter.Next() {
		t, err := compileType(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	if err := reg.Check(); err != nil {
		return nil, err
	}
	return reg, nil
}

// CompileString compiles CUE source text into a Registry.
// filename is used for error positions only.
func CompileString(filename, src string) (*Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// Load compiles the CUE type file at path, or the CUE package in the
// directory at path.
func Load(path string) (*Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load schema: %w", err)
		}
		return CompileString(path, string(src))
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load schema: no CUE instances in %s", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err, "")
	}
	return Compile(cuecontext.New().BuildInstance(inst))
}

func compileType(name string, v cue.Value) (*Type, error) {
	t := &Type{Name: name}

	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if attrsVal.Exists() {
		s, err := NewCUESchema(attrsVal)
		if err != nil {
			return nil, withType(err, name)
		}
		t.Validator = s
	}

	relsVal := v.LookupPath(cue.ParsePath("relations"))
	if !relsVal.Exists() {
		return t, nil
	}
	iter, err := relsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err, name)
	}
	for iter.Next() {
		rel, err := compileRelation(name, iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		t.Relations = append(t.Relations, rel)
	}
	return t, nil
}

func compileRelation(typeName, relName string, v cue.Value) (Relation, error) {
	rel := Relation{Name: relName, Cardinality: One}

	targetVal := v.LookupPath(cue.ParsePath("target"))
	if !targetVal.Exists() {
		return rel, &DefinitionError{Type: typeName, Field: relName, Message: "target is required", Pos: v.Pos()}
	}
	target, err := targetVal.String()
	if err != nil {
		return rel, &DefinitionError{Type: typeName, Field: relName, Message: fmt.Sprintf("target must be a string: %v", err), Pos: targetVal.Pos()}
	}
	rel.Target = target

	if manyVal := v.LookupPath(cue.ParsePath("many")); manyVal.Exists() {
		many, err := manyVal.Bool()
		if err != nil {
			return rel, &DefinitionError{Type: typeName, Field: relName, Message: fmt.Sprintf("many must be a bool: %v", err), Pos: manyVal.Pos()}
		}
		if many {
			rel.Cardinality = Many
		}
	}

	if invVal := v.LookupPath(cue.ParsePath("inverse")); invVal.Exists() {
		inv, err := invVal.String()
		if err != nil {
			return rel, &DefinitionError{Type: typeName, Field: relName, Message: fmt.Sprintf("inverse must be a string: %v", err), Pos: invVal.Pos()}
		}
		rel.Inverse = inv
	}
	return rel, nil
}

func withType(err error, name string) error {
	if de, ok := err.(*DefinitionError); ok && de.Type == "" {
		de.Type = name
	}
	return err
}
