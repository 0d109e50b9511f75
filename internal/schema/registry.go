package schema

import (
	"fmt"
	"sort"

	"github.com/roach88/normstore/internal/ir"
)

// Cardinality is the declared shape of a relation slot.
type Cardinality int

const (
	// One relations hold a single entity reference or null.
	One Cardinality = iota + 1
	// Many relations hold an ordered sequence of entity references.
	Many
)

func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return fmt.Sprintf("Cardinality(%d)", int(c))
	}
}

// Relation describes one named relation of an entity type.
type Relation struct {
	// Name is the relation name on the owning type (e.g., "author").
	Name string

	// Cardinality is One or Many.
	Cardinality Cardinality

	// Target is the related entity type (e.g., "Author").
	Target string

	// Inverse is the relation on Target the store keeps symmetric with this
	// one (e.g., "posts"). Empty when the relation is one-directional.
	Inverse string
}

// IsMany reports whether the relation holds a sequence.
func (r Relation) IsMany() bool {
	return r.Cardinality == Many
}

// Type declares one entity type: its relations and attribute schema.
type Type struct {
	Name      string
	Relations []Relation

	// Validator checks attributes and derives defaults.
	// nil accepts any attribute set and derives no defaults.
	Validator Validator

	byName map[string]int
}

// Relation returns the named relation descriptor.
func (t *Type) Relation(name string) (Relation, bool) {
	if t.byName == nil {
		for _, r := range t.Relations {
			if r.Name == name {
				return r, true
			}
		}
		return Relation{}, false
	}
	i, ok := t.byName[name]
	if !ok {
		return Relation{}, false
	}
	return t.Relations[i], true
}

// HasRelation reports whether name is a declared relation of t.
func (t *Type) HasRelation(name string) bool {
	_, ok := t.Relation(name)
	return ok
}

// Validate runs the type's validator, or accepts everything without one.
func (t *Type) Validate(attrs ir.IRObject) []string {
	if t.Validator == nil {
		return nil
	}
	return t.Validator.Validate(attrs)
}

// Registry holds every known entity type, indexed by name.
type Registry struct {
	types  []*Type
	byName map[string]*Type
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		types:  []*Type{},
		byName: make(map[string]*Type),
	}
}

// Register adds an entity type. Relation names must be unique and every
// relation needs a cardinality and a target.
// Call Check once all types are registered to verify cross-type references.
func (r *Registry) Register(t *Type) error {
	if t.Name == "" {
		return &DefinitionError{Field: "name", Message: "type name is required"}
	}
	if _, exists := r.byName[t.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, t.Name)
	}

	t.byName = make(map[string]int, len(t.Relations))
	for i, rel := range t.Relations {
		if rel.Name == "" {
			return &DefinitionError{Type: t.Name, Field: fmt.Sprintf("relations[%d]", i), Message: "relation name is required"}
		}
		if _, dup := t.byName[rel.Name]; dup {
			return &DefinitionError{Type: t.Name, Field: rel.Name, Message: "duplicate relation name"}
		}
		if rel.Cardinality != One && rel.Cardinality != Many {
			return &DefinitionError{Type: t.Name, Field: rel.Name, Message: "cardinality must be one or many"}
		}
		if rel.Target == "" {
			return &DefinitionError{Type: t.Name, Field: rel.Name, Message: "target type is required"}
		}
		t.byName[rel.Name] = i
	}

	r.types = append(r.types, t)
	r.byName[t.Name] = t
	return nil
}

// MustRegister is like Register but panics on error.
// Use only in tests or for static tables known to be valid.
func (r *Registry) MustRegister(types ...*Type) *Registry {
	for _, t := range types {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	if err := r.Check(); err != nil {
		panic(err)
	}
	return r
}

// Check verifies that every relation targets a registered type and that
// every declared inverse exists on the target and points back at the owner.
func (r *Registry) Check() error {
	for _, t := range r.types {
		for _, rel := range t.Relations {
			target, ok := r.byName[rel.Target]
			if !ok {
				return &DefinitionError{Type: t.Name, Field: rel.Name, Message: fmt.Sprintf("unknown target type %q", rel.Target)}
			}
			if rel.Inverse == "" {
				continue
			}
			inv, ok := target.Relation(rel.Inverse)
			if !ok {
				return &DefinitionError{Type: t.Name, Field: rel.Name, Message: fmt.Sprintf("inverse %s.%s is not declared", rel.Target, rel.Inverse)}
			}
			if inv.Target != t.Name {
				return &DefinitionError{Type: t.Name, Field: rel.Name, Message: fmt.Sprintf("inverse %s.%s targets %q, not %q", rel.Target, rel.Inverse, inv.Target, t.Name)}
			}
		}
	}
	return nil
}

// Lookup returns the named entity type.
func (r *Registry) Lookup(name string) (*Type, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

// Relation returns the descriptor for typeName.relName.
func (r *Registry) Relation(typeName, relName string) (Relation, error) {
	t, err := r.Lookup(typeName)
	if err != nil {
		return Relation{}, err
	}
	rel, ok := t.Relation(relName)
	if !ok {
		return Relation{}, fmt.Errorf("%w: %s.%s", ErrUnknownRelation, typeName, relName)
	}
	return rel, nil
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for _, t := range r.types {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Defaults returns the attribute values a freshly built entity of t starts
// with. The returned object is a fresh copy.
func (t *Type) Defaults() ir.IRObject {
	if t.Validator == nil {
		return ir.IRObject{}
	}
	return t.Validator.Defaults().Clone()
}
