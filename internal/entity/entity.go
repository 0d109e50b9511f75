package entity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/schema"
)

// BaseError is the errors key for messages not tied to one attribute.
const BaseError = "base"

// Entity is one normalized record of a declared type.
type Entity struct {
	typ       *schema.Type
	key       Key
	state     State
	attrs     ir.IRObject
	relations map[string]Link
	errors    map[string]string

	dirtyAttrs map[string]bool
	dirtyRels  map[string]bool
}

// Patch describes a derivation. Zero fields leave the entity unchanged:
// a zero State keeps the current state and a nil Errors keeps the current
// errors. An empty non-nil Errors clears them.
type Patch struct {
	Attributes ir.IRObject
	Relations  map[string]Link
	State      State
	Errors     map[string]string

	// SkipValidation applies Attributes without consulting the schema.
	// Used for transitional stubs that only carry an id.
	SkipValidation bool
}

// New constructs an entity of typ. Attributes are merged over the schema's
// defaults and must include an id. Relation slots not named in the patch
// default to null or an empty sequence.
func New(typ *schema.Type, p Patch) (*Entity, error) {
	key, err := KeyOf(typ.Name, p.Attributes["id"])
	if err != nil {
		return nil, err
	}

	attrs := typ.Defaults()
	for k, v := range p.Attributes {
		attrs[k] = v
	}
	if !p.SkipValidation {
		if errs := typ.Validate(attrs); len(errs) > 0 {
			return nil, &ValidationError{Type: typ.Name, Violations: errs}
		}
	}

	rels := make(map[string]Link, len(typ.Relations))
	for _, r := range typ.Relations {
		rels[r.Name] = Empty(r.IsMany())
	}
	for name, l := range p.Relations {
		if err := checkLink(typ, name, l); err != nil {
			return nil, err
		}
		rels[name] = l
	}

	state := p.State
	if state == 0 {
		state = StateNew
	}

	return &Entity{
		typ:        typ,
		key:        key,
		state:      state,
		attrs:      attrs,
		relations:  rels,
		errors:     copyErrors(p.Errors),
		dirtyAttrs: map[string]bool{},
		dirtyRels:  map[string]bool{},
	}, nil
}

// Draft constructs a new, never-persisted entity. When attrs has no id, one
// is taken from gen.
func Draft(typ *schema.Type, attrs ir.IRObject, gen IDGenerator) (*Entity, error) {
	attrs = attrs.Clone()
	if _, ok := IDString(attrs["id"]); !ok {
		attrs["id"] = ir.IRString(gen.Generate())
	}
	return New(typ, Patch{Attributes: attrs})
}

func checkLink(typ *schema.Type, name string, l Link) error {
	rel, ok := typ.Relation(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", schema.ErrUnknownRelation, typ.Name, name)
	}
	if rel.IsMany() != l.IsMany() {
		return fmt.Errorf("%w: %s.%s is %s", ErrCardinality, typ.Name, name, rel.Cardinality)
	}
	return nil
}

// Update derives a new entity from e plus p. Every attribute and relation
// named in p is marked dirty. Attributes are re-validated unless p carries
// none or sets SkipValidation.
func (e *Entity) Update(p Patch) (*Entity, error) {
	next := e.clone()

	if len(p.Attributes) > 0 {
		if id, ok := p.Attributes["id"]; ok {
			if s, ok := IDString(id); !ok || s != e.key.ID {
				return nil, fmt.Errorf("normstore: cannot change id of %s to %v", e.key, ir.ToGo(id))
			}
		}
		next.attrs = e.attrs.Clone()
		next.dirtyAttrs = copySet(e.dirtyAttrs)
		for k, v := range p.Attributes {
			next.attrs[k] = v
			next.dirtyAttrs[k] = true
		}
		if !p.SkipValidation {
			if errs := e.typ.Validate(next.attrs); len(errs) > 0 {
				return nil, &ValidationError{Type: e.typ.Name, Violations: errs}
			}
		}
	}

	if len(p.Relations) > 0 {
		next.relations = copyLinks(e.relations)
		next.dirtyRels = copySet(e.dirtyRels)
		for name, l := range p.Relations {
			if err := checkLink(e.typ, name, l); err != nil {
				return nil, err
			}
			next.relations[name] = l
			next.dirtyRels[name] = true
		}
	}

	if p.State != 0 {
		next.state = p.State
	}
	if p.Errors != nil {
		next.errors = copyErrors(p.Errors)
	}
	return next, nil
}

// WithAttributes returns a copy of e with partial shallow-merged into its
// attributes and every key of partial marked dirty.
func (e *Entity) WithAttributes(partial ir.IRObject) (*Entity, error) {
	return e.Update(Patch{Attributes: partial})
}

// WithRelation returns a copy of e with one relation slot replaced and
// marked dirty.
func (e *Entity) WithRelation(name string, l Link) (*Entity, error) {
	return e.Update(Patch{Relations: map[string]Link{name: l}})
}

// WithState returns a copy of e in state s.
func (e *Entity) WithState(s State) *Entity {
	next := e.clone()
	next.state = s
	return next
}

// WithErrors returns a copy of e carrying errs. nil clears all errors.
func (e *Entity) WithErrors(errs map[string]string) *Entity {
	next := e.clone()
	next.errors = copyErrors(errs)
	return next
}

// Clean returns a copy of e with no dirty attributes or relations.
func (e *Entity) Clean() *Entity {
	next := e.clone()
	next.dirtyAttrs = map[string]bool{}
	next.dirtyRels = map[string]bool{}
	return next
}

// Resolve returns a copy of e whose relation slots are replaced by rels.
// Slots are not marked dirty. Slots missing from rels keep their value.
func (e *Entity) Resolve(rels map[string]Link) (*Entity, error) {
	next := e.clone()
	next.relations = copyLinks(e.relations)
	for name, l := range rels {
		if err := checkLink(e.typ, name, l); err != nil {
			return nil, err
		}
		next.relations[name] = l
	}
	return next, nil
}

// clone copies e. Maps are shared; derivations replace the ones they change.
func (e *Entity) clone() *Entity {
	c := *e
	return &c
}

// Schema returns the entity's type declaration.
func (e *Entity) Schema() *schema.Type { return e.typ }

// Type returns the entity type name.
func (e *Entity) Type() string { return e.typ.Name }

// Key returns the entity key.
func (e *Entity) Key() Key { return e.key }

// ID returns the record id as given.
func (e *Entity) ID() ir.IRValue { return e.attrs["id"] }

// State returns the lifecycle state.
func (e *Entity) State() State { return e.state }

// Attributes returns a copy of the attribute set.
func (e *Entity) Attributes() ir.IRObject { return e.attrs.Clone() }

// Attr returns a single attribute.
func (e *Entity) Attr(name string) (ir.IRValue, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// Relation returns the named relation slot. Undeclared names yield a null link.
func (e *Entity) Relation(name string) Link { return e.relations[name] }

// Errors returns a copy of the attached errors.
func (e *Entity) Errors() map[string]string { return copyErrors(e.errors) }

// HasErrors reports whether any error is attached.
func (e *Entity) HasErrors() bool { return len(e.errors) > 0 }

// IsDirty reports whether any attribute or relation is dirty.
func (e *Entity) IsDirty() bool { return len(e.dirtyAttrs) > 0 || len(e.dirtyRels) > 0 }

// DirtyAttributes returns the dirty attribute names, sorted.
func (e *Entity) DirtyAttributes() []string { return sortedSet(e.dirtyAttrs) }

// DirtyRelations returns the dirty relation names, sorted.
func (e *Entity) DirtyRelations() []string { return sortedSet(e.dirtyRels) }

// ErrorString joins the attached errors into one line. The base message
// comes first without a prefix; field messages follow as "field: message".
func (e *Entity) ErrorString() string {
	if len(e.errors) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.errors))
	for k := range e.errors {
		if k != BaseError {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(e.errors))
	if msg, ok := e.errors[BaseError]; ok {
		parts = append(parts, msg)
	}
	for _, k := range keys {
		parts = append(parts, k+": "+e.errors[k])
	}
	return strings.Join(parts, "; ")
}

// Record renders e as a raw record: its attributes plus each relation as
// an id, null, or array of ids.
func (e *Entity) Record() ir.IRObject {
	rec := e.attrs.Clone()
	for _, r := range e.typ.Relations {
		l := e.relations[r.Name]
		if l.IsMany() {
			ids := make(ir.IRArray, 0, l.Len())
			for _, k := range l.keys {
				ids = append(ids, k.IDValue())
			}
			rec[r.Name] = ids
			continue
		}
		if k, ok := l.Key(); ok {
			rec[r.Name] = k.IDValue()
		} else {
			rec[r.Name] = ir.IRNull{}
		}
	}
	return rec
}

// Equal reports whether e and o hold the same observable state.
func (e *Entity) Equal(o *Entity) bool {
	if e == o {
		return true
	}
	if e == nil || o == nil {
		return false
	}
	if e.key != o.key || e.state != o.state {
		return false
	}
	if !ir.Equal(e.attrs, o.attrs) {
		return false
	}
	if len(e.relations) != len(o.relations) {
		return false
	}
	for name, l := range e.relations {
		if !l.Equal(o.relations[name]) {
			return false
		}
	}
	return equalErrors(e.errors, o.errors) &&
		equalSets(e.dirtyAttrs, o.dirtyAttrs) &&
		equalSets(e.dirtyRels, o.dirtyRels)
}

func (e *Entity) String() string {
	return fmt.Sprintf("%s(%s)", e.key, e.state)
}

func copyErrors(errs map[string]string) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}

func copyLinks(m map[string]Link) map[string]Link {
	out := make(map[string]Link, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func equalSets(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func equalErrors(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
