package store

import (
	"fmt"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/schema"
)

const defaultEntityState = entity.StateLoaded

type ingestConfig struct {
	state  entity.State
	errors map[string]string

	// keepState leaves already-stored entities as they are apart from their
	// relation slots. Used by expunge to detach edges.
	keepState bool
}

// UpsertOption configures one Upsert call.
type UpsertOption func(*ingestConfig)

// AsState sets the lifecycle state given to every ingested record.
// The default is entity.StateLoaded.
func AsState(st entity.State) UpsertOption {
	return func(c *ingestConfig) {
		c.state = st
	}
}

// WithErrors attaches errs to the top-level ingested entities. Without it
// their errors are cleared.
func WithErrors(errs map[string]string) UpsertOption {
	return func(c *ingestConfig) {
		c.errors = errs
	}
}

// work is one queued record awaiting decomposition.
type work struct {
	typ  *schema.Type
	rec  ir.IRObject
	top  bool
	stub bool
}

// touched collects, in first-seen order, the keys whose relation slots must
// be rebuilt once decomposition is done.
type touched struct {
	order []entity.Key
	seen  map[entity.Key]bool
}

func newTouched() *touched {
	return &touched{seen: map[entity.Key]bool{}}
}

func (t *touched) add(k entity.Key) {
	if !t.seen[k] {
		t.seen[k] = true
		t.order = append(t.order, k)
	}
}

// Upsert ingests records of type typ, which may inline related records or
// reference them by id, and returns the resulting snapshot.
func (s *Store) Upsert(typ string, records []ir.IRObject, opts ...UpsertOption) (*Store, error) {
	cfg := ingestConfig{state: defaultEntityState}
	for _, opt := range opts {
		opt(&cfg)
	}
	next := s.clone()
	if _, err := next.ingest(typ, records, cfg); err != nil {
		return nil, err
	}
	s.logger.Debug("upsert", "type", typ, "count", len(records), "state", cfg.state.String())
	return next, nil
}

// UpsertOne is Upsert for a single record.
func (s *Store) UpsertOne(typ string, record ir.IRObject, opts ...UpsertOption) (*Store, error) {
	return s.Upsert(typ, []ir.IRObject{record}, opts...)
}

// ingest runs both phases on s in place and returns the keys of the
// top-level records in input order. s must be a private clone.
func (s *Store) ingest(typName string, records []ir.IRObject, cfg ingestConfig) ([]entity.Key, error) {
	typ, err := s.registry.Lookup(typName)
	if err != nil {
		return nil, err
	}

	queue := make([]work, 0, len(records))
	for _, rec := range records {
		queue = append(queue, work{typ: typ, rec: rec, top: true})
	}

	roots := make([]entity.Key, 0, len(records))
	seeds := newTouched()

	// Phase A: decompose and stage.
	for i := 0; i < len(queue); i++ {
		w := queue[i]
		key, err := entity.KeyOf(w.typ.Name, w.rec["id"])
		if err != nil {
			return nil, err
		}
		if w.top {
			roots = append(roots, key)
		}
		if w.stub {
			if err := s.stageStub(w.typ, key, w.rec["id"], seeds); err != nil {
				return nil, err
			}
			continue
		}

		attrs := ir.IRObject{}
		for _, name := range w.rec.SortedKeys() {
			val := w.rec[name]
			rel, ok := w.typ.Relation(name)
			if !ok {
				attrs[name] = val
				continue
			}
			l, nested, err := s.relationValue(w.typ, rel, val)
			if err != nil {
				return nil, err
			}
			queue = append(queue, nested...)
			s.link(key, rel, l, seeds)
		}

		if err := s.stage(w.typ, key, attrs, w.top, cfg, seeds); err != nil {
			return nil, err
		}
	}

	// Phase B: propagate.
	if err := s.propagate(seeds); err != nil {
		return nil, err
	}
	return roots, nil
}

// relationValue turns a raw relation value into a link plus the records it
// inlines or references, which are queued for ingestion.
func (s *Store) relationValue(owner *schema.Type, rel schema.Relation, val ir.IRValue) (entity.Link, []work, error) {
	target, err := s.registry.Lookup(rel.Target)
	if err != nil {
		return entity.Link{}, nil, err
	}

	resolve := func(v ir.IRValue) (entity.Key, work, error) {
		switch x := v.(type) {
		case ir.IRString, ir.IRInt:
			k, err := entity.KeyOf(target.Name, x)
			if err != nil {
				break
			}
			return k, work{typ: target, rec: ir.IRObject{"id": x}, stub: true}, nil
		case ir.IRObject:
			k, err := entity.KeyOf(target.Name, x["id"])
			if err != nil {
				break
			}
			return k, work{typ: target, rec: x}, nil
		}
		return entity.Key{}, work{}, fmt.Errorf("%w: %s.%s = %v", ErrUnloadable, owner.Name, rel.Name, ir.ToGo(v))
	}

	if rel.IsMany() {
		arr, ok := val.(ir.IRArray)
		if !ok {
			return entity.Link{}, nil, fmt.Errorf("%w: %s.%s", ErrNotSequence, owner.Name, rel.Name)
		}
		keys := make([]entity.Key, 0, len(arr))
		works := make([]work, 0, len(arr))
		for _, elem := range arr {
			if isNull(elem) {
				continue
			}
			k, w, err := resolve(elem)
			if err != nil {
				return entity.Link{}, nil, err
			}
			keys = append(keys, k)
			works = append(works, w)
		}
		return entity.Many(keys...), works, nil
	}

	if isNull(val) {
		return entity.Null(), nil, nil
	}
	k, w, err := resolve(val)
	if err != nil {
		return entity.Link{}, nil, err
	}
	return entity.One(k), []work{w}, nil
}

func isNull(v ir.IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(ir.IRNull)
	return ok
}

// link installs the forward edge (source, rel) -> l and keeps the inverse
// relation symmetric: dropped targets lose source, added targets gain it,
// and a to-one inverse slot that already pointed elsewhere detaches the
// previous source's forward edge.
func (s *Store) link(source entity.Key, rel schema.Relation, l entity.Link, seeds *touched) {
	old := s.linkOf(source, rel)
	s.setEdge(source, rel, l)
	if rel.Inverse == "" {
		return
	}

	// Registry.Check guarantees both lookups succeed.
	inv, _ := s.registry.Relation(rel.Target, rel.Inverse)

	for _, k := range old.Keys() {
		if l.Contains(k) {
			continue
		}
		s.setEdge(k, inv, s.linkOf(k, inv).Without(source))
		seeds.add(k)
	}

	for _, k := range l.Keys() {
		il := s.linkOf(k, inv)
		if prev, ok := il.Key(); ok && prev != source {
			s.setEdge(prev, rel, s.linkOf(prev, rel).Without(k))
			seeds.add(prev)
		}
		s.setEdge(k, inv, il.With(source))
		seeds.add(k)
	}
}

// stage merges attrs into the stored entity at key, or constructs one.
func (s *Store) stage(typ *schema.Type, key entity.Key, attrs ir.IRObject, top bool, cfg ingestConfig, seeds *touched) error {
	existing, ok := s.entities.Get(key.String())
	if ok && cfg.keepState {
		seeds.add(key)
		return nil
	}

	errs := map[string]string{}
	if top && cfg.errors != nil {
		errs = cfg.errors
	}
	state := cfg.state
	if state == 0 {
		state = defaultEntityState
	}

	var (
		e   *entity.Entity
		err error
	)
	if ok {
		e, err = existing.Update(entity.Patch{Attributes: attrs, State: state, Errors: errs})
	} else {
		e, err = entity.New(typ, entity.Patch{Attributes: attrs, State: state, Errors: errs})
	}
	if err != nil {
		return err
	}
	s.entities = s.entities.Set(key.String(), e.Clean())
	seeds.add(key)
	return nil
}

// stageStub creates a placeholder for an entity referenced only by id.
// Stored entities are left as they are.
func (s *Store) stageStub(typ *schema.Type, key entity.Key, id ir.IRValue, seeds *touched) error {
	if _, ok := s.entities.Get(key.String()); ok {
		return nil
	}
	e, err := entity.New(typ, entity.Patch{
		Attributes:     ir.IRObject{"id": id},
		State:          entity.StateNew,
		SkipValidation: true,
	})
	if err != nil {
		return err
	}
	s.entities = s.entities.Set(key.String(), e)
	seeds.add(key)
	return nil
}

// propagate walks the reverse index outward from every seed, following
// relation edges back to their sources, and rebuilds each reached entity:
// relation slots are re-read from the relation table and query rows that
// list the entity are rewritten.
func (s *Store) propagate(seeds *touched) error {
	reach := newTouched()
	for _, k := range seeds.order {
		reach.add(k)
	}
	for i := 0; i < len(reach.order); i++ {
		for _, ref := range s.refsOf(reach.order[i]) {
			if !ref.IsQuery() {
				reach.add(ref.Source)
			}
		}
	}

	for _, k := range reach.order {
		e, ok := s.entities.Get(k.String())
		if !ok {
			continue
		}
		typ := e.Schema()
		slots := make(map[string]entity.Link, len(typ.Relations))
		for _, rel := range typ.Relations {
			slots[rel.Name] = s.linkOf(k, rel)
		}
		resolved, err := e.Resolve(slots)
		if err != nil {
			return err
		}
		s.put(resolved)
	}
	s.logger.Debug("propagate", "seeds", len(seeds.order), "reached", len(reach.order))
	return nil
}
