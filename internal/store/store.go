package store

import (
	"log/slog"
	"sort"
	"strconv"

	"github.com/benbjohnson/immutable"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/mapper"
	"github.com/roach88/normstore/internal/query"
	"github.com/roach88/normstore/internal/schema"
)

// Store is one immutable snapshot of the entity graph.
type Store struct {
	registry *schema.Registry
	mappers  map[string]mapper.Mapper
	logger   *slog.Logger

	entities  *immutable.Map[string, *entity.Entity]
	relations *immutable.Map[string, entity.Link]
	queries   *immutable.Map[string, *query.Result]
	reverse   *immutable.Map[string, *immutable.Map[string, Reference]]
}

// Option configures a Store created by New.
type Option func(*Store)

// WithMapper sets the Mapper used by lifecycle operations on typ.
// Types without a Mapper get mapper.Unconfigured.
func WithMapper(typ string, m mapper.Mapper) Option {
	return func(s *Store) {
		s.mappers[typ] = m
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty Store over registry.
//
// Options are applied once; every snapshot derived from the returned Store
// shares the same registry, mappers and logger.
func New(registry *schema.Registry, opts ...Option) *Store {
	s := &Store{
		registry:  registry,
		mappers:   make(map[string]mapper.Mapper),
		logger:    slog.New(slog.DiscardHandler),
		entities:  immutable.NewMap[string, *entity.Entity](nil),
		relations: immutable.NewMap[string, entity.Link](nil),
		queries:   immutable.NewMap[string, *query.Result](nil),
		reverse:   immutable.NewMap[string, *immutable.Map[string, Reference]](nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clone returns a shallow copy. The tables are persistent, so assigning a
// new table to the copy never affects s.
func (s *Store) clone() *Store {
	c := *s
	return &c
}

// Registry returns the relation descriptor table.
func (s *Store) Registry() *schema.Registry {
	return s.registry
}

func (s *Store) mapperFor(typ string) mapper.Mapper {
	if m, ok := s.mappers[typ]; ok {
		return m
	}
	return mapper.Unconfigured(typ)
}

// Len returns the number of entities in the snapshot.
func (s *Store) Len() int {
	return s.entities.Len()
}

// Entity returns the entity of typ with the given id.
func (s *Store) Entity(typ string, id ir.IRValue) (*entity.Entity, bool) {
	k, err := entity.KeyOf(typ, id)
	if err != nil {
		return nil, false
	}
	return s.EntityByKey(k)
}

// EntityByKey returns the entity stored under k.
func (s *Store) EntityByKey(k entity.Key) (*entity.Entity, bool) {
	return s.entities.Get(k.String())
}

// Entities returns every entity of typ ordered by id. Ids that both parse
// as integers compare numerically, so "2" sorts before "10"; any other pair
// compares as strings, and integer ids sort ahead of non-integer ones.
func (s *Store) Entities(typ string) []*entity.Entity {
	var out []*entity.Entity
	itr := s.entities.Iterator()
	for !itr.Done() {
		_, e, _ := itr.Next()
		if e.Type() == typ {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].Key().ID, out[j].Key().ID) })
	return out
}

func idLess(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

// Related resolves one relation slot of e against this snapshot.
// Keys with no stored entity are skipped.
func (s *Store) Related(e *entity.Entity, relation string) []*entity.Entity {
	keys := e.Relation(relation).Keys()
	out := make([]*entity.Entity, 0, len(keys))
	for _, k := range keys {
		if r, ok := s.EntityByKey(k); ok {
			out = append(out, r)
		}
	}
	return out
}

// RelatedOne resolves a to-one relation slot of e.
func (s *Store) RelatedOne(e *entity.Entity, relation string) (*entity.Entity, bool) {
	k, ok := e.Relation(relation).Key()
	if !ok {
		return nil, false
	}
	return s.EntityByKey(k)
}

// Link returns the relation table entry for (source, relation).
// Missing entries read as null or an empty sequence per the descriptor.
func (s *Store) Link(source entity.Key, relation string) (entity.Link, error) {
	rel, err := s.registry.Relation(source.Type, relation)
	if err != nil {
		return entity.Link{}, err
	}
	return s.linkOf(source, rel), nil
}

// QueryResult returns the cached result for (typ, options).
func (s *Store) QueryResult(typ string, options ir.IRObject) (*query.Result, bool) {
	k, err := query.NewKey(typ, options)
	if err != nil {
		return nil, false
	}
	return s.queries.Get(k.String())
}

// QueryResults returns every cached query ordered by key.
func (s *Store) QueryResults() []*query.Result {
	out := make([]*query.Result, 0, s.queries.Len())
	itr := s.queries.Iterator()
	for !itr.Done() {
		_, q, _ := itr.Next()
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().String() < out[j].Key().String() })
	return out
}

// Referrers returns the reverse index bucket of k, ordered.
func (s *Store) Referrers(k entity.Key) []Reference {
	return s.refsOf(k)
}

// put stores e and rewrites every query row that lists it.
func (s *Store) put(e *entity.Entity) {
	s.entities = s.entities.Set(e.Key().String(), e)
	for _, ref := range s.refsOf(e.Key()) {
		if !ref.IsQuery() {
			continue
		}
		if q, ok := s.queries.Get(ref.Query.String()); ok {
			s.queries = s.queries.Set(ref.Query.String(), q.Rewrite(e))
		}
	}
}
