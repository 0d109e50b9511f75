package store

import (
	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/query"
)

// Expunge removes the entity at k. Every relation slot that referenced it is
// rewritten without it (to-many slots filter it out, to-one slots become
// null), its own edges are dropped, and every query row listing it is
// spliced out. Expunging an absent key returns s unchanged.
func (s *Store) Expunge(k entity.Key) (*Store, error) {
	if _, ok := s.entities.Get(k.String()); !ok {
		return s, nil
	}
	next := s.clone()
	if err := next.expunge(k); err != nil {
		return nil, err
	}
	s.logger.Debug("expunge", "key", k.String())
	return next, nil
}

func (s *Store) expunge(k entity.Key) error {
	// Detach incoming edges by re-ingesting each source without k so the
	// inverse bookkeeping in link stays the only place edges change.
	for _, ref := range s.refsOf(k) {
		if ref.IsQuery() || ref.Source == k {
			continue
		}
		rel, err := s.registry.Relation(ref.Source.Type, ref.Relation)
		if err != nil {
			return err
		}
		src, ok := s.entities.Get(ref.Source.String())
		if !ok {
			s.setEdge(ref.Source, rel, s.linkOf(ref.Source, rel).Without(k))
			continue
		}
		rec := ir.IRObject{
			"id":     src.ID(),
			rel.Name: linkValue(s.linkOf(ref.Source, rel).Without(k)),
		}
		if _, err := s.ingest(ref.Source.Type, []ir.IRObject{rec}, ingestConfig{keepState: true}); err != nil {
			return err
		}
	}

	typ, err := s.registry.Lookup(k.Type)
	if err != nil {
		return err
	}
	for _, rel := range typ.Relations {
		s.setEdge(k, rel, entity.Empty(rel.IsMany()))
	}

	for _, ref := range s.refsOf(k) {
		if !ref.IsQuery() {
			continue
		}
		if q, ok := s.queries.Get(ref.Query.String()); ok {
			s.queries = s.queries.Set(ref.Query.String(), q.Remove(k))
		}
	}

	s.reverse = s.reverse.Delete(k.String())
	s.entities = s.entities.Delete(k.String())
	return nil
}

// linkValue renders l as a raw relation value.
func linkValue(l entity.Link) ir.IRValue {
	if l.IsMany() {
		ids := make(ir.IRArray, 0, l.Len())
		for _, k := range l.Keys() {
			ids = append(ids, k.IDValue())
		}
		return ids
	}
	if k, ok := l.Key(); ok {
		return k.IDValue()
	}
	return ir.IRNull{}
}

// ExpungeQuery deletes the cached query for (typ, options) and then expunges
// every entity it listed. This cascades: entities still referenced from
// elsewhere are removed too.
func (s *Store) ExpungeQuery(typ string, options ir.IRObject) (*Store, error) {
	key, err := query.NewKey(typ, options)
	if err != nil {
		return nil, err
	}
	q, ok := s.queries.Get(key.String())
	if !ok {
		return s, nil
	}

	next := s.clone()
	next.queries = next.queries.Delete(key.String())
	keys := q.Keys()
	ref := queryRef(key)
	for _, k := range keys {
		next.removeRef(k, ref)
	}
	for _, k := range keys {
		if _, ok := next.entities.Get(k.String()); !ok {
			continue
		}
		if err := next.expunge(k); err != nil {
			return nil, err
		}
	}
	s.logger.Debug("expunge query", "type", typ, "key", key.Hash, "entities", len(keys))
	return next, nil
}
