package store

import (
	"sort"

	"github.com/benbjohnson/immutable"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/query"
	"github.com/roach88/normstore/internal/schema"
)

// Reference is one entry of the reverse index: either a relation edge
// (Source, Relation) pointing at an entity, or a query listing it.
type Reference struct {
	Source   entity.Key
	Relation string
	Query    query.Key
}

// IsQuery reports whether r is a query reference.
func (r Reference) IsQuery() bool {
	return r.Query != query.Key{}
}

func (r Reference) id() string {
	if r.IsQuery() {
		return "q:" + r.Query.String()
	}
	return "e:" + edgeID(r.Source, r.Relation)
}

func edgeRef(source entity.Key, relation string) Reference {
	return Reference{Source: source, Relation: relation}
}

func queryRef(k query.Key) Reference {
	return Reference{Query: k}
}

func edgeID(source entity.Key, relation string) string {
	return source.String() + "#" + relation
}

func (s *Store) linkOf(source entity.Key, rel schema.Relation) entity.Link {
	if l, ok := s.relations.Get(edgeID(source, rel.Name)); ok {
		return l
	}
	return entity.Empty(rel.IsMany())
}

// setEdge replaces one relation table entry and moves the reverse index
// entries of every target that was added or dropped.
func (s *Store) setEdge(source entity.Key, rel schema.Relation, l entity.Link) {
	old := s.linkOf(source, rel)
	ref := edgeRef(source, rel.Name)
	for _, k := range old.Keys() {
		if !l.Contains(k) {
			s.removeRef(k, ref)
		}
	}
	for _, k := range l.Keys() {
		if !old.Contains(k) {
			s.addRef(k, ref)
		}
	}

	id := edgeID(source, rel.Name)
	if l.Len() == 0 {
		s.relations = s.relations.Delete(id)
		return
	}
	s.relations = s.relations.Set(id, l)
}

func (s *Store) addRef(target entity.Key, ref Reference) {
	bucket, ok := s.reverse.Get(target.String())
	if !ok {
		bucket = immutable.NewMap[string, Reference](nil)
	}
	s.reverse = s.reverse.Set(target.String(), bucket.Set(ref.id(), ref))
}

func (s *Store) removeRef(target entity.Key, ref Reference) {
	bucket, ok := s.reverse.Get(target.String())
	if !ok {
		return
	}
	bucket = bucket.Delete(ref.id())
	if bucket.Len() == 0 {
		s.reverse = s.reverse.Delete(target.String())
		return
	}
	s.reverse = s.reverse.Set(target.String(), bucket)
}

// refsOf returns the reverse index bucket of k, sorted by reference id.
func (s *Store) refsOf(k entity.Key) []Reference {
	bucket, ok := s.reverse.Get(k.String())
	if !ok {
		return nil
	}
	ids := make([]string, 0, bucket.Len())
	itr := bucket.Iterator()
	for !itr.Done() {
		id, _, _ := itr.Next()
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Reference, 0, len(ids))
	for _, id := range ids {
		ref, _ := bucket.Get(id)
		out = append(out, ref)
	}
	return out
}

// reindexQuery moves query references from the keys listed by old to the
// keys listed by next. old may be nil.
func (s *Store) reindexQuery(old, next *query.Result) {
	ref := queryRef(next.Key())
	before := map[entity.Key]bool{}
	if old != nil {
		for _, k := range old.Keys() {
			before[k] = true
		}
	}
	after := map[entity.Key]bool{}
	for _, k := range next.Keys() {
		after[k] = true
		if !before[k] {
			s.addRef(k, ref)
		}
	}
	for k := range before {
		if !after[k] {
			s.removeRef(k, ref)
		}
	}
}
