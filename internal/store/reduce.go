package store

import (
	"fmt"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/query"
)

// Reduce folds one Outcome into the snapshot.
//
// Successful fetch, query, create and update outcomes ingest what the Mapper
// returned. A successful delete expunges the entity, or ingests the returned
// record in the deleted state. Error outcomes attach their errors to the
// affected entity or query and keep its data; create:error leaves the
// snapshot untouched.
func (s *Store) Reduce(o Outcome) (*Store, error) {
	s.logger.Debug("reduce", "kind", string(o.Kind), "type", o.EntityType)

	switch o.Kind {
	case KindFetch:
		return s.UpsertOne(o.EntityType, withID(o.Record, o.ID))

	case KindFetchError:
		key, err := entity.KeyOf(o.EntityType, o.ID)
		if err != nil {
			return nil, err
		}
		return s.attach(key, map[string]string{entity.BaseError: o.Message}), nil

	case KindQuery:
		return s.UpsertQuery(o.EntityType, o.Options, QueryUpdate{
			State:   query.StateLoaded,
			Records: o.Records,
			Paging:  o.Paging,
		})

	case KindQueryError:
		return s.UpsertQuery(o.EntityType, o.Options, QueryUpdate{
			State:  query.StateError,
			Paging: o.Paging,
			Error:  o.Message,
		})

	case KindCreate, KindUpdate:
		if o.Entity == nil {
			return nil, fmt.Errorf("%w: %s without entity", ErrUnknownOutcome, o.Kind)
		}
		return s.UpsertOne(o.EntityType, withID(o.Record, o.Entity.ID()))

	case KindCreateError:
		return s, nil

	case KindDelete:
		if o.Entity == nil {
			return nil, fmt.Errorf("%w: %s without entity", ErrUnknownOutcome, o.Kind)
		}
		if o.Record == nil {
			return s.Expunge(o.Entity.Key())
		}
		return s.UpsertOne(o.EntityType, withID(o.Record, o.Entity.ID()), AsState(entity.StateDeleted))

	case KindUpdateError, KindDeleteError:
		if o.Entity == nil {
			return nil, fmt.Errorf("%w: %s without entity", ErrUnknownOutcome, o.Kind)
		}
		return s.attach(o.Entity.Key(), o.Entity.Errors()), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOutcome, o.Kind)
	}
}

// attach returns a snapshot where the stored entity at k carries errs and is
// back in the loaded state. Absent entities are ignored.
func (s *Store) attach(k entity.Key, errs map[string]string) *Store {
	stored, ok := s.EntityByKey(k)
	if !ok {
		return s
	}
	next := s.clone()
	next.put(stored.WithErrors(errs).WithState(entity.StateLoaded))
	return next
}

// withID fills in the id when a Mapper returns a record without one.
func withID(rec ir.IRObject, id ir.IRValue) ir.IRObject {
	if _, ok := entity.IDString(rec["id"]); ok || id == nil {
		return rec
	}
	out := rec.Clone()
	out["id"] = id
	return out
}
