package store

import (
	"context"
	"fmt"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/mapper"
	"github.com/roach88/normstore/internal/query"
)

// Kind tags an Outcome.
type Kind string

const (
	KindFetch       Kind = "fetch"
	KindFetchError  Kind = "fetch:error"
	KindQuery       Kind = "query"
	KindQueryError  Kind = "query:error"
	KindCreate      Kind = "create"
	KindCreateError Kind = "create:error"
	KindUpdate      Kind = "update"
	KindUpdateError Kind = "update:error"
	KindDelete      Kind = "delete"
	KindDeleteError Kind = "delete:error"
)

// IsError reports whether k is one of the error kinds.
func (k Kind) IsError() bool {
	switch k {
	case KindFetchError, KindQueryError, KindCreateError, KindUpdateError, KindDeleteError:
		return true
	}
	return false
}

// Outcome is the resolved result of one Action.
//
// Fetch and query outcomes carry ID or Options plus the returned Record or
// Records; their error kinds carry Message. Create, update and delete
// outcomes carry the Entity that was sent; on error it holds the mapper's
// field errors.
type Outcome struct {
	Kind       Kind
	EntityType string
	ID         ir.IRValue
	Options    ir.IRObject
	Paging     *query.Paging
	Message    string
	Record     ir.IRObject
	Records    []ir.IRObject
	Entity     *entity.Entity
}

// Action performs one Mapper call. It never panics and never returns an
// error: failures are reported through the Outcome.
type Action func(ctx context.Context) Outcome

// invoke runs one mapper call, turning a panic into an error.
func invoke[T any](call func() (T, error)) (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mapper panic: %v", r)
		}
	}()
	return call()
}

// Fetch stages the entity (typ, id) as fetching, creating a stub when it is
// not stored yet, and returns an Action that fetches it.
func (s *Store) Fetch(typ string, id ir.IRValue, opts ir.IRObject) (*Store, Action, error) {
	t, err := s.registry.Lookup(typ)
	if err != nil {
		return nil, nil, err
	}
	key, err := entity.KeyOf(typ, id)
	if err != nil {
		return nil, nil, err
	}

	next := s.clone()
	e, ok := next.EntityByKey(key)
	if ok {
		e = e.WithState(entity.StateFetching)
	} else {
		e, err = entity.New(t, entity.Patch{
			Attributes:     ir.IRObject{"id": id},
			State:          entity.StateFetching,
			SkipValidation: true,
		})
		if err != nil {
			return nil, nil, err
		}
	}
	next.put(e)

	m := s.mapperFor(typ)
	logger := s.logger
	act := func(ctx context.Context) Outcome {
		rec, err := invoke(func() (ir.IRObject, error) { return m.Fetch(ctx, id, opts) })
		if err != nil {
			logger.Warn("fetch failed", "key", key.String(), "error", err)
			return Outcome{Kind: KindFetchError, EntityType: typ, ID: id, Options: opts, Message: err.Error()}
		}
		return Outcome{Kind: KindFetch, EntityType: typ, ID: id, Options: opts, Record: rec}
	}
	return next, act, nil
}

// Query marks the requested page of (typ, options) as being fetched and
// returns an Action that runs the query. paging may be nil.
func (s *Store) Query(typ string, options ir.IRObject, paging *query.Paging) (*Store, Action, error) {
	next, err := s.UpsertQuery(typ, options, QueryUpdate{State: query.StateGetting, Paging: paging})
	if err != nil {
		return nil, nil, err
	}

	m := s.mapperFor(typ)
	logger := s.logger
	act := func(ctx context.Context) Outcome {
		resp, err := invoke(func() (mapper.QueryResponse, error) { return m.Query(ctx, options, paging) })
		if err != nil {
			logger.Warn("query failed", "type", typ, "error", err)
			return Outcome{Kind: KindQueryError, EntityType: typ, Options: options, Paging: paging, Message: err.Error()}
		}
		p := resp.Paging
		if p == nil {
			p = paging
		}
		return Outcome{Kind: KindQuery, EntityType: typ, Options: options, Paging: p, Records: resp.Records}
	}
	return next, act, nil
}

// Create returns an Action that persists the draft e. The snapshot is
// unchanged: a draft belongs to the caller until its create succeeds.
func (s *Store) Create(e *entity.Entity, opts ir.IRObject) (*Store, Action, error) {
	if _, err := s.registry.Lookup(e.Type()); err != nil {
		return nil, nil, err
	}
	act := s.writeAction(e, opts, KindCreate, KindCreateError, s.mapperFor(e.Type()).Create)
	return s, act, nil
}

// Update stages e's attributes in the updating state and returns an Action
// that persists e.
func (s *Store) Update(e *entity.Entity, opts ir.IRObject) (*Store, Action, error) {
	next, err := s.UpsertOne(e.Type(), e.Attributes(), AsState(entity.StateUpdating))
	if err != nil {
		return nil, nil, err
	}
	act := s.writeAction(e, opts, KindUpdate, KindUpdateError, s.mapperFor(e.Type()).Update)
	return next, act, nil
}

// Delete stages the stored copy of e as deleting and returns an Action that
// deletes it.
func (s *Store) Delete(e *entity.Entity, opts ir.IRObject) (*Store, Action, error) {
	if _, err := s.registry.Lookup(e.Type()); err != nil {
		return nil, nil, err
	}
	next := s
	if stored, ok := s.EntityByKey(e.Key()); ok {
		next = s.clone()
		next.put(stored.WithState(entity.StateDeleting))
	}
	act := s.writeAction(e, opts, KindDelete, KindDeleteError, s.mapperFor(e.Type()).Delete)
	return next, act, nil
}

type writeFunc func(ctx context.Context, e *entity.Entity, opts ir.IRObject) (ir.IRObject, error)

func (s *Store) writeAction(e *entity.Entity, opts ir.IRObject, ok, failed Kind, call writeFunc) Action {
	logger := s.logger
	return func(ctx context.Context) Outcome {
		rec, err := invoke(func() (ir.IRObject, error) { return call(ctx, e, opts) })
		if err != nil {
			logger.Warn(string(ok)+" failed", "key", e.Key().String(), "error", err)
			return Outcome{
				Kind:       failed,
				EntityType: e.Type(),
				ID:         e.ID(),
				Options:    opts,
				Message:    err.Error(),
				Entity:     e.WithErrors(mapper.FieldErrors(err)),
			}
		}
		return Outcome{Kind: ok, EntityType: e.Type(), ID: e.ID(), Options: opts, Record: rec, Entity: e}
	}
}
