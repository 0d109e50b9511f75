package store

import (
	"fmt"

	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/query"
)

// QueryUpdate is one transition of a cached query.
//
// State defaults to query.StateLoaded. Records are ingested and placed only
// in the loaded state; Error is recorded only in the error state. Paging
// selects the page being requested, loaded, or failed.
type QueryUpdate struct {
	State   query.State
	Records []ir.IRObject
	Paging  *query.Paging
	Error   string
}

// UpsertQuery applies u to the query for (typ, options), creating the
// query when it is not cached yet.
func (s *Store) UpsertQuery(typ string, options ir.IRObject, u QueryUpdate) (*Store, error) {
	if _, err := s.registry.Lookup(typ); err != nil {
		return nil, err
	}
	if err := u.Paging.Validate(); err != nil {
		return nil, fmt.Errorf("upsert %s query: %w", typ, err)
	}
	key, err := query.NewKey(typ, options)
	if err != nil {
		return nil, err
	}

	state := u.State
	if state == 0 {
		state = query.StateLoaded
	}
	page := 0
	if u.Paging != nil {
		page = u.Paging.Page
	}

	next := s.clone()

	var rows []query.Row
	if state == query.StateLoaded {
		roots, err := next.ingest(typ, u.Records, ingestConfig{state: defaultEntityState})
		if err != nil {
			return nil, err
		}
		rows = make([]query.Row, 0, len(roots))
		for _, k := range roots {
			e, _ := next.EntityByKey(k)
			rows = append(rows, query.Row{Loaded: true, Entity: e})
		}
	}

	// Read after ingestion so rows rewritten by propagation are kept.
	old, exists := next.queries.Get(key.String())
	q := old
	if !exists {
		old = nil
		q = query.New(key, options)
	}

	switch state {
	case query.StateNew:
	case query.StateGetting:
		q = q.WithState(query.StateGetting).WithPending(page)
		if u.Paging != nil && u.Paging.PageSize > 0 {
			q = q.WithPageSize(u.Paging.PageSize)
		}
	case query.StateLoaded:
		q = q.Place(rows, u.Paging).
			WithState(query.StateLoaded).
			WithError("").
			WithoutPending(page)
	case query.StateError:
		q = q.WithState(query.StateError).
			WithError(u.Error).
			WithoutPending(page)
	default:
		return nil, fmt.Errorf("normstore: invalid query state %v", state)
	}

	next.reindexQuery(old, q)
	next.queries = next.queries.Set(key.String(), q)

	s.logger.Debug("upsert query",
		"type", typ,
		"key", key.Hash,
		"state", state.String(),
		"records", len(u.Records))
	return next, nil
}
