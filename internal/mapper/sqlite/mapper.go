package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/mapper"
	"github.com/roach88/normstore/internal/query"
)

// Mapper is the mapper.Mapper for one entity type in a DB.
type Mapper struct {
	db  *DB
	typ string
}

var _ mapper.Mapper = (*Mapper)(nil)

// Fetch decodes the stored record with the given id, or fails with
// mapper.ErrNotFound.
func (m *Mapper) Fetch(ctx context.Context, id ir.IRValue, _ ir.IRObject) (ir.IRObject, error) {
	key, ok := entity.IDString(id)
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", m.typ, entity.ErrMissingID)
	}

	var body string
	err := m.db.db.QueryRowContext(ctx,
		"SELECT body FROM records WHERE entity_type = ? AND id = ?", m.typ, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", mapper.ErrNotFound, m.typ, key)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", m.typ, err)
	}
	return unmarshalBody(body)
}

// Query returns the records whose attributes equal every option.
// Scalar options and paging run in SQLite; options holding arrays or
// objects are matched after decoding, and then paging is applied in Go too.
func (m *Mapper) Query(ctx context.Context, opts ir.IRObject, paging *query.Paging) (mapper.QueryResponse, error) {
	if err := paging.Validate(); err != nil {
		return mapper.QueryResponse{}, fmt.Errorf("query %s: %w", m.typ, err)
	}
	f := compileFilter(m.typ, opts)
	paged := paging != nil && paging.PageSize > 0

	stmt := "SELECT body FROM records WHERE " + f.where + " ORDER BY seq ASC, id COLLATE BINARY ASC"
	args := f.params
	if paged && f.exact() {
		stmt += " LIMIT ? OFFSET ?"
		args = append(append([]any(nil), f.params...), paging.PageSize, paging.Offset())
	}

	rows, err := m.db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return mapper.QueryResponse{}, fmt.Errorf("query %s: %w", m.typ, err)
	}
	defer rows.Close()

	var matched []ir.IRObject
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return mapper.QueryResponse{}, fmt.Errorf("scan %s: %w", m.typ, err)
		}
		rec, err := unmarshalBody(body)
		if err != nil {
			return mapper.QueryResponse{}, err
		}
		if matches(rec, f.residual) {
			matched = append(matched, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return mapper.QueryResponse{}, fmt.Errorf("iterate %s: %w", m.typ, err)
	}

	if !paged {
		return mapper.QueryResponse{Records: matched}, nil
	}
	if f.exact() {
		var count int
		err := m.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE "+f.where, f.params...).Scan(&count)
		if err != nil {
			return mapper.QueryResponse{}, fmt.Errorf("count %s: %w", m.typ, err)
		}
		return mapper.QueryResponse{
			Records: matched,
			Paging:  &query.Paging{Page: paging.Page, PageSize: paging.PageSize, Count: count},
		}, nil
	}
	start := min(paging.Offset(), len(matched))
	end := min(start+paging.PageSize, len(matched))
	return mapper.QueryResponse{
		Records: matched[start:end],
		Paging:  &query.Paging{Page: paging.Page, PageSize: paging.PageSize, Count: len(matched)},
	}, nil
}

func matches(rec, opts ir.IRObject) bool {
	for k, want := range opts {
		if !ir.Equal(rec[k], want) {
			return false
		}
	}
	return true
}

// Create inserts the entity's record. An existing id is reported as a
// field error on "id".
func (m *Mapper) Create(ctx context.Context, e *entity.Entity, _ ir.IRObject) (ir.IRObject, error) {
	rec := e.Record()
	body, err := marshalBody(rec)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", e.Key(), err)
	}

	res, err := m.db.db.ExecContext(ctx, `
		INSERT INTO records (entity_type, id, body, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_type, id) DO NOTHING
	`, m.typ, e.Key().ID, body, m.db.clock.Next())
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", e.Key(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", e.Key(), err)
	}
	if n == 0 {
		return nil, mapper.NewError("id", "already exists")
	}
	m.db.logger.Debug("record created", "key", e.Key().String())
	return rec, nil
}

// Update rewrites the stored record. A missing row is mapper.ErrNotFound.
func (m *Mapper) Update(ctx context.Context, e *entity.Entity, _ ir.IRObject) (ir.IRObject, error) {
	rec := e.Record()
	body, err := marshalBody(rec)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", e.Key(), err)
	}

	res, err := m.db.db.ExecContext(ctx,
		"UPDATE records SET body = ? WHERE entity_type = ? AND id = ?", body, m.typ, e.Key().ID)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", e.Key(), err)
	}
	if err := requireRow(res, e.Key()); err != nil {
		return nil, err
	}
	m.db.logger.Debug("record updated", "key", e.Key().String())
	return rec, nil
}

// Delete removes the row and returns a nil record.
func (m *Mapper) Delete(ctx context.Context, e *entity.Entity, _ ir.IRObject) (ir.IRObject, error) {
	res, err := m.db.db.ExecContext(ctx,
		"DELETE FROM records WHERE entity_type = ? AND id = ?", m.typ, e.Key().ID)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", e.Key(), err)
	}
	if err := requireRow(res, e.Key()); err != nil {
		return nil, err
	}
	m.db.logger.Debug("record deleted", "key", e.Key().String())
	return nil, nil
}

func requireRow(res sql.Result, k entity.Key) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", mapper.ErrNotFound, k)
	}
	return nil
}

// Seed stores raw records, replacing rows with the same id. Relation fields
// are kept as given, so seeded records can reference each other by id.
func (m *Mapper) Seed(ctx context.Context, records ...ir.IRObject) error {
	for _, rec := range records {
		id, ok := entity.IDString(rec["id"])
		if !ok {
			return fmt.Errorf("seed %s: %w", m.typ, entity.ErrMissingID)
		}
		body, err := marshalBody(rec)
		if err != nil {
			return fmt.Errorf("seed %s: %w", m.typ, err)
		}
		_, err = m.db.db.ExecContext(ctx, `
			INSERT INTO records (entity_type, id, body, seq)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(entity_type, id) DO UPDATE SET body = excluded.body
		`, m.typ, id, body, m.db.clock.Next())
		if err != nil {
			return fmt.Errorf("seed %s: %w", m.typ, err)
		}
	}
	return nil
}
