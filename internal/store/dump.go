package store

import (
	"sort"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
)

// Dump renders the snapshot as a plain value, for golden comparisons and
// debugging. Entities and queries are keyed by their index form. Query rows
// render as the listed entity key, null for a populated null row, or false
// for a hole.
func (s *Store) Dump() ir.IRObject {
	entities := ir.IRObject{}
	itr := s.entities.Iterator()
	for !itr.Done() {
		k, e, _ := itr.Next()
		entities[k] = dumpEntity(e)
	}

	queries := ir.IRObject{}
	for _, q := range s.QueryResults() {
		rows := make(ir.IRArray, 0, q.Len())
		for _, row := range q.Rows() {
			switch {
			case !row.Loaded:
				rows = append(rows, ir.IRBool(false))
			case row.Entity == nil:
				rows = append(rows, ir.IRNull{})
			default:
				rows = append(rows, ir.IRString(row.Entity.Key().String()))
			}
		}
		pending := make(ir.IRArray, 0)
		for _, p := range q.PendingPages() {
			pending = append(pending, ir.IRInt(p))
		}
		obj := ir.IRObject{
			"type":    ir.IRString(q.Type()),
			"options": q.Options(),
			"state":   ir.IRString(q.State().String()),
			"rows":    rows,
			"pending": pending,
		}
		if q.Error() != "" {
			obj["error"] = ir.IRString(q.Error())
		}
		if q.PageSize() > 0 {
			obj["page_size"] = ir.IRInt(q.PageSize())
		}
		queries[q.Key().String()] = obj
	}

	return ir.IRObject{"entities": entities, "queries": queries}
}

func dumpEntity(e *entity.Entity) ir.IRObject {
	rels := ir.IRObject{}
	for _, r := range e.Schema().Relations {
		l := e.Relation(r.Name)
		if l.IsMany() {
			keys := make(ir.IRArray, 0, l.Len())
			for _, k := range l.Keys() {
				keys = append(keys, ir.IRString(k.String()))
			}
			rels[r.Name] = keys
			continue
		}
		if k, ok := l.Key(); ok {
			rels[r.Name] = ir.IRString(k.String())
		} else {
			rels[r.Name] = ir.IRNull{}
		}
	}

	obj := ir.IRObject{
		"state":      ir.IRString(e.State().String()),
		"attributes": e.Attributes(),
		"relations":  rels,
	}
	if errs := e.Errors(); len(errs) > 0 {
		out := ir.IRObject{}
		keys := make([]string, 0, len(errs))
		for k := range errs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = ir.IRString(errs[k])
		}
		obj["errors"] = out
	}
	return obj
}

// Hash returns a content hash of Dump. Equal snapshots hash equally.
func (s *Store) Hash() (string, error) {
	data, err := ir.MarshalCanonical(s.Dump())
	if err != nil {
		return "", err
	}
	return ir.SnapshotHash(data), nil
}
