package harness

import (
	"fmt"
	"maps"
	"strings"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/query"
	"github.com/roach88/normstore/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Subject  string // Entity key or query being checked
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s %s\n", e.Type, e.Subject)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against st and returns one
// message per failure.
func EvaluateAssertions(st *store.Store, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluate(st, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func evaluate(st *store.Store, a Assertion) error {
	switch a.Type {
	case AssertEntity:
		return assertEntity(st, a)
	case AssertAbsent:
		return assertAbsent(st, a)
	case AssertQuery:
		return assertQuery(st, a)
	case AssertQueryAbsent:
		return assertQueryAbsent(st, a)
	case AssertCount:
		return assertCount(st, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertEntity(st *store.Store, a Assertion) error {
	k, err := entity.ParseKey(a.Key)
	if err != nil {
		return err
	}
	e, ok := st.EntityByKey(k)
	if !ok {
		return &AssertionError{Type: a.Type, Subject: a.Key, Expected: "stored", Actual: "absent"}
	}

	if a.State != "" && e.State().String() != a.State {
		return &AssertionError{Type: a.Type, Subject: a.Key + " state", Expected: a.State, Actual: e.State().String()}
	}

	for name, raw := range a.Attributes {
		want, err := ir.FromGo(raw)
		if err != nil {
			return fmt.Errorf("attributes.%s: %w", name, err)
		}
		got, _ := e.Attr(name)
		if !ir.Equal(want, got) {
			return &AssertionError{Type: a.Type, Subject: a.Key + "." + name, Expected: show(want), Actual: show(got)}
		}
	}

	for name, raw := range a.Relations {
		if !e.Schema().HasRelation(name) {
			return fmt.Errorf("%s has no relation %q", e.Type(), name)
		}
		want, err := ir.FromGo(raw)
		if err != nil {
			return fmt.Errorf("relations.%s: %w", name, err)
		}
		got := linkValue(e.Relation(name))
		if !ir.Equal(want, got) {
			return &AssertionError{Type: a.Type, Subject: a.Key + "." + name, Expected: show(want), Actual: show(got)}
		}
	}

	if a.Errors != nil {
		got := e.Errors()
		if len(got) != len(a.Errors) || (len(got) > 0 && !maps.Equal(got, a.Errors)) {
			return &AssertionError{Type: a.Type, Subject: a.Key + " errors", Expected: fmt.Sprint(a.Errors), Actual: fmt.Sprint(got)}
		}
	}
	return nil
}

func assertAbsent(st *store.Store, a Assertion) error {
	k, err := entity.ParseKey(a.Key)
	if err != nil {
		return err
	}
	if e, ok := st.EntityByKey(k); ok {
		return &AssertionError{Type: a.Type, Subject: a.Key, Expected: "absent", Actual: "stored in state " + e.State().String()}
	}
	return nil
}

func lookupQuery(st *store.Store, a Assertion) (*query.Result, string, error) {
	opts, err := ir.ObjectFromGo(a.Options)
	if err != nil {
		return nil, "", fmt.Errorf("options: %w", err)
	}
	subject := a.EntityType + show(opts)
	q, _ := st.QueryResult(a.EntityType, opts)
	return q, subject, nil
}

func assertQuery(st *store.Store, a Assertion) error {
	q, subject, err := lookupQuery(st, a)
	if err != nil {
		return err
	}
	if q == nil {
		return &AssertionError{Type: a.Type, Subject: subject, Expected: "cached", Actual: "absent"}
	}

	if a.State != "" && q.State().String() != a.State {
		return &AssertionError{Type: a.Type, Subject: subject + " state", Expected: a.State, Actual: q.State().String()}
	}
	if a.Rows != nil {
		want, err := ir.FromGo(a.Rows)
		if err != nil {
			return fmt.Errorf("rows: %w", err)
		}
		got := rowsValue(q)
		if !ir.Equal(want, got) {
			return &AssertionError{Type: a.Type, Subject: subject + " rows", Expected: show(want), Actual: show(got)}
		}
	}
	if a.Error != "" && q.Error() != a.Error {
		return &AssertionError{Type: a.Type, Subject: subject + " error", Expected: a.Error, Actual: q.Error()}
	}
	return nil
}

func assertQueryAbsent(st *store.Store, a Assertion) error {
	q, subject, err := lookupQuery(st, a)
	if err != nil {
		return err
	}
	if q != nil {
		return &AssertionError{Type: a.Type, Subject: subject, Expected: "absent", Actual: "cached in state " + q.State().String()}
	}
	return nil
}

func assertCount(st *store.Store, a Assertion) error {
	got := st.Len()
	subject := "entities"
	if a.EntityType != "" {
		got = len(st.Entities(a.EntityType))
		subject = a.EntityType
	}
	if got != a.Count {
		return &AssertionError{Type: a.Type, Subject: subject, Expected: fmt.Sprint(a.Count), Actual: fmt.Sprint(got)}
	}
	return nil
}

// linkValue renders a relation slot the way scenarios spell it.
func linkValue(l entity.Link) ir.IRValue {
	if l.IsMany() {
		out := make(ir.IRArray, 0, l.Len())
		for _, k := range l.Keys() {
			out = append(out, ir.IRString(k.String()))
		}
		return out
	}
	if k, ok := l.Key(); ok {
		return ir.IRString(k.String())
	}
	return ir.IRNull{}
}

// rowsValue renders query rows: a key, null for a populated null, false
// for a hole.
func rowsValue(q *query.Result) ir.IRValue {
	out := make(ir.IRArray, 0, q.Len())
	for _, row := range q.Rows() {
		switch {
		case !row.Loaded:
			out = append(out, ir.IRBool(false))
		case row.Entity == nil:
			out = append(out, ir.IRNull{})
		default:
			out = append(out, ir.IRString(row.Entity.Key().String()))
		}
	}
	return out
}

func show(v ir.IRValue) string {
	if v == nil {
		return "null"
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", ir.ToGo(v))
	}
	return string(data)
}
