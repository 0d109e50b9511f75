package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/mapper"
	"github.com/roach88/normstore/internal/mapper/sqlite"
	"github.com/roach88/normstore/internal/query"
	"github.com/roach88/normstore/internal/schema"
	"github.com/roach88/normstore/internal/store"
)

// Option configures a scenario run.
type Option func(*runner)

// WithLogger routes store and backend logs to l. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(r *runner) {
		r.logger = l
	}
}

// runner holds the state of one scenario execution.
type runner struct {
	store   *store.Store
	ids     *entity.SequenceGenerator
	logger  *slog.Logger
	closers []func() error

	// fail is set while a lifecycle step that injects a failure runs.
	fail map[string]string
}

// Run executes a scenario against a fresh store and backend and returns
// the result. The error is non-nil only when the scenario cannot be set up
// (unreadable schema, bad seed); step and assertion failures are reported
// in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	r := &runner{
		ids:    entity.NewSequenceGenerator("draft"),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	defer r.close()

	ctx := context.Background()

	reg, err := schema.Load(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	mappers, err := r.backend(ctx, scenario, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare backend: %w", err)
	}

	storeOpts := []store.Option{store.WithLogger(r.logger)}
	for typ, m := range mappers {
		storeOpts = append(storeOpts, store.WithMapper(typ, m))
	}
	r.store = store.New(reg, storeOpts...)

	result := NewResult()
	completed := true
	for i, step := range scenario.Steps {
		ev, err := r.execute(ctx, step)
		ev.Step = i + 1
		ev.Op = step.Op
		result.addTrace(ev)

		if step.ExpectError != "" {
			switch {
			case err == nil:
				result.AddError(fmt.Sprintf("steps[%d] %s: expected error containing %q, got none", i, step.Op, step.ExpectError))
			case !strings.Contains(err.Error(), step.ExpectError):
				result.AddError(fmt.Sprintf("steps[%d] %s: expected error containing %q, got %q", i, step.Op, step.ExpectError, err.Error()))
			}
			continue
		}
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
			completed = false
			break
		}
		if step.ExpectKind != "" && ev.Kind != step.ExpectKind {
			result.AddError(fmt.Sprintf("steps[%d] %s: expected outcome %q, got %q", i, step.Op, step.ExpectKind, ev.Kind))
		}
		r.logger.Debug("step completed", "step", i, "op", step.Op, "type", step.Type, "kind", ev.Kind)
	}

	if completed {
		for _, msg := range EvaluateAssertions(r.store, scenario.Assertions) {
			result.AddError(msg)
		}
	}

	result.Dump = r.store.Dump()
	if result.Hash, err = r.store.Hash(); err != nil {
		return nil, fmt.Errorf("failed to hash snapshot: %w", err)
	}
	return result, nil
}

// close releases every backend. A failure is logged and does not stop the
// remaining closers.
func (r *runner) close() {
	for _, c := range r.closers {
		if err := c(); err != nil {
			r.logger.Warn("failed to close backend", "error", err)
		}
	}
}

// backend builds one mapper per registered type, seeded from the scenario
// and wrapped so that a step can inject a failure.
func (r *runner) backend(ctx context.Context, s *Scenario, reg *schema.Registry) (map[string]mapper.Mapper, error) {
	for typ := range s.Seed {
		if _, err := reg.Lookup(typ); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	seed := func(typ string) ([]ir.IRObject, error) {
		out := make([]ir.IRObject, 0, len(s.Seed[typ]))
		for i, raw := range s.Seed[typ] {
			rec, err := ir.ObjectFromGo(raw)
			if err != nil {
				return nil, fmt.Errorf("seed %s[%d]: %w", typ, i, err)
			}
			out = append(out, rec)
		}
		return out, nil
	}

	mappers := map[string]mapper.Mapper{}
	switch s.Backend {
	case BackendNone:
		return mappers, nil

	case BackendSQLite:
		db, err := sqlite.Open(":memory:",
			sqlite.WithClock(sqlite.NewSeqClock(0)),
			sqlite.WithLogger(r.logger))
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, db.Close)
		for _, typ := range reg.Names() {
			recs, err := seed(typ)
			if err != nil {
				return nil, err
			}
			m := db.Mapper(typ)
			if err := m.Seed(ctx, recs...); err != nil {
				return nil, err
			}
			mappers[typ] = r.faulty(typ, m)
		}

	default:
		for _, typ := range reg.Names() {
			recs, err := seed(typ)
			if err != nil {
				return nil, err
			}
			m, err := mapper.NewMemory(typ, recs...)
			if err != nil {
				return nil, fmt.Errorf("seed %s: %w", typ, err)
			}
			mappers[typ] = r.faulty(typ, m)
		}
	}
	return mappers, nil
}

// faulty wraps m so that every call fails while r.fail is set.
func (r *runner) faulty(typ string, m mapper.Mapper) mapper.Funcs {
	return mapper.Funcs{
		Type: typ,
		FetchFunc: func(ctx context.Context, id ir.IRValue, opts ir.IRObject) (ir.IRObject, error) {
			if err := r.injected(); err != nil {
				return nil, err
			}
			return m.Fetch(ctx, id, opts)
		},
		QueryFunc: func(ctx context.Context, opts ir.IRObject, paging *query.Paging) (mapper.QueryResponse, error) {
			if err := r.injected(); err != nil {
				return mapper.QueryResponse{}, err
			}
			return m.Query(ctx, opts, paging)
		},
		CreateFunc: func(ctx context.Context, e *entity.Entity, opts ir.IRObject) (ir.IRObject, error) {
			if err := r.injected(); err != nil {
				return nil, err
			}
			return m.Create(ctx, e, opts)
		},
		UpdateFunc: func(ctx context.Context, e *entity.Entity, opts ir.IRObject) (ir.IRObject, error) {
			if err := r.injected(); err != nil {
				return nil, err
			}
			return m.Update(ctx, e, opts)
		},
		DeleteFunc: func(ctx context.Context, e *entity.Entity, opts ir.IRObject) (ir.IRObject, error) {
			if err := r.injected(); err != nil {
				return nil, err
			}
			return m.Delete(ctx, e, opts)
		},
	}
}

func (r *runner) injected() error {
	if r.fail == nil {
		return nil
	}
	return &mapper.Error{Errors: r.fail}
}

// execute applies one step to r.store.
func (r *runner) execute(ctx context.Context, st Step) (TraceEvent, error) {
	records, err := objects(st.Records)
	if err != nil {
		return TraceEvent{}, err
	}
	options, err := ir.ObjectFromGo(st.Options)
	if err != nil {
		return TraceEvent{}, fmt.Errorf("options: %w", err)
	}
	attrs, err := ir.ObjectFromGo(st.Record)
	if err != nil {
		return TraceEvent{}, fmt.Errorf("record: %w", err)
	}
	var id ir.IRValue
	if st.ID != nil {
		if id, err = ir.FromGo(st.ID); err != nil {
			return TraceEvent{}, fmt.Errorf("id: %w", err)
		}
	}

	var (
		next *store.Store
		act  store.Action
	)
	switch st.Op {
	case OpUpsert:
		var opts []store.UpsertOption
		if st.State != "" {
			state, err := entity.ParseState(st.State)
			if err != nil {
				return TraceEvent{}, err
			}
			opts = append(opts, store.AsState(state))
		}
		if st.Errors != nil {
			opts = append(opts, store.WithErrors(st.Errors))
		}
		next, err = r.store.Upsert(st.Type, records, opts...)

	case OpUpsertQuery:
		u := store.QueryUpdate{Records: records, Paging: st.Paging, Error: st.Error}
		if st.State != "" {
			if u.State, err = query.ParseState(st.State); err != nil {
				return TraceEvent{}, err
			}
		}
		next, err = r.store.UpsertQuery(st.Type, options, u)

	case OpExpunge:
		var k entity.Key
		if k, err = entity.KeyOf(st.Type, id); err != nil {
			return TraceEvent{}, err
		}
		next, err = r.store.Expunge(k)

	case OpExpungeQuery:
		next, err = r.store.ExpungeQuery(st.Type, options)

	case OpFetch:
		next, act, err = r.store.Fetch(st.Type, id, options)

	case OpQuery:
		next, act, err = r.store.Query(st.Type, options, st.Paging)

	case OpCreate:
		var typ *schema.Type
		if typ, err = r.store.Registry().Lookup(st.Type); err != nil {
			return TraceEvent{}, err
		}
		var draft *entity.Entity
		if draft, err = entity.Draft(typ, attrs, r.ids); err != nil {
			return TraceEvent{}, err
		}
		next, act, err = r.store.Create(draft, options)

	case OpUpdate:
		var stored, changed *entity.Entity
		if stored, err = r.stored(st.Type, id); err != nil {
			return TraceEvent{}, err
		}
		if changed, err = stored.Update(entity.Patch{Attributes: attrs}); err != nil {
			return TraceEvent{}, err
		}
		next, act, err = r.store.Update(changed, options)

	case OpDelete:
		var stored *entity.Entity
		if stored, err = r.stored(st.Type, id); err != nil {
			return TraceEvent{}, err
		}
		next, act, err = r.store.Delete(stored, options)

	default:
		return TraceEvent{}, fmt.Errorf("unknown op %q", st.Op)
	}
	if err != nil {
		return TraceEvent{}, err
	}
	r.store = next
	if act == nil {
		return TraceEvent{}, nil
	}

	r.fail = st.Fail
	outcome := act(ctx)
	r.fail = nil

	if r.store, err = r.store.Reduce(outcome); err != nil {
		return TraceEvent{Kind: string(outcome.Kind)}, err
	}
	return TraceEvent{Kind: string(outcome.Kind), Message: outcome.Message}, nil
}

func (r *runner) stored(typ string, id ir.IRValue) (*entity.Entity, error) {
	e, ok := r.store.Entity(typ, id)
	if !ok {
		return nil, fmt.Errorf("%s %v is not stored", typ, ir.ToGo(id))
	}
	return e, nil
}

func objects(raw []map[string]any) ([]ir.IRObject, error) {
	out := make([]ir.IRObject, 0, len(raw))
	for i, m := range raw {
		obj, err := ir.ObjectFromGo(m)
		if err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		out = append(out, obj)
	}
	return out, nil
}
