package query

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/normstore/internal/entity"
	"github.com/roach88/normstore/internal/ir"
)

// State is a query's lifecycle state.
type State int

// The zero State means "unchanged".
const (
	StateNew State = iota + 1
	StateGetting
	StateLoaded
	StateError
)

var stateNames = map[State]string{
	StateNew:     "new",
	StateGetting: "getting",
	StateLoaded:  "loaded",
	StateError:   "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState parses a state name such as "getting".
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown query state %q", name)
}

// IsTerminal reports whether s ends a page request.
func (s State) IsTerminal() bool {
	return s == StateLoaded || s == StateError
}

// Key identifies a query: entity type plus the options hash.
type Key struct {
	Type string
	Hash string
}

// NewKey hashes options into a Key. Key order in options does not matter.
func NewKey(typ string, options ir.IRObject) (Key, error) {
	h, err := ir.QueryHash(options)
	if err != nil {
		return Key{}, fmt.Errorf("hash %s query options: %w", typ, err)
	}
	return Key{Type: typ, Hash: h}, nil
}

func (k Key) String() string {
	return k.Type + "|" + k.Hash
}

// Paging describes one page of a paged response. Page is 0-based; Count is
// the total number of rows across all pages.
type Paging struct {
	Page     int `json:"page" yaml:"page"`
	PageSize int `json:"page_size" yaml:"page_size"`
	Count    int `json:"count" yaml:"count"`
}

// ErrInvalidPaging means a Paging carried a negative page, page size, or count.
var ErrInvalidPaging = errors.New("normstore: invalid paging")

// Validate reports whether p can address rows. A nil Paging is valid and
// means "the whole result as one page".
func (p *Paging) Validate() error {
	if p == nil {
		return nil
	}
	if p.Page < 0 || p.PageSize < 0 || p.Count < 0 {
		return fmt.Errorf("%w: page %d, page_size %d, count %d",
			ErrInvalidPaging, p.Page, p.PageSize, p.Count)
	}
	return nil
}

// Offset returns the absolute position of the page's first row.
func (p Paging) Offset() int {
	return p.Page * p.PageSize
}

// Row is one result position. A Row that is not Loaded is a hole.
// A Loaded row with a nil Entity is a populated null.
type Row struct {
	Loaded bool
	Entity *entity.Entity
}

// Key returns the key of the row's entity, if any.
func (r Row) Key() (entity.Key, bool) {
	if r.Entity == nil {
		return entity.Key{}, false
	}
	return r.Entity.Key(), true
}

// Result is one cached query.
type Result struct {
	key      Key
	options  ir.IRObject
	state    State
	err      string
	pageSize int
	rows     []Row
	pending  map[int]bool
}

// New creates an empty Result in StateNew.
func New(key Key, options ir.IRObject) *Result {
	return &Result{
		key:     key,
		options: options.Clone(),
		state:   StateNew,
		pending: map[int]bool{},
	}
}

func (r *Result) clone() *Result {
	c := *r
	return &c
}

// Key returns the query key.
func (r *Result) Key() Key { return r.key }

// Type returns the entity type of the rows.
func (r *Result) Type() string { return r.key.Type }

// Options returns a copy of the query options.
func (r *Result) Options() ir.IRObject { return r.options.Clone() }

// State returns the lifecycle state.
func (r *Result) State() State { return r.state }

// Error returns the last recorded error message, or "".
func (r *Result) Error() string { return r.err }

// PageSize returns the page size last seen for this query, 0 if unpaged.
func (r *Result) PageSize() int { return r.pageSize }

// Len returns the number of row positions, holes included.
func (r *Result) Len() int { return len(r.rows) }

// Row returns the row at position i.
func (r *Result) Row(i int) Row { return r.rows[i] }

// Rows returns a copy of all rows.
func (r *Result) Rows() []Row {
	out := make([]Row, len(r.rows))
	copy(out, r.rows)
	return out
}

// Entities returns the populated, non-null entities in row order.
func (r *Result) Entities() []*entity.Entity {
	out := make([]*entity.Entity, 0, len(r.rows))
	for _, row := range r.rows {
		if row.Entity != nil {
			out = append(out, row.Entity)
		}
	}
	return out
}

// Keys returns the distinct entity keys in the rows, in first-seen order.
func (r *Result) Keys() []entity.Key {
	seen := make(map[entity.Key]bool, len(r.rows))
	out := make([]entity.Key, 0, len(r.rows))
	for _, row := range r.rows {
		if k, ok := row.Key(); ok && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// PendingPages returns the pages currently being fetched, sorted.
func (r *Result) PendingPages() []int {
	out := make([]int, 0, len(r.pending))
	for p := range r.pending {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// IsPending reports whether page is being fetched.
func (r *Result) IsPending(page int) bool { return r.pending[page] }

// WithState returns a copy of r in state s.
func (r *Result) WithState(s State) *Result {
	next := r.clone()
	next.state = s
	return next
}

// WithError returns a copy of r carrying msg. "" clears the error.
func (r *Result) WithError(msg string) *Result {
	next := r.clone()
	next.err = msg
	return next
}

// WithPending returns a copy of r with page marked pending.
func (r *Result) WithPending(page int) *Result {
	if r.pending[page] {
		return r
	}
	next := r.clone()
	next.pending = copyPages(r.pending)
	next.pending[page] = true
	return next
}

// WithoutPending returns a copy of r with page no longer pending.
func (r *Result) WithoutPending(page int) *Result {
	if !r.pending[page] {
		return r
	}
	next := r.clone()
	next.pending = copyPages(r.pending)
	delete(next.pending, page)
	return next
}

// WithPageSize returns a copy of r remembering a page size.
func (r *Result) WithPageSize(n int) *Result {
	next := r.clone()
	next.pageSize = n
	return next
}

// Place returns a copy of r with rows placed. Without paging, rows replace
// the whole sequence. With paging, the sequence is resized to paging.Count
// (grown further if the page overflows it) and rows are written starting at
// the page offset; every other position keeps its previous row or hole.
func (r *Result) Place(rows []Row, paging *Paging) *Result {
	next := r.clone()
	if paging == nil || paging.PageSize <= 0 {
		next.rows = make([]Row, len(rows))
		copy(next.rows, rows)
		return next
	}

	next.pageSize = paging.PageSize
	start := paging.Offset()
	size := paging.Count
	if end := start + len(rows); end > size {
		size = end
	}
	next.rows = make([]Row, size)
	copy(next.rows, r.rows)
	copy(next.rows[start:], rows)
	return next
}

// Rewrite returns a copy of r whose rows holding e's key now hold e.
// It returns r itself when no row matches.
func (r *Result) Rewrite(e *entity.Entity) *Result {
	var next *Result
	for i, row := range r.rows {
		if k, ok := row.Key(); !ok || k != e.Key() {
			continue
		}
		if next == nil {
			next = r.clone()
			next.rows = r.Rows()
		}
		next.rows[i] = Row{Loaded: true, Entity: e}
	}
	if next == nil {
		return r
	}
	return next
}

// Remove returns a copy of r with every row holding k spliced out, so the
// sequence shrinks. It returns r itself when no row matches.
func (r *Result) Remove(k entity.Key) *Result {
	rows := make([]Row, 0, len(r.rows))
	for _, row := range r.rows {
		if rk, ok := row.Key(); ok && rk == k {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == len(r.rows) {
		return r
	}
	next := r.clone()
	next.rows = rows
	return next
}

func copyPages(m map[int]bool) map[int]bool {
	out := make(map[int]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}
