// Package query defines the cached result set of one (type, options) query.
//
// A Result is immutable; derivations return a new *Result. Rows may be
// sparse: a position never covered by a fetched page is a hole, which is
// distinct from a populated row whose entity is legitimately absent.
package query
