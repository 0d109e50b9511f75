// Package mapper defines the data-access boundary of the store.
//
// A Mapper is the only component that performs I/O. The store never calls
// one directly; its lifecycle operations return deferred actions that the
// caller runs, and the resolved outcomes are folded back into the store.
//
// Implementations in this package:
//
//   - Unconfigured rejects every call with a configuration error.
//   - Funcs adapts plain functions, which is handy in tests.
//   - Memory keeps records in process, for demos and scenarios.
//
// A SQLite-backed Mapper lives in the sqlite subpackage.
package mapper
