// Package store implements the normalized entity graph store.
//
// A *Store is an immutable snapshot made of four persistent tables:
//
//   - entities: entity key -> *entity.Entity
//   - relations: (source key, relation name) -> entity.Link
//   - queries: query key -> *query.Result
//   - reverse index: entity key -> every relation edge and query that
//     references it
//
// Every operation returns a new *Store that shares untouched structure with
// its predecessor. Holders of older snapshots never observe a change, so a
// *Store may be shared between goroutines without locking.
//
// # Ingestion
//
// Upsert decomposes nested records into entities and relation edges, keeps
// declared inverse relations symmetric, then walks the reverse index from
// every touched entity so that each reachable entity's relation slots and
// every query row that lists it are rebuilt from the relation table.
//
// # Lifecycle
//
// Fetch, Query, Create, Update and Delete return an optimistic snapshot plus
// an Action. Running the Action calls the type's Mapper exactly once and
// yields an Outcome; Reduce folds the Outcome into a later snapshot. The
// store itself never performs I/O and never blocks.
package store
