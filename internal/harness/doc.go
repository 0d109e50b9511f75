// Package harness runs store scenarios written in YAML.
//
// A scenario names a CUE schema file, optionally seeds the record source
// behind every type, then applies a list of steps to a fresh store and
// checks assertions against the final snapshot.
//
// # Scenario Format
//
//	name: fetch_post
//	description: "Fetching a post normalizes its author"
//	schema: blog.cue
//	backend: memory            # memory (default) | sqlite | none
//	seed:
//	  Post:
//	    - {id: 1, title: "hello", author: {id: 10, name: "Ann"}}
//	steps:
//	  - op: fetch
//	    type: Post
//	    id: 1
//	  - op: update
//	    type: Post
//	    id: 1
//	    record: {title: "bye"}
//	    fail: {title: "too short"}
//	    expect_kind: "update:error"
//	assertions:
//	  - type: entity
//	    key: Post|1
//	    state: loaded
//	    attributes: {title: "hello"}
//	    relations: {author: Author|10}
//	    errors: {title: "too short"}
//	  - type: query
//	    entity_type: Post
//	    options: {status: draft}
//	    rows: [Post|1, null, false]
//
// # Steps
//
//   - upsert: ingest records (state and errors optional)
//   - upsert_query: apply a query transition (state, records, paging, error)
//   - expunge: remove one entity
//   - expunge_query: remove a query and the entities only it referenced
//   - fetch, query, create, update, delete: run the lifecycle operation,
//     perform its Action against the backend and reduce the outcome
//
// A lifecycle step with fail set makes the backend reject that one call
// with the given field errors.
//
// # Assertion Types
//
//   - entity: the entity exists; state, attributes (subset), relations and
//     errors are compared when given
//   - absent: the entity is not stored
//   - query: the query exists; state, rows and error are compared when given
//   - query_absent: the query is not cached
//   - count: number of stored entities, optionally of one entity_type
//
// # Deterministic Testing
//
// Every scenario runs against a fresh backend. The SQLite backend is an
// in-memory database stamped by sqlite.SeqClock, and drafts get
// ids from entity.SequenceGenerator. The final snapshot dump is canonical
// JSON, so golden files are byte-stable.
package harness
