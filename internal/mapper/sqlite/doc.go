// Package sqlite provides a mapper.Mapper backed by a SQLite database.
//
// All entity types share a single records table keyed by (entity_type, id).
// Record bodies are stored as RFC 8785 canonical JSON, so the same record
// always produces the same bytes on disk.
//
// # Ordering
//
// Every row carries a seq stamped from a logical clock when it is first
// inserted. Queries return rows ORDER BY seq ASC, id ASC COLLATE BINARY,
// which is insertion order and stable across reopen. Updates keep the
// original seq.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// # Filtering
//
// Query options are equality filters on top-level record attributes,
// matching mapper.Memory. Scalar options become json_type/json_extract
// predicates with bound parameters; array and object options are compared
// in Go after decoding.
package sqlite
