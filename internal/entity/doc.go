// Package entity defines the normalized, immutable record value held by the
// store.
//
// An Entity is never modified in place. Every change (new attributes, a new
// relation slot, a lifecycle transition, attached errors) derives a fresh
// *Entity and leaves the receiver untouched, so a caller holding an older
// pointer never observes a change.
//
// Relation slots hold entity keys, not pointers. The store resolves keys
// against its entity table, which keeps cyclic relations (Post.author,
// Author.posts) free of ownership cycles.
package entity
