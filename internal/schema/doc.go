// Package schema holds the static, per-entity-type metadata the store consults
// while ingesting records: the relation descriptor table (cardinality, target
// type, optional inverse) and the attribute schema contract.
//
// A Registry is built once and never mutated afterwards; the store shares a
// single *Registry across every snapshot.
//
// # Type files
//
// Registries are usually compiled from CUE:
//
//	types: Post: {
//	    attributes: close({
//	        id:     int
//	        title:  string
//	        status: *"draft" | "published"
//	    })
//	    relations: {
//	        author:   {target: "Author", inverse: "posts"}
//	        comments: {target: "Comment", many: true, inverse: "post"}
//	    }
//	}
//
// The attributes struct becomes a CUESchema (validation plus default
// derivation); relations become Relation descriptors.
package schema
