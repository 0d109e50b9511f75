// Package ir provides the constrained value model shared by every normstore
// package: raw records handed over by a Mapper, entity attributes, and query
// options are all IRValue trees.
//
// This package imports nothing internal. All other internal packages import
// ir, which keeps it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - null is a real value (IRNull) because relation slots may be null
//   - Object keys are ordered by RFC 8785 (UTF-16 code units) wherever a
//     deterministic order is observable
package ir
