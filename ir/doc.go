// Package ir defines the intermediate representation for sable.
//
// The IR is a dialect-agnostic operation graph: operations own regions,
// regions own blocks, blocks own operations, and typed values connect
// operations through explicit use-lists. All nodes live in handle-indexed
// arenas owned by the Module; handles stay valid for the lifetime of a
// pipeline invocation (erased nodes are tombstoned, never reused).
//
// Operation kinds are namespaced by dialect ("hi.call", "ll.ret"). The
// concrete dialects lowered by sable are defined in the lower package;
// this package only knows the builtin module operation.
package ir
