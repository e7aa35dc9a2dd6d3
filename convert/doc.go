// Package convert implements the progressive conversion engine: rewrite
// patterns, the per-stage legality target, and the worklist driver that
// applies patterns until the module reaches a legality fixed point.
//
// A conversion runs in one of two modes. Partial conversion leaves
// illegal operations that no pattern matches untouched, so intermediate
// stages can convert only the operations they own. Full conversion
// requires that zero non-legal operations remain and fails the run
// otherwise; it is meant for the final stage before emission.
//
// Rewrites are committed eagerly. A pattern application is the only
// transaction boundary: a pattern that starts emitting and then fails is
// rolled back and treated as an ordinary match failure. A full-conversion
// run that fails its final legality scan does NOT roll back the rewrites
// already committed; the caller must discard the module.
package convert
