package convert

import (
	"errors"
	"sort"

	"github.com/sableir/sable/ir"
)

// ErrNoMatch is returned by a Pattern whose precondition does not hold
// for the candidate operation. It is expected and silent: the driver
// moves on to the next pattern. Any other error from Rewrite is also
// rolled back and treated as a match failure, per the propagation policy.
var ErrNoMatch = errors.New("pattern did not match")

// Pattern is a single rewrite rule rooted at one operation kind.
//
// Rewrite receives the candidate operation and its operand values with
// earlier replacements already applied (the "converted operands"). On
// match it must emit replacement IR through the Rewriter and finish with
// Replace or Erase on the matched operation; every original result must
// get exactly one replacement value of a compatible type. On mismatch it
// returns ErrNoMatch without touching anything the Rewriter would not
// roll back.
//
// Patterns are immutable once registered and must not retain the module,
// the rewriter or any handle past their own invocation.
type Pattern interface {
	// RootKind is the operation kind this pattern matches.
	RootKind() ir.OpKind
	// Benefit is the pattern's priority. When several patterns match the
	// same kind the driver tries higher benefits first; ties go to the
	// earlier-registered pattern.
	Benefit() int
	Rewrite(m *ir.Module, op ir.OpHandle, operands []ir.ValueHandle, rw *Rewriter) error
}

// PatternBase carries the root kind and benefit for concrete patterns.
type PatternBase struct {
	root    ir.OpKind
	benefit int
}

// NewPatternBase creates the embedded base for a pattern.
func NewPatternBase(root ir.OpKind, benefit int) PatternBase {
	return PatternBase{root: root, benefit: benefit}
}

// RootKind returns the operation kind the pattern matches.
func (p PatternBase) RootKind() ir.OpKind { return p.root }

// Benefit returns the pattern's priority.
func (p PatternBase) Benefit() int { return p.benefit }

// PatternSet is an ordered collection of patterns registered for one
// conversion stage. Selection order is benefit-descending with
// registration order breaking ties; the order is deterministic so that
// repeated runs produce identical output.
type PatternSet struct {
	byKind map[ir.OpKind][]Pattern
	count  int
}

// NewPatternSet creates an empty pattern set.
func NewPatternSet() *PatternSet {
	return &PatternSet{byKind: make(map[ir.OpKind][]Pattern)}
}

// Add registers patterns in order.
func (s *PatternSet) Add(patterns ...Pattern) {
	for _, p := range patterns {
		kind := p.RootKind()
		list := append(s.byKind[kind], p)
		// Stable sort keeps registration order among equal benefits.
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Benefit() > list[j].Benefit()
		})
		s.byKind[kind] = list
		s.count++
	}
}

// Len returns the number of registered patterns.
func (s *PatternSet) Len() int { return s.count }

// forKind returns the patterns matching kind in selection order.
func (s *PatternSet) forKind(kind ir.OpKind) []Pattern {
	return s.byKind[kind]
}
