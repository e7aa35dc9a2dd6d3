package ir

import (
	"fmt"
)

// VerifyError represents a structural verification error.
type VerifyError struct {
	Message string
	// Optional context
	Kind OpKind
	Loc  string
}

// Error implements the error interface.
func (e VerifyError) Error() string {
	switch {
	case e.Kind != "" && e.Loc != "":
		return fmt.Sprintf("%s (at %s): %s", e.Kind, e.Loc, e.Message)
	case e.Kind != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return e.Message
	}
}

// verifier checks a module's structural invariants.
type verifier struct {
	module *Module
	errors []VerifyError
}

// Verify checks the module graph for structural well-formedness,
// independent of any legality target:
//
//   - every operand references a live value, and the value's use-list
//     records the edge (use/def consistency both ways);
//   - within a block, an operand defined by a sibling operation is
//     defined before its use; operands defined elsewhere must come from
//     an enclosing block's arguments or an operation in an enclosing
//     block (dominating scope);
//   - a terminator is the last operation of its block, and every block of
//     a multi-block region ends with one;
//   - successor references stay inside the operation's own region.
//
// Returns verification errors if any, or nil if the module is well-formed.
func Verify(module *Module) []VerifyError {
	v := &verifier{module: module}
	v.verifyOp(module.Root())
	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *verifier) addError(op OpHandle, format string, args ...any) {
	v.errors = append(v.errors, VerifyError{
		Message: fmt.Sprintf(format, args...),
		Kind:    v.module.Kind(op),
		Loc:     v.module.Loc(op),
	})
}

func (v *verifier) verifyOp(op OpHandle) {
	m := v.module
	if m.IsErased(op) {
		v.addError(op, "erased operation still reachable")
		return
	}

	v.verifyOperands(op)

	for i := 0; i < m.NumRegions(op); i++ {
		r := m.Region(op, i)
		blocks := m.Blocks(r)
		for _, b := range blocks {
			v.verifyBlock(op, r, b, len(blocks) > 1)
		}
	}
}

func (v *verifier) verifyOperands(op OpHandle) {
	m := v.module
	for i, val := range m.Operands(op) {
		if m.ValueErased(val) {
			v.addError(op, "operand %d references an erased value", i)
			continue
		}
		if !v.useRecorded(val, op, i) {
			v.addError(op, "operand %d missing from the value's use-list", i)
		}
		v.verifyDominance(op, i, val)
	}
}

func (v *verifier) useRecorded(val ValueHandle, op OpHandle, index int) bool {
	for _, u := range v.module.Uses(val) {
		if u.Op == op && u.Index == index {
			return true
		}
	}
	return false
}

// verifyDominance checks that the operand's definition encloses or
// precedes its use.
func (v *verifier) verifyDominance(op OpHandle, index int, val ValueHandle) {
	m := v.module
	useBlock, ok := m.ParentBlock(op)
	if !ok {
		return
	}

	if def, isResult := m.DefiningOp(val); isResult {
		defBlock, ok := m.ParentBlock(def)
		if !ok {
			return
		}
		if defBlock == useBlock {
			if m.OpIndex(def) >= m.OpIndex(op) {
				v.addError(op, "operand %d used before its definition", index)
			}
			return
		}
		if !v.blockEncloses(defBlock, useBlock) && !v.sameRegion(defBlock, useBlock) {
			v.addError(op, "operand %d defined outside any dominating scope", index)
		}
		return
	}

	owner, _ := m.OwnerBlock(val)
	if owner != useBlock && !v.blockEncloses(owner, useBlock) && !v.sameRegion(owner, useBlock) {
		v.addError(op, "operand %d references a block argument outside any dominating scope", index)
	}
}

// blockEncloses reports whether outer is an ancestor block of inner in
// the region tree.
func (v *verifier) blockEncloses(outer, inner BlockHandle) bool {
	m := v.module
	b := inner
	for {
		r := m.BlockParent(b)
		parent := m.RegionParent(r)
		pb, ok := m.ParentBlock(parent)
		if !ok {
			return false
		}
		if pb == outer {
			return true
		}
		b = pb
	}
}

// sameRegion reports whether two blocks belong to one region. Cross-block
// uses within a region are resolved by branching; full dominance analysis
// over the CFG is out of scope for structural verification.
func (v *verifier) sameRegion(a, b BlockHandle) bool {
	return v.module.BlockParent(a) == v.module.BlockParent(b)
}

func (v *verifier) verifyBlock(parent OpHandle, r RegionHandle, b BlockHandle, multiBlock bool) {
	m := v.module
	ops := m.BlockOps(b)

	if multiBlock && len(ops) == 0 {
		v.addError(parent, "empty block in a multi-block region")
		return
	}

	for i, op := range ops {
		if m.IsTerminator(op) && i != len(ops)-1 {
			v.addError(op, "terminator is not the last operation of its block")
		}
		for _, s := range m.Successors(op) {
			if m.BlockParent(s) != r {
				v.addError(op, "successor block belongs to a different region")
			}
		}
	}

	if multiBlock {
		last := ops[len(ops)-1]
		if !m.IsTerminator(last) {
			v.addError(last, "block in a multi-block region does not end with a terminator")
		}
	}

	for _, op := range ops {
		v.verifyOp(op)
	}
}
