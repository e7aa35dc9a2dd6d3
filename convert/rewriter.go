package convert

import (
	"fmt"

	"github.com/sableir/sable/ir"
)

// Rewriter is the mutation surface handed to a pattern. It journals every
// operation the pattern creates so that a pattern failing partway can be
// rolled back without leaving the block structurally inconsistent; commit
// happens when the pattern returns nil.
//
// Insertions land immediately before the matched operation, in call
// order. A pattern must finish by calling Replace or Erase on the matched
// operation and must not retain the rewriter past its invocation; a
// pattern that returns nil without doing so is rolled back and treated
// as a non-match.
type Rewriter struct {
	m        *ir.Module
	drv      *driver
	anchor   ir.OpHandle
	created  []ir.OpHandle
	finished bool
}

// Module returns the module being rewritten.
func (rw *Rewriter) Module() *ir.Module { return rw.m }

// Create inserts a new operation before the matched operation.
func (rw *Rewriter) Create(spec ir.OpSpec) ir.OpHandle {
	blk, ok := rw.m.ParentBlock(rw.anchor)
	if !ok {
		// The root module op is never pattern-matched; a pattern asking
		// to insert next to it is broken.
		panic("convert: cannot insert next to the root operation")
	}
	op := rw.m.InsertOp(blk, rw.m.OpIndex(rw.anchor), spec)
	rw.created = append(rw.created, op)
	return op
}

// CloneRegionInto deep-copies src into dst with value remapping; the
// clones join the rewriter's journal and, on commit, the driver's
// worklist.
func (rw *Rewriter) CloneRegionInto(src, dst ir.RegionHandle) {
	rw.CloneRegionWithTypes(src, dst, nil)
}

// CloneRegionWithTypes is CloneRegionInto with a type rewrite applied to
// cloned block arguments, results and type attributes.
func (rw *Rewriter) CloneRegionWithTypes(src, dst ir.RegionHandle, typeMap func(ir.TypeHandle) ir.TypeHandle) {
	clones := rw.m.CloneRegionInto(src, dst, nil, typeMap)
	rw.created = append(rw.created, clones...)
}

// ConvertType maps a type through the active target's type converter;
// identity when the stage has none.
func (rw *Rewriter) ConvertType(t ir.TypeHandle) ir.TypeHandle {
	tc := rw.drv.target.TypeConverter()
	if tc == nil {
		return t
	}
	return tc.Convert(rw.m.Types, t)
}

// Replace commits the rewrite: every use of op's results is rewired to
// the replacement values (one per result, in order) and op is erased.
// Each replacement's type must equal the original type or be its image
// under the active type converter.
func (rw *Rewriter) Replace(op ir.OpHandle, with ...ir.ValueHandle) error {
	results := rw.m.Results(op)
	if len(with) != len(results) {
		return fmt.Errorf("replace %q: %d replacement values for %d results",
			rw.m.Kind(op), len(with), len(results))
	}
	for i, res := range results {
		oldType := rw.m.ValueType(res)
		newType := rw.m.ValueType(with[i])
		if oldType != newType && rw.ConvertType(oldType) != newType {
			return fmt.Errorf("replace %q: result %d type %s replaced by incompatible %s",
				rw.m.Kind(op), i, rw.m.Types.String(oldType), rw.m.Types.String(newType))
		}
	}
	for i, res := range results {
		rw.drv.recordReplacement(res, with[i])
	}
	if err := rw.m.ReplaceOp(op, with...); err != nil {
		return err
	}
	rw.finished = true
	return nil
}

// Erase commits the rewrite by deleting op, which must have no remaining
// result uses.
func (rw *Rewriter) Erase(op ir.OpHandle) error {
	if err := rw.m.EraseOp(op); err != nil {
		return err
	}
	rw.finished = true
	return nil
}

// rollback removes everything the pattern created, newest first, so that
// users of a value are gone before its definer. Clones nested inside an
// already-erased operation are skipped.
func (rw *Rewriter) rollback() {
	for i := len(rw.created) - 1; i >= 0; i-- {
		op := rw.created[i]
		if rw.m.IsErased(op) {
			continue
		}
		if err := rw.m.EraseOp(op); err != nil {
			// Unreachable when patterns follow the contract; nothing
			// outside the journal can use a journaled result yet.
			rw.drv.logger.Warn("rollback could not erase op",
				"op", string(rw.m.Kind(op)), "err", err)
		}
	}
	rw.created = nil
}
