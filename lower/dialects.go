// Package lower defines the hi, core and ll dialects and the staged
// passes that progressively rewrite hi-dialect modules down to the ll
// dialect.
//
// The pipeline order is a correctness requirement, not a preference:
// function shapes are legalized first (later stages assume destination
// function boundaries), memory operations and constants second (they need
// already-legalized function bodies), and the full ll conversion runs
// last so no stray operation of another dialect survives to emission.
package lower

import (
	"github.com/sableir/sable/ir"
)

// hi is the structured source dialect.
const (
	DialectHi = "hi"

	HiFunc   ir.OpKind = "hi.func"
	HiReturn ir.OpKind = "hi.return"
	HiCall   ir.OpKind = "hi.call"
	HiAlloca ir.OpKind = "hi.alloca"
	HiLoad   ir.OpKind = "hi.load"
	HiStore  ir.OpKind = "hi.store"
	HiConst  ir.OpKind = "hi.const"
	HiAdd    ir.OpKind = "hi.add"
	HiSub    ir.OpKind = "hi.sub"
	HiMul    ir.OpKind = "hi.mul"
	HiBr     ir.OpKind = "hi.br"
	HiCondBr ir.OpKind = "hi.cond_br"
)

// core is the mid-level dialect: destination function shapes, buffer
// memory operations, arithmetic and branches.
const (
	DialectCore = "core"

	CoreFunc   ir.OpKind = "core.func"
	CoreReturn ir.OpKind = "core.return"
	CoreCall   ir.OpKind = "core.call"
	CoreAlloca ir.OpKind = "core.alloca"
	CoreLoad   ir.OpKind = "core.load"
	CoreStore  ir.OpKind = "core.store"
	CoreConst  ir.OpKind = "core.const"
	CoreAdd    ir.OpKind = "core.add"
	CoreSub    ir.OpKind = "core.sub"
	CoreMul    ir.OpKind = "core.mul"
	CoreBr     ir.OpKind = "core.br"
	CoreCondBr ir.OpKind = "core.cond_br"
)

// ll is the flat low-level destination dialect.
const (
	DialectLL = "ll"

	LLFunc   ir.OpKind = "ll.func"
	LLRet    ir.OpKind = "ll.ret"
	LLCall   ir.OpKind = "ll.call"
	LLAlloca ir.OpKind = "ll.alloca"
	LLLoad   ir.OpKind = "ll.load"
	LLStore  ir.OpKind = "ll.store"
	LLConst  ir.OpKind = "ll.const"
	LLAdd    ir.OpKind = "ll.add"
	LLSub    ir.OpKind = "ll.sub"
	LLMul    ir.OpKind = "ll.mul"
	LLBr     ir.OpKind = "ll.br"
	LLCondBr ir.OpKind = "ll.cond_br"
)

// Well-known attribute names.
const (
	AttrSymName   = "sym_name"
	AttrType      = "type"
	AttrCallee    = "callee"
	AttrValue     = "value"
	AttrAlignment = "alignment"
)

// RegisterDialects registers hi, core and ll with the registry.
func RegisterDialects(reg *ir.DialectRegistry) error {
	dialects := []ir.Dialect{
		{Name: DialectHi, Ops: []ir.OpKind{
			HiFunc, HiReturn, HiCall, HiAlloca, HiLoad, HiStore,
			HiConst, HiAdd, HiSub, HiMul, HiBr, HiCondBr,
		}},
		{Name: DialectCore, Ops: []ir.OpKind{
			CoreFunc, CoreReturn, CoreCall, CoreAlloca, CoreLoad, CoreStore,
			CoreConst, CoreAdd, CoreSub, CoreMul, CoreBr, CoreCondBr,
		}},
		{Name: DialectLL, Ops: []ir.OpKind{
			LLFunc, LLRet, LLCall, LLAlloca, LLLoad, LLStore,
			LLConst, LLAdd, LLSub, LLMul, LLBr, LLCondBr,
		}},
	}
	for _, d := range dialects {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// copyAttrs duplicates an operation's attribute map for a replacement op.
func copyAttrs(m *ir.Module, op ir.OpHandle) map[string]ir.Attribute {
	src := m.Attrs(op)
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]ir.Attribute, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// resultTypes collects the types of an operation's results.
func resultTypes(m *ir.Module, op ir.OpHandle) []ir.TypeHandle {
	results := m.Results(op)
	if len(results) == 0 {
		return nil
	}
	out := make([]ir.TypeHandle, len(results))
	for i, res := range results {
		out[i] = m.ValueType(res)
	}
	return out
}
