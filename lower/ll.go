package lower

import (
	"log/slog"

	"github.com/sableir/sable/convert"
	"github.com/sableir/sable/ir"
	"github.com/sableir/sable/pass"
)

// llTypeConverter maps buffer<T, r> to ptr<T> for the final stage.
func llTypeConverter() *convert.TypeConverter {
	tc := convert.NewTypeConverter()
	tc.AddConversion(func(reg *ir.TypeRegistry, t ir.TypeHandle) (ir.TypeHandle, bool) {
		typ, ok := reg.Lookup(t)
		if !ok {
			return 0, false
		}
		buf, ok := typ.Inner.(ir.BufferType)
		if !ok {
			return 0, false
		}
		return reg.Pointer(buf.Elem), true
	})
	return tc
}

// llFuncLowering rewrites core.func into ll.func: same symbol, function
// type mapped through the type converter, body deep-cloned with both
// value and type remapping. The cloned body still holds core operations;
// the driver picks them up from the worklist and converts them in place.
type llFuncLowering struct {
	convert.PatternBase
}

// NewLLFuncLowering creates the core.func -> ll.func pattern.
func NewLLFuncLowering() convert.Pattern {
	return llFuncLowering{convert.NewPatternBase(CoreFunc, 1)}
}

func (p llFuncLowering) Rewrite(m *ir.Module, op ir.OpHandle, _ []ir.ValueHandle, rw *convert.Rewriter) error {
	sym, ok := m.Attr(op, AttrSymName)
	if !ok {
		return convert.ErrNoMatch
	}
	tyAttr, ok := m.Attr(op, AttrType)
	if !ok {
		return convert.ErrNoMatch
	}
	fnTy, ok := tyAttr.(ir.TypeAttr)
	if !ok || m.NumRegions(op) != 1 {
		return convert.ErrNoMatch
	}

	fn := rw.Create(ir.OpSpec{
		Kind: LLFunc,
		Attrs: map[string]ir.Attribute{
			AttrSymName: sym,
			AttrType:    ir.TypeAttr{Type: convertFuncType(m.Types, rw, fnTy.Type)},
		},
		NumRegions: 1,
		Loc:        m.Loc(op),
	})
	rw.CloneRegionWithTypes(m.Region(op, 0), m.Region(fn, 0), rw.ConvertType)
	return rw.Replace(op)
}

// convertFuncType maps a function type's parameters and results through
// the stage's type converter.
func convertFuncType(reg *ir.TypeRegistry, rw *convert.Rewriter, fn ir.TypeHandle) ir.TypeHandle {
	t, ok := reg.Lookup(fn)
	if !ok {
		return fn
	}
	sig, ok := t.Inner.(ir.FuncType)
	if !ok {
		return fn
	}
	params := make([]ir.TypeHandle, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = rw.ConvertType(p)
	}
	results := make([]ir.TypeHandle, len(sig.Results))
	for i, r := range sig.Results {
		results[i] = rw.ConvertType(r)
	}
	return reg.Func(params, results)
}

// llConversionPass is the final, full conversion to the ll dialect. Any
// operation that is not builtin.module or ll after this pass is a hard
// failure: this is the last chance to reject stray unconverted
// operations before emission.
type llConversionPass struct {
	logger *slog.Logger
}

// NewLLConversionPass creates the stage-3 pass.
func NewLLConversionPass(logger *slog.Logger) pass.Pass {
	return llConversionPass{logger: logger}
}

func (p llConversionPass) Name() string { return "core-to-ll" }

func (p llConversionPass) Dependencies() []string {
	return []string{DialectCore, DialectLL}
}

func (p llConversionPass) Run(m *ir.Module) error {
	target := convert.NewTarget()
	target.AddLegalOp(ir.KindModule)
	target.AddLegalDialect(DialectLL)
	target.AddIllegalDialect(DialectCore, DialectHi)
	target.SetTypeConverter(llTypeConverter())

	patterns := convert.NewPatternSet()
	patterns.Add(
		NewLLFuncLowering(),
		NewOneToOne(CoreReturn, LLRet, 1),
		NewOneToOne(CoreCall, LLCall, 1),
		NewOneToOne(CoreAlloca, LLAlloca, 1),
		NewOneToOne(CoreLoad, LLLoad, 1),
		NewOneToOne(CoreStore, LLStore, 1),
		NewOneToOne(CoreConst, LLConst, 1),
		NewOneToOne(CoreAdd, LLAdd, 1),
		NewOneToOne(CoreSub, LLSub, 1),
		NewOneToOne(CoreMul, LLMul, 1),
		NewOneToOne(CoreBr, LLBr, 1),
		NewOneToOne(CoreCondBr, LLCondBr, 1),
	)

	return convert.ApplyFullConversion(m, target, patterns, p.logger)
}
