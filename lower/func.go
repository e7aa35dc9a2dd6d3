package lower

import (
	"log/slog"

	"github.com/sableir/sable/convert"
	"github.com/sableir/sable/ir"
	"github.com/sableir/sable/pass"
)

// funcLowering rewrites hi.func into core.func: exact symbol name and
// function type, body region deep-cloned with value remapping. The clone
// is a full structural copy because the hi.func is deleted afterwards.
type funcLowering struct {
	convert.PatternBase
}

// NewFuncLowering creates the hi.func -> core.func pattern.
func NewFuncLowering() convert.Pattern {
	return funcLowering{convert.NewPatternBase(HiFunc, 1)}
}

func (p funcLowering) Rewrite(m *ir.Module, op ir.OpHandle, _ []ir.ValueHandle, rw *convert.Rewriter) error {
	sym, ok := m.Attr(op, AttrSymName)
	if !ok {
		return convert.ErrNoMatch
	}
	fnType, ok := m.Attr(op, AttrType)
	if !ok {
		return convert.ErrNoMatch
	}
	if m.NumRegions(op) != 1 {
		return convert.ErrNoMatch
	}

	fn := rw.Create(ir.OpSpec{
		Kind:       CoreFunc,
		Attrs:      map[string]ir.Attribute{AttrSymName: sym, AttrType: fnType},
		NumRegions: 1,
		Loc:        m.Loc(op),
	})
	rw.CloneRegionInto(m.Region(op, 0), m.Region(fn, 0))
	return rw.Replace(op)
}

// returnLowering rewrites hi.return into core.return, preserving operand
// count, order and types exactly.
type returnLowering struct {
	convert.PatternBase
}

// NewReturnLowering creates the hi.return -> core.return pattern.
func NewReturnLowering() convert.Pattern {
	return returnLowering{convert.NewPatternBase(HiReturn, 1)}
}

func (p returnLowering) Rewrite(m *ir.Module, op ir.OpHandle, operands []ir.ValueHandle, rw *convert.Rewriter) error {
	rw.Create(ir.OpSpec{
		Kind:       CoreReturn,
		Operands:   operands,
		Terminator: true,
		Loc:        m.Loc(op),
	})
	return rw.Replace(op)
}

// callLowering rewrites hi.call into core.call, preserving the callee
// symbol, argument order and result arity/types.
type callLowering struct {
	convert.PatternBase
}

// NewCallLowering creates the hi.call -> core.call pattern.
func NewCallLowering() convert.Pattern {
	return callLowering{convert.NewPatternBase(HiCall, 1)}
}

func (p callLowering) Rewrite(m *ir.Module, op ir.OpHandle, operands []ir.ValueHandle, rw *convert.Rewriter) error {
	callee, ok := m.Attr(op, AttrCallee)
	if !ok {
		return convert.ErrNoMatch
	}
	call := rw.Create(ir.OpSpec{
		Kind:        CoreCall,
		Operands:    operands,
		ResultTypes: resultTypes(m, op),
		Attrs:       map[string]ir.Attribute{AttrCallee: callee},
		Loc:         m.Loc(op),
	})
	return rw.Replace(op, m.Results(call)...)
}

// funcShapePass legalizes function boundaries: hi.func first, then
// hi.return and hi.call, as two partial conversions. Children of a
// converted function are cloned, not converted, by the first step, which
// is why returns and calls get their own conversion afterwards.
type funcShapePass struct {
	logger *slog.Logger
}

// NewFuncShapePass creates the stage-1 pass. It must run before the
// memory and ll stages: they assume function boundaries are already in
// destination shape.
func NewFuncShapePass(logger *slog.Logger) pass.Pass {
	return funcShapePass{logger: logger}
}

func (p funcShapePass) Name() string { return "hi-to-func" }

func (p funcShapePass) Dependencies() []string {
	return []string{DialectHi, DialectCore}
}

func (p funcShapePass) Run(m *ir.Module) error {
	fnTarget := convert.NewTarget()
	fnTarget.AddLegalOp(ir.KindModule, CoreFunc)
	fnTarget.AddIllegalOp(HiFunc)

	fnPatterns := convert.NewPatternSet()
	fnPatterns.Add(NewFuncLowering())

	if err := convert.ApplyPartialConversion(m, fnTarget, fnPatterns, p.logger); err != nil {
		return err
	}

	retTarget := convert.NewTarget()
	retTarget.AddLegalOp(ir.KindModule, CoreReturn, CoreCall)
	retTarget.AddIllegalOp(HiReturn, HiCall)

	retPatterns := convert.NewPatternSet()
	retPatterns.Add(NewReturnLowering(), NewCallLowering())

	return convert.ApplyPartialConversion(m, retTarget, retPatterns, p.logger)
}
