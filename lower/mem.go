package lower

import (
	"log/slog"

	"github.com/sableir/sable/convert"
	"github.com/sableir/sable/ir"
	"github.com/sableir/sable/pass"
)

// allocaLowering rewrites a scalar stack allocation into a rank-0 buffer
// allocation of the same element type, preserving the alignment
// attribute when present.
type allocaLowering struct {
	convert.PatternBase
}

// NewAllocaLowering creates the hi.alloca -> core.alloca pattern.
func NewAllocaLowering() convert.Pattern {
	return allocaLowering{convert.NewPatternBase(HiAlloca, 1)}
}

func (p allocaLowering) Rewrite(m *ir.Module, op ir.OpHandle, _ []ir.ValueHandle, rw *convert.Rewriter) error {
	results := m.Results(op)
	if len(results) != 1 {
		return convert.ErrNoMatch
	}
	t, ok := m.Types.Lookup(m.ValueType(results[0]))
	if !ok {
		return convert.ErrNoMatch
	}
	ptr, ok := t.Inner.(ir.PointerType)
	if !ok {
		return convert.ErrNoMatch
	}

	var attrs map[string]ir.Attribute
	if align, ok := m.Attr(op, AttrAlignment); ok {
		attrs = map[string]ir.Attribute{AttrAlignment: align}
	}
	alloc := rw.Create(ir.OpSpec{
		Kind:        CoreAlloca,
		ResultTypes: []ir.TypeHandle{m.Types.Buffer(ptr.Elem, 0)},
		Attrs:       attrs,
		Loc:         m.Loc(op),
	})
	return rw.Replace(op, m.Results(alloc)...)
}

// loadLowering rewrites hi.load 1:1 into core.load: address operand
// first, loaded value type unchanged.
type loadLowering struct {
	convert.PatternBase
}

// NewLoadLowering creates the hi.load -> core.load pattern.
func NewLoadLowering() convert.Pattern {
	return loadLowering{convert.NewPatternBase(HiLoad, 1)}
}

func (p loadLowering) Rewrite(m *ir.Module, op ir.OpHandle, operands []ir.ValueHandle, rw *convert.Rewriter) error {
	if len(operands) != 1 {
		return convert.ErrNoMatch
	}
	load := rw.Create(ir.OpSpec{
		Kind:        CoreLoad,
		Operands:    operands,
		ResultTypes: resultTypes(m, op),
		Loc:         m.Loc(op),
	})
	return rw.Replace(op, m.Results(load)...)
}

// storeLowering rewrites hi.store 1:1 into core.store: value operand,
// then address operand.
type storeLowering struct {
	convert.PatternBase
}

// NewStoreLowering creates the hi.store -> core.store pattern.
func NewStoreLowering() convert.Pattern {
	return storeLowering{convert.NewPatternBase(HiStore, 1)}
}

func (p storeLowering) Rewrite(m *ir.Module, op ir.OpHandle, operands []ir.ValueHandle, rw *convert.Rewriter) error {
	if len(operands) != 2 {
		return convert.ErrNoMatch
	}
	rw.Create(ir.OpSpec{
		Kind:     CoreStore,
		Operands: operands,
		Loc:      m.Loc(op),
	})
	return rw.Replace(op)
}

// constLowering rewrites hi.const into core.const, carrying the literal
// value attribute and result type bit-for-bit.
type constLowering struct {
	convert.PatternBase
}

// NewConstLowering creates the hi.const -> core.const pattern.
func NewConstLowering() convert.Pattern {
	return constLowering{convert.NewPatternBase(HiConst, 1)}
}

func (p constLowering) Rewrite(m *ir.Module, op ir.OpHandle, _ []ir.ValueHandle, rw *convert.Rewriter) error {
	value, ok := m.Attr(op, AttrValue)
	if !ok {
		return convert.ErrNoMatch
	}
	cst := rw.Create(ir.OpSpec{
		Kind:        CoreConst,
		ResultTypes: resultTypes(m, op),
		Attrs:       map[string]ir.Attribute{AttrValue: value},
		Loc:         m.Loc(op),
	})
	return rw.Replace(op, m.Results(cst)...)
}

// oneToOne rewrites an operation into its counterpart kind, keeping
// operands, attributes and successors, with result types mapped through
// the stage's type converter.
type oneToOne struct {
	convert.PatternBase
	to ir.OpKind
}

// NewOneToOne creates a 1:1 kind-mapping pattern.
func NewOneToOne(from, to ir.OpKind, benefit int) convert.Pattern {
	return oneToOne{PatternBase: convert.NewPatternBase(from, benefit), to: to}
}

func (p oneToOne) Rewrite(m *ir.Module, op ir.OpHandle, operands []ir.ValueHandle, rw *convert.Rewriter) error {
	types := resultTypes(m, op)
	for i, t := range types {
		types[i] = rw.ConvertType(t)
	}
	repl := rw.Create(ir.OpSpec{
		Kind:        p.to,
		Operands:    operands,
		ResultTypes: types,
		Attrs:       copyAttrs(m, op),
		Successors:  m.Successors(op),
		Terminator:  m.IsTerminator(op),
		Loc:         m.Loc(op),
	})
	return rw.Replace(op, m.Results(repl)...)
}

// memTypeConverter maps ptr<T> to buffer<T, 0> for the memory stage.
func memTypeConverter() *convert.TypeConverter {
	tc := convert.NewTypeConverter()
	tc.AddConversion(func(reg *ir.TypeRegistry, t ir.TypeHandle) (ir.TypeHandle, bool) {
		typ, ok := reg.Lookup(t)
		if !ok {
			return 0, false
		}
		ptr, ok := typ.Inner.(ir.PointerType)
		if !ok {
			return 0, false
		}
		return reg.Buffer(ptr.Elem, 0), true
	})
	return tc
}

// memoryPass legalizes allocations, loads, stores and constants into the
// core dialect, along with the arithmetic and branch operations that feed
// them. Partial conversion: operations of other dialects pass through.
type memoryPass struct {
	logger *slog.Logger
}

// NewMemoryPass creates the stage-2 pass. It runs after the function
// shape pass because its patterns rewrite operations inside
// already-legalized function bodies.
func NewMemoryPass(logger *slog.Logger) pass.Pass {
	return memoryPass{logger: logger}
}

func (p memoryPass) Name() string { return "hi-to-core-mem" }

func (p memoryPass) Dependencies() []string {
	return []string{DialectHi, DialectCore}
}

func (p memoryPass) Run(m *ir.Module) error {
	target := convert.NewTarget()
	target.AddLegalOp(ir.KindModule)
	target.AddLegalDialect(DialectCore)
	target.AddIllegalOp(HiAlloca, HiLoad, HiStore, HiConst, HiAdd, HiSub, HiMul, HiBr, HiCondBr)
	target.SetTypeConverter(memTypeConverter())

	patterns := convert.NewPatternSet()
	patterns.Add(
		NewAllocaLowering(),
		NewLoadLowering(),
		NewStoreLowering(),
		NewConstLowering(),
		NewOneToOne(HiAdd, CoreAdd, 1),
		NewOneToOne(HiSub, CoreSub, 1),
		NewOneToOne(HiMul, CoreMul, 1),
		NewOneToOne(HiBr, CoreBr, 1),
		NewOneToOne(HiCondBr, CoreCondBr, 1),
	)

	return convert.ApplyPartialConversion(m, target, patterns, p.logger)
}
