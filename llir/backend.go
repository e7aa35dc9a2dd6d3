// Package llir translates a fully legalized ll-dialect module into the
// flat textual low-level representation handed to the code generator.
//
// The translation is one-way and structural: it does not rewrite the
// module, and it refuses any operation that is not builtin.module or ll
// dialect. Callers are expected to verify the module first; a refusal
// here is a translation failure, fatal and distinct from a pass failure.
package llir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sableir/sable/ir"
)

// Options configures low-level emission.
type Options struct {
	// Header is emitted as a leading comment line when non-empty.
	Header string
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{}
}

// TranslateError reports an operation the backend cannot transcribe.
type TranslateError struct {
	Kind ir.OpKind
	Loc  string
	Msg  string
}

// Error implements the error interface.
func (e *TranslateError) Error() string {
	if e.Loc != "" {
		return fmt.Sprintf("cannot translate %s (at %s): %s", e.Kind, e.Loc, e.Msg)
	}
	return fmt.Sprintf("cannot translate %s: %s", e.Kind, e.Msg)
}

// Backend emits the textual low-level form.
type Backend struct {
	opts Options
}

// NewBackend creates a backend with the given options.
func NewBackend(opts Options) *Backend {
	return &Backend{opts: opts}
}

// Compile transcribes the module. The module must contain only ll-dialect
// operations under the builtin.module root.
func (b *Backend) Compile(m *ir.Module) ([]byte, error) {
	w := &writer{m: m}
	if b.opts.Header != "" {
		w.buf.WriteString("; ")
		w.buf.WriteString(b.opts.Header)
		w.buf.WriteByte('\n')
	}
	for i, op := range m.BlockOps(m.Body()) {
		if m.Kind(op) != "ll.func" {
			return nil, &TranslateError{Kind: m.Kind(op), Loc: m.Loc(op), Msg: "expected ll.func at module scope"}
		}
		if i > 0 {
			w.buf.WriteByte('\n')
		}
		if err := w.emitFunc(op); err != nil {
			return nil, err
		}
	}
	return []byte(w.buf.String()), nil
}

type writer struct {
	m      *ir.Module
	buf    strings.Builder
	names  map[ir.ValueHandle]string
	labels map[ir.BlockHandle]string
	next   int
}

func (w *writer) emitFunc(fn ir.OpHandle) error {
	m := w.m
	symAttr, ok := m.Attr(fn, "sym_name")
	if !ok {
		return &TranslateError{Kind: m.Kind(fn), Loc: m.Loc(fn), Msg: "missing sym_name"}
	}
	sym, ok := symAttr.(ir.StringAttr)
	if !ok {
		return &TranslateError{Kind: m.Kind(fn), Loc: m.Loc(fn), Msg: "sym_name is not a string"}
	}
	tyAttr, ok := m.Attr(fn, "type")
	if !ok {
		return &TranslateError{Kind: m.Kind(fn), Loc: m.Loc(fn), Msg: "missing function type"}
	}
	sig, err := w.funcSignature(fn, tyAttr)
	if err != nil {
		return err
	}
	if len(sig.Results) > 1 {
		return &TranslateError{Kind: m.Kind(fn), Loc: m.Loc(fn), Msg: "multiple result types are not supported"}
	}

	// Per-function numbering: entry arguments first, then the remaining
	// block arguments in block order, then results in emission order.
	w.names = make(map[ir.ValueHandle]string)
	w.labels = make(map[ir.BlockHandle]string)
	w.next = 0

	blocks := m.Blocks(m.Region(fn, 0))
	if len(blocks) == 0 {
		return &TranslateError{Kind: m.Kind(fn), Loc: m.Loc(fn), Msg: "function has no body"}
	}
	for i, blk := range blocks {
		w.labels[blk] = "bb" + strconv.Itoa(i)
	}

	entry := blocks[0]
	w.buf.WriteString("define ")
	w.buf.WriteString(w.typeString(returnType(sig)))
	w.buf.WriteString(" @")
	w.buf.WriteString(sym.Value)
	w.buf.WriteByte('(')
	for i, arg := range m.BlockArgs(entry) {
		if i > 0 {
			w.buf.WriteString(", ")
		}
		name := w.define(arg)
		w.buf.WriteString(w.typeString(m.ValueType(arg)))
		w.buf.WriteByte(' ')
		w.buf.WriteString(name)
	}
	w.buf.WriteString(") {\n")

	// Non-entry block arguments are named before any operation is emitted
	// so references resolve regardless of block order.
	for _, blk := range blocks[1:] {
		for _, arg := range m.BlockArgs(blk) {
			w.define(arg)
		}
	}

	multi := len(blocks) > 1
	for i, blk := range blocks {
		if multi {
			if i > 0 {
				w.buf.WriteByte('\n')
			}
			w.buf.WriteString(w.labels[blk])
			if i > 0 {
				w.writeBlockArgs(blk)
			}
			w.buf.WriteString(":\n")
		}
		for _, op := range m.BlockOps(blk) {
			if err := w.emitOp(op); err != nil {
				return err
			}
		}
	}
	w.buf.WriteString("}\n")
	return nil
}

func (w *writer) funcSignature(fn ir.OpHandle, attr ir.Attribute) (ir.FuncType, error) {
	ta, ok := attr.(ir.TypeAttr)
	if !ok {
		return ir.FuncType{}, &TranslateError{Kind: w.m.Kind(fn), Loc: w.m.Loc(fn), Msg: "function type attribute is not a type"}
	}
	t, ok := w.m.Types.Lookup(ta.Type)
	if !ok {
		return ir.FuncType{}, &TranslateError{Kind: w.m.Kind(fn), Loc: w.m.Loc(fn), Msg: "function type not found"}
	}
	sig, ok := t.Inner.(ir.FuncType)
	if !ok {
		return ir.FuncType{}, &TranslateError{Kind: w.m.Kind(fn), Loc: w.m.Loc(fn), Msg: "function type attribute is not a function type"}
	}
	return sig, nil
}

// returnType maps a signature's result list to the emitted return type;
// an empty list emits void. Multi-result signatures are rejected before
// this point.
func returnType(sig ir.FuncType) ir.TypeHandle {
	if len(sig.Results) == 0 {
		return ^ir.TypeHandle(0)
	}
	return sig.Results[0]
}

func (w *writer) define(v ir.ValueHandle) string {
	name := "%" + strconv.Itoa(w.next)
	w.next++
	w.names[v] = name
	return name
}

// writeBlockArgs renders a non-entry block's argument list after its
// label, "(i32 %2, i1 %3)"; nothing for an argument-free block.
func (w *writer) writeBlockArgs(blk ir.BlockHandle) {
	args := w.m.BlockArgs(blk)
	if len(args) == 0 {
		return
	}
	w.buf.WriteByte('(')
	for i, arg := range args {
		if i > 0 {
			w.buf.WriteString(", ")
		}
		w.buf.WriteString(w.typeString(w.m.ValueType(arg)))
		w.buf.WriteByte(' ')
		w.buf.WriteString(w.names[arg])
	}
	w.buf.WriteByte(')')
}

// typeString renders a type; the sentinel handle renders as void.
func (w *writer) typeString(t ir.TypeHandle) string {
	if t == ^ir.TypeHandle(0) {
		return "void"
	}
	typ, ok := w.m.Types.Lookup(t)
	if !ok {
		return "void"
	}
	switch inner := typ.Inner.(type) {
	case ir.ScalarType:
		switch inner.Kind {
		case ir.ScalarSint, ir.ScalarUint:
			return "i" + strconv.Itoa(int(inner.Width))
		case ir.ScalarFloat:
			if inner.Width == 64 {
				return "double"
			}
			return "float"
		case ir.ScalarBool:
			return "i1"
		}
	case ir.VoidType:
		return "void"
	case ir.PointerType:
		return "ptr"
	}
	return "void"
}

func (w *writer) emitOp(op ir.OpHandle) error {
	m := w.m
	operands := m.Operands(op)
	results := m.Results(op)

	refs := make([]string, len(operands))
	for i, v := range operands {
		name, ok := w.names[v]
		if !ok {
			return w.fail(op, "operand is not defined in this function")
		}
		refs[i] = name
	}

	w.buf.WriteString("  ")
	switch m.Kind(op) {
	case "ll.const":
		attr, ok := m.Attr(op, "value")
		if !ok {
			return w.fail(op, "constant has no value")
		}
		w.buf.WriteString(w.define(results[0]))
		w.buf.WriteString(" = const ")
		w.buf.WriteString(w.typeString(m.ValueType(results[0])))
		w.buf.WriteByte(' ')
		switch v := attr.(type) {
		case ir.IntAttr:
			w.buf.WriteString(strconv.FormatInt(v.Value, 10))
		case ir.FloatAttr:
			w.buf.WriteString(strconv.FormatFloat(v.Value, 'g', -1, 64))
		default:
			return w.fail(op, "unsupported constant value")
		}

	case "ll.alloca":
		t, _ := m.Types.Lookup(m.ValueType(results[0]))
		ptr, ok := t.Inner.(ir.PointerType)
		if !ok {
			return w.fail(op, "alloca result is not a pointer")
		}
		w.buf.WriteString(w.define(results[0]))
		w.buf.WriteString(" = alloca ")
		w.buf.WriteString(w.typeString(ptr.Elem))
		if align, ok := m.Attr(op, "alignment"); ok {
			if a, ok := align.(ir.IntAttr); ok {
				w.buf.WriteString(", align ")
				w.buf.WriteString(strconv.FormatInt(a.Value, 10))
			}
		}

	case "ll.load":
		w.buf.WriteString(w.define(results[0]))
		w.buf.WriteString(" = load ")
		w.buf.WriteString(w.typeString(m.ValueType(results[0])))
		w.buf.WriteString(", ptr ")
		w.buf.WriteString(refs[0])

	case "ll.store":
		w.buf.WriteString("store ")
		w.buf.WriteString(w.typeString(m.ValueType(operands[0])))
		w.buf.WriteByte(' ')
		w.buf.WriteString(refs[0])
		w.buf.WriteString(", ptr ")
		w.buf.WriteString(refs[1])

	case "ll.add", "ll.sub", "ll.mul":
		mnemonic := strings.TrimPrefix(string(m.Kind(op)), "ll.")
		w.buf.WriteString(w.define(results[0]))
		w.buf.WriteString(" = ")
		w.buf.WriteString(mnemonic)
		w.buf.WriteByte(' ')
		w.buf.WriteString(w.typeString(m.ValueType(results[0])))
		w.buf.WriteByte(' ')
		w.buf.WriteString(refs[0])
		w.buf.WriteString(", ")
		w.buf.WriteString(refs[1])

	case "ll.call":
		callee, ok := m.Attr(op, "callee")
		if !ok {
			return w.fail(op, "call has no callee")
		}
		symbol, ok := callee.(ir.SymbolAttr)
		if !ok {
			return w.fail(op, "callee is not a symbol")
		}
		if len(results) > 0 {
			w.buf.WriteString(w.define(results[0]))
			w.buf.WriteString(" = call ")
			w.buf.WriteString(w.typeString(m.ValueType(results[0])))
		} else {
			w.buf.WriteString("call void")
		}
		w.buf.WriteString(" @")
		w.buf.WriteString(symbol.Name)
		w.buf.WriteByte('(')
		for i, v := range operands {
			if i > 0 {
				w.buf.WriteString(", ")
			}
			w.buf.WriteString(w.typeString(m.ValueType(v)))
			w.buf.WriteByte(' ')
			w.buf.WriteString(refs[i])
		}
		w.buf.WriteByte(')')

	case "ll.ret":
		if len(operands) == 0 {
			w.buf.WriteString("ret void")
		} else {
			w.buf.WriteString("ret ")
			w.buf.WriteString(w.typeString(m.ValueType(operands[0])))
			w.buf.WriteByte(' ')
			w.buf.WriteString(refs[0])
		}

	case "ll.br":
		succ := m.Successors(op)
		if len(succ) != 1 {
			return w.fail(op, "br needs exactly one successor")
		}
		if len(operands) != len(m.BlockArgs(succ[0])) {
			return w.fail(op, fmt.Sprintf("br passes %d value(s) to a block expecting %d",
				len(operands), len(m.BlockArgs(succ[0]))))
		}
		w.buf.WriteString("br label %")
		w.buf.WriteString(w.labels[succ[0]])
		if len(operands) > 0 {
			w.buf.WriteByte('(')
			for i, v := range operands {
				if i > 0 {
					w.buf.WriteString(", ")
				}
				w.buf.WriteString(w.typeString(m.ValueType(v)))
				w.buf.WriteByte(' ')
				w.buf.WriteString(refs[i])
			}
			w.buf.WriteByte(')')
		}

	case "ll.cond_br":
		succ := m.Successors(op)
		if len(operands) != 1 || len(succ) != 2 {
			return w.fail(op, "cond_br needs one condition and two successors")
		}
		if len(m.BlockArgs(succ[0])) > 0 || len(m.BlockArgs(succ[1])) > 0 {
			// There is no per-successor operand grouping to transcribe, so
			// a conditional branch cannot feed block arguments.
			return w.fail(op, "cond_br cannot pass block arguments")
		}
		w.buf.WriteString("br i1 ")
		w.buf.WriteString(refs[0])
		w.buf.WriteString(", label %")
		w.buf.WriteString(w.labels[succ[0]])
		w.buf.WriteString(", label %")
		w.buf.WriteString(w.labels[succ[1]])

	default:
		return w.fail(op, "operation is not part of the low-level dialect")
	}
	w.buf.WriteByte('\n')
	return nil
}

func (w *writer) fail(op ir.OpHandle, msg string) error {
	return &TranslateError{Kind: w.m.Kind(op), Loc: w.m.Loc(op), Msg: msg}
}
