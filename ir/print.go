package ir

import (
	"sort"
	"strconv"
	"strings"
)

// Print renders the module in generic textual form, one operation per
// line:
//
//	%0 = "hi.const"() {value = 7} : () -> i32
//	"hi.return"(%0) : (i32) -> ()
//
// Value and block numbering follows definition order in the deterministic
// pre-order traversal, so two structurally identical modules print to
// identical bytes.
func Print(m *Module) []byte {
	p := &printer{
		m:      m,
		names:  make(map[ValueHandle]string),
		labels: make(map[BlockHandle]string),
	}
	p.number(m.Root())
	p.printOp(m.Root(), 0)
	return []byte(p.buf.String())
}

type printer struct {
	m      *Module
	buf    strings.Builder
	names  map[ValueHandle]string
	labels map[BlockHandle]string
	nextV  int
	nextB  int
}

// number assigns value names and block labels in print order so that
// references (including back-edges to earlier blocks) always resolve.
func (p *printer) number(op OpHandle) {
	m := p.m
	for _, res := range m.Results(op) {
		p.names[res] = "%" + strconv.Itoa(p.nextV)
		p.nextV++
	}
	for i := 0; i < m.NumRegions(op); i++ {
		r := m.Region(op, i)
		for _, b := range m.Blocks(r) {
			p.labels[b] = "^bb" + strconv.Itoa(p.nextB)
			p.nextB++
			for _, a := range m.BlockArgs(b) {
				p.names[a] = "%" + strconv.Itoa(p.nextV)
				p.nextV++
			}
		}
		for _, b := range m.Blocks(r) {
			for _, o := range m.BlockOps(b) {
				p.number(o)
			}
		}
	}
}

func (p *printer) printOp(op OpHandle, indent int) {
	m := p.m
	p.writeIndent(indent)

	results := m.Results(op)
	if len(results) > 0 {
		for i, res := range results {
			if i > 0 {
				p.buf.WriteString(", ")
			}
			p.buf.WriteString(p.names[res])
		}
		p.buf.WriteString(" = ")
	}

	p.buf.WriteByte('"')
	p.buf.WriteString(string(m.Kind(op)))
	p.buf.WriteString("\"(")
	for i, v := range m.Operands(op) {
		if i > 0 {
			p.buf.WriteString(", ")
		}
		p.buf.WriteString(p.names[v])
	}
	p.buf.WriteByte(')')

	if succ := m.Successors(op); len(succ) > 0 {
		p.buf.WriteByte('[')
		for i, s := range succ {
			if i > 0 {
				p.buf.WriteString(", ")
			}
			p.buf.WriteString(p.labels[s])
		}
		p.buf.WriteByte(']')
	}

	if n := m.NumRegions(op); n > 0 {
		p.buf.WriteString(" (")
		for i := 0; i < n; i++ {
			if i > 0 {
				p.buf.WriteString(", ")
			}
			p.printRegion(m.Region(op, i), indent)
		}
		p.buf.WriteByte(')')
	}

	p.printAttrs(op)
	p.printFunctionalType(op)
	p.buf.WriteByte('\n')
}

func (p *printer) printRegion(r RegionHandle, indent int) {
	m := p.m
	blocks := m.Blocks(r)
	p.buf.WriteString("{\n")
	bare := len(blocks) == 1 && len(m.BlockArgs(blocks[0])) == 0
	for _, b := range blocks {
		if !bare {
			p.writeIndent(indent)
			p.buf.WriteString(p.labels[b])
			if args := m.BlockArgs(b); len(args) > 0 {
				p.buf.WriteByte('(')
				for i, a := range args {
					if i > 0 {
						p.buf.WriteString(", ")
					}
					p.buf.WriteString(p.names[a])
					p.buf.WriteString(": ")
					p.buf.WriteString(m.Types.String(m.ValueType(a)))
				}
				p.buf.WriteByte(')')
			}
			p.buf.WriteString(":\n")
		}
		for _, o := range m.BlockOps(b) {
			p.printOp(o, indent+2)
		}
	}
	p.writeIndent(indent)
	p.buf.WriteByte('}')
}

func (p *printer) printAttrs(op OpHandle) {
	attrs := p.m.Attrs(op)
	if len(attrs) == 0 {
		return
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	p.buf.WriteString(" {")
	for i, name := range names {
		if i > 0 {
			p.buf.WriteString(", ")
		}
		p.buf.WriteString(name)
		p.buf.WriteString(" = ")
		p.buf.WriteString(p.formatAttr(attrs[name]))
	}
	p.buf.WriteByte('}')
}

func (p *printer) formatAttr(a Attribute) string {
	switch attr := a.(type) {
	case IntAttr:
		return strconv.FormatInt(attr.Value, 10)
	case FloatAttr:
		return strconv.FormatFloat(attr.Value, 'g', -1, 64)
	case StringAttr:
		return strconv.Quote(attr.Value)
	case SymbolAttr:
		return "@" + attr.Name
	case TypeAttr:
		return p.m.Types.String(attr.Type)
	case UnitAttr:
		return "unit"
	default:
		return "<unknown attribute>"
	}
}

func (p *printer) printFunctionalType(op OpHandle) {
	m := p.m
	p.buf.WriteString(" : (")
	for i, v := range m.Operands(op) {
		if i > 0 {
			p.buf.WriteString(", ")
		}
		p.buf.WriteString(m.Types.String(m.ValueType(v)))
	}
	p.buf.WriteString(") -> ")
	results := m.Results(op)
	switch len(results) {
	case 0:
		p.buf.WriteString("()")
	case 1:
		p.buf.WriteString(m.Types.String(m.ValueType(results[0])))
	default:
		p.buf.WriteByte('(')
		for i, res := range results {
			if i > 0 {
				p.buf.WriteString(", ")
			}
			p.buf.WriteString(m.Types.String(m.ValueType(res)))
		}
		p.buf.WriteByte(')')
	}
}

func (p *printer) writeIndent(indent int) {
	for i := 0; i < indent; i++ {
		p.buf.WriteByte(' ')
	}
}
