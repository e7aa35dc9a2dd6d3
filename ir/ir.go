package ir

import (
	"fmt"
	"strings"
)

// KindModule is the builtin root operation kind. Every Module has exactly
// one operation of this kind at its root.
const KindModule OpKind = "builtin.module"

// OpKind identifies an operation kind, namespaced by dialect
// ("hi.func", "ll.ret").
type OpKind string

// Dialect returns the dialect namespace of the kind, or the whole kind
// string if it carries no namespace.
func (k OpKind) Dialect() string {
	if i := strings.IndexByte(string(k), '.'); i >= 0 {
		return string(k)[:i]
	}
	return string(k)
}

// Handle types for referencing IR objects.
type (
	OpHandle     uint32
	ValueHandle  uint32
	BlockHandle  uint32
	RegionHandle uint32
)

const noBlock = ^BlockHandle(0)

// Use is one operand edge: operand Index of operation Op references the
// value owning this entry.
type Use struct {
	Op    OpHandle
	Index int
}

// OpSpec describes an operation to create.
type OpSpec struct {
	Kind        OpKind
	Operands    []ValueHandle
	ResultTypes []TypeHandle
	Attrs       map[string]Attribute
	Successors  []BlockHandle
	NumRegions  int
	Terminator  bool
	Loc         string
}

type opNode struct {
	kind       OpKind
	operands   []ValueHandle
	results    []ValueHandle
	attrs      map[string]Attribute
	successors []BlockHandle
	regions    []RegionHandle
	parent     BlockHandle
	terminator bool
	loc        string
	dead       bool
}

type valueNode struct {
	typ   TypeHandle
	op    OpHandle    // defining operation when isArg is false
	block BlockHandle // owning block when isArg is true
	index int
	isArg bool
	uses  []Use
	dead  bool
}

type blockNode struct {
	ops    []OpHandle
	args   []ValueHandle
	parent RegionHandle
	dead   bool
}

type regionNode struct {
	blocks []BlockHandle
	parent OpHandle
}

// Module owns the whole operation graph: arenas for operations, values,
// blocks and regions, plus the type registry. A Module is exclusively
// owned by a single pipeline invocation and must not be shared across
// goroutines.
type Module struct {
	Types *TypeRegistry

	ops     []opNode
	values  []valueNode
	blocks  []blockNode
	regions []regionNode
	root    OpHandle
}

// NewModule creates an empty module: a builtin.module root operation with
// a single region holding a single empty block.
func NewModule() *Module {
	m := &Module{Types: NewTypeRegistry()}
	m.root = m.newOp(OpSpec{Kind: KindModule, NumRegions: 1}, noBlock)
	m.AddBlock(m.regionOf(m.root, 0), nil)
	return m
}

// Root returns the builtin.module root operation.
func (m *Module) Root() OpHandle { return m.root }

// Body returns the root operation's single block, where top-level
// operations (function definitions) live.
func (m *Module) Body() BlockHandle {
	return m.regions[m.ops[m.root].regions[0]].blocks[0]
}

func (m *Module) regionOf(op OpHandle, i int) RegionHandle {
	return m.ops[op].regions[i]
}

// newOp allocates an operation node, its result values and its empty
// regions, without attaching it to a block.
func (m *Module) newOp(spec OpSpec, parent BlockHandle) OpHandle {
	op := OpHandle(len(m.ops))
	n := opNode{
		kind:       spec.Kind,
		operands:   append([]ValueHandle(nil), spec.Operands...),
		successors: append([]BlockHandle(nil), spec.Successors...),
		parent:     parent,
		terminator: spec.Terminator,
		loc:        spec.Loc,
	}
	if len(spec.Attrs) > 0 {
		n.attrs = make(map[string]Attribute, len(spec.Attrs))
		for k, v := range spec.Attrs {
			n.attrs[k] = v
		}
	}
	for i, t := range spec.ResultTypes {
		v := ValueHandle(len(m.values))
		m.values = append(m.values, valueNode{typ: t, op: op, index: i})
		n.results = append(n.results, v)
	}
	for i := 0; i < spec.NumRegions; i++ {
		r := RegionHandle(len(m.regions))
		m.regions = append(m.regions, regionNode{parent: op})
		n.regions = append(n.regions, r)
	}
	m.ops = append(m.ops, n)
	return op
}

// AddBlock appends a new block with the given argument types to a region.
func (m *Module) AddBlock(r RegionHandle, argTypes []TypeHandle) BlockHandle {
	b := BlockHandle(len(m.blocks))
	node := blockNode{parent: r}
	for i, t := range argTypes {
		v := ValueHandle(len(m.values))
		m.values = append(m.values, valueNode{typ: t, block: b, index: i, isArg: true})
		node.args = append(node.args, v)
	}
	m.blocks = append(m.blocks, node)
	m.regions[r].blocks = append(m.regions[r].blocks, b)
	return b
}

// InsertOp creates an operation from spec and inserts it into block b at
// the given index. Operand use-lists are updated.
func (m *Module) InsertOp(b BlockHandle, index int, spec OpSpec) OpHandle {
	op := m.newOp(spec, b)
	blk := &m.blocks[b]
	if index < 0 || index > len(blk.ops) {
		index = len(blk.ops)
	}
	blk.ops = append(blk.ops, 0)
	copy(blk.ops[index+1:], blk.ops[index:])
	blk.ops[index] = op
	for i, v := range m.ops[op].operands {
		m.values[v].uses = append(m.values[v].uses, Use{Op: op, Index: i})
	}
	return op
}

// AppendOp creates an operation from spec at the end of block b.
func (m *Module) AppendOp(b BlockHandle, spec OpSpec) OpHandle {
	return m.InsertOp(b, len(m.blocks[b].ops), spec)
}

// Kind returns the operation kind.
func (m *Module) Kind(op OpHandle) OpKind { return m.ops[op].kind }

// Loc returns the operation's source location, or "".
func (m *Module) Loc(op OpHandle) string { return m.ops[op].loc }

// IsErased reports whether the operation has been erased.
func (m *Module) IsErased(op OpHandle) bool { return m.ops[op].dead }

// IsTerminator reports whether the operation was created as a block
// terminator.
func (m *Module) IsTerminator(op OpHandle) bool { return m.ops[op].terminator }

// Operands returns the operation's operand values. The returned slice is
// owned by the module and must not be modified.
func (m *Module) Operands(op OpHandle) []ValueHandle { return m.ops[op].operands }

// Results returns the operation's result values. The returned slice is
// owned by the module and must not be modified.
func (m *Module) Results(op OpHandle) []ValueHandle { return m.ops[op].results }

// Attr looks up an attribute by name.
func (m *Module) Attr(op OpHandle, name string) (Attribute, bool) {
	a, ok := m.ops[op].attrs[name]
	return a, ok
}

// Attrs returns the operation's attribute map. The returned map is owned
// by the module and must not be modified. May be nil.
func (m *Module) Attrs(op OpHandle) map[string]Attribute { return m.ops[op].attrs }

// Successors returns the operation's successor blocks.
func (m *Module) Successors(op OpHandle) []BlockHandle { return m.ops[op].successors }

// NumRegions returns the number of regions owned by the operation.
func (m *Module) NumRegions(op OpHandle) int { return len(m.ops[op].regions) }

// Region returns the i-th region of the operation.
func (m *Module) Region(op OpHandle, i int) RegionHandle { return m.ops[op].regions[i] }

// RegionParent returns the operation owning the region.
func (m *Module) RegionParent(r RegionHandle) OpHandle { return m.regions[r].parent }

// Blocks returns the blocks of a region in order. The returned slice is
// owned by the module and must not be modified.
func (m *Module) Blocks(r RegionHandle) []BlockHandle { return m.regions[r].blocks }

// BlockOps returns the operations of a block in order. The returned slice
// is owned by the module and must not be modified.
func (m *Module) BlockOps(b BlockHandle) []OpHandle { return m.blocks[b].ops }

// BlockArgs returns the block's argument values.
func (m *Module) BlockArgs(b BlockHandle) []ValueHandle { return m.blocks[b].args }

// BlockParent returns the region owning the block.
func (m *Module) BlockParent(b BlockHandle) RegionHandle { return m.blocks[b].parent }

// ParentBlock returns the block owning the operation. The root module
// operation has no parent block.
func (m *Module) ParentBlock(op OpHandle) (BlockHandle, bool) {
	p := m.ops[op].parent
	if p == noBlock {
		return 0, false
	}
	return p, true
}

// OpIndex returns the operation's position within its parent block, or -1
// if the operation is detached or erased.
func (m *Module) OpIndex(op OpHandle) int {
	p := m.ops[op].parent
	if p == noBlock || m.ops[op].dead {
		return -1
	}
	for i, o := range m.blocks[p].ops {
		if o == op {
			return i
		}
	}
	return -1
}

// ValueType returns the value's type.
func (m *Module) ValueType(v ValueHandle) TypeHandle { return m.values[v].typ }

// Uses returns the value's use-list. The returned slice is owned by the
// module and must not be modified.
func (m *Module) Uses(v ValueHandle) []Use { return m.values[v].uses }

// NumUses returns the number of remaining uses of the value.
func (m *Module) NumUses(v ValueHandle) int { return len(m.values[v].uses) }

// DefiningOp returns the operation defining the value, or false if the
// value is a block argument.
func (m *Module) DefiningOp(v ValueHandle) (OpHandle, bool) {
	n := &m.values[v]
	if n.isArg {
		return 0, false
	}
	return n.op, true
}

// OwnerBlock returns the block owning the value when it is a block
// argument, or false for operation results.
func (m *Module) OwnerBlock(v ValueHandle) (BlockHandle, bool) {
	n := &m.values[v]
	if !n.isArg {
		return 0, false
	}
	return n.block, true
}

// ValueErased reports whether the value's definer has been erased.
func (m *Module) ValueErased(v ValueHandle) bool { return m.values[v].dead }

// ReplaceAllUses rewires every use of old to new. The use-list of old
// becomes empty; new accumulates the rewired uses.
func (m *Module) ReplaceAllUses(old, new ValueHandle) {
	if old == new {
		return
	}
	uses := m.values[old].uses
	for _, u := range uses {
		m.ops[u.Op].operands[u.Index] = new
		m.values[new].uses = append(m.values[new].uses, u)
	}
	m.values[old].uses = nil
}

// removeUse drops the use entry (op, index) from v's use-list.
func (m *Module) removeUse(v ValueHandle, op OpHandle, index int) {
	uses := m.values[v].uses
	for i, u := range uses {
		if u.Op == op && u.Index == index {
			m.values[v].uses = append(uses[:i], uses[i+1:]...)
			return
		}
	}
}

// EraseOp removes the operation from its block and tombstones it together
// with everything inside its regions. It fails if any result value still
// has uses; uses internal to the operation's own regions do not count.
func (m *Module) EraseOp(op OpHandle) error {
	if m.ops[op].dead {
		return fmt.Errorf("operation %q already erased", m.ops[op].kind)
	}
	for _, res := range m.ops[op].results {
		if len(m.values[res].uses) > 0 {
			return fmt.Errorf("cannot erase %q: result still has %d uses",
				m.ops[op].kind, len(m.values[res].uses))
		}
	}
	m.detach(op)
	m.eraseTree(op)
	return nil
}

// detach removes the operation from its parent block's op list.
func (m *Module) detach(op OpHandle) {
	p := m.ops[op].parent
	if p == noBlock {
		return
	}
	ops := m.blocks[p].ops
	for i, o := range ops {
		if o == op {
			m.blocks[p].ops = append(ops[:i], ops[i+1:]...)
			return
		}
	}
}

// eraseTree tombstones op, its values and its whole region subtree, and
// removes the operand use entries the subtree holds on outside values.
func (m *Module) eraseTree(op OpHandle) {
	n := &m.ops[op]
	for i, v := range n.operands {
		m.removeUse(v, op, i)
	}
	for _, res := range n.results {
		m.values[res].dead = true
		m.values[res].uses = nil
	}
	for _, r := range n.regions {
		for _, b := range m.regions[r].blocks {
			for _, o := range m.blocks[b].ops {
				m.eraseTree(o)
			}
			for _, a := range m.blocks[b].args {
				m.values[a].dead = true
				m.values[a].uses = nil
			}
			m.blocks[b].dead = true
			m.blocks[b].ops = nil
		}
	}
	n.dead = true
}

// ReplaceOp rewires every use of the operation's results to the given
// replacement values (one per result, in order) and erases the operation.
func (m *Module) ReplaceOp(op OpHandle, with ...ValueHandle) error {
	results := m.ops[op].results
	if len(with) != len(results) {
		return fmt.Errorf("replace %q: got %d replacement values for %d results",
			m.ops[op].kind, len(with), len(results))
	}
	for i, res := range results {
		m.ReplaceAllUses(res, with[i])
	}
	return m.EraseOp(op)
}

// Walk visits every live operation reachable from the root in
// deterministic pre-order: an operation first, then its regions in order,
// blocks in order, operations in order.
func (m *Module) Walk(fn func(OpHandle)) {
	m.walkOp(m.root, fn)
}

// WalkFrom is Walk starting at an arbitrary operation.
func (m *Module) WalkFrom(op OpHandle, fn func(OpHandle)) {
	m.walkOp(op, fn)
}

func (m *Module) walkOp(op OpHandle, fn func(OpHandle)) {
	if m.ops[op].dead {
		return
	}
	fn(op)
	for _, r := range m.ops[op].regions {
		for _, b := range m.regions[r].blocks {
			if m.blocks[b].dead {
				continue
			}
			ops := append([]OpHandle(nil), m.blocks[b].ops...)
			for _, o := range ops {
				m.walkOp(o, fn)
			}
		}
	}
}

// CountOps returns the number of live operations of the given kind.
func (m *Module) CountOps(kind OpKind) int {
	n := 0
	m.Walk(func(op OpHandle) {
		if m.ops[op].kind == kind {
			n++
		}
	})
	return n
}
