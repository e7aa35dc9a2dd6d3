package ir

// Builder constructs operations at an insertion point inside a module.
// The insertion point is a block plus an index; Insert advances the index
// so consecutive insertions stay in order.
type Builder struct {
	m     *Module
	block BlockHandle
	pos   int
	set   bool
}

// NewBuilder creates a builder with no insertion point.
func NewBuilder(m *Module) *Builder {
	return &Builder{m: m}
}

// Module returns the module the builder inserts into.
func (b *Builder) Module() *Module { return b.m }

// SetInsertionPointToEnd moves the insertion point to the end of blk.
func (b *Builder) SetInsertionPointToEnd(blk BlockHandle) {
	b.block = blk
	b.pos = len(b.m.BlockOps(blk))
	b.set = true
}

// SetInsertionPointBefore moves the insertion point directly before op.
func (b *Builder) SetInsertionPointBefore(op OpHandle) {
	blk, ok := b.m.ParentBlock(op)
	if !ok {
		return
	}
	b.block = blk
	b.pos = b.m.OpIndex(op)
	b.set = true
}

// InsertionBlock returns the current insertion block.
func (b *Builder) InsertionBlock() BlockHandle { return b.block }

// Insert creates an operation from spec at the insertion point.
// Panics if no insertion point has been set; that is a programming error
// in the caller, not an input condition.
func (b *Builder) Insert(spec OpSpec) OpHandle {
	if !b.set {
		panic("ir: builder has no insertion point")
	}
	op := b.m.InsertOp(b.block, b.pos, spec)
	b.pos++
	return op
}

// Create is Insert for the common case of an operation without attributes,
// successors or regions.
func (b *Builder) Create(kind OpKind, operands []ValueHandle, resultTypes []TypeHandle) OpHandle {
	return b.Insert(OpSpec{Kind: kind, Operands: operands, ResultTypes: resultTypes})
}
