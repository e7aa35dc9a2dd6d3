package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFuncWithBody creates a t.func with one entry block argument and a
// const/add/return body, returning the function op.
func buildFuncWithBody(m *Module) OpHandle {
	i32 := m.Types.Int(32)
	fn := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	blk := m.AddBlock(m.Region(fn, 0), []TypeHandle{i32})
	arg := m.BlockArgs(blk)[0]
	cst := m.AppendOp(blk, OpSpec{
		Kind:        "t.const",
		ResultTypes: []TypeHandle{i32},
		Attrs:       map[string]Attribute{"value": IntAttr{Value: 1}},
	})
	add := m.AppendOp(blk, OpSpec{
		Kind:        "t.add",
		Operands:    []ValueHandle{arg, m.Results(cst)[0]},
		ResultTypes: []TypeHandle{i32},
	})
	m.AppendOp(blk, OpSpec{
		Kind:       "t.return",
		Operands:   []ValueHandle{m.Results(add)[0]},
		Terminator: true,
	})
	return fn
}

func TestCloneRegionInto(t *testing.T) {
	m := NewModule()
	src := buildFuncWithBody(m)

	dst := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	valueMap := make(map[ValueHandle]ValueHandle)
	clones := m.CloneRegionInto(m.Region(src, 0), m.Region(dst, 0), valueMap, nil)

	require.Len(t, clones, 3)
	blocks := m.Blocks(m.Region(dst, 0))
	require.Len(t, blocks, 1)
	ops := m.BlockOps(blocks[0])
	require.Equal(t, clones, ops)
	assert.Equal(t, OpKind("t.const"), m.Kind(ops[0]))
	assert.Equal(t, OpKind("t.add"), m.Kind(ops[1]))
	assert.Equal(t, OpKind("t.return"), m.Kind(ops[2]))
	assert.True(t, m.IsTerminator(ops[2]))

	// Operand references resolve to the cloned values, never the originals.
	clonedArg := m.BlockArgs(blocks[0])[0]
	assert.Equal(t, clonedArg, m.Operands(ops[1])[0])
	assert.Equal(t, m.Results(ops[0])[0], m.Operands(ops[1])[1])
	assert.Equal(t, m.Results(ops[1])[0], m.Operands(ops[2])[0])

	// The original body is untouched and the clone carries the attribute.
	assert.Equal(t, 3, len(m.BlockOps(m.Blocks(m.Region(src, 0))[0])))
	val, ok := m.Attr(ops[0], "value")
	require.True(t, ok)
	assert.Equal(t, IntAttr{Value: 1}, val)
}

func TestCloneRegionIntoMultiBlock(t *testing.T) {
	m := NewModule()
	i32 := m.Types.Int(32)

	src := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	entry := m.AddBlock(m.Region(src, 0), nil)
	exit := m.AddBlock(m.Region(src, 0), []TypeHandle{i32})
	cst := m.AppendOp(entry, OpSpec{Kind: "t.const", ResultTypes: []TypeHandle{i32}})
	m.AppendOp(entry, OpSpec{
		Kind:       "t.br",
		Operands:   []ValueHandle{m.Results(cst)[0]},
		Successors: []BlockHandle{exit},
		Terminator: true,
	})
	m.AppendOp(exit, OpSpec{
		Kind:       "t.return",
		Operands:   []ValueHandle{m.BlockArgs(exit)[0]},
		Terminator: true,
	})

	dst := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	m.CloneRegionInto(m.Region(src, 0), m.Region(dst, 0), nil, nil)

	blocks := m.Blocks(m.Region(dst, 0))
	require.Len(t, blocks, 2)

	// The branch successor points at the cloned exit block.
	br := m.BlockOps(blocks[0])[1]
	require.Equal(t, OpKind("t.br"), m.Kind(br))
	assert.Equal(t, []BlockHandle{blocks[1]}, m.Successors(br))

	// The cloned return uses the cloned block argument.
	ret := m.BlockOps(blocks[1])[0]
	assert.Equal(t, m.BlockArgs(blocks[1])[0], m.Operands(ret)[0])
}

func TestCloneRegionIntoOutsideValuesKept(t *testing.T) {
	m := NewModule()
	i32 := m.Types.Int(32)

	outer := m.AppendOp(m.Body(), OpSpec{Kind: "t.const", ResultTypes: []TypeHandle{i32}})
	src := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	blk := m.AddBlock(m.Region(src, 0), nil)
	m.AppendOp(blk, OpSpec{Kind: "t.use", Operands: []ValueHandle{m.Results(outer)[0]}})

	dst := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	clones := m.CloneRegionInto(m.Region(src, 0), m.Region(dst, 0), nil, nil)

	require.Len(t, clones, 1)
	assert.Equal(t, m.Results(outer)[0], m.Operands(clones[0])[0])
	assert.Equal(t, 2, m.NumUses(m.Results(outer)[0]))
}

func TestCloneRegionIntoTypeMap(t *testing.T) {
	m := NewModule()
	i32 := m.Types.Int(32)
	i64 := m.Types.Int(64)

	src := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	blk := m.AddBlock(m.Region(src, 0), []TypeHandle{i32})
	m.AppendOp(blk, OpSpec{
		Kind:        "t.widen",
		Operands:    []ValueHandle{m.BlockArgs(blk)[0]},
		ResultTypes: []TypeHandle{i32},
		Attrs:       map[string]Attribute{"type": TypeAttr{Type: i32}},
	})

	widen := func(t TypeHandle) TypeHandle {
		if t == i32 {
			return i64
		}
		return t
	}
	dst := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	clones := m.CloneRegionInto(m.Region(src, 0), m.Region(dst, 0), nil, widen)

	blocks := m.Blocks(m.Region(dst, 0))
	assert.Equal(t, i64, m.ValueType(m.BlockArgs(blocks[0])[0]))
	assert.Equal(t, i64, m.ValueType(m.Results(clones[0])[0]))
	attr, ok := m.Attr(clones[0], "type")
	require.True(t, ok)
	assert.Equal(t, TypeAttr{Type: i64}, attr)
}
