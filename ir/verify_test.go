package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyWellFormedModule(t *testing.T) {
	m := NewModule()
	buildFuncWithBody(m)
	assert.Nil(t, Verify(m))
}

func TestVerifyUseBeforeDef(t *testing.T) {
	m := NewModule()
	i32 := m.Types.Int(32)

	def := m.AppendOp(m.Body(), OpSpec{Kind: "t.def", ResultTypes: []TypeHandle{i32}})
	m.InsertOp(m.Body(), 0, OpSpec{Kind: "t.use", Operands: []ValueHandle{m.Results(def)[0]}})

	errs := Verify(m)
	require.Len(t, errs, 1)
	assert.Equal(t, OpKind("t.use"), errs[0].Kind)
	assert.Contains(t, errs[0].Message, "used before its definition")
}

func TestVerifyScopeViolation(t *testing.T) {
	m := NewModule()
	i32 := m.Types.Int(32)

	// A value defined inside one function used from a sibling function.
	fnA := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	blkA := m.AddBlock(m.Region(fnA, 0), nil)
	def := m.AppendOp(blkA, OpSpec{Kind: "t.const", ResultTypes: []TypeHandle{i32}})

	fnB := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	blkB := m.AddBlock(m.Region(fnB, 0), nil)
	m.AppendOp(blkB, OpSpec{Kind: "t.use", Operands: []ValueHandle{m.Results(def)[0]}})

	errs := Verify(m)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "dominating scope")
}

func TestVerifyEnclosingScopeAllowed(t *testing.T) {
	m := NewModule()
	i32 := m.Types.Int(32)

	// A nested region may use values defined in the enclosing block.
	fn := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	blk := m.AddBlock(m.Region(fn, 0), nil)
	def := m.AppendOp(blk, OpSpec{Kind: "t.const", ResultTypes: []TypeHandle{i32}})
	scope := m.AppendOp(blk, OpSpec{Kind: "t.scope", NumRegions: 1})
	inner := m.AddBlock(m.Region(scope, 0), nil)
	m.AppendOp(inner, OpSpec{Kind: "t.use", Operands: []ValueHandle{m.Results(def)[0]}})

	assert.Nil(t, Verify(m))
}

func TestVerifyTerminatorNotLast(t *testing.T) {
	m := NewModule()

	fn := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	blk := m.AddBlock(m.Region(fn, 0), nil)
	m.AppendOp(blk, OpSpec{Kind: "t.return", Terminator: true})
	m.AppendOp(blk, OpSpec{Kind: "t.after"})

	errs := Verify(m)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "not the last operation")
}

func TestVerifyMultiBlockNeedsTerminators(t *testing.T) {
	m := NewModule()

	fn := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	a := m.AddBlock(m.Region(fn, 0), nil)
	b := m.AddBlock(m.Region(fn, 0), nil)
	m.AppendOp(a, OpSpec{Kind: "t.br", Successors: []BlockHandle{b}, Terminator: true})
	m.AppendOp(b, OpSpec{Kind: "t.nop"})

	errs := Verify(m)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "does not end with a terminator")
}

func TestVerifyEmptyBlockInMultiBlockRegion(t *testing.T) {
	m := NewModule()

	fn := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	a := m.AddBlock(m.Region(fn, 0), nil)
	b := m.AddBlock(m.Region(fn, 0), nil)
	m.AppendOp(a, OpSpec{Kind: "t.br", Successors: []BlockHandle{b}, Terminator: true})

	errs := Verify(m)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "empty block")
}

func TestVerifySuccessorOutsideRegion(t *testing.T) {
	m := NewModule()

	fnA := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	blkA := m.AddBlock(m.Region(fnA, 0), nil)

	fnB := m.AppendOp(m.Body(), OpSpec{Kind: "t.func", NumRegions: 1})
	blkB := m.AddBlock(m.Region(fnB, 0), nil)
	m.AppendOp(blkA, OpSpec{Kind: "t.nop"})
	m.AppendOp(blkB, OpSpec{Kind: "t.br", Successors: []BlockHandle{blkA}, Terminator: true})

	errs := Verify(m)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "different region")
}

func TestVerifyErrorString(t *testing.T) {
	e := VerifyError{Message: "broken", Kind: "t.op", Loc: "main:entry:0"}
	assert.Equal(t, "t.op (at main:entry:0): broken", e.Error())

	e = VerifyError{Message: "broken"}
	assert.Equal(t, "broken", e.Error())
}
