package modfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sableir/sable"
	"github.com/sableir/sable/ir"
)

const constReturnYAML = `
functions:
  - name: main
    results: [i32]
    blocks:
      - label: entry
        ops:
          - {op: hi.const, result: c, type: i32, attrs: {value: 42}}
          - {op: hi.return, operands: [c]}
`

func TestLoadConstReturn(t *testing.T) {
	m, err := Load([]byte(constReturnYAML))
	require.NoError(t, err)

	require.Equal(t, 1, m.CountOps("hi.func"))
	require.Equal(t, 1, m.CountOps("hi.const"))
	require.Equal(t, 1, m.CountOps("hi.return"))
	assert.Nil(t, ir.Verify(m))

	var fn, ret ir.OpHandle
	m.Walk(func(op ir.OpHandle) {
		switch m.Kind(op) {
		case "hi.func":
			fn = op
		case "hi.return":
			ret = op
		}
	})
	sym, ok := m.Attr(fn, "sym_name")
	require.True(t, ok)
	assert.Equal(t, ir.StringAttr{Value: "main"}, sym)
	assert.True(t, m.IsTerminator(ret))
	assert.Equal(t, "main:entry:1", m.Loc(ret))
}

func TestLoadParamsAndBranches(t *testing.T) {
	src := `
functions:
  - name: pick
    params:
      - {name: cond, type: bool}
    results: [i32]
    blocks:
      - label: entry
        ops:
          - {op: hi.cond_br, operands: [cond], successors: [left, right]}
      - label: left
        ops:
          - {op: hi.const, result: a, type: i32, attrs: {value: 1}}
          - {op: hi.br, operands: [a], successors: [join]}
      - label: right
        ops:
          - {op: hi.const, result: b, type: i32, attrs: {value: 2}}
          - {op: hi.br, operands: [b], successors: [join]}
      - label: join
        args:
          - {name: v, type: i32}
        ops:
          - {op: hi.return, operands: [v]}
`
	m, err := Load([]byte(src))
	require.NoError(t, err)
	assert.Nil(t, ir.Verify(m))

	var fn ir.OpHandle
	m.Walk(func(op ir.OpHandle) {
		if m.Kind(op) == "hi.func" {
			fn = op
		}
	})
	blocks := m.Blocks(m.Region(fn, 0))
	require.Len(t, blocks, 4)

	// The entry block's argument is the function parameter.
	require.Len(t, m.BlockArgs(blocks[0]), 1)
	assert.Equal(t, m.Types.Bool(), m.ValueType(m.BlockArgs(blocks[0])[0]))

	// Successors resolve by label, in order.
	condBr := m.BlockOps(blocks[0])[0]
	assert.Equal(t, []ir.BlockHandle{blocks[1], blocks[2]}, m.Successors(condBr))
}

func TestLoadCallAttrs(t *testing.T) {
	src := `
functions:
  - name: main
    results: [i32]
    blocks:
      - label: entry
        ops:
          - {op: hi.const, result: x, type: i32, attrs: {value: 3}}
          - {op: hi.call, result: r, type: i32, operands: [x], attrs: {callee: double}}
          - {op: hi.return, operands: [r]}
`
	m, err := Load([]byte(src))
	require.NoError(t, err)

	var call ir.OpHandle
	m.Walk(func(op ir.OpHandle) {
		if m.Kind(op) == "hi.call" {
			call = op
		}
	})
	callee, ok := m.Attr(call, "callee")
	require.True(t, ok)
	assert.Equal(t, ir.SymbolAttr{Name: "double"}, callee)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "bad yaml",
			src:  "functions: [",
			want: "parse module file",
		},
		{
			name: "no name",
			src: `
functions:
  - blocks:
      - ops: [{op: hi.return}]
`,
			want: "without a name",
		},
		{
			name: "no blocks",
			src: `
functions:
  - name: f
`,
			want: "has no blocks",
		},
		{
			name: "unknown type",
			src: `
functions:
  - name: f
    blocks:
      - ops:
          - {op: hi.const, result: c, type: q32}
`,
			want: `unknown type "q32"`,
		},
		{
			name: "undefined operand",
			src: `
functions:
  - name: f
    blocks:
      - ops:
          - {op: hi.return, operands: [ghost]}
`,
			want: `operand "ghost" is not defined`,
		},
		{
			name: "duplicate value",
			src: `
functions:
  - name: f
    blocks:
      - ops:
          - {op: hi.const, result: c, type: i32, attrs: {value: 1}}
          - {op: hi.const, result: c, type: i32, attrs: {value: 2}}
`,
			want: `duplicate value name "c"`,
		},
		{
			name: "duplicate label",
			src: `
functions:
  - name: f
    blocks:
      - label: a
        ops: [{op: hi.return}]
      - label: a
        ops: [{op: hi.return}]
`,
			want: `duplicate block label "a"`,
		},
		{
			name: "unknown successor",
			src: `
functions:
  - name: f
    blocks:
      - ops:
          - {op: hi.br, successors: [nowhere]}
`,
			want: `successor "nowhere" is not a block`,
		},
		{
			name: "entry block args",
			src: `
functions:
  - name: f
    blocks:
      - args: [{name: x, type: i32}]
        ops: [{op: hi.return}]
`,
			want: "entry block arguments come from params",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseTypes(t *testing.T) {
	reg := ir.NewTypeRegistry()
	tests := []struct {
		src  string
		want ir.TypeHandle
	}{
		{"i32", reg.Int(32)},
		{"u8", reg.Uint(8)},
		{"f64", reg.Float(64)},
		{"bool", reg.Bool()},
		{"void", reg.Void()},
		{"ptr<i32>", reg.Pointer(reg.Int(32))},
		{"ptr<ptr<i8>>", reg.Pointer(reg.Pointer(reg.Int(8)))},
		{"buffer<i32, 0>", reg.Buffer(reg.Int(32), 0)},
		{" i32 ", reg.Int(32)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := parseType(reg, tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "q32", "ptr<>", "buffer<i32>", "ixx"} {
		_, err := parseType(reg, bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadThenCompile(t *testing.T) {
	m, err := Load([]byte(constReturnYAML))
	require.NoError(t, err)

	out, err := sable.Compile(m, sable.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, `define i32 @main() {
  %0 = const i32 42
  ret i32 %0
}
`, string(out))
}
