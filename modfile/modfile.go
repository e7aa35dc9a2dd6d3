// Package modfile loads a hi-dialect module from its YAML description.
//
// The format is a front-end stand-in: it lets the CLI and tests feed the
// lowering pipeline without a textual IR parser. A file lists functions;
// each function lists labelled blocks; each block lists operations with
// named SSA results:
//
//	functions:
//	  - name: main
//	    results: [i32]
//	    blocks:
//	      - label: entry
//	        ops:
//	          - {op: hi.const, result: c, type: i32, attrs: {value: 42}}
//	          - {op: hi.return, operands: [c]}
package modfile

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sableir/sable/ir"
)

// File is the top-level YAML document.
type File struct {
	Functions []Function `yaml:"functions"`
}

// Function describes one function definition.
type Function struct {
	Name    string   `yaml:"name"`
	Params  []Param  `yaml:"params"`
	Results []string `yaml:"results"`
	Blocks  []Block  `yaml:"blocks"`
}

// Param is a named, typed function or block parameter.
type Param struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Block is a labelled basic block.
type Block struct {
	Label string  `yaml:"label"`
	Args  []Param `yaml:"args"`
	Ops   []Op    `yaml:"ops"`
}

// Op describes one operation. Result names the op's single SSA result
// (empty for ops without results) and Type its type.
type Op struct {
	Op         string         `yaml:"op"`
	Result     string         `yaml:"result"`
	Type       string         `yaml:"type"`
	Operands   []string       `yaml:"operands"`
	Attrs      map[string]any `yaml:"attrs"`
	Successors []string       `yaml:"successors"`
}

// Parse decodes a YAML document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse module file: %w", err)
	}
	return &f, nil
}

// Load parses the YAML document and builds the module it describes.
func Load(data []byte) (*ir.Module, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return f.Build()
}

// Build constructs the ir.Module described by the file.
func (f *File) Build() (*ir.Module, error) {
	m := ir.NewModule()
	b := ir.NewBuilder(m)
	for i := range f.Functions {
		if err := buildFunc(m, b, &f.Functions[i]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func buildFunc(m *ir.Module, b *ir.Builder, fn *Function) error {
	if fn.Name == "" {
		return fmt.Errorf("function without a name")
	}
	if len(fn.Blocks) == 0 {
		return fmt.Errorf("function %q has no blocks", fn.Name)
	}

	params := make([]ir.TypeHandle, len(fn.Params))
	for i, p := range fn.Params {
		t, err := parseType(m.Types, p.Type)
		if err != nil {
			return fmt.Errorf("function %q param %q: %w", fn.Name, p.Name, err)
		}
		params[i] = t
	}
	results := make([]ir.TypeHandle, len(fn.Results))
	for i, r := range fn.Results {
		t, err := parseType(m.Types, r)
		if err != nil {
			return fmt.Errorf("function %q result %d: %w", fn.Name, i, err)
		}
		results[i] = t
	}

	b.SetInsertionPointToEnd(m.Body())
	fnOp := b.Insert(ir.OpSpec{
		Kind: "hi.func",
		Attrs: map[string]ir.Attribute{
			"sym_name": ir.StringAttr{Value: fn.Name},
			"type":     ir.TypeAttr{Type: m.Types.Func(params, results)},
		},
		NumRegions: 1,
		Loc:        fn.Name,
	})
	body := m.Region(fnOp, 0)

	// Blocks and their arguments first, so operand and successor names
	// resolve regardless of block order. The entry block's arguments are
	// the function parameters.
	values := make(map[string]ir.ValueHandle)
	blocks := make(map[string]ir.BlockHandle, len(fn.Blocks))
	order := make([]ir.BlockHandle, len(fn.Blocks))
	for i := range fn.Blocks {
		blk := &fn.Blocks[i]
		args := blk.Args
		if i == 0 {
			if len(args) > 0 {
				return fmt.Errorf("function %q: entry block arguments come from params", fn.Name)
			}
			args = fn.Params
		}
		argTypes := make([]ir.TypeHandle, len(args))
		for j, a := range args {
			t, err := parseType(m.Types, a.Type)
			if err != nil {
				return fmt.Errorf("function %q block %q arg %q: %w", fn.Name, blk.Label, a.Name, err)
			}
			argTypes[j] = t
		}
		bh := m.AddBlock(body, argTypes)
		order[i] = bh
		label := blk.Label
		if label == "" {
			label = "bb" + strconv.Itoa(i)
		}
		if _, dup := blocks[label]; dup {
			return fmt.Errorf("function %q: duplicate block label %q", fn.Name, label)
		}
		blocks[label] = bh
		for j, a := range args {
			if a.Name == "" {
				continue
			}
			if _, dup := values[a.Name]; dup {
				return fmt.Errorf("function %q: duplicate value name %q", fn.Name, a.Name)
			}
			values[a.Name] = m.BlockArgs(bh)[j]
		}
	}

	for i := range fn.Blocks {
		blk := &fn.Blocks[i]
		b.SetInsertionPointToEnd(order[i])
		for j := range blk.Ops {
			if err := buildOp(m, b, fn, blk, j, values, blocks); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildOp(m *ir.Module, b *ir.Builder, fn *Function, blk *Block, index int, values map[string]ir.ValueHandle, blocks map[string]ir.BlockHandle) error {
	decl := &blk.Ops[index]
	if decl.Op == "" {
		return fmt.Errorf("function %q block %q: op %d has no kind", fn.Name, blk.Label, index)
	}
	kind := ir.OpKind(decl.Op)

	operands := make([]ir.ValueHandle, len(decl.Operands))
	for i, name := range decl.Operands {
		v, ok := values[name]
		if !ok {
			return fmt.Errorf("function %q block %q: operand %q is not defined", fn.Name, blk.Label, name)
		}
		operands[i] = v
	}

	var resultTypes []ir.TypeHandle
	if decl.Result != "" {
		t, err := parseType(m.Types, decl.Type)
		if err != nil {
			return fmt.Errorf("function %q block %q result %q: %w", fn.Name, blk.Label, decl.Result, err)
		}
		resultTypes = []ir.TypeHandle{t}
	}

	successors := make([]ir.BlockHandle, len(decl.Successors))
	for i, label := range decl.Successors {
		s, ok := blocks[label]
		if !ok {
			return fmt.Errorf("function %q block %q: successor %q is not a block", fn.Name, blk.Label, label)
		}
		successors[i] = s
	}

	attrs, err := buildAttrs(decl.Attrs)
	if err != nil {
		return fmt.Errorf("function %q block %q op %q: %w", fn.Name, blk.Label, decl.Op, err)
	}

	op := b.Insert(ir.OpSpec{
		Kind:        kind,
		Operands:    operands,
		ResultTypes: resultTypes,
		Attrs:       attrs,
		Successors:  successors,
		Terminator:  isTerminatorKind(kind),
		Loc:         fmt.Sprintf("%s:%s:%d", fn.Name, blk.Label, index),
	})
	if decl.Result != "" {
		if _, dup := values[decl.Result]; dup {
			return fmt.Errorf("function %q: duplicate value name %q", fn.Name, decl.Result)
		}
		values[decl.Result] = m.Results(op)[0]
	}
	return nil
}

func buildAttrs(raw map[string]any) (map[string]ir.Attribute, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	attrs := make(map[string]ir.Attribute, len(raw))
	for name, v := range raw {
		switch val := v.(type) {
		case int:
			attrs[name] = ir.IntAttr{Value: int64(val)}
		case int64:
			attrs[name] = ir.IntAttr{Value: val}
		case float64:
			attrs[name] = ir.FloatAttr{Value: val}
		case bool:
			if val {
				attrs[name] = ir.UnitAttr{}
			}
		case string:
			if name == "callee" {
				attrs[name] = ir.SymbolAttr{Name: val}
			} else {
				attrs[name] = ir.StringAttr{Value: val}
			}
		default:
			return nil, fmt.Errorf("attribute %q has unsupported type %T", name, v)
		}
	}
	return attrs, nil
}

func isTerminatorKind(kind ir.OpKind) bool {
	name := string(kind)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	switch name {
	case "return", "ret", "br", "cond_br":
		return true
	}
	return false
}

// parseType parses the textual type syntax used by module files:
// i8/i16/i32/i64, u8..u64, f32/f64, bool, void, ptr<T>, buffer<T, rank>.
func parseType(reg *ir.TypeRegistry, s string) (ir.TypeHandle, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return 0, fmt.Errorf("empty type")
	case s == "bool":
		return reg.Bool(), nil
	case s == "void":
		return reg.Void(), nil
	case strings.HasPrefix(s, "ptr<") && strings.HasSuffix(s, ">"):
		elem, err := parseType(reg, s[len("ptr<"):len(s)-1])
		if err != nil {
			return 0, err
		}
		return reg.Pointer(elem), nil
	case strings.HasPrefix(s, "buffer<") && strings.HasSuffix(s, ">"):
		inner := s[len("buffer<") : len(s)-1]
		comma := strings.LastIndexByte(inner, ',')
		if comma < 0 {
			return 0, fmt.Errorf("buffer type %q needs a rank", s)
		}
		elem, err := parseType(reg, inner[:comma])
		if err != nil {
			return 0, err
		}
		rank, err := strconv.ParseUint(strings.TrimSpace(inner[comma+1:]), 10, 8)
		if err != nil {
			return 0, fmt.Errorf("buffer rank in %q: %w", s, err)
		}
		return reg.Buffer(elem, uint8(rank)), nil
	case s[0] == 'i' || s[0] == 'u' || s[0] == 'f':
		width, err := strconv.ParseUint(s[1:], 10, 8)
		if err != nil {
			return 0, fmt.Errorf("unknown type %q", s)
		}
		switch s[0] {
		case 'i':
			return reg.Int(uint8(width)), nil
		case 'u':
			return reg.Uint(uint8(width)), nil
		default:
			return reg.Float(uint8(width)), nil
		}
	default:
		return 0, fmt.Errorf("unknown type %q", s)
	}
}
