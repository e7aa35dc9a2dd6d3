package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeHandle references a type in the module's TypeRegistry.
type TypeHandle uint32

// Type represents a type in the IR.
type Type struct {
	Name  string
	Inner TypeInner
}

// TypeInner represents the inner type kind.
type TypeInner interface {
	typeInner()
}

// ScalarType represents scalar types. Width is in bits.
type ScalarType struct {
	Kind  ScalarKind
	Width uint8
}

func (ScalarType) typeInner() {}

// ScalarKind represents scalar type kinds.
type ScalarKind uint8

const (
	ScalarSint  ScalarKind = iota // Signed integer
	ScalarUint                    // Unsigned integer
	ScalarFloat                   // Floating point
	ScalarBool                    // Boolean
)

// VoidType is the empty type (functions without results).
type VoidType struct{}

func (VoidType) typeInner() {}

// PointerType represents a pointer to a value of the element type.
type PointerType struct {
	Elem TypeHandle
}

func (PointerType) typeInner() {}

// BufferType represents a memory buffer of the element type. Rank 0 is a
// scalar buffer holding exactly one element.
type BufferType struct {
	Elem TypeHandle
	Rank uint8
}

func (BufferType) typeInner() {}

// FuncType represents a function signature.
type FuncType struct {
	Params  []TypeHandle
	Results []TypeHandle
}

func (FuncType) typeInner() {}

// TypeRegistry ensures type deduplication: two structurally identical
// types always share one handle, so handle equality is type equality.
type TypeRegistry struct {
	types   []Type
	typeMap map[string]TypeHandle
	keyBuf  []byte // reusable buffer for building type keys
}

// NewTypeRegistry creates a new type registry for deduplication.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types:   make([]Type, 0, 16),
		typeMap: make(map[string]TypeHandle, 16),
		keyBuf:  make([]byte, 0, 64),
	}
}

// GetOrCreate returns an existing handle for the type if it exists,
// or creates a new one if it's unique.
func (r *TypeRegistry) GetOrCreate(name string, inner TypeInner) TypeHandle {
	key := r.normalizeType(inner)

	if handle, exists := r.typeMap[key]; exists {
		return handle
	}

	handle := TypeHandle(len(r.types))
	r.types = append(r.types, Type{
		Name:  name,
		Inner: inner,
	})
	r.typeMap[key] = handle

	return handle
}

// Int returns the signed integer type of the given bit width.
func (r *TypeRegistry) Int(width uint8) TypeHandle {
	return r.GetOrCreate("", ScalarType{Kind: ScalarSint, Width: width})
}

// Uint returns the unsigned integer type of the given bit width.
func (r *TypeRegistry) Uint(width uint8) TypeHandle {
	return r.GetOrCreate("", ScalarType{Kind: ScalarUint, Width: width})
}

// Float returns the floating point type of the given bit width.
func (r *TypeRegistry) Float(width uint8) TypeHandle {
	return r.GetOrCreate("", ScalarType{Kind: ScalarFloat, Width: width})
}

// Bool returns the boolean type.
func (r *TypeRegistry) Bool() TypeHandle {
	return r.GetOrCreate("", ScalarType{Kind: ScalarBool, Width: 1})
}

// Void returns the empty type.
func (r *TypeRegistry) Void() TypeHandle {
	return r.GetOrCreate("", VoidType{})
}

// Pointer returns the pointer type to elem.
func (r *TypeRegistry) Pointer(elem TypeHandle) TypeHandle {
	return r.GetOrCreate("", PointerType{Elem: elem})
}

// Buffer returns the buffer type of elem with the given rank.
func (r *TypeRegistry) Buffer(elem TypeHandle, rank uint8) TypeHandle {
	return r.GetOrCreate("", BufferType{Elem: elem, Rank: rank})
}

// Func returns the function type with the given parameters and results.
func (r *TypeRegistry) Func(params, results []TypeHandle) TypeHandle {
	return r.GetOrCreate("", FuncType{
		Params:  append([]TypeHandle(nil), params...),
		Results: append([]TypeHandle(nil), results...),
	})
}

// normalizeType creates a unique key for a type based on its structure.
// Two structurally identical types will produce the same key.
// Uses a reusable byte buffer to avoid fmt.Sprintf allocations for common types.
func (r *TypeRegistry) normalizeType(inner TypeInner) string {
	b := r.keyBuf[:0]

	switch t := inner.(type) {
	case ScalarType:
		b = append(b, "scalar:"...)
		b = strconv.AppendInt(b, int64(t.Kind), 10)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(t.Width), 10)
		r.keyBuf = b
		return string(b)

	case VoidType:
		return "void"

	case PointerType:
		return "ptr:" + strconv.FormatInt(int64(t.Elem), 10)

	case BufferType:
		return "buffer:" + strconv.FormatInt(int64(t.Elem), 10) + ":" + strconv.FormatUint(uint64(t.Rank), 10)

	case FuncType:
		// Function types are rarer; plain string building is fine.
		var sb strings.Builder
		sb.WriteString("fn:(")
		for i, p := range t.Params {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatInt(int64(p), 10))
		}
		sb.WriteString(")->(")
		for i, res := range t.Results {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatInt(int64(res), 10))
		}
		sb.WriteByte(')')
		return sb.String()

	default:
		return fmt.Sprintf("unknown:%T", inner)
	}
}

// Lookup finds a type by its handle.
func (r *TypeRegistry) Lookup(handle TypeHandle) (Type, bool) {
	if int(handle) >= len(r.types) {
		return Type{}, false
	}
	return r.types[handle], true
}

// Count returns the number of unique types registered.
func (r *TypeRegistry) Count() int {
	return len(r.types)
}

// String renders a type handle in textual form: i32, u8, f64, bool, void,
// ptr<i32>, buffer<i32, 0>, (i32, i32) -> i32.
func (r *TypeRegistry) String(handle TypeHandle) string {
	t, ok := r.Lookup(handle)
	if !ok {
		return fmt.Sprintf("<invalid type %d>", handle)
	}
	switch inner := t.Inner.(type) {
	case ScalarType:
		switch inner.Kind {
		case ScalarSint:
			return "i" + strconv.FormatUint(uint64(inner.Width), 10)
		case ScalarUint:
			return "u" + strconv.FormatUint(uint64(inner.Width), 10)
		case ScalarFloat:
			return "f" + strconv.FormatUint(uint64(inner.Width), 10)
		case ScalarBool:
			return "bool"
		}
		return fmt.Sprintf("<scalar %d>", inner.Kind)
	case VoidType:
		return "void"
	case PointerType:
		return "ptr<" + r.String(inner.Elem) + ">"
	case BufferType:
		return "buffer<" + r.String(inner.Elem) + ", " + strconv.FormatUint(uint64(inner.Rank), 10) + ">"
	case FuncType:
		var sb strings.Builder
		sb.WriteByte('(')
		for i, p := range inner.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(r.String(p))
		}
		sb.WriteString(") -> ")
		switch len(inner.Results) {
		case 0:
			sb.WriteString("()")
		case 1:
			sb.WriteString(r.String(inner.Results[0]))
		default:
			sb.WriteByte('(')
			for i, res := range inner.Results {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(r.String(res))
			}
			sb.WriteByte(')')
		}
		return sb.String()
	default:
		return fmt.Sprintf("<unknown %T>", inner)
	}
}
