package ir

// Attribute is a compile-time constant attached to an operation by name.
// The set of variants is closed.
type Attribute interface {
	attribute()
}

// IntAttr holds a signed integer literal.
type IntAttr struct {
	Value int64
}

func (IntAttr) attribute() {}

// FloatAttr holds a floating point literal.
type FloatAttr struct {
	Value float64
}

func (FloatAttr) attribute() {}

// StringAttr holds a string literal.
type StringAttr struct {
	Value string
}

func (StringAttr) attribute() {}

// SymbolAttr references a symbol by name (a function, typically).
type SymbolAttr struct {
	Name string
}

func (SymbolAttr) attribute() {}

// TypeAttr holds a type from the module's type registry.
type TypeAttr struct {
	Type TypeHandle
}

func (TypeAttr) attribute() {}

// UnitAttr marks presence without a payload.
type UnitAttr struct{}

func (UnitAttr) attribute() {}
