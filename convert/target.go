package convert

import (
	"github.com/sableir/sable/ir"
)

// Legality classifies an operation kind under a Target.
type Legality uint8

const (
	// Unknown means the target has no rule for the kind. Unknown
	// operations are tolerated by partial conversion and rejected by
	// full conversion.
	Unknown Legality = iota
	// Legal operations are never rewritten.
	Legal
	// Illegal operations must be converted away.
	Illegal
	// DynamicallyLegal operations are legal only while their predicate
	// holds.
	DynamicallyLegal
)

// String implements fmt.Stringer.
func (l Legality) String() string {
	switch l {
	case Legal:
		return "legal"
	case Illegal:
		return "illegal"
	case DynamicallyLegal:
		return "dynamically legal"
	default:
		return "unknown"
	}
}

// Predicate decides dynamic legality for one operation instance.
type Predicate func(m *ir.Module, op ir.OpHandle) bool

type opRule struct {
	legality Legality
	pred     Predicate
}

// Target is the legality oracle for one lowering stage: a mapping from
// operation kind (and, coarser, dialect) to a legality rule. A Target is
// mutated only while a pass sets it up and is read-only during driving.
type Target struct {
	ops      map[ir.OpKind]opRule
	dialects map[string]Legality
	required map[ir.OpKind]bool
	types    *TypeConverter
}

// NewTarget creates an empty target: every kind is Unknown.
func NewTarget() *Target {
	return &Target{
		ops:      make(map[ir.OpKind]opRule),
		dialects: make(map[string]Legality),
		required: make(map[ir.OpKind]bool),
	}
}

// AddLegalOp marks operation kinds always-legal.
func (t *Target) AddLegalOp(kinds ...ir.OpKind) {
	for _, k := range kinds {
		t.ops[k] = opRule{legality: Legal}
	}
}

// AddIllegalOp marks operation kinds always-illegal.
func (t *Target) AddIllegalOp(kinds ...ir.OpKind) {
	for _, k := range kinds {
		t.ops[k] = opRule{legality: Illegal}
	}
}

// AddDynamicallyLegalOp marks a kind legal only while pred holds.
func (t *Target) AddDynamicallyLegalOp(kind ir.OpKind, pred Predicate) {
	t.ops[kind] = opRule{legality: DynamicallyLegal, pred: pred}
}

// AddLegalDialect marks every kind of the named dialects legal unless an
// op-level rule overrides it.
func (t *Target) AddLegalDialect(names ...string) {
	for _, n := range names {
		t.dialects[n] = Legal
	}
}

// AddIllegalDialect marks every kind of the named dialects illegal unless
// an op-level rule overrides it.
func (t *Target) AddIllegalDialect(names ...string) {
	for _, n := range names {
		t.dialects[n] = Illegal
	}
}

// RequireConversion demands that the given kinds become legal even under
// partial conversion: any live operation of a required kind that is still
// not legal after driving fails the run.
func (t *Target) RequireConversion(kinds ...ir.OpKind) {
	for _, k := range kinds {
		t.required[k] = true
	}
}

// SetTypeConverter installs the stage's type conversion rule. A pattern
// replacing a value may change its type only along this rule.
func (t *Target) SetTypeConverter(tc *TypeConverter) { t.types = tc }

// TypeConverter returns the installed type converter, or nil.
func (t *Target) TypeConverter() *TypeConverter { return t.types }

// Classify resolves the legality of one operation instance: the op-level
// rule wins over the dialect-level rule; dynamic legality is evaluated
// against the current state of the module.
func (t *Target) Classify(m *ir.Module, op ir.OpHandle) Legality {
	kind := m.Kind(op)
	if rule, ok := t.ops[kind]; ok {
		if rule.legality != DynamicallyLegal {
			return rule.legality
		}
		if rule.pred(m, op) {
			return Legal
		}
		return Illegal
	}
	if l, ok := t.dialects[kind.Dialect()]; ok {
		return l
	}
	return Unknown
}

// IsLegal reports whether the operation is legal right now.
func (t *Target) IsLegal(m *ir.Module, op ir.OpHandle) bool {
	return t.Classify(m, op) == Legal
}

func (t *Target) isRequired(kind ir.OpKind) bool { return t.required[kind] }

// TypeConversion maps a source type to a destination type. It reports
// false when it does not apply to the given type.
type TypeConversion func(reg *ir.TypeRegistry, t ir.TypeHandle) (ir.TypeHandle, bool)

// TypeConverter chains type conversion rules. The first applicable rule
// wins; a type no rule applies to converts to itself.
type TypeConverter struct {
	rules []TypeConversion
}

// NewTypeConverter creates an empty converter (identity for all types).
func NewTypeConverter() *TypeConverter {
	return &TypeConverter{}
}

// AddConversion appends a conversion rule.
func (c *TypeConverter) AddConversion(fn TypeConversion) {
	c.rules = append(c.rules, fn)
}

// Convert maps a type through the first applicable rule.
func (c *TypeConverter) Convert(reg *ir.TypeRegistry, t ir.TypeHandle) ir.TypeHandle {
	for _, rule := range c.rules {
		if mapped, ok := rule(reg, t); ok {
			return mapped
		}
	}
	return t
}

// ConvertAll maps a slice of types through Convert.
func (c *TypeConverter) ConvertAll(reg *ir.TypeRegistry, ts []ir.TypeHandle) []ir.TypeHandle {
	out := make([]ir.TypeHandle, len(ts))
	for i, t := range ts {
		out[i] = c.Convert(reg, t)
	}
	return out
}
