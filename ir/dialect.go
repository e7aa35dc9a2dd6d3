package ir

import (
	"fmt"
)

// Dialect is a namespaced family of operation kinds sharing conventions.
type Dialect struct {
	Name string
	Ops  []OpKind
}

// DialectRegistry records which dialects (and their operation kinds) are
// available to a pipeline invocation. It is an explicit object constructed
// once per invocation and passed to whoever needs it; there is no
// process-wide registry.
type DialectRegistry struct {
	dialects map[string]Dialect
	order    []string
}

// NewDialectRegistry creates an empty registry with the builtin dialect
// pre-registered.
func NewDialectRegistry() *DialectRegistry {
	r := &DialectRegistry{dialects: make(map[string]Dialect)}
	// Registration of builtin cannot fail on an empty registry.
	_ = r.Register(Dialect{Name: "builtin", Ops: []OpKind{KindModule}})
	return r
}

// Register adds a dialect. Registering the same name twice is an error.
func (r *DialectRegistry) Register(d Dialect) error {
	if d.Name == "" {
		return fmt.Errorf("dialect has empty name")
	}
	if _, ok := r.dialects[d.Name]; ok {
		return fmt.Errorf("dialect %q already registered", d.Name)
	}
	r.dialects[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// Has reports whether a dialect name is registered.
func (r *DialectRegistry) Has(name string) bool {
	_, ok := r.dialects[name]
	return ok
}

// KnowsOp reports whether the operation kind belongs to a registered
// dialect that lists it.
func (r *DialectRegistry) KnowsOp(kind OpKind) bool {
	d, ok := r.dialects[kind.Dialect()]
	if !ok {
		return false
	}
	for _, k := range d.Ops {
		if k == kind {
			return true
		}
	}
	return false
}

// Dialects returns the registered dialect names in registration order.
func (r *DialectRegistry) Dialects() []string {
	return append([]string(nil), r.order...)
}
