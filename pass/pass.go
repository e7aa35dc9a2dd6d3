// Package pass provides the pass abstraction and the sequential pipeline
// that runs passes over a module.
package pass

import (
	"fmt"

	"github.com/sableir/sable/ir"
)

// Pass is a named unit of module transformation. A Pass is stateless
// between invocations on different modules and must not retain any IR
// handle across its own Run boundary.
type Pass interface {
	// Name identifies the pass in diagnostics.
	Name() string
	// Dependencies lists the dialects whose operations the pass may need
	// to introspect. The pipeline verifies they are registered before
	// any pass executes.
	Dependencies() []string
	// Run transforms the module in place.
	Run(m *ir.Module) error
}

// PassError wraps a pass failure with its position in the pipeline.
type PassError struct {
	Index int
	Name  string
	Err   error
}

// Error implements the error interface.
func (e *PassError) Error() string {
	return fmt.Sprintf("pass %d (%s) failed: %v", e.Index, e.Name, e.Err)
}

// Unwrap returns the underlying pass failure.
func (e *PassError) Unwrap() error { return e.Err }
