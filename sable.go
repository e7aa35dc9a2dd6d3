// Package sable provides a progressive IR lowering engine.
//
// sable rewrites a module expressed in the high-level structured "hi"
// dialect down to the flat low-level "ll" dialect through a sequence of
// legality-checked, pattern-driven conversions, then translates the
// result to the textual low-level representation consumed by the code
// generator.
//
// The package provides a simple, high-level API as well as lower-level
// access to the individual stages.
//
// Example usage:
//
//	m := ir.NewModule()
//	// ... build hi-dialect functions through ir.Builder ...
//	out, err := sable.Compile(m, sable.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The lowering pipeline is:
//  1. Legalize function shapes (hi.func, hi.return, hi.call)
//  2. Legalize memory operations and constants
//  3. Fully convert everything that remains to the ll dialect
//  4. Verify the module and translate it to the low-level form
package sable

import (
	"fmt"
	"log/slog"

	"github.com/sableir/sable/ir"
	"github.com/sableir/sable/llir"
	"github.com/sableir/sable/lower"
	"github.com/sableir/sable/pass"
)

// Options configures lowering and compilation.
type Options struct {
	// Logger receives debug-level rewrite and pass tracing. nil disables
	// logging.
	Logger *slog.Logger

	// Verify enables structural verification after a successful pipeline
	// run.
	Verify bool
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{Verify: true}
}

// FatalError wraps a verification or translation failure. Unlike a
// *pass.PassError, which reports an expected legalization gap in the
// input program, a FatalError indicates the engine itself produced
// malformed output: a bug in a pattern, never user-recoverable.
type FatalError struct {
	Stage string // "verify" or "translate"
	Err   error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal %s error: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying failure.
func (e *FatalError) Unwrap() error { return e.Err }

// NewDialectRegistry creates a registry with the builtin, hi, core and ll
// dialects registered. Each pipeline invocation gets its own registry;
// there is no process-wide state.
func NewDialectRegistry() *ir.DialectRegistry {
	reg := ir.NewDialectRegistry()
	// Registration of the stock dialects on a fresh registry cannot
	// collide.
	_ = lower.RegisterDialects(reg)
	return reg
}

// NewLowerPipeline assembles the three-stage lowering pipeline in its
// required order: function shapes, then memory operations, then the full
// ll conversion.
func NewLowerPipeline(reg *ir.DialectRegistry, opts Options) *pass.Pipeline {
	pl := pass.NewPipeline(reg, opts.Logger)
	pl.Add(
		lower.NewFuncShapePass(opts.Logger),
		lower.NewMemoryPass(opts.Logger),
		lower.NewLLConversionPass(opts.Logger),
	)
	return pl
}

// Lower runs the full pipeline over m in place and, when enabled,
// verifies the result.
//
// A *pass.PassError identifies the failing pass; the module behind it is
// partially lowered and must be discarded. A *FatalError means the
// pipeline succeeded but produced a structurally broken module.
func Lower(m *ir.Module, opts Options) error {
	reg := NewDialectRegistry()
	pl := NewLowerPipeline(reg, opts)
	if err := pl.Run(m); err != nil {
		return err
	}
	if opts.Verify {
		if errs := ir.Verify(m); len(errs) > 0 {
			return &FatalError{Stage: "verify", Err: fmt.Errorf("%d error(s), first: %w", len(errs), errs[0])}
		}
	}
	return nil
}

// Compile lowers m and translates it to the textual low-level
// representation.
func Compile(m *ir.Module, opts Options) ([]byte, error) {
	if err := Lower(m, opts); err != nil {
		return nil, err
	}
	out, err := llir.NewBackend(llir.DefaultOptions()).Compile(m)
	if err != nil {
		return nil, &FatalError{Stage: "translate", Err: err}
	}
	return out, nil
}
