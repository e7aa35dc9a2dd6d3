package pass

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sableir/sable/ir"
)

// State is the pipeline's sequential state machine.
type State uint8

const (
	NotStarted State = iota
	Running
	Succeeded
	Failed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "invalid"
	}
}

// ErrAlreadyRun is returned when Run is called on a pipeline that has
// already run. A pipeline invocation is single-shot: a module left
// partially converted by a failed pass is discarded by the caller, never
// resumed.
var ErrAlreadyRun = errors.New("pipeline has already run")

// Pipeline runs an ordered list of passes against one module. Passes run
// strictly in declaration order with no retry: the first failure
// transitions the pipeline to Failed and aborts the remaining passes.
// There is no rollback across passes.
type Pipeline struct {
	registry *ir.DialectRegistry
	logger   *slog.Logger
	passes   []Pass
	state    State
	failed   int
}

// NewPipeline creates an empty pipeline bound to a dialect registry.
// logger may be nil.
func NewPipeline(registry *ir.DialectRegistry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{registry: registry, logger: logger, failed: -1}
}

// Add appends passes in execution order.
func (p *Pipeline) Add(passes ...Pass) {
	p.passes = append(p.passes, passes...)
}

// State returns the pipeline state.
func (p *Pipeline) State() State { return p.state }

// FailedIndex returns the index of the failed pass, or -1.
func (p *Pipeline) FailedIndex() int { return p.failed }

// Run executes the passes in order over m. Before anything executes, the
// dialect dependencies declared by every pass are verified against the
// registry; a missing dialect fails the pipeline attributed to the pass
// that declared it. The first pass failure aborts the pipeline.
func (p *Pipeline) Run(m *ir.Module) error {
	if p.state != NotStarted {
		return ErrAlreadyRun
	}

	for i, ps := range p.passes {
		for _, dep := range ps.Dependencies() {
			if !p.registry.Has(dep) {
				p.state = Failed
				p.failed = i
				return &PassError{
					Index: i,
					Name:  ps.Name(),
					Err:   fmt.Errorf("dialect %q is not registered", dep),
				}
			}
		}
	}

	p.state = Running
	for i, ps := range p.passes {
		p.logger.Debug("running pass", "index", i, "pass", ps.Name())
		if err := ps.Run(m); err != nil {
			p.state = Failed
			p.failed = i
			p.logger.Debug("pass failed", "index", i, "pass", ps.Name(), "err", err)
			return &PassError{Index: i, Name: ps.Name(), Err: err}
		}
	}
	p.state = Succeeded
	return nil
}
