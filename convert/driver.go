package convert

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sableir/sable/ir"
)

// Mode selects how the driver treats operations left illegal after the
// fixed point is reached.
type Mode uint8

const (
	// ModePartial leaves unmatched illegal operations in place. The run
	// fails only for operation kinds the target explicitly requires to
	// be converted, and for pattern-generated operations the target
	// rejects.
	ModePartial Mode = iota
	// ModeFull demands that zero non-legal operations remain.
	ModeFull
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == ModeFull {
		return "full"
	}
	return "partial"
}

// RemainingOp identifies one operation left illegal after a run.
type RemainingOp struct {
	Kind ir.OpKind
	Loc  string
}

// LegalizeError reports the operations a conversion run could not
// legalize. The rewrites performed during the run are still committed:
// the driver does not roll back on final-legality failure, so the module
// behind a LegalizeError is partially lowered and must be discarded.
type LegalizeError struct {
	Mode      Mode
	Remaining []RemainingOp
}

// Error implements the error interface.
func (e *LegalizeError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s conversion failed: %d operation(s) remain illegal", e.Mode, len(e.Remaining))
	for i, r := range e.Remaining {
		if i == 4 {
			fmt.Fprintf(&sb, "; and %d more", len(e.Remaining)-i)
			break
		}
		sb.WriteString("; ")
		sb.WriteString(string(r.Kind))
		if r.Loc != "" {
			fmt.Fprintf(&sb, " (at %s)", r.Loc)
		}
	}
	return sb.String()
}

// ApplyPartialConversion drives the module to a legality fixed point in
// partial mode. logger may be nil.
func ApplyPartialConversion(m *ir.Module, target *Target, patterns *PatternSet, logger *slog.Logger) error {
	return apply(m, target, patterns, ModePartial, logger)
}

// ApplyFullConversion drives the module to a legality fixed point in full
// mode. logger may be nil. On failure the rewrites already performed stay
// committed; the caller must discard the module.
func ApplyFullConversion(m *ir.Module, target *Target, patterns *PatternSet, logger *slog.Logger) error {
	return apply(m, target, patterns, ModeFull, logger)
}

func apply(m *ir.Module, target *Target, patterns *PatternSet, mode Mode, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &driver{
		m:         m,
		target:    target,
		patterns:  patterns,
		mode:      mode,
		logger:    logger,
		remap:     make(map[ir.ValueHandle]ir.ValueHandle),
		generated: make(map[ir.OpHandle]bool),
	}
	return d.run()
}

// driver is the worklist fixed-point algorithm. It is single-threaded and
// owns the module exclusively for the duration of the run.
type driver struct {
	m         *ir.Module
	target    *Target
	patterns  *PatternSet
	mode      Mode
	logger    *slog.Logger
	remap     map[ir.ValueHandle]ir.ValueHandle
	generated map[ir.OpHandle]bool
	worklist  []ir.OpHandle
}

func (d *driver) run() error {
	// Seed with every operation in deterministic pre-order. Operations
	// inserted by patterns are appended, so the fixed point is reached
	// only once every reachable operation has been examined.
	d.m.Walk(func(op ir.OpHandle) {
		d.worklist = append(d.worklist, op)
	})

	for i := 0; i < len(d.worklist); i++ {
		op := d.worklist[i]
		if d.m.IsErased(op) {
			continue
		}
		if d.target.IsLegal(d.m, op) {
			continue
		}
		d.legalize(op)
	}

	return d.finalCheck()
}

// legalize tries the registered patterns for op's kind in descending
// benefit order (registration order breaks ties) and commits the first
// match. If no pattern matches, the final scan decides whether that is an
// error.
func (d *driver) legalize(op ir.OpHandle) {
	kind := d.m.Kind(op)
	for _, p := range d.patterns.forKind(kind) {
		operands := d.convertedOperands(op)
		rw := &Rewriter{m: d.m, drv: d, anchor: op}
		err := p.Rewrite(d.m, op, operands, rw)
		if err == nil && !rw.finished {
			// The pattern "succeeded" without replacing or erasing the
			// matched operation. Committing would leave its insertions
			// next to the still-live root, so treat it as a match failure.
			rw.rollback()
			d.logger.Debug("pattern did not replace its root", "op", string(kind), "benefit", p.Benefit())
			continue
		}
		if err == nil {
			for _, c := range rw.created {
				if !d.m.IsErased(c) {
					d.generated[c] = true
					d.worklist = append(d.worklist, c)
				}
			}
			d.logger.Debug("rewrote op", "op", string(kind), "benefit", p.Benefit(), "new", len(rw.created))
			return
		}
		rw.rollback()
		if !errors.Is(err, ErrNoMatch) {
			// Partial emission failure: rolled back and demoted to an
			// ordinary match failure, per the propagation policy.
			d.logger.Debug("pattern failed mid-rewrite", "op", string(kind), "err", err)
		}
	}
}

// convertedOperands resolves each operand through the replacement map so
// conversion patterns see the already-converted values.
func (d *driver) convertedOperands(op ir.OpHandle) []ir.ValueHandle {
	operands := d.m.Operands(op)
	out := make([]ir.ValueHandle, len(operands))
	for i, v := range operands {
		out[i] = d.resolve(v)
	}
	return out
}

func (d *driver) resolve(v ir.ValueHandle) ir.ValueHandle {
	for {
		next, ok := d.remap[v]
		if !ok {
			return v
		}
		v = next
	}
}

func (d *driver) recordReplacement(old, new ir.ValueHandle) {
	if old != new {
		d.remap[old] = new
	}
}

// finalCheck scans the whole module once more after the worklist drains.
// Full mode: any live non-legal operation fails the run. Partial mode:
// only required kinds and pattern-generated operations the target rejects
// fail the run.
func (d *driver) finalCheck() error {
	var remaining []RemainingOp
	d.m.Walk(func(op ir.OpHandle) {
		legality := d.target.Classify(d.m, op)
		if legality == Legal {
			return
		}
		switch d.mode {
		case ModeFull:
			remaining = append(remaining, RemainingOp{Kind: d.m.Kind(op), Loc: d.m.Loc(op)})
		case ModePartial:
			if d.target.isRequired(d.m.Kind(op)) || (legality == Illegal && d.generated[op]) {
				remaining = append(remaining, RemainingOp{Kind: d.m.Kind(op), Loc: d.m.Loc(op)})
			}
		}
	})
	if len(remaining) > 0 {
		return &LegalizeError{Mode: d.mode, Remaining: remaining}
	}
	return nil
}
