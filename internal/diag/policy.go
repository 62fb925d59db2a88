package diag

import (
	"fmt"
	"io"
	"os"
)

// DefaultSlots is the number of warning slots a Policy gets when the caller
// does not ask for more.
const DefaultSlots = 1

const errorTemplate = `WARNING: Could not solve the linear set of equations.
  Error from the solver: %v
  The reasons for such a failure can be various:
  1. Some of the transport channels may be outside the bandwidth D of the leads.
     In this case removing the out-of-band states will help.
  2. Replacement of one of the equations with the normalisation condition.
     In this case try to use a different norm_row
     or solve the linear system using symq=false and solmethod=lsqr.
  This warning will not be shown again.
  To check if the solution succeeded check the Success field.
`

// Policy gates diagnostics so that the error class and each warning slot
// print at most once. Flags only ever go from cleared to set.
// A Policy is not safe for concurrent use.
type Policy struct {
	out         io.Writer
	suppressErr bool
	suppressWrn []bool
}

// New returns a Policy writing to out with the given number of warning
// slots. A nil out writes to os.Stdout; slots below one become DefaultSlots.
func New(out io.Writer, slots int) *Policy {
	if out == nil {
		out = os.Stdout
	}
	if slots < 1 {
		slots = DefaultSlots
	}
	return &Policy{out: out, suppressWrn: make([]bool, slots)}
}

// ReportError prints the remediation message for cause the first time it is
// called. Every later call is a no-op.
func (p *Policy) ReportError(cause error) {
	if p.suppressErr {
		return
	}
	fmt.Fprintf(p.out, errorTemplate, cause)
	p.suppressErr = true
}

// ReportWarning prints message verbatim the first time slot i is reported.
// i must be in [0, Slots()); anything else panics.
func (p *Policy) ReportWarning(i int, message string) {
	if p.suppressWrn[i] {
		return
	}
	fmt.Fprintln(p.out, message)
	p.suppressWrn[i] = true
}

// SuppressErr reports whether the solve error has already been reported.
func (p *Policy) SuppressErr() bool { return p.suppressErr }

// SuppressWrn reports whether warning slot i has already been reported.
func (p *Policy) SuppressWrn(i int) bool { return p.suppressWrn[i] }

// Slots is the number of warning slots.
func (p *Policy) Slots() int { return len(p.suppressWrn) }

// SetOutput redirects future messages. Flags are untouched.
func (p *Policy) SetOutput(out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	p.out = out
}

// Snapshot is a copy of a Policy's flags.
type Snapshot struct {
	SuppressErr bool   `json:"suppress_err"`
	SuppressWrn []bool `json:"suppress_wrn"`
}

// Snapshot copies the current flags.
func (p *Policy) Snapshot() Snapshot {
	wrn := make([]bool, len(p.suppressWrn))
	copy(wrn, p.suppressWrn)
	return Snapshot{SuppressErr: p.suppressErr, SuppressWrn: wrn}
}

// Reported counts the condition classes that have been reported.
func (s Snapshot) Reported() int {
	n := 0
	if s.SuppressErr {
		n++
	}
	for _, w := range s.SuppressWrn {
		if w {
			n++
		}
	}
	return n
}
