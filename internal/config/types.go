package config

import (
	"fmt"
	"strings"
)

// KernType names the kernel-construction approach.
type KernType string

const (
	KernPauli    KernType = "Pauli"
	KernLindblad KernType = "Lindblad"
	KernRedfield KernType = "Redfield"
	Kern1vN      KernType = "1vN"
	Kern2vN      KernType = "2vN"
	KernRTD      KernType = "RTD"
)

var kernTypes = []KernType{KernPauli, KernLindblad, KernRedfield, Kern1vN, Kern2vN, KernRTD}

func KernTypes() []KernType {
	out := make([]KernType, len(kernTypes))
	copy(out, kernTypes)
	return out
}

func (k KernType) Known() bool {
	for _, t := range kernTypes {
		if t == k {
			return true
		}
	}
	return false
}

// SecondOrder reports whether k needs the extended 2vN energy grid.
func (k KernType) SecondOrder() bool { return k == Kern2vN }

// SolMethod names the strategy for solving L(phi0) = 0. The empty value
// means unset and is resolved by the solver from Symq.
type SolMethod string

const (
	SolveDirect       SolMethod = "solve"
	SolveLeastSquares SolMethod = "lsqr"

	SolveKrylov         SolMethod = "krylov"
	SolveBroyden1       SolMethod = "broyden1"
	SolveBroyden2       SolMethod = "broyden2"
	SolveAnderson       SolMethod = "anderson"
	SolveLinearMixing   SolMethod = "linearmixing"
	SolveDiagBroyden    SolMethod = "diagbroyden"
	SolveExcitingMixing SolMethod = "excitingmixing"
	SolveDFSane         SolMethod = "df-sane"
	SolveLBFGS          SolMethod = "lbfgs"
	SolveBFGS           SolMethod = "bfgs"
)

var iterativeMethods = map[SolMethod]bool{
	SolveKrylov:         true,
	SolveBroyden1:       true,
	SolveBroyden2:       true,
	SolveAnderson:       true,
	SolveLinearMixing:   true,
	SolveDiagBroyden:    true,
	SolveExcitingMixing: true,
	SolveDFSane:         true,
	SolveLBFGS:          true,
	SolveBFGS:           true,
}

func (m SolMethod) Unset() bool { return m == "" }

// Iterative reports whether m is a matrix-free method.
func (m SolMethod) Iterative() bool { return iterativeMethods[m] }

// Resolve returns m, or the default for symq when m is unset.
func (m SolMethod) Resolve(symq bool) SolMethod {
	if !m.Unset() {
		return m
	}
	if symq {
		return SolveDirect
	}
	return SolveLeastSquares
}

// IType selects how principal-value integrals are evaluated. Higher values
// are cheaper and less accurate.
type IType int

const (
	// Principal parts evaluated by adaptive quadrature.
	ITypeQuad IType = iota
	// Principal parts approximated by the digamma function (large bandwidth).
	ITypeDigamma
	// Principal parts neglected.
	ITypeNoPrincipal
	// Principal parts neglected and infinite bandwidth assumed.
	ITypeWideBand
)

func (t IType) Valid() bool { return t >= ITypeQuad && t <= ITypeWideBand }

func (t IType) String() string {
	switch t {
	case ITypeQuad:
		return "quad"
	case ITypeDigamma:
		return "digamma"
	case ITypeNoPrincipal:
		return "no-principal"
	case ITypeWideBand:
		return "wide-band"
	}
	return fmt.Sprintf("itype(%d)", int(t))
}

// MType is the arithmetic domain of a many-body matrix.
type MType int

const (
	Real MType = iota
	Complex
)

func (m MType) String() string {
	switch m {
	case Real:
		return "real"
	case Complex:
		return "complex"
	}
	return fmt.Sprintf("mtype(%d)", int(m))
}

func (m MType) MarshalText() ([]byte, error) {
	if m != Real && m != Complex {
		return nil, fmt.Errorf("invalid mtype %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *MType) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "real", "float", "float64":
		*m = Real
	case "complex", "complex128":
		*m = Complex
	default:
		return fmt.Errorf("unknown mtype %q", string(text))
	}
	return nil
}
