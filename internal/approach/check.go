package approach

import (
	"fmt"

	"github.com/san-kum/qtkern/internal/config"
)

// Check reports the first inconsistency in p for a state vector of size dim.
func Check(p *config.Properties, dim int) error {
	if !p.KernType.Known() {
		return &InconsistencyError{"kerntype", fmt.Sprintf("unknown approach %q", p.KernType)}
	}
	if !p.IType.Valid() {
		return &InconsistencyError{"itype", fmt.Sprintf("%d is not in 0..3", int(p.IType))}
	}
	if p.IType == config.ITypeQuad && p.DqawcLimit <= 0 {
		return &InconsistencyError{"dqawc_limit", fmt.Sprintf("%d must be positive", p.DqawcLimit)}
	}

	method := p.SolMethod.Resolve(p.Symq)
	if !p.Symq && method == config.SolveDirect {
		return &InconsistencyError{"solmethod", "solve needs symq=true; use lsqr or a matrix-free method"}
	}
	if p.Symq && (p.NormRow < 0 || p.NormRow >= dim) {
		return &InconsistencyError{"norm_row", fmt.Sprintf("%d is outside [0, %d)", p.NormRow, dim)}
	}

	if p.Mfreeq {
		if !method.Iterative() {
			return &InconsistencyError{"solmethod", fmt.Sprintf("mfreeq=true needs an iterative method, got %q", method)}
		}
		if p.Phi0Init == nil {
			return &InconsistencyError{"phi0_init", "mfreeq=true needs an initial guess"}
		}
		if len(p.Phi0Init) != dim {
			return &InconsistencyError{"phi0_init", fmt.Sprintf("size %d, want %d", len(p.Phi0Init), dim)}
		}
	} else if method.Iterative() {
		return &InconsistencyError{"solmethod", fmt.Sprintf("%q is matrix-free; set mfreeq=true", method)}
	} else if method != config.SolveDirect && method != config.SolveLeastSquares {
		return &InconsistencyError{"solmethod", fmt.Sprintf("unknown method %q", method)}
	}
	return nil
}
