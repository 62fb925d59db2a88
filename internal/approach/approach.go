package approach

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qtkern/internal/config"
)

const (
	DefaultResidualTol = 1e-6

	// rankTol is the relative singular value cutoff for lsqr.
	rankTol = 1e-12
)

// Kernel is an assembled master-equation kernel L with L*phi0 = 0.
type Kernel interface {
	// Dim is the size of the state vector phi0.
	Dim() int
	// Assemble returns the Dim x Dim kernel matrix.
	Assemble() (*mat.Dense, error)
	// Norm returns the coefficients of the normalisation condition Norm*phi0 = 1.
	Norm() []float64
}

// Applier is implemented by kernels that can apply L without forming it.
// Matrix-free solves use it when available.
type Applier interface {
	Apply(dst, phi0 []float64)
}

type Approach struct {
	Props *config.Properties

	// Phi0 is the last stationary solution; nil until a solve succeeds.
	Phi0 []float64
	// Success reports whether the last Solve produced a solution.
	Success bool
	// Residual is the norm of the residual of the last solution.
	Residual float64

	ResidualTol float64
	registry    *Registry
}

func New(p *config.Properties) *Approach {
	return &Approach{
		Props:       p,
		ResidualTol: DefaultResidualTol,
		registry:    NewRegistry(),
	}
}

// WithRegistry replaces the matrix-free backends.
func (a *Approach) WithRegistry(r *Registry) *Approach {
	a.registry = r
	return a
}

// Solve finds the stationary phi0 of k. Numerical and configuration
// failures are reported through the session diagnostics and leave
// Success false; only context errors are returned.
func (a *Approach) Solve(ctx context.Context, k Kernel) error {
	a.Success = false
	a.Phi0 = nil
	a.Residual = math.NaN()

	if err := ctx.Err(); err != nil {
		return err
	}

	dim := k.Dim()
	if err := Check(a.Props, dim); err != nil {
		a.Props.ReportError(err)
		return nil
	}

	var (
		phi0 []float64
		err  error
	)
	method := a.Props.SolMethod.Resolve(a.Props.Symq)
	if a.Props.Mfreeq {
		phi0, err = a.solveMatrixFree(ctx, k, method)
	} else {
		phi0, err = a.solveMatrix(k, method)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		a.Props.ReportError(err)
		return nil
	}

	a.Phi0 = phi0
	a.Success = true
	return nil
}

func (a *Approach) solveMatrix(k Kernel, method config.SolMethod) ([]float64, error) {
	dim := k.Dim()
	l, err := k.Assemble()
	if err != nil {
		return nil, err
	}
	if r, c := l.Dims(); r != dim || c != dim {
		return nil, fmt.Errorf("%w: kernel is %dx%d, want %dx%d", ErrDimension, r, c, dim, dim)
	}
	norm := k.Norm()
	if len(norm) != dim {
		return nil, fmt.Errorf("%w: normalisation row has %d entries, want %d", ErrDimension, len(norm), dim)
	}

	var (
		sys *mat.Dense
		rhs *mat.VecDense
	)
	if a.Props.Symq {
		sys = mat.DenseCopyOf(l)
		sys.SetRow(a.Props.NormRow, norm)
		rhs = mat.NewVecDense(dim, nil)
		rhs.SetVec(a.Props.NormRow, 1)
	} else {
		sys = mat.NewDense(dim+1, dim, nil)
		sys.Slice(0, dim, 0, dim).(*mat.Dense).Copy(l)
		sys.SetRow(dim, norm)
		rhs = mat.NewVecDense(dim+1, nil)
		rhs.SetVec(dim, 1)
	}

	var x mat.VecDense
	if method == config.SolveLeastSquares {
		if err := leastSquares(&x, sys, rhs); err != nil {
			return nil, fmt.Errorf("%w (%s): %v", ErrSingular, method, err)
		}
	} else if err := x.SolveVec(sys, rhs); err != nil {
		return nil, fmt.Errorf("%w (%s): %v", ErrSingular, method, err)
	}
	phi0 := mat.Col(nil, 0, &x)
	if !finite(phi0) {
		return nil, fmt.Errorf("%w (%s): non-finite solution", ErrSingular, method)
	}

	var r mat.VecDense
	r.MulVec(sys, &x)
	r.SubVec(&r, rhs)
	a.Residual = mat.Norm(&r, 2)
	if method == config.SolveLeastSquares && a.Residual > a.ResidualTol {
		a.Props.ReportWarning(config.WarnLeastSquaresResidual, fmt.Sprintf(
			"WARNING: least-squares residual %.3e exceeds %.1e; the kernel equations are not satisfied exactly.",
			a.Residual, a.ResidualTol))
	}
	return phi0, nil
}

// leastSquares stores in dst the minimum-norm x minimising ||sys*x - rhs||.
// Rank-deficient systems are accepted.
func leastSquares(dst *mat.VecDense, sys *mat.Dense, rhs *mat.VecDense) error {
	var svd mat.SVD
	if !svd.Factorize(sys, mat.SVDThin) {
		return errors.New("singular value decomposition did not converge")
	}
	rank := svd.Rank(rankTol)
	if rank == 0 {
		return errors.New("system has rank zero")
	}
	svd.SolveVecTo(dst, rhs, rank)
	return nil
}

func (a *Approach) solveMatrixFree(ctx context.Context, k Kernel, method config.SolMethod) ([]float64, error) {
	backend, ok := a.registry.Get(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoBackend, method)
	}

	dim := k.Dim()
	apply, err := applier(k, dim)
	if err != nil {
		return nil, err
	}
	norm := k.Norm()
	if len(norm) != dim {
		return nil, fmt.Errorf("%w: normalisation row has %d entries, want %d", ErrDimension, len(norm), dim)
	}

	prob := Problem{
		Dim:    dim,
		RowDim: dim,
		X0:     append([]float64(nil), a.Props.Phi0Init...),
	}
	if !a.Props.Symq {
		prob.RowDim = dim + 1
	}
	symq, normRow := a.Props.Symq, a.Props.NormRow
	prob.Residual = func(dst, x []float64) {
		apply(dst[:dim], x)
		c := floats.Dot(norm, x) - 1
		if symq {
			dst[normRow] = c
		} else {
			dst[dim] = c
		}
	}

	phi0, err := backend(ctx, prob)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(phi0) != dim || !finite(phi0) {
		return nil, fmt.Errorf("%w (%s): backend returned an invalid solution", ErrSingular, method)
	}

	r := make([]float64, prob.RowDim)
	prob.Residual(r, phi0)
	a.Residual = floats.Norm(r, 2)
	if a.Residual > a.ResidualTol {
		return nil, fmt.Errorf("%w (%s): residual %.3e", ErrNotConverged, method, a.Residual)
	}
	return phi0, nil
}

func applier(k Kernel, dim int) (func(dst, x []float64), error) {
	if ap, ok := k.(Applier); ok {
		return ap.Apply, nil
	}
	l, err := k.Assemble()
	if err != nil {
		return nil, err
	}
	if r, c := l.Dims(); r != dim || c != dim {
		return nil, fmt.Errorf("%w: kernel is %dx%d, want %dx%d", ErrDimension, r, c, dim, dim)
	}
	return func(dst, x []float64) {
		mat.NewVecDense(len(dst), dst).MulVec(l, mat.NewVecDense(len(x), x))
	}, nil
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
