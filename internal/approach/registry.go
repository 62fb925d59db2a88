package approach

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/qtkern/internal/config"
)

// Problem is the residual equation handed to a matrix-free backend:
// find x with Residual(x) = 0, starting from X0.
type Problem struct {
	Dim    int
	RowDim int
	X0     []float64
	// Residual writes the RowDim residual components for x into dst.
	Residual func(dst, x []float64)
}

// MatrixFree solves a Problem without forming the kernel matrix.
type MatrixFree func(ctx context.Context, prob Problem) ([]float64, error)

type Registry struct {
	backends map[config.SolMethod]MatrixFree
}

// NewRegistry returns a registry holding the quasi-Newton backends.
func NewRegistry() *Registry {
	r := &Registry{backends: make(map[config.SolMethod]MatrixFree)}

	r.backends[config.SolveLBFGS] = minimizer(func() optimize.Method { return &optimize.LBFGS{} })
	r.backends[config.SolveBFGS] = minimizer(func() optimize.Method { return &optimize.BFGS{} })

	return r
}

func (r *Registry) Register(name config.SolMethod, fn MatrixFree) {
	r.backends[name] = fn
}

func (r *Registry) Get(name config.SolMethod) (MatrixFree, bool) {
	fn, ok := r.backends[name]
	return fn, ok
}

func (r *Registry) Names() []config.SolMethod {
	names := make([]config.SolMethod, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// minimizer solves Residual(x) = 0 by minimising half the squared residual
// norm. Gradients come from central differences, which are exact up to
// rounding for the linear kernels solved here.
func minimizer(method func() optimize.Method) MatrixFree {
	return func(ctx context.Context, prob Problem) ([]float64, error) {
		r := make([]float64, prob.RowDim)
		f := func(x []float64) float64 {
			prob.Residual(r, x)
			return 0.5 * floats.Dot(r, r)
		}
		p := optimize.Problem{
			Func: f,
			Grad: func(grad, x []float64) {
				fd.Gradient(grad, f, x, &fd.Settings{Formula: fd.Central})
			},
			Status: func() (optimize.Status, error) {
				if err := ctx.Err(); err != nil {
					return optimize.Failure, err
				}
				return optimize.NotTerminated, nil
			},
		}
		settings := &optimize.Settings{
			GradientThreshold: 1e-12,
			MajorIterations:   10000,
		}

		res, err := optimize.Minimize(p, prob.X0, settings, method())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if res == nil {
			return nil, err
		}
		// Convergence is judged by the caller from the residual.
		return res.X, nil
	}
}
