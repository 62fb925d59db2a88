// Package sweep solves a family of kernels over a range of one parameter.
//
// A sequential sweep reuses a single session, so every diagnostic class is
// printed at most once for the whole sweep. A parallel sweep gives every
// point its own session; sessions are never shared between goroutines.
package sweep

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/qtkern/internal/approach"
	"github.com/san-kum/qtkern/internal/config"
	"github.com/san-kum/qtkern/internal/diag"
)

// Build returns the kernel for one parameter value.
type Build func(value float64) (approach.Kernel, error)

// Observable derives a scalar, such as a current, from a solved point.
type Observable func(k approach.Kernel, phi0 []float64) float64

type Result struct {
	Value      float64
	Success    bool
	Phi0       []float64
	Residual   float64
	Observable float64
	Diag       diag.Snapshot
}

type Sweep struct {
	values  []float64
	build   Build
	observe Observable
	workers int
}

func New(values []float64, build Build) *Sweep {
	return &Sweep{values: values, build: build}
}

func (s *Sweep) WithObservable(fn Observable) *Sweep {
	s.observe = fn
	return s
}

// WithWorkers bounds the goroutines of a parallel sweep; n <= 0 means one
// goroutine per point.
func (s *Sweep) WithWorkers(n int) *Sweep {
	s.workers = n
	return s
}

// Sequential solves every point with the single session p.
func (s *Sweep) Sequential(ctx context.Context, p *config.Properties) ([]Result, error) {
	a := approach.New(p)
	results := make([]Result, len(s.values))
	for i, v := range s.values {
		res, err := s.solve(ctx, a, v)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

// Parallel solves every point with a fresh session from newProps.
func (s *Sweep) Parallel(ctx context.Context, newProps func() *config.Properties) ([]Result, error) {
	results := make([]Result, len(s.values))

	g, gctx := errgroup.WithContext(ctx)
	if s.workers > 0 {
		g.SetLimit(s.workers)
	}
	for i, v := range s.values {
		i, v := i, v
		g.Go(func() error {
			res, err := s.solve(gctx, approach.New(newProps()), v)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Sweep) solve(ctx context.Context, a *approach.Approach, v float64) (Result, error) {
	k, err := s.build(v)
	if err != nil {
		return Result{}, fmt.Errorf("sweep: build kernel at %g: %w", v, err)
	}
	if err := a.Solve(ctx, k); err != nil {
		return Result{}, err
	}

	res := Result{
		Value:    v,
		Success:  a.Success,
		Phi0:     a.Phi0,
		Residual: a.Residual,
		Diag:     a.Props.Snapshot(),
	}
	if a.Success && s.observe != nil {
		res.Observable = s.observe(k, a.Phi0)
	}
	return res, nil
}

// Succeeded counts the points that produced a solution.
func Succeeded(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}

// Linspace returns n values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
