package approach_test

import (
	"bytes"
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qtkern/internal/approach"
	"github.com/san-kum/qtkern/internal/config"
	"github.com/san-kum/qtkern/internal/models"
)

type matrixKernel struct {
	l    *mat.Dense
	norm []float64
}

func (k *matrixKernel) Dim() int                      { return len(k.norm) }
func (k *matrixKernel) Assemble() (*mat.Dense, error) { return k.l, nil }
func (k *matrixKernel) Norm() []float64               { return k.norm }

func singular(n int) *matrixKernel {
	norm := make([]float64, n)
	for i := range norm {
		norm[i] = 1
	}
	return &matrixKernel{l: mat.NewDense(n, n, nil), norm: norm}
}

func session(mutate func(s *config.Settings)) (*config.Properties, *bytes.Buffer) {
	s := config.DefaultSettings()
	s.KernType = config.KernPauli
	if mutate != nil {
		mutate(s)
	}
	p := config.New(s)
	buf := &bytes.Buffer{}
	p.SetOutput(buf)
	return p, buf
}

func biased() *models.SingleLevel {
	k := models.NewSingleLevel().WithBias(1.5)
	k.Eps = 0.7
	return k
}

// stationary is the analytic solution for the single-level kernel.
func stationary(k *models.SingleLevel) []float64 {
	l, _ := k.Assemble()
	in, out := l.At(1, 0), l.At(0, 1)
	return []float64{out / (in + out), in / (in + out)}
}

var _ = Describe("Approach", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("matrix solves", func() {
		It("solves the square system with the normalisation row", func() {
			p, buf := session(nil)
			k := models.NewSingleLevel().WithBias(2)
			a := approach.New(p)

			Expect(a.Solve(ctx, k)).To(Succeed())
			Expect(a.Success).To(BeTrue())
			Expect(a.Phi0).To(HaveLen(2))
			want := stationary(k)
			Expect(a.Phi0[0]).To(BeNumerically("~", want[0], 1e-12))
			Expect(a.Phi0[1]).To(BeNumerically("~", want[1], 1e-12))
			Expect(a.Residual).To(BeNumerically("<", 1e-12))
			Expect(buf.Len()).To(BeZero())
		})

		It("gives the same answer for any norm_row", func() {
			k := models.NewSingleLevel().WithBias(-1)
			p, _ := session(func(s *config.Settings) { s.NormRow = 1 })
			a := approach.New(p)

			Expect(a.Solve(ctx, k)).To(Succeed())
			Expect(a.Phi0[1]).To(BeNumerically("~", stationary(k)[1], 1e-12))
		})

		It("solves the full system by least squares when symq=false", func() {
			p, buf := session(func(s *config.Settings) {
				s.Symq = false
				s.SolMethod = config.SolveLeastSquares
			})
			k := models.NewSingleLevel().WithBias(3)
			a := approach.New(p)

			Expect(a.Solve(ctx, k)).To(Succeed())
			Expect(a.Success).To(BeTrue())
			Expect(a.Phi0[0]).To(BeNumerically("~", stationary(k)[0], 1e-10))
			Expect(buf.Len()).To(BeZero())
		})

		It("resolves an unset solmethod to lsqr when symq=false", func() {
			p, _ := session(func(s *config.Settings) { s.Symq = false })
			a := approach.New(p)

			Expect(a.Solve(ctx, models.NewSingleLevel())).To(Succeed())
			Expect(a.Success).To(BeTrue())
		})

		It("warns once about a large least-squares residual", func() {
			p, buf := session(func(s *config.Settings) {
				s.Symq = false
				s.SolMethod = config.SolveLeastSquares
			})
			k := &matrixKernel{l: mat.NewDense(2, 2, []float64{1, 0, 0, 1}), norm: []float64{1, 1}}
			a := approach.New(p)

			Expect(a.Solve(ctx, k)).To(Succeed())
			Expect(a.Solve(ctx, k)).To(Succeed())
			Expect(a.Success).To(BeTrue())
			Expect(a.Phi0[0]).To(BeNumerically("~", 1.0/3, 1e-10))
			Expect(p.SuppressWrn(config.WarnLeastSquaresResidual)).To(BeTrue())
			Expect(strings.Count(buf.String(), "least-squares residual")).To(Equal(1))
			Expect(p.SuppressErr()).To(BeFalse())
		})

		It("returns the minimum-norm solution for decoupled sectors with lsqr", func() {
			p, buf := session(func(s *config.Settings) {
				s.Symq = false
				s.SolMethod = config.SolveLeastSquares
			})
			k := &matrixKernel{
				l: mat.NewDense(3, 3, []float64{
					-1, 1, 0,
					1, -1, 0,
					0, 0, 0,
				}),
				norm: []float64{1, 1, 1},
			}
			a := approach.New(p)

			Expect(a.Solve(ctx, k)).To(Succeed())
			Expect(a.Success).To(BeTrue())
			Expect(a.Phi0).To(HaveLen(3))
			for _, v := range a.Phi0 {
				Expect(v).To(BeNumerically("~", 1.0/3, 1e-10))
			}
			Expect(a.Residual).To(BeNumerically("<", 1e-10))
			Expect(p.SuppressErr()).To(BeFalse())
			Expect(buf.Len()).To(BeZero())
		})

		It("reports a singular kernel once across a sweep", func() {
			p, buf := session(func(s *config.Settings) {
				s.NormRow = 2
				s.SolMethod = config.SolveDirect
			})
			a := approach.New(p)

			for i := 0; i < 2; i++ {
				Expect(a.Solve(ctx, singular(3))).To(Succeed())
				Expect(a.Success).To(BeFalse())
				Expect(a.Phi0).To(BeNil())
			}
			Expect(strings.Count(buf.String(), "Could not solve")).To(Equal(1))
			Expect(p.SuppressErr()).To(BeTrue())
		})

		It("reports a kernel of the wrong size", func() {
			p, buf := session(nil)
			k := &matrixKernel{l: mat.NewDense(3, 3, nil), norm: []float64{1, 1}}
			a := approach.New(p)

			Expect(a.Solve(ctx, k)).To(Succeed())
			Expect(a.Success).To(BeFalse())
			Expect(buf.String()).To(ContainSubstring("dimension mismatch"))
		})

		It("recovers after a failure with a good kernel", func() {
			p, _ := session(nil)
			a := approach.New(p)

			Expect(a.Solve(ctx, singular(2))).To(Succeed())
			Expect(a.Success).To(BeFalse())
			Expect(a.Solve(ctx, models.NewSingleLevel())).To(Succeed())
			Expect(a.Success).To(BeTrue())
			Expect(p.SuppressErr()).To(BeTrue())
		})
	})

	Describe("configuration errors", func() {
		It("reports symq=false with solve exactly once on the first solve", func() {
			p, buf := session(func(s *config.Settings) {
				s.Symq = false
				s.SolMethod = config.SolveDirect
			})
			a := approach.New(p)

			Expect(a.Solve(ctx, models.NewSingleLevel())).To(Succeed())
			Expect(a.Success).To(BeFalse())
			Expect(p.SuppressErr()).To(BeTrue())
			Expect(buf.String()).To(ContainSubstring("solmethod"))

			Expect(a.Solve(ctx, models.NewSingleLevel())).To(Succeed())
			Expect(strings.Count(buf.String(), "Could not solve")).To(Equal(1))
		})

		It("returns context errors without reporting", func() {
			p, buf := session(nil)
			a := approach.New(p)
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			err := a.Solve(cctx, models.NewSingleLevel())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(p.SuppressErr()).To(BeFalse())
			Expect(buf.Len()).To(BeZero())
		})
	})

	Describe("matrix-free solves", func() {
		mfree := func(method config.SolMethod, phi0 []float64) func(s *config.Settings) {
			return func(s *config.Settings) {
				s.Mfreeq = true
				s.SolMethod = method
				s.Phi0Init = phi0
			}
		}

		DescribeTable("converges with the built-in backends",
			func(method config.SolMethod, symq bool) {
				p, buf := session(mfree(method, []float64{0.5, 0.5}))
				p.Symq = symq
				k := biased()
				a := approach.New(p)

				Expect(a.Solve(ctx, k)).To(Succeed())
				Expect(a.Success).To(BeTrue(), buf.String())
				want := stationary(k)
				Expect(a.Phi0[0]).To(BeNumerically("~", want[0], 1e-5))
				Expect(a.Phi0[1]).To(BeNumerically("~", want[1], 1e-5))
			},
			Entry("lbfgs, symq", config.SolveLBFGS, true),
			Entry("bfgs, symq", config.SolveBFGS, true),
			Entry("lbfgs, full system", config.SolveLBFGS, false),
		)

		It("uses the assembled matrix when the kernel cannot apply itself", func() {
			p, _ := session(mfree(config.SolveLBFGS, []float64{1, 0}))
			k := models.NewSingleLevel()
			l, _ := k.Assemble()
			a := approach.New(p)

			Expect(a.Solve(ctx, &matrixKernel{l: l, norm: k.Norm()})).To(Succeed())
			Expect(a.Success).To(BeTrue())
			Expect(a.Phi0[0]).To(BeNumerically("~", stationary(k)[0], 1e-5))
		})

		It("accepts krylov with a sized initial guess", func() {
			p, _ := session(mfree(config.SolveKrylov, []float64{0.5, 0.5}))
			Expect(approach.Check(p, 2)).To(Succeed())
		})

		It("reports a matrix-free method with no backend", func() {
			p, buf := session(mfree(config.SolveKrylov, []float64{0.5, 0.5}))
			a := approach.New(p)

			Expect(a.Solve(ctx, models.NewSingleLevel())).To(Succeed())
			Expect(a.Success).To(BeFalse())
			Expect(buf.String()).To(ContainSubstring("no matrix-free backend"))
		})

		It("dispatches to registered backends", func() {
			p, buf := session(mfree(config.SolveKrylov, []float64{0.5, 0.5}))
			reg := approach.NewRegistry()
			lbfgs, ok := reg.Get(config.SolveLBFGS)
			Expect(ok).To(BeTrue())
			called := 0
			reg.Register(config.SolveKrylov, func(ctx context.Context, prob approach.Problem) ([]float64, error) {
				called++
				return lbfgs(ctx, prob)
			})
			a := approach.New(p).WithRegistry(reg)

			Expect(a.Solve(ctx, models.NewSingleLevel())).To(Succeed())
			Expect(a.Success).To(BeTrue())
			Expect(called).To(Equal(1))
			Expect(buf.Len()).To(BeZero())
			Expect(reg.Names()).To(ContainElements(config.SolveKrylov, config.SolveLBFGS, config.SolveBFGS))
		})

		It("reports a backend that does not converge", func() {
			p, buf := session(mfree(config.SolveKrylov, []float64{0.5, 0.5}))
			reg := approach.NewRegistry()
			reg.Register(config.SolveKrylov, func(ctx context.Context, prob approach.Problem) ([]float64, error) {
				return prob.X0, nil
			})
			a := approach.New(p).WithRegistry(reg)

			Expect(a.Solve(ctx, biased())).To(Succeed())
			Expect(a.Success).To(BeFalse())
			Expect(buf.String()).To(ContainSubstring("did not converge"))
		})
	})
})
