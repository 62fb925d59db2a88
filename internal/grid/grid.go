// Package grid builds the energy grid used by the 2vN approach: the base
// grid across the lead band, its extension beyond the bandedges, and the
// cached FFT kernel for the Hilbert transform on the extended grid.
package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/qtkern/internal/config"
)

const snapTol = 1e-9

// MaxPoints bounds the length of any grid built here.
const MaxPoints = 1 << 24

// Base returns kpnt equally spaced points across [-dband, dband] and
// records the bandedges in p.
func Base(p *config.Properties) ([]float64, error) {
	if p.Kpnt == nil || p.DBand == nil {
		return nil, ErrUnset
	}
	if *p.Kpnt < 2 {
		return nil, ErrTooSmall
	}
	if *p.Kpnt > MaxPoints {
		return nil, fmt.Errorf("%w: kpnt=%d", ErrTooLarge, *p.Kpnt)
	}
	if *p.DBand <= 0 {
		return nil, ErrBandwidth
	}
	d := *p.DBand
	ek := floats.Span(make([]float64, *p.Kpnt), -d, d)
	p.Dmin, p.Dmax = ek[0], ek[len(ek)-1]
	return ek, nil
}

// Extend widens the uniform grid ek so that it also covers every energy
// difference between the many-body states in energies, scaled by ExtFct
// about the band centre. It writes Dmin, Dmax, Emin, Emax, KpntLeft and
// KpntRight to p and returns the extended grid.
//
// An ExtFct below one cannot guarantee coverage; it is reported once and
// treated as one.
func Extend(p *config.Properties, ek []float64, energies []float64) ([]float64, error) {
	if len(ek) < 2 {
		return nil, ErrTooSmall
	}
	dmin, dmax := ek[0], ek[len(ek)-1]
	dx := ek[1] - ek[0]
	if dx <= 0 {
		return nil, fmt.Errorf("grid: non-increasing grid step %g", dx)
	}
	ext := p.ExtFct
	if ext < 1 {
		p.ReportWarning(config.WarnExtFct, fmt.Sprintf(
			"WARNING: ext_fct=%g is below 1 and cannot cover the bandedges; using 1.", ext))
		ext = 1
	}

	span := 0.0
	if len(energies) > 0 {
		span = floats.Max(energies) - floats.Min(energies)
	}
	c := (dmin + dmax) / 2
	lo := c + ext*(dmin-span-c)
	hi := c + ext*(dmax+span-c)

	kl, okl := stepsOver(dmin-lo, dx)
	kr, okr := stepsOver(hi-dmax, dx)
	if !okl || !okr || kl+len(ek)+kr > MaxPoints {
		return nil, fmt.Errorf("%w: range [%g, %g] at step %g", ErrTooLarge, lo, hi, dx)
	}

	p.Dmin, p.Dmax = dmin, dmax
	p.KpntLeft, p.KpntRight = kl, kr
	p.Emin = dmin - float64(kl)*dx
	p.Emax = dmax + float64(kr)*dx

	out := make([]float64, 0, kl+len(ek)+kr)
	for i := kl; i > 0; i-- {
		out = append(out, dmin-float64(i)*dx)
	}
	out = append(out, ek...)
	for i := 1; i <= kr; i++ {
		out = append(out, dmax+float64(i)*dx)
	}
	return out, nil
}

// Size is the length of the extended grid described by p for a base grid
// of n points.
func Size(p *config.Properties, n int) int {
	return p.KpntLeft + n + p.KpntRight
}

// stepsOver is the number of dx steps needed to cover width. It reports
// false when the count is not finite or exceeds MaxPoints.
func stepsOver(width, dx float64) (int, bool) {
	n := math.Ceil(width/dx - snapTol)
	if math.IsNaN(n) || n > MaxPoints {
		return 0, false
	}
	if n <= 0 {
		return 0, true
	}
	return int(n), true
}
