package models

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SingleLevel is the Pauli kernel of a spinless level coupled to a left
// and a right lead. The state vector is (P_empty, P_occupied).
type SingleLevel struct {
	Eps    float64
	GammaL float64
	GammaR float64
	MuL    float64
	MuR    float64
	Temp   float64
}

func NewSingleLevel() *SingleLevel {
	return &SingleLevel{
		Eps:    0.0,
		GammaL: 0.5,
		GammaR: 0.5,
		MuL:    0.5,
		MuR:    -0.5,
		Temp:   1.0,
	}
}

// WithBias returns a copy with the bias vb split symmetrically.
func (s *SingleLevel) WithBias(vb float64) *SingleLevel {
	c := *s
	c.MuL, c.MuR = vb/2, -vb/2
	return &c
}

func (s *SingleLevel) Dim() int {
	return 2
}

func (s *SingleLevel) rates() (in, out float64) {
	fl := fermi(s.Eps-s.MuL, s.Temp)
	fr := fermi(s.Eps-s.MuR, s.Temp)
	in = s.GammaL*fl + s.GammaR*fr
	out = s.GammaL*(1-fl) + s.GammaR*(1-fr)
	return in, out
}

func (s *SingleLevel) Assemble() (*mat.Dense, error) {
	in, out := s.rates()
	return mat.NewDense(2, 2, []float64{
		-in, out,
		in, -out,
	}), nil
}

func (s *SingleLevel) Apply(dst, phi0 []float64) {
	in, out := s.rates()
	dst[0] = -in*phi0[0] + out*phi0[1]
	dst[1] = in*phi0[0] - out*phi0[1]
}

func (s *SingleLevel) Norm() []float64 {
	return []float64{1, 1}
}

// Current is the particle current out of the left lead for the state phi0.
func (s *SingleLevel) Current(phi0 []float64) float64 {
	fl := fermi(s.Eps-s.MuL, s.Temp)
	return s.GammaL * (fl*phi0[0] - (1-fl)*phi0[1])
}

// Energies returns the many-body energies (empty, occupied).
func (s *SingleLevel) Energies() []float64 {
	return []float64{0, s.Eps}
}

func fermi(x, temp float64) float64 {
	if temp <= 0 {
		switch {
		case x < 0:
			return 1
		case x > 0:
			return 0
		}
		return 0.5
	}
	return 1 / (1 + math.Exp(x/temp))
}
