package config

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/qtkern/internal/diag"
)

const (
	DefaultKernType   = Kern2vN
	DefaultNormRow    = 0
	DefaultIType      = ITypeQuad
	DefaultDqawcLimit = 10000
	DefaultExtFct     = 1.1
)

// Warning slots raised by the solving path. Every Properties gets one
// diagnostic slot per kind.
const (
	WarnLeastSquaresResidual = iota
	WarnExtFct
	WarnKernelRebuilt
	NumWarnings
)

// Settings holds the caller-chosen part of a solver configuration.
//
// The zero value is not the default configuration; start from
// DefaultSettings and override fields.
type Settings struct {
	KernType   KernType  `yaml:"kerntype"`
	Symq       bool      `yaml:"symq"`
	NormRow    int       `yaml:"norm_row"`
	SolMethod  SolMethod `yaml:"solmethod,omitempty"`
	IType      IType     `yaml:"itype"`
	DqawcLimit int       `yaml:"dqawc_limit"`
	Mfreeq     bool      `yaml:"mfreeq"`
	Phi0Init   []float64 `yaml:"phi0_init,omitempty"`
	MTypeQD    MType     `yaml:"mtype_qd"`
	MTypeLeads MType     `yaml:"mtype_leads"`
	Kpnt       *int      `yaml:"kpnt,omitempty"`
	DBand      *float64  `yaml:"dband,omitempty"`
	ExtFct     float64   `yaml:"ext_fct"`
}

func DefaultSettings() *Settings {
	return &Settings{
		KernType:   DefaultKernType,
		Symq:       true,
		NormRow:    DefaultNormRow,
		IType:      DefaultIType,
		DqawcLimit: DefaultDqawcLimit,
		MTypeQD:    Real,
		MTypeLeads: Complex,
		ExtFct:     DefaultExtFct,
	}
}

// Clone returns a deep copy of s.
func (s *Settings) Clone() *Settings {
	c := *s
	if s.Phi0Init != nil {
		c.Phi0Init = make([]float64, len(s.Phi0Init))
		copy(c.Phi0Init, s.Phi0Init)
	}
	if s.Kpnt != nil {
		k := *s.Kpnt
		c.Kpnt = &k
	}
	if s.DBand != nil {
		d := *s.DBand
		c.DBand = &d
	}
	return &c
}

// Properties is the configuration of one solver session: the caller's
// Settings, the working fields the solver writes back, and the diagnostic
// policy for the session.
//
// Properties is shared by pointer between the caller and a single solving
// path. Concurrent solves need separate instances.
type Properties struct {
	Settings

	// Extension of the 2vN energy grid on either side of the band.
	KpntLeft  int
	KpntRight int
	// Cached FFT kernel for the Hilbert transform on the extended grid.
	HTKer []complex128

	// Extended grid bounds; Emin <= Dmin and Emax >= Dmax once computed.
	Emin, Emax float64
	// Bandedges of the lead electrons.
	Dmin, Dmax float64

	*diag.Policy
}

// New builds a session from s. Derived fields start at zero and the
// diagnostic flags start cleared. Nothing is validated here; inconsistent
// settings surface when a solve is attempted.
func New(s *Settings) *Properties {
	if s == nil {
		s = DefaultSettings()
	}
	return &Properties{
		Settings: *s.Clone(),
		Policy:   diag.New(os.Stdout, NumWarnings),
	}
}

func Default() *Properties {
	return New(DefaultSettings())
}

// ResetGrid clears the derived grid fields and the Hilbert kernel cache.
// Diagnostic flags are not affected.
func (p *Properties) ResetGrid() {
	p.KpntLeft, p.KpntRight = 0, 0
	p.HTKer = nil
	p.Emin, p.Emax = 0, 0
	p.Dmin, p.Dmax = 0, 0
}

// policy returns the session's diagnostic policy, creating one on stdout
// for a Properties that was not built with New.
func (p *Properties) policy() *diag.Policy {
	if p.Policy == nil {
		p.Policy = diag.New(os.Stdout, NumWarnings)
	}
	return p.Policy
}

func (p *Properties) ReportError(cause error) { p.policy().ReportError(cause) }

func (p *Properties) ReportWarning(i int, message string) { p.policy().ReportWarning(i, message) }

func (p *Properties) SuppressErr() bool { return p.policy().SuppressErr() }

func (p *Properties) SuppressWrn(i int) bool { return p.policy().SuppressWrn(i) }

func (p *Properties) Slots() int { return p.policy().Slots() }

func (p *Properties) SetOutput(out io.Writer) { p.policy().SetOutput(out) }

func (p *Properties) Snapshot() diag.Snapshot { return p.policy().Snapshot() }

func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML on top of DefaultSettings.
func Parse(data []byte) (*Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

func Save(path string, s *Settings) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func Marshal(s *Settings) ([]byte, error) {
	return yaml.Marshal(s)
}

func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
