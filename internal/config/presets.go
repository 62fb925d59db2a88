package config

import "sort"

var Presets = map[string]*Settings{
	"pauli-wideband": {
		KernType: KernPauli, Symq: true, IType: ITypeWideBand, DqawcLimit: DefaultDqawcLimit,
		MTypeQD: Real, MTypeLeads: Complex, ExtFct: DefaultExtFct,
	},
	"1vN-digamma": {
		KernType: Kern1vN, Symq: true, IType: ITypeDigamma, DqawcLimit: DefaultDqawcLimit,
		MTypeQD: Real, MTypeLeads: Complex, ExtFct: DefaultExtFct,
	},
	"redfield-quad": {
		KernType: KernRedfield, Symq: true, IType: ITypeQuad, DqawcLimit: DefaultDqawcLimit,
		MTypeQD: Real, MTypeLeads: Complex, ExtFct: DefaultExtFct,
	},
	"2vN": {
		KernType: Kern2vN, Symq: true, IType: ITypeQuad, DqawcLimit: DefaultDqawcLimit,
		MTypeQD: Real, MTypeLeads: Complex, ExtFct: DefaultExtFct,
		Kpnt: IntPtr(256), DBand: FloatPtr(60),
	},
	"lsqr": {
		KernType: KernPauli, Symq: false, SolMethod: SolveLeastSquares, IType: ITypeNoPrincipal,
		DqawcLimit: DefaultDqawcLimit, MTypeQD: Real, MTypeLeads: Complex, ExtFct: DefaultExtFct,
	},
	// Initial guess sized for a single level (empty, occupied).
	"mfree": {
		KernType: KernPauli, Symq: true, SolMethod: SolveLBFGS, Mfreeq: true, IType: ITypeNoPrincipal,
		Phi0Init:   []float64{0.5, 0.5},
		DqawcLimit: DefaultDqawcLimit, MTypeQD: Real, MTypeLeads: Complex, ExtFct: DefaultExtFct,
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Settings {
	s, ok := Presets[name]
	if !ok {
		return nil
	}
	return s.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
