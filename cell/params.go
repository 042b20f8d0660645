package cell

import (
	"fmt"

	"github.com/notargets/P2DCell/tables"
)

// Parameters holds the material and geometry constants of a cell sandwich.
// Indices A, S and C refer to the anode, separator and cathode.
type Parameters struct {
	// Porosity (electrolyte volume fraction) and Bruggeman exponents
	EpsA, EpsS, EpsC    float64
	BrugA, BrugS, BrugC float64

	TPlus float64 // Cation transference number
	F     float64 // Faraday constant [C/mol]
	R     float64 // Gas constant [J/mol-K]

	// Solid phase
	RpA, RpC       float64 // Particle radius [m]
	SigA, SigC     float64 // Bulk electronic conductivity [S/m]
	DsA, DsC       float64 // Solid diffusivity at DsRefTemp [m^2/s]
	EaDsA, EaDsC   float64 // Solid diffusivity activation energy [J/mol]
	DsRefTemp      float64 // [K]
	CsMaxA, CsMaxC float64 // Maximum solid concentration [mol/m^3]
	CeNom          float64 // Nominal electrolyte concentration for kinetics [mol/m^3]

	// Thermal and units
	KappaScale   float64 // Conductivity table units to S/m
	ArealDensity float64 // Density per coated area per thickness [kg/m^3]
	H            float64 // Convection coefficient [W/m^2-K]
	AConv        float64 // Convection to coated area ratio
	Cp           float64 // Specific heat capacity [J/kg-K]
	CoatedArea   float64 // [m^2]
}

// DefaultParameters returns the reference cell
func DefaultParameters() Parameters {
	return Parameters{
		EpsA:         0.25,
		EpsS:         0.5,
		EpsC:         0.2,
		BrugA:        1.2,
		BrugS:        0.5,
		BrugC:        0.5,
		TPlus:        0.43,
		F:            96485.0,
		R:            8.314,
		RpA:          12.0e-6,
		RpC:          6.5e-6,
		SigA:         100.,
		SigC:         40.,
		DsA:          1e-12,
		DsC:          1e-14,
		DsRefTemp:    298.25,
		CsMaxA:       30555.0,
		CsMaxC:       51554.0,
		CeNom:        1000.0,
		KappaScale:   0.1, // mS/cm
		ArealDensity: 2250.,
		H:            100.0,
		AConv:        30.,
		Cp:           1200.,
		CoatedArea:   1.0,
	}
}

// Validate checks the parameters are physically meaningful
func (p *Parameters) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"EpsA", p.EpsA}, {"EpsS", p.EpsS}, {"EpsC", p.EpsC},
	} {
		if !(f.v > 0 && f.v < 1) {
			return fmt.Errorf("%s = %g must lie in (0, 1)", f.name, f.v)
		}
	}
	if !(p.TPlus >= 0 && p.TPlus < 1) {
		return fmt.Errorf("TPlus = %g must lie in [0, 1)", p.TPlus)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"F", p.F}, {"R", p.R}, {"RpA", p.RpA}, {"RpC", p.RpC},
		{"SigA", p.SigA}, {"SigC", p.SigC}, {"DsA", p.DsA}, {"DsC", p.DsC},
		{"DsRefTemp", p.DsRefTemp}, {"CsMaxA", p.CsMaxA}, {"CsMaxC", p.CsMaxC},
		{"CeNom", p.CeNom}, {"KappaScale", p.KappaScale},
		{"ArealDensity", p.ArealDensity}, {"Cp", p.Cp}, {"CoatedArea", p.CoatedArea},
	} {
		if !(f.v > 0) {
			return fmt.Errorf("%s = %g must be positive", f.name, f.v)
		}
	}
	if p.H < 0 || p.AConv < 0 {
		return fmt.Errorf("convection H = %g, AConv = %g must be non-negative", p.H, p.AConv)
	}
	return nil
}

// Tables holds the tabulated property maps of a cell. Surfaces take the
// concentration or stoichiometry first and temperature second.
type Tables struct {
	De        *tables.Surface // Electrolyte diffusivity (ce, T) [m^2/s]
	Kappa     *tables.Surface // Electrolyte conductivity (ce, T), KappaScale units
	IoAnode   *tables.Surface // Exchange current density (x, T) [A/m^2]
	IoCathode *tables.Surface
	UAnode    *tables.Curve // Open circuit potential (x) [V]
	UCathode  *tables.Curve
}

// Validate checks that every table is present
func (t *Tables) Validate() error {
	if t == nil {
		return fmt.Errorf("no tables")
	}
	for _, s := range []struct {
		name string
		s    *tables.Surface
	}{
		{"De", t.De}, {"Kappa", t.Kappa}, {"IoAnode", t.IoAnode}, {"IoCathode", t.IoCathode},
	} {
		if s.s == nil {
			return fmt.Errorf("missing %s table", s.name)
		}
	}
	for _, c := range []struct {
		name string
		c    *tables.Curve
	}{
		{"UAnode", t.UAnode}, {"UCathode", t.UCathode},
	} {
		if c.c == nil {
			return fmt.Errorf("missing %s table", c.name)
		}
	}
	return nil
}
