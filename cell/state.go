package cell

import (
	"fmt"

	"github.com/notargets/P2DCell/tables"
	"github.com/notargets/P2DCell/utils"
)

// InitialConditions describe a cell at rest
type InitialConditions struct {
	Ce     float64 // Uniform electrolyte concentration [mol/m^3]
	XA, XC float64 // Solid stoichiometry of each electrode
	T      float64 // Temperature [K], zero means the model temperature
	PhiE   float64 // Electrolyte potential, zero is the consistent reference
}

// DefaultInitialConditions is a charged cell at 1100 mol/m^3
func DefaultInitialConditions() InitialConditions {
	return InitialConditions{Ce: 1100, XA: 0.8, XC: 0.37}
}

// InitialState builds y0 and yd0 for ic. Fluxes are zero and each solid
// potential sits at its open circuit potential, so y0 is consistent when no
// current is applied.
func (model *Model) InitialState(ic InitialConditions) (y0, yd0 []float64, err error) {
	if !(ic.Ce > 0) {
		return nil, nil, fmt.Errorf("initial electrolyte concentration %g must be positive", ic.Ce)
	}
	if ic.T == 0 {
		ic.T = model.T0
	}
	sl := model.layout
	y0 = make([]float64, sl.Len())
	yd0 = make([]float64, sl.Len())

	fill(sl.Segment(y0, utils.Ce), ic.Ce)
	fill(sl.Segment(y0, utils.PhiE), ic.PhiE)
	sl.Segment(y0, utils.Temp)[0] = ic.T
	for _, s := range []struct {
		e       *electrode
		x       float64
		cs, phi utils.Segment
	}{
		{model.an, ic.XA, utils.Csa, utils.PhiSA},
		{model.ca, ic.XC, utils.Csc, utils.PhiSC},
	} {
		u, err := s.e.ocp.Value(s.x)
		if err != nil {
			return nil, nil, fmt.Errorf("%s initial potential: %w",
				s.e.name, tables.WithSource(err, tables.Kinetics))
		}
		fill(sl.Segment(y0, s.cs), s.x*s.e.csMax)
		fill(sl.Segment(y0, s.phi), u+ic.PhiE)
	}
	return
}

// Diagnostics are the derived outputs of one state
type Diagnostics struct {
	Voltage float64
	OCV     float64 // Difference of the mean open circuit potentials
	Qin     float64 // Heat generation [W/m^2]
	Qout    float64 // Convective loss [W/m^2]

	// Zero when no current is applied
	Resistance  float64 // (OCV - V)/I [Ohm]
	HeatPerAmp2 float64 // Qin/i_app^2

	// Integrated reaction current of each electrode [A/m^2], +i_app and
	// -i_app at a converged state
	CurrentA, CurrentC float64

	Heat *HeatSource
}

// Diagnostics evaluates the outputs of state y
func (model *Model) Diagnostics(y []float64) (d *Diagnostics, err error) {
	if err = model.checkState(y, nil); err != nil {
		return nil, err
	}
	ec, err := model.evaluate(y)
	if err != nil {
		return nil, err
	}
	d = &Diagnostics{
		Qin:  ec.Heat.Total,
		Qout: ec.QOut,
		OCV:  ec.Heat.UMeanC - ec.Heat.UMeanA,
		Heat: ec.Heat,
	}
	if d.Voltage, err = model.Voltage(y); err != nil {
		return nil, err
	}
	sl := model.layout
	ja, jc := sl.Segment(y, utils.Ja), sl.Segment(y, utils.Jc)
	for i, j := range ja {
		d.CurrentA += model.an.cr[i] * j
	}
	for i, j := range jc {
		d.CurrentC += model.ca.cr[i] * j
	}
	if model.iApp != 0 {
		d.Resistance = (d.OCV - d.Voltage) / (model.iApp * model.p.CoatedArea)
		d.HeatPerAmp2 = d.Qin / (model.iApp * model.iApp)
	}
	return
}

// Limits are the stop conditions of a discharge
type Limits struct {
	VCut         float64
	CeMin, CeMax float64
}

// DefaultLimits stops at 3 V or when ce leaves [100, 3000] mol/m^3
func DefaultLimits() Limits {
	return Limits{VCut: 3.0, CeMin: 100, CeMax: 3000}
}

// CheckLimits returns an error wrapping ErrVoltageCutoff or
// ErrConcentrationLimit when y violates lim
func (model *Model) CheckLimits(y []float64, lim Limits) error {
	v, err := model.Voltage(y)
	if err != nil {
		return err
	}
	if v < lim.VCut {
		return fmt.Errorf("voltage %.4f V < %.4f V: %w", v, lim.VCut, ErrVoltageCutoff)
	}
	for i, c := range model.layout.Segment(y, utils.Ce) {
		if c < lim.CeMin || c > lim.CeMax {
			return fmt.Errorf("ce[%d] = %g outside [%g, %g]: %w",
				i, c, lim.CeMin, lim.CeMax, ErrConcentrationLimit)
		}
	}
	return nil
}

func fill(v []float64, x float64) {
	for i := range v {
		v[i] = x
	}
}
