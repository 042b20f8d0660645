package cell

import (
	"fmt"
	"math"

	"github.com/notargets/P2DCell/tables"
)

// ElectrodeKinetics is the Butler-Volmer state of one electrode
type ElectrodeKinetics struct {
	Css []float64 // Surface concentration
	U   []float64 // Open circuit potential at Css
	DU  []float64 // dU/dCss
	Eta []float64 // Overpotential

	// Rate coefficient 2*i0/F*sqrt(ce/ceNom*(1-x)*x) and its partials
	Cio      []float64
	DCioDCe  []float64
	DCioDCss []float64
	DCioDT   []float64
}

// Kinetics holds both electrodes
type Kinetics struct {
	A, C ElectrodeKinetics
}

// EtaUref computes surface concentrations, open circuit potentials and
// overpotentials. phiE is the full electrolyte potential.
func (model *Model) EtaUref(csa, csc, ja, jc, phiSA, phiSC, phiE []float64) (k *Kinetics, err error) {
	k = &Kinetics{}
	if k.A, err = model.an.etaUref(csa, ja, phiSA, phiE); err != nil {
		return nil, err
	}
	if k.C, err = model.ca.etaUref(csc, jc, phiSC, phiE); err != nil {
		return nil, err
	}
	return
}

func (e *electrode) etaUref(cs, j, phiS, phiE []float64) (ek ElectrodeKinetics, err error) {
	ek = ElectrodeKinetics{
		Css: make([]float64, e.n),
		U:   make([]float64, e.n),
		DU:  make([]float64, e.n),
		Eta: make([]float64, e.n),
	}
	for i := 0; i < e.n; i++ {
		ek.Css[i] = cs[i] + e.dcs[i]*j[i]
		u, du, err := e.ocp.Eval(ek.Css[i] / e.csMax)
		if err != nil {
			return ek, fmt.Errorf("%s open circuit potential: %w",
				e.name, tables.WithSource(err, tables.Kinetics))
		}
		ek.U[i] = u
		ek.DU[i] = du / e.csMax
		ek.Eta[i] = phiS[i] - phiE[e.start+i] - u
	}
	return
}

// UpdateRateCoefficient refreshes the rate coefficients of k from the
// exchange current tables at the state's ce and T
func (model *Model) UpdateRateCoefficient(k *Kinetics, ce []float64, T float64) error {
	if err := model.an.rateCoefficient(&k.A, ce, T, model.p); err != nil {
		return err
	}
	return model.ca.rateCoefficient(&k.C, ce, T, model.p)
}

func (e *electrode) rateCoefficient(ek *ElectrodeKinetics, ce []float64, T float64, p Parameters) error {
	x := make([]float64, e.n)
	for i := range x {
		x[i] = ek.Css[i] / e.csMax
	}
	io, dx, dT, err := e.io.EvalMany(x, T)
	if err != nil {
		return fmt.Errorf("%s exchange current: %w", e.name, tables.WithSource(err, tables.Kinetics))
	}
	ek.Cio = make([]float64, e.n)
	ek.DCioDCe = make([]float64, e.n)
	ek.DCioDCss = make([]float64, e.n)
	ek.DCioDT = make([]float64, e.n)
	for i := 0; i < e.n; i++ {
		c := ce[e.start+i]
		rad := c / p.CeNom * (1 - x[i]) * x[i]
		if !(rad > 0) {
			return fmt.Errorf("%s node %d: ce=%g, x=%g give no exchange current: %w",
				e.name, i, c, x[i], ErrNonConvergent)
		}
		s := math.Sqrt(rad)
		ek.Cio[i] = 2 * io[i] / p.F * s
		ek.DCioDCe[i] = ek.Cio[i] / (2 * c)
		dsdx := c / p.CeNom * (1 - 2*x[i]) / (2 * s)
		ek.DCioDCss[i] = 2 / p.F * (dx[i]*s + io[i]*dsdx) / e.csMax
		ek.DCioDT[i] = 2 / p.F * dT[i] * s
	}
	return nil
}

// ReactionFlux returns the Butler-Volmer fluxes C_io*sinh(0.5F/(RT)*eta)
func (model *Model) ReactionFlux(k *Kinetics, T float64) (ja, jc []float64) {
	b := model.bvFactor(T)
	return k.A.flux(b), k.C.flux(b)
}

func (model *Model) bvFactor(T float64) float64 {
	return 0.5 * model.p.F / (model.p.R * T)
}

func (ek *ElectrodeKinetics) flux(b float64) (j []float64) {
	j = make([]float64, len(ek.Eta))
	for i, eta := range ek.Eta {
		j[i] = ek.Cio[i] * math.Sinh(b*eta)
	}
	return
}
