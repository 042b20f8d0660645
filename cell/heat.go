package cell

import (
	"fmt"

	"github.com/notargets/P2DCell/tables"
	"github.com/notargets/P2DCell/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// HeatSensitivity is the gradient of the total heat rate with respect to
// each state segment
type HeatSensitivity struct {
	Pe, Pa, Pc []float64 // Potentials
	Na, Nc     []float64 // Reaction weights C_r*j, the potential parts of Pa, Pc and -Pe
	Ja, Jc     []float64
	Ce         []float64
	Csa, Csc   []float64
	T          float64
}

// HeatSource is the integrated heat generation [W/m^2] split by mechanism
type HeatSource struct {
	Rxn   float64 // Reaction (overpotential) heat
	Conc  float64 // Concentration overpotential heat, against the mean OCP
	OhmE  float64 // Electrolyte ohmic and diffusion potential heat
	OhmS  float64 // Solid ohmic heat
	Total float64

	UMeanA, UMeanC float64 // OCP at the mean bulk solid concentrations

	Sens HeatSensitivity
}

// Heat integrates the heat sources of state y. k must come from EtaUref on
// the same state and kappa from the conductivity at the same ce and T.
func (model *Model) Heat(y []float64, k *Kinetics, kappa TransportField) (hs *HeatSource, err error) {
	sl := model.layout
	var (
		ce  = sl.Segment(y, utils.Ce)
		csa = sl.Segment(y, utils.Csa)
		csc = sl.Segment(y, utils.Csc)
		ja  = sl.Segment(y, utils.Ja)
		jc  = sl.Segment(y, utils.Jc)
		pe  = sl.Segment(y, utils.PhiE)
		pa  = sl.Segment(y, utils.PhiSA)
		pc  = sl.Segment(y, utils.PhiSC)
		T   = sl.Segment(y, utils.Temp)[0]
	)
	N := model.mesh.N
	vols := model.mesh.Vols
	gam := model.gamma(T)

	hs = &HeatSource{}
	sens := &hs.Sens

	// Reaction and concentration heat, with the dependence on css cancelling
	// in their sum: C_r*j*(phi_s - phi_e - Umean)
	var dUmA, dUmC float64
	if hs.UMeanA, dUmA, err = model.an.meanOCP(csa); err != nil {
		return nil, err
	}
	if hs.UMeanC, dUmC, err = model.ca.meanOCP(csc); err != nil {
		return nil, err
	}
	hs.Rxn, hs.Conc = model.an.reactionHeat(ja, &k.A, hs.UMeanA)
	rc, cc := model.ca.reactionHeat(jc, &k.C, hs.UMeanC)
	hs.Rxn += rc
	hs.Conc += cc

	sens.Na, sens.Ja = model.an.reactionSens(ja, &k.A, hs.UMeanA)
	sens.Nc, sens.Jc = model.ca.reactionSens(jc, &k.C, hs.UMeanC)
	sens.Csa = model.an.meanSens(sens.Na, dUmA)
	sens.Csc = model.ca.meanSens(sens.Nc, dUmC)

	// Solid ohmic heat, sum vol*sig*(G*phi_s)^2
	var pSens []float64
	hs.OhmS, pSens = model.an.ohmicHeat(pa)
	sens.Pa = pSens
	floats.Add(sens.Pa, sens.Na)
	ohm, pSens := model.ca.ohmicHeat(pc)
	hs.OhmS += ohm
	sens.Pc = pSens
	floats.Add(sens.Pc, sens.Nc)

	// Electrolyte ohmic heat, sum vol*k*gphi^2 + vol*gam*k*gphi*gce/ce
	gP := mulVec(model.g, pe)
	gC := mulVec(model.g, ce)
	Kn, KnC, KnT := kappa.Node, kappa.DNodeC, kappa.DNodeT
	wP := make([]float64, N) // d/d(gphi)
	wC := make([]float64, N) // d/d(gce)
	sens.Ce = make([]float64, N)
	for i := 0; i < N; i++ {
		v, kap, g, gc, c := vols[i], Kn[i], gP[i], gC[i], ce[i]
		hs.OhmE += v*kap*g*g + v*gam*kap*gc*g/c
		wP[i] = 2*v*kap*g + v*gam*kap*gc/c
		wC[i] = v * gam * kap * g / c
		sens.Ce[i] = v*KnC[i]*g*g + v*gam*KnC[i]*gc*g/c - v*gam*kap*g*gc/(c*c)
		sens.T += v*KnT[i]*g*g + v*(gam/T)*kap*gc*g/c + v*gam*KnT[i]*gc*g/c
	}
	sens.Pe = mulTransVec(model.g, wP)
	for i := 0; i < model.an.n; i++ {
		sens.Pe[model.an.start+i] -= sens.Na[i]
	}
	for i := 0; i < model.ca.n; i++ {
		sens.Pe[model.ca.start+i] -= sens.Nc[i]
	}
	floats.Add(sens.Ce, mulTransVec(model.g, wC))

	hs.Total = hs.Rxn + hs.Conc + hs.OhmE + hs.OhmS
	return
}

// gamma is the diffusion potential factor 2(1-t+)RT/F
func (model *Model) gamma(T float64) float64 {
	return 2 * (1 - model.p.TPlus) * model.p.R * T / model.p.F
}

func (e *electrode) meanOCP(cs []float64) (u, du float64, err error) {
	x := floats.Sum(cs) / float64(len(cs)) / e.csMax
	if u, du, err = e.ocp.Eval(x); err != nil {
		return 0, 0, fmt.Errorf("%s mean open circuit potential: %w",
			e.name, tables.WithSource(err, tables.Kinetics))
	}
	return
}

func (e *electrode) reactionHeat(j []float64, ek *ElectrodeKinetics, uMean float64) (rxn, conc float64) {
	for i := 0; i < e.n; i++ {
		rxn += e.cr[i] * j[i] * ek.Eta[i]
		conc += e.cr[i] * j[i] * (ek.U[i] - uMean)
	}
	return
}

func (e *electrode) reactionSens(j []float64, ek *ElectrodeKinetics, uMean float64) (n, dj []float64) {
	n, dj = make([]float64, e.n), make([]float64, e.n)
	for i := 0; i < e.n; i++ {
		n[i] = e.cr[i] * j[i]
		dj[i] = e.cr[i] * (ek.Eta[i] + ek.U[i] - uMean)
	}
	return
}

// meanSens is the heat gradient through the mean OCP, uniform over cs
func (e *electrode) meanSens(n []float64, dUMean float64) (d []float64) {
	d = make([]float64, e.n)
	v := -floats.Sum(n) * dUMean / (e.csMax * float64(e.n))
	for i := range d {
		d[i] = v
	}
	return
}

func (e *electrode) ohmicHeat(phiS []float64) (q float64, dphi []float64) {
	g := mulVec(e.g, phiS)
	w := make([]float64, e.n)
	for i := 0; i < e.n; i++ {
		q += e.vols[i] * e.sigEff[i] * g[i] * g[i]
		w[i] = 2 * e.vols[i] * e.sigEff[i] * g[i]
	}
	return q, mulTransVec(e.g, w)
}

func mulVec(A mat.Matrix, x []float64) []float64 {
	r, _ := A.Dims()
	out := mat.NewVecDense(r, nil)
	out.MulVec(A, mat.NewVecDense(len(x), x))
	return out.RawVector().Data
}

func mulTransVec(A mat.Matrix, x []float64) []float64 {
	_, c := A.Dims()
	out := mat.NewVecDense(c, nil)
	out.MulVec(A.T(), mat.NewVecDense(len(x), x))
	return out.RawVector().Data
}
