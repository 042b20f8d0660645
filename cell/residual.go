package cell

import (
	"fmt"
	"math"

	"github.com/notargets/P2DCell/operators"
	"github.com/notargets/P2DCell/utils"
	"gonum.org/v1/gonum/mat"
)

// EvalContext carries everything a residual evaluation computed that the
// Jacobian of the same state reuses
type EvalContext struct {
	T     float64
	Y     []float64 // Copy of the evaluated state
	Gamma float64   // 2(1-t+)RT/F

	De, Kappa TransportField
	CeEdge    []float64

	Ace *mat.Dense // diag(1/eps)*FluxMatrix(De)
	Ape *mat.Dense // FluxMatrix(kappa), last diagonal doubled
	Bpe *mat.Dense // FluxMatrix(kappa*gamma/ceEdge)

	Kin    *Kinetics
	Ja, Jc []float64 // Butler-Volmer fluxes at the state
	Heat   *HeatSource
	QOut   float64 // Convective loss h*Aconv*(T-Tamb)
}

// Residual evaluates the DAE residual r(t, y, yd) into r, which must have
// the state's length. The returned context feeds JacobianFrom.
func (model *Model) Residual(t float64, y, yd, r []float64) (ec *EvalContext, err error) {
	sl := model.layout
	for _, v := range []struct {
		name string
		v    []float64
	}{{"y", y}, {"yd", yd}, {"r", r}} {
		if err = sl.Validate(v.name, v.v); err != nil {
			return nil, err
		}
	}
	if ec, err = model.evaluate(y); err != nil {
		return nil, err
	}

	var (
		N    = model.mesh.N
		ce   = sl.Segment(y, utils.Ce)
		ja   = sl.Segment(y, utils.Ja)
		jc   = sl.Segment(y, utils.Jc)
		pe   = sl.Segment(y, utils.PhiE)
		pa   = sl.Segment(y, utils.PhiSA)
		pc   = sl.Segment(y, utils.PhiSC)
		jAll = model.combined(ja, jc)
	)

	// Electrolyte concentration
	rce := sl.Segment(r, utils.Ce)
	copy(rce, mulVec(ec.Ace, ce))
	ced := sl.Segment(yd, utils.Ce)
	for i := 0; i < N; i++ {
		rce[i] = ced[i] - (rce[i] + model.bce[i]*jAll[i])
	}

	// Solid concentration
	for _, s := range []struct {
		seg utils.Segment
		e   *electrode
		j   []float64
	}{{utils.Csa, model.an, ja}, {utils.Csc, model.ca, jc}} {
		rs, ds := sl.Segment(r, s.seg), sl.Segment(yd, s.seg)
		for i := range rs {
			rs[i] = ds[i] - s.e.bcs[i]*s.j[i]
		}
	}

	// Temperature
	sl.Segment(r, utils.Temp)[0] = sl.Segment(yd, utils.Temp)[0] -
		(ec.Heat.Total-ec.QOut)/(model.rho*model.p.Cp)

	// Reaction flux
	for _, s := range []struct {
		seg    utils.Segment
		js, jv []float64
	}{{utils.Ja, ja, ec.Ja}, {utils.Jc, jc, ec.Jc}} {
		rs := sl.Segment(r, s.seg)
		for i := range rs {
			rs[i] = s.js[i] - s.jv[i]
		}
	}

	// Electrolyte potential
	rpe := sl.Segment(r, utils.PhiE)
	ape, bpe := mulVec(ec.Ape, pe), mulVec(ec.Bpe, ce)
	for i := 0; i < N; i++ {
		rpe[i] = ape[i] - bpe[i] + model.b2pe[i]*jAll[i]
	}

	// Solid potential, current collector at the outer edge of each electrode
	rpa := sl.Segment(r, utils.PhiSA)
	aps := mulVec(model.an.aps, pa)
	for i := range rpa {
		rpa[i] = aps[i] - model.an.bps[i]*ja[i] - model.an.b2ps[i]*model.iApp
	}
	rpc := sl.Segment(r, utils.PhiSC)
	aps = mulVec(model.ca.aps, pc)
	for i := range rpc {
		rpc[i] = aps[i] - model.ca.bps[i]*jc[i] + model.ca.b2ps[i]*model.iApp
	}

	if err = checkFinite("residual", r); err != nil {
		return nil, err
	}
	return
}

// ResidualVector allocates and returns the residual at (t, y, yd)
func (model *Model) ResidualVector(t float64, y, yd []float64) ([]float64, error) {
	r := make([]float64, model.layout.Len())
	if _, err := model.Residual(t, y, yd, r); err != nil {
		return nil, err
	}
	return r, nil
}

// evaluate builds the state dependent operators, kinetics and heat of y
func (model *Model) evaluate(y []float64) (ec *EvalContext, err error) {
	sl := model.layout
	m := model.mesh
	ec = &EvalContext{Y: append([]float64(nil), y...)}
	y = ec.Y
	var (
		ce  = sl.Segment(y, utils.Ce)
		csa = sl.Segment(y, utils.Csa)
		csc = sl.Segment(y, utils.Csc)
		ja  = sl.Segment(y, utils.Ja)
		jc  = sl.Segment(y, utils.Jc)
		pe  = sl.Segment(y, utils.PhiE)
		pa  = sl.Segment(y, utils.PhiSA)
		pc  = sl.Segment(y, utils.PhiSC)
	)
	ec.T = sl.Segment(y, utils.Temp)[0]
	if !(ec.T > 0) {
		return nil, fmt.Errorf("temperature %g K: %w", ec.T, ErrNonConvergent)
	}
	for i, c := range ce {
		if !(c > 0) {
			return nil, fmt.Errorf("electrolyte concentration %g at node %d: %w", c, i, ErrNonConvergent)
		}
	}
	ec.Gamma = model.gamma(ec.T)

	// Transport operators
	if ec.De, err = model.diffusivity(ce, ec.T); err != nil {
		return nil, fmt.Errorf("diffusivity: %w", err)
	}
	if ec.Kappa, err = model.conductivity(ce, ec.T); err != nil {
		return nil, fmt.Errorf("conductivity: %w", err)
	}
	ec.Ace = operators.FluxMatrix(m.N, m.Xm, m.Vols, ec.De.Edge)
	ec.Ace.Apply(func(i, _ int, v float64) float64 { return model.kM[i] * v }, ec.Ace)

	ec.Ape = operators.FluxMatrix(m.N, m.Xm, m.Vols, ec.Kappa.Edge)
	ec.Ape.Set(m.N-1, m.N-1, 2*ec.Ape.At(m.N-1, m.N-1))

	ec.CeEdge = operators.MidToEdge(ce, m.Xe)
	q := make([]float64, m.N+1)
	for e := range q {
		q[e] = ec.Kappa.Edge[e] * ec.Gamma / ec.CeEdge[e]
	}
	ec.Bpe = operators.FluxMatrix(m.N, m.Xm, m.Vols, q)

	// Kinetics, rate coefficients, then heat
	if ec.Kin, err = model.EtaUref(csa, csc, ja, jc, pa, pc, pe); err != nil {
		return nil, err
	}
	if err = model.UpdateRateCoefficient(ec.Kin, ce, ec.T); err != nil {
		return nil, err
	}
	if ec.Heat, err = model.Heat(y, ec.Kin, ec.Kappa); err != nil {
		return nil, err
	}
	ec.Ja, ec.Jc = model.ReactionFlux(ec.Kin, ec.T)
	ec.QOut = model.hA * (ec.T - model.Tamb)
	return
}

// checkState validates y, and yd when present
func (model *Model) checkState(y, yd []float64) error {
	if err := model.layout.Validate("y", y); err != nil {
		return err
	}
	if yd != nil {
		return model.layout.Validate("yd", yd)
	}
	return nil
}

// combined places ja and jc on the full mesh, zero in the separator
func (model *Model) combined(ja, jc []float64) []float64 {
	j := make([]float64, model.mesh.N)
	copy(j[model.an.start:], ja)
	copy(j[model.ca.start:], jc)
	return j
}

func checkFinite(stage string, v []float64) error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return &NonFiniteError{Stage: stage, Index: i, Value: x}
		}
	}
	return nil
}
