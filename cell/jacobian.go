package cell

import (
	"math"

	"github.com/notargets/P2DCell/operators"
	"github.com/notargets/P2DCell/utils"
	"gonum.org/v1/gonum/mat"
)

// Jacobian returns dr/dy + c*dr/dyd at (t, y, yd). yd may be nil, the
// residual is linear in yd.
func (model *Model) Jacobian(c, t float64, y, yd []float64) (*mat.Dense, error) {
	if err := model.checkState(y, yd); err != nil {
		return nil, err
	}
	ec, err := model.evaluate(y)
	if err != nil {
		return nil, err
	}
	return model.JacobianFrom(ec, c)
}

// JacobianFrom assembles the Jacobian from the context of a residual
// evaluation at the same state
func (model *Model) JacobianFrom(ec *EvalContext, c float64) (J *mat.Dense, err error) {
	sl := model.layout
	m := model.mesh
	N := m.N
	y := ec.Y
	var (
		ce = sl.Segment(y, utils.Ce)
		pe = sl.Segment(y, utils.PhiE)
		T  = ec.T

		oCe = sl.Offset(utils.Ce)
		oT  = sl.Offset(utils.Temp)
		oPe = sl.Offset(utils.PhiE)
	)

	J = mat.NewDense(sl.Len(), sl.Len(), nil)
	for i := 0; i < sl.NumDiff; i++ {
		J.Set(i, i, c)
	}

	// Electrolyte concentration: -(A_ce + diag(1/eps)*S*E*diag(dDe/dce))
	S := operators.FluxEdgeSensitivity(m.Xm, m.Vols, ce)
	var SE mat.Dense
	SE.Mul(S, operators.MidToEdgeJacobian(ec.De.Node, m.Xe))
	for i := 0; i < N; i++ {
		var dT float64
		for k := 0; k < N; k++ {
			se := model.kM[i] * SE.At(i, k)
			add(J, oCe+i, oCe+k, -(ec.Ace.At(i, k) + se*ec.De.DNodeC[k]))
			dT += se * ec.De.DNodeT[k]
		}
		add(J, oCe+i, oT, -dT)
	}

	// Temperature, through the heat sensitivities
	f := 1 / (model.rho * model.p.Cp)
	hsens := ec.Heat.Sens
	for _, blk := range []struct {
		seg utils.Segment
		d   []float64
	}{
		{utils.Ce, hsens.Ce}, {utils.Csa, hsens.Csa}, {utils.Csc, hsens.Csc},
		{utils.Ja, hsens.Ja}, {utils.Jc, hsens.Jc},
		{utils.PhiE, hsens.Pe}, {utils.PhiSA, hsens.Pa}, {utils.PhiSC, hsens.Pc},
	} {
		o := sl.Offset(blk.seg)
		for k, v := range blk.d {
			add(J, oT, o+k, -f*v)
		}
	}
	add(J, oT, oT, -f*(hsens.T-model.hA))

	// Per electrode: concentration, solid concentration, flux and solid
	// potential rows
	b := model.bvFactor(T)
	for _, el := range []struct {
		e           *electrode
		ek          *ElectrodeKinetics
		j, cs, phiS utils.Segment
	}{
		{model.an, &ec.Kin.A, utils.Ja, utils.Csa, utils.PhiSA},
		{model.ca, &ec.Kin.C, utils.Jc, utils.Csc, utils.PhiSC},
	} {
		e, ek := el.e, el.ek
		oJ, oCs, oPs := sl.Offset(el.j), sl.Offset(el.cs), sl.Offset(el.phiS)
		for i := 0; i < e.n; i++ {
			n := e.start + i
			add(J, oCe+n, oJ+i, -model.bce[n])
			add(J, oCs+i, oJ+i, -e.bcs[i])
			add(J, oPe+n, oJ+i, model.b2pe[n])
			add(J, oPs+i, oJ+i, -e.bps[i])

			C, eta := ek.Cio[i], ek.Eta[i]
			sh, ch := math.Sinh(b*eta), math.Cosh(b*eta)
			dEta := C * ch * b
			dCss := ek.DCioDCss[i]*sh - dEta*ek.DU[i]
			r := oJ + i
			add(J, r, r, 1-dCss*e.dcs[i])
			add(J, r, oCs+i, -dCss)
			add(J, r, oCe+n, -ek.DCioDCe[i]*sh)
			add(J, r, oT, -(ek.DCioDT[i]*sh - C*ch*eta*b/T))
			add(J, r, oPs+i, -dEta)
			add(J, r, oPe+n, dEta)
		}
		for i := 0; i < e.n; i++ {
			for k := 0; k < e.n; k++ {
				add(J, oPs+i, oPs+k, e.aps.At(i, k))
			}
		}
	}

	// Electrolyte potential. A_pe*phi_e depends on ce and T through kappa,
	// B_pe*ce through kappa and the edge concentration.
	Sp := operators.FluxEdgeSensitivity(m.Xm, m.Vols, pe)
	Sp.Set(N-1, N-1, Sp.At(N-1, N-1)-pe[N-1]/(m.Vols[N-1]*(m.Xm[N-1]-m.Xm[N-2])))
	EK := operators.MidToEdgeJacobian(ec.Kappa.Node, m.Xe)
	EC := operators.MidToEdgeJacobian(ce, m.Xe)
	var SpEK mat.Dense
	SpEK.Mul(Sp, EK)

	gam, ceE, keE := ec.Gamma, ec.CeEdge, ec.Kappa.Edge
	dQ := mat.NewDense(N+1, N, nil)
	dQT := make([]float64, N+1)
	dKeT := mulVec(EK, ec.Kappa.DNodeT)
	for e := 0; e <= N; e++ {
		for k := 0; k < N; k++ {
			wk, wc := EK.At(e, k), EC.At(e, k)
			if wk == 0 && wc == 0 {
				continue
			}
			dQ.Set(e, k, gam*(wk*ec.Kappa.DNodeC[k]/ceE[e]-keE[e]/(ceE[e]*ceE[e])*wc))
		}
		dQT[e] = gam*dKeT[e]/ceE[e] + keE[e]*gam/(T*ceE[e])
	}
	var ScdQ mat.Dense
	ScdQ.Mul(S, dQ)
	ScdQT := mulVec(S, dQT)
	for i := 0; i < N; i++ {
		var dT float64
		for k := 0; k < N; k++ {
			add(J, oPe+i, oPe+k, ec.Ape.At(i, k))
			spek := SpEK.At(i, k)
			add(J, oPe+i, oCe+k, spek*ec.Kappa.DNodeC[k]-ec.Bpe.At(i, k)-ScdQ.At(i, k))
			dT += spek * ec.Kappa.DNodeT[k]
		}
		add(J, oPe+i, oT, dT-ScdQT[i])
	}

	if err = checkFinite("jacobian", J.RawMatrix().Data); err != nil {
		return nil, err
	}
	return
}

func add(J *mat.Dense, i, j int, v float64) {
	J.Set(i, j, J.At(i, j)+v)
}
