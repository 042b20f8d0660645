package cell

import (
	"fmt"
	"math"

	"github.com/notargets/P2DCell/mesh"
	"github.com/notargets/P2DCell/operators"
	"github.com/notargets/P2DCell/tables"
	"github.com/notargets/P2DCell/utils"
	"gonum.org/v1/gonum/mat"
)

// electrode collects what the kinetics and solid potential equations need
// for one electrode
type electrode struct {
	name   string
	n      int // Control volumes
	start  int // First node of the electrode in the full mesh
	xm, xe []float64
	vols   []float64

	csMax  float64
	ds     float64   // Solid diffusivity at the construction temperature
	dcs    []float64 // Surface concentration correction, css = cs + dcs*j
	bcs    []float64 // dcs/dt = bcs*j
	as     []float64 // Specific interfacial area [1/m]
	asMean float64
	cr     []float64 // Heat weight vol*F*as

	sigEff []float64 // Effective solid conductivity at the nodes
	aps    *mat.Dense
	bps    []float64
	b2ps   []float64
	g      *mat.Dense // Gradient on the electrode centers

	ocp *tables.Curve
	io  *tables.Surface
}

// Model is one P2D cell instance. Coupling matrices are built once at
// construction, state dependent quantities are rebuilt on every evaluation
// and returned in an EvalContext.
type Model struct {
	p      Parameters
	tabs   *Tables
	mesh   *mesh.Mesh1D
	layout *utils.StateLayout

	T0, Tamb float64
	iApp     float64 // Applied current density [A/m^2]

	epsM, kM []float64 // Porosity and its inverse
	epsEff   []float64 // eps^(1+brug)
	bce      []float64 // Reaction source in the concentration equation
	b2pe     []float64 // Reaction source in the electrolyte potential equation
	g        *mat.Dense

	an, ca *electrode

	rho float64 // Mass per coated area [kg/m^2]
	hA  float64 // h*Aconv
}

// New builds a model on mesh m. The starting temperature T0 is also the
// ambient temperature and fixes the solid diffusivity.
func New(m *mesh.Mesh1D, p Parameters, tabs *Tables, T0 float64) (model *Model, err error) {
	if m == nil {
		return nil, fmt.Errorf("model needs a mesh")
	}
	if err = p.Validate(); err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}
	if err = tabs.Validate(); err != nil {
		return nil, fmt.Errorf("tables: %w", err)
	}
	if !(T0 > 0) {
		return nil, fmt.Errorf("initial temperature %g K must be positive", T0)
	}
	if err = m.Validate(); err != nil {
		return nil, err
	}
	layout, err := utils.NewStateLayout(m.Na, m.Ns, m.Nc)
	if err != nil {
		return nil, err
	}

	N, Na, Ns, Nc := m.N, m.Na, m.Ns, m.Nc
	model = &Model{
		p: p, tabs: tabs, mesh: m, layout: layout,
		T0: T0, Tamb: T0,
		epsM:   make([]float64, N),
		kM:     make([]float64, N),
		epsEff: make([]float64, N),
		bce:    make([]float64, N),
		b2pe:   make([]float64, N),
		g:      operators.GradMatrix(N, m.Xm),
		rho:    p.ArealDensity * m.X,
		hA:     p.H * p.AConv,
	}
	for i := 0; i < N; i++ {
		eps, brug := p.EpsS, p.BrugS
		switch {
		case i < Na:
			eps, brug = p.EpsA, p.BrugA
		case i >= Na+Ns:
			eps, brug = p.EpsC, p.BrugC
		}
		model.epsM[i] = eps
		model.kM[i] = 1 / eps
		model.epsEff[i] = math.Pow(eps, 1+brug)
	}

	model.an = model.newElectrode("anode", 0, Na, m.XmA, m.XeA, m.VolsA, m.La,
		p.RpA, p.SigA, p.DsA, p.EaDsA, p.CsMaxA, tabs.UAnode, tabs.IoAnode)
	model.ca = model.newElectrode("cathode", N-Nc, Nc, m.XmC, m.XeC, m.VolsC, m.Lc,
		p.RpC, p.SigC, p.DsC, p.EaDsC, p.CsMaxC, tabs.UCathode, tabs.IoCathode)
	model.an.b2ps[0] = -1
	model.ca.b2ps[Nc-1] = -1

	for _, e := range []*electrode{model.an, model.ca} {
		for i := 0; i < e.n; i++ {
			k := e.start + i
			model.bce[k] = (1 - p.TPlus) * e.as[i] / model.epsM[k]
			model.b2pe[k] = e.as[i] * p.F
		}
	}
	return
}

func (model *Model) newElectrode(name string, start, n int, xm, xe, vols []float64, L,
	rp, sig, ds, eaDs, csMax float64, ocp *tables.Curve, io *tables.Surface) (e *electrode) {
	p := model.p
	e = &electrode{
		name: name, n: n, start: start,
		xm: xm, xe: xe, vols: vols,
		csMax:  csMax,
		ds:     ds * math.Exp(eaDs/p.R*(1/p.DsRefTemp-1/model.T0)),
		dcs:    make([]float64, n),
		bcs:    make([]float64, n),
		as:     make([]float64, n),
		cr:     make([]float64, n),
		sigEff: make([]float64, n),
		bps:    make([]float64, n),
		b2ps:   make([]float64, n),
		g:      operators.GradMatrix(n, xm),
		ocp:    ocp,
		io:     io,
	}
	for i := 0; i < n; i++ {
		k := start + i
		e.as[i] = 3 * (1 - model.epsM[k]) / rp
		e.asMean += e.as[i] * vols[i] / L
		e.dcs[i] = -rp / e.ds / 5
		e.bcs[i] = -3 / rp
		e.cr[i] = vols[i] * p.F * e.as[i]
		e.sigEff[i] = sig * (1 - model.epsEff[k])
		e.bps[i] = e.as[i] * p.F * vols[i]
	}
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	e.aps = operators.FluxMatrix(n, xm, ones, operators.MidToEdge(e.sigEff, xe))
	return
}
