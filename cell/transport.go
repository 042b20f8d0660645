package cell

import (
	"github.com/notargets/P2DCell/operators"
	"github.com/notargets/P2DCell/tables"
)

// TransportField is an effective transport coefficient on the full mesh
type TransportField struct {
	Node   []float64 // Effective value at the control volume centers
	DNodeC []float64 // d(Node)/d(ce), diagonal
	DNodeT []float64 // d(Node)/dT
	Edge   []float64 // MidToEdge(Node)
}

func (model *Model) transport(s *tables.Surface, scale float64, ce []float64, T float64) (tf TransportField, err error) {
	v, dc, dT, err := s.EvalMany(ce, T)
	if err != nil {
		return tf, tables.WithSource(err, tables.Concentration)
	}
	for i := range v {
		f := scale * model.epsEff[i]
		v[i] *= f
		dc[i] *= f
		dT[i] *= f
	}
	tf = TransportField{
		Node:   v,
		DNodeC: dc,
		DNodeT: dT,
		Edge:   operators.MidToEdge(v, model.mesh.Xe),
	}
	return
}

func (model *Model) diffusivity(ce []float64, T float64) (TransportField, error) {
	return model.transport(model.tabs.De, 1, ce, T)
}

func (model *Model) conductivity(ce []float64, T float64) (TransportField, error) {
	return model.transport(model.tabs.Kappa, model.p.KappaScale, ce, T)
}

func (model *Model) uniform(s *tables.Surface, scale, c, T float64) ([]float64, error) {
	v, _, _, err := s.Eval(c, T)
	if err != nil {
		return nil, tables.WithSource(err, tables.Concentration)
	}
	out := make([]float64, model.mesh.N)
	for i := range out {
		out[i] = scale * v * model.epsEff[i]
	}
	return out, nil
}

// DiffusivityScalar returns the effective electrolyte diffusivity at every
// control volume center for a uniform concentration c
func (model *Model) DiffusivityScalar(c, T float64) ([]float64, error) {
	return model.uniform(model.tabs.De, 1, c, T)
}

// DiffusivityField returns the effective electrolyte diffusivity on the
// mesh edges for the concentration field ce
func (model *Model) DiffusivityField(ce []float64, T float64) ([]float64, error) {
	if err := checkLen("ce", ce, model.mesh.N); err != nil {
		return nil, err
	}
	tf, err := model.diffusivity(ce, T)
	if err != nil {
		return nil, err
	}
	return tf.Edge, nil
}

// ConductivityScalar returns the effective ionic conductivity in S/m at
// every control volume center for a uniform concentration c
func (model *Model) ConductivityScalar(c, T float64) ([]float64, error) {
	return model.uniform(model.tabs.Kappa, model.p.KappaScale, c, T)
}

// ConductivityField returns the effective ionic conductivity in S/m for the
// concentration field ce, at the control volume centers when mid is set and
// on the edges otherwise
func (model *Model) ConductivityField(ce []float64, T float64, mid bool) ([]float64, error) {
	if err := checkLen("ce", ce, model.mesh.N); err != nil {
		return nil, err
	}
	tf, err := model.conductivity(ce, T)
	if err != nil {
		return nil, err
	}
	if mid {
		return tf.Node, nil
	}
	return tf.Edge, nil
}
