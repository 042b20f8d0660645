package cell

import (
	"fmt"
	"strings"

	"github.com/notargets/P2DCell/mesh"
	"github.com/notargets/P2DCell/utils"
)

// SetAppliedCurrent sets the cell current I [A], stored as a current
// density over the coated area. Positive I discharges the cell.
func (model *Model) SetAppliedCurrent(I float64) {
	model.iApp = I / model.p.CoatedArea
}

// AppliedCurrent returns the applied current density [A/m^2]
func (model *Model) AppliedCurrent() float64 { return model.iApp }

// Voltage is the terminal voltage, cathode collector minus anode collector
func (model *Model) Voltage(y []float64) (float64, error) {
	if err := model.layout.Validate("y", y); err != nil {
		return 0, err
	}
	pa := model.layout.Segment(y, utils.PhiSA)
	pc := model.layout.Segment(y, utils.PhiSC)
	return pc[len(pc)-1] - pa[0], nil
}

// NumDiffVars is the number of differential unknowns
func (model *Model) NumDiffVars() int { return model.layout.NumDiff }

// NumAlgVars is the number of algebraic unknowns
func (model *Model) NumAlgVars() int { return model.layout.NumAlg }

// AlgebraicMask flags the differential entries of the state
func (model *Model) AlgebraicMask() []bool { return model.layout.AlgebraicMask() }

// Layout returns the state vector layout
func (model *Model) Layout() *utils.StateLayout { return model.layout }

// Mesh returns the mesh the model was built on
func (model *Model) Mesh() *mesh.Mesh1D { return model.mesh }

// Parameters returns a copy of the model parameters
func (model *Model) Parameters() Parameters { return model.p }

// Temperature returns the construction temperature, also the ambient
func (model *Model) Temperature() float64 { return model.T0 }

func (model *Model) String() string {
	var sb strings.Builder
	sb.WriteString("=== Cell Model Summary ===\n")
	sb.WriteString(fmt.Sprintf("T0: %.2f K, i_app: %g A/m^2\n", model.T0, model.iApp))
	sb.WriteString(fmt.Sprintf("Unknowns: %d (%d differential, %d algebraic)\n",
		model.layout.Len(), model.layout.NumDiff, model.layout.NumAlg))
	for _, e := range []*electrode{model.an, model.ca} {
		sb.WriteString(fmt.Sprintf("  %-8s volumes=%d as_mean=%.4g 1/m Ds=%.4g m^2/s\n",
			e.name, e.n, e.asMean, e.ds))
	}
	sb.WriteString(fmt.Sprintf("Areal mass: %.4g kg/m^2, h*Aconv: %g W/m^2-K\n", model.rho, model.hA))
	return sb.String()
}
