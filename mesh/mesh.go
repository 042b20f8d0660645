package mesh

import (
	"fmt"
	"strings"

	"github.com/notargets/P2DCell/partitions"
	"gonum.org/v1/gonum/floats"
)

// Mesh1D is a uniform control-volume mesh across the anode, separator and
// cathode of a cell sandwich
type Mesh1D struct {
	*partitions.PartitionLayout

	X          float64 // Total thickness [m]
	N          int     // Total control volumes
	Na, Ns, Nc int

	Xe   []float64 // Edges, N+1
	Xm   []float64 // Control volume centers, N
	Vols []float64 // Control volume widths, N

	// Electrode sub-meshes, sharing storage with the full mesh
	XeA, XeC     []float64
	XmA, XmC     []float64
	VolsA, VolsC []float64

	La, Ls, Lc float64 // Region lengths [m]
}

// NewMesh1D builds N+1 uniform edges over [0, X] split into na anode, ns
// separator and nc cathode control volumes
func NewMesh1D(X float64, na, ns, nc int) (m *Mesh1D, err error) {
	if !(X > 0) {
		return nil, fmt.Errorf("thickness must be positive, have %g", X)
	}
	layout, err := partitions.BuildRegions(na, ns, nc)
	if err != nil {
		return nil, fmt.Errorf("mesh regions: %w", err)
	}
	N := layout.TotalNodes
	m = &Mesh1D{
		PartitionLayout: layout,
		X:               X,
		N:               N,
		Na:              na,
		Ns:              ns,
		Nc:              nc,
		Xe:              make([]float64, N+1),
		Xm:              make([]float64, N),
		Vols:            make([]float64, N),
	}
	floats.Span(m.Xe, 0, X)
	for i := 0; i < N; i++ {
		m.Xm[i] = 0.5 * (m.Xe[i] + m.Xe[i+1])
		m.Vols[i] = m.Xe[i+1] - m.Xe[i]
	}

	m.XeA, m.XmA, m.VolsA = m.Xe[:na+1], m.Xm[:na], m.Vols[:na]
	m.XeC, m.XmC, m.VolsC = m.Xe[N-nc:], m.Xm[N-nc:], m.Vols[N-nc:]

	m.La = m.Xe[na] - m.Xe[0]
	m.Ls = m.Xe[na+ns] - m.Xe[na]
	m.Lc = m.Xe[N] - m.Xe[na+ns]

	if err = m.Validate(); err != nil {
		return nil, err
	}
	return
}

// Validate checks that the edges are strictly increasing and the derived
// arrays are consistent with the region counts
func (m *Mesh1D) Validate() error {
	if len(m.Xe) != m.N+1 || len(m.Xm) != m.N || len(m.Vols) != m.N {
		return fmt.Errorf("mesh arrays have lengths %d/%d/%d for N=%d",
			len(m.Xe), len(m.Xm), len(m.Vols), m.N)
	}
	if m.Na+m.Ns+m.Nc != m.N {
		return fmt.Errorf("region counts %d+%d+%d do not sum to N=%d", m.Na, m.Ns, m.Nc, m.N)
	}
	for i := 1; i <= m.N; i++ {
		if !(m.Xe[i] > m.Xe[i-1]) {
			return fmt.Errorf("edges not strictly increasing at %d: %g <= %g",
				i, m.Xe[i], m.Xe[i-1])
		}
	}
	return nil
}

// String returns a summary of the mesh
func (m *Mesh1D) String() string {
	var sb strings.Builder

	sb.WriteString("=== Mesh1D Summary ===\n")
	sb.WriteString(fmt.Sprintf("  Thickness: %.4g m\n", m.X))
	sb.WriteString(fmt.Sprintf("  Control volumes (N): %d\n", m.N))
	sb.WriteString(fmt.Sprintf("  Uniform width: %.4g m\n", m.Vols[0]))

	sb.WriteString("\n--- Regions ---\n")
	lengths := []float64{m.La, m.Ls, m.Lc}
	for i, p := range m.Partitions {
		sb.WriteString(fmt.Sprintf("  %-9s nodes [%3d, %3d)  count %3d  length %.4g m\n",
			p.Region, p.Start, p.End(), p.Count, lengths[i]))
	}
	return sb.String()
}
