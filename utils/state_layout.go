package utils

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is matched by *DimensionError
var ErrDimensionMismatch = errors.New("dimension mismatch")

// DimensionError reports a vector whose length does not match the layout
type DimensionError struct {
	Name      string
	Want, Got int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: length %d, expected %d", e.Name, e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// Segment names one contiguous block of the state vector
type Segment uint8

const (
	Ce    Segment = iota // Electrolyte concentration, N
	Csa                  // Anode bulk solid concentration, Na
	Csc                  // Cathode bulk solid concentration, Nc
	Temp                 // Lumped cell temperature, 1
	Ja                   // Anode reaction flux, Na
	Jc                   // Cathode reaction flux, Nc
	PhiE                 // Electrolyte potential, N
	PhiSA                // Anode solid potential, Na
	PhiSC                // Cathode solid potential, Nc
	NumSegments
)

var segmentNames = [NumSegments]string{
	"ce", "csa", "csc", "T", "ja", "jc", "phi_e", "phi_s_a", "phi_s_c",
}

func (s Segment) String() string {
	if s < NumSegments {
		return segmentNames[s]
	}
	return fmt.Sprintf("Segment(%d)", uint8(s))
}

// Differential reports whether the segment carries a time derivative
func (s Segment) Differential() bool {
	return s <= Temp
}

// StateLayout maps named segments onto the flat DAE state vector. Offsets
// are fixed at construction.
type StateLayout struct {
	N, Na, Ns, Nc int

	// Offsets[s] is the first index of segment s, Offsets[NumSegments] the total length
	Offsets [NumSegments + 1]int
	Sizes   [NumSegments]int

	NumDiff int
	NumAlg  int
}

// NewStateLayout creates the layout for na anode, ns separator and nc
// cathode control volumes
func NewStateLayout(na, ns, nc int) (*StateLayout, error) {
	if na <= 0 || ns <= 0 || nc <= 0 {
		return nil, fmt.Errorf("invalid dimensions: Na=%d, Ns=%d, Nc=%d", na, ns, nc)
	}
	N := na + ns + nc
	sl := &StateLayout{
		N: N, Na: na, Ns: ns, Nc: nc,
		Sizes: [NumSegments]int{N, na, nc, 1, na, nc, N, na, nc},
	}
	for s := Segment(0); s < NumSegments; s++ {
		sl.Offsets[s+1] = sl.Offsets[s] + sl.Sizes[s]
	}
	sl.NumDiff = sl.Offsets[Ja]
	sl.NumAlg = sl.Len() - sl.NumDiff
	return sl, nil
}

// Len returns the length of the state vector, 2N+3Na+3Nc+1
func (sl *StateLayout) Len() int {
	return sl.Offsets[NumSegments]
}

// Offset returns the first index of segment s
func (sl *StateLayout) Offset(s Segment) int {
	return sl.Offsets[s]
}

// Segment returns the sub-slice of y owned by s. The result aliases y.
func (sl *StateLayout) Segment(y []float64, s Segment) []float64 {
	return y[sl.Offsets[s]:sl.Offsets[s+1]:sl.Offsets[s+1]]
}

// Indices returns the pick indices of segment s
func (sl *StateLayout) Indices(s Segment) []int {
	return sequence(sl.Offsets[s], sl.Sizes[s])
}

// AlgebraicMask returns one flag per state entry, true for differential
// entries and false for algebraic ones
func (sl *StateLayout) AlgebraicMask() []bool {
	mask := make([]bool, sl.Len())
	for s := Segment(0); s < NumSegments; s++ {
		if s.Differential() {
			for _, i := range sl.Indices(s) {
				mask[i] = true
			}
		}
	}
	return mask
}

// AlgebraicIndices returns the state indices of the algebraic unknowns in
// segment order
func (sl *StateLayout) AlgebraicIndices() (idx []int) {
	for s := Segment(0); s < NumSegments; s++ {
		if !s.Differential() {
			idx = append(idx, sl.Indices(s)...)
		}
	}
	return
}

// Validate checks that v has the layout's length
func (sl *StateLayout) Validate(name string, v []float64) error {
	if len(v) != sl.Len() {
		return &DimensionError{Name: name, Want: sl.Len(), Got: len(v)}
	}
	return nil
}

// Pick gathers v at indices
func Pick(v []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = v[idx]
	}
	return out
}

// Place scatters vals into v at indices
func Place(v []float64, indices []int, vals []float64) {
	if len(indices) != len(vals) {
		panic(fmt.Sprintf("place: %d indices for %d values", len(indices), len(vals)))
	}
	for i, idx := range indices {
		v[idx] = vals[i]
	}
}

func sequence(start, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = start + i
	}
	return idx
}
