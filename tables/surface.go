package tables

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
)

// MinBreakpoints is the fewest breakpoints a spline axis accepts
const MinBreakpoints = 3

// Surface is a bicubic tensor-product spline over a rectangular grid.
// Z has one row per X breakpoint and one column per Y breakpoint.
type Surface struct {
	Name   string
	Source Source
	X, Y   []float64
	Z      *mat.Dense

	// Clamp holds the end values outside the breakpoint range instead of
	// returning an *OutOfRangeError
	Clamp bool

	rows []interp.NaturalCubic // Spline in Y along each X row
}

// NewSurface fits a surface to strictly monotone breakpoints. Descending
// axes are reversed together with the matching rows or columns of z.
func NewSurface(name string, x, y []float64, z *mat.Dense) (s *Surface, err error) {
	r, c := z.Dims()
	if len(x) != r || len(y) != c {
		return nil, fmt.Errorf("surface %q: grid %dx%d does not match %d x %d breakpoints",
			name, r, c, len(x), len(y))
	}
	x, y = append([]float64(nil), x...), append([]float64(nil), y...)
	zz := mat.DenseCopyOf(z)
	if descending(x) {
		reverse(x)
		flipRows(zz)
	}
	if descending(y) {
		reverse(y)
		flipCols(zz)
	}
	if err = checkAxis(name, x); err != nil {
		return nil, err
	}
	if err = checkAxis(name, y); err != nil {
		return nil, err
	}
	s = &Surface{Name: name, X: x, Y: y, Z: zz, rows: make([]interp.NaturalCubic, r)}
	for i := range s.rows {
		if err = s.rows[i].Fit(y, mat.Row(nil, i, zz)); err != nil {
			return nil, fmt.Errorf("surface %q row %d: %w", name, i, err)
		}
	}
	return
}

// Section is a surface restricted to one Y value, along with its Y
// derivative. Evaluating many X values at a common Y only fits once.
type Section struct {
	s       *Surface
	y       float64
	clamped bool
	val     interp.NaturalCubic
	dval    interp.NaturalCubic
}

// Section fits the X spline at y
func (s *Surface) Section(y float64) (sec *Section, err error) {
	y, clamped, err := s.bound(1, y, s.Y)
	if err != nil {
		return nil, err
	}
	n := len(s.X)
	v, dv := make([]float64, n), make([]float64, n)
	for i := range s.rows {
		v[i] = s.rows[i].Predict(y)
		dv[i] = s.rows[i].PredictDerivative(y)
	}
	sec = &Section{s: s, y: y, clamped: clamped}
	if err = sec.val.Fit(s.X, v); err != nil {
		return nil, fmt.Errorf("surface %q section: %w", s.Name, err)
	}
	if err = sec.dval.Fit(s.X, dv); err != nil {
		return nil, fmt.Errorf("surface %q section: %w", s.Name, err)
	}
	return
}

// Eval returns the surface value at (x, y) of the section along with the
// partial derivatives in x and y
func (sec *Section) Eval(x float64) (v, dx, dy float64, err error) {
	x, clamped, err := sec.s.bound(0, x, sec.s.X)
	if err != nil {
		return
	}
	v = sec.val.Predict(x)
	if !clamped {
		dx = sec.val.PredictDerivative(x)
	}
	if !sec.clamped {
		dy = sec.dval.Predict(x)
	}
	return
}

// Eval returns the surface value at (x, y) and its partial derivatives
func (s *Surface) Eval(x, y float64) (v, dx, dy float64, err error) {
	sec, err := s.Section(y)
	if err != nil {
		return
	}
	return sec.Eval(x)
}

// EvalMany evaluates the surface at every x for a common y
func (s *Surface) EvalMany(xs []float64, y float64) (v, dx, dy []float64, err error) {
	sec, err := s.Section(y)
	if err != nil {
		return
	}
	v, dx, dy = make([]float64, len(xs)), make([]float64, len(xs)), make([]float64, len(xs))
	for i, x := range xs {
		if v[i], dx[i], dy[i], err = sec.Eval(x); err != nil {
			return nil, nil, nil, err
		}
	}
	return
}

func (s *Surface) bound(axis int, v float64, bp []float64) (float64, bool, error) {
	return bound(s.Name, s.Source, s.Clamp, axis, v, bp)
}

func bound(name string, src Source, clamp bool, axis int, v float64, bp []float64) (float64, bool, error) {
	lo, hi := bp[0], bp[len(bp)-1]
	if v >= lo && v <= hi {
		return v, false, nil
	}
	if !clamp || math.IsNaN(v) {
		return v, false, &OutOfRangeError{Table: name, Source: src, Axis: axis, Value: v, Min: lo, Max: hi}
	}
	if v < lo {
		return lo, true, nil
	}
	return hi, true, nil
}

func checkAxis(name string, bp []float64) error {
	if len(bp) < MinBreakpoints {
		return fmt.Errorf("table %q: %d breakpoints, need at least %d", name, len(bp), MinBreakpoints)
	}
	for i := 1; i < len(bp); i++ {
		if !(bp[i] > bp[i-1]) {
			return fmt.Errorf("table %q: breakpoints not strictly monotone at %d (%g, %g)",
				name, i, bp[i-1], bp[i])
		}
	}
	return nil
}

func descending(bp []float64) bool {
	return len(bp) > 1 && bp[1] < bp[0]
}

func reverse(v []float64) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

func flipRows(z *mat.Dense) {
	r, _ := z.Dims()
	for i, j := 0, r-1; i < j; i, j = i+1, j-1 {
		ri, rj := mat.Row(nil, i, z), mat.Row(nil, j, z)
		z.SetRow(i, rj)
		z.SetRow(j, ri)
	}
}

func flipCols(z *mat.Dense) {
	_, c := z.Dims()
	for i, j := 0, c-1; i < j; i, j = i+1, j-1 {
		ci, cj := mat.Col(nil, i, z), mat.Col(nil, j, z)
		z.SetCol(i, cj)
		z.SetCol(j, ci)
	}
}
