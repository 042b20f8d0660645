package tables

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Curve is a monotone piecewise cubic through 1-D breakpoints, used for
// open circuit potential against stoichiometry
type Curve struct {
	Name   string
	Source Source
	X, Y   []float64
	Clamp  bool

	fb interp.FritschButland
}

// NewCurve fits a curve, reversing descending breakpoints
func NewCurve(name string, x, y []float64) (c *Curve, err error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("curve %q: %d breakpoints but %d values", name, len(x), len(y))
	}
	x, y = append([]float64(nil), x...), append([]float64(nil), y...)
	if descending(x) {
		reverse(x)
		reverse(y)
	}
	if err = checkAxis(name, x); err != nil {
		return nil, err
	}
	c = &Curve{Name: name, X: x, Y: y}
	if err = c.fb.Fit(x, y); err != nil {
		return nil, fmt.Errorf("curve %q: %w", name, err)
	}
	return
}

// Eval returns the curve value at x and its slope
func (c *Curve) Eval(x float64) (v, dv float64, err error) {
	x, clamped, err := bound(c.Name, c.Source, c.Clamp, 0, x, c.X)
	if err != nil {
		return
	}
	v = c.fb.Predict(x)
	if !clamped {
		dv = c.fb.PredictDerivative(x)
	}
	return
}

// Value returns the curve value at x
func (c *Curve) Value(x float64) (float64, error) {
	v, _, err := c.Eval(x)
	return v, err
}
