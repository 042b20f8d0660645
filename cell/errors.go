package cell

import (
	"errors"
	"fmt"

	"github.com/notargets/P2DCell/utils"
)

var (
	// ErrDimensionMismatch is matched by *DimensionError
	ErrDimensionMismatch = utils.ErrDimensionMismatch
	// ErrNonConvergent marks an evaluation that produced a value the
	// integrator cannot linearize around, such as a non-finite entry
	ErrNonConvergent = errors.New("non-convergent linearization")

	// Stop conditions of a discharge
	ErrVoltageCutoff      = errors.New("voltage below cutoff")
	ErrConcentrationLimit = errors.New("electrolyte concentration outside limits")
)

// DimensionError reports a vector whose length does not match the layout
type DimensionError = utils.DimensionError

// NonFiniteError reports the first NaN or Inf found in an evaluation stage
type NonFiniteError struct {
	Stage string
	Index int
	Value float64
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("%s: non-finite value %g at index %d", e.Stage, e.Value, e.Index)
}

func (e *NonFiniteError) Unwrap() error { return ErrNonConvergent }

func checkLen(name string, v []float64, want int) error {
	if len(v) != want {
		return &DimensionError{Name: name, Want: want, Got: len(v)}
	}
	return nil
}
