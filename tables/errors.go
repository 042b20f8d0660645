package tables

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is matched by every *OutOfRangeError
var ErrOutOfRange = errors.New("table lookup out of range")

// Source identifies which family of tables a failed lookup belongs to
type Source uint8

const (
	Unspecified   Source = iota
	Concentration        // Electrolyte transport maps (diffusivity, conductivity)
	Kinetics             // Exchange current and open circuit potential
)

func (s Source) String() string {
	switch s {
	case Concentration:
		return "concentration"
	case Kinetics:
		return "kinetics"
	}
	return "unspecified"
}

// OutOfRangeError reports a lookup argument outside a table's breakpoints
type OutOfRangeError struct {
	Table    string
	Source   Source
	Axis     int // 0 for the first (row) variable, 1 for the second
	Value    float64
	Min, Max float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s table %q: axis %d value %g outside [%g, %g]",
		e.Source, e.Table, e.Axis, e.Value, e.Min, e.Max)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// WithSource tags an out of range error with src. Other errors are returned
// unchanged.
func WithSource(err error, src Source) error {
	var oor *OutOfRangeError
	if errors.As(err, &oor) {
		tagged := *oor
		tagged.Source = src
		return &tagged
	}
	return err
}
