package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ReadSurface parses a 2-D map. The first row holds the second variable's
// breakpoints after a corner cell, each following row holds a first
// variable breakpoint and then its values.
func ReadSurface(name string, r io.Reader) (*Surface, error) {
	rows, err := readFloats(name, r)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("surface %q: need a header and at least one data row", name)
	}
	ncol := len(rows[0])
	for i, row := range rows {
		if len(row) != ncol {
			return nil, fmt.Errorf("surface %q: row %d has %d fields, header has %d",
				name, i+1, len(row), ncol)
		}
	}
	y := rows[0][1:]
	x := make([]float64, len(rows)-1)
	z := mat.NewDense(len(x), len(y), nil)
	for i, row := range rows[1:] {
		x[i] = row[0]
		z.SetRow(i, row[1:])
	}
	return NewSurface(name, x, y, z)
}

// ReadCurve parses a two column breakpoint/value table
func ReadCurve(name string, r io.Reader) (*Curve, error) {
	rows, err := readFloats(name, r)
	if err != nil {
		return nil, err
	}
	x, y := make([]float64, len(rows)), make([]float64, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("curve %q: row %d has %d fields, need 2", name, i+1, len(row))
		}
		x[i], y[i] = row[0], row[1]
	}
	return NewCurve(name, x, y)
}

// LoadSurface reads a 2-D map from a CSV file, named after the file
func LoadSurface(path string) (*Surface, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSurface(tableName(path), f)
}

// LoadCurve reads a 1-D curve from a CSV file, named after the file
func LoadCurve(path string) (*Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCurve(tableName(path), f)
}

func tableName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func readFloats(name string, r io.Reader) (rows [][]float64, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		row := make([]float64, len(rec))
		for j, field := range rec {
			field = strings.TrimSpace(field)
			if field == "" && line == 1 && j == 0 {
				continue // Corner cell of a 2-D map
			}
			if row[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("table %q: line %d field %d: %w", name, line, j+1, err)
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table %q: no data", name)
	}
	return
}
