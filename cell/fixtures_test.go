package cell

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/notargets/P2DCell/mesh"
	"github.com/notargets/P2DCell/tables"
	"github.com/notargets/P2DCell/utils"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// Smooth synthetic material data. The model only sees the splines, so
// their accuracy against these functions does not matter.
func deFn(c, T float64) float64 {
	return 1.e-10 * (1 + 2.e-4*c + 1.e-8*c*c) * math.Exp(0.01*(T-298))
}

func kappaFn(c, T float64) float64 {
	return (5 + 0.004*c - 1.e-6*c*c) * (1 + 0.02*(T-298))
}

func ioAFn(x, T float64) float64 { return 1.5 * (1 + 0.2*x) * math.Exp(0.03*(T-298)) }
func ioCFn(x, T float64) float64 { return 2.0 * (1 + 0.1*x*x) * math.Exp(0.02*(T-298)) }
func uAFn(x float64) float64     { return 0.1 + 0.5*math.Exp(-5*x) }
func uCFn(x float64) float64     { return 4.3 - 1.0*x + 0.3*x*x }

func grid(lo, hi float64, n int) (g []float64) {
	g = make([]float64, n)
	for i := range g {
		g[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return
}

func sampleSurface(t *testing.T, name string, x, y []float64, f func(x, y float64) float64) *tables.Surface {
	t.Helper()
	z := mat.NewDense(len(x), len(y), nil)
	for i := range x {
		for j := range y {
			z.Set(i, j, f(x[i], y[j]))
		}
	}
	s, err := tables.NewSurface(name, x, y, z)
	require.NoError(t, err)
	return s
}

func sampleCurve(t *testing.T, name string, x []float64, f func(x float64) float64) *tables.Curve {
	t.Helper()
	y := make([]float64, len(x))
	for i := range x {
		y[i] = f(x[i])
	}
	c, err := tables.NewCurve(name, x, y)
	require.NoError(t, err)
	return c
}

func testTables(t *testing.T) *Tables {
	t.Helper()
	ce := grid(0, 4000, 41)
	temp := grid(260, 340, 17)
	x := grid(0, 1, 21)
	return &Tables{
		De:        sampleSurface(t, "De", ce, temp, deFn),
		Kappa:     sampleSurface(t, "kappa", ce, temp, kappaFn),
		IoAnode:   sampleSurface(t, "io_anode", x, temp, ioAFn),
		IoCathode: sampleSurface(t, "io_cathode", x, temp, ioCFn),
		UAnode:    sampleCurve(t, "U_anode", grid(0, 1, 41), uAFn),
		UCathode:  sampleCurve(t, "U_cathode", grid(0, 1, 41), uCFn),
	}
}

func newTestModel(t *testing.T, na, ns, nc int) *Model {
	t.Helper()
	m, err := mesh.NewMesh1D(145.e-6, na, ns, nc)
	require.NoError(t, err)
	model, err := New(m, DefaultParameters(), testTables(t), 298)
	require.NoError(t, err)
	return model
}

// perturbedState is a state away from equilibrium in every segment
func perturbedState(model *Model) (y, yd []float64) {
	sl := model.Layout()
	p := model.Parameters()
	y = make([]float64, sl.Len())
	yd = make([]float64, sl.Len())
	for i := range yd {
		yd[i] = 0.1 * float64(i)
	}
	ce := sl.Segment(y, utils.Ce)
	for i := range ce {
		ce[i] = 1100 + 200*math.Sin(float64(i))
	}
	sl.Segment(y, utils.Temp)[0] = 300.5
	csa, ja, pa := sl.Segment(y, utils.Csa), sl.Segment(y, utils.Ja), sl.Segment(y, utils.PhiSA)
	for i := range csa {
		fi := float64(i)
		csa[i] = 0.6*p.CsMaxA + 500*math.Cos(fi)
		ja[i] = 3.e-6 * (1 + 0.1*fi)
		pa[i] = uAFn(csa[i]/p.CsMaxA) + 0.01*fi
	}
	csc, jc, pc := sl.Segment(y, utils.Csc), sl.Segment(y, utils.Jc), sl.Segment(y, utils.PhiSC)
	for i := range csc {
		fi := float64(i)
		csc[i] = 0.5*p.CsMaxC + 800*math.Sin(fi)
		jc[i] = -2.e-6 * (1 + 0.1*fi)
		pc[i] = uCFn(csc[i]/p.CsMaxC) + 0.005*fi
	}
	pe := sl.Segment(y, utils.PhiE)
	for i := range pe {
		pe[i] = -0.05 + 0.01*math.Sin(float64(i))
	}
	return
}

// dataTables loads the material tables shipped in data/
func dataTables(t *testing.T) *Tables {
	t.Helper()
	tabs := &Tables{}
	for _, s := range []struct {
		file string
		dst  **tables.Surface
	}{
		{"De.csv", &tabs.De}, {"kappa.csv", &tabs.Kappa},
		{"io_anode.csv", &tabs.IoAnode}, {"io_cathode.csv", &tabs.IoCathode},
	} {
		var err error
		*s.dst, err = tables.LoadSurface(filepath.Join("..", "data", s.file))
		require.NoError(t, err)
	}
	var err error
	tabs.UAnode, err = tables.LoadCurve(filepath.Join("..", "data", "U_anode.csv"))
	require.NoError(t, err)
	tabs.UCathode, err = tables.LoadCurve(filepath.Join("..", "data", "U_cathode.csv"))
	require.NoError(t, err)
	return tabs
}
