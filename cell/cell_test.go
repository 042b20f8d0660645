package cell

import (
	"errors"
	"math"
	"testing"

	"github.com/notargets/P2DCell/mesh"
	"github.com/notargets/P2DCell/partitions"
	"github.com/notargets/P2DCell/tables"
	"github.com/notargets/P2DCell/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

func TestNewModel(t *testing.T) {
	model := newTestModel(t, 3, 2, 4)
	sl := model.Layout()
	assert.Equal(t, 2*9+3*3+3*4+1, sl.Len())
	assert.Equal(t, 9+3+4+1, model.NumDiffVars())
	assert.Equal(t, sl.Len()-model.NumDiffVars(), model.NumAlgVars())
	mask := model.AlgebraicMask()
	for i, v := range mask {
		assert.Equal(t, i < model.NumDiffVars(), v, "mask[%d]", i)
	}

	// Collector sources at the outer edge of each electrode
	assert.Equal(t, -1.0, model.an.b2ps[0])
	assert.Equal(t, -1.0, model.ca.b2ps[3])
	for i := 1; i < 4; i++ {
		assert.Zero(t, model.ca.b2ps[i-1])
	}
	// No reaction in the separator
	for i := 3; i < 5; i++ {
		assert.Zero(t, model.bce[i])
		assert.Zero(t, model.b2pe[i])
	}
	p := model.Parameters()
	assert.InDelta(t, 3*(1-p.EpsA)/p.RpA, model.an.asMean, 1.e-6)
	assert.Contains(t, model.String(), "Cell Model Summary")

	_, err := New(model.Mesh(), p, &Tables{}, 298)
	assert.Error(t, err)
	_, err = New(model.Mesh(), p, testTables(t), -1)
	assert.Error(t, err)
	p.EpsC = 1.5
	_, err = New(model.Mesh(), p, testTables(t), 298)
	assert.Error(t, err)
}

func TestAppliedCurrentAndVoltage(t *testing.T) {
	model := newTestModel(t, 3, 2, 4)
	model.SetAppliedCurrent(14.5)
	assert.Equal(t, 14.5, model.AppliedCurrent())

	sl := model.Layout()
	y := make([]float64, sl.Len())
	sl.Segment(y, utils.PhiSA)[0] = 0.1
	pc := sl.Segment(y, utils.PhiSC)
	pc[len(pc)-1] = 3.9
	v, err := model.Voltage(y)
	require.NoError(t, err)
	assert.InDelta(t, 3.8, v, 1.e-12)

	_, err = model.Voltage(y[1:])
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

// rowScale is the magnitude of the terms summed into each residual entry
func rowScale(t *testing.T, model *Model, y, yd []float64) []float64 {
	J, err := model.Jacobian(0, 0, y, yd)
	require.NoError(t, err)
	n := len(y)
	s := make([]float64, n)
	for i := 0; i < n; i++ {
		s[i] = 1 + math.Abs(yd[i])
		for k := 0; k < n; k++ {
			s[i] += math.Abs(J.At(i, k) * y[k])
		}
	}
	return s
}

func TestRestStateIsConsistent(t *testing.T) {
	for _, dims := range [][3]int{{3, 2, 4}, {5, 3, 6}} {
		model := newTestModel(t, dims[0], dims[1], dims[2])
		y0, yd0, err := model.InitialState(DefaultInitialConditions())
		require.NoError(t, err)

		r, err := model.ResidualVector(0, y0, yd0)
		require.NoError(t, err)
		scale := rowScale(t, model, y0, yd0)
		for i := range r {
			assert.InDelta(t, 0, r[i], 1.e-9*scale[i], "r[%d]", i)
		}

		d, err := model.Diagnostics(y0)
		require.NoError(t, err)
		assert.InDelta(t, d.OCV, d.Voltage, 1.e-9)
		assert.InDelta(t, uCFn(0.37)-uAFn(0.8), d.Voltage, 1.e-4)
		assert.Zero(t, d.Resistance)
		assert.Zero(t, d.CurrentA)
		assert.InDelta(t, 0, d.Qin, 1.e-9)
	}
}

func TestRestStateFullSize(t *testing.T) {
	na, ns, nc, err := partitions.SplitCounts(80, 65.e-6, 25.e-6, 55.e-6)
	require.NoError(t, err)
	m, err := mesh.NewMesh1D(145.e-6, na, ns, nc)
	require.NoError(t, err)
	model, err := New(m, DefaultParameters(), testTables(t), 298.15)
	require.NoError(t, err)

	ic := DefaultInitialConditions()
	y0, yd0, err := model.InitialState(ic)
	require.NoError(t, err)
	assert.Len(t, y0, 2*80+3*na+3*nc+1)

	ec, err := model.Residual(0, y0, yd0, make([]float64, len(y0)))
	require.NoError(t, err)
	for i, j := range ec.Ja {
		assert.InDelta(t, 0, j, 1.e-12, "ja[%d]", i)
	}
	for i, j := range ec.Jc {
		assert.InDelta(t, 0, j, 1.e-12, "jc[%d]", i)
	}
	assert.NoError(t, model.CheckLimits(y0, DefaultLimits()))
}

func TestShippedTables(t *testing.T) {
	m, err := mesh.NewMesh1D(145.e-6, 33, 10, 37)
	require.NoError(t, err)
	model, err := New(m, DefaultParameters(), dataTables(t), 298.15)
	require.NoError(t, err)
	require.Equal(t, 2*80+3*33+3*37+1, model.Layout().Len())

	y0, yd0, err := model.InitialState(DefaultInitialConditions())
	require.NoError(t, err)
	r, err := model.ResidualVector(0, y0, yd0)
	require.NoError(t, err)
	scale := rowScale(t, model, y0, yd0)
	for i := range r {
		assert.InDelta(t, 0, r[i], 1.e-9*scale[i], "r[%d]", i)
	}
	v, err := model.Voltage(y0)
	require.NoError(t, err)
	assert.InDelta(t, 3.815, v, 5.e-3)

	model.SetAppliedCurrent(14.5)
	y, yd := perturbedState(model)
	checkJacobian(t, model, y, yd)
}

func TestResidualBlocks(t *testing.T) {
	model := newTestModel(t, 3, 2, 4)
	model.SetAppliedCurrent(14.5)
	y, yd := perturbedState(model)
	r := make([]float64, len(y))
	ec, err := model.Residual(0, y, yd, r)
	require.NoError(t, err)
	sl := model.Layout()

	// Algebraic flux rows
	ja, rja := sl.Segment(y, utils.Ja), sl.Segment(r, utils.Ja)
	for i := range ja {
		assert.InDelta(t, ja[i]-ec.Ja[i], rja[i], 1.e-18)
	}
	// Solid concentration rows are decoupled from everything but the flux
	csd, rcs := sl.Segment(yd, utils.Csc), sl.Segment(r, utils.Csc)
	jc := sl.Segment(y, utils.Jc)
	rp := model.Parameters().RpC
	for i := range rcs {
		assert.InDelta(t, csd[i]+3/rp*jc[i], rcs[i], 1.e-9)
	}
	// Temperature row
	f := 1 / (model.rho * model.Parameters().Cp)
	assert.InDelta(t, yd[sl.Offset(utils.Temp)]-f*(ec.Heat.Total-model.hA*(300.5-298)),
		r[sl.Offset(utils.Temp)], 1.e-9)
	assert.Greater(t, ec.Heat.OhmS, 0.0)

	// The applied current enters only the collector rows
	r0 := append([]float64(nil), r...)
	model.SetAppliedCurrent(0)
	_, err = model.Residual(0, y, yd, r)
	require.NoError(t, err)
	for i := range r {
		switch i {
		case sl.Offset(utils.PhiSA):
			assert.InDelta(t, r[i]+14.5, r0[i], 1.e-9)
		case sl.Offset(utils.PhiSC) + 3:
			assert.InDelta(t, r[i]-14.5, r0[i], 1.e-9)
		default:
			assert.Equal(t, r[i], r0[i], "r[%d]", i)
		}
	}
}

func TestJacobianMatchesFiniteDifference(t *testing.T) {
	for _, dims := range [][3]int{{3, 2, 4}, {4, 3, 5}} {
		model := newTestModel(t, dims[0], dims[1], dims[2])
		model.SetAppliedCurrent(14.5)
		y, yd := perturbedState(model)
		checkJacobian(t, model, y, yd)
	}
}

// checkJacobian compares the assembled Jacobian with central differences
// of the residual
func checkJacobian(t *testing.T, model *Model, y, yd []float64) {
	t.Helper()
	n := len(y)
	dims := [3]int{model.Mesh().Na, model.Mesh().Ns, model.Mesh().Nc}

	// Differentiate in scaled variables y = s*z
	s := make([]float64, n)
	z := make([]float64, n)
	for k := range y {
		s[k] = math.Abs(y[k])
		if s[k] == 0 {
			s[k] = 1
		}
		z[k] = y[k] / s[k]
	}
	yy := make([]float64, n)
	f := func(r, z []float64) {
		for k := range z {
			yy[k] = z[k] * s[k]
		}
		_, err := model.Residual(0, yy, yd, r)
		require.NoError(t, err)
	}
	Jfd := mat.NewDense(n, n, nil)
	fd.Jacobian(Jfd, f, z, &fd.JacobianSettings{Formula: fd.Central, Step: 1.e-6})

	J, err := model.Jacobian(0, 0, y, yd)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		var rowMax float64
		for k := 0; k < n; k++ {
			rowMax = math.Max(rowMax, math.Abs(J.At(i, k)*s[k]))
		}
		for k := 0; k < n; k++ {
			an := J.At(i, k) * s[k]
			tol := 1.e-3*math.Abs(an) + 1.e-6*rowMax
			if d := math.Abs(Jfd.At(i, k) - an); d > tol {
				t.Errorf("%v: J[%d][%d] = %g, finite difference %g", dims, i, k, an, Jfd.At(i, k))
			}
		}
	}
}

func TestJacobianShift(t *testing.T) {
	model := newTestModel(t, 3, 2, 4)
	y, yd := perturbedState(model)
	J0, err := model.Jacobian(0, 0, y, yd)
	require.NoError(t, err)
	ec, err := model.Residual(0, y, yd, make([]float64, len(y)))
	require.NoError(t, err)
	c := 2.5
	Jc, err := model.JacobianFrom(ec, c)
	require.NoError(t, err)
	n := len(y)
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			want := J0.At(i, k)
			if i == k && i < model.NumDiffVars() {
				want += c
			}
			if math.Abs(Jc.At(i, k)-want) > 1.e-12*(1+math.Abs(want)) {
				t.Errorf("J[%d][%d] = %g, expected %g", i, k, Jc.At(i, k), want)
			}
		}
	}
	_, err = model.Jacobian(c, 0, y, nil)
	assert.NoError(t, err)
}

func TestDimensionMismatch(t *testing.T) {
	model := newTestModel(t, 3, 2, 4)
	y, yd := perturbedState(model)
	r := make([]float64, len(y))

	_, err := model.Residual(0, y[:len(y)-1], yd, r)
	require.ErrorIs(t, err, ErrDimensionMismatch)
	var de *DimensionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "y", de.Name)
	assert.Equal(t, len(y), de.Want)
	assert.Equal(t, len(y)-1, de.Got)

	_, err = model.Residual(0, y, yd, r[:3])
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = model.Jacobian(0, 0, y, yd[1:])
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = model.DiffusivityField(y[:2], 298)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestOutOfRangeSource(t *testing.T) {
	model := newTestModel(t, 3, 2, 4)
	sl := model.Layout()
	var oe *tables.OutOfRangeError

	y, yd := perturbedState(model)
	sl.Segment(y, utils.Ce)[4] = 5000
	_, err := model.ResidualVector(0, y, yd)
	require.ErrorIs(t, err, tables.ErrOutOfRange)
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, tables.Concentration, oe.Source)
	assert.Equal(t, 0, oe.Axis)
	assert.Equal(t, 5000.0, oe.Value)

	y, yd = perturbedState(model)
	sl.Segment(y, utils.Csc)[1] = 1.2 * model.Parameters().CsMaxC
	_, err = model.ResidualVector(0, y, yd)
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, tables.Kinetics, oe.Source)

	// The shared tables keep their own source
	assert.Equal(t, tables.Unspecified, model.tabs.UCathode.Source)
}

func TestNonConvergent(t *testing.T) {
	model := newTestModel(t, 3, 2, 4)
	sl := model.Layout()

	y, yd := perturbedState(model)
	sl.Segment(y, utils.Temp)[0] = -1
	_, err := model.ResidualVector(0, y, yd)
	assert.ErrorIs(t, err, ErrNonConvergent)

	y, yd = perturbedState(model)
	sl.Segment(y, utils.Ce)[0] = 0
	_, err = model.ResidualVector(0, y, yd)
	assert.ErrorIs(t, err, ErrNonConvergent)

	y, yd = perturbedState(model)
	sl.Segment(y, utils.PhiE)[2] = math.NaN()
	_, err = model.ResidualVector(0, y, yd)
	require.ErrorIs(t, err, ErrNonConvergent)
	var nf *NonFiniteError
	assert.True(t, errors.As(err, &nf))

	// A surface concentration at full lithiation has no exchange current
	y, yd = perturbedState(model)
	sl.Segment(y, utils.Csa)[0] = model.Parameters().CsMaxA
	sl.Segment(y, utils.Ja)[0] = 0
	_, err = model.ResidualVector(0, y, yd)
	assert.ErrorIs(t, err, ErrNonConvergent)
}

func TestTransportEntryPoints(t *testing.T) {
	model := newTestModel(t, 3, 2, 4)
	p := model.Parameters()
	T := 305.

	d, err := model.DiffusivityScalar(1200, T)
	require.NoError(t, err)
	require.Len(t, d, 9)
	assert.InEpsilon(t, deFn(1200, T)*math.Pow(p.EpsA, 1+p.BrugA), d[0], 1.e-4)
	assert.InEpsilon(t, deFn(1200, T)*math.Pow(p.EpsC, 1+p.BrugC), d[8], 1.e-4)

	k, err := model.ConductivityScalar(1200, T)
	require.NoError(t, err)
	assert.InEpsilon(t, 0.1*kappaFn(1200, T)*math.Pow(p.EpsS, 1+p.BrugS), k[3], 1.e-4)

	ce := make([]float64, 9)
	for i := range ce {
		ce[i] = 1200
	}
	edge, err := model.DiffusivityField(ce, T)
	require.NoError(t, err)
	require.Len(t, edge, 10)
	assert.Equal(t, d[0], edge[0])
	assert.Equal(t, d[8], edge[9])
	mid, err := model.ConductivityField(ce, T, true)
	require.NoError(t, err)
	assert.InDeltaSlice(t, k, mid, 1.e-12)
	edge, err = model.ConductivityField(ce, T, false)
	require.NoError(t, err)
	assert.Len(t, edge, 10)

	_, err = model.DiffusivityScalar(-10, T)
	var oe *tables.OutOfRangeError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, tables.Concentration, oe.Source)
}

func TestCheckLimits(t *testing.T) {
	model := newTestModel(t, 3, 2, 4)
	y0, _, err := model.InitialState(DefaultInitialConditions())
	require.NoError(t, err)
	lim := DefaultLimits()
	assert.NoError(t, model.CheckLimits(y0, lim))

	sl := model.Layout()
	y := append([]float64(nil), y0...)
	pc := sl.Segment(y, utils.PhiSC)
	pc[len(pc)-1] = 2.9
	assert.ErrorIs(t, model.CheckLimits(y, lim), ErrVoltageCutoff)

	y = append([]float64(nil), y0...)
	sl.Segment(y, utils.Ce)[2] = 50
	assert.ErrorIs(t, model.CheckLimits(y, lim), ErrConcentrationLimit)

	_, _, err = model.InitialState(InitialConditions{Ce: 1100, XA: 1.3, XC: 0.4})
	var oe *tables.OutOfRangeError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, tables.Kinetics, oe.Source)
}

func TestDiagnosticsUnderLoad(t *testing.T) {
	model := newTestModel(t, 3, 2, 4)
	model.SetAppliedCurrent(14.5)
	y, _ := perturbedState(model)
	d, err := model.Diagnostics(y)
	require.NoError(t, err)
	assert.InDelta(t, (d.OCV-d.Voltage)/14.5, d.Resistance, 1.e-12)
	assert.InDelta(t, d.Qin/(14.5*14.5), d.HeatPerAmp2, 1.e-12)
	assert.Greater(t, d.CurrentA, 0.0)
	assert.Less(t, d.CurrentC, 0.0)
	assert.InDelta(t, d.Heat.Rxn+d.Heat.Conc+d.Heat.OhmE+d.Heat.OhmS, d.Qin, 1.e-12*math.Abs(d.Qin)+1.e-15)
}
