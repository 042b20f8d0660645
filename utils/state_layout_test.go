package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateLayoutPartition(t *testing.T) {
	for _, dims := range [][3]int{{1, 1, 1}, {3, 2, 4}, {33, 10, 37}, {35, 13, 32}, {2, 50, 7}} {
		na, ns, nc := dims[0], dims[1], dims[2]
		sl, err := NewStateLayout(na, ns, nc)
		require.NoError(t, err)
		N := na + ns + nc

		// Segment sizes N, Na, Nc, 1, Na, Nc, N, Na, Nc
		assert.Equal(t, 2*N+3*na+3*nc+1, sl.Len())
		assert.Equal(t, N+na+nc+1, sl.NumDiff)
		assert.Equal(t, sl.Len(), sl.NumDiff+sl.NumAlg)

		// Every index is covered by exactly one segment
		owner := make([]int, sl.Len())
		for s := Segment(0); s < NumSegments; s++ {
			for _, i := range sl.Indices(s) {
				owner[i]++
			}
		}
		for i, c := range owner {
			if c != 1 {
				t.Fatalf("dims %v: index %d covered %d times", dims, i, c)
			}
		}
		assert.Equal(t, 0, sl.Offset(Ce))
		assert.Equal(t, N+na+nc, sl.Offset(Temp))
	}
}

func TestStateLayoutSegments(t *testing.T) {
	sl, err := NewStateLayout(3, 2, 4)
	require.NoError(t, err)

	y := make([]float64, sl.Len())
	for i := range y {
		y[i] = float64(i)
	}
	T := sl.Segment(y, Temp)
	require.Len(t, T, 1)
	assert.Equal(t, float64(sl.Offset(Temp)), T[0])

	// Segments alias the state
	pa := sl.Segment(y, PhiSA)
	pa[0] = -1
	assert.Equal(t, -1.0, y[sl.Offset(PhiSA)])

	assert.Equal(t, sl.Segment(y, PhiE), Pick(y, sl.Indices(PhiE)))

	Place(y, sl.Indices(Jc), []float64{7, 7, 7, 7})
	for _, v := range sl.Segment(y, Jc) {
		assert.Equal(t, 7.0, v)
	}
	assert.Panics(t, func() { Place(y, sl.Indices(Jc), []float64{1}) })

	mask := sl.AlgebraicMask()
	assert.True(t, mask[sl.Offset(Temp)])
	assert.False(t, mask[sl.Offset(Ja)])
	assert.True(t, Csc.Differential())
	assert.False(t, PhiE.Differential())

	alg := sl.AlgebraicIndices()
	require.Len(t, alg, sl.NumAlg)
	assert.Equal(t, sl.Offset(Ja), alg[0])
	assert.Equal(t, sl.Len()-1, alg[len(alg)-1])
	for _, i := range alg {
		assert.False(t, mask[i], "index %d", i)
	}

	assert.NoError(t, sl.Validate("y", y))
	err = sl.Validate("yd", y[1:])
	require.ErrorIs(t, err, ErrDimensionMismatch)
	var de *DimensionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "yd", de.Name)
	assert.Equal(t, sl.Len(), de.Want)
	assert.Equal(t, sl.Len()-1, de.Got)
	assert.Equal(t, "phi_s_c", PhiSC.String())
}

func TestNewStateLayoutInvalid(t *testing.T) {
	_, err := NewStateLayout(0, 1, 1)
	assert.Error(t, err)
}
