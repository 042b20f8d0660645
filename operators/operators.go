// Package operators holds finite-volume operators on a 1-D control-volume
// mesh. Node arrays have length N, edge arrays N+1 with edge e between nodes
// e-1 and e.
package operators

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MidToEdge converts node values to edge values with the weighted harmonic
// blend edge[e] = a*b / (w*b + (1-w)*a), a = v[e-1], b = v[e] and
// w = dxLeft/(dxLeft+dxRight). Boundary edges copy the adjacent node.
func MidToEdge(v, xe []float64) (edge []float64) {
	n := len(v)
	checkEdges("MidToEdge", n, xe)
	edge = make([]float64, n+1)
	edge[0] = v[0]
	for e := 1; e < n; e++ {
		w := edgeWeight(xe, e)
		a, b := v[e-1], v[e]
		edge[e] = a * b / (w*b + (1-w)*a)
	}
	edge[n] = v[n-1]
	return
}

// MidToEdgeJacobian returns the (N+1)xN derivative of MidToEdge at v
func MidToEdgeJacobian(v, xe []float64) (E *mat.Dense) {
	n := len(v)
	checkEdges("MidToEdgeJacobian", n, xe)
	E = mat.NewDense(n+1, n, nil)
	E.Set(0, 0, 1)
	for e := 1; e < n; e++ {
		w := edgeWeight(xe, e)
		a, b := v[e-1], v[e]
		D := w*b + (1-w)*a
		D2 := D * D
		E.Set(e, e-1, w*b*b/D2)
		E.Set(e, e, (1-w)*a*a/D2)
	}
	E.Set(n, n-1, E.At(n, n-1)+1)
	return
}

func edgeWeight(xe []float64, e int) float64 {
	left := xe[e] - xe[e-1]
	right := xe[e+1] - xe[e]
	return left / (left + right)
}

// FluxMatrix assembles the NxN divergence of the flux P*grad(u), each row
// normalized by its control volume width. Both domain ends are zero flux.
func FluxMatrix(n int, xm, vols, P []float64) (A *mat.Dense) {
	checkFlux("FluxMatrix", n, xm, vols, P)
	A = mat.NewDense(n, n, nil)
	for e := 1; e < n; e++ {
		a := P[e] / (xm[e] - xm[e-1])
		l, r := a/vols[e-1], a/vols[e]
		A.Set(e-1, e-1, A.At(e-1, e-1)-l)
		A.Set(e-1, e, A.At(e-1, e)+l)
		A.Set(e, e-1, A.At(e, e-1)+r)
		A.Set(e, e, A.At(e, e)-r)
	}
	return
}

// FluxBand is FluxMatrix in tridiagonal band storage
func FluxBand(n int, xm, vols, P []float64) (A *mat.BandDense) {
	checkFlux("FluxBand", n, xm, vols, P)
	A = mat.NewBandDense(n, n, 1, 1, nil)
	for e := 1; e < n; e++ {
		a := P[e] / (xm[e] - xm[e-1])
		l, r := a/vols[e-1], a/vols[e]
		A.SetBand(e-1, e-1, A.At(e-1, e-1)-l)
		A.SetBand(e-1, e, A.At(e-1, e)+l)
		A.SetBand(e, e-1, A.At(e, e-1)+r)
		A.SetBand(e, e, A.At(e, e)-r)
	}
	return
}

// FluxEdgeSensitivity returns the Nx(N+1) matrix S with
// S*dP = FluxMatrix(dP)*u, the derivative of the flux divergence with
// respect to the edge coefficients
func FluxEdgeSensitivity(xm, vols, u []float64) (S *mat.Dense) {
	n := len(u)
	if len(xm) != n || len(vols) != n {
		panic(fmt.Sprintf("FluxEdgeSensitivity: lengths xm=%d vols=%d u=%d", len(xm), len(vols), n))
	}
	S = mat.NewDense(n, n+1, nil)
	for e := 1; e < n; e++ {
		g := (u[e] - u[e-1]) / (xm[e] - xm[e-1])
		S.Set(e-1, e, S.At(e-1, e)+g/vols[e-1])
		S.Set(e, e, S.At(e, e)-g/vols[e])
	}
	return
}

// GradMatrix builds the NxN first derivative operator on points x, centered
// in the interior and one-sided at both ends
func GradMatrix(n int, x []float64) (G *mat.Dense) {
	if n < 2 || len(x) != n {
		panic(fmt.Sprintf("GradMatrix: need at least 2 points, have n=%d len(x)=%d", n, len(x)))
	}
	G = mat.NewDense(n, n, nil)
	for i := 1; i < n-1; i++ {
		d := 1 / (x[i+1] - x[i-1])
		G.Set(i, i-1, -d)
		G.Set(i, i+1, d)
	}
	d := 1 / (x[1] - x[0])
	G.Set(0, 0, -d)
	G.Set(0, 1, d)
	d = 1 / (x[n-1] - x[n-2])
	G.Set(n-1, n-2, -d)
	G.Set(n-1, n-1, d)
	return
}

// Gradient returns GradMatrix(len(x), x)*u without forming the matrix
func Gradient(x, u []float64) (g []float64) {
	n := len(u)
	if n < 2 || len(x) != n {
		panic(fmt.Sprintf("Gradient: need at least 2 points, have len(u)=%d len(x)=%d", n, len(x)))
	}
	g = make([]float64, n)
	for i := 1; i < n-1; i++ {
		g[i] = (u[i+1] - u[i-1]) / (x[i+1] - x[i-1])
	}
	g[0] = (u[1] - u[0]) / (x[1] - x[0])
	g[n-1] = (u[n-1] - u[n-2]) / (x[n-1] - x[n-2])
	return
}

func checkEdges(op string, n int, xe []float64) {
	if n < 1 || len(xe) != n+1 {
		panic(fmt.Sprintf("%s: %d nodes need %d edges, have %d", op, n, n+1, len(xe)))
	}
}

func checkFlux(op string, n int, xm, vols, P []float64) {
	if len(xm) != n || len(vols) != n || len(P) != n+1 {
		panic(fmt.Sprintf("%s: n=%d with xm=%d vols=%d P=%d",
			op, n, len(xm), len(vols), len(P)))
	}
}
