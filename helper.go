package dpfae

import (
	"gonum.org/v1/gonum/mat"
)

// Identity returns an identity matrix of the provided size.
func Identity(n int) *mat.SymDense {
	return ScaledIdentity(n, 1)
}

// ScaledIdentity returns s*I of the provided size.
func ScaledIdentity(n int, s float64) *mat.SymDense {
	vals := make([]float64, n*n)
	for j := 0; j < n*n; j++ {
		if j%(n+1) == 0 {
			vals[j] = s
		}
	}
	return mat.NewSymDense(n, vals)
}

// Symmetrize returns (m + m')/2 as a SymDense. The covariance update (I-K)*P
// is only symmetric up to rounding, so the EKF stores its covariance through here.
func Symmetrize(m mat.Matrix) *mat.SymDense {
	r, c := m.Dims()
	if r != c {
		panic(mat.ErrSquare)
	}
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			sym.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return sym
}
