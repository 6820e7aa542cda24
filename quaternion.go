package dpfae

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

const (
	minInt32 = math.MinInt32
	maxInt32 = math.MaxInt32
)

// IdentityQuaternion is the zero rotation.
var IdentityQuaternion = quat.Number{Real: 1}

// Dot returns the 4D inner product of two quaternions.
func Dot(p, q quat.Number) float64 {
	return p.Real*q.Real + p.Imag*q.Imag + p.Jmag*q.Jmag + p.Kmag*q.Kmag
}

// Norm returns the Euclidean norm of q.
func Norm(q quat.Number) float64 {
	return quat.Abs(q)
}

// IsFinite returns false if any component of q is NaN or infinite.
func IsFinite(q quat.Number) bool {
	return !quat.IsNaN(q) && !quat.IsInf(q)
}

// Normalize returns q/|q|. Unlike the fixed-point projection there is no epsilon:
// a norm that is zero, subnormal-small or non-finite returns ErrSingularUpdate.
func Normalize(q quat.Number) (quat.Number, error) {
	n := Norm(q)
	if !(n > normTolerance) || math.IsInf(n, 0) {
		return quat.Number{}, errors.Wrapf(ErrSingularUpdate, "|q|=%g", n)
	}
	return quat.Scale(1/n, q), nil
}

// AngularError returns the rotation angle in radians separating est from target.
// The absolute dot product makes it invariant to the q/-q double cover; the result lies in [0, π].
func AngularError(est, target quat.Number) float64 {
	d := math.Abs(Dot(est, target))
	return 2 * math.Acos(math.Min(math.Max(d, -1), 1))
}

func quatToVec(q quat.Number) *mat.VecDense {
	return mat.NewVecDense(QuaternionDim, []float64{q.Real, q.Imag, q.Jmag, q.Kmag})
}

func vecToQuat(v mat.Vector) quat.Number {
	return quat.Number{Real: v.AtVec(0), Imag: v.AtVec(1), Jmag: v.AtVec(2), Kmag: v.AtVec(3)}
}

// FixedQuaternion stores w, x, y, z scaled by 2^Shift. Components stay within the int32
// range; int64 storage leaves headroom for the pre-shift products.
type FixedQuaternion [QuaternionDim]int64

// ToFixed scales q and truncates each component toward zero, saturating to the int32 range.
// q must be finite.
func ToFixed(q quat.Number, scale int) FixedQuaternion {
	s := float64(scale)
	return FixedQuaternion{toFixed(q.Real * s), toFixed(q.Imag * s), toFixed(q.Jmag * s), toFixed(q.Kmag * s)}
}

func toFixed(v float64) int64 {
	switch {
	case v <= minInt32:
		return minInt32
	case v >= maxInt32:
		return maxInt32
	}
	return int64(v)
}

// Float converts back to real units.
func (f FixedQuaternion) Float(scale int) quat.Number {
	s := float64(scale)
	return quat.Number{Real: float64(f[0]) / s, Imag: float64(f[1]) / s, Jmag: float64(f[2]) / s, Kmag: float64(f[3]) / s}
}

// Sub returns f - g component-wise.
func (f FixedQuaternion) Sub(g FixedQuaternion) (d FixedQuaternion) {
	for i := range f {
		d[i] = f[i] - g[i]
	}
	return
}

func (f FixedQuaternion) String() string {
	return fmt.Sprintf("[%d %d %d %d]", f[0], f[1], f[2], f[3])
}

// fixedMul multiplies two fixed-point values with `shift` fractional bits.
// >> on int64 is an arithmetic shift: negative products round toward negative infinity.
func fixedMul(a, b int64, shift uint) int64 {
	return (a * b) >> shift
}

// clampInt64 saturates v to [lo, hi].
func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
