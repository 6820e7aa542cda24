package dpfae

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Reference EKF constants.
const (
	EKFInitialCovariance = 0.1   // P0 = 0.1*I
	EKFProcessNoise      = 0.001 // Q = 0.001*I
	EKFMeasurementNoise  = 0.05  // R = 0.05*I
	// EKFMACOps is the floating point MAC count charged per update, inversion excluded.
	EKFMACOps = 850

	// normTolerance is the smallest quaternion norm the EKF will renormalize.
	normTolerance = 1e-12
)

// NewExtended returns the reference EKF with the default P0, Q and R, and its initial estimate.
func NewExtended(hw HardwareProfile) (*Extended, *ExtendedEstimate, error) {
	return NewExtendedWithNoise(hw,
		ScaledIdentity(QuaternionDim, EKFInitialCovariance),
		ScaledIdentity(QuaternionDim, EKFProcessNoise),
		ScaledIdentity(QuaternionDim, EKFMeasurementNoise))
}

// NewExtendedWithNoise returns an EKF starting at the identity orientation.
// Parameters:
// - P0: initial covariance matrix
// - Q: process noise injected at each prediction
// - R: measurement noise
func NewExtendedWithNoise(hw HardwareProfile, P0, Q, R mat.Symmetric) (*Extended, *ExtendedEstimate, error) {
	if err := hw.Validate(); err != nil {
		return nil, nil, err
	}
	// Let's check the dimensions of everything here to return an error ASAP.
	q0 := quatToVec(IdentityQuaternion)
	if err := checkMatDims(q0, P0, "q0", "P0", rows2cols); err != nil {
		return nil, nil, err
	}
	if err := checkMatDims(P0, Q, "P0", "Q", rowsAndcols); err != nil {
		return nil, nil, err
	}
	if err := checkMatDims(P0, R, "P0", "R", rowsAndcols); err != nil {
		return nil, nil, err
	}

	P := mat.NewSymDense(QuaternionDim, nil)
	P.CopySym(P0)
	kf := &Extended{
		Q:      Q,
		R:      R,
		P0:     P,
		energy: EKFMACOps*hw.EnergyPerFPUMAC + hw.EnergyPerMatrixInversion,
	}
	kf.Reset()
	est0 := ExtendedEstimate{
		state:         IdentityQuaternion,
		innovation:    mat.NewVecDense(QuaternionDim, nil),
		covar:         kf.P,
		predCovar:     mat.NewSymDense(QuaternionDim, nil),
		innovCovar:    mat.NewSymDense(QuaternionDim, nil),
		innovCovarInv: mat.NewDense(QuaternionDim, QuaternionDim, nil),
		gain:          mat.NewDense(QuaternionDim, QuaternionDim, nil),
		energy:        kf.energy,
	}
	return kf, &est0, nil
}

// Extended is the O(N^3) floating point EKF used as the accuracy and energy baseline.
// The measurement model is the identity: the observation is a noisy copy of the state.
// Use NewExtended to initialize.
type Extended struct {
	Q, R   mat.Symmetric
	P0     *mat.SymDense
	energy float64
	q      *mat.VecDense
	P      *mat.SymDense
	step   int
}

func (kf *Extended) String() string {
	return fmt.Sprintf("EKF [k=%d]\nq=%v\nP=%v\nQ=%v\nR=%v", kf.step, vecToQuat(kf.q),
		mat.Formatted(kf.P, mat.Prefix("  ")), mat.Formatted(kf.Q, mat.Prefix("  ")), mat.Formatted(kf.R, mat.Prefix("  ")))
}

// Type implements the Estimator interface.
func (kf *Extended) Type() FilterType {
	return EKFType
}

// Reset reinitializes the EKF with the identity orientation and its initial covariance.
func (kf *Extended) Reset() {
	kf.q = quatToVec(IdentityQuaternion)
	kf.P = mat.NewSymDense(QuaternionDim, nil)
	kf.P.CopySym(kf.P0)
	kf.step = 0
}

// Covariance returns the current covariance P_{k}^{+}.
func (kf *Extended) Covariance() mat.Symmetric {
	return kf.P
}

// Update implements the Estimator interface. On error the filter state is left untouched.
func (kf *Extended) Update(observation quat.Number) (est Estimate, err error) {
	if !IsFinite(observation) {
		return nil, errors.Wrapf(ErrInvalidObservation, "EKF k=%d: %v", kf.step, observation)
	}

	// P_{k+1}^{-}
	var Pkp1Minus mat.SymDense
	Pkp1Minus.AddSym(kf.P, kf.Q)

	// Kalman gain
	var S, SInv, Kkp1 mat.Dense
	S.Add(&Pkp1Minus, kf.R)
	if ierr := SInv.Inverse(&S); ierr != nil {
		return nil, errors.Wrapf(ErrCovarianceSingular, "could not invert `P_kp1_minus + R` at k=%d: %s", kf.step, ierr)
	}
	Kkp1.Mul(&Pkp1Minus, &SInv)

	// Measurement update
	var innov, xkp1Plus mat.VecDense
	innov.SubVec(quatToVec(observation), kf.q)
	xkp1Plus.MulVec(&Kkp1, &innov)
	xkp1Plus.AddVec(kf.q, &xkp1Plus)
	qPlus, err := Normalize(vecToQuat(&xkp1Plus))
	if err != nil {
		return nil, errors.Wrapf(err, "EKF k=%d", kf.step)
	}

	var Pkp1Plus, IK mat.Dense
	IK.Sub(Identity(QuaternionDim), &Kkp1)
	Pkp1Plus.Mul(&IK, &Pkp1Minus)

	kf.q = quatToVec(qPlus)
	kf.P = Symmetrize(&Pkp1Plus)
	kf.step++
	return ExtendedEstimate{
		state:         qPlus,
		innovation:    &innov,
		covar:         kf.P,
		predCovar:     &Pkp1Minus,
		innovCovar:    Symmetrize(&S),
		innovCovarInv: &SInv,
		gain:          &Kkp1,
		energy:        kf.energy,
	}, nil
}

// ExtendedEstimate is the output of each update state of the EKF.
// It implements the Estimate interface.
type ExtendedEstimate struct {
	state               quat.Number
	innovation          *mat.VecDense
	covar, predCovar    mat.Symmetric
	innovCovar          mat.Symmetric
	innovCovarInv, gain mat.Matrix
	energy              float64
}

// State implements the Estimate interface.
func (e ExtendedEstimate) State() quat.Number {
	return e.state
}

// Energy implements the Estimate interface.
func (e ExtendedEstimate) Energy() float64 {
	return e.energy
}

// Innovation returns z_{k} - \hat{q}_{k}^{-}.
func (e ExtendedEstimate) Innovation() *mat.VecDense {
	return e.innovation
}

// Covariance returns P_{k+1}^{+}.
func (e ExtendedEstimate) Covariance() mat.Symmetric {
	return e.covar
}

// PredCovariance returns P_{k+1}^{-}.
func (e ExtendedEstimate) PredCovariance() mat.Symmetric {
	return e.predCovar
}

// InnovationCovariance returns S = P_{k+1}^{-} + R.
func (e ExtendedEstimate) InnovationCovariance() mat.Symmetric {
	return e.innovCovar
}

// Gain returns the Kalman gain K.
func (e ExtendedEstimate) Gain() mat.Matrix {
	return e.gain
}

// NIS returns the normalized innovation squared ν'*S^{-1}*ν.
func (e ExtendedEstimate) NIS() float64 {
	return mat.Inner(e.innovation, e.innovCovarInv, e.innovation)
}

func (e ExtendedEstimate) String() string {
	covar := mat.Formatted(e.Covariance(), mat.Prefix("  "))
	gain := mat.Formatted(e.Gain(), mat.Prefix("  "))
	innov := mat.Formatted(e.Innovation(), mat.Prefix("  "))
	predp := mat.Formatted(e.PredCovariance(), mat.Prefix("   "))
	return fmt.Sprintf("{\ns=%v\nP=%v\nK=%v\nP-=%v\ni=%v\n}", e.state, covar, gain, predp, innov)
}
