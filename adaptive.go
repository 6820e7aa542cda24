package dpfae

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// Adaptive law constants, in real units. They are converted to the profile's
// fixed-point representation once, at construction.
const (
	AdaptiveEta      = 0.12  // Learning rate applied to alpha
	AdaptiveGamma    = 0.985 // Per-step decay of alpha
	AdaptiveAlphaMin = 0.01
	AdaptiveAlphaMax = 1.5
	// AdaptiveResidualGain scales the residual magnitude fed back into alpha.
	AdaptiveResidualGain = 0.05
	// AdaptiveALUOps is the fixed integer operation count charged per update.
	AdaptiveALUOps = 30

	projectionEpsilon = 1e-12
)

// NewAdaptive returns a new DPFAE filter at the identity orientation, with its initial estimate.
func NewAdaptive(hw HardwareProfile) (*Adaptive, *AdaptiveEstimate, error) {
	if err := hw.Validate(); err != nil {
		return nil, nil, err
	}
	kf := &Adaptive{
		hw:       hw,
		eta:      hw.fixedConst(AdaptiveEta),
		gamma:    hw.fixedConst(AdaptiveGamma),
		alphaMin: hw.fixedConst(AdaptiveAlphaMin),
		alphaMax: hw.fixedConst(AdaptiveAlphaMax),
		energy:   AdaptiveALUOps * hw.EnergyPerALUOp,
	}
	kf.Reset()
	est0 := kf.estimate(IdentityQuaternion, 0)
	return kf, &est0, nil
}

// Adaptive is the Dynamic-Precision Fixed-point Adaptive Estimator. All state recursion
// is integer arithmetic with arithmetic right shifts; the only floating point work is
// the residual magnitude and the manifold projection. Use NewAdaptive to initialize.
type Adaptive struct {
	hw                 HardwareProfile
	eta, gamma         int64
	alphaMin, alphaMax int64
	energy             float64
	q                  FixedQuaternion
	alpha, gain        int64
	step               int
}

func (kf *Adaptive) String() string {
	return fmt.Sprintf("DPFAE [k=%d] q=%s alpha=%d gain=%d", kf.step, kf.q, kf.alpha, kf.gain)
}

// Type implements the Estimator interface.
func (kf *Adaptive) Type() FilterType {
	return DPFAEType
}

// Reset reinitializes the filter to the identity orientation and alpha=1.
func (kf *Adaptive) Reset() {
	kf.q = FixedQuaternion{int64(kf.hw.Scale), 0, 0, 0}
	kf.alpha = int64(kf.hw.Scale)
	kf.gain = 0
	kf.step = 0
}

// Alpha returns the current gain scale in fixed-point units.
func (kf *Adaptive) Alpha() int64 {
	return kf.alpha
}

// Gain returns the correction gain used by the last update, in fixed-point units.
func (kf *Adaptive) Gain() int64 {
	return kf.gain
}

// AlphaBounds returns the closed clamp range of alpha in fixed-point units.
func (kf *Adaptive) AlphaBounds() (lo, hi int64) {
	return kf.alphaMin, kf.alphaMax
}

// State returns the fixed-point state.
func (kf *Adaptive) State() FixedQuaternion {
	return kf.q
}

// Update implements the Estimator interface. It never fails on a finite observation:
// overflow is handled by saturation and a vanishing norm by the projection epsilon.
func (kf *Adaptive) Update(observation quat.Number) (Estimate, error) {
	if !IsFinite(observation) {
		return nil, errors.Wrapf(ErrInvalidObservation, "DPFAE k=%d: %v", kf.step, observation)
	}
	shift := uint(kf.hw.Shift)
	scale := kf.hw.Scale

	zFx := ToFixed(observation, scale)
	errFx := zFx.Sub(kf.q)
	residual := Norm(errFx.Float(scale))

	alpha := fixedMul(kf.alpha, kf.gamma, shift) + int64(AdaptiveResidualGain*residual*float64(scale))
	kf.alpha = clampInt64(alpha, kf.alphaMin, kf.alphaMax)
	kf.gain = fixedMul(kf.alpha, kf.eta, shift)

	for i := range kf.q {
		kf.q[i] = clampInt64(kf.q[i]+fixedMul(kf.gain, errFx[i], shift), minInt32, maxInt32)
	}

	// S3 manifold projection.
	qf := kf.q.Float(scale)
	qf = quat.Scale(1/(Norm(qf)+projectionEpsilon), qf)
	kf.q = ToFixed(qf, scale)

	kf.step++
	return kf.estimate(qf, residual), nil
}

func (kf *Adaptive) estimate(q quat.Number, residual float64) AdaptiveEstimate {
	return AdaptiveEstimate{state: q, fixed: kf.q, alpha: kf.alpha, gain: kf.gain, residual: residual, energy: kf.energy}
}

// AdaptiveEstimate is the output of each update of the DPFAE.
// It implements the Estimate interface.
type AdaptiveEstimate struct {
	state       quat.Number
	fixed       FixedQuaternion
	alpha, gain int64
	residual    float64
	energy      float64
}

// State implements the Estimate interface.
func (e AdaptiveEstimate) State() quat.Number {
	return e.state
}

// Energy implements the Estimate interface.
func (e AdaptiveEstimate) Energy() float64 {
	return e.energy
}

// Fixed returns the re-quantized state stored by the filter.
func (e AdaptiveEstimate) Fixed() FixedQuaternion {
	return e.fixed
}

// Alpha returns the gain scale after the update.
func (e AdaptiveEstimate) Alpha() int64 {
	return e.alpha
}

// Gain returns the effective fixed-point correction gain used in the update.
func (e AdaptiveEstimate) Gain() int64 {
	return e.gain
}

// Residual returns the magnitude of observation minus prior state, in real units.
func (e AdaptiveEstimate) Residual() float64 {
	return e.residual
}

func (e AdaptiveEstimate) String() string {
	return fmt.Sprintf("{\ns=%v\nq=%s\nalpha=%d gain=%d |e|=%f\n}", e.state, e.fixed, e.alpha, e.gain, e.residual)
}
