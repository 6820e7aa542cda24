package dpfae

import "gonum.org/v1/gonum/num/quat"

// FilterType allows for quick comparison of filters.
type FilterType uint8

const (
	// DPFAEType is the adaptive fixed-point estimator.
	DPFAEType FilterType = iota + 1
	// EKFType is the floating point reference EKF.
	EKFType
)

func (t FilterType) String() string {
	switch t {
	case DPFAEType:
		return "DPFAE"
	case EKFType:
		return "EKF"
	default:
		return "unknown"
	}
}

// Estimator is a stateful unit-quaternion tracker fed one observation per step.
type Estimator interface {
	Update(observation quat.Number) (Estimate, error)
	Reset()
	Type() FilterType
	String() string
}

// Estimate is returned from Update() in any Estimator.
type Estimate interface {
	State() quat.Number // Unit quaternion after the update
	Energy() float64    // Simulated energy of the update, µJ
	String() string     // Must implement the stringer interface.
}
