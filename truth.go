package dpfae

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// GroundTruth provides the true orientation an estimate is scored against.
type GroundTruth interface {
	At(k int) quat.Number
}

// ConstantTruth is a fixed orientation, as in the reference scenario.
type ConstantTruth quat.Number

// At implements the GroundTruth interface.
func (t ConstantTruth) At(k int) quat.Number {
	return quat.Number(t)
}

// BatchGroundTruth is a recorded sequence of true orientations.
type BatchGroundTruth struct {
	states []quat.Number
}

// NewBatchGroundTruth initializes a new batch ground truth from at least one state.
func NewBatchGroundTruth(states []quat.Number) (*BatchGroundTruth, error) {
	if len(states) == 0 {
		return nil, errors.New("batch ground truth requires at least one state")
	}
	return &BatchGroundTruth{states}, nil
}

// At implements the GroundTruth interface. Steps past the end hold the last state.
func (t *BatchGroundTruth) At(k int) quat.Number {
	if k >= len(t.states) {
		k = len(t.states) - 1
	}
	return t.states[k]
}

// Error returns the angular error in radians of the provided estimate at step k.
func Error(truth GroundTruth, k int, est Estimate) float64 {
	return AngularError(est.State(), truth.At(k))
}
