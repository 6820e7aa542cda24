package dpfae

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingularUpdate is returned when a quaternion cannot be renormalized because its norm vanished.
	ErrSingularUpdate = errors.New("singular update: quaternion norm is zero")
	// ErrCovarianceSingular is returned when the EKF innovation covariance cannot be inverted.
	ErrCovarianceSingular = errors.New("covariance singular")
	// ErrInvalidObservation is returned for observations with NaN or infinite components.
	ErrInvalidObservation = errors.New("invalid observation")
	// ErrInvalidProfile is returned by HardwareProfile.Validate.
	ErrInvalidProfile = errors.New("invalid hardware profile")
	// ErrInvalidScenario is returned by Scenario.Validate.
	ErrInvalidScenario = errors.New("invalid scenario")
	// ErrNoSteps is returned when summarizing an empty run.
	ErrNoSteps = errors.New("no steps to summarize")
	// ErrNoObservation is returned when an observation source is exhausted.
	ErrNoObservation = errors.New("no observation available")
	// ErrOutOfOrder is returned when a seeded source is not drawn in strict step order.
	ErrOutOfOrder = errors.New("observation requested out of order")
)

// DimensionAgreement defines how two matrices' dimensions should agree.
type DimensionAgreement uint8

const (
	dimErrMsg                    = "dimensions must agree: "
	rows2cols DimensionAgreement = iota + 1
	rowsAndcols
)

// checkMatDims checks the matrix dimensions match provided a DimensionAgreement. Returns an error if not.
func checkMatDims(m1, m2 mat.Matrix, name1, name2 string, method DimensionAgreement) error {
	r1, c1 := m1.Dims()
	r2, c2 := m2.Dims()
	switch method {
	case rows2cols:
		if r1 != c2 {
			return errors.Errorf("%s%s(%dx...) %s(...x%d)", dimErrMsg, name1, r1, name2, c2)
		}
	case rowsAndcols:
		if c1 != c2 || r1 != r2 {
			return errors.Errorf("%s%s(%dx%d) %s(%dx%d)", dimErrMsg, name1, r1, c1, name2, r2, c2)
		}
	}
	return nil
}
