package dpfae

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// NISConfidence is the two-sided acceptance level of the NIS consistency test.
const NISConfidence = 0.95

// NISBounds returns the two-sided chi-square acceptance interval of a NIS sample
// with dof degrees of freedom.
func NISBounds(dof int, confidence float64) (lo, hi float64) {
	χ2 := distuv.ChiSquared{K: float64(dof)}
	tail := (1 - confidence) / 2
	return χ2.Quantile(tail), χ2.Quantile(1 - tail)
}

// NewChiSquare runs the NIS test on the provided samples. A consistent filter has a
// mean NIS close to dof and about `confidence` of its samples within NISBounds.
// Returns the NIS mean, the fraction of samples within bounds and an error if applicable.
func NewChiSquare(nis []float64, dof int, confidence float64) (mean, within float64, err error) {
	if len(nis) == 0 {
		return 0, 0, errors.New("chi square requires at least one NIS sample")
	}
	if confidence <= 0 || confidence >= 1 {
		return 0, 0, errors.New("chi square confidence must be in (0, 1)")
	}
	lo, hi := NISBounds(dof, confidence)
	inside := 0
	for _, v := range nis {
		if v >= lo && v <= hi {
			inside++
		}
	}
	return stat.Mean(nis, nil), float64(inside) / float64(len(nis)), nil
}
