package dpfae

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// recoveryFactor bounds the post-chaos error, relative to the pre-chaos median, at which
// an estimator is considered recovered.
const recoveryFactor = 2

// StepMetrics is the record of one harness step. It is never mutated once appended.
type StepMetrics struct {
	Step            int
	Sigma           float64 // Observation noise standard deviation
	Chaos           bool    // Whether the step lies in the chaos window
	AngularErrorDP  float64 // rad
	AngularErrorEKF float64 // rad
	EnergyDP        float64 // µJ
	EnergyEKF       float64 // µJ
	AlphaDP         int64   // DPFAE gain scale after the update, fixed-point
	NISEKF          float64 // EKF normalized innovation squared
}

// Summary is the aggregate record of a run handed to the presentation layer.
type Summary struct {
	Steps int

	MeanAngularErrorDP  float64
	MeanAngularErrorEKF float64
	MeanEnergyDP        float64
	MeanEnergyEKF       float64
	// EnergyROI is the total EKF energy over the total DPFAE energy.
	EnergyROI float64

	StdAngularErrorDP  float64
	StdAngularErrorEKF float64
	P95AngularErrorDP  float64
	P95AngularErrorEKF float64
	// RecoveryStepsDP and RecoveryStepsEKF count the steps after the chaos window until the
	// error is back under twice its pre-chaos median. -1 if never, or if the run has no window.
	RecoveryStepsDP  int
	RecoveryStepsEKF int

	MeanNISEKF        float64
	NISConsistencyEKF float64 // Fraction of steps within the 95% χ² bounds
}

func (s Summary) String() string {
	return fmt.Sprintf("steps=%d err(dp)=%.5f err(ekf)=%.5f E(dp)=%.2f E(ekf)=%.2f ROI=%.1f",
		s.Steps, s.MeanAngularErrorDP, s.MeanAngularErrorEKF, s.MeanEnergyDP, s.MeanEnergyEKF, s.EnergyROI)
}

// Summarize aggregates the per-step metrics of the provided scenario.
func Summarize(steps []StepMetrics, sc Scenario) (Summary, error) {
	if len(steps) == 0 {
		return Summary{}, ErrNoSteps
	}
	n := len(steps)
	errDP, errEKF := make([]float64, n), make([]float64, n)
	eDP, eEKF := make([]float64, n), make([]float64, n)
	nis := make([]float64, n)
	for i, m := range steps {
		errDP[i], errEKF[i] = m.AngularErrorDP, m.AngularErrorEKF
		eDP[i], eEKF[i] = m.EnergyDP, m.EnergyEKF
		nis[i] = m.NISEKF
	}

	totalDP := floats.Sum(eDP)
	if totalDP <= 0 {
		return Summary{}, errors.Wrapf(ErrInvalidProfile, "total DPFAE energy is %f", totalDP)
	}

	s := Summary{Steps: n, EnergyROI: floats.Sum(eEKF) / totalDP}
	s.MeanAngularErrorDP, s.StdAngularErrorDP = stat.MeanStdDev(errDP, nil)
	s.MeanAngularErrorEKF, s.StdAngularErrorEKF = stat.MeanStdDev(errEKF, nil)
	s.MeanEnergyDP = stat.Mean(eDP, nil)
	s.MeanEnergyEKF = stat.Mean(eEKF, nil)
	s.P95AngularErrorDP = quantile(0.95, errDP)
	s.P95AngularErrorEKF = quantile(0.95, errEKF)
	s.RecoveryStepsDP = recoverySteps(errDP, sc)
	s.RecoveryStepsEKF = recoverySteps(errEKF, sc)

	var err error
	s.MeanNISEKF, s.NISConsistencyEKF, err = NewChiSquare(nis, QuaternionDim, NISConfidence)
	if err != nil {
		return Summary{}, err
	}
	return s, nil
}

// quantile returns the empirical p-quantile of x without reordering x.
func quantile(p float64, x []float64) float64 {
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// recoverySteps returns how many steps after the chaos window the error series needs
// to drop back under recoveryFactor times its pre-chaos median.
func recoverySteps(errs []float64, sc Scenario) int {
	baselineEnd := sc.ChaosAfter + 1 // Steps [0, ChaosAfter] are nominal.
	if baselineEnd <= 0 || baselineEnd > len(errs) || sc.ChaosBefore >= len(errs) {
		return -1
	}
	threshold := recoveryFactor * quantile(0.5, errs[:baselineEnd])
	for t := sc.ChaosBefore; t < len(errs); t++ {
		if errs[t] <= threshold {
			return t - sc.ChaosBefore
		}
	}
	return -1
}
