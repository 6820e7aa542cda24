package dpfae

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// MonteCarloRuns stores MC runs.
type MonteCarloRuns struct {
	runs, steps int
	Runs        []*Result
}

// NewMonteCarloRuns repeats the scenario `samples` times with seeds sc.Seed, sc.Seed+1, ...
// At least two samples are required for the spread statistics to be defined.
func NewMonteCarloRuns(hw HardwareProfile, sc Scenario, samples int, logger *zap.Logger) (MonteCarloRuns, error) {
	if samples < 2 {
		return MonteCarloRuns{}, errors.Errorf("must request at least two Monte Carlo samples, got %d", samples)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	runs := make([]*Result, samples)
	for sample := 0; sample < samples; sample++ {
		scs := sc
		scs.Seed = sc.Seed + uint64(sample)
		h, err := NewHarness(hw, scs, WithLogger(logger.With(zap.Int("sample", sample))))
		if err != nil {
			return MonteCarloRuns{}, err
		}
		if runs[sample], err = h.Run(); err != nil {
			return MonteCarloRuns{}, errors.Wrapf(err, "sample %d (seed %d)", sample, scs.Seed)
		}
	}
	return MonteCarloRuns{samples, sc.Steps, runs}, nil
}

// gather returns the angular errors of every run at the given step.
func (mc MonteCarloRuns) gather(step int) (dp, ekf []float64) {
	dp, ekf = make([]float64, len(mc.Runs)), make([]float64, len(mc.Runs))
	for r, run := range mc.Runs {
		dp[r] = run.Steps[step].AngularErrorDP
		ekf[r] = run.Steps[step].AngularErrorEKF
	}
	return
}

// Mean returns the mean angular error of both estimators over all runs at the given step.
func (mc MonteCarloRuns) Mean(step int) (dp, ekf float64) {
	dps, ekfs := mc.gather(step)
	return stat.Mean(dps, nil), stat.Mean(ekfs, nil)
}

// StdDev returns the standard deviation of the angular error of both estimators over all runs at the given step.
func (mc MonteCarloRuns) StdDev(step int) (dp, ekf float64) {
	dps, ekfs := mc.gather(step)
	return stat.StdDev(dps, nil), stat.StdDev(ekfs, nil)
}

// MeanSummary returns the mean and standard deviation, across runs, of each run's mean angular error.
func (mc MonteCarloRuns) MeanSummary() (meanDP, stdDP, meanEKF, stdEKF float64) {
	dps, ekfs := make([]float64, len(mc.Runs)), make([]float64, len(mc.Runs))
	for r, run := range mc.Runs {
		dps[r] = run.Summary.MeanAngularErrorDP
		ekfs[r] = run.Summary.MeanAngularErrorEKF
	}
	meanDP, stdDP = stat.MeanStdDev(dps, nil)
	meanEKF, stdEKF = stat.MeanStdDev(ekfs, nil)
	return
}

// AsCSV is used as a CSV serializer of the per-step statistics, header included.
func (mc MonteCarloRuns) AsCSV() string {
	lines := make([]string, mc.steps+1) // One line per step, plus header.
	lines[0] = "step,dpfae-mean,dpfae-stddev,ekf-mean,ekf-stddev"
	for k := 0; k < mc.steps; k++ {
		mDP, mEKF := mc.Mean(k)
		sDP, sEKF := mc.StdDev(k)
		lines[k+1] = fmt.Sprintf("%d,%f,%f,%f,%f", k, mDP, sDP, mEKF, sEKF)
	}
	return strings.Join(lines, "\n")
}
