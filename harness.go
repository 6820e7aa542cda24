package dpfae

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/num/quat"
)

// HarnessOption configures a Harness.
type HarnessOption func(*Harness)

// WithLogger sets the logger of the harness. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) HarnessOption {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithExporter forwards every StepMetrics to the provided exporter as it is produced.
// The harness does not close the exporter.
func WithExporter(e Exporter) HarnessOption {
	return func(h *Harness) {
		h.exporter = e
	}
}

// WithObservations replaces the seeded Gaussian source, e.g. to replay a recorded run.
// The source must provide at least Scenario.Steps observations. It is rewound at the
// start of every Run.
func WithObservations(src ObservationSource) HarnessOption {
	return func(h *Harness) {
		h.source = src
	}
}

// WithGroundTruth scores the estimates against the provided truth instead of the
// constant scenario target, e.g. the recorded orientations of a replayed run.
func WithGroundTruth(truth GroundTruth) HarnessOption {
	return func(h *Harness) {
		h.truth = truth
	}
}

// Harness drives the DPFAE and the EKF in lockstep through one scenario.
type Harness struct {
	hw       HardwareProfile
	scenario Scenario
	logger   *zap.Logger
	exporter Exporter
	source   ObservationSource
	truth    GroundTruth
}

// NewHarness returns a harness for the provided profile and scenario.
func NewHarness(hw HardwareProfile, sc Scenario, opts ...HarnessOption) (*Harness, error) {
	if err := hw.Validate(); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	h := &Harness{hw: hw, scenario: sc, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Result holds every step of a run and its aggregate.
type Result struct {
	Scenario Scenario
	Steps    []StepMetrics
	Summary  Summary
}

// Run executes the scenario from fresh estimators and a rewound observation source.
// Any failed step aborts the run.
func (h *Harness) Run() (*Result, error) {
	dp, _, err := NewAdaptive(h.hw)
	if err != nil {
		return nil, err
	}
	ekf, _, err := NewExtended(h.hw)
	if err != nil {
		return nil, err
	}
	source := h.source
	if source == nil {
		if source, err = NewGaussianObservations(h.scenario); err != nil {
			return nil, err
		}
	} else {
		source.Reset()
	}
	var truth GroundTruth = ConstantTruth(h.scenario.Target)
	if h.truth != nil {
		truth = h.truth
	}

	h.logger.Info("starting run", zap.Stringer("scenario", h.scenario), zap.Stringer("observations", source))
	steps := make([]StepMetrics, 0, h.scenario.Steps)
	for k := 0; k < h.scenario.Steps; k++ {
		if chaos := h.scenario.InChaos(k); k > 0 && chaos != h.scenario.InChaos(k-1) {
			h.logger.Debug("chaos pulse", zap.Int("step", k), zap.Bool("active", chaos), zap.Float64("sigma", h.scenario.Sigma(k)))
		}
		z, err := source.Observation(k)
		if err != nil {
			return nil, errors.Wrapf(err, "step %d", k)
		}
		estDP, err := update(dp, z)
		if err != nil {
			return nil, errors.Wrapf(err, "step %d", k)
		}
		estEKF, err := update(ekf, z)
		if err != nil {
			h.logger.Error("EKF update failed", zap.Int("step", k), zap.Error(err))
			return nil, errors.Wrapf(err, "step %d", k)
		}

		m := StepMetrics{
			Step:            k,
			Sigma:           source.Sigma(k),
			Chaos:           h.scenario.InChaos(k),
			AngularErrorDP:  Error(truth, k, estDP),
			AngularErrorEKF: Error(truth, k, estEKF),
			EnergyDP:        estDP.Energy(),
			EnergyEKF:       estEKF.Energy(),
			AlphaDP:         dp.Alpha(),
		}
		if e, ok := estEKF.(ExtendedEstimate); ok {
			m.NISEKF = e.NIS()
		}
		steps = append(steps, m)
		if h.exporter != nil {
			if err := h.exporter.Write(m); err != nil {
				return nil, errors.Wrapf(err, "export step %d", k)
			}
		}
	}

	summary, err := Summarize(steps, h.scenario)
	if err != nil {
		return nil, err
	}
	h.logger.Info("run complete",
		zap.Float64("mean_error_dpfae", summary.MeanAngularErrorDP),
		zap.Float64("mean_error_ekf", summary.MeanAngularErrorEKF),
		zap.Float64("energy_roi", summary.EnergyROI))
	return &Result{Scenario: h.scenario, Steps: steps, Summary: summary}, nil
}

func update(est Estimator, z quat.Number) (Estimate, error) {
	e, err := est.Update(z)
	if err != nil {
		return nil, errors.Wrapf(err, "%s update", est.Type())
	}
	return e, nil
}
