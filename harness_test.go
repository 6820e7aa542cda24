package dpfae

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/stat"
)

type recordingExporter struct {
	steps  []StepMetrics
	closed bool
}

func (r *recordingExporter) Write(m StepMetrics) error {
	r.steps = append(r.steps, m)
	return nil
}

func (r *recordingExporter) Close() error {
	r.closed = true
	return nil
}

func runDefault(t *testing.T, opts ...HarnessOption) *Result {
	t.Helper()
	h, err := NewHarness(DefaultHardwareProfile(), DefaultScenario(), opts...)
	require.NoError(t, err)
	res, err := h.Run()
	require.NoError(t, err)
	return res
}

func TestHarnessReferenceScenario(t *testing.T) {
	res := runDefault(t)
	sc := DefaultScenario()
	require.Len(t, res.Steps, sc.Steps)
	assert.Equal(t, sc, res.Scenario)

	hw := DefaultHardwareProfile()
	lo, hi := hw.fixedConst(AdaptiveAlphaMin), hw.fixedConst(AdaptiveAlphaMax)
	var pre, chaos []float64
	for k, m := range res.Steps {
		require.Equal(t, k, m.Step)
		require.Equal(t, sc.InChaos(k), m.Chaos)
		require.Equal(t, sc.Sigma(k), m.Sigma)
		for _, e := range []float64{m.AngularErrorDP, m.AngularErrorEKF} {
			require.False(t, math.IsNaN(e), "k=%d", k)
			require.True(t, e >= 0 && e <= math.Pi, "k=%d error %f", k, e)
		}
		require.InDelta(t, 1.5, m.EnergyDP, 1e-12)
		require.InDelta(t, 1107.5, m.EnergyEKF, 1e-12)
		require.True(t, m.AlphaDP >= lo && m.AlphaDP <= hi, "k=%d alpha %d", k, m.AlphaDP)
		require.GreaterOrEqual(t, m.NISEKF, 0.0)
		switch {
		case k >= 100 && k <= sc.ChaosAfter:
			pre = append(pre, m.AngularErrorDP)
		case m.Chaos:
			chaos = append(chaos, m.AngularErrorDP)
		}
	}

	s := res.Summary
	assert.Equal(t, sc.Steps, s.Steps)
	assert.InDelta(t, 1107.5/1.5, s.EnergyROI, 1e-9)
	assert.Greater(t, s.EnergyROI, 1.0)
	assert.Less(t, s.MeanAngularErrorDP, 0.3)
	assert.Less(t, s.MeanAngularErrorEKF, 0.3)
	// Both settle before the pulse and are knocked off by it.
	assert.Less(t, stat.Mean(pre, nil), 0.1)
	assert.Greater(t, stat.Mean(chaos, nil), stat.Mean(pre, nil))
	assert.GreaterOrEqual(t, s.RecoveryStepsDP, 0)
	assert.GreaterOrEqual(t, s.RecoveryStepsEKF, 0)
	assert.True(t, s.NISConsistencyEKF >= 0 && s.NISConsistencyEKF <= 1)
}

func TestHarnessDeterministic(t *testing.T) {
	assert.Equal(t, runDefault(t), runDefault(t))

	sc := DefaultScenario()
	sc.Seed = 7
	h, err := NewHarness(DefaultHardwareProfile(), sc)
	require.NoError(t, err)
	other, err := h.Run()
	require.NoError(t, err)
	assert.NotEqual(t, runDefault(t).Steps, other.Steps)
}

func TestHarnessReplay(t *testing.T) {
	sc := DefaultScenario()
	src, err := NewGaussianObservations(sc)
	require.NoError(t, err)
	obs := make([]quat.Number, sc.Steps)
	sigmas := make([]float64, sc.Steps)
	for k := range obs {
		obs[k], err = src.Observation(k)
		require.NoError(t, err)
		sigmas[k] = sc.Sigma(k)
	}
	batch, err := NewBatchObservations(obs, sigmas)
	require.NoError(t, err)

	assert.Equal(t, runDefault(t).Steps, runDefault(t, WithObservations(batch)).Steps)
}

func TestHarnessExporterAndLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := &recordingExporter{}
	res := runDefault(t, WithExporter(rec), WithLogger(zap.New(core)), WithLogger(nil))
	assert.Equal(t, res.Steps, rec.steps)
	assert.False(t, rec.closed, "harness closed the exporter")

	assert.Equal(t, 1, logs.FilterMessage("starting run").Len())
	assert.Equal(t, 1, logs.FilterMessage("run complete").Len())
	// Entering and leaving the pulse.
	assert.Equal(t, 2, logs.FilterMessage("chaos pulse").Len())
}

func TestHarnessFailures(t *testing.T) {
	hw := DefaultHardwareProfile()
	hw.Scale = 3
	_, err := NewHarness(hw, DefaultScenario())
	assert.ErrorIs(t, err, ErrInvalidProfile)

	sc := DefaultScenario()
	sc.Steps = 0
	_, err = NewHarness(DefaultHardwareProfile(), sc)
	assert.ErrorIs(t, err, ErrInvalidScenario)

	short, err := NewBatchObservations([]quat.Number{IdentityQuaternion}, nil)
	require.NoError(t, err)
	h, err := NewHarness(DefaultHardwareProfile(), DefaultScenario(), WithObservations(short))
	require.NoError(t, err)
	_, err = h.Run()
	assert.ErrorIs(t, err, ErrNoObservation)
	assert.Contains(t, err.Error(), "step 1")

	bad, err := NewBatchObservations([]quat.Number{{Real: math.NaN()}}, nil)
	require.NoError(t, err)
	h, err = NewHarness(DefaultHardwareProfile(), DefaultScenario(), WithObservations(bad))
	require.NoError(t, err)
	_, err = h.Run()
	assert.ErrorIs(t, err, ErrInvalidObservation)
	assert.Contains(t, err.Error(), "DPFAE update")
}

func TestHarnessInjectedSourceRerun(t *testing.T) {
	src, err := NewGaussianObservations(DefaultScenario())
	require.NoError(t, err)
	h, err := NewHarness(DefaultHardwareProfile(), DefaultScenario(), WithObservations(src))
	require.NoError(t, err)
	first, err := h.Run()
	require.NoError(t, err)
	second, err := h.Run()
	require.NoError(t, err, "second run on the same source")
	assert.Equal(t, first.Steps, second.Steps)
	assert.Equal(t, runDefault(t).Steps, second.Steps)
}

func TestHarnessGroundTruth(t *testing.T) {
	sc := DefaultScenario()
	def := runDefault(t)

	held, err := NewBatchGroundTruth([]quat.Number{sc.Target})
	require.NoError(t, err)
	assert.Equal(t, def.Steps, runDefault(t, WithGroundTruth(held)).Steps)

	// The rotation angle is a metric: scoring against identity moves each error by at
	// most the distance to the target.
	d := AngularError(sc.Target, IdentityQuaternion)
	other := runDefault(t, WithGroundTruth(ConstantTruth(IdentityQuaternion)))
	assert.NotEqual(t, def.Summary, other.Summary)
	for k, m := range other.Steps {
		ref := def.Steps[k]
		require.LessOrEqual(t, math.Abs(m.AngularErrorDP-d), ref.AngularErrorDP+1e-5, "k=%d", k)
		require.LessOrEqual(t, math.Abs(m.AngularErrorEKF-d), ref.AngularErrorEKF+1e-5, "k=%d", k)
		// Truth only changes the scoring.
		require.Equal(t, ref.AlphaDP, m.AlphaDP)
		require.Equal(t, ref.NISEKF, m.NISEKF)
	}

	// Recorded truth that reaches the target half way through.
	states := make([]quat.Number, sc.Steps/2+1)
	for k := range states {
		states[k] = IdentityQuaternion
	}
	states[len(states)-1] = sc.Target
	recorded, err := NewBatchGroundTruth(states)
	require.NoError(t, err)
	res := runDefault(t, WithGroundTruth(recorded))
	for k, m := range res.Steps {
		if k < sc.Steps/2 {
			require.Equal(t, other.Steps[k], m, "k=%d", k)
		} else {
			require.Equal(t, def.Steps[k], m, "k=%d", k)
		}
	}
}
