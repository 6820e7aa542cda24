package dpfae

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
)

func TestDefaultScenario(t *testing.T) {
	sc := DefaultScenario()
	require.NoError(t, sc.Validate())
	assert.EqualValues(t, 2026, sc.Seed)
	assert.Equal(t, 300, sc.Steps)
	assert.InDelta(t, 1, Norm(sc.Target), 1e-15)
}

func TestScenarioChaosWindow(t *testing.T) {
	sc := DefaultScenario()
	for _, tc := range []struct {
		step  int
		chaos bool
	}{
		{0, false}, {150, false}, {151, true}, {160, true}, {169, true}, {170, false}, {299, false},
	} {
		assert.Equal(t, tc.chaos, sc.InChaos(tc.step), "t=%d", tc.step)
		exp := 0.05
		if tc.chaos {
			exp = 0.6
		}
		assert.Equal(t, exp, sc.Sigma(tc.step), "t=%d", tc.step)
	}
	chaos := 0
	for k := 0; k < sc.Steps; k++ {
		if sc.InChaos(k) {
			chaos++
		}
	}
	assert.Equal(t, 19, chaos)
}

func TestScenarioEmptyWindow(t *testing.T) {
	sc := DefaultScenario()
	sc.ChaosAfter, sc.ChaosBefore = 10, 11
	require.NoError(t, sc.Validate())
	for k := 0; k < sc.Steps; k++ {
		require.False(t, sc.InChaos(k))
	}
}

func TestScenarioValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Scenario){
		"no steps":       func(sc *Scenario) { sc.Steps = 0 },
		"non unit":       func(sc *Scenario) { sc.Target = quat.Number{Real: 2} },
		"NaN target":     func(sc *Scenario) { sc.Target.Imag = math.NaN() },
		"zero sigma":     func(sc *Scenario) { sc.NominalSigma = 0 },
		"negative sigma": func(sc *Scenario) { sc.ChaosSigma = -0.6 },
		"inf sigma":      func(sc *Scenario) { sc.ChaosSigma = math.Inf(1) },
		"inverted":       func(sc *Scenario) { sc.ChaosAfter, sc.ChaosBefore = 170, 150 },
	} {
		t.Run(name, func(t *testing.T) {
			sc := DefaultScenario()
			mutate(&sc)
			assert.ErrorIs(t, sc.Validate(), ErrInvalidScenario)
		})
	}
}
