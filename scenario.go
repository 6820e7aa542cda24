package dpfae

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// Scenario describes one reproducible comparative run.
// The chaos pulse applies on steps t with ChaosAfter < t < ChaosBefore.
type Scenario struct {
	Seed         uint64
	Steps        int
	Target       quat.Number
	NominalSigma float64
	ChaosSigma   float64
	ChaosAfter   int
	ChaosBefore  int
}

// DefaultScenario returns the reference run: seed 2026, 300 steps tracking
// (0.5, 0.5, 0.5, 0.5), σ=0.05 with a σ=0.6 pulse on steps 151 through 169.
func DefaultScenario() Scenario {
	return Scenario{
		Seed:         2026,
		Steps:        300,
		Target:       quat.Number{Real: 0.5, Imag: 0.5, Jmag: 0.5, Kmag: 0.5},
		NominalSigma: 0.05,
		ChaosSigma:   0.6,
		ChaosAfter:   150,
		ChaosBefore:  170,
	}
}

// InChaos returns whether step t lies strictly inside the chaos window.
func (sc Scenario) InChaos(t int) bool {
	return sc.ChaosAfter < t && t < sc.ChaosBefore
}

// Sigma returns the observation noise standard deviation at step t.
func (sc Scenario) Sigma(t int) float64 {
	if sc.InChaos(t) {
		return sc.ChaosSigma
	}
	return sc.NominalSigma
}

// Validate returns an error wrapping ErrInvalidScenario if the scenario cannot be run.
func (sc Scenario) Validate() error {
	if sc.Steps <= 0 {
		return errors.Wrapf(ErrInvalidScenario, "steps must be positive, got %d", sc.Steps)
	}
	if !IsFinite(sc.Target) || math.Abs(Norm(sc.Target)-1) > 1e-9 {
		return errors.Wrapf(ErrInvalidScenario, "target %v is not a unit quaternion", sc.Target)
	}
	for _, s := range []float64{sc.NominalSigma, sc.ChaosSigma} {
		if !(s > 0) || math.IsInf(s, 0) {
			return errors.Wrapf(ErrInvalidScenario, "sigma must be finite and positive, got %f", s)
		}
	}
	if sc.ChaosBefore < sc.ChaosAfter {
		return errors.Wrapf(ErrInvalidScenario, "chaos window (%d, %d) is inverted", sc.ChaosAfter, sc.ChaosBefore)
	}
	return nil
}

func (sc Scenario) String() string {
	return fmt.Sprintf("seed=%d steps=%d target=%v σ=%g chaos σ=%g on (%d, %d)",
		sc.Seed, sc.Steps, sc.Target, sc.NominalSigma, sc.ChaosSigma, sc.ChaosAfter, sc.ChaosBefore)
}
