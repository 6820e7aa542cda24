package dpfae

import (
	"fmt"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/stat/distmv"
)

// ObservationSource produces the shared observation fed to every estimator at step k.
type ObservationSource interface {
	Observation(k int) (quat.Number, error) // Returns the unit observation at step k
	Sigma(k int) float64                    // Returns the noise standard deviation used at step k
	Reset()                                 // Rewinds the source to step 0
	String() string                         // Stringer interface implementation
}

// GaussianObservations perturbs the scenario target with additive white Gaussian noise
// and renormalizes. A single PCG source, seeded once at construction, backs both the
// nominal and the chaos distributions, so the draw sequence depends only on the seed and
// the number of steps drawn. Steps must be drawn in strict order.
type GaussianObservations struct {
	scenario       Scenario
	src            *rand.PCG
	nominal, chaos *distmv.Normal
	next           int
}

// NewGaussianObservations creates the seeded observation stream of the provided scenario.
func NewGaussianObservations(sc Scenario) (*GaussianObservations, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	src := rand.NewPCG(sc.Seed, sc.Seed)
	mu := make([]float64, QuaternionDim)
	nominal, ok := distmv.NewNormal(mu, ScaledIdentity(QuaternionDim, sc.NominalSigma*sc.NominalSigma), src)
	if !ok {
		return nil, errors.Wrap(ErrInvalidScenario, "nominal noise covariance is not positive definite")
	}
	chaos, ok := distmv.NewNormal(mu, ScaledIdentity(QuaternionDim, sc.ChaosSigma*sc.ChaosSigma), src)
	if !ok {
		return nil, errors.Wrap(ErrInvalidScenario, "chaos noise covariance is not positive definite")
	}
	return &GaussianObservations{scenario: sc, src: src, nominal: nominal, chaos: chaos}, nil
}

// Reset implements the ObservationSource interface. It reseeds the shared source, so the
// replayed stream is identical to the first one.
func (n *GaussianObservations) Reset() {
	n.src.Seed(n.scenario.Seed, n.scenario.Seed)
	n.next = 0
}

// Sigma implements the ObservationSource interface.
func (n *GaussianObservations) Sigma(k int) float64 {
	return n.scenario.Sigma(k)
}

// Observation implements the ObservationSource interface.
func (n *GaussianObservations) Observation(k int) (quat.Number, error) {
	if k != n.next {
		return quat.Number{}, errors.Wrapf(ErrOutOfOrder, "expected k=%d, got k=%d", n.next, k)
	}
	dist := n.nominal
	if n.scenario.InChaos(k) {
		dist = n.chaos
	}
	w := dist.Rand(nil)
	z, err := Normalize(quat.Add(n.scenario.Target, quat.Number{Real: w[0], Imag: w[1], Jmag: w[2], Kmag: w[3]}))
	if err != nil {
		return quat.Number{}, errors.Wrapf(err, "observation k=%d", k)
	}
	n.next++
	return z, nil
}

// String implements the Stringer interface.
func (n *GaussianObservations) String() string {
	return fmt.Sprintf("AWGN{%s}", n.scenario)
}

// BatchObservations replays a recorded sequence of observations.
type BatchObservations struct {
	observations []quat.Number
	sigmas       []float64
}

// NewBatchObservations returns a replay source. sigmas may be nil; otherwise it must
// have one entry per observation.
func NewBatchObservations(observations []quat.Number, sigmas []float64) (*BatchObservations, error) {
	if sigmas != nil && len(sigmas) != len(observations) {
		return nil, errors.Errorf("%d sigmas for %d observations", len(sigmas), len(observations))
	}
	return &BatchObservations{observations, sigmas}, nil
}

// Observation implements the ObservationSource interface.
func (n BatchObservations) Observation(k int) (quat.Number, error) {
	if k < 0 || k >= len(n.observations) {
		return quat.Number{}, errors.Wrapf(ErrNoObservation, "no observation defined at step k=%d", k)
	}
	return n.observations[k], nil
}

// Sigma implements the ObservationSource interface. It is zero when unknown.
func (n BatchObservations) Sigma(k int) float64 {
	if n.sigmas == nil || k < 0 || k >= len(n.sigmas) {
		return 0
	}
	return n.sigmas[k]
}

// Reset implements the ObservationSource interface. A replay has no cursor.
func (n BatchObservations) Reset() {}

// Len returns the number of recorded observations.
func (n BatchObservations) Len() int {
	return len(n.observations)
}

// String implements the Stringer interface.
func (n BatchObservations) String() string {
	return fmt.Sprintf("BatchObservations{%d}", len(n.observations))
}
