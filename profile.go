package dpfae

import (
	"math"

	"github.com/pkg/errors"
)

// QuaternionDim is the only state dimension supported by the estimators.
const QuaternionDim = 4

// HardwareProfile maps the arithmetic of both estimators onto per-operation energy
// proxies of a Cortex-M4 class part. Energies are normalized µJ.
// A profile is a plain value: copy it into each estimator, never share a pointer.
type HardwareProfile struct {
	Shift int // Fixed-point fractional bits
	Scale int // 1 << Shift
	Dim   int // Quaternion state vector size

	EnergyPerALUOp           float64 // Integer shift/add
	EnergyPerFPUMAC          float64 // Floating point multiply-accumulate
	EnergyPerMatrixInversion float64 // Bus and logic penalty of one matrix inversion
}

// DefaultHardwareProfile returns the Q16.16 profile used by the reference scenario.
func DefaultHardwareProfile() HardwareProfile {
	return HardwareProfile{
		Shift:                    16,
		Scale:                    1 << 16,
		Dim:                      QuaternionDim,
		EnergyPerALUOp:           0.05,
		EnergyPerFPUMAC:          1.25,
		EnergyPerMatrixInversion: 45.0,
	}
}

// Validate returns an error wrapping ErrInvalidProfile if the profile cannot drive the estimators.
func (hw HardwareProfile) Validate() error {
	if hw.Dim != QuaternionDim {
		return errors.Wrapf(ErrInvalidProfile, "dim must be %d, got %d", QuaternionDim, hw.Dim)
	}
	// The Q16.16 products of two int32-range values must fit in an int64.
	if hw.Shift < 1 || hw.Shift > 30 {
		return errors.Wrapf(ErrInvalidProfile, "shift %d out of range [1, 30]", hw.Shift)
	}
	if hw.Scale != 1<<hw.Shift {
		return errors.Wrapf(ErrInvalidProfile, "scale %d != 1<<%d", hw.Scale, hw.Shift)
	}
	energies := []struct {
		name string
		val  float64
	}{
		{"ALU op", hw.EnergyPerALUOp},
		{"FPU MAC", hw.EnergyPerFPUMAC},
		{"matrix inversion", hw.EnergyPerMatrixInversion},
	}
	for _, e := range energies {
		if e.val < 0 || math.IsNaN(e.val) || math.IsInf(e.val, 0) {
			return errors.Wrapf(ErrInvalidProfile, "energy per %s must be finite and non-negative, got %f", e.name, e.val)
		}
	}
	return nil
}

// fixedConst converts a real constant to the profile's fixed-point representation,
// rounding to nearest. At Q16.16 it yields eta=7864, gamma=64553, 655 and 98304.
func (hw HardwareProfile) fixedConst(v float64) int64 {
	return int64(math.Round(v * float64(hw.Scale)))
}
