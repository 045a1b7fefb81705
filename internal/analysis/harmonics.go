// SPDX-License-Identifier: MIT
package analysis

import "math"

const (
	// maxHarmonics is the highest harmonic index collected into the
	// harmonic-bin set.
	maxHarmonics = 20

	// harmonicBinTolerance widens each harmonic to +/- this many bins to
	// absorb detuning and window leakage.
	harmonicBinTolerance = 2
)

// HarmonicNoiseSeparator splits a frame's spectral power into energy at
// multiples of the fundamental versus everything else. Harmonicity, the
// harmonic share of total power, is close to 1 for clean periodic tones
// and close to 0 for noise.
type HarmonicNoiseSeparator struct {
	binWidth float64
	nyquist  float64
	mask     []bool // Scratch harmonic-bin set, reused every frame.
}

// NewHarmonicNoiseSeparator returns a separator for spectra produced at
// the given frame size and sample rate.
func NewHarmonicNoiseSeparator(frameSize int, sampleRate float64) *HarmonicNoiseSeparator {
	return &HarmonicNoiseSeparator{
		binWidth: sampleRate / float64(frameSize),
		nyquist:  sampleRate / 2,
		mask:     make([]bool, frameSize/2+1),
	}
}

// Separate fills the harmonic-energy fields of v from the fundamental and
// the power spectrum. With no valid fundamental the frame is reported as
// pure noise; with no energy at all every field is zero. The power slice
// must come from the analyzer this separator was sized for.
func (s *HarmonicNoiseSeparator) Separate(f0 float64, power []float64, v *FeatureVector) {
	if f0 <= 0 {
		v.HarmonicEnergy = 0
		v.NoiseEnergy = 1.0
		v.Harmonicity = 0
		v.Inharmonicity = 1.0
		return
	}

	mask := s.mask[:len(power)]
	clear(mask)
	for h := 1; h <= maxHarmonics; h++ {
		target := float64(h) * f0
		if target > s.nyquist {
			break
		}
		bin := int(math.Round(target / s.binWidth))
		if bin > len(power)-1 {
			bin = len(power) - 1
		}
		for off := -harmonicBinTolerance; off <= harmonicBinTolerance; off++ {
			if idx := bin + off; idx >= 0 && idx < len(power) {
				mask[idx] = true
			}
		}
	}

	var harmonic, noise float64
	for i, p := range power {
		if mask[i] {
			harmonic += p
		} else {
			noise += p
		}
	}
	total := harmonic + noise
	if total <= 0 {
		v.HarmonicEnergy = 0
		v.NoiseEnergy = 0
		v.Harmonicity = 0
		v.Inharmonicity = 0
		return
	}
	v.HarmonicEnergy = harmonic
	v.NoiseEnergy = noise
	v.Harmonicity = harmonic / total
	v.Inharmonicity = 1 - v.Harmonicity
}
