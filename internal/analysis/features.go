// SPDX-License-Identifier: MIT
/*
Package analysis turns audio frames into psychoacoustic feature
vectors: spectral shape, pitch, harmonicity, formants, Bark-band
loudness metrics, onsets and tempo. Components are built once with
pre-allocated workspaces and reused every frame; all numeric edge
cases resolve to documented defaults instead of errors.
*/
package analysis

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned when a frame is too short to analyze.
// Callers recover by republishing the previous snapshot.
var ErrInsufficientData = errors.New("analysis: insufficient data")

const (
	// BarkBands is the number of critical bands in the Bark scale.
	BarkBands = 24

	// FormantCount is the fixed number of tracked formants.
	FormantCount = 4

	// DefaultFundamental is reported when no pitch estimate is valid.
	DefaultFundamental = 440.0

	// DefaultTempo is reported until enough onsets arrive.
	DefaultTempo = 120.0

	// DefaultVocalTractLength is the average adult vocal tract in cm.
	DefaultVocalTractLength = 17.5
)

// FormantSet is exactly four formant frequency/bandwidth pairs plus a
// vocal tract length estimate. Never partially populated; detection
// gaps are filled with synthetic values.
type FormantSet struct {
	Frequencies      [FormantCount]float64 `json:"frequencies"`
	Bandwidths       [FormantCount]float64 `json:"bandwidths"`
	VocalTractLength float64               `json:"vocal_tract_length"`
}

// DefaultFormants is the synthetic set reported when detection fails:
// neutral-vowel formants and the average adult vocal tract.
func DefaultFormants() FormantSet {
	return FormantSet{
		Frequencies:      [FormantCount]float64{800, 1200, 2500, 3500},
		Bandwidths:       [FormantCount]float64{80, 120, 250, 350},
		VocalTractLength: DefaultVocalTractLength,
	}
}

// FeatureVector is the engine's public artifact: one complete feature
// snapshot per analysis pass. Every numeric field is finite after
// smoothing; missing measurements hold the documented defaults rather
// than NaN or sentinel values.
type FeatureVector struct {
	// Time-domain block.
	Amplitude    float64 `json:"amplitude"` // RMS, the primary level
	RMS          float64 `json:"rms"`
	Peak         float64 `json:"peak"`
	CrestFactor  float64 `json:"crest_factor"`
	DynamicRange float64 `json:"dynamic_range"`

	// Spectral shape.
	SpectralCentroid float64 `json:"spectral_centroid"`
	SpectralRolloff  float64 `json:"spectral_rolloff"`
	SpectralSpread   float64 `json:"spectral_spread"`
	SpectralSkewness float64 `json:"spectral_skewness"`
	SpectralKurtosis float64 `json:"spectral_kurtosis"`
	SpectralSlope    float64 `json:"spectral_slope"`
	ZeroCrossingRate float64 `json:"zero_crossing_rate"`

	// Pitch and harmonic structure.
	Fundamental    float64 `json:"fundamental"`
	HarmonicEnergy float64 `json:"harmonic_energy"`
	NoiseEnergy    float64 `json:"noise_energy"`
	Harmonicity    float64 `json:"harmonicity"`
	Inharmonicity  float64 `json:"inharmonicity"`

	// Psychoacoustics.
	Loudness      float64            `json:"loudness"`
	Sharpness     float64            `json:"sharpness"`
	Roughness     float64            `json:"roughness"`
	CriticalBands [BarkBands]float64 `json:"critical_bands"`
	BarkSpectrum  [BarkBands]float64 `json:"bark_spectrum"`

	// Voice.
	Formants FormantSet `json:"formants"`

	// Rhythm.
	Onset bool    `json:"onset"`
	Beat  bool    `json:"beat"`
	Tempo float64 `json:"tempo"`

	// Snapshot identity, assigned by the engine.
	Timestamp int64  `json:"timestamp_ns"` // monotonic nanoseconds
	Version   uint64 `json:"version"`
}

// NewFeatureVector returns a vector holding the documented defaults.
func NewFeatureVector() FeatureVector {
	v := FeatureVector{
		Fundamental: DefaultFundamental,
		Tempo:       DefaultTempo,
		Formants:    DefaultFormants(),
	}
	for i := range v.BarkSpectrum {
		v.BarkSpectrum[i] = -100 // 10*log10(1e-10), the silence floor
	}
	return v
}

// Sanitize replaces any non-finite field with its default so the
// finite-fields invariant holds no matter what the DSP chain produced.
// The field list is explicit; keep it in sync with the struct.
func (v *FeatureVector) Sanitize() {
	v.Amplitude = finite(v.Amplitude, 0)
	v.RMS = finite(v.RMS, 0)
	v.Peak = finite(v.Peak, 0)
	v.CrestFactor = finite(v.CrestFactor, 0)
	v.DynamicRange = finite(v.DynamicRange, 0)

	v.SpectralCentroid = finite(v.SpectralCentroid, 0)
	v.SpectralRolloff = finite(v.SpectralRolloff, 0)
	v.SpectralSpread = finite(v.SpectralSpread, 0)
	v.SpectralSkewness = finite(v.SpectralSkewness, 0)
	v.SpectralKurtosis = finite(v.SpectralKurtosis, 0)
	v.SpectralSlope = finite(v.SpectralSlope, 0)
	v.ZeroCrossingRate = finite(v.ZeroCrossingRate, 0)

	v.Fundamental = finite(v.Fundamental, DefaultFundamental)
	v.HarmonicEnergy = finite(v.HarmonicEnergy, 0)
	v.NoiseEnergy = finite(v.NoiseEnergy, 0)
	v.Harmonicity = finite(v.Harmonicity, 0)
	v.Inharmonicity = finite(v.Inharmonicity, 0)

	v.Loudness = finite(v.Loudness, 0)
	v.Sharpness = finite(v.Sharpness, 0)
	v.Roughness = finite(v.Roughness, 0)
	for i := range v.CriticalBands {
		v.CriticalBands[i] = finite(v.CriticalBands[i], 0)
		v.BarkSpectrum[i] = finite(v.BarkSpectrum[i], -100)
	}

	for i := range v.Formants.Frequencies {
		v.Formants.Frequencies[i] = finite(v.Formants.Frequencies[i], DefaultFormants().Frequencies[i])
		v.Formants.Bandwidths[i] = finite(v.Formants.Bandwidths[i], DefaultFormants().Bandwidths[i])
	}
	v.Formants.VocalTractLength = finite(v.Formants.VocalTractLength, DefaultVocalTractLength)

	v.Tempo = finite(v.Tempo, DefaultTempo)
}

func finite(x, fallback float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fallback
	}
	return x
}
