// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

// smoothedFields enumerates the whitelist once for the tests below.
var smoothedFields = []struct {
	name string
	get  func(*FeatureVector) float64
}{
	{"Amplitude", func(v *FeatureVector) float64 { return v.Amplitude }},
	{"SpectralCentroid", func(v *FeatureVector) float64 { return v.SpectralCentroid }},
	{"SpectralRolloff", func(v *FeatureVector) float64 { return v.SpectralRolloff }},
	{"Loudness", func(v *FeatureVector) float64 { return v.Loudness }},
	{"Sharpness", func(v *FeatureVector) float64 { return v.Sharpness }},
	{"Roughness", func(v *FeatureVector) float64 { return v.Roughness }},
	{"Harmonicity", func(v *FeatureVector) float64 { return v.Harmonicity }},
	{"Fundamental", func(v *FeatureVector) float64 { return v.Fundamental }},
}

func rawVector(scale float64) FeatureVector {
	v := NewFeatureVector()
	v.Amplitude = 0.5 * scale
	v.SpectralCentroid = 1000 * scale
	v.SpectralRolloff = 3000 * scale
	v.Loudness = 12 * scale
	v.Sharpness = 2 * scale
	v.Roughness = 0.4 * scale
	v.Harmonicity = 0.9 * scale
	v.Fundamental = 220 * scale
	return v
}

func TestSmoothFirstFramePassthrough(t *testing.T) {
	s := NewFeatureSmoother(DefaultSmoothingAlpha)
	v := rawVector(1)
	raw := v

	s.Smooth(&v)

	for _, f := range smoothedFields {
		if got, want := f.get(&v), f.get(&raw); got != want {
			t.Errorf("%s = %v on first frame, want passthrough %v", f.name, got, want)
		}
	}
}

func TestSmoothSecondFrameEMA(t *testing.T) {
	s := NewFeatureSmoother(DefaultSmoothingAlpha)
	first := rawVector(1)
	s.Smooth(&first)

	v := rawVector(2)
	raw := v
	s.Smooth(&v)

	const alpha = DefaultSmoothingAlpha
	for _, f := range smoothedFields {
		want := alpha*f.get(&raw) + (1-alpha)*f.get(&first)
		if got := f.get(&v); got != want {
			t.Errorf("%s = %v, want EMA %v", f.name, got, want)
		}
	}
}

// Each smoothed value must land between the previous output and the new
// raw value, so rendered parameters glide without overshoot.
func TestSmoothConvexity(t *testing.T) {
	s := NewFeatureSmoother(DefaultSmoothingAlpha)
	prev := rawVector(1)
	s.Smooth(&prev)

	for i, scale := range []float64{3, 0.2, 1.7, 0.01, 5} {
		v := rawVector(scale)
		raw := v
		s.Smooth(&v)

		for _, f := range smoothedFields {
			got := f.get(&v)
			lo := math.Min(f.get(&prev), f.get(&raw))
			hi := math.Max(f.get(&prev), f.get(&raw))
			if got < lo || got > hi {
				t.Errorf("step %d: %s = %v outside [%v, %v]", i, f.name, got, lo, hi)
			}
		}
		prev = v
	}
}

func TestSmoothLeavesOtherFieldsRaw(t *testing.T) {
	s := NewFeatureSmoother(DefaultSmoothingAlpha)
	first := rawVector(1)
	first.RMS = 0.5
	first.CriticalBands[3] = 42
	s.Smooth(&first)

	v := rawVector(2)
	v.RMS = 0.9
	v.Peak = 1.1
	v.CriticalBands[3] = 7
	v.Onset = true
	s.Smooth(&v)

	if v.RMS != 0.9 || v.Peak != 1.1 {
		t.Errorf("RMS/Peak = %v/%v, want raw 0.9/1.1", v.RMS, v.Peak)
	}
	if v.CriticalBands[3] != 7 {
		t.Errorf("CriticalBands[3] = %v, want raw 7", v.CriticalBands[3])
	}
	if !v.Onset {
		t.Error("Onset flag cleared by smoothing")
	}
}

func TestNewFeatureSmootherAlphaFallback(t *testing.T) {
	for _, alpha := range []float64{0, -0.5, 1.5} {
		if s := NewFeatureSmoother(alpha); s.alpha != DefaultSmoothingAlpha {
			t.Errorf("NewFeatureSmoother(%v).alpha = %v, want %v", alpha, s.alpha, DefaultSmoothingAlpha)
		}
	}
	if s := NewFeatureSmoother(0.5); s.alpha != 0.5 {
		t.Errorf("NewFeatureSmoother(0.5).alpha = %v, want 0.5", s.alpha)
	}
}
