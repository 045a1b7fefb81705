// SPDX-License-Identifier: MIT
package analysis

const (
	// DefaultSmoothingAlpha is the EMA weight given to the current frame.
	DefaultSmoothingAlpha = 0.3

	// smootherDepth is how many recent snapshots the smoother retains.
	smootherDepth = 10
)

// FeatureSmoother applies an exponential moving average to the scalar
// fields that feed direct visual mappings, so rendered parameters glide
// instead of jittering frame to frame. Smoothing runs against the previous
// smoothed vector, and only once two snapshots have been seen; array
// fields and event flags always pass through raw.
type FeatureSmoother struct {
	alpha float64
	ring  [smootherDepth]FeatureVector // Most recent raw snapshots.
	next  int
	seen  int
	prev  FeatureVector // Last smoothed output, the EMA carrier.
}

// NewFeatureSmoother returns a smoother with the given EMA alpha. Values
// outside (0, 1] fall back to DefaultSmoothingAlpha.
func NewFeatureSmoother(alpha float64) *FeatureSmoother {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultSmoothingAlpha
	}
	return &FeatureSmoother{alpha: alpha}
}

// Smooth blends v's whitelisted scalars toward the previous smoothed
// snapshot in place. Each smoothed value lands between the raw value and
// the previous output, so no field ever overshoots its inputs. The first
// snapshot passes through unchanged and seeds the EMA.
func (s *FeatureSmoother) Smooth(v *FeatureVector) {
	s.ring[s.next] = *v
	s.next = (s.next + 1) % smootherDepth
	if s.seen < smootherDepth {
		s.seen++
	}
	if s.seen < 2 {
		s.prev = *v
		return
	}

	v.Amplitude = s.ema(v.Amplitude, s.prev.Amplitude)
	v.SpectralCentroid = s.ema(v.SpectralCentroid, s.prev.SpectralCentroid)
	v.SpectralRolloff = s.ema(v.SpectralRolloff, s.prev.SpectralRolloff)
	v.Loudness = s.ema(v.Loudness, s.prev.Loudness)
	v.Sharpness = s.ema(v.Sharpness, s.prev.Sharpness)
	v.Roughness = s.ema(v.Roughness, s.prev.Roughness)
	v.Harmonicity = s.ema(v.Harmonicity, s.prev.Harmonicity)
	v.Fundamental = s.ema(v.Fundamental, s.prev.Fundamental)
	s.prev = *v
}

func (s *FeatureSmoother) ema(current, previous float64) float64 {
	return s.alpha*current + (1-s.alpha)*previous
}
