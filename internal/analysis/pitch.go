// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Plausible vocal/instrumental fundamental range (Hz). Estimates outside
// it are treated as method failures during fusion.
const (
	pitchFloorHz   = 80.0
	pitchCeilingHz = 800.0
)

// PitchMethod identifies which estimator produced a PitchEstimate.
type PitchMethod int

const (
	MethodAutocorrelation PitchMethod = iota
	MethodCepstral
	MethodHarmonicProduct
)

func (m PitchMethod) String() string {
	switch m {
	case MethodAutocorrelation:
		return "autocorrelation"
	case MethodCepstral:
		return "cepstral"
	case MethodHarmonicProduct:
		return "hps"
	default:
		return "unknown"
	}
}

// PitchEstimate is one method's opinion of the fundamental. Valid is false
// when the method found no usable peak, such as on silence.
type PitchEstimate struct {
	Frequency float64
	Method    PitchMethod
	Valid     bool
}

// FundamentalEstimator fuses three independent pitch estimates per frame:
// time-domain autocorrelation, the real cepstrum, and the harmonic product
// spectrum. Taking the median of whichever estimates land in the plausible
// range tolerates one method being wrong, commonly by an octave, without
// corrupting the pitch track.
type FundamentalEstimator struct {
	sampleRate float64
	binWidth   float64 // Spectrum bin width (Hz) for the HPS search.
	minLag     int     // Lag of the highest trackable pitch.
	maxLag     int     // Lag of the lowest trackable pitch (exclusive bound).
	hps        []float64
	prevFused  float64
}

// NewFundamentalEstimator returns an estimator for frames produced at the
// given sample rate and analyzed at the given frame size. The lag search
// range is fixed at construction from the trackable pitch range.
func NewFundamentalEstimator(frameSize int, sampleRate float64) *FundamentalEstimator {
	return &FundamentalEstimator{
		sampleRate: sampleRate,
		binWidth:   sampleRate / float64(frameSize),
		minLag:     int(sampleRate / pitchCeilingHz),
		maxLag:     int(sampleRate / pitchFloorHz),
		hps:        make([]float64, frameSize/2+1),
	}
}

// Estimate runs all three methods and fuses them, updating the estimator's
// pitch track. The frame is read raw; magnitudes is the windowed magnitude
// spectrum of the same frame. When no method produces a plausible estimate
// the previous fused pitch is held, so the track never collapses to zero
// on a silent or noisy frame.
func (e *FundamentalEstimator) Estimate(frame []float64, magnitudes []float64) float64 {
	estimates := [3]PitchEstimate{
		e.Autocorrelation(frame),
		e.Cepstral(frame),
		e.HarmonicProduct(magnitudes),
	}
	fused := FusePitch(estimates[:], e.prevFused)
	e.prevFused = fused
	return fused
}

// Autocorrelation estimates pitch from the arg-max of the frame's
// autocorrelation over the trackable lag range. The estimate is invalid
// when no lag shows positive self-similarity.
func (e *FundamentalEstimator) Autocorrelation(frame []float64) PitchEstimate {
	est := PitchEstimate{Method: MethodAutocorrelation}
	n := len(frame)
	bestLag := 0
	bestVal := 0.0
	for lag := e.minLag; lag < e.maxLag && lag < n; lag++ {
		var sum float64
		for i := 0; i+lag < n; i++ {
			sum += frame[i] * frame[i+lag]
		}
		if sum > bestVal {
			bestVal = sum
			bestLag = lag
		}
	}
	if bestLag > 0 {
		est.Frequency = e.sampleRate / float64(bestLag)
		est.Valid = true
	}
	return est
}

// Cepstral estimates pitch from the peak of the real cepstrum
// IFFT(log|FFT(x)|) over the trackable quefrency range. Strong for
// harmonic-rich signals, whose log spectrum is periodic in frequency.
func (e *FundamentalEstimator) Cepstral(frame []float64) PitchEstimate {
	est := PitchEstimate{Method: MethodCepstral}
	if len(frame) <= e.minLag {
		return est
	}

	spectrum := fft.FFTReal(frame)
	for i, c := range spectrum {
		spectrum[i] = complex(math.Log(math.Max(cmplx.Abs(c), 1e-10)), 0)
	}
	cepstrum := fft.IFFT(spectrum)

	// On silence the cepstrum is rounding ripple on the log floor; a real
	// rahmonic peak sits many orders above this.
	const peakFloor = 1e-12
	bestLag := 0
	bestVal := peakFloor
	for lag := e.minLag; lag < e.maxLag && lag < len(cepstrum); lag++ {
		if v := real(cepstrum[lag]); v > bestVal {
			bestVal = v
			bestLag = lag
		}
	}
	if bestLag > 0 {
		est.Frequency = e.sampleRate / float64(bestLag)
		est.Valid = true
	}
	return est
}

// HarmonicProduct estimates pitch by multiplying the magnitude spectrum
// with itself downsampled by factors 2 through 5, which reinforces the
// fundamental while spreading out non-harmonic peaks. The product is
// searched over the trackable frequency range.
func (e *FundamentalEstimator) HarmonicProduct(magnitudes []float64) PitchEstimate {
	est := PitchEstimate{Method: MethodHarmonicProduct}
	n := len(magnitudes)
	if n == 0 {
		return est
	}

	hps := e.hps[:n]
	copy(hps, magnitudes)
	length := n
	for h := 2; h <= 5; h++ {
		// Downsampling by h leaves ceil(n/h) bins; the product shrinks to match.
		down := (n + h - 1) / h
		if down < length {
			length = down
		}
		for i := 0; i < length; i++ {
			hps[i] *= magnitudes[i*h]
		}
	}

	minBin := int(math.Ceil(pitchFloorHz / e.binWidth))
	maxBin := int(math.Floor(pitchCeilingHz / e.binWidth))
	if maxBin >= length {
		maxBin = length - 1
	}
	bestBin := 0
	bestVal := 0.0
	for i := minBin; i <= maxBin; i++ {
		if hps[i] > bestVal {
			bestVal = hps[i]
			bestBin = i
		}
	}
	if bestBin > 0 {
		est.Frequency = float64(bestBin) * e.binWidth
		est.Valid = true
	}
	return est
}

// FusePitch reduces per-method estimates to a single fundamental. Valid
// estimates strictly inside the trackable range vote; the median of the
// voters wins. With no voters the previous fused pitch is returned, or
// DefaultFundamental if there is none yet.
func FusePitch(estimates []PitchEstimate, previous float64) float64 {
	var valid [3]float64
	n := 0
	for _, est := range estimates {
		if est.Valid && est.Frequency > pitchFloorHz && est.Frequency < pitchCeilingHz && n < len(valid) {
			valid[n] = est.Frequency
			n++
		}
	}
	switch n {
	case 0:
		if previous > 0 {
			return previous
		}
		return DefaultFundamental
	case 1:
		return valid[0]
	case 2:
		return (valid[0] + valid[1]) / 2
	default:
		return median3(valid[0], valid[1], valid[2])
	}
}

func median3(a, b, c float64) float64 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		b = a
	}
	return b
}
