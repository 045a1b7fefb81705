// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"sonoscope/internal/log"
	"sonoscope/pkg/bitint"
)

// MinFrameSize is the shortest frame Analyze accepts. Callers receiving
// ErrInsufficientData should republish their previous FeatureVector.
const MinFrameSize = 512

// rolloffFraction is the cumulative-magnitude fraction defining spectral rolloff.
const rolloffFraction = 0.85

// Pre-allocated buffers for spectral analysis.
type spectralWorkspace struct {
	input     []float64    // Buffer for windowed input signal.
	fftOutput []complex128 // Buffer for FFT complex results.
	magnitude []float64    // Buffer for calculated magnitudes.
	power     []float64    // Buffer for squared magnitudes.
	logPower  []float64    // Buffer for the log-log slope fit (bins 1..N/2).
	window    []float64    // Pre-calculated window coefficients.
	mu        sync.RWMutex // Protects concurrent access to magnitude and power buffers.
}

// FrameAnalyzer transforms one frame of mono samples into the spectral
// portion of a FeatureVector: magnitude/power spectra plus the derived
// shape statistics (centroid, rolloff, spread, skewness, kurtosis, slope)
// and the time-domain level statistics (RMS, peak, crest factor, dynamic
// range, zero-crossing rate). It is designed for repeated real-time use:
// all buffers are allocated once at construction and the spectra stay
// readable by other goroutines between calls.
type FrameAnalyzer struct {
	fftCalculator *fourier.FFT // Reusable FFT calculator instance.
	frameSize     int          // Number of points for the FFT (power of 2).
	sampleRate    float64      // Sample rate of the input audio (Hz).
	freqBins      []float64    // Center frequency per bin, fixed after construction.
	logFreq       []float64    // log(freq) per bin above DC, fixed after construction.
	workspace     spectralWorkspace
}

// Compile-time check for the interface implementation.
var _ SpectrumProvider = (*FrameAnalyzer)(nil)

// NewFrameAnalyzer returns an analyzer for the given frame size and sample
// rate. The frame size must be a power of two so the FFT stays in its fast
// path, and the window coefficients are computed once here.
func NewFrameAnalyzer(frameSize int, sampleRate float64, windowType WindowFunc) (*FrameAnalyzer, error) {
	if !bitint.IsPowerOfTwo(frameSize) {
		return nil, fmt.Errorf("frame size must be a power of 2, got %d", frameSize)
	}
	if frameSize < MinFrameSize {
		return nil, fmt.Errorf("frame size must be at least %d, got %d", MinFrameSize, frameSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	windowCoeffs := make([]float64, frameSize)
	applyWindow(windowCoeffs, windowType)

	// FFT output size for real input is N/2 + 1 complex values.
	binCount := frameSize/2 + 1
	binWidth := sampleRate / float64(frameSize)
	freqBins := make([]float64, binCount)
	logFreq := make([]float64, binCount-1)
	for i := range freqBins {
		freqBins[i] = float64(i) * binWidth
	}
	// The slope fit runs in log-log space over the bins above DC.
	for i := 1; i < binCount; i++ {
		logFreq[i-1] = math.Log(math.Max(freqBins[i], 1.0))
	}

	log.Debugf("analysis: initializing FrameAnalyzer (size: %d, rate: %.1f Hz, window: %v)", frameSize, sampleRate, windowType)

	return &FrameAnalyzer{
		fftCalculator: fourier.NewFFT(frameSize),
		frameSize:     frameSize,
		sampleRate:    sampleRate,
		freqBins:      freqBins,
		logFreq:       logFreq,
		workspace: spectralWorkspace{
			input:     make([]float64, frameSize),
			fftOutput: make([]complex128, binCount),
			magnitude: make([]float64, binCount),
			power:     make([]float64, binCount),
			logPower:  make([]float64, binCount-1),
			window:    windowCoeffs,
			// mu is zero-value ready.
		},
	}, nil
}

// Analyze runs one frame through the FFT and fills the level and spectral
// fields of v. The frame is read raw for the time-domain statistics and
// windowed for the spectrum. Frames shorter than MinFrameSize return
// ErrInsufficientData and leave v untouched; frames longer than the
// configured size are truncated to it.
func (a *FrameAnalyzer) Analyze(frame []float64, v *FeatureVector) error {
	if len(frame) < MinFrameSize {
		return ErrInsufficientData
	}

	// --- 1. Time-Domain Statistics (raw frame, no lock needed) ---
	rms, peak, zcr := timeStats(frame)
	v.Amplitude = rms
	v.RMS = rms
	v.Peak = peak
	if rms > 0 {
		v.CrestFactor = peak / rms
	} else {
		v.CrestFactor = 0
	}
	v.DynamicRange = peak - rms
	v.ZeroCrossingRate = zcr

	// --- 2. Windowing & FFT ---
	a.workspace.mu.Lock() // Lock for writing to workspace buffers.

	// Apply window. Zero-pad if the frame is shorter than frameSize.
	inputLen := len(frame)
	for i := 0; i < a.frameSize; i++ {
		if i < inputLen {
			a.workspace.input[i] = frame[i] * a.workspace.window[i]
		} else {
			a.workspace.input[i] = 0
		}
	}
	a.fftCalculator.Coefficients(a.workspace.fftOutput, a.workspace.input)
	for i, c := range a.workspace.fftOutput {
		m := cmplx.Abs(c)
		a.workspace.magnitude[i] = m
		a.workspace.power[i] = m * m
	}

	// --- 3. Spectral Shape Statistics ---
	centroid, rolloff := a.centroidRolloff()
	spread, skewness, kurtosis := a.spectralMoments()
	slope := a.spectralSlope()

	// Release the lock now that calculations involving shared buffers are done.
	a.workspace.mu.Unlock()

	v.SpectralCentroid = centroid
	v.SpectralRolloff = rolloff
	v.SpectralSpread = spread
	v.SpectralSkewness = skewness
	v.SpectralKurtosis = kurtosis
	v.SpectralSlope = slope
	return nil
}

// timeStats returns the RMS level, absolute peak, and zero-crossing rate
// of a raw frame. A sample sitting exactly on zero counts as its own sign
// state, so a touch-and-return crossing is counted twice, matching the
// sign-difference definition.
func timeStats(frame []float64) (rms, peak, zcr float64) {
	var sumSq float64
	crossings := 0
	prevSign := sign(frame[0])
	for i, s := range frame {
		sumSq += s * s
		if abs := math.Abs(s); abs > peak {
			peak = abs
		}
		if i > 0 {
			if cur := sign(s); cur != prevSign {
				crossings++
				prevSign = cur
			}
		}
	}
	n := float64(len(frame))
	return math.Sqrt(sumSq / n), peak, float64(crossings) / n
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// centroidRolloff computes the magnitude-weighted mean frequency and the
// frequency below which rolloffFraction of the magnitude sum lies. Both
// are 0 for an all-zero spectrum. Caller must hold the workspace lock.
func (a *FrameAnalyzer) centroidRolloff() (centroid, rolloff float64) {
	var sumMag, weighted float64
	for i, m := range a.workspace.magnitude {
		sumMag += m
		weighted += a.freqBins[i] * m
	}
	if sumMag <= 0 {
		return 0, 0
	}
	centroid = weighted / sumMag

	target := rolloffFraction * sumMag
	var cum float64
	for i, m := range a.workspace.magnitude {
		cum += m
		if cum >= target {
			rolloff = a.freqBins[i]
			break
		}
	}
	return centroid, rolloff
}

// spectralMoments computes power-weighted spread, skewness, and excess
// kurtosis about the power-weighted centroid. All three are 0 when the
// power sum or the spread vanishes. Caller must hold the workspace lock.
func (a *FrameAnalyzer) spectralMoments() (spread, skewness, kurtosis float64) {
	var sumPow, weighted float64
	for i, p := range a.workspace.power {
		sumPow += p
		weighted += a.freqBins[i] * p
	}
	if sumPow <= 0 {
		return 0, 0, 0
	}
	centroid := weighted / sumPow

	var m2, m3, m4 float64
	for i, p := range a.workspace.power {
		d := a.freqBins[i] - centroid
		d2 := d * d
		m2 += d2 * p
		m3 += d2 * d * p
		m4 += d2 * d2 * p
	}
	spread = math.Sqrt(m2 / sumPow)
	if spread <= 0 {
		return 0, 0, 0
	}
	s3 := spread * spread * spread
	skewness = m3 / (sumPow * s3)
	kurtosis = m4/(sumPow*s3*spread) - 3.0
	return spread, skewness, kurtosis
}

// spectralSlope fits log(power) against log(frequency) over the bins above
// DC and returns the fitted slope. Power is floored at 1e-10 so silence
// yields a flat fit instead of -Inf. Caller must hold the workspace lock.
func (a *FrameAnalyzer) spectralSlope() float64 {
	for i := 1; i < len(a.workspace.power); i++ {
		a.workspace.logPower[i-1] = math.Log(math.Max(a.workspace.power[i], 1e-10))
	}
	_, slope := stat.LinearRegression(a.logFreq, a.workspace.logPower, nil, false)
	return slope
}

// GetMagnitudes returns a thread-safe copy of the latest magnitude spectrum.
// NOTE: This method allocates a new slice for the copy on each call.
// For performance-critical readers wanting to avoid allocation, use GetMagnitudesInto.
func (a *FrameAnalyzer) GetMagnitudes() []float64 {
	a.workspace.mu.RLock() // Acquire read lock - multiple readers OK.
	defer a.workspace.mu.RUnlock()

	// Return a *copy* to prevent race conditions if the caller modifies the
	// slice or if Analyze runs concurrently.
	magCopy := make([]float64, len(a.workspace.magnitude))
	copy(magCopy, a.workspace.magnitude)
	return magCopy
}

// GetMagnitudesInto copies the latest magnitude spectrum into dest, which
// must have length frameSize/2 + 1. It avoids allocation for readers on
// the hot path.
func (a *FrameAnalyzer) GetMagnitudesInto(dest []float64) error {
	a.workspace.mu.RLock() // Acquire read lock.
	defer a.workspace.mu.RUnlock()

	if len(dest) != len(a.workspace.magnitude) {
		return fmt.Errorf("destination slice length %d does not match required length %d", len(dest), len(a.workspace.magnitude))
	}
	copy(dest, a.workspace.magnitude)
	return nil
}

// GetPowerInto copies the latest power spectrum into dest, which must have
// length frameSize/2 + 1.
func (a *FrameAnalyzer) GetPowerInto(dest []float64) error {
	a.workspace.mu.RLock() // Acquire read lock.
	defer a.workspace.mu.RUnlock()

	if len(dest) != len(a.workspace.power) {
		return fmt.Errorf("destination slice length %d does not match required length %d", len(dest), len(a.workspace.power))
	}
	copy(dest, a.workspace.power)
	return nil
}

// GetFrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
func (a *FrameAnalyzer) GetFrequencyForBin(binIndex int) float64 {
	// freqBins is immutable after construction, no lock needed.
	if binIndex < 0 || binIndex >= len(a.freqBins) {
		return 0.0
	}
	return a.freqBins[binIndex]
}

// GetBinCount returns the number of spectrum bins (frameSize/2 + 1).
func (a *FrameAnalyzer) GetBinCount() int {
	return len(a.freqBins) // Immutable after creation, no lock needed.
}

// GetFrameSize returns the configured frame size (number of FFT points).
func (a *FrameAnalyzer) GetFrameSize() int {
	return a.frameSize // Immutable after creation, no lock needed.
}

// GetSampleRate returns the configured sample rate (Hz).
func (a *FrameAnalyzer) GetSampleRate() float64 {
	return a.sampleRate // Immutable after creation, no lock needed.
}
