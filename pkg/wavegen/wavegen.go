// Package wavegen generates deterministic test and source signals:
// sine waves, harmonic stacks and white noise. The float64 forms feed
// the analysis test suite; SineBlock fills float32 capture blocks for
// the built-in oscillator source.
package wavegen

import (
	"math"
	"math/rand"
)

// Sine returns size samples of a sine wave at the given frequency and
// peak amplitude.
func Sine(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// Harmonics returns size samples of a harmonic stack on the given
// fundamental. amplitudes[h] is the peak amplitude of harmonic h+1, so
// Harmonics(n, sr, 200, []float64{1, 0.5}) mixes 200 Hz and 400 Hz.
func Harmonics(size int, sampleRate, fundamental float64, amplitudes []float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		var s float64
		for h, amp := range amplitudes {
			s += amp * math.Sin(2*math.Pi*fundamental*float64(h+1)*t)
		}
		buffer[i] = s
	}
	return buffer
}

// Noise returns size samples of Gaussian white noise with the given
// standard deviation (which equals its RMS). The seed makes runs
// reproducible.
func Noise(size int, sigma float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	buffer := make([]float64, size)
	for i := range buffer {
		buffer[i] = sigma * rng.NormFloat64()
	}
	return buffer
}

// SineBlock fills dst with sine samples continuing from startIndex and
// returns the index for the next block. Phase is carried through the
// running sample index, so consecutive blocks form one continuous wave.
func SineBlock(dst []float32, sampleRate, frequency, amplitude float64, startIndex int) int {
	for i := range dst {
		t := float64(startIndex+i) / sampleRate
		dst[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return startIndex + len(dst)
}

// PeakBin returns the index of the largest magnitude in
// magnitudes[startBin:endBin] (inclusive, clamped to the slice).
func PeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
