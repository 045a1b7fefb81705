// SPDX-License-Identifier: MIT
package analysis

// SpectrumProvider is implemented by components that expose their latest
// spectrum to readers on other goroutines, such as a UI drawing a live
// spectrum while the analysis loop keeps writing. This decouples consumers
// from the FFT implementation that produced the data.
type SpectrumProvider interface {
	GetMagnitudes() []float64                // GetMagnitudes returns a thread-safe copy of the latest magnitude spectrum.
	GetMagnitudesInto(dest []float64) error  // GetMagnitudesInto copies the latest magnitude spectrum without allocating.
	GetPowerInto(dest []float64) error       // GetPowerInto copies the latest power spectrum without allocating.
	GetFrequencyForBin(binIndex int) float64 // GetFrequencyForBin returns the center frequency (Hz) for a given bin index.
	GetBinCount() int                        // GetBinCount returns the number of spectrum bins.
	GetSampleRate() float64                  // GetSampleRate returns the sample rate used for the analysis.
}
