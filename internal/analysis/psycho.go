// SPDX-License-Identifier: MIT
package analysis

import "math"

// barkEdges are the classic critical-band edge frequencies (Hz). The 25
// edges delimit the BarkBands analysis bands; edges above Nyquist collapse
// their bands to empty at construction.
var barkEdges = [BarkBands + 1]float64{
	0, 100, 200, 300, 400, 510, 630, 770, 920, 1080,
	1270, 1480, 1720, 2000, 2320, 2700, 3150, 3700, 4400, 5300,
	6400, 7700, 9500, 12000, 15500,
}

// PsychoacousticModel maps spectral power onto the Bark critical-band
// scale and derives Zwicker-style loudness, sharpness, and roughness from
// the band energies. The edge-to-bin table and the hearing-threshold curve
// are computed once at construction and reused every frame.
type PsychoacousticModel struct {
	edgeBins  [BarkBands + 1]int // FFT bin index of each band edge.
	threshold []float64          // Absolute-threshold magnitude per bin.
	weights   [BarkBands]float64 // Log-spaced sharpness weight per band.
}

// NewPsychoacousticModel returns a model for spectra produced at the given
// frame size and sample rate.
func NewPsychoacousticModel(frameSize int, sampleRate float64) *PsychoacousticModel {
	m := &PsychoacousticModel{}
	binCount := frameSize/2 + 1
	binWidth := sampleRate / float64(frameSize)

	for i, edge := range barkEdges {
		bin := int(math.Round(edge / binWidth))
		if bin < 0 {
			bin = 0
		}
		if bin > binCount-1 {
			bin = binCount - 1
		}
		m.edgeBins[i] = bin
	}

	m.threshold = make([]float64, binCount)
	for i := range m.threshold {
		m.threshold[i] = hearingThresholdMag(float64(i) * binWidth)
	}

	// Weights span one decade across the bands, emphasizing high bands.
	for i := range m.weights {
		m.weights[i] = math.Pow(10, float64(i)/float64(BarkBands-1))
	}
	return m
}

// hearingThresholdMag returns the absolute threshold of hearing at freq as
// a linear magnitude, using the Terhardt approximation of the threshold in
// dB SPL. Frequencies are floored at 1 Hz to keep the power terms finite.
func hearingThresholdMag(freq float64) float64 {
	f := math.Max(freq, 1.0) / 1000.0
	db := 3.64*math.Pow(f, -0.8) - 6.5*math.Exp(-0.6*(f-3.3)*(f-3.3)) + 1e-3*math.Pow(f, 4)
	return math.Pow(10, db/20)
}

// Analyze fills the psychoacoustic fields of v from the power spectrum:
// per-band energies, the dB Bark spectrum, and the loudness, sharpness,
// and roughness scalars. Silence yields zero for all three scalars and a
// Bark spectrum at the -100 dB floor. The power slice must come from the
// analyzer this model was sized for.
func (m *PsychoacousticModel) Analyze(power []float64, v *FeatureVector) {
	for band := 0; band < BarkBands; band++ {
		var energy float64
		lo, hi := m.edgeBins[band], m.edgeBins[band+1]
		if hi > len(power) {
			hi = len(power)
		}
		for bin := lo; bin < hi; bin++ {
			energy += power[bin]
		}
		v.CriticalBands[band] = energy
		v.BarkSpectrum[band] = 10 * math.Log10(math.Max(energy, 1e-10))
	}

	var loudness, weighted, total, roughness float64
	for band, energy := range v.CriticalBands {
		// The threshold curve is per bin; band ordinals index its low end.
		thr := band
		if thr > len(m.threshold)-1 {
			thr = len(m.threshold) - 1
		}
		if energy > m.threshold[thr] {
			loudness += math.Pow(energy, 0.23)
		}
		weighted += energy * m.weights[band]
		total += energy
		if band > 0 {
			roughness += math.Sqrt(v.CriticalBands[band-1] * energy)
		}
	}
	v.Loudness = loudness
	v.Roughness = roughness
	if total > 0 {
		v.Sharpness = weighted / total
	} else {
		v.Sharpness = 0
	}
}
