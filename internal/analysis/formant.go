// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"math/cmplx"
	"slices"

	"gonum.org/v1/gonum/mat"
)

const (
	// formantMinFrame is the shortest frame LPC analysis runs on. Shorter
	// frames report DefaultFormants.
	formantMinFrame = 1024

	// DefaultLPCOrderCap bounds the LPC model order; the effective order
	// is the smaller of the cap and a quarter of the frame length.
	DefaultLPCOrderCap = 16

	// speedOfSound (cm/s) for the vocal-tract-length estimate.
	speedOfSound = 34300.0

	// formantFloorHz rejects LPC roots below the usual first-formant
	// region; anything lower is pitch or DC leakage, not a resonance.
	formantFloorHz = 200.0
)

// FormantTracker estimates vocal-tract resonances by fitting an LPC model
// to each frame and reading resonance frequencies off the model's poles.
// It always yields exactly FormantCount formants: when fewer poles survive
// filtering, the set is padded by scaling the last found frequency, and
// when the model degenerates entirely (silence, unstable recursion) a
// fixed neutral-vowel set is reported instead.
type FormantTracker struct {
	sampleRate float64
	orderCap   int

	// Scratch buffers sized for orderCap, reused every frame.
	r        []float64
	lpc      []float64
	lpcPrev  []float64
	compData []float64
	roots    []complex128
	cands    []float64
}

// NewFormantTracker returns a tracker for the given sample rate. orderCap
// bounds the LPC order; values below 2 fall back to DefaultLPCOrderCap.
func NewFormantTracker(sampleRate float64, orderCap int) *FormantTracker {
	if orderCap < 2 {
		orderCap = DefaultLPCOrderCap
	}
	return &FormantTracker{
		sampleRate: sampleRate,
		orderCap:   orderCap,
		r:          make([]float64, orderCap+1),
		lpc:        make([]float64, orderCap+1),
		lpcPrev:    make([]float64, orderCap+1),
		compData:   make([]float64, orderCap*orderCap),
		roots:      make([]complex128, orderCap),
		cands:      make([]float64, 0, orderCap),
	}
}

// Track fills v.Formants from the frame. The returned set always holds
// exactly FormantCount entries regardless of input.
func (t *FormantTracker) Track(frame []float64, v *FeatureVector) {
	v.Formants = t.estimate(frame)
}

func (t *FormantTracker) estimate(frame []float64) FormantSet {
	n := len(frame)
	if n < formantMinFrame {
		return DefaultFormants()
	}
	order := t.orderCap
	if n/4 < order {
		order = n / 4
	}

	// Autocorrelation up to order lags.
	r := t.r[:order+1]
	for k := range r {
		var sum float64
		for i := 0; i+k < n; i++ {
			sum += frame[i] * frame[i+k]
		}
		r[k] = sum
	}

	a, ok := t.levinsonDurbin(r, order)
	if !ok {
		return DefaultFormants()
	}

	freqs, ok := t.polePeaks(a, order)
	if !ok {
		return DefaultFormants()
	}
	return t.buildSet(freqs)
}

// levinsonDurbin solves the Toeplitz normal equations for the LPC
// coefficients a[0..order] with a[0] = 1. It reports !ok when the
// prediction error collapses or the recursion goes non-finite, both of
// which mean the frame has no usable resonance structure.
func (t *FormantTracker) levinsonDurbin(r []float64, order int) ([]float64, bool) {
	a := t.lpc[:order+1]
	prev := t.lpcPrev[:order+1]
	for i := range a {
		a[i] = 0
	}
	a[0] = 1.0

	predErr := r[0]
	if predErr <= 0 {
		return nil, false
	}
	for i := 1; i <= order; i++ {
		var acc float64
		for j := 0; j < i; j++ {
			acc += a[j] * r[i-j]
		}
		k := -acc / predErr

		// The order-i update reads the order-(i-1) coefficients in both
		// directions, so it needs a stable copy.
		copy(prev, a[:i])
		for j := 1; j < i; j++ {
			a[j] = prev[j] + k*prev[i-j]
		}
		a[i] = k

		predErr *= 1 - k*k
		if predErr <= 0 {
			return nil, false
		}
	}
	for _, c := range a {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, false
		}
	}
	return a, true
}

// polePeaks finds the roots of the LPC polynomial as eigenvalues of its
// companion matrix, then keeps the stable upper-half-plane poles whose
// angles map into the resonance band (formantFloorHz, Nyquist). The
// result is sorted ascending.
func (t *FormantTracker) polePeaks(a []float64, order int) ([]float64, bool) {
	comp := mat.NewDense(order, order, t.compData[:order*order])
	comp.Zero()
	for j := 0; j < order; j++ {
		comp.Set(0, j, -a[j+1])
	}
	for i := 1; i < order; i++ {
		comp.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(comp, mat.EigenNone); !ok {
		return nil, false
	}
	roots := eig.Values(t.roots[:order])

	nyquist := t.sampleRate / 2
	cands := t.cands[:0]
	for _, root := range roots {
		if cmplx.Abs(root) >= 1 || imag(root) <= 0 {
			continue
		}
		freq := math.Atan2(imag(root), real(root)) * t.sampleRate / (2 * math.Pi)
		if freq > formantFloorHz && freq < nyquist {
			cands = append(cands, freq)
		}
	}
	slices.Sort(cands)
	return cands, true
}

// buildSet pads or trims the candidate list to exactly FormantCount
// entries. With no candidates at all the ladder is seeded at 800 Hz; each
// missing higher formant extends the last one by a factor of 1.3.
func (t *FormantTracker) buildSet(freqs []float64) FormantSet {
	var set FormantSet
	count := len(freqs)
	if count > FormantCount {
		count = FormantCount
	}
	copy(set.Frequencies[:], freqs[:count])
	for i := count; i < FormantCount; i++ {
		if i == 0 {
			set.Frequencies[i] = 800.0
			continue
		}
		set.Frequencies[i] = set.Frequencies[i-1] * 1.3
	}
	for i, f := range set.Frequencies {
		set.Bandwidths[i] = 50.0 + 0.05*f
	}

	set.VocalTractLength = DefaultVocalTractLength
	if f1 := set.Frequencies[0]; f1 > 0 {
		vtl := speedOfSound / (4 * f1)
		if vtl < 10 {
			vtl = 10
		} else if vtl > 25 {
			vtl = 25
		}
		set.VocalTractLength = vtl
	}
	return set
}
