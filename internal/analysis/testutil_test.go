// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"math/rand"
	"testing"
)

const (
	testRate  = 44100.0
	testFrame = 4096
)

// sineFrame returns n samples of a sine at freq Hz with the given amplitude.
func sineFrame(n int, freq, amp float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return s
}

// harmonicStack returns n samples holding the first count harmonics of f0
// at equal amplitude each.
func harmonicStack(n int, f0 float64, count int, amp float64) []float64 {
	s := make([]float64, n)
	for h := 1; h <= count; h++ {
		f := f0 * float64(h)
		for i := range s {
			s[i] += amp * math.Sin(2*math.Pi*f*float64(i)/testRate)
		}
	}
	return s
}

// noiseFrame returns n samples of seeded uniform noise scaled to the given RMS.
func noiseFrame(n int, rms float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	s := make([]float64, n)
	var sumSq float64
	for i := range s {
		s[i] = rng.Float64()*2 - 1
		sumSq += s[i] * s[i]
	}
	scale := rms / math.Sqrt(sumSq/float64(n))
	for i := range s {
		s[i] *= scale
	}
	return s
}

// within reports whether got is inside want +/- frac*want.
func within(got, want, frac float64) bool {
	return math.Abs(got-want) <= frac*math.Abs(want)
}

func newTestAnalyzer(t *testing.T) *FrameAnalyzer {
	t.Helper()
	a, err := NewFrameAnalyzer(testFrame, testRate, Hann)
	if err != nil {
		t.Fatalf("NewFrameAnalyzer: %v", err)
	}
	return a
}

// analyzed runs one frame through a fresh analyzer and returns the vector.
func analyzed(t *testing.T, frame []float64) (*FrameAnalyzer, *FeatureVector) {
	t.Helper()
	a := newTestAnalyzer(t)
	v := NewFeatureVector()
	if err := a.Analyze(frame, &v); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return a, &v
}
