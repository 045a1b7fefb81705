// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		name string
		want WindowFunc
	}{
		{"hann", Hann},
		{"Hanning", Hann},
		{"HAMMING", Hamming},
		{"blackman", Blackman},
		{"blackmannuttall", BlackmanNuttall},
		{"bartletthann", BartlettHann},
		{"lanczos", Lanczos},
		{"nuttall", Nuttall},
	}
	for _, tt := range tests {
		got, err := ParseWindowFunc(tt.name)
		if err != nil {
			t.Errorf("ParseWindowFunc(%q) error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("ParseWindowFunc(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseWindowFuncUnknownFallsBackToHann(t *testing.T) {
	got, err := ParseWindowFunc("boxcar")
	if err == nil {
		t.Error("ParseWindowFunc(boxcar) returned no error")
	}
	if got != Hann {
		t.Errorf("ParseWindowFunc(boxcar) = %v, want Hann", got)
	}
}

func TestApplyWindowShapes(t *testing.T) {
	const n = 9
	mid := n / 2

	hann := make([]float64, n)
	applyWindow(hann, Hann)
	if math.Abs(hann[0]) > 1e-12 || math.Abs(hann[n-1]) > 1e-12 {
		t.Errorf("Hann endpoints = %v, %v, want 0", hann[0], hann[n-1])
	}
	if hann[mid] < 0.999 {
		t.Errorf("Hann midpoint = %v, want ~1", hann[mid])
	}

	// Hamming keeps a pedestal at the edges.
	hamming := make([]float64, n)
	applyWindow(hamming, Hamming)
	if hamming[0] < 0.05 {
		t.Errorf("Hamming endpoint = %v, want the nonzero pedestal", hamming[0])
	}

	// Out-of-range types fall back to Hann.
	fallback := make([]float64, n)
	applyWindow(fallback, WindowFunc(99))
	for i := range fallback {
		if fallback[i] != hann[i] {
			t.Fatalf("fallback[%d] = %v, want Hann's %v", i, fallback[i], hann[i])
		}
	}
}
