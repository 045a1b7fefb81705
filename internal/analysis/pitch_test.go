// SPDX-License-Identifier: MIT
package analysis

import (
	"testing"
)

func newTestEstimator() *FundamentalEstimator {
	return NewFundamentalEstimator(testFrame, testRate)
}

func TestAutocorrelationPitch(t *testing.T) {
	e := newTestEstimator()

	est := e.Autocorrelation(sineFrame(testFrame, 220, 0.5))
	if !est.Valid {
		t.Fatal("Autocorrelation on a pure tone: got invalid estimate")
	}
	if !within(est.Frequency, 220, 0.05) {
		t.Errorf("Autocorrelation f0 = %v, want 220 within 5%%", est.Frequency)
	}

	if est := e.Autocorrelation(make([]float64, testFrame)); est.Valid {
		t.Errorf("Autocorrelation on silence: got valid estimate %v Hz", est.Frequency)
	}
}

func TestCepstralPitch(t *testing.T) {
	e := newTestEstimator()

	est := e.Cepstral(harmonicStack(testFrame, 200, 5, 0.2))
	if !est.Valid {
		t.Fatal("Cepstral on a harmonic stack: got invalid estimate")
	}
	if !within(est.Frequency, 200, 0.05) {
		t.Errorf("Cepstral f0 = %v, want 200 within 5%%", est.Frequency)
	}

	if est := e.Cepstral(make([]float64, testFrame)); est.Valid {
		t.Errorf("Cepstral on silence: got valid estimate %v Hz", est.Frequency)
	}
}

func TestHarmonicProductPitch(t *testing.T) {
	e := newTestEstimator()
	a, _ := analyzed(t, harmonicStack(testFrame, 200, 5, 0.2))

	est := e.HarmonicProduct(a.GetMagnitudes())
	if !est.Valid {
		t.Fatal("HarmonicProduct on a harmonic stack: got invalid estimate")
	}
	if !within(est.Frequency, 200, 0.05) {
		t.Errorf("HarmonicProduct f0 = %v, want 200 within 5%%", est.Frequency)
	}

	if est := e.HarmonicProduct(make([]float64, testFrame/2+1)); est.Valid {
		t.Errorf("HarmonicProduct on silence: got valid estimate %v Hz", est.Frequency)
	}
}

// Fusing the three methods on a pure tone must land on the tone even if
// one method wanders to another octave.
func TestEstimateFusedPureTone(t *testing.T) {
	e := newTestEstimator()
	a, _ := analyzed(t, sineFrame(testFrame, 220, 0.5))

	f0 := e.Estimate(sineFrame(testFrame, 220, 0.5), a.GetMagnitudes())
	if !within(f0, 220, 0.05) {
		t.Errorf("Estimate f0 = %v, want 220 within 5%%", f0)
	}
}

func TestEstimateHoldsPreviousOnSilence(t *testing.T) {
	e := newTestEstimator()
	a, _ := analyzed(t, sineFrame(testFrame, 220, 0.5))

	voiced := e.Estimate(sineFrame(testFrame, 220, 0.5), a.GetMagnitudes())
	silent := e.Estimate(make([]float64, testFrame), make([]float64, testFrame/2+1))
	if silent != voiced {
		t.Errorf("Estimate on silence = %v, want held previous %v", silent, voiced)
	}
}

func TestEstimateDefaultWithNoHistory(t *testing.T) {
	e := newTestEstimator()

	f0 := e.Estimate(make([]float64, testFrame), make([]float64, testFrame/2+1))
	if f0 != DefaultFundamental {
		t.Errorf("Estimate with no history = %v, want %v", f0, DefaultFundamental)
	}
}

func TestFusePitch(t *testing.T) {
	valid := func(f float64) PitchEstimate {
		return PitchEstimate{Frequency: f, Valid: true}
	}

	tests := []struct {
		name      string
		estimates []PitchEstimate
		previous  float64
		want      float64
	}{
		{
			"Median outvotes one octave error",
			[]PitchEstimate{valid(220), valid(440), valid(219)},
			0,
			220,
		},
		{
			"Single voter wins",
			[]PitchEstimate{valid(150), {Frequency: 30, Valid: true}, {}},
			0,
			150,
		},
		{
			"Two voters average",
			[]PitchEstimate{valid(100), valid(300), {}},
			0,
			200,
		},
		{
			"Out of range voters excluded",
			[]PitchEstimate{valid(801), valid(79.9), valid(220)},
			0,
			220,
		},
		{
			"Invalid estimates never vote",
			[]PitchEstimate{{Frequency: 220, Valid: false}},
			0,
			DefaultFundamental,
		},
		{
			"No voters holds previous",
			[]PitchEstimate{{}, {}, {}},
			312.5,
			312.5,
		},
		{
			"No voters and no history defaults",
			nil,
			0,
			DefaultFundamental,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FusePitch(tt.estimates, tt.previous); got != tt.want {
				t.Errorf("FusePitch() = %v, want %v", got, tt.want)
			}
		})
	}
}

func BenchmarkEstimate(b *testing.B) {
	e := NewFundamentalEstimator(testFrame, testRate)
	frame := harmonicStack(testFrame, 200, 5, 0.2)
	a, err := NewFrameAnalyzer(testFrame, testRate, Hann)
	if err != nil {
		b.Fatal(err)
	}
	v := NewFeatureVector()
	if err := a.Analyze(frame, &v); err != nil {
		b.Fatal(err)
	}
	mags := a.GetMagnitudes()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = e.Estimate(frame, mags)
	}
}
