// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"sonoscope/internal/analysis"
	"sonoscope/internal/config"
	"sonoscope/pkg/wavegen"
)

// testConfig selects the oscillator source so no test touches
// PortAudio, and disables every transport.
func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Audio.Source = config.SourceSine
	return cfg
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func sineBlock(n int, freq, amp float64, startIndex int) []float32 {
	block := make([]float32, n)
	wavegen.SineBlock(block, config.DefaultSampleRate, freq, amp, startIndex)
	return block
}

func within(got, want, frac float64) bool {
	return math.Abs(got-want) <= math.Abs(want)*frac
}

func TestProcessBlockPublishesFeatures(t *testing.T) {
	e := newTestEngine(t)
	now := time.Unix(10, 0)

	e.ProcessBlock(sineBlock(4096, 440, 0.5, 0), now)

	got := e.Latest()
	if got.Version != 1 {
		t.Fatalf("Version = %d, want 1", got.Version)
	}
	if got.Timestamp != now.UnixNano() {
		t.Errorf("Timestamp = %d, want %d", got.Timestamp, now.UnixNano())
	}
	if !within(got.Fundamental, 440, 0.05) {
		t.Errorf("Fundamental = %.2f, want 440 within 5%%", got.Fundamental)
	}
	wantRMS := 0.5 / math.Sqrt2
	if !within(got.Amplitude, wantRMS, 0.02) {
		t.Errorf("Amplitude = %.4f, want %.4f", got.Amplitude, wantRMS)
	}
	if !got.Onset {
		t.Errorf("first loud frame did not raise the onset flag")
	}
	if !got.Beat {
		t.Errorf("beat flag not raised at amplitude %.3f", got.Amplitude)
	}
	if got.Harmonicity <= 0.5 {
		t.Errorf("Harmonicity = %.3f for a pure tone, want > 0.5", got.Harmonicity)
	}
}

func TestStepSkipsWithoutFreshSamples(t *testing.T) {
	e := newTestEngine(t)
	base := time.Unix(0, 0)

	e.ProcessBlock(sineBlock(4096, 440, 0.5, 0), base)
	if got := e.Snapshots().Version(); got != 1 {
		t.Fatalf("version after first block = %d, want 1", got)
	}

	// No new samples: the pass must not publish.
	e.step(base.Add(5 * time.Millisecond))
	if got := e.Snapshots().Version(); got != 1 {
		t.Fatalf("version after empty pass = %d, want 1", got)
	}

	e.ProcessBlock(sineBlock(512, 440, 0.5, 4096), base.Add(10*time.Millisecond))
	if got := e.Snapshots().Version(); got != 2 {
		t.Fatalf("version after second block = %d, want 2", got)
	}
}

func TestStepRepublishesDefaultsBeforeMinimumHistory(t *testing.T) {
	e := newTestEngine(t)
	now := time.Unix(3, 0)

	e.ProcessBlock(sineBlock(256, 440, 0.5, 0), now)

	got := e.Latest()
	if got.Version != 1 {
		t.Fatalf("Version = %d, want 1 (republished)", got.Version)
	}
	if got.Fundamental != analysis.DefaultFundamental {
		t.Errorf("Fundamental = %v, want the untouched default", got.Fundamental)
	}
	if got.Amplitude != 0 {
		t.Errorf("Amplitude = %v, want 0 before any analysis", got.Amplitude)
	}
	if got.Timestamp != now.UnixNano() {
		t.Errorf("republish did not refresh the timestamp")
	}
}

func TestStepAnalyzesPartialWindowDuringWarmup(t *testing.T) {
	e := newTestEngine(t)

	// 768 samples: enough to analyze, too few for the formant tracker.
	e.ProcessBlock(sineBlock(768, 440, 0.5, 0), time.Unix(0, 0))

	got := e.Latest()
	if got.Version != 1 {
		t.Fatalf("Version = %d, want 1", got.Version)
	}
	if !within(got.Fundamental, 440, 0.05) {
		t.Errorf("Fundamental = %.2f from a partial window, want 440 within 5%%", got.Fundamental)
	}
	if got.Formants != analysis.DefaultFormants() {
		t.Errorf("Formants = %+v, want defaults below the LPC minimum", got.Formants)
	}
	if got.Amplitude <= 0 {
		t.Errorf("Amplitude = %v, want > 0", got.Amplitude)
	}
}

func TestQuietSignalRaisesNoFlags(t *testing.T) {
	e := newTestEngine(t)

	e.ProcessBlock(sineBlock(4096, 440, 0.05, 0), time.Unix(0, 0))

	got := e.Latest()
	if got.Onset {
		t.Errorf("onset raised at amplitude %.4f", got.Amplitude)
	}
	if got.Beat {
		t.Errorf("beat raised at amplitude %.4f", got.Amplitude)
	}
	if got.Tempo != analysis.DefaultTempo {
		t.Errorf("Tempo = %v without onsets, want the default", got.Tempo)
	}
}

func TestRunWithOscillator(t *testing.T) {
	cfg := testConfig()
	cfg.Audio.SineFrequency = 330
	cfg.Audio.SineAmplitude = 0.4
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := e.Latest()
	if got.Version == 0 {
		t.Fatal("no snapshots published")
	}
	if !within(got.Fundamental, 330, 0.05) {
		t.Errorf("Fundamental = %.2f, want 330 within 5%%", got.Fundamental)
	}
	if got.Amplitude < 0.2 {
		t.Errorf("Amplitude = %.4f, want near the oscillator RMS", got.Amplitude)
	}
}
