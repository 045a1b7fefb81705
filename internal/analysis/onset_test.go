// SPDX-License-Identifier: MIT
package analysis

import (
	"testing"
	"time"
)

var onsetEpoch = time.Unix(0, 0)

func TestOnsetDetect(t *testing.T) {
	d := NewOnsetDetector(0.3, 100*time.Millisecond)

	if d.Detect(0.1, onsetEpoch) {
		t.Error("Detect(0.1) below threshold fired")
	}
	if d.Detect(0.3, onsetEpoch) {
		t.Error("Detect(0.3) at exact threshold fired, want strict >")
	}
	if !d.Detect(0.5, onsetEpoch) {
		t.Error("Detect(0.5) above threshold did not fire")
	}
}

func TestOnsetCooldown(t *testing.T) {
	d := NewOnsetDetector(0.3, 100*time.Millisecond)

	if !d.Detect(0.5, onsetEpoch) {
		t.Fatal("first onset did not fire")
	}
	if d.Detect(0.9, onsetEpoch.Add(50*time.Millisecond)) {
		t.Error("onset fired inside cooldown")
	}
	if d.Detect(0.9, onsetEpoch.Add(100*time.Millisecond)) {
		t.Error("onset fired at exact cooldown boundary")
	}
	if !d.Detect(0.9, onsetEpoch.Add(101*time.Millisecond)) {
		t.Error("onset did not fire after cooldown elapsed")
	}
}

// A signal holding above threshold for one second may fire at most ten
// times with a 100 ms cooldown, and never twice within the cooldown.
func TestOnsetDebounce(t *testing.T) {
	d := NewOnsetDetector(0.3, 100*time.Millisecond)

	var onsets []time.Time
	for step := 0; step < 200; step++ { // 5 ms hop for 1 s.
		now := onsetEpoch.Add(time.Duration(step) * 5 * time.Millisecond)
		if d.Detect(0.6, now) {
			onsets = append(onsets, now)
		}
	}

	if len(onsets) > 10 {
		t.Errorf("%d onsets in 1 s, want at most 10", len(onsets))
	}
	if len(onsets) < 9 {
		t.Errorf("%d onsets in 1 s, want the cadence near 10", len(onsets))
	}
	for i := 1; i < len(onsets); i++ {
		if gap := onsets[i].Sub(onsets[i-1]); gap <= 100*time.Millisecond {
			t.Errorf("onsets %d and %d only %v apart, want > cooldown", i-1, i, gap)
		}
	}
}

func TestNewOnsetDetectorDefaults(t *testing.T) {
	d := NewOnsetDetector(0, 0)
	if d.threshold != DefaultOnsetThreshold || d.cooldown != DefaultOnsetCooldown {
		t.Errorf("defaults = %v/%v, want %v/%v",
			d.threshold, d.cooldown, DefaultOnsetThreshold, DefaultOnsetCooldown)
	}
}

func observeEvery(t *TempoTracker, interval time.Duration, count int) {
	now := onsetEpoch
	for i := 0; i < count; i++ {
		t.Observe(now)
		now = now.Add(interval)
	}
}

func TestTempoSteadyBeat(t *testing.T) {
	tr := NewTempoTracker()
	observeEvery(tr, 500*time.Millisecond, 6)

	if got := tr.Estimate(); got != 120 {
		t.Errorf("Estimate() = %v for 0.5 s beat, want 120", got)
	}
}

func TestTempoFoldsOctaves(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		want     float64
	}{
		{"Fast beat halves into range", 250 * time.Millisecond, 120},
		{"Slow beat doubles into range", 1500 * time.Millisecond, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTempoTracker()
			observeEvery(tr, tt.interval, 5)
			if got := tr.Estimate(); got != tt.want {
				t.Errorf("Estimate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTempoDefaultsWithoutIntervals(t *testing.T) {
	tr := NewTempoTracker()
	if got := tr.Estimate(); got != DefaultTempo {
		t.Errorf("fresh Estimate() = %v, want %v", got, DefaultTempo)
	}

	tr.Observe(onsetEpoch) // One onset has no interval yet.
	if got := tr.Estimate(); got != DefaultTempo {
		t.Errorf("Estimate() after single onset = %v, want %v", got, DefaultTempo)
	}
}

func TestTempoIgnoresImplausibleGaps(t *testing.T) {
	tr := NewTempoTracker()
	observeEvery(tr, 3*time.Second, 4) // Way below 30 BPM.
	if got := tr.Estimate(); got != DefaultTempo {
		t.Errorf("Estimate() = %v after implausible gaps, want %v", got, DefaultTempo)
	}

	// Tracking resumes from the last onset when a plausible beat returns.
	tr.Observe(onsetEpoch.Add(9*time.Second + 500*time.Millisecond))
	tr.Observe(onsetEpoch.Add(10 * time.Second))
	if got := tr.Estimate(); got != 120 {
		t.Errorf("Estimate() = %v after recovery, want 120", got)
	}
}

func TestTempoMedianRobustness(t *testing.T) {
	tr := NewTempoTracker()
	now := onsetEpoch
	for _, interval := range []time.Duration{
		500 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond, // One dragged beat must not move the median.
	} {
		tr.Observe(now)
		now = now.Add(interval)
	}
	tr.Observe(now)

	if got := tr.Estimate(); got != 120 {
		t.Errorf("Estimate() = %v with one outlier interval, want 120", got)
	}
}
