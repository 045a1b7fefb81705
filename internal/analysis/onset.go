// SPDX-License-Identifier: MIT
package analysis

import (
	"slices"
	"time"
)

const (
	// DefaultOnsetThreshold is the amplitude an attack must exceed to
	// register as an onset.
	DefaultOnsetThreshold = 0.3

	// DefaultOnsetCooldown debounces onsets: a new one cannot fire until
	// this long after the previous one.
	DefaultOnsetCooldown = 100 * time.Millisecond

	// BeatThreshold is the amplitude above which a frame carries the beat
	// flag. Beats are level-triggered and independent of onset debouncing.
	BeatThreshold = 0.2
)

// OnsetDetector emits a single flag per attack transient. It is a two
// state machine, idle and cooling down; while cooling down, frames above
// threshold are ignored so one sustained attack cannot fire twice. Time is
// supplied by the caller so offline analysis can run on stream time
// instead of the wall clock.
type OnsetDetector struct {
	threshold float64
	cooldown  time.Duration
	lastOnset time.Time
}

// NewOnsetDetector returns a detector with the given threshold and
// cooldown. Non-positive values fall back to the defaults.
func NewOnsetDetector(threshold float64, cooldown time.Duration) *OnsetDetector {
	if threshold <= 0 {
		threshold = DefaultOnsetThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultOnsetCooldown
	}
	return &OnsetDetector{threshold: threshold, cooldown: cooldown}
}

// Detect reports whether the frame at time now begins a new onset.
func (d *OnsetDetector) Detect(amplitude float64, now time.Time) bool {
	if amplitude <= d.threshold {
		return false
	}
	if !d.lastOnset.IsZero() && now.Sub(d.lastOnset) <= d.cooldown {
		return false
	}
	d.lastOnset = now
	return true
}

const (
	// Inter-onset intervals outside this range (300 and 30 BPM) are noise
	// or lost tracking, not beat periods.
	minBeatInterval = 0.2
	maxBeatInterval = 2.0

	// Folding range for tempo candidates (BPM). Doubling or halving maps
	// out-of-range candidates to their in-range octave.
	tempoFloorBPM   = 60.0
	tempoCeilingBPM = 200.0

	// tempoDepth is how many recent interval candidates vote.
	tempoDepth = 8
)

// TempoTracker estimates tempo from the intervals between onsets. Each
// plausible interval becomes a BPM candidate folded into the canonical
// range, and the median of the recent candidates is reported, so a single
// missed or doubled onset cannot jerk the tempo around.
type TempoTracker struct {
	lastOnset time.Time
	cands     [tempoDepth]float64
	scratch   [tempoDepth]float64
	next      int
	n         int
}

// NewTempoTracker returns a tracker reporting DefaultTempo until it has
// seen at least one plausible inter-onset interval.
func NewTempoTracker() *TempoTracker {
	return &TempoTracker{}
}

// Observe records an onset at time now and, when the interval since the
// previous onset is a plausible beat period, adds its folded BPM to the
// candidate ring.
func (t *TempoTracker) Observe(now time.Time) {
	if !t.lastOnset.IsZero() {
		interval := now.Sub(t.lastOnset).Seconds()
		if interval > minBeatInterval && interval < maxBeatInterval {
			bpm := 60.0 / interval
			for bpm < tempoFloorBPM {
				bpm *= 2
			}
			for bpm > tempoCeilingBPM {
				bpm /= 2
			}
			t.cands[t.next] = bpm
			t.next = (t.next + 1) % tempoDepth
			if t.n < tempoDepth {
				t.n++
			}
		}
	}
	t.lastOnset = now
}

// Estimate returns the median of the recent tempo candidates, or
// DefaultTempo when none have been collected yet.
func (t *TempoTracker) Estimate() float64 {
	if t.n == 0 {
		return DefaultTempo
	}
	cands := t.scratch[:t.n]
	copy(cands, t.cands[:t.n])
	slices.Sort(cands)
	if t.n%2 == 1 {
		return cands[t.n/2]
	}
	return (cands[t.n/2-1] + cands[t.n/2]) / 2
}
