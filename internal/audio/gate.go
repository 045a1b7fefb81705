// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// Gate is a block-level noise gate. A block whose peak magnitude stays
// below the threshold is zeroed before it reaches the ring, so silence
// decays the downstream features instead of freezing them on noise.
// Threshold and enable state are atomics; the TUI adjusts them while
// the callback is running.
type Gate struct {
	enabled   atomic.Bool
	threshold atomic.Uint32 // float32 bits
}

// NewGate returns a gate with the given threshold in [0, 1). A zero
// threshold leaves the gate disabled.
func NewGate(threshold float32) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	return g
}

// Enable turns the gate on.
func (g *Gate) Enable() { g.enabled.Store(true) }

// Disable turns the gate off; Process becomes a pure peak scan.
func (g *Gate) Disable() { g.enabled.Store(false) }

// SetThreshold stores a new threshold, clamped to [0, 1), and enables
// the gate when it is positive.
func (g *Gate) SetThreshold(t float32) {
	if t < 0 {
		t = 0
	}
	if t >= 1 {
		t = math.Nextafter32(1, 0)
	}
	g.threshold.Store(math.Float32bits(t))
	g.enabled.Store(t > 0)
}

// Threshold returns the current threshold.
func (g *Gate) Threshold() float32 {
	return math.Float32frombits(g.threshold.Load())
}

// Process scans buf for its peak magnitude and, when the gate is
// enabled and the peak stays under the threshold, zeroes the block.
// Returns the pre-gate peak and whether the block passed. Runs on the
// audio callback: no branches in the magnitude scan, no allocation.
func (g *Gate) Process(buf []float32) (peak float32, open bool) {
	const signMask = ^uint32(1 << 31)

	var peakBits uint32
	for _, s := range buf {
		// Clearing the sign bit is |s| without a compare.
		bits := math.Float32bits(s) & signMask
		if bits > peakBits {
			peakBits = bits
		}
	}
	peak = math.Float32frombits(peakBits)

	if !g.enabled.Load() || peak >= g.Threshold() {
		return peak, true
	}

	for i := range buf {
		buf[i] = 0
	}
	return peak, false
}
