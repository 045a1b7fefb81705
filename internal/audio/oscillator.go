// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"time"

	"sonoscope/internal/config"
	"sonoscope/internal/log"
	"sonoscope/pkg/wavegen"
)

// Oscillator feeds the ring with a synthetic sine tone at the capture
// block cadence. It stands in for the microphone when no input device
// is available or wanted.
type Oscillator struct {
	ring       *RingBuffer
	sampleRate float64
	frequency  float64
	amplitude  float64
	buf        []float32
	index      int
}

// NewOscillator builds a source from the audio config. The block size
// matches FramesPerBuffer so downstream timing is identical to a live
// stream.
func NewOscillator(cfg *config.Config, ring *RingBuffer) *Oscillator {
	return &Oscillator{
		ring:       ring,
		sampleRate: cfg.Audio.SampleRate,
		frequency:  cfg.Audio.SineFrequency,
		amplitude:  cfg.Audio.SineAmplitude,
		buf:        make([]float32, cfg.Audio.FramesPerBuffer),
	}
}

// Run writes one block per block-duration tick until ctx is canceled.
// The phase carries across blocks, so the tone is continuous.
func (o *Oscillator) Run(ctx context.Context) error {
	interval := time.Duration(float64(len(o.buf)) / o.sampleRate * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("oscillator started: %.1f Hz at amplitude %.2f", o.frequency, o.amplitude)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.index = wavegen.SineBlock(o.buf, o.sampleRate, o.frequency, o.amplitude, o.index)
			o.ring.Write(o.buf)
		}
	}
}
