package config

import "time"

// Derived values. These keep the frequency/buffer arithmetic in one
// place instead of scattered across capture and analysis code.

// Nyquist returns half the configured sample rate in Hz.
func (c *Config) Nyquist() float64 {
	return c.Audio.SampleRate / 2
}

// BinWidth returns the FFT bin spacing in Hz for the analysis window.
func (c *Config) BinWidth() float64 {
	return c.Audio.SampleRate / float64(c.Analysis.FrameSize)
}

// FrameDuration returns the wall time one analysis window spans.
func (c *Config) FrameDuration() time.Duration {
	return time.Duration(float64(c.Analysis.FrameSize) / c.Audio.SampleRate * float64(time.Second))
}

// BlockDuration returns the wall time one capture block spans.
func (c *Config) BlockDuration() time.Duration {
	return time.Duration(float64(c.Audio.FramesPerBuffer) / c.Audio.SampleRate * float64(time.Second))
}

// RingCapacity returns the ring buffer capacity in samples.
func (c *Config) RingCapacity() int {
	return int(c.Audio.BufferSeconds * c.Audio.SampleRate * float64(c.Audio.InputChannels))
}

// LPCOrder returns the LPC model order for a window of frameSize
// samples: the configured cap, reduced for short windows.
func (c *Config) LPCOrder(frameSize int) int {
	order := frameSize / 4
	if order > c.Analysis.LPCOrderCap {
		order = c.Analysis.LPCOrderCap
	}
	return order
}
