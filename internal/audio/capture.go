// SPDX-License-Identifier: MIT
/*
Package audio implements the capture layer:
- PortAudio input stream with a pre-allocated float32 callback path
- Branchless noise gate conditioning blocks before they reach the ring
- Circular sample store shared with the analysis loop
- Synthetic sine source for running without an input device
- WAV recording with atomic state management

Thread Safety:
- The stream callback runs on a locked OS thread
- The hot path touches only pre-allocated buffers
- State shared with other goroutines crosses through the ring and atomics
*/
package audio

import (
	"fmt"
	"runtime"
	"time"

	"github.com/gordonklaus/portaudio"

	"sonoscope/internal/config"
	"sonoscope/internal/log"
)

// Capture owns the PortAudio input stream and feeds gated mono samples
// into the ring buffer. One instance per stream.
type Capture struct {
	config *config.Config
	ring   *RingBuffer
	gate   *Gate

	// Audio input handling.
	inputBuffer  []float32 // frames x channels, raw interleaved block
	monoBuffer   []float32 // downmixed frames handed to the ring
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Optional WAV tap fed from the callback.
	recorder *Recorder
}

// NewCapture resolves the input device and pre-allocates every buffer
// the callback will touch. The ring is shared with the analysis loop;
// recorder may be nil.
func NewCapture(cfg *config.Config, ring *RingBuffer, recorder *Recorder) (*Capture, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	frames := cfg.Audio.FramesPerBuffer
	channels := cfg.Audio.InputChannels

	c := &Capture{
		config:      cfg,
		ring:        ring,
		gate:        NewGate(float32(cfg.Audio.GateThreshold)),
		inputBuffer: make([]float32, frames*channels),
		monoBuffer:  make([]float32, frames),
		inputDevice: inputDevice,
		recorder:    recorder,
	}

	if cfg.Audio.LowLatency {
		c.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		c.inputLatency = inputDevice.DefaultHighInputLatency
	}

	return c, nil
}

// Gate returns the capture gate so the dashboard can adjust it live.
func (c *Capture) Gate() *Gate { return c.gate }

// Recorder returns the WAV tap, or nil when recording is disabled.
func (c *Capture) Recorder() *Recorder { return c.recorder }

// Device returns the resolved input device.
func (c *Capture) Device() *portaudio.DeviceInfo { return c.inputDevice }

// Start opens and starts the input stream. The callback begins firing
// before Start returns.
func (c *Capture) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: c.config.Audio.InputChannels,
			Device:   c.inputDevice,
			Latency:  c.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // Capture only
			Device:   nil,
		},
		FramesPerBuffer: c.config.Audio.FramesPerBuffer,
		SampleRate:      c.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.processInputStream)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	c.inputStream = stream

	if err := c.inputStream.Start(); err != nil {
		c.inputStream.Close()
		c.inputStream = nil
		return fmt.Errorf("start input stream: %w", err)
	}

	log.Infof("capture started: %s (%d ch, %.0f Hz, %d frames)",
		c.inputDevice.Name, c.config.Audio.InputChannels,
		c.config.Audio.SampleRate, c.config.Audio.FramesPerBuffer)

	return nil
}

// Stop stops and closes the input stream. Safe to call twice.
func (c *Capture) Stop() error {
	if c.inputStream == nil {
		return nil
	}

	if err := c.inputStream.Stop(); err != nil {
		return err
	}
	if err := c.inputStream.Close(); err != nil {
		return err
	}
	c.inputStream = nil

	return nil
}

// Close stops any active recording, then the stream.
func (c *Capture) Close() error {
	if c.recorder != nil {
		if err := c.recorder.Stop(); err != nil {
			return err
		}
	}
	return c.Stop()
}

// processInputStream is the PortAudio callback.
// Performance Critical:
// - Runs on a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (c *Capture) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// A panic must not unwind into the C caller.
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("audio callback panic: %v", r)
		}
	}()

	copy(c.inputBuffer, in)
	c.processBlock(c.inputBuffer)
}

// processBlock downmixes, gates, and publishes one block. Split from
// the callback so the pipeline is testable without a live stream.
func (c *Capture) processBlock(block []float32) {
	channels := c.config.Audio.InputChannels
	frames := len(block) / channels

	// Analysis is mono; multi-channel input keeps channel 0 only.
	if channels == 1 {
		copy(c.monoBuffer[:frames], block)
	} else {
		for i := 0; i < frames; i++ {
			c.monoBuffer[i] = block[i*channels]
		}
	}

	mono := c.monoBuffer[:frames]
	c.gate.Process(mono)
	c.ring.Write(mono)

	// The recording tap sees the raw interleaved block, not the gated
	// mono mix.
	if c.recorder != nil {
		c.recorder.Write(block)
	}
}
