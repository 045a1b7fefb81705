// SPDX-License-Identifier: MIT
package audio

import (
	"path/filepath"
	"testing"

	"sonoscope/internal/config"
)

const (
	testSampleRate = 44100.0
	testFrames     = 256
)

func newTestConfig(channels int) *config.Config {
	cfg := config.NewConfig()
	cfg.Audio.SampleRate = testSampleRate
	cfg.Audio.FramesPerBuffer = testFrames
	cfg.Audio.InputChannels = channels
	return cfg
}

// newTestCapture wires a Capture without touching PortAudio, so the
// block pipeline is testable headless.
func newTestCapture(cfg *config.Config, recorder *Recorder) (*Capture, *RingBuffer) {
	frames := cfg.Audio.FramesPerBuffer
	channels := cfg.Audio.InputChannels
	ring := NewRingBuffer(frames * 8)

	c := &Capture{
		config:      cfg,
		ring:        ring,
		gate:        NewGate(float32(cfg.Audio.GateThreshold)),
		inputBuffer: make([]float32, frames*channels),
		monoBuffer:  make([]float32, frames),
		recorder:    recorder,
	}
	return c, ring
}

func TestProcessBlockMono(t *testing.T) {
	cfg := newTestConfig(1)
	c, ring := newTestCapture(cfg, nil)

	block := make([]float32, testFrames)
	for i := range block {
		block[i] = float32(i) / testFrames
	}
	c.processBlock(block)

	got, err := ring.ReadLatest(testFrames)
	if err != nil {
		t.Fatalf("ReadLatest: %v", err)
	}
	for i := range got {
		if got[i] != block[i] {
			t.Fatalf("ring[%d] = %v, want %v", i, got[i], block[i])
		}
	}
}

func TestProcessBlockStereoDownmix(t *testing.T) {
	cfg := newTestConfig(2)
	c, ring := newTestCapture(cfg, nil)

	// Left channel carries the signal, right is inverted noise that a
	// correct downmix never sees.
	block := make([]float32, testFrames*2)
	for i := 0; i < testFrames; i++ {
		block[i*2] = float32(i) * 0.001
		block[i*2+1] = -0.9
	}
	c.processBlock(block)

	got, err := ring.ReadLatest(testFrames)
	if err != nil {
		t.Fatalf("ReadLatest: %v", err)
	}
	for i := range got {
		if want := float32(i) * 0.001; got[i] != want {
			t.Fatalf("ring[%d] = %v, want channel 0 sample %v", i, got[i], want)
		}
	}
}

func TestProcessBlockGateZeroesQuiet(t *testing.T) {
	cfg := newTestConfig(1)
	cfg.Audio.GateThreshold = 0.5
	c, ring := newTestCapture(cfg, nil)

	block := make([]float32, testFrames)
	for i := range block {
		block[i] = 0.01
	}
	c.processBlock(block)

	got, err := ring.ReadLatest(testFrames)
	if err != nil {
		t.Fatalf("ReadLatest: %v", err)
	}
	for i, s := range got {
		if s != 0 {
			t.Fatalf("ring[%d] = %v, want gated to 0", i, s)
		}
	}
}

func TestProcessBlockRecorderTap(t *testing.T) {
	cfg := newTestConfig(2)
	recorder := NewRecorder(cfg)
	c, _ := newTestCapture(cfg, recorder)

	filename := filepath.Join(t.TempDir(), "tap.wav")
	if err := recorder.Start(filename); err != nil {
		t.Fatalf("Start: %v", err)
	}

	block := make([]float32, testFrames*2)
	for i := range block {
		block[i] = 0.25
	}
	c.processBlock(block)

	if err := recorder.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	info := statFile(t, filename)
	// WAV header is 44 bytes; one 16-bit stereo block is 4 bytes per
	// frame on top of that.
	if wantMin := int64(44 + testFrames*4); info.Size() < wantMin {
		t.Errorf("recorded file is %d bytes, want at least %d", info.Size(), wantMin)
	}
}

func TestProcessBlockAllocs(t *testing.T) {
	cfg := newTestConfig(2)
	c, _ := newTestCapture(cfg, nil)

	block := make([]float32, testFrames*2)
	for i := range block {
		block[i] = float32(i%5) * 0.1
	}

	allocs := testing.AllocsPerRun(100, func() {
		c.processBlock(block)
	})
	if allocs != 0 {
		t.Errorf("processBlock allocated %v times per run, want 0", allocs)
	}
}

func BenchmarkProcessBlock(b *testing.B) {
	benchmarks := []struct {
		name     string
		channels int
	}{
		{"Mono", 1},
		{"Stereo", 2},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			cfg := newTestConfig(bm.channels)
			c, _ := newTestCapture(cfg, nil)
			block := make([]float32, testFrames*bm.channels)
			for i := range block {
				block[i] = float32(i%7) * 0.01
			}

			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				c.processBlock(block)
			}
		})
	}
}
