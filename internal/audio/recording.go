// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"sonoscope/internal/config"
	"sonoscope/internal/log"
)

// Recorder writes the raw capture stream to a PCM WAV file. Write runs
// on the audio callback; Start and Stop run on the control goroutine.
// The atomic flag keeps the callback away from the encoder while it is
// being swapped.
type Recorder struct {
	sampleRate int
	channels   int
	bitDepth   int
	scale      float32

	isRecording atomic.Bool
	mu          sync.Mutex
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
}

// NewRecorder sizes the conversion buffer for one capture block. The
// recorder starts idle; call Start to open a file.
func NewRecorder(cfg *config.Config) *Recorder {
	bitDepth := cfg.Recording.BitDepth
	return &Recorder{
		sampleRate: int(cfg.Audio.SampleRate),
		channels:   cfg.Audio.InputChannels,
		bitDepth:   bitDepth,
		scale:      float32(int(1)<<(bitDepth-1) - 1),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: cfg.Audio.InputChannels,
				SampleRate:  int(cfg.Audio.SampleRate),
			},
			SourceBitDepth: bitDepth,
			Data:           make([]int, cfg.Audio.FramesPerBuffer*cfg.Audio.InputChannels),
		},
	}
}

// Start opens filename and begins encoding subsequent Write calls.
func (r *Recorder) Start(filename string) error {
	if r.isRecording.Load() {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.outputFile = file
	r.wavEncoder = wav.NewEncoder(file, r.sampleRate, r.bitDepth, r.channels, 1)
	r.mu.Unlock()

	r.isRecording.Store(true)
	log.Infof("recording to %s (%d-bit PCM)", filename, r.bitDepth)

	return nil
}

// Stop finalizes the WAV header and closes the file. Safe to call when
// idle.
func (r *Recorder) Stop() error {
	if !r.isRecording.Load() {
		return nil
	}
	r.isRecording.Store(false)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			return err
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}

	return nil
}

// Recording reports whether a file is open.
func (r *Recorder) Recording() bool {
	return r.isRecording.Load()
}

// Write converts one interleaved float32 block to PCM and appends it.
// No-op while idle; called from the audio callback.
func (r *Recorder) Write(block []float32) {
	if !r.isRecording.Load() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return
	}

	data := r.sampleBuf.Data[:len(block)]
	for i, s := range block {
		// Clamp before scaling; hot inputs clip rather than wrap.
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * r.scale)
	}
	r.sampleBuf.Data = data

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		log.Errorf("wav write: %v", err)
	}
}
