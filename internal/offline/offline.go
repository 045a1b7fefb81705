// SPDX-License-Identifier: MIT
/*
Package offline runs the analysis chain over a WAV file at full speed
and aggregates the per-frame vectors into a summary report. The engine
is driven with stream time derived from the sample counter instead of
the wall clock, so onset debouncing and tempo tracking behave exactly
as they would live.
*/
package offline

import (
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"time"

	"github.com/go-audio/wav"
	"gonum.org/v1/gonum/stat"

	"sonoscope/internal/analysis"
	"sonoscope/internal/config"
	"sonoscope/internal/engine"
	"sonoscope/internal/log"
)

// Report is the aggregate of one file pass.
type Report struct {
	File              string  `json:"file"`
	SampleRate        float64 `json:"sample_rate"`
	Duration          float64 `json:"duration_seconds"`
	Frames            int     `json:"frames_analyzed"`
	Onsets            int     `json:"onsets"`
	MeanFundamental   float64 `json:"mean_fundamental_hz"`
	MedianFundamental float64 `json:"median_fundamental_hz"`
	MeanCentroid      float64 `json:"mean_centroid_hz"`
	MeanLoudness      float64 `json:"mean_loudness"`
	Tempo             float64 `json:"tempo_bpm"`
	Peak              float64 `json:"peak"`
}

// Analyze decodes path and pushes it through the engine block by
// block. cfg supplies the block size and analysis settings; the sample
// rate is overridden to match the file, the source is forced to the
// oscillator (which is never started) so PortAudio stays out of the
// loop, and transports are disabled.
func Analyze(cfg *config.Config, path string) (*Report, error) {
	samples, rate, err := decodeWAV(path)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("offline: %s holds no samples", path)
	}

	runCfg := *cfg
	runCfg.Audio.SampleRate = rate
	runCfg.Audio.Source = config.SourceSine
	runCfg.Transport.WebSocketEnabled = false
	runCfg.Transport.UDPEnabled = false
	runCfg.Transport.LogSnapshots = false
	runCfg.Recording.Enabled = false
	if err := runCfg.Validate(); err != nil {
		return nil, fmt.Errorf("offline: %w", err)
	}

	eng, err := engine.New(&runCfg)
	if err != nil {
		return nil, err
	}

	var (
		block = runCfg.Audio.FramesPerBuffer
		start = time.Unix(0, 0)

		f0s         []float64
		centroidSum float64
		loudnessSum float64
		onsets      int
		frames      int
		lastVersion uint64
	)

	for off := 0; off < len(samples); off += block {
		end := off + block
		if end > len(samples) {
			end = len(samples)
		}
		now := start.Add(time.Duration(float64(end) / rate * float64(time.Second)))
		eng.ProcessBlock(samples[off:end], now)

		// Passes before the minimum history republish defaults; keep
		// them out of the aggregates.
		if end < analysis.MinFrameSize {
			continue
		}
		v := eng.Latest()
		if v.Version == lastVersion {
			continue
		}
		lastVersion = v.Version

		frames++
		f0s = append(f0s, v.Fundamental)
		centroidSum += v.SpectralCentroid
		loudnessSum += v.Loudness
		if v.Onset {
			onsets++
		}
	}

	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}

	rep := &Report{
		File:       path,
		SampleRate: rate,
		Duration:   float64(len(samples)) / rate,
		Frames:     frames,
		Onsets:     onsets,
		Tempo:      eng.Latest().Tempo,
		Peak:       peak,
	}
	if frames > 0 {
		rep.MeanFundamental = stat.Mean(f0s, nil)
		rep.MedianFundamental = median(f0s)
		rep.MeanCentroid = centroidSum / float64(frames)
		rep.MeanLoudness = loudnessSum / float64(frames)
	}

	log.Infof("analyzed %s: %d frames, %d onsets, median f0 %.1f Hz",
		path, rep.Frames, rep.Onsets, rep.MedianFundamental)

	return rep, nil
}

// WriteText renders the report as an aligned two-column listing.
func (r *Report) WriteText(w io.Writer) {
	fmt.Fprintf(w, "file                %s\n", r.File)
	fmt.Fprintf(w, "sample rate         %.0f Hz\n", r.SampleRate)
	fmt.Fprintf(w, "duration            %.2f s\n", r.Duration)
	fmt.Fprintf(w, "frames analyzed     %d\n", r.Frames)
	fmt.Fprintf(w, "onsets              %d\n", r.Onsets)
	fmt.Fprintf(w, "fundamental mean    %.1f Hz\n", r.MeanFundamental)
	fmt.Fprintf(w, "fundamental median  %.1f Hz\n", r.MedianFundamental)
	fmt.Fprintf(w, "centroid mean       %.1f Hz\n", r.MeanCentroid)
	fmt.Fprintf(w, "loudness mean       %.2f\n", r.MeanLoudness)
	fmt.Fprintf(w, "tempo               %.1f BPM\n", r.Tempo)
	fmt.Fprintf(w, "peak                %.3f\n", r.Peak)
}

// decodeWAV loads the whole file as mono float32 in [-1, 1].
// Multi-channel files keep channel 0, matching the live capture path.
func decodeWAV(path string) ([]float32, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("decode wav %s: empty or invalid file", path)
	}

	bits := int(dec.BitDepth)
	if buf.SourceBitDepth > 0 {
		bits = buf.SourceBitDepth
	}
	scale := float64(int(1) << (bits - 1))

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	n := len(buf.Data) / channels
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = float32(float64(buf.Data[i*channels]) / scale)
	}

	log.Infof("decoded %s: %.0f Hz, %d ch, %d-bit, %d frames",
		path, float64(buf.Format.SampleRate), channels, bits, n)

	return out, float64(buf.Format.SampleRate), nil
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
