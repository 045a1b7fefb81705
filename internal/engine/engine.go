// SPDX-License-Identifier: MIT
/*
Package engine assembles the pipeline: a capture source feeding the
ring buffer, the analysis chain pulling the newest window on a hop
ticker, and the snapshot slot plus transports publishing each result.

Concurrency:
- The capture thread (PortAudio callback or oscillator goroutine) only
  writes the ring.
- One analysis goroutine owns every analyzer and the working vector.
- Consumers poll the snapshot slot; the UDP publisher samples it on
  its own ticker.
*/
package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"sonoscope/internal/analysis"
	"sonoscope/internal/audio"
	"sonoscope/internal/config"
	"sonoscope/internal/log"
	"sonoscope/internal/transport"
	"sonoscope/internal/transport/udp"
)

// Engine owns the ring, the analyzers, the snapshot slot and the
// configured transports. Build with New, drive with Run.
type Engine struct {
	cfg *config.Config

	ring     *audio.RingBuffer
	capture  *audio.Capture    // nil when the source is the oscillator
	osc      *audio.Oscillator // nil when the source is a device
	recorder *audio.Recorder   // nil unless recording is enabled

	analyzer  *analysis.FrameAnalyzer
	pitch     *analysis.FundamentalEstimator
	harmonics *analysis.HarmonicNoiseSeparator
	formants  *analysis.FormantTracker
	psycho    *analysis.PsychoacousticModel
	smoother  *analysis.FeatureSmoother
	onsets    *analysis.OnsetDetector
	tempo     *analysis.TempoTracker

	slot       *Slot
	transports []transport.Transport
	publisher  *udp.Publisher

	// Hot-loop state, touched only by the analysis goroutine.
	raw      []float32
	frame    []float64
	mags     []float64
	power    []float64
	current  analysis.FeatureVector
	lastSeen uint64
}

// New builds the full pipeline from an already-validated config. The
// capture source is resolved here (device lookup included) but nothing
// starts until Run.
func New(cfg *config.Config) (*Engine, error) {
	windowFn, err := analysis.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		log.Warnf("%v, using hann", err)
	}
	analyzer, err := analysis.NewFrameAnalyzer(cfg.Analysis.FrameSize, cfg.Audio.SampleRate, windowFn)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		ring:      audio.NewRingBuffer(cfg.RingCapacity()),
		analyzer:  analyzer,
		pitch:     analysis.NewFundamentalEstimator(cfg.Analysis.FrameSize, cfg.Audio.SampleRate),
		harmonics: analysis.NewHarmonicNoiseSeparator(cfg.Analysis.FrameSize, cfg.Audio.SampleRate),
		formants:  analysis.NewFormantTracker(cfg.Audio.SampleRate, cfg.Analysis.LPCOrderCap),
		psycho:    analysis.NewPsychoacousticModel(cfg.Analysis.FrameSize, cfg.Audio.SampleRate),
		smoother:  analysis.NewFeatureSmoother(cfg.Analysis.SmoothingAlpha),
		onsets:    analysis.NewOnsetDetector(cfg.Onset.Threshold, cfg.Onset.Cooldown),
		tempo:     analysis.NewTempoTracker(),
		slot:      NewSlot(),
		raw:       make([]float32, cfg.Analysis.FrameSize),
		frame:     make([]float64, cfg.Analysis.FrameSize),
		mags:      make([]float64, analyzer.GetBinCount()),
		power:     make([]float64, analyzer.GetBinCount()),
		current:   analysis.NewFeatureVector(),
	}

	switch cfg.Audio.Source {
	case config.SourceSine:
		e.osc = audio.NewOscillator(cfg, e.ring)
	default:
		if cfg.Recording.Enabled {
			e.recorder = audio.NewRecorder(cfg)
		}
		capture, err := audio.NewCapture(cfg, e.ring, e.recorder)
		if err != nil {
			return nil, err
		}
		e.capture = capture
	}

	if err := e.buildTransports(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Engine) buildTransports() error {
	tcfg := e.cfg.Transport

	if tcfg.LogSnapshots {
		e.transports = append(e.transports, transport.NewSnapshotLogger())
	}

	if tcfg.WebSocketEnabled {
		ws, err := transport.NewFeatureSocket(tcfg.WebSocketPort, tcfg.WebSocketMinGap)
		if err != nil {
			return err
		}
		e.transports = append(e.transports, ws)
	}

	if tcfg.UDPEnabled {
		sender, err := udp.NewSender(tcfg.UDPAddress)
		if err != nil {
			e.closeTransports()
			return err
		}
		e.publisher = udp.NewPublisher(tcfg.UDPInterval, sender, e.slot)
	}

	return nil
}

func (e *Engine) closeTransports() {
	for _, t := range e.transports {
		if err := t.Close(); err != nil {
			log.Errorf("transport close: %v", err)
		}
	}
	e.transports = nil
}

// Run starts the configured source and the analysis loop, blocking
// until ctx is canceled or a component fails. Resources are released
// before it returns.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if e.osc != nil {
		g.Go(func() error { return e.osc.Run(ctx) })
	} else {
		if err := e.capture.Start(); err != nil {
			e.closeTransports()
			return err
		}
		if e.recorder != nil {
			if err := e.recorder.Start(e.cfg.Recording.OutputFile); err != nil {
				e.capture.Stop()
				e.closeTransports()
				return err
			}
		}
		g.Go(func() error {
			<-ctx.Done()
			return e.capture.Close()
		})
	}

	if e.publisher != nil {
		e.publisher.Start()
	}

	g.Go(func() error { return e.analysisLoop(ctx) })

	err := g.Wait()

	if e.publisher != nil {
		if closeErr := e.publisher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	e.closeTransports()

	return err
}

func (e *Engine) analysisLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Analysis.HopInterval)
	defer ticker.Stop()

	log.Infof("analysis loop started: frame %d, hop %s",
		e.cfg.Analysis.FrameSize, e.cfg.Analysis.HopInterval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			e.step(now)
		}
	}
}

// step runs one analysis pass against the newest ring contents and
// publishes the result. A pass with no fresh samples is a no-op; a
// pass with too little history republishes the previous vector under
// a new timestamp and version.
func (e *Engine) step(now time.Time) {
	written := e.ring.Written()
	if written == e.lastSeen {
		return
	}
	e.lastSeen = written

	// During warmup analyze whatever history exists; the analyzer
	// zero-pads anything shorter than the full window.
	n := len(e.raw)
	if written < uint64(n) {
		n = int(written)
	}
	if n < analysis.MinFrameSize {
		e.publish(now)
		return
	}

	raw := e.raw[:n]
	if err := e.ring.ReadLatestInto(raw); err != nil {
		log.Errorf("ring read: %v", err)
		e.publish(now)
		return
	}
	frame := e.frame[:n]
	for i, s := range raw {
		frame[i] = float64(s)
	}

	e.analyze(frame, now)
	e.publish(now)
}

// analyze updates the working vector from one frame. The chain order
// matters: pitch consumes the analyzer's magnitudes, the separator and
// psychoacoustics consume its power spectrum, and onset detection
// reads the raw amplitude before smoothing touches it.
func (e *Engine) analyze(frame []float64, now time.Time) {
	v := &e.current
	if err := e.analyzer.Analyze(frame, v); err != nil {
		log.Debugf("analysis pass skipped: %v", err)
		return
	}
	if err := e.analyzer.GetMagnitudesInto(e.mags); err != nil {
		log.Errorf("magnitude read: %v", err)
		return
	}
	if err := e.analyzer.GetPowerInto(e.power); err != nil {
		log.Errorf("power read: %v", err)
		return
	}

	v.Fundamental = e.pitch.Estimate(frame, e.mags)
	e.harmonics.Separate(v.Fundamental, e.power, v)
	e.formants.Track(frame, v)
	e.psycho.Analyze(e.power, v)

	v.Onset = e.onsets.Detect(v.Amplitude, now)
	if v.Onset {
		e.tempo.Observe(now)
	}
	v.Beat = v.Amplitude > e.cfg.Onset.BeatThreshold
	v.Tempo = e.tempo.Estimate()

	e.smoother.Smooth(v)
	v.Sanitize()
}

func (e *Engine) publish(now time.Time) {
	e.current.Timestamp = now.UnixNano()
	e.slot.Publish(&e.current)

	for _, t := range e.transports {
		if err := t.Send(e.current); err != nil {
			log.Errorf("transport send: %v", err)
		}
	}
}

// ProcessBlock pushes one block of samples through the ring and runs a
// single analysis pass stamped with now. The offline path drives the
// engine through this with synthetic stream time; live operation uses
// Run instead. Not safe to call concurrently with Run.
func (e *Engine) ProcessBlock(samples []float32, now time.Time) {
	e.ring.Write(samples)
	e.step(now)
}

// Snapshots returns the slot consumers poll for the newest vector.
func (e *Engine) Snapshots() *Slot { return e.slot }

// Spectrum exposes the analyzer's magnitude accessors for display use.
func (e *Engine) Spectrum() analysis.SpectrumProvider { return e.analyzer }

// Latest returns a copy of the newest published vector.
func (e *Engine) Latest() analysis.FeatureVector { return e.slot.Latest() }
