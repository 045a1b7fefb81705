// SPDX-License-Identifier: MIT
/*
Package tui renders terminal front ends: a live feature dashboard fed
by the engine's snapshot slot, and a browser for the available capture
devices. Both are Bubble Tea programs; the dashboard polls the slot on
its own timer and never blocks the analysis loop.
*/
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"sonoscope/internal/analysis"
)

// SnapshotSource yields the most recent feature vector. The engine's
// snapshot slot satisfies it.
type SnapshotSource interface {
	Latest() analysis.FeatureVector
}

const (
	// tickInterval is the dashboard refresh period (~30 fps).
	tickInterval = 33 * time.Millisecond

	// onsetFlashTicks is how many refreshes the onset marker stays lit.
	onsetFlashTicks = 4

	// spectrumCeiling bounds the sparkline; bins above it are inaudible
	// clutter at typical frame sizes.
	spectrumCeiling = 8000.0

	defaultMeterWidth = 40
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Dashboard is the Bubble Tea model for the live feature view.
type Dashboard struct {
	snapshots SnapshotSource
	spectrum  analysis.SpectrumProvider

	latest analysis.FeatureVector
	mags   []float64
	flash  int

	levelMeter    progress.Model
	loudnessMeter progress.Model
	harmonicMeter progress.Model

	width int
	ready bool
}

// NewDashboard returns a dashboard reading from the given sources.
func NewDashboard(snapshots SnapshotSource, spectrum analysis.SpectrumProvider) Dashboard {
	meter := func() progress.Model {
		return progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	}
	return Dashboard{
		snapshots:     snapshots,
		spectrum:      spectrum,
		mags:          make([]float64, spectrum.GetBinCount()),
		levelMeter:    meter(),
		loudnessMeter: meter(),
		harmonicMeter: meter(),
	}
}

// Init starts the refresh timer.
func (m Dashboard) Init() tea.Cmd {
	return tickCmd()
}

// Update handles refresh ticks, resizes, and quit keys.
func (m Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		w := msg.Width - 16
		if w > defaultMeterWidth {
			w = defaultMeterWidth
		}
		if w < 10 {
			w = 10
		}
		m.levelMeter.Width = w
		m.loudnessMeter.Width = w
		m.harmonicMeter.Width = w
		m.ready = true

	case tickMsg:
		m.latest = m.snapshots.Latest()
		// Best effort; a size mismatch just freezes the sparkline.
		_ = m.spectrum.GetMagnitudesInto(m.mags)
		if m.latest.Onset {
			m.flash = onsetFlashTicks
		} else if m.flash > 0 {
			m.flash--
		}
		return m, tickCmd()

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))) {
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the dashboard.
func (m Dashboard) View() string {
	if !m.ready {
		return "Initializing..."
	}

	v := m.latest
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("sonoscope"))
	if m.flash > 0 {
		sb.WriteString("  ")
		sb.WriteString(highlightStyle.Render("● onset"))
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "level     %s  %s\n", m.levelMeter.ViewAs(clamp01(v.Amplitude*math.Sqrt2)), formatDB(v.Amplitude))
	fmt.Fprintf(&sb, "loudness  %s  %.1f sone\n", m.loudnessMeter.ViewAs(clamp01(v.Loudness/10)), v.Loudness)
	fmt.Fprintf(&sb, "harmonic  %s  %.2f\n", m.harmonicMeter.ViewAs(clamp01(v.Harmonicity)), v.Harmonicity)
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "pitch     %s  %.1f Hz\n", highlightStyle.Render(noteName(v.Fundamental)), v.Fundamental)
	fmt.Fprintf(&sb, "centroid  %.0f Hz   rolloff %.0f Hz   sharpness %.2f   roughness %.2f\n",
		v.SpectralCentroid, v.SpectralRolloff, v.Sharpness, v.Roughness)
	beat := " "
	if v.Beat {
		beat = highlightStyle.Render("♩")
	}
	fmt.Fprintf(&sb, "tempo     %.1f BPM %s\n", v.Tempo, beat)
	f := v.Formants
	fmt.Fprintf(&sb, "formants  F1 %.0f  F2 %.0f  F3 %.0f  F4 %.0f   VTL %.1f cm\n",
		f.Frequencies[0], f.Frequencies[1], f.Frequencies[2], f.Frequencies[3], f.VocalTractLength)
	sb.WriteString("\n")

	sb.WriteString(m.renderSparkline())
	sb.WriteString("\n\n")
	sb.WriteString(infoStyle.Render("q: Quit"))

	return sb.String()
}

// renderSparkline folds the magnitude spectrum below spectrumCeiling
// into one character column per bucket, scaled in dB relative to the
// loudest bin.
func (m Dashboard) renderSparkline() string {
	width := m.width - 2
	if width > 72 {
		width = 72
	}
	if width < 8 {
		width = 8
	}

	binWidth := m.spectrum.GetFrequencyForBin(1)
	usable := len(m.mags)
	if binWidth > 0 {
		if n := int(spectrumCeiling/binWidth) + 1; n < usable {
			usable = n
		}
	}

	peak := 0.0
	for _, mag := range m.mags[:usable] {
		if mag > peak {
			peak = mag
		}
	}
	if peak <= 0 {
		return strings.Repeat(string(sparkLevels[0]), width)
	}

	cols := make([]rune, width)
	for c := range cols {
		lo := c * usable / width
		hi := (c + 1) * usable / width
		if hi <= lo {
			hi = lo + 1
		}
		bucket := 0.0
		for _, mag := range m.mags[lo:hi] {
			if mag > bucket {
				bucket = mag
			}
		}
		// 60 dB display floor, matching the loudest bin at the top.
		db := 20 * math.Log10(bucket/peak+1e-12)
		if db < -60 {
			db = -60
		}
		level := int((db + 60) / 60 * float64(len(sparkLevels)-1))
		cols[c] = sparkLevels[level]
	}
	return string(cols)
}

// Run drives the dashboard until the user quits or ctx is cancelled.
// Cancellation is a normal shutdown, not an error.
func Run(ctx context.Context, snapshots SnapshotSource, spectrum analysis.SpectrumProvider) error {
	p := tea.NewProgram(
		NewDashboard(snapshots, spectrum),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func formatDB(rms float64) string {
	if rms <= 0 {
		return "-inf dB"
	}
	return fmt.Sprintf("%.1f dB", 20*math.Log10(rms))
}

var noteNames = [12]string{"A", "A#", "B", "C", "C#", "D", "D#", "E", "F", "F#", "G", "G#"}

// noteName maps a frequency to the nearest equal-tempered note with
// A4 = 440 Hz.
func noteName(freq float64) string {
	if freq <= 0 {
		return "--"
	}
	semis := int(math.Round(12 * math.Log2(freq/440.0)))
	name := noteNames[((semis%12)+12)%12]
	octave := 4 + int(math.Floor(float64(semis+9)/12.0))
	return fmt.Sprintf("%s%d", name, octave)
}
