// SPDX-License-Identifier: MIT
package transport

import (
	"sonoscope/internal/analysis"
	"sonoscope/internal/log"
)

// SnapshotLogger writes a one-line debug summary per snapshot. It is
// the development sink for watching the feature stream without a
// client attached.
type SnapshotLogger struct{}

// NewSnapshotLogger returns the logging sink.
func NewSnapshotLogger() *SnapshotLogger {
	log.Infof("snapshot logging transport enabled")
	return &SnapshotLogger{}
}

// Send logs the fields worth watching at a glance. Anything that is
// not a feature vector is dumped verbatim.
func (l *SnapshotLogger) Send(data any) error {
	v, ok := data.(analysis.FeatureVector)
	if !ok {
		log.Debugf("snapshot: %+v", data)
		return nil
	}
	log.Debugf("snapshot %d: rms=%.3f f0=%.1fHz harm=%.2f loud=%.2f cent=%.0fHz tempo=%.0f onset=%t",
		v.Version, v.Amplitude, v.Fundamental, v.Harmonicity,
		v.Loudness, v.SpectralCentroid, v.Tempo, v.Onset)
	return nil
}

// Close is a no-op.
func (l *SnapshotLogger) Close() error { return nil }

var _ Transport = (*SnapshotLogger)(nil)
