// SPDX-License-Identifier: MIT
package engine

import (
	"sync"

	"sonoscope/internal/analysis"
)

// Slot holds the newest published feature vector behind a version
// counter. Two buffers alternate so the single publisher can fill the
// inactive one without holding the lock; readers copy the active one
// under a read lock. Versions strictly increase, so a consumer
// comparing versions never observes a regress.
//
// The slot's lock is independent of the ring buffer's; a slow reader
// stalls neither capture nor analysis.
type Slot struct {
	mu      sync.RWMutex
	buf     [2]analysis.FeatureVector
	active  int
	version uint64
}

// NewSlot returns a slot at version zero holding default feature
// values, so consumers that poll before the first analysis pass see
// something sane.
func NewSlot() *Slot {
	s := &Slot{}
	s.buf[0] = analysis.NewFeatureVector()
	s.buf[1] = analysis.NewFeatureVector()
	return s
}

// Publish stores a copy of v as the newest snapshot, stamping the next
// version into both the stored copy and v itself. Only the analysis
// loop may call Publish; the inactive buffer is invisible to readers,
// which is what lets the bulk copy happen outside the lock.
func (s *Slot) Publish(v *analysis.FeatureVector) uint64 {
	next := 1 - s.active
	s.buf[next] = *v

	s.mu.Lock()
	s.version++
	s.buf[next].Version = s.version
	s.active = next
	n := s.version
	s.mu.Unlock()

	v.Version = n
	return n
}

// Latest returns a copy of the newest snapshot.
func (s *Slot) Latest() analysis.FeatureVector {
	s.mu.RLock()
	v := s.buf[s.active]
	s.mu.RUnlock()
	return v
}

// Version returns the newest snapshot's version without copying the
// vector. Pollers use it to skip work when nothing changed.
func (s *Slot) Version() uint64 {
	s.mu.RLock()
	n := s.version
	s.mu.RUnlock()
	return n
}
