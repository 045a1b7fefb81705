// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"sync"
)

// ErrInsufficientData is returned by ring reads that ask for more
// samples than have been written (or remain unconsumed).
var ErrInsufficientData = errors.New("audio: insufficient data in ring buffer")

// RingBuffer is a mutex-guarded circular store of float32 samples. The
// audio callback is the only writer; the analysis loop peeks the most
// recent window without consuming it. Once full, writes overwrite the
// oldest samples. The write path never allocates.
type RingBuffer struct {
	mu       sync.Mutex
	buf      []float32
	capacity int
	writeIdx int    // next slot to write
	readIdx  int    // consume cursor
	size     int    // samples between readIdx and writeIdx
	written  uint64 // total samples ever written
}

// NewRingBuffer returns a ring holding capacity samples. Capacity is
// typically seconds * sampleRate * channels.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{
		buf:      make([]float32, capacity),
		capacity: capacity,
	}
}

// Write appends samples, overwriting the oldest data once the ring is
// full. Blocks only for the duration of the copy; no allocation.
func (r *RingBuffer) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A block larger than the ring reduces to its trailing capacity
	// samples; everything earlier would be overwritten inside this
	// same call anyway.
	src := samples
	if len(src) > r.capacity {
		src = src[len(src)-r.capacity:]
	}

	n := len(src)
	first := r.capacity - r.writeIdx
	if first > n {
		first = n
	}
	copy(r.buf[r.writeIdx:], src[:first])
	copy(r.buf, src[first:])

	r.writeIdx = (r.writeIdx + n) % r.capacity
	r.written += uint64(len(samples))

	overflow := r.size + n - r.capacity
	if overflow > 0 {
		// Oldest unconsumed samples are gone; advance the cursor.
		r.readIdx = (r.readIdx + overflow) % r.capacity
		r.size = r.capacity
	} else {
		r.size += n
	}
}

// ReadLatestInto fills dst with the most recent len(dst) samples
// without consuming them. Fails with ErrInsufficientData until that
// many samples have ever been written. dst larger than the ring is
// also ErrInsufficientData.
func (r *RingBuffer) ReadLatestInto(dst []float32) error {
	n := len(dst)
	if n == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.capacity || uint64(n) > r.written {
		return ErrInsufficientData
	}

	start := r.writeIdx - n
	if start < 0 {
		start += r.capacity
	}

	first := r.capacity - start
	if first > n {
		first = n
	}
	copy(dst[:first], r.buf[start:start+first])
	copy(dst[first:], r.buf[:n-first])

	return nil
}

// ReadLatest returns the most recent n samples as a fresh slice. Use
// ReadLatestInto on the hot path.
func (r *RingBuffer) ReadLatest(n int) ([]float32, error) {
	dst := make([]float32, n)
	if err := r.ReadLatestInto(dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// Consume advances the read cursor past n samples, failing with
// ErrInsufficientData when fewer are available.
func (r *RingBuffer) Consume(n int) error {
	if n < 0 {
		return ErrInsufficientData
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.size {
		return ErrInsufficientData
	}

	r.readIdx = (r.readIdx + n) % r.capacity
	r.size -= n
	return nil
}

// Level returns the unconsumed fill percentage in [0, 100].
func (r *RingBuffer) Level() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return float64(r.size) / float64(r.capacity) * 100.0
}

// Written returns the total number of samples ever written. The
// analysis loop compares successive values to detect fresh data.
func (r *RingBuffer) Written() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Capacity returns the ring's fixed capacity in samples.
func (r *RingBuffer) Capacity() int {
	return r.capacity
}
