// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"sonoscope/internal/analysis"
	"sonoscope/internal/log"
)

// SnapshotSource is the engine's snapshot slot, seen from the
// publisher's side.
type SnapshotSource interface {
	Latest() analysis.FeatureVector
	Version() uint64
}

// Packet layout, big-endian throughout:
//
//	offset  size  field
//	0       4     magic "SNSC"
//	4       1     packet format version (1)
//	5       8     snapshot version (uint64)
//	13      8     timestamp, nanoseconds (uint64)
//	21      44    11 float32 features: amplitude, rms, peak, centroid,
//	              rolloff, fundamental, harmonicity, loudness,
//	              sharpness, roughness, tempo
//	65      1     flags: bit 0 onset, bit 1 beat
//	66      96    24 float32 Bark band levels (dB)
//	162           total
const (
	PacketSize    = 162
	packetVersion = 1
)

var packetMagic = [4]byte{'S', 'N', 'S', 'C'}

// Publisher samples the snapshot slot at a fixed interval and sends
// one packet per fresh snapshot; stale versions are skipped. Start and
// Stop manage the goroutine and are both safe to call repeatedly.
type Publisher struct {
	sender   *Sender
	source   SnapshotSource
	interval time.Duration

	mu       sync.Mutex // guards ticker and done across Start/Stop
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Publisher-goroutine state.
	lastVersion uint64
	packet      [PacketSize]byte
}

// NewPublisher wires a sender to a snapshot source. A non-positive
// interval falls back to 10ms.
func NewPublisher(interval time.Duration, sender *Sender, source SnapshotSource) *Publisher {
	if interval <= 0 {
		interval = 10 * time.Millisecond
		log.Warnf("udp publisher interval invalid, using %s", interval)
	}
	return &Publisher{
		sender:   sender,
		source:   source,
		interval: interval,
	}
}

// Start launches the publisher goroutine. A second Start while running
// is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("udp publisher already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies so the goroutine never races Start/Stop on the
	// struct fields.
	ticker := p.ticker
	done := p.done
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Infof("udp publisher started (every %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop signals the goroutine and waits for it to exit. The socket
// stays open so Start can be called again.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.done)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// Close stops publishing and releases the socket.
func (p *Publisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

func (p *Publisher) publish() {
	if p.source.Version() == p.lastVersion {
		return
	}
	v := p.source.Latest()
	p.lastVersion = v.Version

	p.encode(&v)
	if err := p.sender.Send(p.packet[:]); err != nil {
		// Refused is routine when nobody listens; keep it at debug.
		log.Debugf("udp publish: %v", err)
		return
	}
	log.Debugf("udp publish: snapshot %d (%d bytes)", v.Version, PacketSize)
}

// encode packs v into the pre-allocated packet buffer.
func (p *Publisher) encode(v *analysis.FeatureVector) {
	b := p.packet[:]
	copy(b[0:4], packetMagic[:])
	b[4] = packetVersion
	binary.BigEndian.PutUint64(b[5:13], v.Version)
	binary.BigEndian.PutUint64(b[13:21], uint64(v.Timestamp))

	off := 21
	for _, f := range [...]float64{
		v.Amplitude, v.RMS, v.Peak,
		v.SpectralCentroid, v.SpectralRolloff,
		v.Fundamental, v.Harmonicity,
		v.Loudness, v.Sharpness, v.Roughness,
		v.Tempo,
	} {
		binary.BigEndian.PutUint32(b[off:off+4], math.Float32bits(float32(f)))
		off += 4
	}

	var flags byte
	if v.Onset {
		flags |= 1
	}
	if v.Beat {
		flags |= 2
	}
	b[off] = flags
	off++

	for _, band := range v.BarkSpectrum {
		binary.BigEndian.PutUint32(b[off:off+4], math.Float32bits(float32(band)))
		off += 4
	}
}
