/*
Package rtpframer reassembles RTP streams into access units.

It reorders packets, detects the beginning of the first access unit
and converts every group of packets into an access unit suitable for a decoder.
*/
package rtpframer

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpframer/internal/rtplossdetector"
	"github.com/bluenviron/rtpframer/pkg/depacketizer"
	"github.com/bluenviron/rtpframer/pkg/format"
	"github.com/bluenviron/rtpframer/pkg/framequeue"
)

// maximum number of sequence numbers reported by MissingPackets.
const maxMissingPackets = 1024

// Stats are receiver statistics.
type Stats struct {
	// number of RTP packets received
	PacketsReceived uint64
	// number of RTP packets discarded because stale, duplicate or partial
	PacketsDiscarded uint64
	// number of sequence numbers that were skipped in the output
	PacketsLost uint64
	// number of buffered RTP packets
	PacketsBuffered uint64
	// number of access units produced
	AccessUnits uint64
	// number of access units that could not be depacketized
	DecodeErrors uint64
	// number of times the reorder queue was full and has been reset
	Overflows uint64
}

// Receiver reassembles access units from a RTP stream.
// ProcessPacket must be called by a single goroutine;
// Stats can be called concurrently.
type Receiver struct {
	// format of the stream.
	Format format.Format

	// maximum number of packets kept for reordering.
	// When the limit is reached, buffered packets are discarded
	// and the detection of the first access unit restarts.
	// It defaults to zero, which means unlimited.
	MaxBuffered int

	// destination of log entries.
	// It defaults to the standard logrus logger.
	Log logrus.FieldLogger

	// called when an access unit is ready.
	OnAccessUnit func(*depacketizer.AccessUnit)

	// called when a group of packets can't be converted into an access unit.
	OnDecodeError func(error)

	id           uuid.UUID
	log          logrus.FieldLogger
	queue        *framequeue.Queue
	depacketizer *depacketizer.Depacketizer
	lossDetector *rtplossdetector.LossDetector

	packetsReceived  atomic.Uint64
	packetsDiscarded atomic.Uint64
	packetsLost      atomic.Uint64
	packetsBuffered  atomic.Uint64
	accessUnits      atomic.Uint64
	decodeErrors     atomic.Uint64
	overflows        atomic.Uint64
}

// Initialize initializes a Receiver.
func (r *Receiver) Initialize() error {
	if r.Format == nil {
		return fmt.Errorf("Format not provided")
	}

	if r.Log == nil {
		r.Log = logrus.StandardLogger()
	}

	if r.OnAccessUnit == nil {
		r.OnAccessUnit = func(*depacketizer.AccessUnit) {}
	}

	if r.OnDecodeError == nil {
		r.OnDecodeError = func(error) {}
	}

	r.id = uuid.New()
	r.log = r.Log.WithFields(logrus.Fields{
		"stream": r.id.String(),
		"codec":  r.Format.Codec(),
	})

	r.queue = &framequeue.Queue{
		Format:      r.Format,
		MaxBuffered: r.MaxBuffered,
		OnDiscard:   r.onDiscard,
	}
	err := r.queue.Initialize()
	if err != nil {
		return err
	}

	r.depacketizer = &depacketizer.Depacketizer{
		Format: r.Format,
	}
	err = r.depacketizer.Initialize()
	if err != nil {
		return err
	}

	r.lossDetector = &rtplossdetector.LossDetector{}

	return nil
}

// ID returns the identifier of the stream, that is attached to log entries.
func (r *Receiver) ID() string {
	return r.id.String()
}

// Stats returns receiver statistics.
func (r *Receiver) Stats() *Stats {
	return &Stats{
		PacketsReceived:  r.packetsReceived.Load(),
		PacketsDiscarded: r.packetsDiscarded.Load(),
		PacketsLost:      r.packetsLost.Load(),
		PacketsBuffered:  r.packetsBuffered.Load(),
		AccessUnits:      r.accessUnits.Load(),
		DecodeErrors:     r.decodeErrors.Load(),
		Overflows:        r.overflows.Load(),
	}
}

// Reset discards buffered packets and restarts the detection of the first access unit.
func (r *Receiver) Reset() {
	r.packetsDiscarded.Add(uint64(r.queue.Len()))
	r.queue.Reset()
	r.lossDetector.Reset()
	r.packetsBuffered.Store(0)
}

func (r *Receiver) onDiscard(pkt *rtp.Packet, reason framequeue.DiscardReason) {
	r.packetsDiscarded.Add(1)
	r.log.WithFields(logrus.Fields{
		"seq":    pkt.SequenceNumber,
		"reason": reason.String(),
	}).Debug("packet discarded")
}

// ProcessPacket processes a RTP packet.
// Access units that become available are passed to OnAccessUnit.
func (r *Receiver) ProcessPacket(pkt *rtp.Packet) {
	r.packetsReceived.Add(1)

	err := r.queue.Push(pkt)
	// the only error returned by the queue is liberrors.ErrBufferFull.
	if err != nil {
		r.overflows.Add(1)
		r.log.WithError(err).Warn("resetting reorder queue")

		// buffered packets can't be consumed anymore since they're not ready,
		// therefore the output continues from the packet that caused the overflow.
		r.packetsDiscarded.Add(uint64(r.queue.Len()))
		r.queue.Reset()

		err = r.queue.Push(pkt)
		if err != nil {
			r.packetsDiscarded.Add(1)
			r.log.WithError(err).WithField("seq", pkt.SequenceNumber).Error("packet dropped")
		}
	}

	for r.queue.HasFrame() {
		r.processFrame(r.queue.Frame())
	}

	r.packetsBuffered.Store(uint64(r.queue.Len()))
}

func (r *Receiver) processFrame(pkts []*rtp.Packet) {
	for _, pkt := range pkts {
		lost := r.lossDetector.Process(pkt)
		if lost != 0 {
			r.packetsLost.Add(lost)
			r.log.WithField("count", lost).Warn("packets lost")
		}
	}

	au, err := r.depacketizer.Depacketize(pkts)
	if err != nil {
		r.decodeErrors.Add(1)
		r.log.WithError(err).WithFields(logrus.Fields{
			"seq":     pkts[0].SequenceNumber,
			"packets": len(pkts),
		}).Error("access unit dropped")
		r.OnDecodeError(err)
		return
	}

	r.accessUnits.Add(1)
	r.OnAccessUnit(au)
}

// MissingPackets returns the sequence numbers that are missing
// and are preventing buffered packets from being emitted, in the form of RTCP NACK pairs.
// It returns nil when nothing is missing.
func (r *Receiver) MissingPackets() []rtcp.NackPair {
	seqs := r.queue.Missing(maxMissingPackets)
	if len(seqs) == 0 {
		return nil
	}

	return rtcp.NackPairsFromSequenceNumbers(seqs)
}

// NACK returns a RTCP Generic NACK that requests the retransmission of missing packets.
// It returns nil when nothing is missing.
func (r *Receiver) NACK(senderSSRC uint32, mediaSSRC uint32) *rtcp.TransportLayerNack {
	pairs := r.MissingPackets()
	if pairs == nil {
		return nil
	}

	return &rtcp.TransportLayerNack{
		SenderSSRC: senderSSRC,
		MediaSSRC:  mediaSSRC,
		Nacks:      pairs,
	}
}
