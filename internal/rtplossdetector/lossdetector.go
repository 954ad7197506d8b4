// Package rtplossdetector counts sequence numbers skipped by an ordered RTP packet stream.
package rtplossdetector

import (
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/seqnum"
)

// LossDetector detects lost packets.
// Packets must be provided in sequence order.
type LossDetector struct {
	initialized    bool
	expectedSeqNum uint16
}

// Reset restarts detection from the next packet.
func (r *LossDetector) Reset() {
	r.initialized = false
}

// Process processes a RTP packet.
// It returns the number of lost packets.
func (r *LossDetector) Process(pkt *rtp.Packet) uint64 {
	if !r.initialized {
		r.initialized = true
		r.expectedSeqNum = pkt.SequenceNumber + 1
		return 0
	}

	diff := seqnum.Distance(r.expectedSeqNum, pkt.SequenceNumber)
	r.expectedSeqNum = pkt.SequenceNumber + 1

	// the stream went backwards, for instance after a restart of the sender.
	if diff < 0 {
		return 0
	}

	return uint64(diff)
}
