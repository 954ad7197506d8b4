// Package framequeue contains a queue that reorders RTP packets and groups them into access units.
package framequeue

import (
	"fmt"

	"github.com/gammazero/deque"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/format"
	"github.com/bluenviron/rtpframer/pkg/liberrors"
	"github.com/bluenviron/rtpframer/pkg/seqnum"
)

const (
	// number of packets that must be buffered before
	// inspecting the first one.
	minProbePackets = 5

	// number of buffered packets after which the start of the stream
	// is assumed to be usable even if it could not be determined.
	maxProbePackets = 200
)

// DiscardReason is the reason why a packet has been discarded.
type DiscardReason int

// discard reasons.
const (
	// packet precedes an access unit that has already been emitted.
	DiscardStale DiscardReason = iota

	// packet with the same sequence number is already buffered.
	DiscardDuplicate

	// packet belongs to an access unit whose beginning was never received.
	DiscardPartial
)

// String implements fmt.Stringer.
func (r DiscardReason) String() string {
	switch r {
	case DiscardStale:
		return "stale"
	case DiscardDuplicate:
		return "duplicate"
	case DiscardPartial:
		return "partial access unit"
	}
	return "unknown"
}

// Queue is a Frame Reorder Queue.
// It receives RTP packets in any order and returns groups of
// sequence-contiguous packets, each one containing an access unit.
type Queue struct {
	// format of packets.
	Format format.Format

	// maximum number of buffered packets.
	// It defaults to zero, which means unlimited.
	// Otherwise it must be large enough to let the start of the stream be resolved.
	MaxBuffered int

	// called when a packet is discarded.
	OnDiscard func(pkt *rtp.Packet, reason DiscardReason)

	pending deque.Deque[*rtp.Packet]

	// index of the last packet of the sequence-contiguous prefix of pending.
	readyPos int

	// indexes of packets that end an access unit, all <= readyPos.
	markers deque.Deque[int]

	emitted     bool
	lastEmitted uint16

	frames deque.Deque[[]*rtp.Packet]
}

// Initialize initializes a Queue.
func (q *Queue) Initialize() error {
	if q.Format == nil {
		return fmt.Errorf("Format not provided")
	}

	if q.MaxBuffered < 0 {
		return fmt.Errorf("invalid MaxBuffered: %d", q.MaxBuffered)
	}

	if q.MaxBuffered != 0 && q.MaxBuffered < maxProbePackets {
		return fmt.Errorf("MaxBuffered must be zero or at least %d", maxProbePackets)
	}

	if q.OnDiscard == nil {
		q.OnDiscard = func(*rtp.Packet, DiscardReason) {}
	}

	return nil
}

// Reset empties the queue and restarts the detection of the first access unit.
func (q *Queue) Reset() {
	q.pending.Clear()
	q.markers.Clear()
	q.frames.Clear()
	q.readyPos = 0
	q.emitted = false
	q.lastEmitted = 0
}

// Len returns the number of buffered packets.
func (q *Queue) Len() int {
	return q.pending.Len()
}

// HasFrame checks whether there's a frame ready to be read.
func (q *Queue) HasFrame() bool {
	return q.frames.Len() != 0
}

// Frame returns the next ready frame, or nil if there's none.
func (q *Queue) Frame() []*rtp.Packet {
	if q.frames.Len() == 0 {
		return nil
	}
	return q.frames.PopFront()
}

// Push adds a packet to the queue.
func (q *Queue) Push(pkt *rtp.Packet) error {
	if q.emitted && !seqnum.IsGreater(pkt.SequenceNumber, q.lastEmitted) {
		q.OnDiscard(pkt, DiscardStale)
		return nil
	}

	if q.pending.Len() == 0 {
		q.pending.PushBack(pkt)
		q.restartScan()
		q.emit()
		return nil
	}

	if seqnum.IsGreater(q.pending.Front().SequenceNumber, pkt.SequenceNumber) {
		err := q.checkFull()
		if err != nil {
			return err
		}

		q.pending.PushFront(pkt)
		q.restartScan()
		q.emit()
		return nil
	}

	// packets up to readyPos are contiguous, therefore any packet
	// that is not after the last of them is already buffered.
	if !seqnum.IsGreater(pkt.SequenceNumber, q.pending.At(q.readyPos).SequenceNumber) {
		q.OnDiscard(pkt, DiscardDuplicate)
		return nil
	}

	pos := q.pending.Len()

	for i := q.readyPos + 1; i < q.pending.Len(); i++ {
		cur := q.pending.At(i).SequenceNumber

		if cur == pkt.SequenceNumber {
			q.OnDiscard(pkt, DiscardDuplicate)
			return nil
		}

		if seqnum.IsGreater(cur, pkt.SequenceNumber) {
			pos = i
			break
		}
	}

	err := q.checkFull()
	if err != nil {
		return err
	}

	q.pending.Insert(pos, pkt)
	q.scan()
	q.emit()
	return nil
}

func (q *Queue) checkFull() error {
	if q.MaxBuffered > 0 && q.pending.Len() >= q.MaxBuffered {
		return liberrors.ErrBufferFull{Size: q.pending.Len()}
	}
	return nil
}

func (q *Queue) endsAccessUnit(pkt *rtp.Packet) bool {
	return pkt.Marker || q.Format.ImpliedMarker()
}

// restartScan recomputes readyPos and markers starting from the head.
func (q *Queue) restartScan() {
	q.readyPos = 0
	q.markers.Clear()

	if q.pending.Len() == 0 {
		return
	}

	if q.endsAccessUnit(q.pending.Front()) {
		q.markers.PushBack(0)
	}

	q.scan()
}

// scan extends the sequence-contiguous prefix as far as possible.
func (q *Queue) scan() {
	for q.readyPos < (q.pending.Len() - 1) {
		cur := q.pending.At(q.readyPos)
		next := q.pending.At(q.readyPos + 1)

		if !seqnum.IsAdjacent(cur.SequenceNumber, next.SequenceNumber) {
			break
		}

		q.readyPos++

		if q.endsAccessUnit(next) {
			q.markers.PushBack(q.readyPos)
		}
	}
}

// popFront removes the first n packets and shifts indexes accordingly.
func (q *Queue) popFront(n int) []*rtp.Packet {
	pkts := make([]*rtp.Packet, n)
	for i := range pkts {
		pkts[i] = q.pending.PopFront()
	}

	q.lastEmitted = pkts[n-1].SequenceNumber
	q.emitted = true

	for i := 0; i < q.markers.Len(); i++ {
		q.markers.Set(i, q.markers.At(i)-n)
	}

	q.readyPos -= n

	// the contiguous prefix has been entirely consumed.
	if q.readyPos < 0 {
		q.restartScan()
	}

	return pkts
}

// isFirstStart checks whether the head of the queue begins an access unit.
// It may drop the head when it is proven to be a partial access unit.
func (q *Queue) isFirstStart() bool {
	if q.emitted {
		return seqnum.IsAdjacent(q.lastEmitted, q.pending.Front().SequenceNumber)
	}

	if q.pending.Len() < minProbePackets {
		return false
	}

	switch q.Format.ProbeStart(q.pending.Front()) {
	case format.StartConfirmed:
		return true

	case format.StartRejected:
		// the stream was joined in the middle of an access unit.
		// drop packets up to the end of it; the following one begins a new access unit.
		off := q.markers.PopFront()
		for _, pkt := range q.popFront(off + 1) {
			q.OnDiscard(pkt, DiscardPartial)
		}
		return q.pending.Len() != 0 && seqnum.IsAdjacent(q.lastEmitted, q.pending.Front().SequenceNumber)
	}

	return q.pending.Len() >= maxProbePackets
}

func (q *Queue) emit() {
	for q.markers.Len() != 0 && q.isFirstStart() {
		if q.markers.Len() == 0 {
			break
		}

		off := q.markers.PopFront()
		q.frames.PushBack(q.popFront(off + 1))
	}
}

// Missing returns the sequence numbers that are missing inside the buffered window,
// up to maxCount entries.
func (q *Queue) Missing(maxCount int) []uint16 {
	if q.pending.Len() == 0 || maxCount <= 0 {
		return nil
	}

	var ret []uint16

	appendRange := func(from uint16, to uint16) bool {
		for s := from; s != to; s++ {
			if len(ret) >= maxCount {
				return false
			}
			ret = append(ret, s)
		}
		return true
	}

	if q.emitted {
		if !appendRange(q.lastEmitted+1, q.pending.Front().SequenceNumber) {
			return ret
		}
	}

	for i := q.readyPos; i < (q.pending.Len() - 1); i++ {
		cur := q.pending.At(i).SequenceNumber
		next := q.pending.At(i + 1).SequenceNumber

		if seqnum.Distance(cur, next) > 1 {
			if !appendRange(cur+1, next) {
				return ret
			}
		}
	}

	return ret
}
