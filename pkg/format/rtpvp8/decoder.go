// Package rtpvp8 contains a RTP/VP8 depacketizer.
package rtpvp8

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/vp8"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

func joinFragments(fragments [][]byte, size int) []byte {
	ret := make([]byte, size)
	n := 0
	for _, p := range fragments {
		n += copy(ret[n:], p)
	}
	return ret
}

// Decoder is a RTP/VP8 depacketizer.
// Specification: https://datatracker.ietf.org/doc/html/rfc7741
type Decoder struct{}

// Init initializes the decoder.
func (d *Decoder) Init() error {
	return nil
}

// Decode decodes a VP8 frame from the packets of a group.
// Packets must be ordered and contiguous.
func (d *Decoder) Decode(pkts []*rtp.Packet) ([]byte, error) {
	fragments := make([][]byte, 0, len(pkts))
	size := 0

	for i, pkt := range pkts {
		var vpkt codecs.VP8Packet
		_, err := vpkt.Unmarshal(pkt.Payload)
		if err != nil {
			return nil, liberrors.ErrMalformedPayload{Reason: fmt.Sprintf("invalid VP8 descriptor: %v", err)}
		}

		// the frame must begin with the start of the first partition.
		// following partitions are concatenated.
		if i == 0 && (vpkt.S != 1 || vpkt.PID != 0) {
			return nil, liberrors.ErrFragmentWithoutStart{}
		}

		size += len(vpkt.Payload)
		if size > vp8.MaxFrameSize {
			return nil, liberrors.ErrMalformedPayload{
				Reason: fmt.Sprintf("frame size (%d) is too big, maximum is %d", size, vp8.MaxFrameSize),
			}
		}

		fragments = append(fragments, vpkt.Payload)
	}

	if size == 0 {
		return nil, liberrors.ErrMalformedPayload{Reason: "frame is empty"}
	}

	return joinFragments(fragments, size), nil
}

// IsKeyFrame checks whether a VP8 frame is a key frame.
func IsKeyFrame(frame []byte) bool {
	return len(frame) > 0 && (frame[0]&0x01) == 0
}
