// Package rtpvp9 contains a RTP/VP9 depacketizer.
package rtpvp9

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/bits"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/vp9"
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

// Decoder is a RTP/VP9 depacketizer.
// Specification: https://datatracker.ietf.org/doc/html/draft-ietf-payload-vp9-16
type Decoder struct{}

// Init initializes the decoder.
func (d *Decoder) Init() error {
	return nil
}

// Decode decodes a VP9 frame from the packets of a group.
// Packets must be ordered and contiguous.
func (d *Decoder) Decode(pkts []*rtp.Packet) ([]byte, error) {
	fragments := make([][]byte, 0, len(pkts))
	size := 0

	for i, pkt := range pkts {
		var vpkt codecs.VP9Packet
		_, err := vpkt.Unmarshal(pkt.Payload)
		if err != nil {
			return nil, liberrors.ErrMalformedPayload{Reason: fmt.Sprintf("invalid VP9 descriptor: %v", err)}
		}

		if i == 0 && !vpkt.B {
			return nil, liberrors.ErrFragmentWithoutStart{}
		}

		size += len(vpkt.Payload)
		if size > vp9.MaxFrameSize {
			return nil, liberrors.ErrMalformedPayload{
				Reason: fmt.Sprintf("frame size (%d) is too big, maximum is %d", size, vp9.MaxFrameSize),
			}
		}

		fragments = append(fragments, vpkt.Payload)
	}

	if size == 0 {
		return nil, liberrors.ErrMalformedPayload{Reason: "frame is empty"}
	}

	return joinFragments(fragments, size), nil
}

// IsKeyFrame checks whether a VP9 frame is a key frame,
// by reading its uncompressed header.
func IsKeyFrame(frame []byte) bool {
	pos := 0

	frameMarker, err := bits.ReadBits(frame, &pos, 2)
	if err != nil || frameMarker != 2 {
		return false
	}

	profileLowBit, err := bits.ReadBits(frame, &pos, 1)
	if err != nil {
		return false
	}

	profileHighBit, err := bits.ReadBits(frame, &pos, 1)
	if err != nil {
		return false
	}

	if (profileHighBit<<1 | profileLowBit) == 3 {
		pos++ // reserved_zero
	}

	showExistingFrame, err := bits.ReadBits(frame, &pos, 1)
	if err != nil || showExistingFrame == 1 {
		return false
	}

	frameType, err := bits.ReadBits(frame, &pos, 1)
	if err != nil {
		return false
	}

	return frameType == 0
}
