// Package rtpmpeg1audio contains a RTP/MPEG-1/2 Audio depacketizer.
package rtpmpeg1audio

import (
	"fmt"

	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

const (
	headerSize   = 4
	maxFrameSize = 1 * 1024 * 1024
)

func joinFragments(fragments [][]byte, size int) []byte {
	ret := make([]byte, size)
	n := 0
	for _, p := range fragments {
		n += copy(ret[n:], p)
	}
	return ret
}

// Decoder is a RTP/MPEG-1/2 Audio depacketizer.
// Specification: https://datatracker.ietf.org/doc/html/rfc2250
type Decoder struct{}

// Init initializes the decoder.
func (d *Decoder) Init() error {
	return nil
}

// Decode decodes the audio frames contained in the packets of a group.
// Frames are returned concatenated, as they appear in an elementary stream.
func (d *Decoder) Decode(pkts []*rtp.Packet) ([]byte, error) {
	fragments := make([][]byte, 0, len(pkts))
	size := 0

	for i, pkt := range pkts {
		if len(pkt.Payload) <= headerSize {
			return nil, liberrors.ErrMalformedPayload{Reason: "payload is too short"}
		}

		mbz := uint16(pkt.Payload[0])<<8 | uint16(pkt.Payload[1])
		if mbz != 0 {
			return nil, liberrors.ErrMalformedPayload{Reason: fmt.Sprintf("invalid MBZ: %v", mbz)}
		}

		offset := uint16(pkt.Payload[2])<<8 | uint16(pkt.Payload[3])
		if i == 0 && offset != 0 {
			return nil, liberrors.ErrFragmentWithoutStart{}
		}

		size += len(pkt.Payload) - headerSize
		if size > maxFrameSize {
			return nil, liberrors.ErrMalformedPayload{
				Reason: fmt.Sprintf("frame size (%d) is too big, maximum is %d", size, maxFrameSize),
			}
		}

		fragments = append(fragments, pkt.Payload[headerSize:])
	}

	return joinFragments(fragments, size), nil
}
