// Package rtpmpeg4video contains a RTP/MPEG-4 Video depacketizer.
package rtpmpeg4video

import (
	"bytes"
	"fmt"

	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

const (
	maxFrameSize = 1 * 1024 * 1024

	vopStartCode = 0xB6
	vopTypeI     = 0
)

func joinFragments(fragments [][]byte, size int) []byte {
	ret := make([]byte, size)
	n := 0
	for _, p := range fragments {
		n += copy(ret[n:], p)
	}
	return ret
}

// Decoder is a RTP/MPEG-4 Video depacketizer.
// Specification: https://datatracker.ietf.org/doc/html/rfc6416
type Decoder struct{}

// Init initializes the decoder.
func (d *Decoder) Init() error {
	return nil
}

// Decode decodes a frame from the packets of a group.
func (d *Decoder) Decode(pkts []*rtp.Packet) ([]byte, error) {
	fragments := make([][]byte, 0, len(pkts))
	size := 0

	for _, pkt := range pkts {
		size += len(pkt.Payload)
		if size > maxFrameSize {
			return nil, liberrors.ErrMalformedPayload{
				Reason: fmt.Sprintf("frame size (%d) is too big, maximum is %d", size, maxFrameSize),
			}
		}

		fragments = append(fragments, pkt.Payload)
	}

	if size == 0 {
		return nil, liberrors.ErrMalformedPayload{Reason: "frame is empty"}
	}

	return joinFragments(fragments, size), nil
}

// IsKeyFrame checks whether the first VOP of a frame is intra-coded.
func IsKeyFrame(frame []byte) bool {
	i := bytes.Index(frame, []byte{0x00, 0x00, 0x01, vopStartCode})
	if i < 0 || len(frame) < i+5 {
		return false
	}
	return (frame[i+4] >> 6) == vopTypeI
}
