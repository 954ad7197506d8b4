// Package rtpmpeg1video contains a RTP/MPEG-1/2 Video depacketizer.
package rtpmpeg1video

import (
	"bytes"
	"fmt"

	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

const (
	headerSize          = 4
	extensionHeaderSize = 4
	maxFrameSize        = 4 * 1024 * 1024

	pictureTypeI = 1
)

func joinFragments(fragments [][]byte, size int) []byte {
	ret := make([]byte, size)
	n := 0
	for _, p := range fragments {
		n += copy(ret[n:], p)
	}
	return ret
}

// Header is the video-specific header of a RTP/MPEG-1/2 Video packet.
type Header struct {
	// MPEG-2 extension header is present.
	T bool
	// temporal reference.
	TR uint16
	// sequence header is present.
	S bool
	// beginning of slice.
	B bool
	// end of slice.
	E bool
	// picture type.
	P uint8
}

// Unmarshal decodes a Header.
func (h *Header) Unmarshal(buf []byte) (int, error) {
	if len(buf) < headerSize {
		return 0, liberrors.ErrMalformedPayload{Reason: "payload is too short"}
	}

	mbz := buf[0] >> 3
	if mbz != 0 {
		return 0, liberrors.ErrMalformedPayload{Reason: fmt.Sprintf("invalid MBZ: %v", mbz)}
	}

	h.T = ((buf[0] >> 2) & 0x01) != 0
	h.TR = uint16(buf[0]&0x03)<<8 | uint16(buf[1])
	h.S = ((buf[2] >> 5) & 0x01) != 0
	h.B = ((buf[2] >> 4) & 0x01) != 0
	h.E = ((buf[2] >> 3) & 0x01) != 0
	h.P = buf[2] & 0x07

	n := headerSize
	if h.T {
		n += extensionHeaderSize
		if len(buf) < n {
			return 0, liberrors.ErrMalformedPayload{Reason: "payload is too short"}
		}
	}

	return n, nil
}

// Decoder is a RTP/MPEG-1/2 Video depacketizer.
// Specification: https://datatracker.ietf.org/doc/html/rfc2250
type Decoder struct{}

// Init initializes the decoder.
func (d *Decoder) Init() error {
	return nil
}

// Decode decodes a frame from the packets of a group.
// Packets must be ordered and contiguous.
func (d *Decoder) Decode(pkts []*rtp.Packet) ([]byte, error) {
	fragments := make([][]byte, 0, len(pkts))
	size := 0

	for _, pkt := range pkts {
		var h Header
		n, err := h.Unmarshal(pkt.Payload)
		if err != nil {
			return nil, err
		}

		size += len(pkt.Payload) - n
		if size > maxFrameSize {
			return nil, liberrors.ErrMalformedPayload{
				Reason: fmt.Sprintf("frame size (%d) is too big, maximum is %d", size, maxFrameSize),
			}
		}

		fragments = append(fragments, pkt.Payload[n:])
	}

	if size == 0 {
		return nil, liberrors.ErrMalformedPayload{Reason: "frame is empty"}
	}

	return joinFragments(fragments, size), nil
}

// IsKeyFrame checks whether a frame contains an intra-coded picture,
// by reading the picture header.
func IsKeyFrame(frame []byte) bool {
	i := bytes.Index(frame, []byte{0x00, 0x00, 0x01, 0x00})
	if i < 0 || len(frame) < i+6 {
		return false
	}
	return (frame[i+5]>>3)&0x07 == pictureTypeI
}
