// Package rtpac3 contains a RTP/AC-3 depacketizer.
package rtpac3

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/ac3"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

const (
	codecName = "AC-3"

	// fragment types.
	fragmentTypeComplete = 0
	fragmentTypeStart    = 1
	fragmentTypeMiddle   = 2
	fragmentTypeEnd      = 3

	maxFrameSize             = 3840
	payloadHeaderSize        = 2
	minimumPayloadHeaderSize = payloadHeaderSize + 1
)

func joinFragments(fragments [][]byte, size int) []byte {
	ret := make([]byte, size)
	n := 0
	for _, p := range fragments {
		n += copy(ret[n:], p)
	}
	return ret
}

// Decoder is a RTP/AC-3 depacketizer.
// Specification: https://datatracker.ietf.org/doc/html/rfc4184
type Decoder struct{}

// Init initializes the decoder.
func (d *Decoder) Init() error {
	return nil
}

// Decode decodes AC-3 frames from the packets of a group.
// Packets must be ordered and contiguous.
func (d *Decoder) Decode(pkts []*rtp.Packet) ([][]byte, error) {
	var frames [][]byte
	var fragments [][]byte
	fragmentsSize := 0

	for _, pkt := range pkts {
		if len(pkt.Payload) < minimumPayloadHeaderSize {
			return nil, liberrors.ErrMalformedPayload{Reason: "payload is too short"}
		}

		mbz := pkt.Payload[0] >> 2
		if mbz != 0 {
			return nil, liberrors.ErrMalformedPayload{Reason: fmt.Sprintf("invalid MBZ: %v", mbz)}
		}

		ft := pkt.Payload[0] & 0b11
		buf := pkt.Payload[payloadHeaderSize:]

		switch ft {
		case fragmentTypeComplete:
			if fragments != nil {
				return nil, liberrors.ErrIncompleteFragment{}
			}

			for len(buf) > 0 {
				var syncInfo ac3.SyncInfo
				err := syncInfo.Unmarshal(buf)
				if err != nil {
					return nil, liberrors.ErrMalformedPayload{Reason: fmt.Sprintf("invalid sync info: %v", err)}
				}

				size := syncInfo.FrameSize()
				if len(buf) < size {
					return nil, liberrors.ErrMalformedAggregation{Declared: size, Remaining: len(buf)}
				}

				frames = append(frames, buf[:size])
				buf = buf[size:]
			}

		case fragmentTypeStart:
			if fragments != nil {
				return nil, liberrors.ErrIncompleteFragment{}
			}

			fragments = [][]byte{buf}
			fragmentsSize = len(buf)

		default: // middle or end
			if fragments == nil {
				return nil, liberrors.ErrFragmentWithoutStart{}
			}

			fragmentsSize += len(buf)
			if fragmentsSize > maxFrameSize {
				return nil, liberrors.ErrMalformedPayload{
					Reason: fmt.Sprintf("frame size (%d) is too big, maximum is %d", fragmentsSize, maxFrameSize),
				}
			}

			fragments = append(fragments, buf)

			if ft == fragmentTypeEnd {
				frames = append(frames, joinFragments(fragments, fragmentsSize))
				fragments = nil
				fragmentsSize = 0
			}
		}
	}

	if fragments != nil {
		return nil, liberrors.ErrIncompleteFragment{}
	}

	return frames, nil
}
