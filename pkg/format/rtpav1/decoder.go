// Package rtpav1 contains a RTP/AV1 depacketizer.
package rtpav1

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/av1"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

const (
	maxLEB128Size = 8

	obuTypeTemporalDelimiter = 2
)

func joinFragments(fragments [][]byte, size int) []byte {
	ret := make([]byte, size)
	n := 0
	for _, p := range fragments {
		n += copy(ret[n:], p)
	}
	return ret
}

// AggregationHeader is the first byte of a RTP/AV1 payload.
type AggregationHeader struct {
	// first OBU element is the continuation of an OBU fragment.
	Z bool
	// last OBU element will continue in the next packet.
	Y bool
	// number of OBU elements. When zero, every element has a length field.
	W uint8
	// packet is the first one of a coded video sequence.
	N bool
}

// Unmarshal decodes an AggregationHeader.
func (h *AggregationHeader) Unmarshal(b byte) {
	h.Z = (b & 0b10000000) != 0
	h.Y = (b & 0b01000000) != 0
	h.W = (b >> 4) & 0b11
	h.N = (b & 0b00001000) != 0
}

func readLength(buf []byte) (int, int, error) {
	var size av1.LEB128
	n, err := size.Unmarshal(buf)
	if err != nil {
		return 0, 0, liberrors.ErrMalformedPayload{Reason: fmt.Sprintf("invalid OBU length: %v", err)}
	}
	if n > maxLEB128Size {
		return 0, 0, liberrors.ErrMalformedPayload{Reason: "OBU length is longer than 8 bytes"}
	}
	return int(size), n, nil
}

// Decoder is a RTP/AV1 depacketizer.
// Specification: https://aomediacodec.github.io/av1-rtp-spec/
type Decoder struct{}

// Init initializes the decoder.
func (d *Decoder) Init() error {
	return nil
}

// Decode decodes the OBUs of a temporal unit from the packets of a group.
// Packets must be ordered and contiguous. OBUs are returned as they are
// transported, usually without the size field.
func (d *Decoder) Decode(pkts []*rtp.Packet) ([][]byte, error) {
	var obus [][]byte
	var fragments [][]byte
	fragmentsSize := 0
	tuSize := 0

	for _, pkt := range pkts {
		elements, header, err := splitElements(pkt.Payload)
		if err != nil {
			return nil, err
		}

		for _, e := range elements {
			tuSize += len(e)
		}

		if header.Z {
			if fragments == nil {
				return nil, liberrors.ErrFragmentWithoutStart{}
			}

			fragments = append(fragments, elements[0])
			fragmentsSize += len(elements[0])
			elements = elements[1:]

			// the fragment is completed unless it is also the last element.
			if len(elements) > 0 || !header.Y {
				obus = append(obus, joinFragments(fragments, fragmentsSize))
				fragments = nil
				fragmentsSize = 0
			}
		} else if fragments != nil {
			return nil, liberrors.ErrIncompleteFragment{}
		}

		if header.Y && len(elements) > 0 {
			last := elements[len(elements)-1]
			elements = elements[:len(elements)-1]
			fragments = [][]byte{last}
			fragmentsSize = len(last)
		}

		obus = append(obus, elements...)

		if tuSize > av1.MaxTemporalUnitSize {
			return nil, liberrors.ErrMalformedPayload{
				Reason: fmt.Sprintf("temporal unit size (%d) is too big, maximum is %d",
					tuSize, av1.MaxTemporalUnitSize),
			}
		}

		if len(obus) > av1.MaxOBUsPerTemporalUnit {
			return nil, liberrors.ErrMalformedPayload{
				Reason: fmt.Sprintf("OBU count (%d) exceeds maximum allowed (%d)",
					len(obus), av1.MaxOBUsPerTemporalUnit),
			}
		}
	}

	if fragments != nil {
		return nil, liberrors.ErrIncompleteFragment{}
	}

	if obus == nil {
		return nil, liberrors.ErrMalformedPayload{Reason: "temporal unit doesn't contain any OBU"}
	}

	return obus, nil
}

func splitElements(payload []byte) ([][]byte, AggregationHeader, error) {
	var header AggregationHeader

	if len(payload) < 2 {
		return nil, header, liberrors.ErrMalformedPayload{Reason: "payload is too short"}
	}

	header.Unmarshal(payload[0])
	payload = payload[1:]
	var elements [][]byte

	for len(payload) > 0 {
		if header.W == 0 || len(elements) < int(header.W-1) {
			size, n, err := readLength(payload)
			if err != nil {
				return nil, header, err
			}
			payload = payload[n:]

			if size == 0 || len(payload) < size {
				return nil, header, liberrors.ErrMalformedAggregation{Declared: size, Remaining: len(payload)}
			}

			elements = append(elements, payload[:size])
			payload = payload[size:]
		} else {
			elements = append(elements, payload)
			payload = nil
		}
	}

	if header.W != 0 && len(elements) != int(header.W) {
		return nil, header, liberrors.ErrMalformedPayload{Reason: "invalid W field"}
	}

	return elements, header, nil
}

func obuType(obu []byte) byte {
	return (obu[0] >> 3) & 0b1111
}

// IsKeyFrame checks whether a temporal unit contains a sequence header.
func IsKeyFrame(obus [][]byte) bool {
	return av1.IsRandomAccess2(obus)
}

// Bitstream converts OBUs into the low overhead bitstream format.
// Temporal delimiters are removed and every OBU is given a size field.
func Bitstream(obus [][]byte) []byte {
	n := 0
	for _, obu := range obus {
		n += len(obu) + maxLEB128Size
	}
	buf := make([]byte, 0, n)

	for _, obu := range obus {
		if len(obu) == 0 || obuType(obu) == obuTypeTemporalDelimiter {
			continue
		}

		if (obu[0] & 0b00000010) != 0 {
			buf = append(buf, obu...)
			continue
		}

		headerSize := 1
		if (obu[0]&0b00000100) != 0 && len(obu) >= 2 {
			headerSize = 2
		}

		buf = append(buf, obu[0]|0b00000010)
		buf = append(buf, obu[1:headerSize]...)

		size := av1.LEB128(len(obu) - headerSize)
		sizeBuf := make([]byte, size.MarshalSize())
		size.MarshalTo(sizeBuf)
		buf = append(buf, sizeBuf...)

		buf = append(buf, obu[headerSize:]...)
	}

	return buf
}
