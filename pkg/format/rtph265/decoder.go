// Package rtph265 contains a RTP/H265 depacketizer.
package rtph265

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

const (
	codecName = "H265"

	payloadHeaderSize = 2
	donlSize          = 2
	dondSize          = 1
)

func joinFragments(fragments [][]byte, size int) []byte {
	ret := make([]byte, size)
	n := 0
	for _, p := range fragments {
		n += copy(ret[n:], p)
	}
	return ret
}

// Decoder is a RTP/H265 depacketizer.
// Specification: https://datatracker.ietf.org/doc/html/rfc7798
type Decoder struct {
	// indicates that NALUs have an additional field that specifies the decoding order.
	UsingDONLField bool
}

// Init initializes the decoder.
func (d *Decoder) Init() error {
	return nil
}

type accessUnit struct {
	nalus     [][]byte
	size      int
	fragments [][]byte
	fragSize  int
}

func (au *accessUnit) add(nalus ...[]byte) error {
	for _, nalu := range nalus {
		if len(au.nalus) >= h265.MaxNALUsPerAccessUnit {
			return liberrors.ErrMalformedPayload{
				Reason: fmt.Sprintf("NALU count exceeds maximum allowed (%d)", h265.MaxNALUsPerAccessUnit),
			}
		}

		au.size += len(nalu)
		if au.size > h265.MaxAccessUnitSize {
			return liberrors.ErrMalformedPayload{
				Reason: fmt.Sprintf("access unit size (%d) is too big, maximum is %d", au.size, h265.MaxAccessUnitSize),
			}
		}

		au.nalus = append(au.nalus, nalu)
	}
	return nil
}

func (au *accessUnit) flushFragments() error {
	if au.fragments == nil {
		return nil
	}
	nalu := joinFragments(au.fragments, au.fragSize)
	au.fragments = nil
	au.fragSize = 0
	return au.add(nalu)
}

// Decode decodes the NALUs contained in the packets of an access unit.
// Packets must be ordered and contiguous. Nothing is kept between calls.
func (d *Decoder) Decode(pkts []*rtp.Packet) ([][]byte, error) {
	var au accessUnit

	for _, pkt := range pkts {
		err := d.decodePacket(&au, pkt.Payload)
		if err != nil {
			return nil, err
		}
	}

	err := au.flushFragments()
	if err != nil {
		return nil, err
	}

	if au.nalus == nil {
		return nil, liberrors.ErrMalformedPayload{Reason: "access unit doesn't contain any NALU"}
	}

	return au.nalus, nil
}

func (d *Decoder) decodePacket(au *accessUnit, payload []byte) error {
	if len(payload) < payloadHeaderSize {
		return liberrors.ErrMalformedPayload{Reason: "payload is too short"}
	}

	typ := h265.NALUType((payload[0] >> 1) & 0b111111)

	if typ != h265.NALUType_FragmentationUnit {
		err := au.flushFragments()
		if err != nil {
			return err
		}
	}

	switch typ {
	case h265.NALUType_AggregationUnit:
		nalus, err := d.splitAggregationUnit(payload[payloadHeaderSize:])
		if err != nil {
			return err
		}
		return au.add(nalus...)

	case h265.NALUType_FragmentationUnit:
		if len(payload) < 3 {
			return liberrors.ErrMalformedPayload{Reason: "invalid fragmentation unit (invalid size)"}
		}

		start := payload[2] >> 7
		end := (payload[2] >> 6) & 0x01
		data := payload[3:]

		if start == 1 {
			err := au.flushFragments()
			if err != nil {
				return err
			}

			if d.UsingDONLField {
				if len(data) < donlSize {
					return liberrors.ErrMalformedPayload{Reason: "invalid fragmentation unit (missing DONL)"}
				}
				data = data[donlSize:]
			}

			typ := payload[2] & 0b111111
			head := uint16(payload[0]&0b10000001)<<8 | uint16(typ)<<9 | uint16(payload[1])
			au.fragments = [][]byte{{byte(head >> 8), byte(head)}, data}
			au.fragSize = 2 + len(data)
		} else {
			if au.fragments == nil {
				return liberrors.ErrFragmentWithoutStart{}
			}

			au.fragments = append(au.fragments, data)
			au.fragSize += len(data)

			if au.fragSize > h265.MaxAccessUnitSize {
				return liberrors.ErrMalformedPayload{
					Reason: fmt.Sprintf("NALU size (%d) is too big, maximum is %d", au.fragSize, h265.MaxAccessUnitSize),
				}
			}
		}

		if end == 1 {
			return au.flushFragments()
		}
		return nil

	case h265.NALUType_PACI:
		return liberrors.ErrUnsupportedPacketization{Codec: codecName, Type: int(typ)}
	}

	if d.UsingDONLField {
		if len(payload) < payloadHeaderSize+donlSize {
			return liberrors.ErrMalformedPayload{Reason: "payload is too short"}
		}
		return au.add(append(append([]byte(nil), payload[:payloadHeaderSize]...),
			payload[payloadHeaderSize+donlSize:]...))
	}

	return au.add(payload)
}

func (d *Decoder) splitAggregationUnit(buf []byte) ([][]byte, error) {
	var nalus [][]byte

	for len(buf) > 0 {
		if d.UsingDONLField {
			// DONL precedes the first unit, DOND the following ones.
			n := dondSize
			if nalus == nil {
				n = donlSize
			}
			if len(buf) < n {
				return nil, liberrors.ErrMalformedAggregation{Declared: n, Remaining: len(buf)}
			}
			buf = buf[n:]
		}

		if len(buf) < 2 {
			return nil, liberrors.ErrMalformedAggregation{Declared: 2, Remaining: len(buf)}
		}

		size := int(uint16(buf[0])<<8 | uint16(buf[1]))
		buf = buf[2:]

		if size == 0 || size > len(buf) {
			return nil, liberrors.ErrMalformedAggregation{Declared: size, Remaining: len(buf)}
		}

		nalus = append(nalus, buf[:size])
		buf = buf[size:]
	}

	if nalus == nil {
		return nil, liberrors.ErrMalformedPayload{Reason: "aggregation unit doesn't contain any NALU"}
	}

	return nalus, nil
}
