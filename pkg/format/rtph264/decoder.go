// Package rtph264 contains a RTP/H264 depacketizer.
package rtph264

import (
	"bytes"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

const codecName = "H264"

func joinFragments(fragments [][]byte, size int) []byte {
	ret := make([]byte, size)
	n := 0
	for _, p := range fragments {
		n += copy(ret[n:], p)
	}
	return ret
}

func isAllZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// Decoder is a RTP/H264 depacketizer.
// It turns the packets of an access unit into NALUs.
// Specification: https://datatracker.ietf.org/doc/html/rfc6184
type Decoder struct {
	// indicates the packetization mode.
	PacketizationMode int
}

// Init initializes the decoder.
func (d *Decoder) Init() error {
	if d.PacketizationMode >= 2 {
		return liberrors.ErrUnsupportedConfiguration{
			Codec:  codecName,
			Reason: fmt.Sprintf("packetization-mode %d", d.PacketizationMode),
		}
	}
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
		if len(au.nalus) >= h264.MaxNALUsPerAccessUnit {
			return liberrors.ErrMalformedPayload{
				Reason: fmt.Sprintf("NALU count exceeds maximum allowed (%d)", h264.MaxNALUsPerAccessUnit),
			}
		}

		au.size += len(nalu)
		if au.size > h264.MaxAccessUnitSize {
			return liberrors.ErrMalformedPayload{
				Reason: fmt.Sprintf("access unit size (%d) is too big, maximum is %d", au.size, h264.MaxAccessUnitSize),
			}
		}

		au.nalus = append(au.nalus, nalu)
	}
	return nil
}

// a fragment interrupted by another packet is kept as is.
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
	if len(payload) < 1 {
		return liberrors.ErrMalformedPayload{Reason: "payload is too short"}
	}

	typ := h264.NALUType(payload[0] & 0x1F)

	if typ != h264.NALUTypeFUA {
		err := au.flushFragments()
		if err != nil {
			return err
		}
	}

	switch typ {
	case h264.NALUTypeFUA:
		if len(payload) < 2 {
			return liberrors.ErrMalformedPayload{Reason: "invalid FU-A packet (invalid size)"}
		}

		start := payload[1] >> 7
		end := (payload[1] >> 6) & 0x01

		if start == 1 {
			err := au.flushFragments()
			if err != nil {
				return err
			}

			nri := (payload[0] >> 5) & 0x03
			typ := payload[1] & 0x1F
			au.fragments = [][]byte{{(payload[0] & 0x80) | (nri << 5) | typ}, payload[2:]}
			au.fragSize = 1 + len(payload[2:])
		} else {
			if au.fragments == nil {
				return liberrors.ErrFragmentWithoutStart{}
			}

			au.fragments = append(au.fragments, payload[2:])
			au.fragSize += len(payload[2:])

			if au.fragSize > h264.MaxAccessUnitSize {
				return liberrors.ErrMalformedPayload{
					Reason: fmt.Sprintf("NALU size (%d) is too big, maximum is %d", au.fragSize, h264.MaxAccessUnitSize),
				}
			}
		}

		// some cameras emit small NALUs in a single FU with both start and end bits set.
		if end == 1 {
			return au.flushFragments()
		}
		return nil

	case h264.NALUTypeSTAPA:
		var nalus [][]byte
		buf := payload[1:]

		for {
			if len(buf) < 2 {
				return liberrors.ErrMalformedAggregation{Declared: 2, Remaining: len(buf)}
			}

			size := int(uint16(buf[0])<<8 | uint16(buf[1]))
			buf = buf[2:]

			// discard padding
			if size == 0 && isAllZero(buf) {
				break
			}

			if size > len(buf) {
				return liberrors.ErrMalformedAggregation{Declared: size, Remaining: len(buf)}
			}

			if size != 0 {
				nalus = append(nalus, buf[:size])
				buf = buf[size:]
			}

			if len(buf) == 0 {
				break
			}
		}

		if nalus == nil {
			return liberrors.ErrMalformedPayload{Reason: "STAP-A packet doesn't contain any NALU"}
		}

		return au.add(nalus...)

	case h264.NALUTypeSTAPB, h264.NALUTypeMTAP16,
		h264.NALUTypeMTAP24, h264.NALUTypeFUB:
		return liberrors.ErrUnsupportedPacketization{Codec: codecName, Type: int(typ)}
	}

	return au.add(removeAnnexB(payload)...)
}

// some cameras and servers wrap NALUs into Annex-B.
func removeAnnexB(nalu []byte) [][]byte {
	if !bytes.HasPrefix(nalu, []byte{0x00, 0x00, 0x00, 0x01}) {
		return [][]byte{nalu}
	}

	var annexb h264.AnnexB
	err := annexb.Unmarshal(nalu)
	if err != nil {
		return [][]byte{nalu}
	}
	return annexb
}
