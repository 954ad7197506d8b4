// Package depacketizer turns groups of RTP packets into access units,
// selecting the right decoder for every format.
package depacketizer

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/format"
	"github.com/bluenviron/rtpframer/pkg/format/rtpav1"
	"github.com/bluenviron/rtpframer/pkg/format/rtpmpeg1video"
	"github.com/bluenviron/rtpframer/pkg/format/rtpmpeg4video"
	"github.com/bluenviron/rtpframer/pkg/format/rtpvp8"
	"github.com/bluenviron/rtpframer/pkg/format/rtpvp9"
	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

// AccessUnit is a depacketized access unit.
type AccessUnit struct {
	// RTP timestamp of the access unit.
	Timestamp uint32

	// NAL units, OBUs or audio frames,
	// when the codec has such a structure.
	Units [][]byte

	// the access unit as a single buffer,
	// when the codec has no inner structure or when it has a bitstream format.
	Payload []byte

	// whether the access unit can be decoded independently.
	IsKey bool
}

type decodeFunc func(pkts []*rtp.Packet) (*AccessUnit, error)

func h265IDRPresent(nalus [][]byte) bool {
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}

		switch h265.NALUType((nalu[0] >> 1) & 0b111111) {
		case h265.NALUType_IDR_W_RADL, h265.NALUType_IDR_N_LP:
			return true
		}
	}
	return false
}

func payloadDecoder(
	decode func([]*rtp.Packet) ([]byte, error),
	isKey func([]byte) bool,
) decodeFunc {
	return func(pkts []*rtp.Packet) (*AccessUnit, error) {
		payload, err := decode(pkts)
		if err != nil {
			return nil, err
		}

		return &AccessUnit{
			Payload: payload,
			IsKey:   isKey(payload),
		}, nil
	}
}

func unitsDecoder(
	decode func([]*rtp.Packet) ([][]byte, error),
	isKey func([][]byte) bool,
) decodeFunc {
	return func(pkts []*rtp.Packet) (*AccessUnit, error) {
		units, err := decode(pkts)
		if err != nil {
			return nil, err
		}

		return &AccessUnit{
			Units: units,
			IsKey: isKey(units),
		}, nil
	}
}

func alwaysKey[T any](T) bool {
	return true
}

// Depacketizer converts groups of RTP packets into access units.
type Depacketizer struct {
	Format format.Format

	decode decodeFunc
}

// Initialize initializes a Depacketizer.
func (d *Depacketizer) Initialize() error {
	var err error
	d.decode, err = newDecodeFunc(d.Format)
	return err
}

func newDecodeFunc(f format.Format) (decodeFunc, error) {
	switch f := f.(type) {
	case *format.H264:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return unitsDecoder(dec.Decode, h264.IsRandomAccess), nil

	case *format.H265:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return unitsDecoder(dec.Decode, h265IDRPresent), nil

	case *format.MPEG4Audio:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return unitsDecoder(dec.Decode, alwaysKey[[][]byte]), nil

	case *format.AC3:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return unitsDecoder(dec.Decode, alwaysKey[[][]byte]), nil

	case *format.AV1:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return func(pkts []*rtp.Packet) (*AccessUnit, error) {
			obus, err := dec.Decode(pkts)
			if err != nil {
				return nil, err
			}

			return &AccessUnit{
				Units:   obus,
				Payload: rtpav1.Bitstream(obus),
				IsKey:   rtpav1.IsKeyFrame(obus),
			}, nil
		}, nil

	case *format.VP8:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return payloadDecoder(dec.Decode, rtpvp8.IsKeyFrame), nil

	case *format.VP9:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return payloadDecoder(dec.Decode, rtpvp9.IsKeyFrame), nil

	case *format.MPEG1Video:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return payloadDecoder(dec.Decode, rtpmpeg1video.IsKeyFrame), nil

	case *format.MPEG4Video:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return payloadDecoder(dec.Decode, rtpmpeg4video.IsKeyFrame), nil

	case *format.MPEG1Audio:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return payloadDecoder(dec.Decode, alwaysKey[[]byte]), nil

	case *format.MPEGTS:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return payloadDecoder(dec.Decode, alwaysKey[[]byte]), nil

	case *format.G711:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return payloadDecoder(dec.Decode, alwaysKey[[]byte]), nil

	case *format.G722:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return payloadDecoder(dec.Decode, alwaysKey[[]byte]), nil

	case *format.LPCM:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return payloadDecoder(dec.Decode, alwaysKey[[]byte]), nil

	case *format.Opus:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return payloadDecoder(dec.Decode, alwaysKey[[]byte]), nil

	case *format.Generic:
		dec, err := f.CreateDecoder()
		if err != nil {
			return nil, err
		}
		return payloadDecoder(dec.Decode, alwaysKey[[]byte]), nil

	case nil:
		return nil, fmt.Errorf("Format not provided")
	}

	return nil, liberrors.ErrUnsupportedConfiguration{
		Codec:  f.Codec(),
		Reason: "no depacketizer available",
	}
}

// Depacketize converts a group of sequence-contiguous RTP packets,
// that ends with the last packet of an access unit, into an access unit.
func (d *Depacketizer) Depacketize(pkts []*rtp.Packet) (*AccessUnit, error) {
	if len(pkts) == 0 {
		return nil, liberrors.ErrMalformedPayload{Reason: "access unit has no packets"}
	}

	au, err := d.decode(pkts)
	if err != nil {
		return nil, err
	}

	au.Timestamp = pkts[0].Timestamp
	return au, nil
}

// Depacketize converts a group of RTP packets into an access unit,
// using the decoder of the given format.
func Depacketize(f format.Format, pkts []*rtp.Packet) (*AccessUnit, error) {
	d := &Depacketizer{Format: f}
	err := d.Initialize()
	if err != nil {
		return nil, err
	}

	return d.Depacketize(pkts)
}
