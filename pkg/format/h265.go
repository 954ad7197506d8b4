package format

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/format/rtph265"
)

const (
	h265PayloadHeaderSize = 2
	h265DONLSize          = 2
	h265DONDSize          = 1
)

// H265 is the RTP format for the H265 codec.
// Specification: https://datatracker.ietf.org/doc/html/rfc7798
type H265 struct {
	PayloadTyp uint8
	Profile    uint8

	// true when sprop-max-don-diff or sprop-depack-buf-nalus is non-zero.
	UsingDONLField bool
	MaxDONDiff     int

	VPS []byte
	SPS []byte
	PPS []byte
	SEI []byte

	// filled when SPS is valid.
	Width  int
	Height int
}

func decodeParameterSet(key string, val string) ([]byte, error) {
	byts, err := base64.StdEncoding.DecodeString(val)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", key, val)
	}

	// some cameras ship parameters with Annex-B prefix
	byts = bytes.TrimPrefix(byts, []byte{0, 0, 0, 1})

	return byts, nil
}

func (f *H265) unmarshal(ctx *unmarshalContext) error {
	f.PayloadTyp = ctx.payloadType

	profileID := false

	for key, val := range ctx.fmtp {
		var err error

		switch key {
		case "profile-id":
			var tmp uint64
			tmp, err = strconv.ParseUint(val, 10, 8)
			if err != nil {
				return fmt.Errorf("invalid profile-id: %v", val)
			}

			f.Profile = uint8(tmp)
			profileID = true

		case "sprop-vps":
			f.VPS, err = decodeParameterSet(key, val)

		case "sprop-sps":
			f.SPS, err = decodeParameterSet(key, val)

		case "sprop-pps":
			f.PPS, err = decodeParameterSet(key, val)

		case "sprop-sei":
			f.SEI, err = decodeParameterSet(key, val)

		case "sprop-max-don-diff":
			var tmp uint64
			tmp, err = strconv.ParseUint(val, 10, 31)
			if err != nil {
				return fmt.Errorf("invalid sprop-max-don-diff: %v", val)
			}

			f.MaxDONDiff = int(tmp)
			if tmp != 0 {
				f.UsingDONLField = true
			}

		case "sprop-depack-buf-nalus":
			var tmp uint64
			tmp, err = strconv.ParseUint(val, 10, 31)
			if err != nil {
				return fmt.Errorf("invalid sprop-depack-buf-nalus: %v", val)
			}

			if tmp != 0 {
				f.UsingDONLField = true
			}
		}

		if err != nil {
			return err
		}
	}

	if f.SPS != nil {
		var sps h265.SPS
		err := sps.Unmarshal(f.SPS)
		if err == nil {
			f.Width = sps.Width()
			f.Height = sps.Height()

			if !profileID {
				f.Profile = sps.ProfileTierLevel.GeneralProfileIdc
			}
		}
	}

	return nil
}

// Codec implements Format.
func (f *H265) Codec() string {
	return "H265"
}

// ClockRate implements Format.
func (f *H265) ClockRate() int {
	return 90000
}

// PayloadType implements Format.
func (f *H265) PayloadType() uint8 {
	return f.PayloadTyp
}

// ProbeStart implements Format.
func (f *H265) ProbeStart(pkt *rtp.Packet) StartProbe {
	if len(pkt.Payload) < h265PayloadHeaderSize {
		return StartUndetermined
	}

	switch typ := h265.NALUType((pkt.Payload[0] >> 1) & 0b111111); typ {
	case h265.NALUType_AggregationUnit:
		payload := pkt.Payload[h265PayloadHeaderSize:]
		if f.UsingDONLField {
			if len(payload) < h265DONLSize {
				return StartUndetermined
			}
			payload = payload[h265DONLSize:]
		}

		for len(payload) >= 3 {
			size := int(uint16(payload[0])<<8 | uint16(payload[1]))
			payload = payload[2:]

			if size == 0 || size > len(payload) {
				break
			}

			if h265StartsAccessUnit(h265.NALUType((payload[0] >> 1) & 0b111111)) {
				return StartConfirmed
			}

			payload = payload[size:]

			if f.UsingDONLField {
				if len(payload) < h265DONDSize {
					break
				}
				payload = payload[h265DONDSize:]
			}
		}

	case h265.NALUType_FragmentationUnit:
		if len(pkt.Payload) < 3 {
			return StartUndetermined
		}

		if (pkt.Payload[2] >> 7) == 1 {
			return StartConfirmed
		}
		return StartRejected

	case h265.NALUType_VPS_NUT, h265.NALUType_AUD_NUT:
		return StartConfirmed
	}

	return StartUndetermined
}

func h265StartsAccessUnit(typ h265.NALUType) bool {
	switch typ {
	case h265.NALUType_VPS_NUT, h265.NALUType_SPS_NUT, h265.NALUType_PPS_NUT,
		h265.NALUType_IDR_W_RADL, h265.NALUType_IDR_N_LP, h265.NALUType_AUD_NUT:
		return true
	}
	return false
}

// ImpliedMarker implements Format.
func (f *H265) ImpliedMarker() bool {
	return false
}

// Extradata returns the parameter sets in Annex-B format.
func (f *H265) Extradata() ([]byte, error) {
	var au [][]byte
	for _, ps := range [][]byte{f.VPS, f.SPS, f.PPS, f.SEI} {
		if ps != nil {
			au = append(au, ps)
		}
	}
	if au == nil {
		return nil, nil
	}

	return h264.AnnexB(au).Marshal()
}

// CreateDecoder creates a decoder able to decode the content of the format.
func (f *H265) CreateDecoder() (*rtph265.Decoder, error) {
	d := &rtph265.Decoder{
		UsingDONLField: f.UsingDONLField,
	}

	err := d.Init()
	if err != nil {
		return nil, err
	}

	return d, nil
}
