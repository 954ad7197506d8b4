package format

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/format/rtph264"
)

// H264 is the RTP format for the H264 codec.
// Specification: https://datatracker.ietf.org/doc/html/rfc6184
type H264 struct {
	PayloadTyp        uint8
	Profile           uint8
	Level             uint8
	PacketizationMode int
	SPS               []byte
	PPS               []byte

	// filled when SPS is valid.
	Width  int
	Height int
}

func (f *H264) unmarshal(ctx *unmarshalContext) error {
	f.PayloadTyp = ctx.payloadType

	profileLevelID := false

	for key, val := range ctx.fmtp {
		switch key {
		case "profile-level-id":
			tmp, err := hex.DecodeString(val)
			if err != nil || len(tmp) != 3 {
				return fmt.Errorf("invalid profile-level-id: %v", val)
			}

			f.Profile = tmp[0]
			f.Level = tmp[2]
			profileLevelID = true

		case "sprop-parameter-sets":
			err := f.unmarshalParameterSets(val)
			if err != nil {
				return err
			}

		case "packetization-mode":
			tmp, err := strconv.ParseUint(val, 10, 31)
			if err != nil {
				return fmt.Errorf("invalid packetization-mode: %v", val)
			}

			f.PacketizationMode = int(tmp)
		}
	}

	if f.SPS != nil {
		var sps h264.SPS
		err := sps.Unmarshal(f.SPS)
		if err == nil {
			f.Width = sps.Width()
			f.Height = sps.Height()

			if !profileLevelID {
				f.Profile = sps.ProfileIdc
				f.Level = sps.LevelIdc
			}
		}
	}

	return nil
}

func (f *H264) unmarshalParameterSets(val string) error {
	for _, part := range strings.Split(val, ",") {
		if part == "" {
			continue
		}

		nalu, err := base64.StdEncoding.DecodeString(part)
		if err != nil {
			return fmt.Errorf("invalid sprop-parameter-sets: %v", val)
		}

		// some cameras ship parameters with Annex-B prefix
		nalu = bytes.TrimPrefix(nalu, []byte{0, 0, 0, 1})
		nalu = bytes.TrimPrefix(nalu, []byte{0, 0, 1})

		if len(nalu) == 0 {
			continue
		}

		switch h264.NALUType(nalu[0] & 0x1F) {
		case h264.NALUTypeSPS:
			f.SPS = nalu

		case h264.NALUTypePPS:
			f.PPS = nalu
		}
	}

	return nil
}

// Codec implements Format.
func (f *H264) Codec() string {
	return "H264"
}

// ClockRate implements Format.
func (f *H264) ClockRate() int {
	return 90000
}

// PayloadType implements Format.
func (f *H264) PayloadType() uint8 {
	return f.PayloadTyp
}

// ProbeStart implements Format.
func (f *H264) ProbeStart(pkt *rtp.Packet) StartProbe {
	if len(pkt.Payload) == 0 {
		return StartUndetermined
	}

	switch typ := h264.NALUType(pkt.Payload[0] & 0x1F); typ {
	case h264.NALUTypeSTAPA:
		payload := pkt.Payload[1:]

		for len(payload) >= 3 {
			size := int(uint16(payload[0])<<8 | uint16(payload[1]))
			payload = payload[2:]

			if size == 0 || size > len(payload) {
				break
			}

			if h264StartsAccessUnit(h264.NALUType(payload[0] & 0x1F)) {
				return StartConfirmed
			}

			payload = payload[size:]
		}

	case h264.NALUTypeFUA:
		if len(pkt.Payload) < 2 {
			return StartUndetermined
		}

		if (pkt.Payload[1] >> 7) == 1 {
			return StartConfirmed
		}
		return StartRejected

	case h264.NALUTypeSPS, h264.NALUTypeAccessUnitDelimiter:
		return StartConfirmed
	}

	return StartUndetermined
}

func h264StartsAccessUnit(typ h264.NALUType) bool {
	switch typ {
	case h264.NALUTypeSPS, h264.NALUTypePPS, h264.NALUTypeIDR, h264.NALUTypeAccessUnitDelimiter:
		return true
	}
	return false
}

// ImpliedMarker implements Format.
func (f *H264) ImpliedMarker() bool {
	return false
}

// Extradata returns the parameter sets in Annex-B format.
func (f *H264) Extradata() ([]byte, error) {
	var au [][]byte
	if f.SPS != nil {
		au = append(au, f.SPS)
	}
	if f.PPS != nil {
		au = append(au, f.PPS)
	}
	if au == nil {
		return nil, nil
	}

	return h264.AnnexB(au).Marshal()
}

// CreateDecoder creates a decoder able to decode the content of the format.
func (f *H264) CreateDecoder() (*rtph264.Decoder, error) {
	d := &rtph264.Decoder{
		PacketizationMode: f.PacketizationMode,
	}

	err := d.Init()
	if err != nil {
		return nil, err
	}

	return d, nil
}
