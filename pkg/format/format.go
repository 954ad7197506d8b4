// Package format contains RTP payload formats and the logic to build them from SDP attributes.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/rtp"
	psdp "github.com/pion/sdp/v3"
)

func getFormatAttribute(attributes []psdp.Attribute, payloadType uint8, key string) string {
	for _, attr := range attributes {
		if attr.Key == key {
			v := strings.TrimSpace(attr.Value)
			if parts := strings.SplitN(v, " ", 2); len(parts) == 2 {
				if tmp, err := strconv.ParseUint(parts[0], 10, 8); err == nil && uint8(tmp) == payloadType {
					return parts[1]
				}
			}
		}
	}
	return ""
}

func getCodecAndClock(rtpMap string) (string, string) {
	parts2 := strings.SplitN(strings.TrimSpace(rtpMap), "/", 2)
	if len(parts2) != 2 {
		return "", ""
	}

	return strings.ToLower(parts2[0]), parts2[1]
}

// ParseFMTP splits a fmtp attribute value into key-value pairs.
// Keys are lowercased. Values are kept as they are, and may contain '='.
func ParseFMTP(enc string) map[string]string {
	if enc == "" {
		return nil
	}

	ret := make(map[string]string)

	for _, kv := range strings.Split(enc, ";") {
		kv = strings.Trim(kv, " ")

		if len(kv) == 0 {
			continue
		}

		tmp := strings.SplitN(kv, "=", 2)
		if len(tmp) != 2 {
			continue
		}

		ret[strings.ToLower(strings.TrimSpace(tmp[0]))] = strings.TrimSpace(tmp[1])
	}

	return ret
}

type unmarshalContext struct {
	mediaType   string
	payloadType uint8
	clock       string
	codec       string
	rtpMap      string
	fmtp        map[string]string
}

// Format is a RTP payload format.
// It carries the out-of-band parameters needed to reassemble access units.
type Format interface {
	unmarshal(ctx *unmarshalContext) error

	// Codec returns the codec name.
	Codec() string

	// ClockRate returns the clock rate.
	ClockRate() int

	// PayloadType returns the payload type.
	PayloadType() uint8

	// ProbeStart inspects the first buffered packet of a stream
	// and tells whether it begins an access unit.
	ProbeStart(pkt *rtp.Packet) StartProbe

	// ImpliedMarker returns whether every packet carries exactly one access unit,
	// regardless of the marker bit.
	ImpliedMarker() bool
}

func isDynamic(payloadType uint8) bool {
	return payloadType >= 96 && payloadType <= 127
}

func newFormat(codec string, clock string, payloadType uint8) Format {
	switch {
	/*
	* dynamic payload types
	**/

	// video

	case codec == "av1" && clock == "90000" && isDynamic(payloadType):
		return &AV1{}

	case codec == "vp9" && clock == "90000" && isDynamic(payloadType):
		return &VP9{}

	case codec == "vp8" && clock == "90000" && isDynamic(payloadType):
		return &VP8{}

	case (codec == "h265" || codec == "hevc") && clock == "90000" && isDynamic(payloadType):
		return &H265{}

	case codec == "h264" && clock == "90000" && (isDynamic(payloadType) || payloadType == 35):
		return &H264{}

	case codec == "mp4v-es" && clock == "90000" && isDynamic(payloadType):
		return &MPEG4Video{}

	case codec == "mpv" && isDynamic(payloadType):
		return &MPEG1Video{}

	case codec == "mp2t" && isDynamic(payloadType):
		return &MPEGTS{}

	// audio

	case (codec == "opus" || codec == "multiopus") && isDynamic(payloadType):
		return &Opus{}

	case (codec == "mpeg4-generic" || codec == "mp4a-latm") && isDynamic(payloadType):
		return &MPEG4Audio{}

	case (codec == "ac3" || codec == "ac-3") && isDynamic(payloadType):
		return &AC3{}

	case codec == "mpa" && isDynamic(payloadType):
		return &MPEG1Audio{}

	case (codec == "pcma" || codec == "pcmu") && isDynamic(payloadType):
		return &G711{}

	case codec == "g722" && isDynamic(payloadType):
		return &G722{}

	case (codec == "l8" || codec == "l16" || codec == "l24") && isDynamic(payloadType):
		return &LPCM{}

	/*
	* static payload types
	**/

	// video

	case payloadType == 32:
		return &MPEG1Video{}

	case payloadType == 33:
		return &MPEGTS{}

	// audio

	case payloadType == 14:
		return &MPEG1Audio{}

	case payloadType == 9:
		return &G722{}

	case payloadType == 0, payloadType == 8:
		return &G711{}

	case payloadType == 10, payloadType == 11:
		return &LPCM{}
	}

	return &Generic{}
}

func unmarshalFormat(mediaType string, payloadType uint8, rtpMap string, fmtp map[string]string) (Format, error) {
	codec, clock := getCodecAndClock(rtpMap)

	format := newFormat(codec, clock, payloadType)

	err := format.unmarshal(&unmarshalContext{
		mediaType:   mediaType,
		payloadType: payloadType,
		clock:       clock,
		codec:       codec,
		rtpMap:      rtpMap,
		fmtp:        fmtp,
	})
	if err != nil {
		return nil, err
	}

	return format, nil
}

// New builds a format from the media type, the payload type
// and the raw values of the rtpmap and fmtp attributes.
func New(mediaType string, payloadType uint8, rtpMap string, fmtp string) (Format, error) {
	return unmarshalFormat(mediaType, payloadType, rtpMap, ParseFMTP(fmtp))
}

// Unmarshal decodes a format from a media description.
func Unmarshal(md *psdp.MediaDescription, payloadTypeStr string) (Format, error) {
	tmp, err := strconv.ParseUint(payloadTypeStr, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid payload type: %v", payloadTypeStr)
	}
	payloadType := uint8(tmp)

	rtpMap := getFormatAttribute(md.Attributes, payloadType, "rtpmap")
	fmtp := ParseFMTP(getFormatAttribute(md.Attributes, payloadType, "fmtp"))

	return unmarshalFormat(md.MediaName.Media, payloadType, rtpMap, fmtp)
}
