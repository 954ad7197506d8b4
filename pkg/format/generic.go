package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/format/rtpsimpleaudio"
)

func findClockRate(payloadType uint8, rtpMap string) (int, error) {
	// get clock rate from payload type
	if pt, ok := StaticPayloadTypes[payloadType]; ok {
		return pt.ClockRate, nil
	}

	// get clock rate from rtpmap
	// https://tools.ietf.org/html/rfc4566
	// a=rtpmap:<payload type> <encoding name>/<clock rate> [/<encoding parameters>]
	if rtpMap == "" {
		return 0, fmt.Errorf("attribute 'rtpmap' not found")
	}

	tmp := strings.Split(rtpMap, "/")
	if len(tmp) != 2 && len(tmp) != 3 {
		return 0, fmt.Errorf("invalid rtpmap (%v)", rtpMap)
	}

	v, err := strconv.ParseUint(tmp[1], 10, 31)
	if err != nil {
		return 0, fmt.Errorf("invalid clock rate: %v", tmp[1])
	}

	return int(v), nil
}

// Generic is a format without a dedicated depacketizer.
// Payloads of an access unit are concatenated.
type Generic struct {
	PayloadTyp uint8
	MediaType  string
	RTPMap     string
	FMTP       map[string]string

	// clock rate of the format. Filled automatically.
	ClockRat int
}

func (f *Generic) unmarshal(ctx *unmarshalContext) error {
	f.PayloadTyp = ctx.payloadType
	f.MediaType = ctx.mediaType
	f.RTPMap = ctx.rtpMap
	f.FMTP = ctx.fmtp

	var err error
	f.ClockRat, err = findClockRate(f.PayloadTyp, f.RTPMap)
	return err
}

// Codec implements Format.
func (f *Generic) Codec() string {
	if pt, ok := StaticPayloadTypes[f.PayloadTyp]; ok && f.RTPMap == "" {
		return pt.EncodingName
	}

	codec, _ := getCodecAndClock(f.RTPMap)
	if codec == "" {
		return "Generic"
	}
	return strings.ToUpper(codec)
}

// ClockRate implements Format.
func (f *Generic) ClockRate() int {
	return f.ClockRat
}

// PayloadType implements Format.
func (f *Generic) PayloadType() uint8 {
	return f.PayloadTyp
}

// ProbeStart implements Format.
func (f *Generic) ProbeStart(*rtp.Packet) StartProbe {
	if f.MediaType == "audio" {
		return StartConfirmed
	}
	return StartUndetermined
}

// ImpliedMarker implements Format.
func (f *Generic) ImpliedMarker() bool {
	return false
}

// CreateDecoder creates a decoder able to decode the content of the format.
func (f *Generic) CreateDecoder() (*rtpsimpleaudio.Decoder, error) {
	d := &rtpsimpleaudio.Decoder{}

	err := d.Init()
	if err != nil {
		return nil, err
	}

	return d, nil
}
