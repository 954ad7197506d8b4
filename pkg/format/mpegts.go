package format //nolint:dupl

import (
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/format/rtpsimpleaudio"
)

// MPEGTS is the RTP format for MPEG-TS.
// Specification: https://datatracker.ietf.org/doc/html/rfc2250
type MPEGTS struct {
	PayloadTyp uint8
}

func (f *MPEGTS) unmarshal(ctx *unmarshalContext) error {
	f.PayloadTyp = ctx.payloadType
	return nil
}

// Codec implements Format.
func (f *MPEGTS) Codec() string {
	return "MPEG-TS"
}

// ClockRate implements Format.
func (f *MPEGTS) ClockRate() int {
	return 90000
}

// PayloadType implements Format.
func (f *MPEGTS) PayloadType() uint8 {
	return f.PayloadTyp
}

// ProbeStart implements Format.
func (f *MPEGTS) ProbeStart(*rtp.Packet) StartProbe {
	return StartUndetermined
}

// ImpliedMarker implements Format.
func (f *MPEGTS) ImpliedMarker() bool {
	return false
}

// CreateDecoder creates a decoder able to decode the content of the format.
// Payloads are a sequence of 188-byte TS packets, therefore they are just concatenated.
func (f *MPEGTS) CreateDecoder() (*rtpsimpleaudio.Decoder, error) {
	d := &rtpsimpleaudio.Decoder{}

	err := d.Init()
	if err != nil {
		return nil, err
	}

	return d, nil
}
