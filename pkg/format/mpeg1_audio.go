package format //nolint:dupl

import (
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/format/rtpmpeg1audio"
)

// MPEG1Audio is the RTP format for a MPEG-1/2 Audio codec.
// Specification: https://datatracker.ietf.org/doc/html/rfc2250
type MPEG1Audio struct {
	PayloadTyp uint8
}

func (f *MPEG1Audio) unmarshal(ctx *unmarshalContext) error {
	f.PayloadTyp = ctx.payloadType
	return nil
}

// Codec implements Format.
func (f *MPEG1Audio) Codec() string {
	return "MPEG-1/2 Audio"
}

// ClockRate implements Format.
func (f *MPEG1Audio) ClockRate() int {
	return 90000
}

// PayloadType implements Format.
func (f *MPEG1Audio) PayloadType() uint8 {
	return f.PayloadTyp
}

// ProbeStart implements Format.
func (f *MPEG1Audio) ProbeStart(*rtp.Packet) StartProbe {
	return StartConfirmed
}

// ImpliedMarker implements Format.
func (f *MPEG1Audio) ImpliedMarker() bool {
	return true
}

// CreateDecoder creates a decoder able to decode the content of the format.
func (f *MPEG1Audio) CreateDecoder() (*rtpmpeg1audio.Decoder, error) {
	d := &rtpmpeg1audio.Decoder{}

	err := d.Init()
	if err != nil {
		return nil, err
	}

	return d, nil
}
