package format //nolint:dupl

import (
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/format/rtpmpeg1video"
)

// MPEG1Video is the RTP format for a MPEG-1/2 Video codec.
// Specification: https://datatracker.ietf.org/doc/html/rfc2250
type MPEG1Video struct {
	PayloadTyp uint8
}

func (f *MPEG1Video) unmarshal(ctx *unmarshalContext) error {
	f.PayloadTyp = ctx.payloadType
	return nil
}

// Codec implements Format.
func (f *MPEG1Video) Codec() string {
	return "MPEG-1/2 Video"
}

// ClockRate implements Format.
func (f *MPEG1Video) ClockRate() int {
	return 90000
}

// PayloadType implements Format.
func (f *MPEG1Video) PayloadType() uint8 {
	return f.PayloadTyp
}

// ProbeStart implements Format.
func (f *MPEG1Video) ProbeStart(pkt *rtp.Packet) StartProbe {
	var h rtpmpeg1video.Header
	_, err := h.Unmarshal(pkt.Payload)
	if err == nil && h.S {
		return StartConfirmed
	}
	return StartUndetermined
}

// ImpliedMarker implements Format.
func (f *MPEG1Video) ImpliedMarker() bool {
	return false
}

// CreateDecoder creates a decoder able to decode the content of the format.
func (f *MPEG1Video) CreateDecoder() (*rtpmpeg1video.Decoder, error) {
	d := &rtpmpeg1video.Decoder{}

	err := d.Init()
	if err != nil {
		return nil, err
	}

	return d, nil
}
