package format

import (
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/format/rtpac3"
)

// AC3 is the RTP format for the AC-3 codec.
// Specification: https://datatracker.ietf.org/doc/html/rfc4184
type AC3 struct {
	PayloadTyp   uint8
	SampleRate   int
	ChannelCount int
}

func (f *AC3) unmarshal(ctx *unmarshalContext) error {
	f.PayloadTyp = ctx.payloadType

	// RFC4184: If the "channels" parameter
	// is omitted, a default maximum value of 6 is implied.
	var err error
	f.SampleRate, f.ChannelCount, err = decodeClock(ctx.clock, 6)
	return err
}

// Codec implements Format.
func (f *AC3) Codec() string {
	return "AC-3"
}

// ClockRate implements Format.
func (f *AC3) ClockRate() int {
	return f.SampleRate
}

// PayloadType implements Format.
func (f *AC3) PayloadType() uint8 {
	return f.PayloadTyp
}

// ProbeStart implements Format.
func (f *AC3) ProbeStart(*rtp.Packet) StartProbe {
	return StartConfirmed
}

// ImpliedMarker implements Format.
func (f *AC3) ImpliedMarker() bool {
	return false
}

// CreateDecoder creates a decoder able to decode the content of the format.
func (f *AC3) CreateDecoder() (*rtpac3.Decoder, error) {
	d := &rtpac3.Decoder{}

	err := d.Init()
	if err != nil {
		return nil, err
	}

	return d, nil
}
