package format

import (
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/format/rtpsimpleaudio"
)

// LPCM is the RTP format for the LPCM codec.
// Specification: https://datatracker.ietf.org/doc/html/rfc3190
type LPCM struct {
	PayloadTyp   uint8
	BitDepth     int
	SampleRate   int
	ChannelCount int
}

func (f *LPCM) unmarshal(ctx *unmarshalContext) error {
	f.PayloadTyp = ctx.payloadType

	switch ctx.payloadType {
	case 10, 11:
		f.BitDepth = 16
		f.SampleRate = 44100
		f.ChannelCount = int(12 - ctx.payloadType)
		return nil
	}

	switch ctx.codec {
	case "l8":
		f.BitDepth = 8

	case "l16":
		f.BitDepth = 16

	case "l24":
		f.BitDepth = 24
	}

	var err error
	f.SampleRate, f.ChannelCount, err = decodeClock(ctx.clock, 1)
	return err
}

// Codec implements Format.
func (f *LPCM) Codec() string {
	return "LPCM"
}

// ClockRate implements Format.
func (f *LPCM) ClockRate() int {
	return f.SampleRate
}

// PayloadType implements Format.
func (f *LPCM) PayloadType() uint8 {
	return f.PayloadTyp
}

// ProbeStart implements Format.
func (f *LPCM) ProbeStart(*rtp.Packet) StartProbe {
	return StartConfirmed
}

// ImpliedMarker implements Format.
func (f *LPCM) ImpliedMarker() bool {
	return true
}

// CreateDecoder creates a decoder able to decode the content of the format.
func (f *LPCM) CreateDecoder() (*rtpsimpleaudio.Decoder, error) {
	d := &rtpsimpleaudio.Decoder{}

	err := d.Init()
	if err != nil {
		return nil, err
	}

	return d, nil
}
