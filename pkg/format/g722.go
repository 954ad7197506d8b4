package format

import (
	"fmt"
	"strings"

	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/format/rtpsimpleaudio"
)

// G722 is the RTP format for the G722 codec.
// Specification: https://datatracker.ietf.org/doc/html/rfc3551
type G722 struct {
	PayloadTyp uint8
}

func (f *G722) unmarshal(ctx *unmarshalContext) error {
	f.PayloadTyp = ctx.payloadType

	tmp := strings.Split(ctx.clock, "/")
	if len(tmp) == 2 && tmp[1] != "1" {
		return fmt.Errorf("G722 formats can have only one channel")
	}

	return nil
}

// Codec implements Format.
func (f *G722) Codec() string {
	return "G722"
}

// ClockRate implements Format.
func (f *G722) ClockRate() int {
	// RFC3551: the RTP clock rate is 8000 Hz although the sampling rate is 16000 Hz.
	return 8000
}

// PayloadType implements Format.
func (f *G722) PayloadType() uint8 {
	return f.PayloadTyp
}

// ProbeStart implements Format.
func (f *G722) ProbeStart(*rtp.Packet) StartProbe {
	return StartConfirmed
}

// ImpliedMarker implements Format.
func (f *G722) ImpliedMarker() bool {
	return true
}

// CreateDecoder creates a decoder able to decode the content of the format.
func (f *G722) CreateDecoder() (*rtpsimpleaudio.Decoder, error) {
	d := &rtpsimpleaudio.Decoder{}

	err := d.Init()
	if err != nil {
		return nil, err
	}

	return d, nil
}
