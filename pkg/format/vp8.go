package format

import (
	"fmt"
	"strconv"

	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/format/rtpvp8"
)

// VP8 is the RTP format for the VP8 codec.
// Specification: https://datatracker.ietf.org/doc/html/rfc7741
type VP8 struct {
	PayloadTyp uint8
	MaxFR      *int
	MaxFS      *int
}

func (f *VP8) unmarshal(ctx *unmarshalContext) error {
	f.PayloadTyp = ctx.payloadType

	for key, val := range ctx.fmtp {
		switch key {
		case "max-fr":
			n, err := strconv.ParseUint(val, 10, 31)
			if err != nil {
				return fmt.Errorf("invalid max-fr: %v", val)
			}

			v2 := int(n)
			f.MaxFR = &v2

		case "max-fs":
			n, err := strconv.ParseUint(val, 10, 31)
			if err != nil {
				return fmt.Errorf("invalid max-fs: %v", val)
			}

			v2 := int(n)
			f.MaxFS = &v2
		}
	}

	return nil
}

// Codec implements Format.
func (f *VP8) Codec() string {
	return "VP8"
}

// ClockRate implements Format.
func (f *VP8) ClockRate() int {
	return 90000
}

// PayloadType implements Format.
func (f *VP8) PayloadType() uint8 {
	return f.PayloadTyp
}

// ProbeStart implements Format.
func (f *VP8) ProbeStart(pkt *rtp.Packet) StartProbe {
	if len(pkt.Payload) == 0 {
		return StartUndetermined
	}

	// S bit and partition index
	if (pkt.Payload[0] & 0x10) == 0 {
		return StartRejected
	}
	if (pkt.Payload[0] & 0x07) == 0 {
		return StartConfirmed
	}
	return StartUndetermined
}

// ImpliedMarker implements Format.
func (f *VP8) ImpliedMarker() bool {
	return false
}

// CreateDecoder creates a decoder able to decode the content of the format.
func (f *VP8) CreateDecoder() (*rtpvp8.Decoder, error) {
	d := &rtpvp8.Decoder{}

	err := d.Init()
	if err != nil {
		return nil, err
	}

	return d, nil
}
