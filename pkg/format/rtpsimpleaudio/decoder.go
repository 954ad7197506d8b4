// Package rtpsimpleaudio contains a depacketizer for codecs
// whose payload is the bitstream itself.
package rtpsimpleaudio

import (
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

// Decoder is a RTP/simple audio depacketizer.
type Decoder struct{}

// Init initializes the decoder.
func (d *Decoder) Init() error {
	return nil
}

// Decode concatenates the payloads of a group.
func (d *Decoder) Decode(pkts []*rtp.Packet) ([]byte, error) {
	if len(pkts) == 1 {
		return pkts[0].Payload, nil
	}

	size := 0
	for _, pkt := range pkts {
		size += len(pkt.Payload)
	}

	if size == 0 {
		return nil, liberrors.ErrMalformedPayload{Reason: "payload is empty"}
	}

	ret := make([]byte, 0, size)
	for _, pkt := range pkts {
		ret = append(ret, pkt.Payload...)
	}
	return ret, nil
}
