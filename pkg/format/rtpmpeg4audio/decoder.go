// Package rtpmpeg4audio contains a RTP/MPEG-4 Audio depacketizer.
package rtpmpeg4audio

import (
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

const codecName = "MPEG-4 Audio"

func joinFragments(fragments [][]byte, size int) []byte {
	ret := make([]byte, size)
	n := 0
	for _, p := range fragments {
		n += copy(ret[n:], p)
	}
	return ret
}

// Decoder is a RTP/MPEG-4 Audio depacketizer.
// Specification: https://datatracker.ietf.org/doc/html/rfc3640
// Specification: https://datatracker.ietf.org/doc/html/rfc6416#section-7.3
type Decoder struct {
	// use RFC6416 (LATM) instead of RFC3640 (generic).
	LATM bool

	// Generic-only
	// The number of bits in which the AU-size field is encoded in the AU-header.
	SizeLength int
	// The number of bits in which the AU-Index is encoded in the first AU-header.
	IndexLength int
	// The number of bits in which the AU-Index-delta field is encoded in any non-first AU-header.
	IndexDeltaLength int
}

// Init initializes the decoder.
func (d *Decoder) Init() error {
	if !d.LATM && d.SizeLength == 0 {
		return liberrors.ErrUnsupportedConfiguration{Codec: codecName, Reason: "sizelength is missing"}
	}
	return nil
}

// fragmented AU spanning multiple packets.
type fragmentedAU struct {
	fragments [][]byte
	size      int
	expected  int
}

func (f *fragmentedAU) pending() bool {
	return f.fragments != nil
}

func (f *fragmentedAU) start(buf []byte, expected int) {
	f.fragments = [][]byte{buf}
	f.size = len(buf)
	f.expected = expected
}

// appends data and returns the AU when complete.
func (f *fragmentedAU) write(buf []byte) ([]byte, []byte) {
	n := min(len(buf), f.expected-f.size)
	f.fragments = append(f.fragments, buf[:n])
	f.size += n

	if f.size < f.expected {
		return nil, nil
	}

	au := joinFragments(f.fragments, f.size)
	f.fragments = nil
	f.size = 0
	return au, buf[n:]
}

// Decode decodes the AUs contained in the packets of a group.
// Packets must be ordered and contiguous. Nothing is kept between calls.
func (d *Decoder) Decode(pkts []*rtp.Packet) ([][]byte, error) {
	var aus [][]byte
	var err error

	if !d.LATM {
		aus, err = d.decodeGeneric(pkts)
	} else {
		aus, err = d.decodeLATM(pkts)
	}
	if err != nil {
		return nil, err
	}

	if aus == nil {
		return nil, liberrors.ErrMalformedPayload{Reason: "packets don't contain any AU"}
	}

	return aus, nil
}
