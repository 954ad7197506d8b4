package rtpmpeg1video

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

func packets(payloads ...[]byte) []*rtp.Packet {
	pkts := make([]*rtp.Packet, len(payloads))
	for i, payload := range payloads {
		pkts[i] = &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         i == len(payloads)-1,
				PayloadType:    32,
				SequenceNumber: uint16(17645 + i),
				Timestamp:      2289527317,
				SSRC:           0x9dbb7812,
			},
			Payload: payload,
		}
	}
	return pkts
}

func TestHeaderUnmarshal(t *testing.T) {
	var h Header
	n, err := h.Unmarshal([]byte{0x04, 0x05, 0x39, 0x00, 0x00, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, Header{
		T:  true,
		TR: 5,
		S:  true,
		B:  true,
		E:  true,
		P:  1,
	}, h)
}

func TestDecode(t *testing.T) {
	for _, ca := range []struct {
		name  string
		pkts  []*rtp.Packet
		frame []byte
		key   bool
	}{
		{
			"mpeg-1 intra",
			packets(
				[]byte{0x00, 0x00, 0x31, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x0f, 0xff},
				[]byte{0x00, 0x00, 0x09, 0x00, 0xaa, 0xbb},
			),
			[]byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x0f, 0xff, 0xaa, 0xbb},
			true,
		},
		{
			"mpeg-2 predicted",
			packets(
				[]byte{
					0x04, 0x00, 0x1a, 0x00, 0x00, 0x00, 0x00, 0x00,
					0x00, 0x00, 0x01, 0x00, 0x00, 0x17, 0xff,
				},
			),
			[]byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x17, 0xff},
			false,
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			d := &Decoder{}
			err := d.Init()
			require.NoError(t, err)

			frame, err := d.Decode(ca.pkts)
			require.NoError(t, err)
			require.Equal(t, ca.frame, frame)
			require.Equal(t, ca.key, IsKeyFrame(frame))
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	d := &Decoder{}
	err := d.Init()
	require.NoError(t, err)

	_, err = d.Decode(packets([]byte{0x00, 0x00}))
	require.Equal(t, liberrors.ErrMalformedPayload{Reason: "payload is too short"}, err)

	_, err = d.Decode(packets([]byte{0x04, 0x00, 0x00, 0x00, 0x00}))
	require.Equal(t, liberrors.ErrMalformedPayload{Reason: "payload is too short"}, err)

	_, err = d.Decode(packets([]byte{0x08, 0x00, 0x00, 0x00, 0x00}))
	require.Equal(t, liberrors.ErrMalformedPayload{Reason: "invalid MBZ: 1"}, err)
}
