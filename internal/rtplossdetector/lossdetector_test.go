package rtplossdetector

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

func TestLossDetector(t *testing.T) {
	for _, ca := range []struct {
		name string
		seqs []uint16
		lost []uint64
	}{
		{
			"contiguous",
			[]uint16{65534, 65535, 0, 1},
			[]uint64{0, 0, 0, 0},
		},
		{
			"gap",
			[]uint16{10, 11, 14, 15},
			[]uint64{0, 0, 2, 0},
		},
		{
			"gap across wraparound",
			[]uint16{65534, 1},
			[]uint64{0, 2},
		},
		{
			"backwards",
			[]uint16{100, 101, 50, 51},
			[]uint64{0, 0, 0, 0},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			var ld LossDetector
			var lost []uint64

			for _, seq := range ca.seqs {
				lost = append(lost, ld.Process(&rtp.Packet{
					Header: rtp.Header{SequenceNumber: seq},
				}))
			}

			require.Equal(t, ca.lost, lost)
		})
	}
}

func TestLossDetectorReset(t *testing.T) {
	var ld LossDetector
	ld.Process(&rtp.Packet{Header: rtp.Header{SequenceNumber: 10}})
	ld.Reset()
	require.Equal(t, uint64(0), ld.Process(&rtp.Packet{Header: rtp.Header{SequenceNumber: 500}}))
	require.Equal(t, uint64(1), ld.Process(&rtp.Packet{Header: rtp.Header{SequenceNumber: 502}}))
}
