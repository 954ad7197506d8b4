package rtpframer

import (
	"testing"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtpframer/pkg/depacketizer"
	"github.com/bluenviron/rtpframer/pkg/format"
	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

func g711Packet(seq uint16) *rtp.Packet {
	return &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    0,
			SequenceNumber: seq,
			Timestamp:      uint32(seq) * 160,
		},
		Payload: []byte{byte(seq), 0x02},
	}
}

func h264Packet(seq uint16, marker bool, payload []byte) *rtp.Packet {
	return &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    96,
			SequenceNumber: seq,
			Timestamp:      uint32(seq) * 3000,
			Marker:         marker,
		},
		Payload: payload,
	}
}

type testReceiver struct {
	*Receiver
	aus  []*depacketizer.AccessUnit
	errs []error
	hook *test.Hook
}

func newReceiver(t *testing.T, f format.Format, maxBuffered int) *testReceiver {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	tr := &testReceiver{hook: hook}

	tr.Receiver = &Receiver{
		Format:      f,
		MaxBuffered: maxBuffered,
		Log:         logger,
		OnAccessUnit: func(au *depacketizer.AccessUnit) {
			tr.aus = append(tr.aus, au)
		},
		OnDecodeError: func(err error) {
			tr.errs = append(tr.errs, err)
		},
	}
	err := tr.Initialize()
	require.NoError(t, err)

	return tr
}

func TestReceiverInitializeError(t *testing.T) {
	r := &Receiver{}
	require.EqualError(t, r.Initialize(), "Format not provided")

	r = &Receiver{Format: &format.G711{}, MaxBuffered: -2}
	require.EqualError(t, r.Initialize(), "invalid MaxBuffered: -2")

	r = &Receiver{Format: &format.H264{PacketizationMode: 2}}
	require.Equal(t, liberrors.ErrUnsupportedConfiguration{
		Codec:  "H264",
		Reason: "packetization-mode 2",
	}, r.Initialize())
}

func TestReceiverReorder(t *testing.T) {
	r := newReceiver(t, &format.G711{MULaw: true, SampleRate: 8000, ChannelCount: 1}, 0)

	for _, seq := range []uint16{1, 0, 3, 2, 4, 4, 5} {
		r.ProcessPacket(g711Packet(seq))
	}

	require.Len(t, r.aus, 6)
	for i, au := range r.aus {
		require.Equal(t, uint32(i)*160, au.Timestamp)
		require.Equal(t, []byte{byte(i), 0x02}, au.Payload)
		require.True(t, au.IsKey)
	}

	require.Equal(t, &Stats{
		PacketsReceived:  7,
		PacketsDiscarded: 1,
		AccessUnits:      6,
	}, r.Stats())

	var discarded int
	for _, entry := range r.hook.AllEntries() {
		require.Equal(t, r.ID(), entry.Data["stream"])
		require.Equal(t, "G711", entry.Data["codec"])
		if entry.Message == "packet discarded" {
			require.Equal(t, logrus.DebugLevel, entry.Level)
			require.Equal(t, "stale", entry.Data["reason"])
			discarded++
		}
	}
	require.Equal(t, 1, discarded)
}

func TestReceiverDecodeError(t *testing.T) {
	r := newReceiver(t, &format.H264{PacketizationMode: 1}, 0)

	r.ProcessPacket(h264Packet(0, true, []byte{0x67, 0x64, 0x00, 0x0c}))
	for seq := uint16(1); seq < 5; seq++ {
		r.ProcessPacket(h264Packet(seq, true, []byte{0x41, 0x9a}))
	}
	require.Len(t, r.aus, 5)
	require.Equal(t, [][]byte{{0x67, 0x64, 0x00, 0x0c}}, r.aus[0].Units)

	// a fragment followed by a truncated aggregation packet.
	r.ProcessPacket(h264Packet(5, false, []byte{0x7c, 0x85, 0x01}))
	r.ProcessPacket(h264Packet(6, true, []byte{0x18, 0x00, 0x05, 0x01}))

	require.Len(t, r.aus, 5)
	require.Equal(t, []error{liberrors.ErrMalformedAggregation{Declared: 5, Remaining: 1}}, r.errs)
	require.Equal(t, uint64(1), r.Stats().DecodeErrors)

	entry := r.hook.LastEntry()
	require.Equal(t, logrus.ErrorLevel, entry.Level)
	require.Equal(t, "access unit dropped", entry.Message)
	require.Equal(t, uint16(5), entry.Data["seq"])
	require.Equal(t, 2, entry.Data["packets"])

	r.ProcessPacket(h264Packet(7, true, []byte{0x41, 0x9a}))
	require.Len(t, r.aus, 6)
}

func TestReceiverOverflow(t *testing.T) {
	r := newReceiver(t, &format.G711{MULaw: true, SampleRate: 8000, ChannelCount: 1}, 200)

	for seq := uint16(0); seq < 5; seq++ {
		r.ProcessPacket(g711Packet(seq))
	}
	require.Len(t, r.aus, 5)

	// packet 5 never arrives.
	for seq := uint16(6); seq < 206; seq++ {
		r.ProcessPacket(g711Packet(seq))
	}
	require.Len(t, r.aus, 5)
	require.Equal(t, uint64(200), r.Stats().PacketsBuffered)

	r.ProcessPacket(g711Packet(206))
	require.Equal(t, uint64(1), r.Stats().Overflows)
	require.Equal(t, uint64(1), r.Stats().PacketsBuffered)
	require.Equal(t, logrus.WarnLevel, r.hook.LastEntry().Level)
	require.Equal(t, "resetting reorder queue", r.hook.LastEntry().Message)

	for seq := uint16(207); seq < 211; seq++ {
		r.ProcessPacket(g711Packet(seq))
	}
	require.Len(t, r.aus, 10)
	require.Equal(t, uint32(206*160), r.aus[5].Timestamp)

	require.Equal(t, &Stats{
		PacketsReceived:  210,
		PacketsDiscarded: 200,
		PacketsLost:      201,
		AccessUnits:      10,
		Overflows:        1,
	}, r.Stats())
}

func TestReceiverMaxBufferedTooSmall(t *testing.T) {
	r := &Receiver{
		Format:      &format.G711{MULaw: true, SampleRate: 8000, ChannelCount: 1},
		MaxBuffered: 3,
	}
	require.EqualError(t, r.Initialize(), "MaxBuffered must be zero or at least 200")
}

func TestReceiverMissingPackets(t *testing.T) {
	r := newReceiver(t, &format.G711{MULaw: true, SampleRate: 8000, ChannelCount: 1}, 0)

	require.Nil(t, r.MissingPackets())
	require.Nil(t, r.NACK(1, 2))

	for seq := uint16(0); seq < 5; seq++ {
		r.ProcessPacket(g711Packet(seq))
	}
	r.ProcessPacket(g711Packet(7))

	require.Equal(t, []rtcp.NackPair{{PacketID: 5, LostPackets: 0b1}}, r.MissingPackets())
	require.Equal(t, &rtcp.TransportLayerNack{
		SenderSSRC: 1,
		MediaSSRC:  2,
		Nacks:      []rtcp.NackPair{{PacketID: 5, LostPackets: 0b1}},
	}, r.NACK(1, 2))

	r.ProcessPacket(g711Packet(6))
	r.ProcessPacket(g711Packet(5))
	require.Nil(t, r.MissingPackets())
	require.Len(t, r.aus, 8)
}

func TestReceiverReset(t *testing.T) {
	r := newReceiver(t, &format.G711{MULaw: true, SampleRate: 8000, ChannelCount: 1}, 0)

	for seq := uint16(100); seq < 105; seq++ {
		r.ProcessPacket(g711Packet(seq))
	}
	r.ProcessPacket(g711Packet(107))
	r.Reset()

	require.Equal(t, uint64(0), r.Stats().PacketsBuffered)
	require.Equal(t, uint64(1), r.Stats().PacketsDiscarded)

	// the stream restarted from a lower sequence number.
	for seq := uint16(0); seq < 5; seq++ {
		r.ProcessPacket(g711Packet(seq))
	}
	require.Len(t, r.aus, 10)
	require.Equal(t, uint64(0), r.Stats().PacketsLost)
}
