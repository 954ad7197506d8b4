package multicast

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/pion/rtp"
)

// maximum size of a UDP payload on a network with MTU 1500.
const udpMaxPayloadSize = 1472

// PacketReader reads RTP packets from a connection.
type PacketReader struct {
	// connection to read from.
	Conn net.PacketConn

	// called when a RTP packet is received.
	OnPacket func(*rtp.Packet)

	// called when a datagram can't be decoded.
	OnDecodeError func(error)
}

// Run reads packets until the context is canceled or the connection fails.
// It returns nil when the context is canceled.
func (r *PacketReader) Run(ctx context.Context) error {
	if r.OnDecodeError == nil {
		r.OnDecodeError = func(error) {}
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			r.Conn.SetReadDeadline(time.Now()) //nolint:errcheck
		case <-done:
		}
	}()

	for {
		// packets keep a reference to the buffer, therefore it can't be reused.
		buf := make([]byte, udpMaxPayloadSize+1)

		n, _, err := r.Conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if ctx.Err() != nil && errors.As(err, &ne) && ne.Timeout() {
				return nil
			}
			return err
		}

		var pkt rtp.Packet
		err = pkt.Unmarshal(buf[:n])
		if err != nil {
			r.OnDecodeError(err)
			continue
		}

		r.OnPacket(&pkt)
	}
}
