// Package rtpdump contains a reader of rtpdump capture files.
// Format: https://github.com/irtlab/rtptools
package rtpdump

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/pion/rtp"
	prtpdump "github.com/pion/rtpdump"
)

// Header is the header of a rtpdump file.
type Header struct {
	// time at which the recording started.
	Start time.Time

	// source of the recording.
	Source net.IP
	Port   int
}

// Packet is a RTP packet read from a rtpdump file.
type Packet struct {
	// time elapsed from the start of the recording.
	Offset time.Duration

	*rtp.Packet
}

// Reader reads a rtpdump file.
type Reader struct {
	// underlying reader.
	R io.Reader

	// header of the file. It's filled by Initialize.
	Header Header

	dr *prtpdump.Reader
}

// Initialize initializes a Reader and reads the file header.
func (r *Reader) Initialize() error {
	dr, hdr, err := prtpdump.NewReader(r.R)
	if err != nil {
		return fmt.Errorf("invalid file header: %w", err)
	}

	r.dr = dr
	r.Header = Header{
		Start:  hdr.Start.UTC(),
		Source: hdr.Source,
		Port:   int(hdr.Port),
	}

	return nil
}

// Read reads the next RTP packet. RTCP packets are skipped.
// It returns io.EOF when the file ends.
func (r *Reader) Read() (*Packet, error) {
	for {
		rec, err := r.dr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("invalid record: %w", err)
		}

		if rec.IsRTCP {
			continue
		}

		var pkt rtp.Packet
		err = pkt.Unmarshal(rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("invalid RTP packet: %w", err)
		}

		return &Packet{
			Offset: rec.Offset,
			Packet: &pkt,
		}, nil
	}
}
