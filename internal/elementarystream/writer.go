// Package elementarystream writes access units into elementary stream files.
package elementarystream

import (
	"io"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"

	"github.com/bluenviron/rtpframer/pkg/depacketizer"
	"github.com/bluenviron/rtpframer/pkg/format"
)

// Writer writes access units into an elementary stream.
// H264 and H265 are written in Annex-B format, prefixed by the format extradata.
// MPEG-4 Audio is wrapped into ADTS.
// Other codecs are written as they are.
type Writer struct {
	W      io.Writer
	Format format.Format

	paramsWritten bool
}

// Write writes an access unit.
func (w *Writer) Write(au *depacketizer.AccessUnit) error {
	var buf []byte
	var err error

	switch f := w.Format.(type) {
	case *format.H264, *format.H265:
		buf, err = w.marshalAnnexB(au)

	case *format.MPEG4Audio:
		buf, err = marshalADTS(f, au)

	default:
		if au.Payload != nil {
			buf = au.Payload
		} else {
			for _, unit := range au.Units {
				buf = append(buf, unit...)
			}
		}
	}

	if err != nil {
		return err
	}

	_, err = w.W.Write(buf)
	return err
}

// implemented by formats that carry parameters out of band.
type extradataProvider interface {
	Extradata() ([]byte, error)
}

func (w *Writer) marshalAnnexB(au *depacketizer.AccessUnit) ([]byte, error) {
	buf, err := h264.AnnexB(au.Units).Marshal()
	if err != nil {
		return nil, err
	}

	if w.paramsWritten {
		return buf, nil
	}
	w.paramsWritten = true

	var params []byte
	if p, ok := w.Format.(extradataProvider); ok {
		params, err = p.Extradata()
		if err != nil {
			return nil, err
		}
	}

	return append(params, buf...), nil
}

func marshalADTS(f *format.MPEG4Audio, au *depacketizer.AccessUnit) ([]byte, error) {
	if f.Config == nil {
		var buf []byte
		for _, unit := range au.Units {
			buf = append(buf, unit...)
		}
		return buf, nil
	}

	pkts := make(mpeg4audio.ADTSPackets, len(au.Units))
	for i, unit := range au.Units {
		pkts[i] = &mpeg4audio.ADTSPacket{
			Type:         f.Config.Type,
			SampleRate:   f.Config.SampleRate,
			ChannelCount: f.Config.ChannelCount,
			AU:           unit,
		}
	}

	return pkts.Marshal()
}
