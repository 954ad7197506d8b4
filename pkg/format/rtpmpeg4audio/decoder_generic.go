package rtpmpeg4audio

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/bits"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

func (d *Decoder) decodeGeneric(pkts []*rtp.Packet) ([][]byte, error) {
	var aus [][]byte
	var frag fragmentedAU

	for _, pkt := range pkts {
		if len(pkt.Payload) < 2 {
			return nil, liberrors.ErrMalformedPayload{Reason: "payload is too short"}
		}

		// AU-headers-length (16 bits)
		headersLen := int(uint16(pkt.Payload[0])<<8 | uint16(pkt.Payload[1]))
		payload := pkt.Payload[2:]

		dataLens, err := d.readAUHeaders(payload, headersLen)
		if err != nil {
			return nil, err
		}

		pos := (headersLen + 7) / 8
		if len(payload) < pos {
			return nil, liberrors.ErrMalformedPayload{Reason: "AU-headers section is too short"}
		}
		payload = payload[pos:]

		if frag.pending() {
			if len(dataLens) != 1 {
				return nil, liberrors.ErrMalformedPayload{Reason: "a fragmented packet can only contain one AU"}
			}

			au, _ := frag.write(payload)
			if au != nil {
				aus = append(aus, au)
			}
			continue
		}

		for _, dataLen := range dataLens {
			if dataLen > len(payload) {
				if len(dataLens) != 1 {
					return nil, liberrors.ErrMalformedAggregation{Declared: dataLen, Remaining: len(payload)}
				}

				if dataLen > mpeg4audio.MaxAccessUnitSize {
					return nil, liberrors.ErrMalformedPayload{
						Reason: fmt.Sprintf("access unit size (%d) is too big, maximum is %d",
							dataLen, mpeg4audio.MaxAccessUnitSize),
					}
				}

				frag.start(payload, dataLen)
				break
			}

			aus = append(aus, payload[:dataLen])
			payload = payload[dataLen:]
		}
	}

	if frag.pending() {
		return nil, liberrors.ErrIncompleteFragment{}
	}

	return removeADTS(aus), nil
}

func (d *Decoder) readAUHeaders(buf []byte, headersLen int) ([]int, error) {
	firstSize := d.SizeLength + d.IndexLength
	otherSize := d.SizeLength + d.IndexDeltaLength

	if headersLen < firstSize || (headersLen-firstSize)%otherSize != 0 {
		return nil, liberrors.ErrInconsistentAUHeader{Length: headersLen, HeaderSize: otherSize}
	}

	count := 1 + (headersLen-firstSize)/otherSize
	dataLens := make([]int, count)
	pos := 0

	for i := range dataLens {
		dataLen, err := bits.ReadBits(buf, &pos, d.SizeLength)
		if err != nil {
			return nil, liberrors.ErrMalformedPayload{Reason: "AU-headers section is too short"}
		}

		// AU-index and AU-index-delta are only meaningful in interleaved mode.
		n := d.IndexDeltaLength
		if i == 0 {
			n = d.IndexLength
		}
		if n > 0 {
			_, err = bits.ReadBits(buf, &pos, n)
			if err != nil {
				return nil, liberrors.ErrMalformedPayload{Reason: "AU-headers section is too short"}
			}
		}

		dataLens[i] = int(dataLen)
	}

	return dataLens, nil
}

// some cameras wrap AUs into ADTS.
func removeADTS(aus [][]byte) [][]byte {
	if len(aus) != 1 || len(aus[0]) < 2 ||
		aus[0][0] != 0xFF || (aus[0][1]&0xF0) != 0xF0 {
		return aus
	}

	var pkts mpeg4audio.ADTSPackets
	err := pkts.Unmarshal(aus[0])
	if err != nil || len(pkts) != 1 {
		return aus
	}

	return [][]byte{pkts[0].AU}
}
