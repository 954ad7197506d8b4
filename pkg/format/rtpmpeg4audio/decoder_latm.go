package rtpmpeg4audio

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

func (d *Decoder) decodeLATM(pkts []*rtp.Packet) ([][]byte, error) {
	var aus [][]byte
	var frag fragmentedAU

	for _, pkt := range pkts {
		buf := pkt.Payload

		if frag.pending() {
			var au []byte
			au, buf = frag.write(buf)
			if au == nil {
				continue
			}
			aus = append(aus, au)
		}

		first := true

		for len(buf) > 0 {
			pl, n, err := payloadLengthInfoDecode(buf)
			if err != nil {
				if first {
					return nil, err
				}
				// there could be other data, due to otherDataPresent. Ignore it.
				break
			}

			rest := buf[n:]

			if pl > len(rest) {
				if !first {
					break
				}

				if pl > mpeg4audio.MaxAccessUnitSize {
					return nil, liberrors.ErrMalformedPayload{
						Reason: fmt.Sprintf("access unit size (%d) is too big, maximum is %d",
							pl, mpeg4audio.MaxAccessUnitSize),
					}
				}

				frag.start(rest, pl)
				break
			}

			aus = append(aus, rest[:pl])
			buf = rest[pl:]
			first = false
		}
	}

	if frag.pending() {
		return nil, liberrors.ErrIncompleteFragment{}
	}

	return aus, nil
}
