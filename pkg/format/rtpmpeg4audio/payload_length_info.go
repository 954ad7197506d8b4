package rtpmpeg4audio

import (
	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

// PayloadLengthInfo is a run of 0xFF bytes followed by a terminating byte.
// The length is the sum of all bytes.
func payloadLengthInfoDecode(buf []byte) (int, int, error) {
	lb := len(buf)
	l := 0
	n := 0

	for {
		if (lb - n) == 0 {
			return 0, 0, liberrors.ErrMalformedPayload{Reason: "invalid PayloadLengthInfo (not enough bytes)"}
		}

		b := buf[n]
		n++
		l += int(b)

		if b != 255 {
			break
		}
	}

	return l, n, nil
}
