package format

import (
	"fmt"
	"strconv"
	"strings"
)

// decodeClock decodes the "<clock rate>[/<channels>]" part of a rtpmap attribute.
func decodeClock(clock string, defaultChannelCount int) (int, int, error) {
	tmp := strings.SplitN(clock, "/", 2)

	tmp1, err := strconv.ParseUint(tmp[0], 10, 31)
	if err != nil || tmp1 == 0 {
		return 0, 0, fmt.Errorf("invalid sample rate: '%s'", tmp[0])
	}
	sampleRate := int(tmp1)

	if len(tmp) < 2 {
		return sampleRate, defaultChannelCount, nil
	}

	tmp1, err = strconv.ParseUint(tmp[1], 10, 31)
	if err != nil || tmp1 == 0 {
		return 0, 0, fmt.Errorf("invalid channel count: '%s'", tmp[1])
	}

	return sampleRate, int(tmp1), nil
}
