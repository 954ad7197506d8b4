package format

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpframer/pkg/format/rtpmpeg4audio"
	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

// audioSpecificConfigFromLATM extracts the AudioSpecificConfig from a StreamMuxConfig.
// Only the single program, single layer layout is supported.
func audioSpecificConfigFromLATM(buf []byte) (*mpeg4audio.AudioSpecificConfig, error) {
	var smc mpeg4audio.StreamMuxConfig
	err := smc.Unmarshal(buf)
	if err != nil {
		return nil, fmt.Errorf("invalid AAC config: %w", err)
	}

	if len(smc.Programs) != 1 {
		return nil, liberrors.ErrUnsupportedConfiguration{
			Codec:  "MPEG-4 Audio",
			Reason: fmt.Sprintf("%d programs", len(smc.Programs)),
		}
	}

	if len(smc.Programs[0].Layers) != 1 {
		return nil, liberrors.ErrUnsupportedConfiguration{
			Codec:  "MPEG-4 Audio",
			Reason: fmt.Sprintf("%d layers", len(smc.Programs[0].Layers)),
		}
	}

	return smc.Programs[0].Layers[0].AudioSpecificConfig, nil
}

// MPEG4Audio is the RTP format for a MPEG-4 Audio codec.
// Specification: https://datatracker.ietf.org/doc/html/rfc3640
// Specification: https://datatracker.ietf.org/doc/html/rfc6416#section-7.3
type MPEG4Audio struct {
	// payload type of packets.
	PayloadTyp uint8

	// use LATM format (RFC6416) instead of generic format (RFC3640).
	LATM bool

	// profile level ID.
	ProfileLevelID int

	// AudioSpecificConfig, decoded.
	Config *mpeg4audio.AudioSpecificConfig

	// AudioSpecificConfig, encoded.
	ConfigBytes []byte

	// generic only
	StreamType       int
	Mode             string
	SizeLength       int
	IndexLength      int
	IndexDeltaLength int

	// LATM only
	Bitrate  *int
	CPresent bool

	clockRate int
}

func (f *MPEG4Audio) unmarshal(ctx *unmarshalContext) error {
	f.PayloadTyp = ctx.payloadType
	f.LATM = (ctx.codec != "mpeg4-generic")

	tmp, err := strconv.ParseUint(strings.SplitN(ctx.clock, "/", 2)[0], 10, 31)
	if err == nil {
		f.clockRate = int(tmp)
	}

	if !f.LATM {
		return f.unmarshalGeneric(ctx)
	}
	return f.unmarshalLATM(ctx)
}

func (f *MPEG4Audio) unmarshalGeneric(ctx *unmarshalContext) error {
	for key, val := range ctx.fmtp {
		switch key {
		case "streamtype":
			tmp, err := strconv.ParseUint(val, 10, 31)
			if err != nil {
				return fmt.Errorf("invalid streamtype: %v", val)
			}
			if tmp != 5 { // AudioStream in ISO 14496-1
				return fmt.Errorf("streamtype of AAC must be 5")
			}

			f.StreamType = int(tmp)

		case "mode":
			f.Mode = val

		case "profile-level-id":
			tmp, err := strconv.ParseUint(val, 10, 31)
			if err != nil {
				return fmt.Errorf("invalid profile-level-id: %v", val)
			}

			f.ProfileLevelID = int(tmp)

		case "config":
			err := f.unmarshalConfig(val)
			if err != nil {
				return err
			}

		case "sizelength":
			n, err := strconv.ParseUint(val, 10, 31)
			if err != nil || n > 32 {
				return fmt.Errorf("invalid AAC SizeLength: %v", val)
			}
			f.SizeLength = int(n)

		case "indexlength":
			n, err := strconv.ParseUint(val, 10, 31)
			if err != nil || n > 32 {
				return fmt.Errorf("invalid AAC IndexLength: %v", val)
			}
			f.IndexLength = int(n)

		case "indexdeltalength":
			n, err := strconv.ParseUint(val, 10, 31)
			if err != nil || n > 32 {
				return fmt.Errorf("invalid AAC IndexDeltaLength: %v", val)
			}
			f.IndexDeltaLength = int(n)
		}
	}

	if f.SizeLength == 0 {
		return fmt.Errorf("sizelength is missing")
	}

	return nil
}

func (f *MPEG4Audio) unmarshalConfig(val string) error {
	enc, err := hex.DecodeString(val)
	if err != nil {
		return fmt.Errorf("invalid AAC config: %v", val)
	}

	if f.LATM {
		f.Config, err = audioSpecificConfigFromLATM(enc)
		if err != nil {
			return err
		}

		f.ConfigBytes, err = f.Config.Marshal()
		if err != nil {
			return fmt.Errorf("invalid AAC config: %w", err)
		}

		return nil
	}

	var conf mpeg4audio.AudioSpecificConfig
	err = conf.Unmarshal(enc)
	if err != nil {
		return fmt.Errorf("invalid AAC config: %w", err)
	}

	f.Config = &conf
	f.ConfigBytes = enc

	return nil
}

func (f *MPEG4Audio) unmarshalLATM(ctx *unmarshalContext) error {
	// default value set by specification
	f.ProfileLevelID = 30

	var cpresent *bool

	for key, val := range ctx.fmtp {
		switch key {
		case "profile-level-id":
			tmp, err := strconv.ParseUint(val, 10, 31)
			if err != nil {
				return fmt.Errorf("invalid profile-level-id: %v", val)
			}

			f.ProfileLevelID = int(tmp)

		case "bitrate":
			tmp, err := strconv.ParseUint(val, 10, 31)
			if err != nil {
				return fmt.Errorf("invalid bitrate: %v", val)
			}

			v := int(tmp)
			f.Bitrate = &v

		case "cpresent":
			v := (val == "1")
			cpresent = &v

		case "config":
			err := f.unmarshalConfig(val)
			if err != nil {
				return err
			}
		}
	}

	switch {
	case cpresent != nil:
		f.CPresent = *cpresent
	default:
		// an out-of-band config implies that it is not repeated in-band
		f.CPresent = (f.Config == nil)
	}

	if f.CPresent {
		return liberrors.ErrUnsupportedConfiguration{
			Codec:  "MPEG-4 Audio",
			Reason: "in-band StreamMuxConfig (cpresent=1)",
		}
	}

	if f.Config == nil {
		return fmt.Errorf("config is missing")
	}

	return nil
}

// Codec implements Format.
func (f *MPEG4Audio) Codec() string {
	return "MPEG-4 Audio"
}

// ClockRate implements Format.
func (f *MPEG4Audio) ClockRate() int {
	if f.Config != nil {
		return f.Config.SampleRate
	}
	return f.clockRate
}

// PayloadType implements Format.
func (f *MPEG4Audio) PayloadType() uint8 {
	return f.PayloadTyp
}

// ProbeStart implements Format.
func (f *MPEG4Audio) ProbeStart(*rtp.Packet) StartProbe {
	return StartConfirmed
}

// ImpliedMarker implements Format.
func (f *MPEG4Audio) ImpliedMarker() bool {
	return false
}

// Extradata returns the encoded AudioSpecificConfig.
func (f *MPEG4Audio) Extradata() []byte {
	return f.ConfigBytes
}

// CreateDecoder creates a decoder able to decode the content of the format.
func (f *MPEG4Audio) CreateDecoder() (*rtpmpeg4audio.Decoder, error) {
	d := &rtpmpeg4audio.Decoder{
		LATM:             f.LATM,
		SizeLength:       f.SizeLength,
		IndexLength:      f.IndexLength,
		IndexDeltaLength: f.IndexDeltaLength,
	}

	err := d.Init()
	if err != nil {
		return nil, err
	}

	return d, nil
}
