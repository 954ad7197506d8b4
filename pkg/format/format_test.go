package format

import (
	"testing"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	psdp "github.com/pion/sdp/v3"
	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtpframer/pkg/liberrors"
)

func intPtr(v int) *int {
	return &v
}

var h264SPS = []byte{
	0x67, 0x64, 0x00, 0x0c, 0xac, 0x3b, 0x50, 0xb0,
	0x4b, 0x42, 0x00, 0x00, 0x03, 0x00, 0x02, 0x00,
	0x00, 0x03, 0x00, 0x3d, 0x08,
}

var h264PPS = []byte{0x68, 0xee, 0x3c, 0x80}

var h265VPS = []byte{
	0x40, 0x01, 0x0c, 0x01, 0xff, 0xff, 0x01, 0x60,
	0x00, 0x00, 0x03, 0x00, 0x90, 0x00, 0x00, 0x03,
	0x00, 0x00, 0x03, 0x00, 0x78, 0x99, 0x98, 0x09,
}

var h265SPS = []byte{
	0x42, 0x01, 0x01, 0x01, 0x60, 0x00, 0x00, 0x03,
	0x00, 0x90, 0x00, 0x00, 0x03, 0x00, 0x00, 0x03,
	0x00, 0x78, 0xa0, 0x03, 0xc0, 0x80, 0x10, 0xe5,
	0x96, 0x66, 0x69, 0x24, 0xca, 0xe0, 0x10, 0x00,
	0x00, 0x03, 0x00, 0x10, 0x00, 0x00, 0x03, 0x01,
	0xe0, 0x80,
}

var h265PPS = []byte{0x44, 0x01, 0xc1, 0x72, 0xb4, 0x62, 0x40}

var casesFormat = []struct {
	name        string
	mediaType   string
	payloadType uint8
	rtpMap      string
	fmtp        string
	dec         Format
}{
	{
		"audio g711 pcma static",
		"audio",
		8,
		"",
		"",
		&G711{
			PayloadTyp:   8,
			MULaw:        false,
			SampleRate:   8000,
			ChannelCount: 1,
		},
	},
	{
		"audio g711 pcmu static",
		"audio",
		0,
		"",
		"",
		&G711{
			PayloadTyp:   0,
			MULaw:        true,
			SampleRate:   8000,
			ChannelCount: 1,
		},
	},
	{
		"audio g711 pcma dynamic",
		"audio",
		96,
		"PCMA/16000/2",
		"",
		&G711{
			PayloadTyp:   96,
			MULaw:        false,
			SampleRate:   16000,
			ChannelCount: 2,
		},
	},
	{
		"audio g722",
		"audio",
		9,
		"G722/8000",
		"",
		&G722{PayloadTyp: 9},
	},
	{
		"audio lpcm 16 static",
		"audio",
		10,
		"",
		"",
		&LPCM{
			PayloadTyp:   10,
			BitDepth:     16,
			SampleRate:   44100,
			ChannelCount: 2,
		},
	},
	{
		"audio lpcm 24",
		"audio",
		98,
		"L24/48000/2",
		"",
		&LPCM{
			PayloadTyp:   98,
			BitDepth:     24,
			SampleRate:   48000,
			ChannelCount: 2,
		},
	},
	{
		"audio mpeg-1 audio",
		"audio",
		14,
		"",
		"",
		&MPEG1Audio{PayloadTyp: 14},
	},
	{
		"audio ac-3",
		"audio",
		97,
		"AC3/48000/2",
		"",
		&AC3{
			PayloadTyp:   97,
			SampleRate:   48000,
			ChannelCount: 2,
		},
	},
	{
		"audio ac-3 without channels",
		"audio",
		97,
		"AC3/48000",
		"",
		&AC3{
			PayloadTyp:   97,
			SampleRate:   48000,
			ChannelCount: 6,
		},
	},
	{
		"audio opus",
		"audio",
		96,
		"opus/48000/2",
		"sprop-stereo=1",
		&Opus{
			PayloadTyp:   96,
			ChannelCount: 2,
			IsStereo:     true,
		},
	},
	{
		"video mpeg-1 video",
		"video",
		32,
		"",
		"",
		&MPEG1Video{PayloadTyp: 32},
	},
	{
		"video mpeg-ts",
		"video",
		33,
		"",
		"",
		&MPEGTS{PayloadTyp: 33},
	},
	{
		"video mpeg-4 video",
		"video",
		96,
		"MP4V-ES/90000",
		"profile-level-id=2",
		&MPEG4Video{
			PayloadTyp:     96,
			ProfileLevelID: 2,
		},
	},
	{
		"video h264",
		"video",
		96,
		"H264/90000",
		"packetization-mode=1; " +
			"sprop-parameter-sets=Z2QADKw7ULBLQgAAAwACAAADAD0I,aO48gA==; profile-level-id=64000C",
		&H264{
			PayloadTyp:        96,
			Profile:           100,
			Level:             12,
			PacketizationMode: 1,
			SPS:               h264SPS,
			PPS:               h264PPS,
			Width:             352,
			Height:            288,
		},
	},
	{
		"video h264 without profile-level-id",
		"video",
		96,
		"H264/90000",
		"sprop-parameter-sets=Z2QADKw7ULBLQgAAAwACAAADAD0I,aO48gA==",
		&H264{
			PayloadTyp: 96,
			Profile:    100,
			Level:      12,
			SPS:        h264SPS,
			PPS:        h264PPS,
			Width:      352,
			Height:     288,
		},
	},
	{
		"video h264 annex-b parameters",
		"video",
		96,
		"H264/90000",
		"sprop-parameter-sets=AAAAAWdkAAysO1CwS0IAAAMAAgAAAwA9CA==,AAAAAWjuPIA=",
		&H264{
			PayloadTyp: 96,
			Profile:    100,
			Level:      12,
			SPS:        h264SPS,
			PPS:        h264PPS,
			Width:      352,
			Height:     288,
		},
	},
	{
		"video h264 static payload type 35",
		"video",
		35,
		"H264/90000",
		"",
		&H264{PayloadTyp: 35},
	},
	{
		"video h265",
		"video",
		96,
		"H265/90000",
		"sprop-vps=QAEMAf//AWAAAAMAkAAAAwAAAwB4mZgJ; " +
			"sprop-sps=QgEBAWAAAAMAkAAAAwAAAwB4oAPAgBDllmZpJMrgEAAAAwAQAAADAeCA; sprop-pps=RAHBcrRiQA==",
		&H265{
			PayloadTyp: 96,
			Profile:    1,
			VPS:        h265VPS,
			SPS:        h265SPS,
			PPS:        h265PPS,
			Width:      1920,
			Height:     1080,
		},
	},
	{
		"video h265 with donl",
		"video",
		96,
		"H265/90000",
		"profile-id=2; sprop-max-don-diff=2",
		&H265{
			PayloadTyp:     96,
			Profile:        2,
			UsingDONLField: true,
			MaxDONDiff:     2,
		},
	},
	{
		"video h265 depack-buf-nalus",
		"video",
		96,
		"HEVC/90000",
		"sprop-depack-buf-nalus=1",
		&H265{
			PayloadTyp:     96,
			UsingDONLField: true,
		},
	},
	{
		"video vp8",
		"video",
		96,
		"VP8/90000",
		"max-fr=123;max-fs=456",
		&VP8{
			PayloadTyp: 96,
			MaxFR:      intPtr(123),
			MaxFS:      intPtr(456),
		},
	},
	{
		"video vp9",
		"video",
		96,
		"VP9/90000",
		"max-fr=123;max-fs=456;profile-id=789",
		&VP9{
			PayloadTyp: 96,
			MaxFR:      intPtr(123),
			MaxFS:      intPtr(456),
			ProfileID:  intPtr(789),
		},
	},
	{
		"video av1",
		"video",
		96,
		"AV1/90000",
		"level-idx=8;profile=1;tier=1",
		&AV1{
			PayloadTyp: 96,
			LevelIdx:   intPtr(8),
			Profile:    intPtr(1),
			Tier:       intPtr(1),
		},
	},
	{
		"video generic static",
		"video",
		26,
		"",
		"",
		&Generic{
			PayloadTyp: 26,
			MediaType:  "video",
			ClockRat:   90000,
		},
	},
	{
		"application generic dynamic",
		"application",
		98,
		"custom/90000",
		"key=val",
		&Generic{
			PayloadTyp: 98,
			MediaType:  "application",
			RTPMap:     "custom/90000",
			FMTP:       map[string]string{"key": "val"},
			ClockRat:   90000,
		},
	},
}

func TestNew(t *testing.T) {
	for _, ca := range casesFormat {
		t.Run(ca.name, func(t *testing.T) {
			dec, err := New(ca.mediaType, ca.payloadType, ca.rtpMap, ca.fmtp)
			require.NoError(t, err)
			require.Equal(t, ca.dec, dec)
		})
	}
}

func TestUnmarshal(t *testing.T) {
	md := &psdp.MediaDescription{
		MediaName: psdp.MediaName{
			Media:   "video",
			Formats: []string{"96", "97"},
		},
		Attributes: []psdp.Attribute{
			{
				Key:   "rtpmap",
				Value: "97 VP8/90000",
			},
			{
				Key:   "rtpmap",
				Value: "96 H264/90000",
			},
			{
				Key: "fmtp",
				Value: "96 packetization-mode=1; " +
					"sprop-parameter-sets=Z2QADKw7ULBLQgAAAwACAAADAD0I,aO48gA==; profile-level-id=64000C",
			},
		},
	}

	dec, err := Unmarshal(md, "96")
	require.NoError(t, err)
	require.Equal(t, &H264{
		PayloadTyp:        96,
		Profile:           100,
		Level:             12,
		PacketizationMode: 1,
		SPS:               h264SPS,
		PPS:               h264PPS,
		Width:             352,
		Height:            288,
	}, dec)

	dec, err = Unmarshal(md, "97")
	require.NoError(t, err)
	require.Equal(t, &VP8{PayloadTyp: 97}, dec)

	_, err = Unmarshal(md, "abc")
	require.EqualError(t, err, "invalid payload type: abc")
}

func TestNewMPEG4AudioGeneric(t *testing.T) {
	dec, err := New("audio", 96, "mpeg4-generic/48000/2",
		"profile-level-id=1; mode=AAC-hbr; sizelength=13; indexlength=3; indexdeltalength=3; config=1190")
	require.NoError(t, err)

	f, ok := dec.(*MPEG4Audio)
	require.True(t, ok)
	require.False(t, f.LATM)
	require.Equal(t, 1, f.ProfileLevelID)
	require.Equal(t, "AAC-hbr", f.Mode)
	require.Equal(t, 13, f.SizeLength)
	require.Equal(t, 3, f.IndexLength)
	require.Equal(t, 3, f.IndexDeltaLength)
	require.Equal(t, []byte{0x11, 0x90}, f.ConfigBytes)
	require.Equal(t, mpeg4audio.ObjectTypeAACLC, f.Config.Type)
	require.Equal(t, 48000, f.Config.SampleRate)
	require.Equal(t, 2, f.Config.ChannelCount)
	require.Equal(t, 48000, f.ClockRate())
	require.Equal(t, []byte{0x11, 0x90}, f.Extradata())
}

func TestNewMPEG4AudioLATM(t *testing.T) {
	dec, err := New("audio", 96, "MP4A-LATM/44100/2",
		"profile-level-id=15; object=2; cpresent=0; config=40002420")
	require.NoError(t, err)

	f, ok := dec.(*MPEG4Audio)
	require.True(t, ok)
	require.True(t, f.LATM)
	require.False(t, f.CPresent)
	require.Equal(t, 15, f.ProfileLevelID)
	require.Equal(t, []byte{0x12, 0x10}, f.ConfigBytes)
	require.Equal(t, mpeg4audio.ObjectTypeAACLC, f.Config.Type)
	require.Equal(t, 44100, f.Config.SampleRate)
	require.Equal(t, 2, f.Config.ChannelCount)
	require.Equal(t, 44100, f.ClockRate())
}

func TestNewMPEG4AudioLATMFullStreamMuxConfig(t *testing.T) {
	dec, err := New("audio", 96, "MP4A-LATM/90000", "cpresent=0;config=400026103fc0")
	require.NoError(t, err)

	f := dec.(*MPEG4Audio)
	require.Equal(t, []byte{0x13, 0x08}, f.Extradata())
	require.Equal(t, 24000, f.Config.SampleRate)
	require.Equal(t, 1, f.Config.ChannelCount)
}

func TestNewMPEG4AudioLATMImplicitCPresent(t *testing.T) {
	dec, err := New("audio", 96, "MP4A-LATM/44100/2", "config=40002420")
	require.NoError(t, err)
	require.False(t, dec.(*MPEG4Audio).CPresent)
	require.Equal(t, 30, dec.(*MPEG4Audio).ProfileLevelID)
}

func TestNewErrors(t *testing.T) {
	for _, ca := range []struct {
		name   string
		rtpMap string
		fmtp   string
		err    string
	}{
		{
			"h264 invalid sprop",
			"H264/90000",
			"sprop-parameter-sets=!!!",
			"invalid sprop-parameter-sets: !!!",
		},
		{
			"h264 invalid packetization-mode",
			"H264/90000",
			"packetization-mode=aa",
			"invalid packetization-mode: aa",
		},
		{
			"h264 invalid profile-level-id",
			"H264/90000",
			"profile-level-id=zz",
			"invalid profile-level-id: zz",
		},
		{
			"h265 invalid vps",
			"H265/90000",
			"sprop-vps=!!!",
			"invalid sprop-vps: !!!",
		},
		{
			"mpeg4-generic missing sizelength",
			"mpeg4-generic/48000/2",
			"config=1190",
			"sizelength is missing",
		},
		{
			"mpeg4-generic invalid streamtype",
			"mpeg4-generic/48000/2",
			"streamtype=4; sizelength=13; config=1190",
			"streamtype of AAC must be 5",
		},
		{
			"mpeg4-generic invalid config",
			"mpeg4-generic/48000/2",
			"sizelength=13; config=zz",
			"invalid AAC config: zz",
		},
		{
			"latm missing config",
			"MP4A-LATM/44100/2",
			"cpresent=0",
			"config is missing",
		},
		{
			"latm in-band config",
			"MP4A-LATM/44100/2",
			"cpresent=1",
			"unsupported MPEG-4 Audio configuration: in-band StreamMuxConfig (cpresent=1)",
		},
		{
			"latm audioMuxVersion 1",
			"MP4A-LATM/44100/2",
			"cpresent=0; config=C0002420",
			"invalid AAC config: audioMuxVersion = 1 is not supported",
		},
		{
			"latm multiple programs",
			"MP4A-LATM/44100/2",
			"cpresent=0; config=401024203fc47f80",
			"unsupported MPEG-4 Audio configuration: 2 programs",
		},
		{
			"latm multiple layers",
			"MP4A-LATM/44100/2",
			"cpresent=0; config=400224203fe3fc",
			"unsupported MPEG-4 Audio configuration: 2 layers",
		},
		{
			"mpeg4-generic sizelength too big",
			"mpeg4-generic/48000/2",
			"sizelength=33; config=1190",
			"invalid AAC SizeLength: 33",
		},
		{
			"mpeg4-generic indexlength too big",
			"mpeg4-generic/48000/2",
			"sizelength=13; indexlength=64; config=1190",
			"invalid AAC IndexLength: 64",
		},
		{
			"mpeg4-generic indexdeltalength too big",
			"mpeg4-generic/48000/2",
			"sizelength=13; indexdeltalength=40; config=1190",
			"invalid AAC IndexDeltaLength: 40",
		},
		{
			"mpeg-4 video invalid config",
			"MP4V-ES/90000",
			"config=zz",
			"invalid config: zz",
		},
		{
			"opus invalid sample rate",
			"opus/44100/2",
			"",
			"invalid sample rate: 44100",
		},
		{
			"ac3 invalid channels",
			"AC3/48000/a",
			"",
			"invalid channel count: 'a'",
		},
		{
			"generic without rtpmap",
			"",
			"",
			"attribute 'rtpmap' not found",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			_, err := New("audio", 96, ca.rtpMap, ca.fmtp)
			require.EqualError(t, err, ca.err)
		})
	}
}

func TestNewLATMUnsupportedIsTyped(t *testing.T) {
	_, err := New("audio", 96, "MP4A-LATM/44100/2", "cpresent=1")
	require.ErrorAs(t, err, &liberrors.ErrUnsupportedConfiguration{})
}

func TestParseFMTP(t *testing.T) {
	for _, ca := range []struct {
		name string
		enc  string
		dec  map[string]string
	}{
		{
			"empty",
			"",
			nil,
		},
		{
			"standard",
			"packetization-mode=1; profile-level-id=64000C",
			map[string]string{
				"packetization-mode": "1",
				"profile-level-id":   "64000C",
			},
		},
		{
			"uppercase keys and base64 padding",
			"SizeLength=13;sprop-parameter-sets=Z2QADKw7ULBLQgAAAwACAAADAD0I,aO48gA==;",
			map[string]string{
				"sizelength":           "13",
				"sprop-parameter-sets": "Z2QADKw7ULBLQgAAAwACAAADAD0I,aO48gA==",
			},
		},
		{
			"entries without value",
			"a=1; b; ;c=2",
			map[string]string{
				"a": "1",
				"c": "2",
			},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			require.Equal(t, ca.dec, ParseFMTP(ca.enc))
		})
	}
}

func TestStaticPayloadTypes(t *testing.T) {
	require.Len(t, StaticPayloadTypes, 24)
	require.Equal(t, StaticPayloadType{"PCMU", "audio", 8000, 1}, StaticPayloadTypes[0])
	require.Equal(t, StaticPayloadType{"L16", "audio", 44100, 2}, StaticPayloadTypes[10])
	require.Equal(t, StaticPayloadType{"MP2T", "video", 90000, 0}, StaticPayloadTypes[33])

	_, ok := StaticPayloadTypes[96]
	require.False(t, ok)
}
