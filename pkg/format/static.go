package format

// StaticPayloadType describes a payload type with a static assignment.
type StaticPayloadType struct {
	EncodingName string
	MediaType    string
	ClockRate    int

	// zero when unspecified.
	Channels int
}

// StaticPayloadTypes contains the payload types with a static assignment.
// Specification: https://datatracker.ietf.org/doc/html/rfc3551#section-6
var StaticPayloadTypes = map[uint8]StaticPayloadType{
	// audio
	0:  {"PCMU", "audio", 8000, 1},
	3:  {"GSM", "audio", 8000, 1},
	4:  {"G723", "audio", 8000, 1},
	5:  {"DVI4", "audio", 8000, 1},
	6:  {"DVI4", "audio", 16000, 1},
	7:  {"LPC", "audio", 8000, 1},
	8:  {"PCMA", "audio", 8000, 1},
	9:  {"G722", "audio", 8000, 1},
	10: {"L16", "audio", 44100, 2},
	11: {"L16", "audio", 44100, 1},
	12: {"QCELP", "audio", 8000, 1},
	13: {"CN", "audio", 8000, 1},
	14: {"MPA", "audio", 90000, 0},
	15: {"G728", "audio", 8000, 1},
	16: {"DVI4", "audio", 11025, 1},
	17: {"DVI4", "audio", 22050, 1},
	18: {"G729", "audio", 8000, 1},

	// video
	25: {"CelB", "video", 90000, 0},
	26: {"JPEG", "video", 90000, 0},
	28: {"nv", "video", 90000, 0},
	31: {"H261", "video", 90000, 0},
	32: {"MPV", "video", 90000, 0},
	33: {"MP2T", "video", 90000, 0},
	34: {"H263", "video", 90000, 0},
}
