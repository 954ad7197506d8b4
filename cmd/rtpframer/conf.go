package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	psdp "github.com/pion/sdp/v3"

	"github.com/bluenviron/rtpframer/internal/logging"
	"github.com/bluenviron/rtpframer/pkg/format"
)

type conf struct {
	// input
	file      string
	listen    string
	intf      string
	readBuf   int
	realtime  bool
	sdpFile   string
	mediaType string
	payload   int
	rtpMap    string
	fmtp      string

	// processing
	maxBuffered int

	// output
	out         string
	metricsAddr string
	log         logging.Config
}

func parseConf(args []string) (*conf, error) {
	c := &conf{}

	fs := flag.NewFlagSet("rtpframer", flag.ContinueOnError)
	fs.StringVar(&c.file, "file", "", "rtpdump file to read packets from")
	fs.StringVar(&c.listen, "listen", "", "UDP address to read packets from, unicast or multicast")
	fs.StringVar(&c.intf, "interface", "", "interface used to join the multicast group (default all)")
	fs.IntVar(&c.readBuf, "read-buffer", 0, "size of the UDP read buffer")
	fs.BoolVar(&c.realtime, "realtime", false, "replay the rtpdump file with the original timing")
	fs.StringVar(&c.sdpFile, "sdp", "", "SDP file describing the stream")
	fs.StringVar(&c.mediaType, "media", "", "media type, used to pick a media from the SDP or with -rtpmap")
	fs.IntVar(&c.payload, "pt", -1, "payload type, used to pick a format from the SDP or with -rtpmap")
	fs.StringVar(&c.rtpMap, "rtpmap", "", "value of the rtpmap attribute, for instance H264/90000")
	fs.StringVar(&c.fmtp, "fmtp", "", "value of the fmtp attribute")
	fs.IntVar(&c.maxBuffered, "max-buffered", 1024, "maximum number of packets kept for reordering, 0 means unlimited, otherwise at least 200")
	fs.StringVar(&c.out, "out", "", "file where access units are written as an elementary stream")
	fs.StringVar(&c.metricsAddr, "metrics", "", "address of the Prometheus metrics listener")
	fs.StringVar(&c.log.Level, "log-level", "info", "log level")
	fs.StringVar(&c.log.Format, "log-format", "text", "log format, text or json")
	fs.StringVar(&c.log.Path, "log-file", "", "log file, rotated daily (default stderr)")
	fs.BoolVar(&c.log.ReportCaller, "log-caller", false, "add the calling function to log entries")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}

	if (c.file == "") == (c.listen == "") {
		return nil, fmt.Errorf("exactly one between -file and -listen must be provided")
	}

	if (c.sdpFile == "") == (c.rtpMap == "") {
		return nil, fmt.Errorf("exactly one between -sdp and -rtpmap must be provided")
	}

	if c.payload > 127 {
		return nil, fmt.Errorf("invalid payload type: %d", c.payload)
	}

	if c.rtpMap != "" && c.payload < 0 {
		return nil, fmt.Errorf("-pt is required when -rtpmap is provided")
	}

	return c, nil
}

func (c *conf) loadFormat() (format.Format, error) {
	if c.rtpMap != "" {
		mediaType := c.mediaType
		if mediaType == "" {
			mediaType = "video"
		}
		return format.New(mediaType, uint8(c.payload), c.rtpMap, c.fmtp)
	}

	byts, err := os.ReadFile(c.sdpFile)
	if err != nil {
		return nil, err
	}

	var sd psdp.SessionDescription
	err = sd.Unmarshal(byts)
	if err != nil {
		return nil, fmt.Errorf("invalid SDP: %w", err)
	}

	return findFormat(&sd, c.mediaType, c.payload)
}

func findFormat(sd *psdp.SessionDescription, mediaType string, payloadType int) (format.Format, error) {
	for _, md := range sd.MediaDescriptions {
		if mediaType != "" && md.MediaName.Media != mediaType {
			continue
		}

		for _, pt := range md.MediaName.Formats {
			if payloadType >= 0 && pt != strconv.FormatInt(int64(payloadType), 10) {
				continue
			}

			return format.Unmarshal(md, pt)
		}
	}

	return nil, fmt.Errorf("no matching format found in SDP")
}
