// Command rtpframer reads a RTP stream from a rtpdump file or from a UDP socket
// and reassembles it into access units.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/rtp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpframer"
	"github.com/bluenviron/rtpframer/internal/elementarystream"
	"github.com/bluenviron/rtpframer/pkg/depacketizer"
	"github.com/bluenviron/rtpframer/pkg/metrics"
	"github.com/bluenviron/rtpframer/pkg/multicast"
	"github.com/bluenviron/rtpframer/pkg/rtpdump"
)

func main() {
	c, err := parseConf(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := c.log.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = run(ctx, c, logger)
	if err != nil {
		logger.WithError(err).Error("terminated")
		os.Exit(1)
	}
}

func run(ctx context.Context, c *conf, logger *logrus.Logger) error {
	forma, err := c.loadFormat()
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"codec":       forma.Codec(),
		"clockRate":   forma.ClockRate(),
		"payloadType": forma.PayloadType(),
	}).Info("stream format loaded")

	var esw *elementarystream.Writer
	var bw *bufio.Writer
	var writeErr error

	if c.out != "" {
		f, err := os.Create(c.out)
		if err != nil {
			return err
		}
		defer f.Close()

		bw = bufio.NewWriter(f)

		esw = &elementarystream.Writer{
			W:      bw,
			Format: forma,
		}
	}

	r := &rtpframer.Receiver{
		Format:      forma,
		MaxBuffered: c.maxBuffered,
		Log:         logger,
		OnAccessUnit: func(au *depacketizer.AccessUnit) {
			logger.WithFields(logrus.Fields{
				"timestamp": au.Timestamp,
				"key":       au.IsKey,
				"units":     len(au.Units),
				"size":      len(au.Payload),
			}).Debug("access unit")

			if esw != nil && writeErr == nil {
				writeErr = esw.Write(au)
			}
		},
	}
	err = r.Initialize()
	if err != nil {
		return err
	}

	if c.metricsAddr != "" {
		shutdown, err := serveMetrics(c.metricsAddr, r, forma.Codec())
		if err != nil {
			return err
		}
		defer shutdown()
	}

	onPacket := func(pkt *rtp.Packet) {
		if pkt.PayloadType != forma.PayloadType() {
			logger.WithField("payloadType", pkt.PayloadType).Debug("packet with unexpected payload type ignored")
			return
		}
		r.ProcessPacket(pkt)
	}

	if c.file != "" {
		err = readFile(ctx, c.file, c.realtime, onPacket)
	} else {
		err = readUDP(ctx, c, logger, onPacket)
	}
	if err != nil {
		return err
	}

	if writeErr != nil {
		return writeErr
	}

	if bw != nil {
		err = bw.Flush()
		if err != nil {
			return err
		}
	}

	stats := r.Stats()
	logger.WithFields(logrus.Fields{
		"packetsReceived":  stats.PacketsReceived,
		"packetsDiscarded": stats.PacketsDiscarded,
		"packetsLost":      stats.PacketsLost,
		"packetsBuffered":  stats.PacketsBuffered,
		"accessUnits":      stats.AccessUnits,
		"decodeErrors":     stats.DecodeErrors,
		"overflows":        stats.Overflows,
	}).Info("done")

	return nil
}

func serveMetrics(address string, r *rtpframer.Receiver, codec string) (func(), error) {
	collector := metrics.NewCollector()
	collector.Add(r, codec)

	reg := prometheus.NewRegistry()
	err := reg.Register(collector)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	s := &http.Server{
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.Serve(ln) //nolint:errcheck

	return func() {
		s.Close() //nolint:errcheck
	}, nil
}

func readFile(ctx context.Context, path string, realtime bool, onPacket func(*rtp.Packet)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dr := &rtpdump.Reader{R: f}
	err = dr.Initialize()
	if err != nil {
		return err
	}

	start := time.Now()

	for {
		pkt, err := dr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if realtime {
			wait := time.Until(start.Add(pkt.Offset))
			if wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil
				}
			}
		} else if ctx.Err() != nil {
			return nil
		}

		onPacket(pkt.Packet)
	}
}

func readUDP(ctx context.Context, c *conf, logger *logrus.Logger, onPacket func(*rtp.Packet)) error {
	var intf *net.Interface
	if c.intf != "" {
		var err error
		intf, err = net.InterfaceByName(c.intf)
		if err != nil {
			return err
		}
	}

	conn, err := multicast.Listen(c.listen, intf, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if c.readBuf != 0 {
		err = conn.SetReadBuffer(c.readBuf)
		if err != nil {
			return err
		}
	}

	logger.WithField("address", conn.LocalAddr().String()).Info("listening")

	pr := &multicast.PacketReader{
		Conn:     conn,
		OnPacket: onPacket,
		OnDecodeError: func(err error) {
			logger.WithError(err).Debug("invalid RTP packet")
		},
	}
	return pr.Run(ctx)
}
