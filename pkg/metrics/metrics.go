// Package metrics exports receiver statistics to Prometheus.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bluenviron/rtpframer"
)

const namespace = "rtpframer"

// StatsProvider is implemented by rtpframer.Receiver.
type StatsProvider interface {
	ID() string
	Stats() *rtpframer.Stats
}

type metric struct {
	desc  *prometheus.Desc
	typ   prometheus.ValueType
	value func(*rtpframer.Stats) float64
}

func newMetric(name string, help string, typ prometheus.ValueType, value func(*rtpframer.Stats) float64) metric {
	return metric{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", name),
			help,
			[]string{"stream", "codec"},
			nil),
		typ:   typ,
		value: value,
	}
}

// Collector is a prometheus.Collector that reads the statistics of a set of receivers.
type Collector struct {
	mutex   sync.RWMutex
	streams map[StatsProvider]string

	metrics []metric
}

// NewCollector allocates a Collector.
func NewCollector() *Collector {
	return &Collector{
		streams: make(map[StatsProvider]string),
		metrics: []metric{
			newMetric("packets_received_total", "Number of received RTP packets.",
				prometheus.CounterValue, func(s *rtpframer.Stats) float64 { return float64(s.PacketsReceived) }),
			newMetric("packets_discarded_total", "Number of stale, duplicate or partial RTP packets.",
				prometheus.CounterValue, func(s *rtpframer.Stats) float64 { return float64(s.PacketsDiscarded) }),
			newMetric("packets_lost_total", "Number of RTP packets never received.",
				prometheus.CounterValue, func(s *rtpframer.Stats) float64 { return float64(s.PacketsLost) }),
			newMetric("packets_buffered", "Number of RTP packets waiting in the reorder queue.",
				prometheus.GaugeValue, func(s *rtpframer.Stats) float64 { return float64(s.PacketsBuffered) }),
			newMetric("access_units_total", "Number of produced access units.",
				prometheus.CounterValue, func(s *rtpframer.Stats) float64 { return float64(s.AccessUnits) }),
			newMetric("decode_errors_total", "Number of packet groups that could not be depacketized.",
				prometheus.CounterValue, func(s *rtpframer.Stats) float64 { return float64(s.DecodeErrors) }),
			newMetric("overflows_total", "Number of times the reorder queue was full.",
				prometheus.CounterValue, func(s *rtpframer.Stats) float64 { return float64(s.Overflows) }),
		},
	}
}

// Add adds a stream.
func (c *Collector) Add(p StatsProvider, codec string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.streams[p] = codec
}

// Remove removes a stream.
func (c *Collector) Remove(p StatsProvider) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.streams, p)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, co := range c.metrics {
		ch <- co.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for p, codec := range c.streams {
		stats := p.Stats()
		id := p.ID()

		for _, co := range c.metrics {
			ch <- prometheus.MustNewConstMetric(co.desc, co.typ, co.value(stats), id, codec)
		}
	}
}
