package metric

import "github.com/prometheus/client_golang/prometheus"

// StatsSource reports live server state at scrape time.
type StatsSource interface {
	StateName() string
	InFlight() int64
}

// Collector exports the in-flight connection count and the lifecycle
// state of a running server. Values are read on each scrape instead of
// being pushed, so they always match the server's own counters.
type Collector struct {
	src      StatsSource
	states   []string
	inflight *prometheus.Desc
	state    *prometheus.Desc
}

// NewCollector creates a collector over src. states lists every state
// name so each appears as a 0/1 series.
func NewCollector(src StatsSource, states ...string) *Collector {
	return &Collector{
		src:    src,
		states: states,
		inflight: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "conn", "inflight"),
			"Connections accepted and not yet torn down.",
			nil, nil,
		),
		state: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "server", "state"),
			"Server lifecycle state (1 for the current state).",
			[]string{"state"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inflight
	ch <- c.state
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.inflight, prometheus.GaugeValue, float64(c.src.InFlight()))

	current := c.src.StateName()
	for _, s := range c.states {
		v := 0.0
		if s == current {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, v, s)
	}
}
