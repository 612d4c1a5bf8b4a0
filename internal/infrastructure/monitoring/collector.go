package monitoring

import (
	"strconv"

	"github.com/kanalhq/kanal/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	capacityDesc = prometheus.NewDesc(
		"kanal_channel_capacity_bytes",
		"Current buffer capacity per channel",
		[]string{"channel"}, nil,
	)
	usedDesc = prometheus.NewDesc(
		"kanal_channel_used_bytes",
		"Unread bytes buffered per channel",
		[]string{"channel"}, nil,
	)
	freeDesc = prometheus.NewDesc(
		"kanal_channel_free_bytes",
		"Writable bytes per channel",
		[]string{"channel"}, nil,
	)
	readersDesc = prometheus.NewDesc(
		"kanal_channel_open_readers",
		"Open reading handles per channel",
		[]string{"channel"}, nil,
	)
	writersDesc = prometheus.NewDesc(
		"kanal_channel_open_writers",
		"Open writing handles per channel",
		[]string{"channel"}, nil,
	)
)

// Collector exports the channel table's fill levels as gauges, snapshotted
// at scrape time.
type Collector struct {
	table *registry.Table
}

// NewCollector creates a collector over the given table and registers it
// with reg.
func NewCollector(table *registry.Table, reg prometheus.Registerer) *Collector {
	c := &Collector{table: table}
	reg.MustRegister(c)
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- capacityDesc
	ch <- usedDesc
	ch <- freeDesc
	ch <- readersDesc
	ch <- writersDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, st := range c.table.Stats() {
		id := strconv.Itoa(st.ID)
		ch <- prometheus.MustNewConstMetric(capacityDesc, prometheus.GaugeValue, float64(st.Capacity), id)
		ch <- prometheus.MustNewConstMetric(usedDesc, prometheus.GaugeValue, float64(st.Used), id)
		ch <- prometheus.MustNewConstMetric(freeDesc, prometheus.GaugeValue, float64(st.Free), id)
		ch <- prometheus.MustNewConstMetric(readersDesc, prometheus.GaugeValue, float64(st.Readers), id)
		ch <- prometheus.MustNewConstMetric(writersDesc, prometheus.GaugeValue, float64(st.Writers), id)
	}
}
