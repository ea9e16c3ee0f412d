package persistence

import "github.com/prometheus/client_golang/prometheus"

// PoolStats is a point-in-time view of a connection pool.
type PoolStats struct {
	Total    int64
	Idle     int64
	InUse    int64
	WaitHits int64
}

type poolCollector struct {
	stats    func() PoolStats
	total    *prometheus.Desc
	idle     *prometheus.Desc
	inUse    *prometheus.Desc
	waitHits *prometheus.Desc
}

// NewPoolCollector exposes pool usage under the given pool label. Stats are
// read on every scrape.
func NewPoolCollector(pool string, stats func() PoolStats) prometheus.Collector {
	labels := prometheus.Labels{"pool": pool}
	return &poolCollector{
		stats: stats,
		total: prometheus.NewDesc("property_pool_connections",
			"Open connections in the pool.", nil, labels),
		idle: prometheus.NewDesc("property_pool_idle_connections",
			"Idle connections in the pool.", nil, labels),
		inUse: prometheus.NewDesc("property_pool_in_use_connections",
			"Connections currently checked out.", nil, labels),
		waitHits: prometheus.NewDesc("property_pool_waits_total",
			"Acquires that found the pool exhausted.", nil, labels),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.idle
	ch <- c.inUse
	ch <- c.waitHits
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.Total))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(s.InUse))
	ch <- prometheus.MustNewConstMetric(c.waitHits, prometheus.CounterValue, float64(s.WaitHits))
}
