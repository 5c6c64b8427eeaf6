package metrics

import "github.com/prometheus/client_golang/prometheus"

// DBPoolStatFunc returns pool statistics without this package importing
// pgxpool; the server wires it to pool.Stat().
type DBPoolStatFunc func() (total, idle, acquired int32)

// dbPoolCollector exposes the connection pool backing the catalog and usage
// stores as three gauges, sampled on every scrape.
type dbPoolCollector struct {
	statFunc DBPoolStatFunc
	descs    [3]*prometheus.Desc
}

// NewDBPoolCollector creates a collector over the given stat function.
func NewDBPoolCollector(statFunc DBPoolStatFunc) prometheus.Collector {
	mk := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("morel_db_pool_"+name, help, nil, nil)
	}
	return &dbPoolCollector{
		statFunc: statFunc,
		descs: [3]*prometheus.Desc{
			mk("total_conns", "Total connections in the database pool."),
			mk("idle_conns", "Idle connections in the database pool."),
			mk("acquired_conns", "Connections currently held by queries."),
		},
	}
}

func (c *dbPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

func (c *dbPoolCollector) Collect(ch chan<- prometheus.Metric) {
	total, idle, acquired := c.statFunc()
	for i, v := range []int32{total, idle, acquired} {
		ch <- prometheus.MustNewConstMetric(c.descs[i], prometheus.GaugeValue, float64(v))
	}
}
