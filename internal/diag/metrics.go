package diag

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a Status's per-severity tallies as a Prometheus metric,
// additive to (never a replacement for) the atomic counters themselves —
// HasReports always reads the atomics directly.
type statusCollector struct {
	status *Status
	desc   *prometheus.Desc
}

// Collector returns a prometheus.Collector reporting status's tallies under
// a single "cuik_diagnostics_total" counter vector labeled by severity.
func Collector(status *Status) prometheus.Collector {
	return &statusCollector{
		status: status,
		desc: prometheus.NewDesc(
			"cuik_diagnostics_total",
			"Number of diagnostics reported, by severity.",
			[]string{"severity"},
			nil,
		),
	}
}

func (c *statusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *statusCollector) Collect(ch chan<- prometheus.Metric) {
	for l := LevelVerbose; l < levelCount; l++ {
		ch <- prometheus.MustNewConstMetric(
			c.desc,
			prometheus.CounterValue,
			float64(c.status.Tally(l)),
			l.String(),
		)
	}
}
